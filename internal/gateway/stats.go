package gateway

import "github.com/AlexKimmel/TickerGate/internal/ratelimit"

// Stats is a point-in-time view of one gateway, for status bars and
// telemetry. Derived state only; nothing authoritative lives here.
type Stats struct {
	Service    string
	Bucket     ratelimit.Stats
	QueueDepth int
	Workers    int
}
