package audit

import "context"

// Sink records events. Implementations must not fail the calling request.
type Sink interface {
	Record(ctx context.Context, e Event)
}
