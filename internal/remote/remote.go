package remote

import (
	"context"
	"time"
)

// Record is the wire shape of a registration document. Timestamp is
// stamped by the backend on every write; it comes back zero until the
// next snapshot confirms the write.
type Record struct {
	ID        string
	Type      string
	Event     string
	Class     string
	Names     []string
	Timestamp time.Time
}

// Subscription is a cancelable live-query handle. Cancel is idempotent.
type Subscription interface {
	Cancel()
}

// Collection is the narrow surface consumed from the remote document
// store: one live query plus per-document writes.
type Collection interface {
	// Subscribe delivers full point-in-time snapshots of the collection
	// until canceled. onError fires at most once, when the subscription
	// dies for a reason other than cancellation, and ends delivery.
	Subscribe(ctx context.Context, onSnapshot func([]Record), onError func(error)) (Subscription, error)

	// Add stores a new document under a backend-generated id and
	// returns that id.
	Add(ctx context.Context, r Record) (string, error)

	// Set upserts the document keyed by r.ID, merging fields at the top
	// level.
	Set(ctx context.Context, r Record) error

	// Update replaces every field except the id and fails if the
	// document does not exist.
	Update(ctx context.Context, r Record) error

	// Delete removes the document; deleting an absent id is a no-op.
	Delete(ctx context.Context, id string) error

	Close() error
}
