package remote

import (
	"context"
	"fmt"
	"time"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"
)

// CollectionPath is where registrations live, scoped per deployment so
// several festivals can share one project.
func CollectionPath(appID string) string {
	return fmt.Sprintf("artifacts/%s/public/data/festRegistrations", appID)
}

type FirestoreCollection struct {
	client *firestore.Client
	coll   *firestore.CollectionRef
}

var _ Collection = (*FirestoreCollection)(nil)

// OpenFirestore dials the project and binds the deployment-scoped
// registration collection.
func OpenFirestore(ctx context.Context, projectID, appID string, opts ...option.ClientOption) (*FirestoreCollection, error) {
	client, err := firestore.NewClient(ctx, projectID, opts...)
	if err != nil {
		return nil, err
	}
	return &FirestoreCollection{
		client: client,
		coll:   client.Collection(CollectionPath(appID)),
	}, nil
}

type document struct {
	Type      string    `firestore:"type"`
	Event     string    `firestore:"event"`
	Class     string    `firestore:"classVal"`
	Names     []string  `firestore:"names"`
	Timestamp time.Time `firestore:"timestamp"`
}

func (c *FirestoreCollection) Subscribe(ctx context.Context, onSnapshot func([]Record), onError func(error)) (Subscription, error) {
	ctx, cancel := context.WithCancel(ctx)
	snaps := c.coll.Query.Snapshots(ctx)

	go func() {
		defer snaps.Stop()
		for {
			snap, err := snaps.Next()
			if err != nil {
				if ctx.Err() != nil {
					return // canceled by us
				}
				onError(err)
				return
			}
			recs, err := readSnapshot(snap.Documents)
			if err != nil {
				if ctx.Err() == nil {
					onError(err)
				}
				return
			}
			onSnapshot(recs)
		}
	}()

	return subscription{cancel: cancel}, nil
}

type subscription struct{ cancel context.CancelFunc }

func (s subscription) Cancel() { s.cancel() }

func readSnapshot(it *firestore.DocumentIterator) ([]Record, error) {
	recs := []Record{}
	for {
		d, err := it.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, err
		}
		var body document
		if err := d.DataTo(&body); err != nil {
			// a malformed document must not kill the whole snapshot
			continue
		}
		recs = append(recs, Record{
			ID:        d.Ref.ID,
			Type:      body.Type,
			Event:     body.Event,
			Class:     body.Class,
			Names:     body.Names,
			Timestamp: body.Timestamp,
		})
	}
	return recs, nil
}

func (c *FirestoreCollection) Add(ctx context.Context, r Record) (string, error) {
	ref, _, err := c.coll.Add(ctx, map[string]interface{}{
		"type":      r.Type,
		"event":     r.Event,
		"classVal":  r.Class,
		"names":     r.Names,
		"timestamp": firestore.ServerTimestamp,
	})
	if err != nil {
		return "", err
	}
	return ref.ID, nil
}

func (c *FirestoreCollection) Set(ctx context.Context, r Record) error {
	_, err := c.coll.Doc(r.ID).Set(ctx, map[string]interface{}{
		"id":        r.ID,
		"type":      r.Type,
		"event":     r.Event,
		"classVal":  r.Class,
		"names":     r.Names,
		"timestamp": firestore.ServerTimestamp,
	}, firestore.MergeAll)
	return err
}

func (c *FirestoreCollection) Update(ctx context.Context, r Record) error {
	_, err := c.coll.Doc(r.ID).Update(ctx, []firestore.Update{
		{Path: "type", Value: r.Type},
		{Path: "event", Value: r.Event},
		{Path: "classVal", Value: r.Class},
		{Path: "names", Value: r.Names},
		{Path: "timestamp", Value: firestore.ServerTimestamp},
	})
	return err
}

func (c *FirestoreCollection) Delete(ctx context.Context, id string) error {
	_, err := c.coll.Doc(id).Delete(ctx)
	return err
}

func (c *FirestoreCollection) Close() error {
	return c.client.Close()
}
