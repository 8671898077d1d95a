package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"festreg/internal/errdef"
	"festreg/internal/models"
	"festreg/internal/remote"
	"festreg/internal/util"
)

type Backend int

const (
	BackendNone Backend = iota
	BackendLocal
	BackendRemote
)

// Store is the single in-memory view of the registration set. All
// mutation goes through it: form handlers and the sync bridge never
// touch the working set directly.
type Store struct {
	onRemoteError func(error)

	mu      sync.Mutex
	backend Backend
	regs    []models.Registration
	coll    remote.Collection
	sub     remote.Subscription
	// session invalidates snapshots from torn-down subscriptions
	session uint64
}

func New(onRemoteError func(error)) *Store {
	if onRemoteError == nil {
		onRemoteError = func(error) {}
	}
	return &Store{onRemoteError: onRemoteError}
}

// UseNone detaches any backend; operations fail with not-ready until a
// mode is chosen.
func (s *Store) UseNone() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.teardown()
	s.backend = BackendNone
}

// UseLocal switches to in-process storage. The current working set is
// kept so a fallback from connected mode does not blank the roster.
func (s *Store) UseLocal() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.teardown()
	s.backend = BackendLocal
}

// UseRemote mirrors the given collection. Any prior subscription is
// canceled first so two live snapshots never race for the working set.
func (s *Store) UseRemote(ctx context.Context, coll remote.Collection) error {
	s.mu.Lock()
	s.teardown()
	s.backend = BackendRemote
	s.coll = coll
	session := s.session
	s.mu.Unlock()

	sub, err := coll.Subscribe(ctx,
		func(recs []remote.Record) { s.applySnapshot(session, recs) },
		func(err error) { s.onRemoteError(err) },
	)
	if err != nil {
		s.mu.Lock()
		if s.session == session {
			s.backend = BackendNone
			s.coll = nil
		}
		s.mu.Unlock()
		return err
	}

	s.mu.Lock()
	if s.session != session {
		// a later mode switch won the race
		s.mu.Unlock()
		sub.Cancel()
		return nil
	}
	s.sub = sub
	s.mu.Unlock()
	return nil
}

// teardown cancels the live subscription and detaches the collection.
// Callers hold s.mu.
func (s *Store) teardown() {
	if s.sub != nil {
		s.sub.Cancel()
		s.sub = nil
	}
	s.coll = nil
	s.session++
}

// applySnapshot replaces the working set wholesale, sorted by event for
// a deterministic default order. Snapshots are never merged field by
// field; snapshots from a stale subscription are dropped.
func (s *Store) applySnapshot(session uint64, recs []remote.Record) {
	regs := make([]models.Registration, 0, len(recs))
	for _, r := range recs {
		regs = append(regs, fromRecord(r))
	}
	sort.SliceStable(regs, func(i, j int) bool { return regs[i].Event < regs[j].Event })

	s.mu.Lock()
	defer s.mu.Unlock()
	if session != s.session {
		return
	}
	s.regs = regs
}

func (s *Store) Backend() Backend {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.backend
}

// Remote exposes the active collection handle for the sync bridge's
// connected-mode upserts. Nil unless a remote backend is attached.
func (s *Store) Remote() remote.Collection {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.backend != BackendRemote {
		return nil
	}
	return s.coll
}

// List returns a copy of the working set in its current order.
func (s *Store) List() []models.Registration {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.Registration, len(s.regs))
	copy(out, s.regs)
	return out
}

type EventGroup struct {
	Event   string                `json:"event"`
	Entries []models.Registration `json:"entries"`
}

// GroupByEvent groups the working set by event in first-encounter
// order; rows keep the set's underlying order. Every record lands in
// exactly one group.
func (s *Store) GroupByEvent() []EventGroup {
	s.mu.Lock()
	defer s.mu.Unlock()
	idx := map[string]int{}
	groups := []EventGroup{}
	for _, r := range s.regs {
		i, ok := idx[r.Event]
		if !ok {
			i = len(groups)
			idx[r.Event] = i
			groups = append(groups, EventGroup{Event: r.Event})
		}
		groups[i].Entries = append(groups[i].Entries, r)
	}
	return groups
}

// Create validates and stores a new registration. In connected mode the
// id and timestamp are backend-assigned and the write is confirmed by
// the next snapshot, not by this call.
func (s *Store) Create(ctx context.Context, in models.Input) (models.Registration, error) {
	norm, err := in.Normalize()
	if err != nil {
		return models.Registration{}, err
	}

	s.mu.Lock()
	backend, coll := s.backend, s.coll
	s.mu.Unlock()

	switch backend {
	case BackendLocal:
		reg := models.Registration{
			ID:        util.LocalID(),
			Type:      norm.Type,
			Event:     norm.Event,
			Class:     norm.Class,
			Names:     norm.Names,
			Timestamp: util.NowISO(),
		}
		s.mu.Lock()
		s.regs = append(s.regs, reg)
		s.mu.Unlock()
		return reg, nil
	case BackendRemote:
		id, err := coll.Add(ctx, remote.Record{
			Type:  norm.Type,
			Event: norm.Event,
			Class: norm.Class,
			Names: norm.Names,
		})
		if err != nil {
			return models.Registration{}, err
		}
		return models.Registration{
			ID:    id,
			Type:  norm.Type,
			Event: norm.Event,
			Class: norm.Class,
			Names: norm.Names,
		}, nil
	default:
		return models.Registration{}, errdef.NewNotReady("no storage backend attached yet")
	}
}

// Update replaces every field except the id. Locally an absent id is an
// error; in connected mode the existence check is the backend's.
func (s *Store) Update(ctx context.Context, id string, in models.Input) error {
	if id == "" {
		return errdef.NewValidation("id is required")
	}
	norm, err := in.Normalize()
	if err != nil {
		return err
	}

	s.mu.Lock()
	backend, coll := s.backend, s.coll
	s.mu.Unlock()

	switch backend {
	case BackendLocal:
		s.mu.Lock()
		defer s.mu.Unlock()
		for i := range s.regs {
			if s.regs[i].ID == id {
				s.regs[i].Type = norm.Type
				s.regs[i].Event = norm.Event
				s.regs[i].Class = norm.Class
				s.regs[i].Names = norm.Names
				return nil
			}
		}
		return errdef.NewNotFound("registration %s not found", id)
	case BackendRemote:
		return coll.Update(ctx, remote.Record{
			ID:    id,
			Type:  norm.Type,
			Event: norm.Event,
			Class: norm.Class,
			Names: norm.Names,
		})
	default:
		return errdef.NewNotReady("no storage backend attached yet")
	}
}

// Delete removes the registration with the given id. Deleting an
// already-absent id is a no-op, which tolerates a race with a
// concurrent remote update.
func (s *Store) Delete(ctx context.Context, id string) error {
	if id == "" {
		return errdef.NewValidation("id is required")
	}

	s.mu.Lock()
	backend, coll := s.backend, s.coll
	s.mu.Unlock()

	switch backend {
	case BackendLocal:
		s.mu.Lock()
		defer s.mu.Unlock()
		kept := s.regs[:0]
		for _, r := range s.regs {
			if r.ID != id {
				kept = append(kept, r)
			}
		}
		s.regs = kept
		return nil
	case BackendRemote:
		return coll.Delete(ctx, id)
	default:
		return errdef.NewNotReady("no storage backend attached yet")
	}
}

// Merge appends imported records whose id is not present yet; an
// existing record is never overwritten by an imported one. Local mode
// only — connected imports go through the remote collection instead.
func (s *Store) Merge(imported []models.Registration) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.backend != BackendLocal {
		return 0, errdef.NewNotReady("local merge requires local mode")
	}
	existing := make(map[string]struct{}, len(s.regs))
	for _, r := range s.regs {
		existing[r.ID] = struct{}{}
	}
	added := 0
	for _, r := range imported {
		if _, ok := existing[r.ID]; ok {
			continue
		}
		existing[r.ID] = struct{}{}
		s.regs = append(s.regs, r)
		added++
	}
	return added, nil
}

func fromRecord(r remote.Record) models.Registration {
	reg := models.Registration{
		ID:    r.ID,
		Type:  r.Type,
		Event: r.Event,
		Class: r.Class,
		Names: r.Names,
	}
	if !r.Timestamp.IsZero() {
		reg.Timestamp = r.Timestamp.Format(time.RFC3339)
	}
	return reg
}
