package store

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"festreg/internal/errdef"
	"festreg/internal/models"
	"festreg/internal/remote"
)

type fakeSub struct {
	mu       sync.Mutex
	canceled bool
}

func (f *fakeSub) Cancel() {
	f.mu.Lock()
	f.canceled = true
	f.mu.Unlock()
}

func (f *fakeSub) wasCanceled() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.canceled
}

type fakeColl struct {
	mu           sync.Mutex
	subscribeErr error
	onSnapshot   func([]remote.Record)
	sub          *fakeSub
	added        []remote.Record
	updated      []remote.Record
	deleted      []string
	nextID       int
}

func (f *fakeColl) Subscribe(ctx context.Context, onSnapshot func([]remote.Record), onError func(error)) (remote.Subscription, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.subscribeErr != nil {
		return nil, f.subscribeErr
	}
	f.onSnapshot = onSnapshot
	f.sub = &fakeSub{}
	return f.sub, nil
}

func (f *fakeColl) Add(ctx context.Context, r remote.Record) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	r.ID = fmt.Sprintf("doc-%d", f.nextID)
	f.added = append(f.added, r)
	return r.ID, nil
}

func (f *fakeColl) Set(ctx context.Context, r remote.Record) error { return nil }

func (f *fakeColl) Update(ctx context.Context, r remote.Record) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.updated = append(f.updated, r)
	return nil
}

func (f *fakeColl) Delete(ctx context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleted = append(f.deleted, id)
	return nil
}

func (f *fakeColl) Close() error { return nil }

func validInput() models.Input {
	return models.Input{Type: models.TypeIndividual, Event: "Rangoli", Class: "I PCMB", Names: []string{"Asha"}}
}

func TestOperationsRequireBackend(t *testing.T) {
	s := New(nil)
	_, err := s.Create(context.Background(), validInput())
	assert.True(t, errdef.IsNotReady(err))
	err = s.Update(context.Background(), "x", validInput())
	assert.True(t, errdef.IsNotReady(err))
	err = s.Delete(context.Background(), "x")
	assert.True(t, errdef.IsNotReady(err))
}

func TestLocalCreateAssignsIDAndTimestamp(t *testing.T) {
	s := New(nil)
	s.UseLocal()

	reg, err := s.Create(context.Background(), models.Input{
		Event: " Rangoli ", Class: " I PCMB ", Names: []string{" Asha "},
	})
	require.NoError(t, err)
	assert.NotEmpty(t, reg.ID)
	assert.Equal(t, "Rangoli", reg.Event)
	assert.Equal(t, "I PCMB", reg.Class)
	assert.Equal(t, []string{"Asha"}, reg.Names)
	_, err = time.Parse(time.RFC3339, reg.Timestamp)
	assert.NoError(t, err, "timestamp should be RFC 3339")

	assert.Len(t, s.List(), 1)
}

func TestCreateRejectsInvalidInput(t *testing.T) {
	s := New(nil)
	s.UseLocal()
	_, err := s.Create(context.Background(), models.Input{Event: "Mime", Names: []string{"Asha"}})
	assert.True(t, errdef.IsValidation(err))
	assert.Empty(t, s.List(), "rejected input must not be stored")
}

func TestLocalUpdateReplacesFields(t *testing.T) {
	s := New(nil)
	s.UseLocal()
	reg, err := s.Create(context.Background(), validInput())
	require.NoError(t, err)

	err = s.Update(context.Background(), reg.ID, models.Input{
		Type: models.TypeGroup, Event: "Mad Ads", Class: "II SEBA", Names: []string{"Asha", "Ravi"},
	})
	require.NoError(t, err)

	got := s.List()[0]
	assert.Equal(t, reg.ID, got.ID)
	assert.Equal(t, models.TypeGroup, got.Type)
	assert.Equal(t, "Mad Ads", got.Event)
	assert.Equal(t, []string{"Asha", "Ravi"}, got.Names)
	assert.Equal(t, reg.Timestamp, got.Timestamp, "an edit keeps the original timestamp")
}

func TestLocalUpdateUnknownID(t *testing.T) {
	s := New(nil)
	s.UseLocal()
	err := s.Update(context.Background(), "nope", validInput())
	assert.True(t, errdef.IsNotFound(err))
}

func TestLocalDeleteIsIdempotent(t *testing.T) {
	s := New(nil)
	s.UseLocal()
	reg, err := s.Create(context.Background(), validInput())
	require.NoError(t, err)

	require.NoError(t, s.Delete(context.Background(), reg.ID))
	require.NoError(t, s.Delete(context.Background(), reg.ID))
	assert.Empty(t, s.List())
}

func TestGroupByEventFirstEncounterOrder(t *testing.T) {
	s := New(nil)
	s.UseLocal()
	_, err := s.Merge([]models.Registration{
		{ID: "1", Event: "Mime", Names: []string{"A"}},
		{ID: "2", Event: "Rangoli", Names: []string{"B"}},
		{ID: "3", Event: "Mime", Names: []string{"C"}},
		{ID: "4", Event: "Group Song", Names: []string{"D"}},
	})
	require.NoError(t, err)

	groups := s.GroupByEvent()
	require.Len(t, groups, 3)
	assert.Equal(t, "Mime", groups[0].Event)
	assert.Equal(t, "Rangoli", groups[1].Event)
	assert.Equal(t, "Group Song", groups[2].Event)

	seen := map[string]int{}
	total := 0
	for _, g := range groups {
		for _, e := range g.Entries {
			seen[e.ID]++
			total++
		}
	}
	assert.Equal(t, 4, total)
	for id, n := range seen {
		assert.Equal(t, 1, n, "record %s must land in exactly one group", id)
	}
}

func TestMergeSkipsKnownIDs(t *testing.T) {
	s := New(nil)
	s.UseLocal()
	_, err := s.Merge([]models.Registration{
		{ID: "a", Event: "Mime", Names: []string{"Asha"}},
	})
	require.NoError(t, err)

	added, err := s.Merge([]models.Registration{
		{ID: "a", Event: "Changed", Names: []string{"X"}},
		{ID: "b", Event: "Rangoli", Names: []string{"Ravi"}},
	})
	require.NoError(t, err)
	assert.Equal(t, 1, added)

	regs := s.List()
	require.Len(t, regs, 2)
	assert.Equal(t, "Mime", regs[0].Event, "existing record must not be overwritten")
}

func TestMergeAllKnownLeavesSetUnchanged(t *testing.T) {
	s := New(nil)
	s.UseLocal()
	seed := []models.Registration{
		{ID: "a", Event: "Mime", Names: []string{"A"}},
		{ID: "b", Event: "Rangoli", Names: []string{"B"}},
	}
	_, err := s.Merge(seed)
	require.NoError(t, err)

	added, err := s.Merge(seed)
	require.NoError(t, err)
	assert.Zero(t, added)
	assert.Len(t, s.List(), 2)
}

func TestMergeRequiresLocalMode(t *testing.T) {
	s := New(nil)
	_, err := s.Merge([]models.Registration{{ID: "a"}})
	assert.True(t, errdef.IsNotReady(err))
}

func TestSnapshotReplacesWholesaleSortedByEvent(t *testing.T) {
	s := New(nil)
	coll := &fakeColl{}
	require.NoError(t, s.UseRemote(context.Background(), coll))

	coll.onSnapshot([]remote.Record{
		{ID: "1", Event: "Rangoli", Names: []string{"A"}},
		{ID: "2", Event: "Group Song", Names: []string{"B"}},
		{ID: "3", Event: "Mime", Names: []string{"C"}},
	})
	got := s.List()
	require.Len(t, got, 3)
	assert.Equal(t, "Group Song", got[0].Event)
	assert.Equal(t, "Mime", got[1].Event)
	assert.Equal(t, "Rangoli", got[2].Event)

	// next snapshot replaces the set, never merges into it
	coll.onSnapshot([]remote.Record{
		{ID: "9", Event: "Mehendi", Names: []string{"Z"}},
	})
	got = s.List()
	require.Len(t, got, 1)
	assert.Equal(t, "9", got[0].ID)
}

func TestStaleSnapshotIsDropped(t *testing.T) {
	s := New(nil)
	coll := &fakeColl{}
	require.NoError(t, s.UseRemote(context.Background(), coll))
	stale := coll.onSnapshot

	s.UseLocal()
	assert.True(t, coll.sub.wasCanceled(), "mode switch must cancel the live subscription")

	stale([]remote.Record{{ID: "ghost", Event: "Mime", Names: []string{"X"}}})
	assert.Empty(t, s.List(), "a snapshot from a torn-down subscription must not land")
}

func TestRemoteCreateDelegatesToCollection(t *testing.T) {
	s := New(nil)
	coll := &fakeColl{}
	require.NoError(t, s.UseRemote(context.Background(), coll))

	reg, err := s.Create(context.Background(), validInput())
	require.NoError(t, err)
	assert.Equal(t, "doc-1", reg.ID)
	assert.Empty(t, reg.Timestamp, "the backend stamps the time; the next snapshot confirms it")
	require.Len(t, coll.added, 1)
	assert.Equal(t, "Rangoli", coll.added[0].Event)
}

func TestRemoteUpdateAndDeleteDelegate(t *testing.T) {
	s := New(nil)
	coll := &fakeColl{}
	require.NoError(t, s.UseRemote(context.Background(), coll))

	require.NoError(t, s.Update(context.Background(), "doc-7", validInput()))
	require.Len(t, coll.updated, 1)
	assert.Equal(t, "doc-7", coll.updated[0].ID)

	require.NoError(t, s.Delete(context.Background(), "doc-7"))
	assert.Equal(t, []string{"doc-7"}, coll.deleted)
}

func TestUseRemoteSubscribeFailure(t *testing.T) {
	s := New(nil)
	coll := &fakeColl{subscribeErr: fmt.Errorf("listen refused")}
	err := s.UseRemote(context.Background(), coll)
	require.Error(t, err)
	assert.Equal(t, BackendNone, s.Backend())
}

func TestUseLocalKeepsWorkingSet(t *testing.T) {
	s := New(nil)
	coll := &fakeColl{}
	require.NoError(t, s.UseRemote(context.Background(), coll))
	coll.onSnapshot([]remote.Record{{ID: "1", Event: "Mime", Names: []string{"A"}}})

	s.UseLocal()
	assert.Len(t, s.List(), 1, "falling back to local keeps the last mirrored set")
}
