package sheetsync

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"festreg/internal/errdef"
	"festreg/internal/models"
	"festreg/internal/remote"
	"festreg/internal/settings"
	"festreg/internal/store"
	"festreg/internal/util"
)

// Bridge is the user-triggered, best-effort exchange with the sheet
// endpoint. One sync operation runs at a time; an operation already in
// flight runs to completion and cannot be canceled.
type Bridge struct {
	settings *settings.Store
	store    *store.Store
	client   *http.Client
	genID    func() string

	mu   sync.Mutex
	busy bool
}

func New(sett *settings.Store, st *store.Store) *Bridge {
	return &Bridge{
		settings: sett,
		store:    st,
		client:   &http.Client{Timeout: 30 * time.Second},
		genID:    uuid.NewString,
	}
}

func (b *Bridge) acquire() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.busy {
		return errdef.NewBusy("a sync operation is already running")
	}
	b.busy = true
	return nil
}

func (b *Bridge) release() {
	b.mu.Lock()
	b.busy = false
	b.mu.Unlock()
}

// Push serializes the entire current registration set (not a delta) to
// the sheet endpoint as a single request, each row stamped with a fresh
// timestamp. The endpoint gives no readable response, so success means
// only "the request was dispatched without a transport error" — receipt
// is NOT confirmed and the operator is told to check the sheet. Do not
// read more into a nil return.
func (b *Bridge) Push(ctx context.Context) (int, error) {
	if err := b.acquire(); err != nil {
		return 0, err
	}
	defer b.release()

	url := b.settings.SheetURL()
	if url == "" {
		return 0, errdef.NewValidation("sheet URL is not configured")
	}

	regs := b.store.List()
	now := util.NowISO()
	payload := make([]sheetRecord, 0, len(regs))
	for _, r := range regs {
		payload = append(payload, sheetRecord{
			ID:        r.ID,
			Type:      r.Type,
			Event:     r.Event,
			Class:     r.Class,
			Names:     r.Names,
			Timestamp: now,
		})
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return 0, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return 0, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := b.client.Do(req)
	if err != nil {
		return 0, errdef.NewConnectivity("push: %v", err)
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	_ = resp.Body.Close()
	return len(payload), nil
}

type PullResult struct {
	Imported int
	Empty    bool
}

// Pull fetches the sheet endpoint and merges the rows into whichever
// backend is active. Nothing is mutated on a malformed response. The
// exchange is non-transactional by design.
func (b *Bridge) Pull(ctx context.Context) (PullResult, error) {
	if err := b.acquire(); err != nil {
		return PullResult{}, err
	}
	defer b.release()

	url := b.settings.SheetURL()
	if url == "" {
		return PullResult{}, errdef.NewValidation("sheet URL is not configured")
	}
	if b.store.Backend() == store.BackendNone {
		return PullResult{}, errdef.NewNotReady("no storage backend attached yet")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return PullResult{}, err
	}
	resp, err := b.client.Do(req)
	if err != nil {
		return PullResult{}, errdef.NewConnectivity("pull: %v", err)
	}
	defer resp.Body.Close()

	// An endpoint answering with a web page is a deployment mistake,
	// not data.
	if ct := resp.Header.Get("Content-Type"); ct != "" && !strings.Contains(ct, "application/json") {
		return PullResult{}, errdef.NewMalformedResponse("expected JSON, got %q - check the script deployment", ct)
	}
	if resp.StatusCode != http.StatusOK {
		return PullResult{}, errdef.NewConnectivity("endpoint returned status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return PullResult{}, errdef.NewConnectivity("pull: %v", err)
	}

	var errPayload struct {
		Error string `json:"error"`
	}
	if err := json.Unmarshal(body, &errPayload); err == nil && errPayload.Error != "" {
		return PullResult{}, errdef.NewMalformedResponse("endpoint error: %s", errPayload.Error)
	}

	var rows []sheetRecord
	if err := json.Unmarshal(body, &rows); err != nil {
		return PullResult{}, errdef.NewMalformedResponse("decode sheet data: %v", err)
	}
	if len(rows) == 0 {
		return PullResult{Empty: true}, nil
	}

	if b.store.Backend() == store.BackendRemote {
		return b.mergeRemote(ctx, rows)
	}
	return b.mergeLocal(rows)
}

// mergeLocal defaults missing fields and appends rows whose id is not
// in the working set yet; an existing record is never overwritten.
func (b *Bridge) mergeLocal(rows []sheetRecord) (PullResult, error) {
	regs := make([]models.Registration, 0, len(rows))
	for _, row := range rows {
		regs = append(regs, row.defaulted(b.genID))
	}
	added, err := b.store.Merge(regs)
	if err != nil {
		return PullResult{}, err
	}
	return PullResult{Imported: added}, nil
}

// mergeRemote upserts every row that carries an id; rows without one
// are skipped entirely, not assigned one. The upserts run concurrently
// and the pull completes only once all of them settle. Only the first
// failure is surfaced: a partial failure leaves the collection
// commingled, the accepted cost of this best-effort exchange.
func (b *Bridge) mergeRemote(ctx context.Context, rows []sheetRecord) (PullResult, error) {
	coll := b.store.Remote()
	if coll == nil {
		return PullResult{}, errdef.NewNotReady("remote backend detached before the merge")
	}

	var g errgroup.Group
	var imported atomic.Int64
	for _, row := range rows {
		if row.ID == "" {
			continue
		}
		row := row
		g.Go(func() error {
			err := coll.Set(ctx, remote.Record{
				ID:    row.ID,
				Type:  row.Type,
				Event: row.Event,
				Class: row.Class,
				Names: row.Names,
			})
			if err != nil {
				return err
			}
			imported.Add(1)
			return nil
		})
	}
	err := g.Wait()
	return PullResult{Imported: int(imported.Load())}, err
}
