package connect

import (
	"context"
	"log"
	"strings"
	"sync"

	"festreg/internal/errdef"
	"festreg/internal/notify"
	"festreg/internal/remote"
)

// APIKeyPlaceholder marks a configuration that was never filled in.
const APIKeyPlaceholder = "Your-Unique-Key-Here"

type Mode string

const (
	ModeSetupRequired Mode = "setup-required"
	ModeConnecting    Mode = "connecting"
	ModeConnected     Mode = "connected"
	ModeLocal         Mode = "local"
)

// Config is the remote-service credential block. A persisted operator
// override replaces the built-in one wholesale.
type Config struct {
	APIKey     string `json:"apiKey" mapstructure:"apiKey"`
	ProjectID  string `json:"projectId" mapstructure:"projectId"`
	AuthDomain string `json:"authDomain" mapstructure:"authDomain"`
	AppID      string `json:"appId" mapstructure:"appId"`
}

// Placeholder reports whether the config cannot possibly connect and
// the operator must either supply credentials or opt into local mode.
func (c Config) Placeholder() bool {
	return c.APIKey == "" || strings.Contains(c.APIKey, APIKeyPlaceholder)
}

// sameHandle reports whether a collection opened under c may be reused
// under other without re-dialing.
func (c Config) sameHandle(other Config) bool {
	return c.APIKey == other.APIKey && c.ProjectID == other.ProjectID
}

type Authenticator func(ctx context.Context, cfg Config) (userID string, err error)

type Dialer func(ctx context.Context, cfg Config) (remote.Collection, error)

// Listener observes effective mode changes; coll is non-nil only for
// ModeConnected.
type Listener func(mode Mode, coll remote.Collection)

// Resolver decides whether the app runs connected or local and owns the
// lifecycle of the remote handle.
type Resolver struct {
	auth     Authenticator
	dial     Dialer
	notifier notify.Notifier
	listener Listener

	mu     sync.Mutex
	mode   Mode
	cfg    Config
	coll   remote.Collection
	userID string
}

func New(auth Authenticator, dial Dialer, n notify.Notifier, l Listener) *Resolver {
	return &Resolver{
		auth:     auth,
		dial:     dial,
		notifier: n,
		listener: l,
		mode:     ModeSetupRequired,
	}
}

func (r *Resolver) Mode() Mode {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.mode
}

func (r *Resolver) UserID() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.userID
}

// Apply drives the resolver with a (new) configuration. It blocks for
// the duration of the sign-in and dial attempts and returns the mode
// reached. Re-applying the configuration of an established session is a
// no-op.
func (r *Resolver) Apply(ctx context.Context, cfg Config) Mode {
	r.mu.Lock()
	defer r.mu.Unlock()

	if cfg.Placeholder() {
		if r.mode != ModeSetupRequired {
			r.setMode(ModeSetupRequired, nil)
			r.notifier.Infof("Remote database not configured. Supply a config or choose local mode.")
		}
		return r.mode
	}

	if r.mode == ModeConnected && r.cfg.sameHandle(cfg) {
		return r.mode
	}

	// Any existing handle is stale at this point: either it was opened
	// under different credentials or its session already failed. Tear it
	// down before dialing again; a teardown failure is not fatal.
	if r.coll != nil {
		if err := r.coll.Close(); err != nil {
			log.Printf("connect: close stale handle: %v", err)
		}
		r.coll = nil
	}

	r.cfg = cfg
	r.setMode(ModeConnecting, nil)

	userID, err := r.auth(ctx, cfg)
	if err != nil {
		switch {
		case errdef.IsBadCredential(err):
			r.setMode(ModeSetupRequired, nil)
			r.notifier.Errorf("Invalid API key. Update the remote configuration.")
		case errdef.IsCapability(err):
			r.setMode(ModeLocal, nil)
			r.notifier.Infof("Anonymous sign-in is disabled on the remote side. Switching to local mode.")
		default:
			r.setMode(ModeLocal, nil)
			r.notifier.Errorf("Remote sign-in failed (%v). Switching to local mode.", err)
		}
		return r.mode
	}
	r.userID = userID

	coll, err := r.dial(ctx, cfg)
	if err != nil {
		r.setMode(ModeLocal, nil)
		r.notifier.Errorf("Could not reach the remote database (%v). Switching to local mode.", err)
		return r.mode
	}

	r.coll = coll
	r.setMode(ModeConnected, coll)
	r.notifier.Successf("Connected to the shared database.")
	return r.mode
}

// GoOffline is the operator's explicit opt-out into local mode.
func (r *Resolver) GoOffline() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.mode == ModeLocal {
		return
	}
	if r.coll != nil {
		if err := r.coll.Close(); err != nil {
			log.Printf("connect: close handle: %v", err)
		}
		r.coll = nil
	}
	r.setMode(ModeLocal, nil)
	r.notifier.Infof("Local mode. Data stays on this machine only.")
}

// RemoteError reports a failure of an established remote session, for
// example a dead subscription. The resolver falls back to local mode;
// reconnecting requires the operator to re-apply a configuration.
func (r *Resolver) RemoteError(err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.mode != ModeConnected {
		return
	}
	log.Printf("connect: remote session error: %v", err)
	if r.coll != nil {
		if cerr := r.coll.Close(); cerr != nil {
			log.Printf("connect: close handle: %v", cerr)
		}
		r.coll = nil
	}
	r.setMode(ModeLocal, nil)
	r.notifier.Errorf("Lost connection to the database. Switching to local mode.")
}

// setMode records the mode and tells the listener about effective
// changes only. Callers hold r.mu.
func (r *Resolver) setMode(m Mode, coll remote.Collection) {
	if r.mode == m {
		return
	}
	r.mode = m
	if r.listener != nil {
		r.listener(m, coll)
	}
}
