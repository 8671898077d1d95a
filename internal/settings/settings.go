package settings

import (
	"errors"
	"io/fs"
	"sync"

	"github.com/spf13/viper"

	"festreg/internal/connect"
)

const (
	keySheetURL = "sheet_url"
	keyOverride = "firebase_config_override"
)

// Store holds the operator state that survives restarts: the
// spreadsheet endpoint URL and an optional remote-config override.
// Reads come from memory; every change is written through to the
// settings file.
type Store struct {
	mu   sync.Mutex
	v    *viper.Viper
	path string
}

// Open reads the settings file if it exists; a missing file just means
// first run.
func Open(path string) (*Store, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("json")
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !errors.Is(err, fs.ErrNotExist) {
			return nil, err
		}
	}
	return &Store{v: v, path: path}, nil
}

func (s *Store) SheetURL() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.v.GetString(keySheetURL)
}

func (s *Store) SetSheetURL(u string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.v.Set(keySheetURL, u)
	return s.v.WriteConfigAs(s.path)
}

// ConfigOverride returns the persisted remote config, if the operator
// saved one.
func (s *Store) ConfigOverride() (connect.Config, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.v.IsSet(keyOverride) {
		return connect.Config{}, false
	}
	var cfg connect.Config
	if err := s.v.UnmarshalKey(keyOverride, &cfg); err != nil {
		return connect.Config{}, false
	}
	return cfg, cfg.APIKey != ""
}

func (s *Store) SetConfigOverride(cfg connect.Config) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.v.Set(keyOverride, map[string]string{
		"apiKey":     cfg.APIKey,
		"projectId":  cfg.ProjectID,
		"authDomain": cfg.AuthDomain,
		"appId":      cfg.AppID,
	})
	return s.v.WriteConfigAs(s.path)
}
