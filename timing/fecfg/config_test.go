package fecfg

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefaultConfigValidates(t *testing.T) {
	if err := DefaultConfig().Validate(); err != nil {
		t.Fatalf("DefaultConfig() should validate, got %v", err)
	}
}

func TestValidateRejections(t *testing.T) {
	base := func() *Config { return DefaultConfig() }

	cases := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"zero threads", func(c *Config) { c.NumThreads = 0 }, true},
		{"threads over max", func(c *Config) { c.NumThreads = c.MaxThreads + 1 }, true},
		{"zero fetch buffer", func(c *Config) { c.FetchBufferSize = 0 }, true},
		{"fetch buffer bigger than block", func(c *Config) { c.FetchBufferSize = c.CacheBlockSize + 1 }, true},
		{"fetch buffer does not divide block", func(c *Config) { c.FetchBufferSize = 9; c.CacheBlockSize = 64 }, true},
		{"zero fetch width", func(c *Config) { c.FetchWidth = 0 }, true},
		{"zero fetch queue size", func(c *Config) { c.FetchQueueSize = 0 }, true},
		{"smt threads over num threads", func(c *Config) { c.SMTNumFetchingThreads = c.NumThreads + 1 }, true},
		{"unknown policy", func(c *Config) { c.SMTFetchPolicy = "Nonsense" }, true},
		{"negative outstanding prefetches", func(c *Config) { c.MaxOutstandingPrefetches = -1 }, true},
		{"untouched default", func(c *Config) {}, false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := base()
			tc.mutate(cfg)
			err := cfg.Validate()
			if tc.wantErr && err == nil {
				t.Fatalf("expected an error, got nil")
			}
			if !tc.wantErr && err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
		})
	}
}

func TestSaveThenLoadRoundTrips(t *testing.T) {
	cfg := DefaultConfig()
	cfg.NumThreads = 4
	cfg.SMTNumFetchingThreads = 2
	cfg.SMTFetchPolicy = PolicyIQCount

	path := filepath.Join(t.TempDir(), "fecfg.json")
	if err := cfg.Save(path); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if loaded.NumThreads != 4 || loaded.SMTNumFetchingThreads != 2 || loaded.SMTFetchPolicy != PolicyIQCount {
		t.Fatalf("round trip mismatch: %+v", loaded)
	}
}

func TestLoadOverlaysOntoDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "partial.json")
	if err := os.WriteFile(path, []byte(`{"num_threads": 2}`), 0644); err != nil {
		t.Fatalf("failed to write fixture: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.NumThreads != 2 {
		t.Fatalf("expected overlaid num_threads=2, got %d", cfg.NumThreads)
	}
	if cfg.FetchWidth != DefaultConfig().FetchWidth {
		t.Fatalf("expected untouched fields to keep their default, got FetchWidth=%d", cfg.FetchWidth)
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "missing.json")); err == nil {
		t.Fatalf("expected an error for a missing config file")
	}
}

func TestCloneIsIndependent(t *testing.T) {
	cfg := DefaultConfig()
	clone := cfg.Clone()
	clone.NumThreads = 99

	if cfg.NumThreads == 99 {
		t.Fatalf("mutating the clone should not affect the original")
	}
}
