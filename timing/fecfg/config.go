// Package fecfg holds the fetch stage's configuration, following the same
// JSON-file load/save/validate shape timing/latency uses for instruction
// latencies.
package fecfg

import (
	"encoding/json"
	"fmt"
	"os"
)

// FetchPolicy selects the SMT arbiter policy.
type FetchPolicy string

// Arbiter policies. Branch is accepted as configuration but is fatal if
// ever selected by the arbiter, matching the spec's "unimplemented" note.
const (
	PolicyRoundRobin FetchPolicy = "RoundRobin"
	PolicyIQCount    FetchPolicy = "IQCount"
	PolicyLSQCount   FetchPolicy = "LSQCount"
	PolicyBranch     FetchPolicy = "Branch"
)

// Config holds every configurable option the fetch stage's external
// interface names.
type Config struct {
	FetchWidth      int `json:"fetch_width"`
	DecodeWidth     int `json:"decode_width"`
	FetchBufferSize int `json:"fetch_buffer_size"`
	FetchQueueSize  int `json:"fetch_queue_size"`

	NumThreads            int         `json:"num_threads"`
	SMTNumFetchingThreads int         `json:"smt_num_fetching_threads"`
	SMTFetchPolicy        FetchPolicy `json:"smt_fetch_policy"`

	DecoupledFrontEnd bool `json:"decoupled_front_end"`

	MaxOutstandingPrefetches   int `json:"max_outstanding_prefetches"`
	MaxOutstandingTranslations int `json:"max_outstanding_translations"`

	// Delay distances in cycles from each downstream stage's signals back
	// to the fetch stage.
	DecodeToFetchDelay int `json:"decode_to_fetch_delay"`
	RenameToFetchDelay int `json:"rename_to_fetch_delay"`
	IEWToFetchDelay    int `json:"iew_to_fetch_delay"`
	CommitToFetchDelay int `json:"commit_to_fetch_delay"`

	CacheBlockSize int `json:"cache_block_size"`

	// MaxThreads bounds NumThreads; a construction-time violation of this
	// bound is fatal, per the error-handling design.
	MaxThreads int `json:"max_threads"`

	// PhysMemSize bounds the system's physical address space. A cache
	// access whose physical address (plus its size) falls outside
	// [0, PhysMemSize) is not a memory address; the fetch stage reports
	// NoGoodAddr and drops the request rather than issuing it.
	PhysMemSize uint64 `json:"phys_mem_size"`
}

// DefaultConfig returns a single-thread, non-decoupled configuration
// sized for a 64-byte cache block and a 16-byte fetch buffer.
func DefaultConfig() *Config {
	return &Config{
		FetchWidth:                 4,
		DecodeWidth:                4,
		FetchBufferSize:            16,
		FetchQueueSize:             16,
		NumThreads:                 1,
		SMTNumFetchingThreads:      1,
		SMTFetchPolicy:             PolicyRoundRobin,
		DecoupledFrontEnd:          false,
		MaxOutstandingPrefetches:   2,
		MaxOutstandingTranslations: 2,
		DecodeToFetchDelay:         1,
		RenameToFetchDelay:         1,
		IEWToFetchDelay:            1,
		CommitToFetchDelay:         1,
		CacheBlockSize:             64,
		MaxThreads:                 8,
		PhysMemSize:                1 << 32,
	}
}

// Load reads a Config from a JSON file, starting from DefaultConfig so an
// incomplete file only overrides the fields it names.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read fetch-stage config file: %w", err)
	}

	config := DefaultConfig()
	if err := json.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse fetch-stage config: %w", err)
	}
	return config, nil
}

// Save writes a Config to a JSON file.
func (c *Config) Save(path string) error {
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to serialize fetch-stage config: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write fetch-stage config file: %w", err)
	}
	return nil
}

// Validate checks the configuration-violation conditions named in the
// error-handling design: these are fatal at construction, never recovered
// from at runtime.
func (c *Config) Validate() error {
	if c.NumThreads <= 0 {
		return fmt.Errorf("num_threads must be > 0")
	}
	if c.NumThreads > c.MaxThreads {
		return fmt.Errorf("num_threads (%d) exceeds max_threads (%d)", c.NumThreads, c.MaxThreads)
	}
	if c.FetchBufferSize <= 0 || c.CacheBlockSize <= 0 {
		return fmt.Errorf("fetch_buffer_size and cache_block_size must be > 0")
	}
	if c.FetchBufferSize > c.CacheBlockSize {
		return fmt.Errorf("fetch_buffer_size (%d) exceeds cache_block_size (%d)", c.FetchBufferSize, c.CacheBlockSize)
	}
	if c.CacheBlockSize%c.FetchBufferSize != 0 {
		return fmt.Errorf("fetch_buffer_size (%d) must divide cache_block_size (%d)", c.FetchBufferSize, c.CacheBlockSize)
	}
	if c.FetchWidth <= 0 || c.DecodeWidth <= 0 {
		return fmt.Errorf("fetch_width and decode_width must be > 0")
	}
	if c.FetchQueueSize <= 0 {
		return fmt.Errorf("fetch_queue_size must be > 0")
	}
	if c.SMTNumFetchingThreads <= 0 || c.SMTNumFetchingThreads > c.NumThreads {
		return fmt.Errorf("smt_num_fetching_threads must be in [1, num_threads]")
	}
	switch c.SMTFetchPolicy {
	case PolicyRoundRobin, PolicyIQCount, PolicyLSQCount, PolicyBranch:
	default:
		return fmt.Errorf("unknown smt_fetch_policy %q", c.SMTFetchPolicy)
	}
	if c.MaxOutstandingPrefetches < 0 || c.MaxOutstandingTranslations < 0 {
		return fmt.Errorf("max_outstanding_prefetches and max_outstanding_translations must be >= 0")
	}
	if c.PhysMemSize == 0 {
		return fmt.Errorf("phys_mem_size must be > 0")
	}
	return nil
}

// Clone returns a deep copy of the Config.
func (c *Config) Clone() *Config {
	clone := *c
	return &clone
}
