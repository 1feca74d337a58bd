// Package store persists ingestion metadata and compose runs.
package store

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
)

// ErrNotFound is returned when a looked-up run does not exist.
var ErrNotFound = eris.New("store: not found")

// RunStatus is the state of a compose run.
type RunStatus string

const (
	RunStatusRunning  RunStatus = "running"
	RunStatusComplete RunStatus = "complete"
	RunStatusFailed   RunStatus = "failed"
)

// Metadata is the generated shallow description of a piece of content.
type Metadata struct {
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Keypoints   []string `json:"keypoints"`
}

// CachedMetadata is a metadata cache entry, keyed by content hash and file path.
type CachedMetadata struct {
	Hash      string    `json:"hash"`
	Path      string    `json:"path"`
	Generator string    `json:"generator"`
	Metadata  Metadata  `json:"metadata"`
	CreatedAt time.Time `json:"created_at"`
}

// RunParams are the inputs a compose run was started with.
type RunParams struct {
	Threshold float64 `json:"threshold"`
	Density   float64 `json:"density"`
	Deep      bool    `json:"deep"`
	Raw       bool    `json:"raw"`
}

// RunResult is the outcome of a finished run.
type RunResult struct {
	Candidates         int     `json:"candidates"`
	Admitted           int     `json:"admitted"`
	EffectiveThreshold float64 `json:"effective_threshold"`
	OutputPath         string  `json:"output_path,omitempty"`
	TotalTokens        int     `json:"total_tokens"`
	TotalCost          float64 `json:"total_cost"`
	Error              string  `json:"error,omitempty"`
}

// Run is one recorded compose invocation.
type Run struct {
	ID        string     `json:"id"`
	Task      string     `json:"task"`
	Status    RunStatus  `json:"status"`
	Params    RunParams  `json:"params"`
	Result    *RunResult `json:"result,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}

// RunFilter specifies criteria for listing runs.
type RunFilter struct {
	Status       RunStatus `json:"status,omitempty"`
	CreatedAfter time.Time `json:"created_after,omitempty"`
	Limit        int       `json:"limit,omitempty"`
	Offset       int       `json:"offset,omitempty"`
}

// Store defines the persistence interface for contextrie.
type Store interface {
	// Metadata cache. GetMetadata returns nil, nil on a miss.
	GetMetadata(ctx context.Context, hash, path string) (*CachedMetadata, error)
	PutMetadata(ctx context.Context, entry CachedMetadata) error
	DeleteMetadataBefore(ctx context.Context, cutoff time.Time) (int, error)

	// Runs
	CreateRun(ctx context.Context, task string, params RunParams) (*Run, error)
	CompleteRun(ctx context.Context, runID string, result *RunResult) error
	FailRun(ctx context.Context, runID string, cause error) error
	GetRun(ctx context.Context, runID string) (*Run, error)
	ListRuns(ctx context.Context, filter RunFilter) ([]Run, error)

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}
