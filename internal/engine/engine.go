// Package engine provides the core business logic for appmigrate operations.
//
// The engine package acts as the orchestration layer between CLI commands and
// the pipeline stages. It drives the scanner, conflict detector and plan
// generator against one site's record store, and executes plans against it.
//
// Key components:
//   - Engine: Main orchestrator that coordinates all operations
//   - Scan/DetectConflicts: Read-only analysis of a site
//   - GeneratePlan: Deterministic migration planning
//   - ExecutePlan: Dry-run or transactional apply of a plan
package engine

import (
	"go.uber.org/zap"

	"github.com/danieljhkim/appmigrate/internal/catalog"
	"github.com/danieljhkim/appmigrate/internal/clock"
	"github.com/danieljhkim/appmigrate/internal/hash"
	"github.com/danieljhkim/appmigrate/internal/planner"
	"github.com/danieljhkim/appmigrate/internal/store"
)

// Options holds the tunables the engine applies when a request leaves them
// unset.
type Options struct {
	// SimilarityThreshold for naming-similarity conflicts.
	SimilarityThreshold float64

	// BatchSize recorded in data rules.
	BatchSize int

	// Policy resolves DocTypes owned by several source apps.
	Policy planner.Policy
}

// DefaultOptions returns the built-in defaults.
func DefaultOptions() Options {
	return Options{
		SimilarityThreshold: planner.DefaultSimilarityThreshold,
		BatchSize:           planner.DefaultBatchSize,
		Policy:              planner.PolicyFirstMatch,
	}
}

// Engine orchestrates all appmigrate operations against one site.
// It is the main API surface called by the CLI.
type Engine struct {
	client store.Client
	hasher hash.Hasher
	clock  clock.Clock
	logger *zap.Logger
	opts   Options
}

// New creates a new Engine with the given dependencies.
// The caller owns client and closes it when done.
func New(
	client store.Client,
	hasher hash.Hasher,
	clk clock.Clock,
	logger *zap.Logger,
	opts Options,
) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	defaults := DefaultOptions()
	if opts.SimilarityThreshold <= 0 {
		opts.SimilarityThreshold = defaults.SimilarityThreshold
	}
	if opts.BatchSize <= 0 {
		opts.BatchSize = defaults.BatchSize
	}
	if opts.Policy == "" {
		opts.Policy = defaults.Policy
	}
	return &Engine{
		client: client,
		hasher: hasher,
		clock:  clk,
		logger: logger,
		opts:   opts,
	}
}

func (e *Engine) scanner() *catalog.Scanner {
	return catalog.NewScanner(e.client, e.clock, e.logger)
}

func (e *Engine) detector(threshold float64) *planner.ConflictDetector {
	if threshold <= 0 {
		threshold = e.opts.SimilarityThreshold
	}
	return planner.NewConflictDetector(threshold, e.logger)
}

func (e *Engine) generator() *planner.Generator {
	return planner.NewGenerator(e.client, e.hasher, e.clock, e.logger)
}
