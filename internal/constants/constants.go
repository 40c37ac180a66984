// Package constants provides shared constants used across the codebase.
// Centralizing these values ensures consistency and makes them easier to modify.
package constants

import "time"

// Worker pool constants
const (
	// MaxWorkersCap is the hard upper bound on parallel pixel workers,
	// regardless of available hardware parallelism
	MaxWorkersCap = 18

	// WorkerIdleTimeout is how long an idle worker is kept alive before
	// being terminated
	WorkerIdleTimeout = 20 * time.Second
)

// Image cache constants
const (
	// CacheTTL is how long a cached artwork blob stays fresh
	CacheTTL = 7 * 24 * time.Hour

	// InflightGrace is how long a completed in-flight fetch entry lingers
	// so near-simultaneous late joiners can attach to it
	InflightGrace = 100 * time.Millisecond

	// FetchMaxAttempts is the total number of fetch attempts for transient failures
	FetchMaxAttempts = 4

	// FetchBaseDelay is the initial retry backoff delay, doubled each attempt
	FetchBaseDelay = 250 * time.Millisecond
)

// Bleed generation constants
const (
	// SeedAlphaThreshold marks a pixel as a flood-fill seed (near-opaque)
	SeedAlphaThreshold = 250

	// FillAlphaThreshold marks a pixel as needing flood-fill recoloring
	FillAlphaThreshold = 250

	// NearBlackThreshold is the per-channel cutoff for seam darkening
	NearBlackThreshold = 30
)

// Page compositing constants
const (
	// PrepareConcurrency bounds simultaneous card bitmap decodes during
	// page compositing, independent of the network-layer worker pool
	PrepareConcurrency = 4
)

// Rendering constants
const (
	// DefaultExportDPI is the print resolution for exported card images
	DefaultExportDPI = 300

	// DefaultDisplayDPI is the on-screen preview resolution
	DefaultDisplayDPI = 150
)

// Web constants
const (
	// EventChannelBuffer is the buffer size for job event listener channels
	EventChannelBuffer = 100
)
