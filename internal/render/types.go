// Package render turns one card job into print-ready image blobs. A worker
// resolves the source artwork through the image cache, applies the trim and
// bleed policy, and encodes an export-resolution PNG plus a display-scale
// preview.
package render

import (
	"fmt"

	"github.com/cardforge/cardforge/internal/units"
)

// BleedMode selects how a card's bleed border is produced.
type BleedMode int

const (
	// BleedGenerate synthesizes a fresh border from the card content.
	BleedGenerate BleedMode = iota
	// BleedUseExisting keeps the source's manufacturer-baked bleed.
	BleedUseExisting
	// BleedNone renders the content only, without any border.
	BleedNone
)

func (m BleedMode) String() string {
	switch m {
	case BleedGenerate:
		return "generate"
	case BleedUseExisting:
		return "use-existing"
	case BleedNone:
		return "none"
	default:
		return fmt.Sprintf("Unknown(%d)", int(m))
	}
}

// ParseBleedMode converts the wire form back to a BleedMode.
func ParseBleedMode(s string) (BleedMode, error) {
	switch s {
	case "generate", "":
		return BleedGenerate, nil
	case "use-existing":
		return BleedUseExisting, nil
	case "none":
		return BleedNone, nil
	default:
		return BleedGenerate, fmt.Errorf("unknown bleed mode %q", s)
	}
}

// CardImageJob describes one card to render. Jobs are immutable after
// creation and consumed exactly once.
type CardImageJob struct {
	ID              string
	SourceURL       string
	BleedMode       BleedMode
	BleedWidth      float64
	Unit            units.Unit
	TargetDPI       int
	HasBakedBleed   bool
	IsUserUpload    bool
	ExistingBleedMm float64
	DarkenNearBlack bool
}

// BleedWidthMm returns the requested bleed width in millimeters.
func (j CardImageJob) BleedWidthMm() float64 {
	return units.ToMm(j.BleedWidth, j.Unit)
}

// BleedResult is the output of one rendered card. The display blob is a
// pure downscale of the export blob, never a re-render.
type BleedResult struct {
	ExportBlob          []byte
	ExportDPI           int
	ExportBleedWidthMm  float64
	DisplayBlob         []byte
	DisplayDPI          int
	DisplayBleedWidthMm float64
	CacheHit            bool
}

// Matches reports whether a previously rendered result can be reused for
// the requested DPI and bleed width. Anything else must regenerate.
func (r *BleedResult) Matches(dpi int, bleedWidthMm float64) bool {
	return r != nil && r.ExportDPI == dpi && r.ExportBleedWidthMm == bleedWidthMm
}

// JobMessage is the closed message set crossing the worker pool boundary.
// Exactly three shapes exist: a request, a success and a failure.
type JobMessage interface {
	jobMessage()
}

// JobRequest submits one card job to a worker.
type JobRequest struct {
	Job CardImageJob
}

// JobSuccess carries a completed result back to the control path.
type JobSuccess struct {
	ID     string
	Result *BleedResult
}

// JobFailure carries a failed job's error back to the control path.
type JobFailure struct {
	ID    string
	Error string
}

func (JobRequest) jobMessage() {}
func (JobSuccess) jobMessage() {}
func (JobFailure) jobMessage() {}
