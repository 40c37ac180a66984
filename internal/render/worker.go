package render

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/png"
	"math"
	"net/url"
	"os"

	_ "image/jpeg"

	_ "golang.org/x/image/webp"

	"github.com/cardforge/cardforge/internal/bleed"
	"github.com/cardforge/cardforge/internal/constants"
	"github.com/cardforge/cardforge/internal/pool"
	"github.com/cardforge/cardforge/internal/units"
)

// Resolver supplies artwork bytes for a source URL. Satisfied by
// imagecache.Cache.
type Resolver interface {
	ResolveInfo(ctx context.Context, url string) ([]byte, bool, error)
}

// Worker renders card jobs. Safe for concurrent use; all mutable pixel
// state is per-call.
type Worker struct {
	cache      Resolver
	gen        *bleed.Generator
	displayDPI int
}

// NewWorker creates a worker over the given cache and bleed generator.
func NewWorker(cache Resolver, gen *bleed.Generator) *Worker {
	return &Worker{
		cache:      cache,
		gen:        gen,
		displayDPI: constants.DefaultDisplayDPI,
	}
}

// Process renders one card: resolve, decode, apply the trim and bleed
// policy, then encode the export PNG and its display downscale.
func (w *Worker) Process(ctx context.Context, job CardImageJob) (*BleedResult, error) {
	if job.TargetDPI <= 0 {
		return nil, fmt.Errorf("job %s: invalid target DPI %d", job.ID, job.TargetDPI)
	}

	blob, cacheHit, err := w.load(ctx, job)
	if err != nil {
		return nil, fmt.Errorf("job %s: resolve source: %w", job.ID, err)
	}

	decoded, _, err := image.Decode(bytes.NewReader(blob))
	if err != nil {
		return nil, fmt.Errorf("job %s: decode source: %w", job.ID, err)
	}
	src := bleed.ToNRGBA(decoded)

	canvas, exportMm, err := w.applyBleedPolicy(src, job)
	if err != nil {
		return nil, fmt.Errorf("job %s: %w", job.ID, err)
	}

	exportBlob, err := encodePNG(canvas)
	if err != nil {
		return nil, fmt.Errorf("job %s: encode export: %w", job.ID, err)
	}
	displayBlob, err := encodePNG(bleed.Downscale(canvas, job.TargetDPI, w.displayDPI))
	if err != nil {
		return nil, fmt.Errorf("job %s: encode display: %w", job.ID, err)
	}

	return &BleedResult{
		ExportBlob:          exportBlob,
		ExportDPI:           job.TargetDPI,
		ExportBleedWidthMm:  exportMm,
		DisplayBlob:         displayBlob,
		DisplayDPI:          w.displayDPI,
		DisplayBleedWidthMm: exportMm,
		CacheHit:            cacheHit,
	}, nil
}

// load fetches the source bytes. User uploads referenced by plain file
// paths are read directly; everything else goes through the cache.
func (w *Worker) load(ctx context.Context, job CardImageJob) ([]byte, bool, error) {
	if job.IsUserUpload && isFilePath(job.SourceURL) {
		blob, err := os.ReadFile(job.SourceURL)
		if err != nil {
			return nil, false, fmt.Errorf("read upload: %w", err)
		}
		return blob, false, nil
	}
	return w.cache.ResolveInfo(ctx, job.SourceURL)
}

// applyBleedPolicy turns the decoded source into the export canvas and
// reports the effective bleed width baked into it.
func (w *Worker) applyBleedPolicy(src *image.NRGBA, job CardImageJob) (*image.NRGBA, float64, error) {
	targetMm := job.BleedWidthMm()

	switch job.BleedMode {
	case BleedNone:
		if job.HasBakedBleed {
			src = bleed.TrimBaked(src)
		}
		canvas, err := w.gen.Generate(src, bleed.Options{WidthMm: 0, DPI: job.TargetDPI})
		return canvas, 0, err

	case BleedUseExisting:
		// Baked-bleed sources arrive at whatever resolution the print
		// service exported, so the trim happens in source pixel space.
		trimmed, sufficed := bleed.TrimToWidth(src, job.ExistingBleedMm, targetMm, sourceDPI(src, job))
		if sufficed {
			// The baked bleed covered the target; resample the kept
			// pixels onto the target-resolution canvas.
			cw, ch := units.ContentSizePx(job.TargetDPI)
			total := units.PxMm(targetMm, job.TargetDPI)
			return bleed.FitToCanvas(trimmed, cw+total, ch+total), targetMm, nil
		}
		src = trimmed
		if job.ExistingBleedMm <= 0 && job.HasBakedBleed {
			// Baked bleed of unknown width: fall back to the calibrated
			// trim table before regenerating.
			src = bleed.TrimBaked(src)
		}
		canvas, err := w.generate(src, job, targetMm)
		return canvas, targetMm, err

	case BleedGenerate:
		if job.HasBakedBleed {
			if job.ExistingBleedMm > 0 {
				src, _ = bleed.TrimToWidth(src, job.ExistingBleedMm, 0, sourceDPI(src, job))
			} else {
				src = bleed.TrimBaked(src)
			}
		}
		canvas, err := w.generate(src, job, targetMm)
		return canvas, targetMm, err

	default:
		return nil, 0, fmt.Errorf("unknown bleed mode %v", job.BleedMode)
	}
}

// sourceDPI estimates a baked-bleed source's effective resolution from its
// pixel height and known physical height (card content plus the baked
// growth). Without a known baked width the target DPI is assumed.
func sourceDPI(src *image.NRGBA, job CardImageJob) int {
	if job.ExistingBleedMm <= 0 {
		return job.TargetDPI
	}
	heightMm := units.CardHeightMm + job.ExistingBleedMm
	dpi := int(math.Round(float64(src.Bounds().Dy()) / heightMm * units.MmPerInch))
	if dpi < 1 {
		return job.TargetDPI
	}
	return dpi
}

func (w *Worker) generate(src *image.NRGBA, job CardImageJob, widthMm float64) (*image.NRGBA, error) {
	return w.gen.Generate(src, bleed.Options{
		WidthMm:         widthMm,
		DPI:             job.TargetDPI,
		DarkenNearBlack: job.DarkenNearBlack,
	})
}

// Task adapts a job for pool submission. The result value is the
// *BleedResult.
func (w *Worker) Task(job CardImageJob) pool.Task {
	return func(ctx context.Context) (any, error) {
		return w.Process(ctx, job)
	}
}

// HandleRequest executes a request and wraps the outcome in the closed
// message set crossing the pool boundary.
func (w *Worker) HandleRequest(ctx context.Context, req JobRequest) JobMessage {
	result, err := w.Process(ctx, req.Job)
	if err != nil {
		return JobFailure{ID: req.Job.ID, Error: err.Error()}
	}
	return JobSuccess{ID: req.Job.ID, Result: result}
}

// isFilePath reports whether s looks like a local path rather than a URL.
func isFilePath(s string) bool {
	u, err := url.Parse(s)
	return err != nil || u.Scheme == ""
}

func encodePNG(img *image.NRGBA) ([]byte, error) {
	var buf bytes.Buffer
	enc := png.Encoder{CompressionLevel: png.DefaultCompression}
	if err := enc.Encode(&buf, img); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
