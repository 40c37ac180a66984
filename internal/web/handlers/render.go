package handlers

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"log"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/cardforge/cardforge/internal/config"
	"github.com/cardforge/cardforge/internal/page"
	"github.com/cardforge/cardforge/internal/render"
	"github.com/cardforge/cardforge/internal/units"
)

// PageComposer renders one page of cards. Satisfied by page.Compositor.
type PageComposer interface {
	ComposePage(ctx context.Context, cards []page.Card, cfg page.Config, onProgress page.Progress) (*image.NRGBA, error)
}

// RenderHandler handles render job submission and retrieval.
type RenderHandler struct {
	cfg      *config.Config
	composer PageComposer
	jobs     *JobManager
}

// NewRenderHandler creates a render handler.
func NewRenderHandler(cfg *config.Config, composer PageComposer, jobs *JobManager) *RenderHandler {
	return &RenderHandler{cfg: cfg, composer: composer, jobs: jobs}
}

// RenderRequest is the job submission payload.
type RenderRequest struct {
	Cards []CardRequest `json:"cards"`
	Page  PageRequest   `json:"page"`
}

// CardRequest describes one card slot.
type CardRequest struct {
	SourceURL       string  `json:"source_url"`
	BleedMode       string  `json:"bleed_mode,omitempty"`
	BleedWidthMm    float64 `json:"bleed_width_mm,omitempty"`
	HasBakedBleed   bool    `json:"has_baked_bleed,omitempty"`
	ExistingBleedMm float64 `json:"existing_bleed_mm,omitempty"`
	DarkenNearBlack bool    `json:"darken_near_black,omitempty"`
	Blank           bool    `json:"blank,omitempty"`
}

// PageRequest configures the page geometry and decoration.
type PageRequest struct {
	Preset         string  `json:"preset,omitempty"`
	DPI            int     `json:"dpi,omitempty"`
	BleedMm        float64 `json:"bleed_mm,omitempty"`
	SpacingMm      float64 `json:"spacing_mm,omitempty"`
	GuideStyle     string  `json:"guide_style,omitempty"`
	GuidePlacement string  `json:"guide_placement,omitempty"`
	PageLines      string  `json:"page_lines,omitempty"`
	Registration   string  `json:"registration,omitempty"`
}

// Submit handles POST /api/render: validates the request, creates the job
// and starts rendering in the background.
func (h *RenderHandler) Submit(w http.ResponseWriter, r *http.Request) {
	var req RenderRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, errInvalidRequestBody)
		return
	}
	if len(req.Cards) == 0 {
		respondError(w, http.StatusBadRequest, "no cards in request")
		return
	}
	cards, err := buildCards(req.Cards)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	pageCfg, perPage, err := h.pageConfig(req.Page)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	totalPages := (len(cards) + perPage - 1) / perPage

	jobID := uuid.New().String()
	job := h.jobs.CreateJob(jobID, len(cards), totalPages)

	ctx, cancel := context.WithCancel(context.Background())
	job.cancel = cancel
	go h.run(ctx, job, cards, pageCfg, perPage)

	log.Printf("render job %s accepted: %d cards, %d pages", jobID, len(cards), totalPages)
	respondJSON(w, http.StatusAccepted, job.Snapshot())
}

// Status handles GET /api/jobs/{jobId}.
func (h *RenderHandler) Status(w http.ResponseWriter, r *http.Request) {
	job := h.jobs.GetJob(chi.URLParam(r, "jobId"))
	if job == nil {
		respondError(w, http.StatusNotFound, "job not found")
		return
	}
	respondJSON(w, http.StatusOK, job.Snapshot())
}

// Events handles GET /api/jobs/{jobId}/events (SSE stream).
func (h *RenderHandler) Events(w http.ResponseWriter, r *http.Request) {
	streamSSEEvents(w, r,
		func(id string) SSEJob {
			if job := h.jobs.GetJob(id); job != nil {
				return job
			}
			return nil
		},
		func(j SSEJob) any {
			return j.(*RenderJob).Snapshot()
		},
	)
}

// PagePNG handles GET /api/jobs/{jobId}/pages/{n}.png.
func (h *RenderHandler) PagePNG(w http.ResponseWriter, r *http.Request) {
	job := h.jobs.GetJob(chi.URLParam(r, "jobId"))
	if job == nil {
		respondError(w, http.StatusNotFound, "job not found")
		return
	}

	raw := strings.TrimSuffix(chi.URLParam(r, "n"), ".png")
	n, err := strconv.Atoi(raw)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid page number")
		return
	}
	blob, ok := job.Page(n)
	if !ok {
		respondError(w, http.StatusNotFound, "page not rendered")
		return
	}

	w.Header().Set("Content-Type", "image/png")
	w.WriteHeader(http.StatusOK)
	w.Write(blob)
}

// Cancel handles DELETE /api/jobs/{jobId}.
func (h *RenderHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	job := h.jobs.GetJob(chi.URLParam(r, "jobId"))
	if job == nil {
		respondError(w, http.StatusNotFound, "job not found")
		return
	}
	job.Cancel()
	log.Printf("render job %s cancelled", sanitizeForLog(job.ID))
	respondJSON(w, http.StatusOK, job.Snapshot())
}

// run renders all pages of a job sequentially, streaming progress events.
func (h *RenderHandler) run(ctx context.Context, job *RenderJob, cards []page.Card, cfg page.Config, perPage int) {
	job.setRunning()

	for start := 0; start < len(cards); start += perPage {
		end := min(start+perPage, len(cards))

		canvas, err := h.composer.ComposePage(ctx, cards[start:end], cfg, func(int) {
			job.cardPrepared()
		})
		if err != nil {
			job.complete(fmt.Errorf("page %d: %w", start/perPage+1, err))
			return
		}

		var buf bytes.Buffer
		if err := png.Encode(&buf, canvas); err != nil {
			job.complete(fmt.Errorf("encode page %d: %w", start/perPage+1, err))
			return
		}
		job.addPage(buf.Bytes())
	}
	job.complete(nil)
}

// pageConfig translates the request into a page.Config plus cards-per-page.
func (h *RenderHandler) pageConfig(req PageRequest) (page.Config, int, error) {
	preset := h.cfg.PagePreset(req.Preset)
	defaults := h.cfg.Presets.Defaults

	dpi := req.DPI
	if dpi == 0 {
		dpi = h.cfg.Render.DPI
	}
	if dpi < 72 || dpi > 1200 {
		return page.Config{}, 0, fmt.Errorf("dpi %d out of range", dpi)
	}

	bleedMm := req.BleedMm
	if bleedMm == 0 {
		bleedMm = defaults.BleedMm
	}
	guideStyle := req.GuideStyle
	if guideStyle == "" {
		guideStyle = defaults.GuideStyle
	}
	guidePlacement := req.GuidePlacement
	if guidePlacement == "" {
		guidePlacement = defaults.GuidePlacement
	}

	cfg := page.Config{
		Columns:      preset.Columns,
		Rows:         preset.Rows,
		DPI:          dpi,
		PageWidthMm:  preset.WidthMm,
		PageHeightMm: preset.HeightMm,
		SpacingMm:    req.SpacingMm,
		BleedWidthMm: bleedMm,
		Guides: page.GuideSpec{
			Style:     page.GuideStyle(guideStyle),
			Placement: page.GuidePlacement(guidePlacement),
			WidthPx:   defaults.GuideWidthPx,
			Color:     color.NRGBA{0, 0, 0, 255},
		},
		PageLines:    page.PageLineMode(req.PageLines),
		Registration: page.ParseRegistrationMode(req.Registration),
	}
	return cfg, preset.Columns * preset.Rows, nil
}

// buildCards maps request entries to compositor cards.
func buildCards(reqs []CardRequest) ([]page.Card, error) {
	cards := make([]page.Card, 0, len(reqs))
	for i, c := range reqs {
		if c.Blank {
			cards = append(cards, page.Card{Blank: true})
			continue
		}
		if c.SourceURL == "" {
			return nil, fmt.Errorf("card %d: missing source_url", i)
		}
		mode, err := render.ParseBleedMode(c.BleedMode)
		if err != nil {
			return nil, fmt.Errorf("card %d: %w", i, err)
		}
		cards = append(cards, page.Card{Job: render.CardImageJob{
			ID:              fmt.Sprintf("card-%d", i),
			SourceURL:       c.SourceURL,
			BleedMode:       mode,
			BleedWidth:      c.BleedWidthMm,
			Unit:            units.Millimeter,
			HasBakedBleed:   c.HasBakedBleed,
			ExistingBleedMm: c.ExistingBleedMm,
			DarkenNearBlack: c.DarkenNearBlack,
		}})
	}
	return cards, nil
}
