package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"image"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/cardforge/cardforge/internal/config"
	"github.com/cardforge/cardforge/internal/page"
)

// fakeComposer renders a tiny canvas and fires the progress callback once
// per non-blank card.
type fakeComposer struct {
	err error
}

func (f *fakeComposer) ComposePage(_ context.Context, cards []page.Card, _ page.Config, onProgress page.Progress) (*image.NRGBA, error) {
	if f.err != nil {
		return nil, f.err
	}
	n := 0
	for _, c := range cards {
		if c.Blank {
			continue
		}
		n++
		if onProgress != nil {
			onProgress(n)
		}
	}
	return image.NewNRGBA(image.Rect(0, 0, 10, 10)), nil
}

func newTestRouter(composer PageComposer) (*chi.Mux, *JobManager) {
	jobs := NewJobManager()
	h := NewRenderHandler(config.Load(), composer, jobs)

	r := chi.NewRouter()
	r.Post("/api/render", h.Submit)
	r.Get("/api/jobs/{jobId}", h.Status)
	r.Get("/api/jobs/{jobId}/pages/{n}.png", h.PagePNG)
	r.Delete("/api/jobs/{jobId}", h.Cancel)
	return r, jobs
}

func submitJob(t *testing.T, r *chi.Mux, body string) JobView {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/api/render", bytes.NewReader([]byte(body)))
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusAccepted {
		t.Fatalf("submit status = %d, body %s", rec.Code, rec.Body.String())
	}
	var job JobView
	if err := json.Unmarshal(rec.Body.Bytes(), &job); err != nil {
		t.Fatalf("parse submit response: %v", err)
	}
	return job
}

func waitForTerminal(t *testing.T, jobs *JobManager, id string) *RenderJob {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		job := jobs.GetJob(id)
		if job != nil && isJobTerminal(job.GetStatus()) {
			return job
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("job did not reach a terminal state")
	return nil
}

func TestSubmit_RendersAllPages(t *testing.T) {
	r, jobs := newTestRouter(&fakeComposer{})

	// 10 cards on a 3x3 letter page means 2 pages.
	body := `{"cards": [
		{"source_url":"u"},{"source_url":"u"},{"source_url":"u"},
		{"source_url":"u"},{"source_url":"u"},{"source_url":"u"},
		{"source_url":"u"},{"source_url":"u"},{"source_url":"u"},
		{"source_url":"u"}
	], "page": {"preset": "letter"}}`
	accepted := submitJob(t, r, body)
	if accepted.TotalCards != 10 || accepted.TotalPages != 2 {
		t.Errorf("accepted = %d cards / %d pages, want 10/2", accepted.TotalCards, accepted.TotalPages)
	}

	job := waitForTerminal(t, jobs, accepted.ID)
	snap := job.Snapshot()
	if snap.Status != JobStatusCompleted {
		t.Fatalf("status = %s (%s), want completed", snap.Status, snap.Error)
	}
	if snap.RenderedPages != 2 || snap.ProcessedCards != 10 {
		t.Errorf("rendered %d pages, processed %d cards; want 2 and 10", snap.RenderedPages, snap.ProcessedCards)
	}

	// Page retrieval serves the raster.
	req := httptest.NewRequest(http.MethodGet, "/api/jobs/"+accepted.ID+"/pages/0.png", nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("page fetch status = %d", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "image/png" {
		t.Errorf("content type = %q", ct)
	}
	if !bytes.HasPrefix(rec.Body.Bytes(), []byte("\x89PNG")) {
		t.Error("page body is not a PNG")
	}

	// Out-of-range page is a 404.
	req = httptest.NewRequest(http.MethodGet, "/api/jobs/"+accepted.ID+"/pages/7.png", nil)
	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	if rec.Code != http.StatusNotFound {
		t.Errorf("out-of-range page status = %d, want 404", rec.Code)
	}
}

func TestSubmit_ComposerFailureFailsJob(t *testing.T) {
	r, jobs := newTestRouter(&fakeComposer{err: errors.New("boom")})

	accepted := submitJob(t, r, `{"cards":[{"source_url":"u"}],"page":{}}`)
	job := waitForTerminal(t, jobs, accepted.ID)

	snap := job.Snapshot()
	if snap.Status != JobStatusFailed || snap.Error == "" {
		t.Errorf("status = %s error = %q, want failed with message", snap.Status, snap.Error)
	}
}

func TestSubmit_ValidatesRequest(t *testing.T) {
	r, _ := newTestRouter(&fakeComposer{})

	cases := []struct {
		name string
		body string
	}{
		{"no cards", `{"cards":[],"page":{}}`},
		{"missing source", `{"cards":[{"bleed_mode":"generate"}],"page":{}}`},
		{"bad bleed mode", `{"cards":[{"source_url":"u","bleed_mode":"banana"}],"page":{}}`},
		{"bad dpi", `{"cards":[{"source_url":"u"}],"page":{"dpi":20000}}`},
		{"not json", `{{{`},
	}
	for _, c := range cases {
		req := httptest.NewRequest(http.MethodPost, "/api/render", bytes.NewReader([]byte(c.body)))
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, req)
		if rec.Code != http.StatusBadRequest {
			t.Errorf("%s: status = %d, want 400", c.name, rec.Code)
		}
	}
}

func TestStatus_UnknownJob(t *testing.T) {
	r, _ := newTestRouter(&fakeComposer{})

	req := httptest.NewRequest(http.MethodGet, "/api/jobs/nope", nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rec.Code)
	}
}

func TestCancel_MarksJobCancelled(t *testing.T) {
	r, jobs := newTestRouter(&fakeComposer{})

	accepted := submitJob(t, r, `{"cards":[{"source_url":"u"}],"page":{}}`)

	req := httptest.NewRequest(http.MethodDelete, "/api/jobs/"+accepted.ID, nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("cancel status = %d", rec.Code)
	}

	job := waitForTerminal(t, jobs, accepted.ID)
	// Completed is possible if the render won the race; cancelled must
	// stick when it landed first.
	if st := job.GetStatus(); st != JobStatusCancelled && st != JobStatusCompleted {
		t.Errorf("status after cancel = %s", st)
	}
}

func TestJobManager_Lifecycle(t *testing.T) {
	m := NewJobManager()

	job := m.CreateJob("j1", 9, 1)
	if got := m.GetJob("j1"); got != job {
		t.Fatal("GetJob did not return the created job")
	}
	if len(m.ListJobs()) != 1 {
		t.Errorf("ListJobs = %d entries, want 1", len(m.ListJobs()))
	}
	m.DeleteJob("j1")
	if m.GetJob("j1") != nil {
		t.Error("job still present after delete")
	}
}

func TestEventBroadcaster_DeliversToListeners(t *testing.T) {
	var b EventBroadcaster

	ch := b.AddListener()
	b.SendEvent(JobEvent{Type: "progress"})

	select {
	case ev := <-ch:
		if ev.Type != "progress" {
			t.Errorf("event type = %q", ev.Type)
		}
	default:
		t.Fatal("no event delivered")
	}

	b.RemoveListener(ch)
	if _, open := <-ch; open {
		t.Error("listener channel not closed on removal")
	}
}
