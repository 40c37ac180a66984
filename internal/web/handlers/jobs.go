package handlers

import (
	"context"
	"sync"
	"time"

	"github.com/cardforge/cardforge/internal/constants"
)

// JobStatus represents the status of an async render job.
type JobStatus string

// JobStatus constants define the lifecycle states of an async job.
const (
	JobStatusPending   JobStatus = "pending"
	JobStatusRunning   JobStatus = "running"
	JobStatusCompleted JobStatus = "completed"
	JobStatusFailed    JobStatus = "failed"
	JobStatusCancelled JobStatus = "cancelled"
)

// RenderJob represents an async page render job.
type RenderJob struct {
	EventBroadcaster

	ID             string     `json:"id"`
	Status         JobStatus  `json:"status"`
	TotalCards     int        `json:"total_cards"`
	ProcessedCards int        `json:"processed_cards"`
	TotalPages     int        `json:"total_pages"`
	RenderedPages  int        `json:"rendered_pages"`
	Error          string     `json:"error,omitempty"`
	StartedAt      time.Time  `json:"started_at"`
	CompletedAt    *time.Time `json:"completed_at,omitempty"`

	pages [][]byte
}

// GetStatus returns the current job status (implements SSEJob).
func (j *RenderJob) GetStatus() JobStatus {
	j.mu.RLock()
	defer j.mu.RUnlock()
	return j.Status
}

// JobView is the public job state served in JSON responses.
type JobView struct {
	ID             string     `json:"id"`
	Status         JobStatus  `json:"status"`
	TotalCards     int        `json:"total_cards"`
	ProcessedCards int        `json:"processed_cards"`
	TotalPages     int        `json:"total_pages"`
	RenderedPages  int        `json:"rendered_pages"`
	Error          string     `json:"error,omitempty"`
	StartedAt      time.Time  `json:"started_at"`
	CompletedAt    *time.Time `json:"completed_at,omitempty"`
}

// Snapshot returns a copy of the job's public state for JSON responses.
func (j *RenderJob) Snapshot() JobView {
	j.mu.RLock()
	defer j.mu.RUnlock()
	return JobView{
		ID:             j.ID,
		Status:         j.Status,
		TotalCards:     j.TotalCards,
		ProcessedCards: j.ProcessedCards,
		TotalPages:     j.TotalPages,
		RenderedPages:  j.RenderedPages,
		Error:          j.Error,
		StartedAt:      j.StartedAt,
		CompletedAt:    j.CompletedAt,
	}
}

// setRunning transitions the job to running.
func (j *RenderJob) setRunning() {
	j.mu.Lock()
	j.Status = JobStatusRunning
	j.mu.Unlock()
}

// cardPrepared records one prepared card. The compositor fires its
// progress callback once per card, so a plain increment tracks the total.
func (j *RenderJob) cardPrepared() {
	j.mu.Lock()
	j.ProcessedCards++
	processed, total := j.ProcessedCards, j.TotalCards
	j.mu.Unlock()
	j.SendEvent(JobEvent{Type: "progress", Data: map[string]int{
		"processed_cards": processed,
		"total_cards":     total,
	}})
}

// addPage appends a finished page raster.
func (j *RenderJob) addPage(blob []byte) {
	j.mu.Lock()
	j.pages = append(j.pages, blob)
	j.RenderedPages = len(j.pages)
	rendered, total := j.RenderedPages, j.TotalPages
	j.mu.Unlock()
	j.SendEvent(JobEvent{Type: "page", Data: map[string]int{
		"rendered_pages": rendered,
		"total_pages":    total,
	}})
}

// complete transitions the job to its terminal state.
func (j *RenderJob) complete(err error) {
	now := time.Now()
	j.mu.Lock()
	if j.Status == JobStatusCancelled {
		j.mu.Unlock()
		return
	}
	if err != nil {
		j.Status = JobStatusFailed
		j.Error = err.Error()
	} else {
		j.Status = JobStatusCompleted
	}
	j.CompletedAt = &now
	status, msg := j.Status, j.Error
	j.mu.Unlock()

	if err != nil {
		j.SendEvent(JobEvent{Type: "error", Message: msg})
		return
	}
	j.SendEvent(JobEvent{Type: "result", Data: map[string]any{"status": status}})
}

// Page returns the rendered page raster at index n.
func (j *RenderJob) Page(n int) ([]byte, bool) {
	j.mu.RLock()
	defer j.mu.RUnlock()
	if n < 0 || n >= len(j.pages) {
		return nil, false
	}
	return j.pages[n], true
}

// Cancel cancels the render job.
func (j *RenderJob) Cancel() {
	j.EventBroadcaster.Cancel()
	j.mu.Lock()
	j.Status = JobStatusCancelled
	j.mu.Unlock()
}

// JobEvent represents an event from a job.
type JobEvent struct {
	Type    string `json:"type"`
	Message string `json:"message,omitempty"`
	Data    any    `json:"data,omitempty"`
}

// EventBroadcaster provides listener management and event broadcasting for async jobs.
// Embed this in job structs to get AddListener, RemoveListener, and SendEvent methods.
type EventBroadcaster struct {
	cancel    context.CancelFunc
	listeners []chan JobEvent
	mu        sync.RWMutex
}

// AddListener adds an event listener.
func (b *EventBroadcaster) AddListener() chan JobEvent {
	b.mu.Lock()
	defer b.mu.Unlock()
	ch := make(chan JobEvent, constants.EventChannelBuffer)
	b.listeners = append(b.listeners, ch)
	return ch
}

// RemoveListener removes an event listener.
func (b *EventBroadcaster) RemoveListener(ch chan JobEvent) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for i, listener := range b.listeners {
		if listener == ch {
			b.listeners = append(b.listeners[:i], b.listeners[i+1:]...)
			close(ch)
			return
		}
	}
}

// SendEvent sends an event to all listeners.
func (b *EventBroadcaster) SendEvent(event JobEvent) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	for _, listener := range b.listeners {
		select {
		case listener <- event:
		default:
			// Listener buffer full, skip.
		}
	}
}

// Cancel cancels the job via context and sends a cancelled event.
func (b *EventBroadcaster) Cancel() {
	if b.cancel != nil {
		b.cancel()
	}
	b.SendEvent(JobEvent{Type: "cancelled", Message: "Job cancelled by user"})
}

// SSEJob is the interface required by streamSSEEvents to stream job events via SSE.
type SSEJob interface {
	AddListener() chan JobEvent
	RemoveListener(ch chan JobEvent)
	GetStatus() JobStatus
}

// JobManager manages async render jobs.
type JobManager struct {
	jobs map[string]*RenderJob
	mu   sync.RWMutex
}

// NewJobManager creates a new job manager.
func NewJobManager() *JobManager {
	return &JobManager{
		jobs: make(map[string]*RenderJob),
	}
}

// CreateJob creates a new render job.
func (m *JobManager) CreateJob(id string, totalCards, totalPages int) *RenderJob {
	job := &RenderJob{
		ID:         id,
		Status:     JobStatusPending,
		TotalCards: totalCards,
		TotalPages: totalPages,
		StartedAt:  time.Now(),
	}

	m.mu.Lock()
	m.jobs[id] = job
	m.mu.Unlock()

	return job
}

// GetJob retrieves a job by ID.
func (m *JobManager) GetJob(id string) *RenderJob {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.jobs[id]
}

// DeleteJob removes a job.
func (m *JobManager) DeleteJob(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.jobs, id)
}

// ListJobs returns all jobs.
func (m *JobManager) ListJobs() []*RenderJob {
	m.mu.RLock()
	defer m.mu.RUnlock()
	jobs := make([]*RenderJob, 0, len(m.jobs))
	for _, job := range m.jobs {
		jobs = append(jobs, job)
	}
	return jobs
}
