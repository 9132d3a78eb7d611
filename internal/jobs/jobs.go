// Package jobs implements JobManager (spec §4.9): an in-memory job table
// mirrored to per-job JSON files, one goroutine per submitted job, progress
// tracking, cancellation, cleanup, and crash recovery on startup.
package jobs

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"graphrag/internal/apperr"
	"graphrag/internal/model"
)

// Task is the unit of work a submitted job runs. It receives a Handle to
// report progress and observe cancellation, and returns a result value or
// an error.
type Task func(ctx context.Context, h *Handle) (any, error)

// Handle is passed to a running Task so it can report progress without
// reaching back into the Manager's internals.
type Handle struct {
	manager *Manager
	jobID   string
	ctx     context.Context
}

// UpdateProgress atomically computes progress = processed/total*100 (0 when
// total is 0) and persists the job record (spec §4.9).
func (h *Handle) UpdateProgress(processed, total int) {
	h.manager.updateProgress(h.jobID, processed, total)
}

// Done reports whether the job's context has been cancelled.
func (h *Handle) Done() <-chan struct{} { return h.ctx.Done() }

// Filter narrows List results (spec §6's GET /jobs?status=&type=).
type Filter struct {
	Status    model.JobStatus
	JobType   model.JobType
	CreatedBy string
}

// Manager is the JobManager of spec §4.9: a mutex-guarded in-memory job
// table mirrored to <StateDir>/jobs/<job_id>.json.
type Manager struct {
	mu       sync.Mutex
	jobs     map[string]*model.Job
	StateDir string
	Log      *logrus.Logger
}

func New(stateDir string, log *logrus.Logger) *Manager {
	return &Manager{
		jobs:     make(map[string]*model.Job),
		StateDir: stateDir,
		Log:      log,
	}
}

func (m *Manager) jobsDir() string { return filepath.Join(m.StateDir, "jobs") }

// Recover loads every persisted job file on startup. Any job whose
// persisted status was running is transitioned to failed, since its worker
// is gone (spec §4.9's crash-recovery rule).
func (m *Manager) Recover() error {
	dir := m.jobsDir()
	entries, err := os.ReadDir(dir)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("jobs: read state dir: %w", err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".json" {
			continue
		}
		data, err := os.ReadFile(filepath.Join(dir, entry.Name()))
		if err != nil {
			m.warn("recover read", err)
			continue
		}
		var job model.Job
		if err := json.Unmarshal(data, &job); err != nil {
			m.warn("recover unmarshal", err)
			continue
		}
		if job.Status == model.JobStatusRunning {
			job.Status = model.JobStatusFailed
			job.Error = "Job failed due to server restart."
			completed := now()
			job.CompletedAt = &completed
		}
		jobCopy := job
		m.jobs[job.JobID] = &jobCopy
		if err := m.persistLocked(&jobCopy); err != nil {
			m.warn("recover persist", err)
		}
	}
	return nil
}

// Create mints a new queued job and persists it (spec §4.9).
func (m *Manager) Create(jobType model.JobType, params map[string]any, createdBy string) *model.Job {
	job := &model.Job{
		JobID:     "job-" + uuid.NewString(),
		JobType:   jobType,
		Params:    params,
		Status:    model.JobStatusQueued,
		CreatedAt: now(),
		CreatedBy: createdBy,
	}

	m.mu.Lock()
	m.jobs[job.JobID] = job
	if err := m.persistLocked(job); err != nil {
		m.warn("create persist", err)
	}
	m.mu.Unlock()

	clone := job.Clone()
	return &clone
}

// Submit launches a goroutine that runs task against job, transitioning
// queued -> running -> {completed, failed} (spec §4.9).
func (m *Manager) Submit(job *model.Job, task Task) {
	ctx, cancel := context.WithCancel(context.Background())

	m.mu.Lock()
	stored, ok := m.jobs[job.JobID]
	if !ok {
		m.mu.Unlock()
		cancel()
		return
	}
	stored.Status = model.JobStatusRunning
	started := now()
	stored.StartedAt = &started
	stored.SetCancelFunc(cancel)
	if err := m.persistLocked(stored); err != nil {
		m.warn("submit persist", err)
	}
	m.mu.Unlock()

	go m.run(ctx, job.JobID, task)
}

func (m *Manager) run(ctx context.Context, jobID string, task Task) {
	handle := &Handle{manager: m, jobID: jobID, ctx: ctx}
	result, err := task(ctx, handle)

	m.mu.Lock()
	defer m.mu.Unlock()
	job, ok := m.jobs[jobID]
	if !ok {
		return
	}
	// A cancellation already finalized the job; do not overwrite it.
	if job.Status == model.JobStatusCancelled {
		return
	}
	completed := now()
	job.CompletedAt = &completed
	if err != nil {
		job.Status = model.JobStatusFailed
		job.Error = err.Error()
	} else {
		job.Status = model.JobStatusCompleted
		job.Result = result
	}
	job.SetCancelFunc(nil)
	if perr := m.persistLocked(job); perr != nil {
		m.warn("run persist", perr)
	}
}

func (m *Manager) updateProgress(jobID string, processed, total int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	job, ok := m.jobs[jobID]
	if !ok {
		return
	}
	job.ProcessedItems = processed
	job.TotalItems = total
	if total == 0 {
		job.Progress = 0
	} else {
		job.Progress = float64(processed) / float64(total) * 100
	}
	if err := m.persistLocked(job); err != nil {
		m.warn("progress persist", err)
	}
}

// Get returns a copy of the job record, or apperr.NotFound.
func (m *Manager) Get(jobID string) (model.Job, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	job, ok := m.jobs[jobID]
	if !ok {
		return model.Job{}, apperr.New(apperr.NotFound, "job not found: "+jobID)
	}
	return job.Clone(), nil
}

// List returns copies of every job matching filter (empty fields match
// anything).
func (m *Manager) List(filter Filter) []model.Job {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]model.Job, 0, len(m.jobs))
	for _, job := range m.jobs {
		if filter.Status != "" && job.Status != filter.Status {
			continue
		}
		if filter.JobType != "" && job.JobType != filter.JobType {
			continue
		}
		if filter.CreatedBy != "" && job.CreatedBy != filter.CreatedBy {
			continue
		}
		out = append(out, job.Clone())
	}
	return out
}

// Cancel transitions a queued or running job to cancelled and best-effort
// interrupts its worker. Already-terminal jobs cannot be cancelled.
func (m *Manager) Cancel(jobID string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	job, ok := m.jobs[jobID]
	if !ok {
		return false
	}
	if job.Status != model.JobStatusQueued && job.Status != model.JobStatusRunning {
		return false
	}
	job.Status = model.JobStatusCancelled
	completed := now()
	job.CompletedAt = &completed
	if cancel := job.CancelFunc(); cancel != nil {
		cancel()
		job.SetCancelFunc(nil)
	}
	if err := m.persistLocked(job); err != nil {
		m.warn("cancel persist", err)
	}
	return true
}

// Cleanup removes terminal jobs whose CompletedAt is older than maxAge and
// deletes their persisted files (spec §4.9).
func (m *Manager) Cleanup(maxAge time.Duration) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	cutoff := now().Add(-maxAge)
	removed := 0
	for id, job := range m.jobs {
		if !isTerminal(job.Status) || job.CompletedAt == nil || job.CompletedAt.After(cutoff) {
			continue
		}
		delete(m.jobs, id)
		if err := os.Remove(m.jobPath(id)); err != nil && !os.IsNotExist(err) {
			m.warn("cleanup remove", err)
		}
		removed++
	}
	return removed
}

func isTerminal(s model.JobStatus) bool {
	return s == model.JobStatusCompleted || s == model.JobStatusFailed || s == model.JobStatusCancelled
}

func (m *Manager) jobPath(jobID string) string {
	return filepath.Join(m.jobsDir(), jobID+".json")
}

// persistLocked writes job's JSON atomically (write to a temp file, then
// rename) so a crash mid-write never leaves a truncated record (spec §4.9).
// Caller must hold m.mu.
func (m *Manager) persistLocked(job *model.Job) error {
	dir := m.jobsDir()
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("jobs: create state dir: %w", err)
	}
	data, err := json.MarshalIndent(job, "", "  ")
	if err != nil {
		return fmt.Errorf("jobs: marshal %s: %w", job.JobID, err)
	}
	final := m.jobPath(job.JobID)
	tmp := final + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("jobs: write %s: %w", tmp, err)
	}
	if err := os.Rename(tmp, final); err != nil {
		return fmt.Errorf("jobs: rename %s: %w", tmp, err)
	}
	return nil
}

func (m *Manager) warn(stage string, err error) {
	if m.Log == nil {
		return
	}
	m.Log.WithError(err).WithField("stage", stage).Warn("job persistence step failed")
}

func now() time.Time { return time.Now().UTC() }
