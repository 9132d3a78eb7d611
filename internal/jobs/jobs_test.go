package jobs

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"graphrag/internal/model"
)

func newTestManager(t *testing.T) *Manager {
	t.Helper()
	dir := t.TempDir()
	return New(dir, nil)
}

func waitForTerminal(t *testing.T, m *Manager, jobID string) model.Job {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		job, err := m.Get(jobID)
		require.NoError(t, err)
		if job.Status == model.JobStatusCompleted || job.Status == model.JobStatusFailed || job.Status == model.JobStatusCancelled {
			return job
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("job never reached a terminal state")
	return model.Job{}
}

func TestCreate_ReturnsQueuedJobAndPersists(t *testing.T) {
	m := newTestManager(t)
	job := m.Create(model.JobTypeProcessDocument, map[string]any{"path": "/tmp/x"}, "tester")

	assert.Equal(t, model.JobStatusQueued, job.Status)
	assert.NotEmpty(t, job.JobID)

	data, err := os.ReadFile(filepath.Join(m.jobsDir(), job.JobID+".json"))
	require.NoError(t, err)
	assert.Contains(t, string(data), `"queued"`)
}

func TestSubmit_RunsTaskToCompletion(t *testing.T) {
	m := newTestManager(t)
	job := m.Create(model.JobTypeProcessDocument, nil, "")

	m.Submit(job, func(ctx context.Context, h *Handle) (any, error) {
		h.UpdateProgress(1, 2)
		h.UpdateProgress(2, 2)
		return "done", nil
	})

	final := waitForTerminal(t, m, job.JobID)
	assert.Equal(t, model.JobStatusCompleted, final.Status)
	assert.Equal(t, "done", final.Result)
	assert.Equal(t, 100.0, final.Progress)
	assert.NotNil(t, final.StartedAt)
	assert.NotNil(t, final.CompletedAt)
}

func TestSubmit_FailedTaskRecordsError(t *testing.T) {
	m := newTestManager(t)
	job := m.Create(model.JobTypeProcessDocument, nil, "")

	m.Submit(job, func(ctx context.Context, h *Handle) (any, error) {
		return nil, errors.New("boom")
	})

	final := waitForTerminal(t, m, job.JobID)
	assert.Equal(t, model.JobStatusFailed, final.Status)
	assert.Equal(t, "boom", final.Error)
}

func TestUpdateProgress_ZeroTotalYieldsZeroProgress(t *testing.T) {
	m := newTestManager(t)
	job := m.Create(model.JobTypeProcessFolder, nil, "")

	done := make(chan struct{})
	m.Submit(job, func(ctx context.Context, h *Handle) (any, error) {
		h.UpdateProgress(0, 0)
		close(done)
		return nil, nil
	})
	<-done
	waitForTerminal(t, m, job.JobID)

	final, err := m.Get(job.JobID)
	require.NoError(t, err)
	assert.Equal(t, 0.0, final.Progress)
}

func TestCancel_OnlyAllowedWhileQueuedOrRunning(t *testing.T) {
	m := newTestManager(t)
	job := m.Create(model.JobTypeAddBug, nil, "")

	assert.True(t, m.Cancel(job.JobID))
	final, err := m.Get(job.JobID)
	require.NoError(t, err)
	assert.Equal(t, model.JobStatusCancelled, final.Status)

	assert.False(t, m.Cancel(job.JobID), "an already-terminal job cannot be cancelled again")
}

func TestCancel_InterruptsRunningWorker(t *testing.T) {
	m := newTestManager(t)
	job := m.Create(model.JobTypeAddBug, nil, "")

	started := make(chan struct{})
	finished := make(chan struct{})
	m.Submit(job, func(ctx context.Context, h *Handle) (any, error) {
		close(started)
		select {
		case <-ctx.Done():
		case <-time.After(2 * time.Second):
		}
		close(finished)
		return nil, ctx.Err()
	})
	<-started
	assert.True(t, m.Cancel(job.JobID))
	<-finished

	final, err := m.Get(job.JobID)
	require.NoError(t, err)
	assert.Equal(t, model.JobStatusCancelled, final.Status, "cancel must win over the worker's own terminal transition")
}

func TestGet_UnknownJobReturnsNotFound(t *testing.T) {
	m := newTestManager(t)
	_, err := m.Get("job-does-not-exist")
	assert.Error(t, err)
}

func TestList_FiltersByStatusAndType(t *testing.T) {
	m := newTestManager(t)
	a := m.Create(model.JobTypeAddBug, nil, "")
	b := m.Create(model.JobTypeAddFolder, nil, "")
	m.Submit(a, func(ctx context.Context, h *Handle) (any, error) { return nil, nil })
	waitForTerminal(t, m, a.JobID)

	results := m.List(Filter{JobType: model.JobTypeAddFolder})
	require.Len(t, results, 1)
	assert.Equal(t, b.JobID, results[0].JobID)

	completed := m.List(Filter{Status: model.JobStatusCompleted})
	require.Len(t, completed, 1)
	assert.Equal(t, a.JobID, completed[0].JobID)
}

func TestRecover_RunningJobBecomesFailed(t *testing.T) {
	dir := t.TempDir()
	m1 := New(dir, nil)
	job := m1.Create(model.JobTypeProcessDocument, nil, "")
	m1.mu.Lock()
	m1.jobs[job.JobID].Status = model.JobStatusRunning
	require.NoError(t, m1.persistLocked(m1.jobs[job.JobID]))
	m1.mu.Unlock()

	m2 := New(dir, nil)
	require.NoError(t, m2.Recover())

	recovered, err := m2.Get(job.JobID)
	require.NoError(t, err)
	assert.Equal(t, model.JobStatusFailed, recovered.Status)
	assert.Equal(t, "Job failed due to server restart.", recovered.Error)
}

func TestRecover_QueuedJobStaysQueued(t *testing.T) {
	dir := t.TempDir()
	m1 := New(dir, nil)
	job := m1.Create(model.JobTypeProcessDocument, nil, "")

	m2 := New(dir, nil)
	require.NoError(t, m2.Recover())

	recovered, err := m2.Get(job.JobID)
	require.NoError(t, err)
	assert.Equal(t, model.JobStatusQueued, recovered.Status)
}

func TestCleanup_RemovesOldTerminalJobsAndFiles(t *testing.T) {
	m := newTestManager(t)
	job := m.Create(model.JobTypeAddBug, nil, "")
	m.Submit(job, func(ctx context.Context, h *Handle) (any, error) { return nil, nil })
	waitForTerminal(t, m, job.JobID)

	m.mu.Lock()
	old := now().Add(-48 * time.Hour)
	m.jobs[job.JobID].CompletedAt = &old
	require.NoError(t, m.persistLocked(m.jobs[job.JobID]))
	m.mu.Unlock()

	removed := m.Cleanup(24 * time.Hour)
	assert.Equal(t, 1, removed)

	_, err := m.Get(job.JobID)
	assert.Error(t, err)
	_, statErr := os.Stat(filepath.Join(m.jobsDir(), job.JobID+".json"))
	assert.True(t, os.IsNotExist(statErr))
}
