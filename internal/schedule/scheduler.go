package schedule

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/synckit/synckit/internal/engine"
	"github.com/synckit/synckit/internal/repository"
	"github.com/synckit/synckit/internal/synckit"
)

// Entry is one recurring workflow execution.
type Entry struct {
	ID           string     `json:"id"`
	WorkflowPath string     `json:"workflow_path"`
	CronExpr     string     `json:"cron_expr"`
	LastRunAt    *time.Time `json:"last_run_at,omitempty"`
	NextRunAt    time.Time  `json:"next_run_at"`
}

// Scheduler wraps robfig/cron to run workflows on a recurring schedule.
// Each trigger loads the workflow file fresh, so edits between runs take
// effect without restarting.
type Scheduler struct {
	cron     *cron.Cron
	executor *engine.Executor
	runs     repository.RunRepository

	mu      sync.RWMutex
	entries map[string]*entryState
}

type entryState struct {
	entry   *Entry
	cronID  cron.EntryID
	running sync.Mutex // one execution at a time per entry
}

func New(executor *engine.Executor, runs repository.RunRepository) *Scheduler {
	return &Scheduler{
		cron:     cron.New(),
		executor: executor,
		runs:     runs,
		entries:  make(map[string]*entryState),
	}
}

// Add registers a workflow file under a cron expression. The entry fires
// until removed or the scheduler stops.
func (s *Scheduler) Add(cronExpr, workflowPath string) (*Entry, error) {
	entry := &Entry{
		ID:           synckit.GenerateID("sched"),
		WorkflowPath: workflowPath,
		CronExpr:     cronExpr,
	}
	state := &entryState{entry: entry}

	cronID, err := s.cron.AddFunc(cronExpr, func() { s.fire(state) })
	if err != nil {
		return nil, err
	}
	state.cronID = cronID

	s.mu.Lock()
	s.entries[entry.ID] = state
	s.mu.Unlock()

	slog.Info("schedule registered", "id", entry.ID,
		"cron", cronExpr, "workflow", workflowPath)
	return entry, nil
}

// Remove deletes a schedule entry.
func (s *Scheduler) Remove(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if state, ok := s.entries[id]; ok {
		s.cron.Remove(state.cronID)
		delete(s.entries, id)
	}
}

// List returns all registered entries with refreshed next-run times.
func (s *Scheduler) List() []*Entry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	entries := make([]*Entry, 0, len(s.entries))
	for _, state := range s.entries {
		e := *state.entry
		e.NextRunAt = s.cron.Entry(state.cronID).Next
		entries = append(entries, &e)
	}
	return entries
}

// Start begins firing entries. Returns immediately.
func (s *Scheduler) Start() {
	s.cron.Start()
	slog.Info("scheduler started")
}

// Stop halts the cron loop and waits for in-flight runs to finish.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
	slog.Info("scheduler stopped")
}

func (s *Scheduler) fire(state *entryState) {
	// Skip this tick if the previous run is still going.
	if !state.running.TryLock() {
		slog.Warn("schedule skipped, previous run still in progress",
			"id", state.entry.ID)
		return
	}
	defer state.running.Unlock()

	entry := state.entry
	wf, err := synckit.LoadWorkflow(entry.WorkflowPath)
	if err != nil {
		slog.Error("scheduled run failed to load workflow",
			"id", entry.ID, "path", entry.WorkflowPath, "err", err)
		return
	}

	slog.Info("scheduled run triggered", "id", entry.ID, "workflow", entry.WorkflowPath)
	result, err := s.executor.Execute(context.Background(), wf)
	if err != nil {
		slog.Error("scheduled run invalid workflow", "id", entry.ID, "err", err)
		return
	}

	now := time.Now()
	s.mu.Lock()
	entry.LastRunAt = &now
	s.mu.Unlock()

	if s.runs != nil {
		if err := s.runs.Create(context.Background(), synckit.NewRunRecord(entry.WorkflowPath, result)); err != nil {
			slog.Warn("scheduled run history write failed", "id", entry.ID, "err", err)
		}
	}
	slog.Info("scheduled run finished", "id", entry.ID,
		"run_id", result.RunID, "success", result.Success)
}
