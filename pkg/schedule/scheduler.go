// Package schedule runs registered graphs on cron schedules. Jobs live in
// memory; the scheduler owns a background loop that ticks once a minute
// and dispatches every job whose next run time has passed.
package schedule

import (
	"context"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/actiongraph/actiongraph/pkg/schema"
)

// Runner is the interface the scheduler uses to run graphs by name.
// Satisfied by mcp.GraphSet (avoids import cycle).
type Runner interface {
	RunGraph(ctx context.Context, graphName string) error
}

// Job is a scheduled graph run.
type Job struct {
	ID             string     `json:"id"`
	GraphName      string     `json:"graph_name"`
	CronExpression string     `json:"cron_expression"`
	Enabled        bool       `json:"enabled"`
	NextRunAt      time.Time  `json:"next_run_at"`
	LastRunAt      *time.Time `json:"last_run_at,omitempty"`
	LastRunStatus  string     `json:"last_run_status,omitempty"`
}

// Scheduler holds the job table and the background dispatch loop.
type Scheduler struct {
	runner   Runner
	parser   cron.Parser
	logger   *slog.Logger
	interval time.Duration

	mu     sync.Mutex
	jobs   map[string]*Job
	cancel context.CancelFunc
	done   chan struct{}

	inflightMu sync.Mutex
	inflight   map[string]struct{} // job IDs currently executing (dedup)
}

// Option configures a Scheduler.
type Option func(*Scheduler)

// WithTickInterval overrides the dispatch loop interval.
func WithTickInterval(d time.Duration) Option {
	return func(s *Scheduler) { s.interval = d }
}

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Scheduler) { s.logger = logger }
}

// New creates a Scheduler dispatching to the given runner.
func New(runner Runner, opts ...Option) *Scheduler {
	s := &Scheduler{
		runner:   runner,
		parser:   cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow),
		interval: 60 * time.Second,
		jobs:     make(map[string]*Job),
		inflight: make(map[string]struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	return s
}

// Add registers a job. The first run happens at the next cron occurrence
// after now. Returns error on duplicate ID or invalid expression.
func (s *Scheduler) Add(id, graphName, cronExpr string) (*Job, error) {
	if id == "" {
		return nil, schema.NewError(schema.ErrCodeValidation, "job id is empty")
	}

	next, err := s.NextRun(cronExpr, time.Now().UTC())
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.jobs[id]; exists {
		return nil, schema.NewErrorf(schema.ErrCodeConflict, "job %q already scheduled", id)
	}

	job := &Job{
		ID:             id,
		GraphName:      graphName,
		CronExpression: cronExpr,
		Enabled:        true,
		NextRunAt:      next,
	}
	s.jobs[id] = job
	return snapshot(job), nil
}

// Remove deletes a job from the table.
func (s *Scheduler) Remove(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.jobs[id]; !ok {
		return schema.NewErrorf(schema.ErrCodeNotFound, "job %q is not scheduled", id)
	}
	delete(s.jobs, id)
	return nil
}

// SetEnabled toggles a job without removing it.
func (s *Scheduler) SetEnabled(id string, enabled bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	job, ok := s.jobs[id]
	if !ok {
		return schema.NewErrorf(schema.ErrCodeNotFound, "job %q is not scheduled", id)
	}
	job.Enabled = enabled
	return nil
}

// Jobs returns a snapshot of the job table, sorted by ID.
func (s *Scheduler) Jobs() []*Job {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]*Job, 0, len(s.jobs))
	for _, job := range s.jobs {
		out = append(out, snapshot(job))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Start launches the background dispatch loop.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.done != nil {
		s.mu.Unlock()
		return schema.NewError(schema.ErrCodeConflict, "scheduler already started")
	}

	loopCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.done = make(chan struct{})
	s.mu.Unlock()

	go s.loop(loopCtx)
	s.logger.Info("scheduler started")
	return nil
}

// Stop gracefully shuts down the dispatch loop.
func (s *Scheduler) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cancel == nil {
		return nil
	}

	s.cancel()
	<-s.done
	s.cancel = nil
	s.done = nil

	s.logger.Info("scheduler stopped")
	return nil
}

func (s *Scheduler) loop(ctx context.Context) {
	defer close(s.done)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	// Run an initial tick immediately.
	s.tick(ctx)

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.tick(ctx)
		}
	}
}

// tick dispatches every enabled job whose next run time has passed.
func (s *Scheduler) tick(ctx context.Context) {
	now := time.Now().UTC()

	for _, job := range s.due(now) {
		if !s.tryAcquire(job.ID) {
			continue // already running (dedup)
		}
		s.runJob(ctx, job.ID, job.GraphName, job.CronExpression, now)
		s.release(job.ID)
	}
}

// due returns a snapshot of the enabled jobs whose NextRunAt is not in the
// future.
func (s *Scheduler) due(now time.Time) []*Job {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []*Job
	for _, job := range s.jobs {
		if job.Enabled && !job.NextRunAt.After(now) {
			out = append(out, snapshot(job))
		}
	}
	return out
}

func (s *Scheduler) runJob(ctx context.Context, id, graphName, cronExpr string, now time.Time) {
	s.logger.Info("running scheduled job",
		slog.String("job_id", id),
		slog.String("graph", graphName),
	)

	status := "success"
	if err := s.runner.RunGraph(ctx, graphName); err != nil {
		status = "error"
		s.logger.Error("scheduled job failed",
			slog.String("job_id", id),
			slog.String("error", err.Error()),
		)
	}

	next, err := s.NextRun(cronExpr, now)
	if err != nil {
		// The expression was valid at Add time; treat a parse failure here
		// as a disabled job rather than crashing the loop.
		s.logger.Error("failed to compute next run, disabling job",
			slog.String("job_id", id),
			slog.String("error", err.Error()),
		)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	job, ok := s.jobs[id]
	if !ok {
		return // removed while running
	}
	ranAt := now
	job.LastRunAt = &ranAt
	job.LastRunStatus = status
	if err != nil {
		job.Enabled = false
		return
	}
	job.NextRunAt = next
}

// NextRun computes the next run time for a cron expression.
func (s *Scheduler) NextRun(cronExpr string, from time.Time) (time.Time, error) {
	sched, err := s.parser.Parse(cronExpr)
	if err != nil {
		return time.Time{}, schema.NewErrorf(schema.ErrCodeValidation,
			"parse cron expression %q: %s", cronExpr, err.Error()).WithCause(err)
	}
	return sched.Next(from), nil
}

// tryAcquire returns true and marks the job in-flight if it is not already
// running.
func (s *Scheduler) tryAcquire(id string) bool {
	s.inflightMu.Lock()
	defer s.inflightMu.Unlock()
	if _, ok := s.inflight[id]; ok {
		return false
	}
	s.inflight[id] = struct{}{}
	return true
}

func (s *Scheduler) release(id string) {
	s.inflightMu.Lock()
	defer s.inflightMu.Unlock()
	delete(s.inflight, id)
}

func snapshot(job *Job) *Job {
	copied := *job
	return &copied
}
