package cron

import (
	"fmt"
	"sync"
	"time"

	"github.com/adhocore/gronx"
	"github.com/google/uuid"
)

// JobInfo is the wire-format view of a Job returned by list/status
// endpoints: NextRun is computed on demand rather than stored.
type JobInfo struct {
	ID          string     `json:"id"`
	Schedule    string     `json:"schedule"`
	Description string     `json:"description,omitempty"`
	AgentID     string     `json:"agent_id"`
	Prompt      string     `json:"prompt"`
	Enabled     bool       `json:"enabled"`
	NextRun     *time.Time `json:"next_run,omitempty"`
	LastRun     *time.Time `json:"last_run,omitempty"`
	RunCount    uint64     `json:"run_count"`
}

// Job is a scheduled cron job as stored by the Scheduler.
type Job struct {
	ID          string
	Schedule    string
	Description string
	AgentID     string
	Prompt      string
	Enabled     bool
	CreatedAt   time.Time
	LastRun     *time.Time
	RunCount    uint64
}

// NewJob creates a Job with a fresh ID and CreatedAt set to now.
func NewJob(schedule, agentID, prompt string) Job {
	return Job{
		ID:        uuid.NewString(),
		Schedule:  schedule,
		AgentID:   agentID,
		Prompt:    prompt,
		Enabled:   true,
		CreatedAt: time.Now().UTC(),
	}
}

func (j Job) toInfo() JobInfo {
	info := JobInfo{
		ID: j.ID, Schedule: j.Schedule, Description: j.Description,
		AgentID: j.AgentID, Prompt: j.Prompt, Enabled: j.Enabled,
		LastRun: j.LastRun, RunCount: j.RunCount,
	}
	if next, ok := NextRun(j.Schedule); ok {
		info.NextRun = &next
	}
	return info
}

// Scheduler is an in-memory cron job store keyed by job id. Expressions are
// validated with gronx, which accepts the 5- and 7-field forms.
type Scheduler struct {
	mu   sync.RWMutex
	jobs map[string]Job
}

func NewScheduler() *Scheduler {
	return &Scheduler{jobs: make(map[string]Job)}
}

// Add validates the job's schedule and inserts it, replacing any existing
// job with the same id.
func (s *Scheduler) Add(job Job) error {
	if !gronx.IsValid(job.Schedule) {
		return fmt.Errorf("invalid cron expression: %s", job.Schedule)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.jobs[job.ID] = job
	return nil
}

// Remove deletes a job by id, returning it if it existed.
func (s *Scheduler) Remove(id string) (Job, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	job, ok := s.jobs[id]
	if ok {
		delete(s.jobs, id)
	}
	return job, ok
}

// Update applies the given non-nil fields to an existing job.
func (s *Scheduler) Update(id string, schedule, description, prompt *string, enabled *bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	job, ok := s.jobs[id]
	if !ok {
		return fmt.Errorf("job not found: %s", id)
	}
	if schedule != nil {
		if !gronx.IsValid(*schedule) {
			return fmt.Errorf("invalid cron expression: %s", *schedule)
		}
		job.Schedule = *schedule
	}
	if description != nil {
		job.Description = *description
	}
	if prompt != nil {
		job.Prompt = *prompt
	}
	if enabled != nil {
		job.Enabled = *enabled
	}
	s.jobs[id] = job
	return nil
}

// List returns every job, in no particular order.
func (s *Scheduler) List() []Job {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Job, 0, len(s.jobs))
	for _, j := range s.jobs {
		out = append(out, j)
	}
	return out
}

// ListInfo returns every job as its wire-format JobInfo, next_run computed.
func (s *Scheduler) ListInfo() []JobInfo {
	jobs := s.List()
	out := make([]JobInfo, 0, len(jobs))
	for _, j := range jobs {
		out = append(out, j.toInfo())
	}
	return out
}

// Get returns a single job by id.
func (s *Scheduler) Get(id string) (Job, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	job, ok := s.jobs[id]
	return job, ok
}

// RecordRun stamps LastRun to now and increments RunCount for a manual or
// fired trigger.
func (s *Scheduler) RecordRun(id string) (Job, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	job, ok := s.jobs[id]
	if !ok {
		return Job{}, fmt.Errorf("job not found: %s", id)
	}
	now := time.Now().UTC()
	job.LastRun = &now
	job.RunCount++
	s.jobs[id] = job
	return job, nil
}

// NextRun computes the next fire time for a cron expression, or false if the
// expression cannot be parsed.
func NextRun(schedule string) (time.Time, bool) {
	next, err := gronx.NextTick(schedule, false)
	if err != nil {
		return time.Time{}, false
	}
	return next, true
}
