package cron

import "testing"

func TestAddValidSchedule(t *testing.T) {
	s := NewScheduler()
	job := NewJob("0 0 * * *", "agent1", "good morning")
	if err := s.Add(job); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	got, ok := s.Get(job.ID)
	if !ok || got.Schedule != "0 0 * * *" {
		t.Fatalf("expected stored job, got %+v", got)
	}
}

func TestAddInvalidScheduleRejected(t *testing.T) {
	s := NewScheduler()
	job := NewJob("not a cron expr", "agent1", "prompt")
	if err := s.Add(job); err == nil {
		t.Fatal("expected error for invalid cron expression")
	}
}

func TestRemove(t *testing.T) {
	s := NewScheduler()
	job := NewJob("0 0 * * *", "agent1", "prompt")
	s.Add(job)
	removed, ok := s.Remove(job.ID)
	if !ok || removed.ID != job.ID {
		t.Fatal("expected job to be removed")
	}
	if _, ok := s.Get(job.ID); ok {
		t.Fatal("job should no longer exist")
	}
}

func TestUpdateAppliesOnlyGivenFields(t *testing.T) {
	s := NewScheduler()
	job := NewJob("0 0 * * *", "agent1", "old prompt")
	s.Add(job)

	newPrompt := "new prompt"
	if err := s.Update(job.ID, nil, nil, &newPrompt, nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	got, _ := s.Get(job.ID)
	if got.Prompt != "new prompt" || got.Schedule != "0 0 * * *" {
		t.Fatalf("unexpected job state: %+v", got)
	}
}

func TestUpdateInvalidScheduleRejected(t *testing.T) {
	s := NewScheduler()
	job := NewJob("0 0 * * *", "agent1", "prompt")
	s.Add(job)
	bad := "garbage"
	if err := s.Update(job.ID, &bad, nil, nil, nil); err == nil {
		t.Fatal("expected error for invalid updated schedule")
	}
}

func TestUpdateUnknownJob(t *testing.T) {
	s := NewScheduler()
	if err := s.Update("nope", nil, nil, nil, nil); err == nil {
		t.Fatal("expected error for unknown job")
	}
}

func TestRecordRunIncrementsCount(t *testing.T) {
	s := NewScheduler()
	job := NewJob("0 0 * * *", "agent1", "prompt")
	s.Add(job)

	updated, err := s.RecordRun(job.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if updated.RunCount != 1 || updated.LastRun == nil {
		t.Fatalf("expected run count 1 and LastRun set, got %+v", updated)
	}
}

func TestNextRunValid(t *testing.T) {
	next, ok := NextRun("0 0 * * * * *")
	if !ok {
		t.Fatal("expected a valid next run time for a 7-field expression")
	}
	if next.IsZero() {
		t.Fatal("expected non-zero next run time")
	}
}

func TestNextRunInvalid(t *testing.T) {
	if _, ok := NextRun("garbage"); ok {
		t.Fatal("expected invalid expression to report false")
	}
}

func TestListInfoComputesNextRun(t *testing.T) {
	s := NewScheduler()
	job := NewJob("0 0 * * *", "agent1", "prompt")
	s.Add(job)
	infos := s.ListInfo()
	if len(infos) != 1 {
		t.Fatalf("expected 1 job, got %d", len(infos))
	}
	if infos[0].NextRun == nil {
		t.Fatal("expected NextRun to be computed")
	}
}

func TestDelayForAttemptGrowsAndCaps(t *testing.T) {
	rc := DefaultRetryConfig()
	d1 := rc.DelayForAttempt(1)
	d2 := rc.DelayForAttempt(2)
	d3 := rc.DelayForAttempt(3)
	if d1 != rc.BaseDelay {
		t.Fatalf("DelayForAttempt(1) = %v, want %v", d1, rc.BaseDelay)
	}
	if d2 <= d1 {
		t.Fatalf("expected delay to grow: d1=%v d2=%v", d1, d2)
	}
	if d3 > rc.MaxDelay {
		t.Fatalf("delay must be capped at MaxDelay: d3=%v max=%v", d3, rc.MaxDelay)
	}
}
