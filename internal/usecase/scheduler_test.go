package usecase

import (
	"context"
	"testing"
	"time"
)

type manualDriver struct {
	job     func(time.Time)
	stopped bool
}

func (d *manualDriver) Start(_ context.Context, job func(time.Time)) error {
	d.job = job
	return nil
}

func (d *manualDriver) Stop(context.Context) error {
	d.stopped = true
	return nil
}

func TestSchedulerRunsPipelineOnTick(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	h.source.set(candidateAt("https://lab.example.com/p", "P", 90))

	driver := &manualDriver{}
	s := NewScheduler(driver, h.pipeline, nil)
	if err := s.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if driver.job == nil {
		t.Fatalf("job not registered")
	}

	driver.job(fixedNow)
	if h.store.count() != 1 {
		t.Fatalf("tick must run the pipeline, stored %d rows", h.store.count())
	}

	// a failing run is logged, not propagated
	h.store.existingErr = context.DeadlineExceeded
	driver.job(fixedNow.Add(time.Hour))

	if err := s.Stop(context.Background()); err != nil || !driver.stopped {
		t.Fatalf("Stop: %v stopped=%v", err, driver.stopped)
	}
}
