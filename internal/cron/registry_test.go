package cron

import (
	"context"
	"testing"
)

type stubJob struct {
	name string
}

func (s *stubJob) Name() string              { return s.name }
func (s *stubJob) Run(context.Context) error { return nil }

func TestRegistryKeepsRegistrationOrder(t *testing.T) {
	retention := &stubJob{name: "outbox-retention"}
	reindex := &stubJob{name: "receipt-reindex"}
	registry := NewRegistry(retention, nil, reindex)

	jobs := registry.Jobs()
	if len(jobs) != 2 {
		t.Fatalf("expected nil job to be skipped, got %d jobs", len(jobs))
	}
	if jobs[0] != retention || jobs[1] != reindex {
		t.Fatalf("jobs returned out of order")
	}
}

func TestRegistryJobsReturnsCopy(t *testing.T) {
	registry := NewRegistry(&stubJob{name: "outbox-retention"})

	jobs := registry.Jobs()
	jobs[0] = nil
	if registry.Jobs()[0] == nil {
		t.Fatalf("internal slice leaked")
	}
}
