package cron

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/multierr"

	"github.com/vidyalane/schoolops-backend/pkg/logger"
)

const outboxRetentionDays = 30

type OutboxRetentionJobParams struct {
	Logger     *logger.Logger
	Repository outboxRetentionRepo
	Retention  int
}

type outboxRetentionRepo interface {
	DeleteTerminalBefore(ctx context.Context, cutoff time.Time) (int64, error)
	DeleteReceiptsBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

func NewOutboxRetentionJob(params OutboxRetentionJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Repository == nil {
		return nil, fmt.Errorf("outbox repository required")
	}
	retention := params.Retention
	if retention <= 0 {
		retention = outboxRetentionDays
	}
	return &outboxRetentionJob{
		logg:      params.Logger,
		repo:      params.Repository,
		retention: retention,
		now:       time.Now,
	}, nil
}

type outboxRetentionJob struct {
	logg      *logger.Logger
	repo      outboxRetentionRepo
	retention int
	now       func() time.Time
}

func (j *outboxRetentionJob) Name() string { return "outbox-retention" }

// Run prunes terminal outbox rows and aged delivery receipts. Each cleanup
// runs even when the other fails.
func (j *outboxRetentionJob) Run(ctx context.Context) error {
	cutoff := j.now().UTC().Add(-time.Duration(j.retention) * 24 * time.Hour)

	var errs []error
	messages, err := j.repo.DeleteTerminalBefore(ctx, cutoff)
	if err != nil {
		errs = append(errs, fmt.Errorf("outbox retention: %w", err))
	}
	receipts, err := j.repo.DeleteReceiptsBefore(ctx, cutoff)
	if err != nil {
		errs = append(errs, fmt.Errorf("receipt retention: %w", err))
	}
	if combined := multierr.Combine(errs...); combined != nil {
		return combined
	}

	logCtx := j.logg.WithFields(ctx, map[string]any{
		"cutoff":           cutoff,
		"retention_days":   j.retention,
		"messages_deleted": messages,
		"receipts_deleted": receipts,
	})
	j.logg.Info(logCtx, "outbox retention cleanup complete")
	return nil
}
