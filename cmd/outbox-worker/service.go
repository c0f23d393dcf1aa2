package main

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"gorm.io/gorm"

	"github.com/vidyalane/schoolops-backend/internal/comms"
	"github.com/vidyalane/schoolops-backend/internal/comms/providers"
	"github.com/vidyalane/schoolops-backend/pkg/config"
	"github.com/vidyalane/schoolops-backend/pkg/db/models"
	"github.com/vidyalane/schoolops-backend/pkg/enums"
	"github.com/vidyalane/schoolops-backend/pkg/logger"
	"github.com/vidyalane/schoolops-backend/pkg/metrics"
)

const (
	defaultBatchSize      = 25
	defaultPollInterval   = 2 * time.Second
	defaultSendTimeout    = 15 * time.Second
	defaultMaxAttempts    = 5
	defaultBaseBackoff    = 3 * time.Second
	defaultMaxErrorLength = 500
	maxBackoff            = 10 * time.Second
	jitterWindow          = 250 * time.Millisecond

	deadLetterSuffix = " (max attempts reached)"
)

var jitterSource = rand.New(rand.NewSource(time.Now().UnixNano()))

type dbClient interface {
	Ping(context.Context) error
	WithTx(context.Context, func(tx *gorm.DB) error) error
}

type outboxRepository interface {
	FetchSendableTx(tx *gorm.DB, limit int) ([]models.OutboxMessage, error)
	ClaimTx(tx *gorm.DB, id int64, from enums.OutboxStatus) (bool, error)
	ApplyResultTx(tx *gorm.DB, id int64, update comms.ResultUpdate) error
}

type providerRegistry interface {
	For(channel enums.Channel) (providers.Provider, error)
}

type ServiceParams struct {
	Config     *config.Config
	Logger     *logger.Logger
	DB         dbClient
	Repository outboxRepository
	Registry   providerRegistry
	Metrics    *metrics.OutboxMetrics
	Now        func() time.Time
}

type Service struct {
	cfg            *config.Config
	logg           *logger.Logger
	db             dbClient
	repo           outboxRepository
	registry       providerRegistry
	metrics        *metrics.OutboxMetrics
	batchSize      int
	maxAttempts    int
	maxErrorLength int
	baseBackoff    time.Duration
	pollInterval   time.Duration
	sendTimeout    time.Duration
	now            func() time.Time
}

func NewService(params ServiceParams) (*Service, error) {
	if params.Config == nil {
		return nil, errors.New("config is required")
	}
	if params.Logger == nil {
		return nil, errors.New("logger is required")
	}
	if params.DB == nil {
		return nil, errors.New("database client is required")
	}
	if params.Repository == nil {
		return nil, errors.New("outbox repository is required")
	}
	if params.Registry == nil {
		return nil, errors.New("provider registry is required")
	}

	batch := params.Config.Outbox.BatchSize
	if batch <= 0 {
		batch = defaultBatchSize
	}
	pollInterval := params.Config.Outbox.PollInterval
	if pollInterval <= 0 {
		pollInterval = defaultPollInterval
	}
	maxAttempts := params.Config.Outbox.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = defaultMaxAttempts
	}
	baseBackoff := params.Config.Outbox.BaseBackoff
	if baseBackoff <= 0 {
		baseBackoff = defaultBaseBackoff
	}
	maxErrorLength := params.Config.Outbox.MaxErrorLength
	if maxErrorLength <= 0 {
		maxErrorLength = defaultMaxErrorLength
	}
	sendTimeout := params.Config.Providers.SendTimeout
	if sendTimeout <= 0 {
		sendTimeout = defaultSendTimeout
	}
	now := params.Now
	if now == nil {
		now = time.Now
	}

	return &Service{
		cfg:            params.Config,
		logg:           params.Logger,
		db:             params.DB,
		repo:           params.Repository,
		registry:       params.Registry,
		metrics:        params.Metrics,
		batchSize:      batch,
		maxAttempts:    maxAttempts,
		maxErrorLength: maxErrorLength,
		baseBackoff:    baseBackoff,
		pollInterval:   pollInterval,
		sendTimeout:    sendTimeout,
		now:            now,
	}, nil
}

func (s *Service) ensureReadiness(ctx context.Context) error {
	if err := pingDependency(ctx, s.logg, "database", s.db.Ping); err != nil {
		return err
	}
	return nil
}

func pingDependency(ctx context.Context, logg *logger.Logger, name string, fn func(context.Context) error) error {
	if err := fn(ctx); err != nil {
		logg.Error(ctx, fmt.Sprintf("%s ping failed", name), err)
		return fmt.Errorf("%s ping failed: %w", name, err)
	}
	return nil
}

func (s *Service) Run(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}

	if err := s.ensureReadiness(ctx); err != nil {
		return err
	}

	interval := s.pollInterval
	backoff := interval

	for {
		select {
		case <-ctx.Done():
			s.logg.Info(ctx, "outbox worker context canceled")
			return ctx.Err()
		default:
		}

		processed, err := s.processBatch(ctx)
		if err != nil {
			s.logg.Error(ctx, "outbox worker batch error", err)
			backoff = nextBackoff(backoff, interval, maxBackoff)
			if err := s.sleep(ctx, withJitter(backoff)); err != nil {
				return err
			}
			continue
		}

		backoff = interval

		if processed {
			continue
		}

		if err := s.sleep(ctx, withJitter(interval)); err != nil {
			return err
		}
	}
}

// processBatch claims and delivers one batch inside a single transaction.
// Claims use compare-and-swap on the observed status, so a row picked up by
// a concurrent worker is skipped rather than sent twice.
func (s *Service) processBatch(ctx context.Context) (bool, error) {
	processed := false
	err := s.db.WithTx(ctx, func(tx *gorm.DB) error {
		candidates, err := s.repo.FetchSendableTx(tx, s.batchSize)
		if err != nil {
			return err
		}

		now := s.now().UTC()
		for _, msg := range candidates {
			if !comms.Eligible(&msg, now, s.baseBackoff) {
				continue
			}
			claimed, err := s.repo.ClaimTx(tx, msg.ID, msg.Status)
			if err != nil {
				return fmt.Errorf("claim %d: %w", msg.ID, err)
			}
			if !claimed {
				continue
			}
			processed = true
			if err := s.deliver(ctx, tx, msg); err != nil {
				return err
			}
		}
		return nil
	})
	return processed, err
}

// deliver runs exactly one attempt for a claimed message and writes the full
// outcome in a single update. attempts moves forward once per pass no matter
// how the attempt ends.
func (s *Service) deliver(ctx context.Context, tx *gorm.DB, msg models.OutboxMessage) error {
	attempts := msg.Attempts + 1
	s.metrics.IncAttempt(msg.Channel)

	var result *providers.Result
	var sendLatency time.Duration
	provider, sendErr := s.registry.For(msg.Channel)
	if sendErr == nil {
		sendCtx, cancel := context.WithTimeout(ctx, s.sendTimeout)
		start := time.Now()
		result, sendErr = provider.Send(sendCtx, &msg)
		sendLatency = time.Since(start)
		cancel()
	}

	finishedAt := s.now().UTC()
	update := comms.ResultUpdate{
		Attempts: attempts,
		SentAt:   &finishedAt,
	}

	fields := s.messageFields(msg, attempts)
	switch {
	case sendErr == nil:
		update.Status = enums.OutboxStatusSent
		update.ProviderName = &result.ProviderName
		update.ProviderMessageID = &result.ProviderMessageID
		s.metrics.IncSent(msg.Channel)
		// Latency samples cover successful sends only, so the histogram
		// count reconciles with sent_total.
		s.metrics.ObserveSendLatency(msg.Channel, sendLatency)
		fields["provider"] = result.ProviderName
		s.logg.Info(s.logg.WithFields(ctx, fields), "outbox message sent")

	case providers.IsPermanent(sendErr):
		update.Status = enums.OutboxStatusFailed
		update.LastError = s.truncateError(sendErr.Error())
		s.metrics.IncFailed(msg.Channel)
		fields["error"] = sendErr.Error()
		s.logg.Warn(s.logg.WithFields(ctx, fields), "outbox message failed permanently")

	case attempts >= s.maxAttempts:
		update.Status = enums.OutboxStatusFailed
		update.LastError = s.truncateError(sendErr.Error() + deadLetterSuffix)
		s.metrics.IncFailed(msg.Channel)
		fields["error"] = sendErr.Error()
		fields["terminal_reason"] = "max_attempts"
		s.logg.Warn(s.logg.WithFields(ctx, fields), "outbox message dead-lettered")

	default:
		update.Status = enums.OutboxStatusError
		update.LastError = s.truncateError(sendErr.Error())
		s.metrics.IncError(msg.Channel)
		fields["error"] = sendErr.Error()
		s.logg.Warn(s.logg.WithFields(ctx, fields), "outbox send failed, will retry")
	}

	if err := s.repo.ApplyResultTx(tx, msg.ID, update); err != nil {
		return fmt.Errorf("apply result %d: %w", msg.ID, err)
	}
	return nil
}

func (s *Service) truncateError(msg string) *string {
	if len(msg) > s.maxErrorLength {
		msg = msg[:s.maxErrorLength]
	}
	return &msg
}

func (s *Service) messageFields(msg models.OutboxMessage, attempts int) map[string]any {
	fields := map[string]any{
		"outbox_id":  msg.ID,
		"school_id":  msg.SchoolID,
		"channel":    msg.Channel,
		"attempts":   attempts,
		"batch_size": s.batchSize,
	}
	if msg.LastError != nil {
		fields["last_error"] = *msg.LastError
	}
	return fields
}

func (s *Service) sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func nextBackoff(current, base, max time.Duration) time.Duration {
	if current <= 0 {
		current = base
	}
	next := current * 2
	if next > max {
		return max
	}
	return next
}

func withJitter(d time.Duration) time.Duration {
	if d <= 0 {
		return 0
	}
	jitter := time.Duration(jitterSource.Int63n(int64(jitterWindow)))
	return d + jitter
}
