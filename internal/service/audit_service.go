package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/andresuchdata/invhealth/internal/audit"
	"github.com/andresuchdata/invhealth/internal/broker"
	"github.com/andresuchdata/invhealth/internal/cache"
	"github.com/andresuchdata/invhealth/internal/config"
	"github.com/andresuchdata/invhealth/internal/domain"
	"github.com/andresuchdata/invhealth/internal/lock"
	"github.com/andresuchdata/invhealth/internal/metrics"
	"github.com/andresuchdata/invhealth/internal/repository"
	"github.com/andresuchdata/invhealth/internal/storage"
	"github.com/andresuchdata/invhealth/pkg/logger"
)

const runLockKey = "health"

// Dependencies are the collaborators of AuditService. Nil optional fields
// fall back to their noop or in-process versions.
type Dependencies struct {
	Store     repository.Store
	Runs      repository.RunRepository
	Cache     cache.ReportCache
	Locker    lock.RunLocker
	Archive   storage.ReportArchive
	Publisher broker.RetrainPublisher
}

// RunOptions tune a single invocation.
type RunOptions struct {
	DryRun bool
	// Date overrides the audit date; zero means today.
	Date time.Time
}

// RunOutcome is what a finished run hands back to its caller.
type RunOutcome struct {
	Run      domain.AuditRun         `json:"run"`
	Report   *domain.AuditReport     `json:"report"`
	Archive  *storage.ArchivedReport `json:"archive,omitempty"`
	Retrain  bool                    `json:"retrain_requested"`
	Duration time.Duration           `json:"-"`
}

type AuditService struct {
	store     repository.Store
	runs      repository.RunRepository
	cache     cache.ReportCache
	locker    lock.RunLocker
	archive   storage.ReportArchive
	publisher broker.RetrainPublisher
	settings  config.AuditSettings

	now   func() time.Time
	newID func() string
}

func NewAuditService(deps Dependencies, settings config.AuditSettings) *AuditService {
	s := &AuditService{
		store:     deps.Store,
		runs:      deps.Runs,
		cache:     deps.Cache,
		locker:    deps.Locker,
		archive:   deps.Archive,
		publisher: deps.Publisher,
		settings:  settings,
		now:       time.Now,
		newID:     uuid.NewString,
	}
	if s.cache == nil {
		s.cache = cache.NewNoopReportCache()
	}
	if s.locker == nil {
		s.locker = lock.NewLocalLocker()
	}
	if s.archive == nil {
		s.archive = storage.NewNoopArchive()
	}
	if s.publisher == nil {
		s.publisher = broker.NewNoopPublisher()
	}
	return s
}

// WithClock replaces the wall clock, mainly for tests.
func (s *AuditService) WithClock(now func() time.Time) *AuditService {
	s.now = now
	return s
}

// Run executes one audit under the run lock and records it in the run history.
func (s *AuditService) Run(ctx context.Context, opts RunOptions) (*RunOutcome, error) {
	cfg := s.settings.ToAuditConfig()
	cfg.AuditDate = opts.Date
	if opts.DryRun {
		cfg.Persist = false
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	// 1. Only one run at a time across every process sharing the lock
	release, err := s.locker.Acquire(ctx, runLockKey)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err := release.Release(context.WithoutCancel(ctx)); err != nil {
			log.Warn().Err(err).Msg("audit: failed to release run lock")
		}
	}()

	// resolved once so history and report name the same day
	cfg.AuditDate = audit.NewEngine(cfg).WithClock(s.now).AuditDay()
	engine := audit.NewEngine(cfg)
	run := domain.AuditRun{
		ID:        s.newID(),
		AuditDate: cfg.AuditDate,
		Status:    domain.RunStatusRunning,
		DryRun:    !cfg.Persist,
		StartedAt: s.now().UTC(),
	}
	runLog := logger.Component("audit_service").With().Str("run_id", run.ID).Logger()

	// 2. History row first so failed runs are visible too
	if err := s.runs.CreateRun(ctx, &run); err != nil {
		return nil, fmt.Errorf("failed to record audit run: %w", err)
	}

	// 3. The run itself, bounded by the configured timeout
	runCtx := ctx
	if timeout := s.settings.RunTimeout(); timeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	started := s.now()
	res, runErr := engine.Run(runCtx, s.store)
	elapsed := s.now().Sub(started)

	if runErr != nil {
		metrics.ObserveRun(nil, run.DryRun, elapsed, runErr)
		if err := s.runs.FailRun(context.WithoutCancel(ctx), run.ID, runErr); err != nil {
			runLog.Error().Err(err).Msg("Failed to mark audit run failed")
		}
		runLog.Error().Err(runErr).Msg("Audit run failed")
		return nil, runErr
	}
	metrics.ObserveRun(res.Report, run.DryRun, elapsed, nil)

	// 4. Bookkeeping; the report is already final so these only log on failure
	if err := s.runs.CompleteRun(ctx, run.ID, res.Report); err != nil {
		runLog.Error().Err(err).Msg("Failed to mark audit run completed")
	} else {
		score := res.Report.Summary.HealthScore
		run.Status = domain.RunStatusCompleted
		run.HealthScore = &score
	}

	if err := s.cache.SetLatest(ctx, res.Report); err != nil {
		runLog.Warn().Err(err).Msg("audit: cache set latest failed")
	}

	outcome := &RunOutcome{Run: run, Report: res.Report, Duration: elapsed}

	archived, err := s.archive.ArchiveReport(ctx, run.ID, res.Report)
	if err != nil {
		runLog.Warn().Err(err).Msg("audit: archive failed")
	} else if len(archived.Keys) > 0 {
		outcome.Archive = archived
	}

	// 5. Dry runs never announce anything
	if res.Report.Summary.ShouldRetrain && !run.DryRun {
		event := broker.NewRetrainRequested(s.newID(), run.ID, res.Report, res.WriteBack.Parameters, s.now())
		if err := s.publisher.PublishRetrainRequested(ctx, event); err != nil {
			runLog.Warn().Err(err).Msg("audit: publish retrain request failed")
		} else {
			metrics.RetrainRequestsTotal.Inc()
			outcome.Retrain = true
		}
	}

	return outcome, nil
}

// Latest returns the newest completed report.
func (s *AuditService) Latest(ctx context.Context) (*domain.AuditReport, error) {
	if report, ok, err := s.cache.GetLatest(ctx); err == nil && ok {
		return report, nil
	} else if err != nil {
		log.Warn().Err(err).Msg("audit: cache get latest failed")
	}

	report, err := s.runs.LatestReport(ctx)
	if err != nil {
		return nil, err
	}

	if err := s.cache.SetLatest(ctx, report); err != nil {
		log.Warn().Err(err).Msg("audit: cache set latest failed")
	}
	return report, nil
}

// ReportForDate returns the newest completed report of one audit day.
func (s *AuditService) ReportForDate(ctx context.Context, day time.Time) (*domain.AuditReport, error) {
	key := domain.FormatDate(day)
	if report, ok, err := s.cache.GetByDate(ctx, key); err == nil && ok {
		return report, nil
	} else if err != nil {
		log.Warn().Err(err).Str("audit_date", key).Msg("audit: cache get by date failed")
	}
	return s.runs.ReportByDate(ctx, day)
}

func (s *AuditService) Runs(ctx context.Context, limit int) ([]domain.AuditRun, error) {
	if limit <= 0 {
		limit = 20
	}
	return s.runs.ListRuns(ctx, limit)
}

func (s *AuditService) Parameters(ctx context.Context) (domain.AuditParameters, error) {
	return s.store.LoadAuditParameters(ctx)
}

// MarkTrained records that the forecast model was retrained on day and
// restarts the new-invoice count.
func (s *AuditService) MarkTrained(ctx context.Context, day time.Time) (domain.AuditParameters, error) {
	if day.IsZero() {
		day = s.now()
	}
	y, m, d := day.Date()
	trained := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)

	params, err := s.store.LoadAuditParameters(ctx)
	if err != nil {
		return domain.AuditParameters{}, fmt.Errorf("failed to load audit parameters: %w", err)
	}
	params.LastTrainingDate = &trained
	params.NewInvoicesSinceTrain = 0

	if err := s.store.SaveAuditParameters(ctx, params); err != nil {
		return domain.AuditParameters{}, fmt.Errorf("failed to save audit parameters: %w", err)
	}

	// cached reports still advertise the old retrain decision
	if err := s.cache.InvalidateAll(ctx); err != nil {
		log.Warn().Err(err).Msg("audit: cache invalidate failed")
	}
	return params, nil
}

// IsNotFound reports whether err means nothing has been recorded yet.
func IsNotFound(err error) bool {
	return errors.Is(err, repository.ErrNotFound)
}
