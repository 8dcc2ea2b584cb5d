package service

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"CourtSync/internal/config"
	"CourtSync/internal/interfaces"
	"CourtSync/internal/metrics"
	"CourtSync/internal/model"
	"CourtSync/internal/utils/slotutil"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"
	"gorm.io/datatypes"
)

const runFlightKey = "sync-run"

// SyncService one pipeline run: fetch every provider, diff against the snapshot, notify, persist
type SyncService struct {
	adapters []interfaces.SlotAdapter
	diff     *DiffService
	notifier *NotificationService
	runs     interfaces.RunRepository
	cfg      config.SyncConfig
	loc      *time.Location
	now      func() time.Time
	flight   singleflight.Group
	logger   *logrus.Logger
}

func NewSyncService(
	adapters []interfaces.SlotAdapter,
	diff *DiffService,
	notifier *NotificationService,
	runs interfaces.RunRepository,
	cfg config.SyncConfig,
	logger *logrus.Logger,
) *SyncService {
	return &SyncService{
		adapters: adapters,
		diff:     diff,
		notifier: notifier,
		runs:     runs,
		cfg:      cfg,
		loc:      cfg.Location(),
		now:      time.Now,
		logger:   logger,
	}
}

// Run executes one pipeline run over the next days days (<= 0 means the configured default).
// Callers arriving while a run is in flight receive that run's summary instead of starting another.
func (s *SyncService) Run(ctx context.Context, days int) *model.RunSummary {
	v, _, shared := s.flight.Do(runFlightKey, func() (any, error) {
		return s.run(context.WithoutCancel(ctx), s.clampDays(days)), nil
	})
	summary := v.(*model.RunSummary)
	if shared {
		s.logger.WithField("run_id", summary.RunID).Info("joined in-flight sync run")
	}
	return summary
}

func (s *SyncService) clampDays(days int) int {
	if days <= 0 {
		days = s.cfg.DaysToFetch
	}
	if days <= 0 {
		days = 6
	}
	if s.cfg.MaxDays > 0 && days > s.cfg.MaxDays {
		days = s.cfg.MaxDays
	}
	return days
}

func (s *SyncService) run(ctx context.Context, days int) *model.RunSummary {
	startedAt := s.now()
	summary := &model.RunSummary{
		RunID:          uuid.NewString(),
		DatesProcessed: slotutil.DateRange(startedAt.In(s.loc), days),
	}
	logger := s.logger.WithField("run_id", summary.RunID)
	logger.WithFields(logrus.Fields{
		"days":      days,
		"providers": len(s.adapters),
	}).Info("sync run started")

	current, providers := s.fetchAll(ctx, summary.DatesProcessed, logger)
	summary.TotalSlots = len(current)
	summary.ProvidersProcessed = providers
	summary.SampleSlots = sample(current, s.cfg.SampleSize)

	previous := s.diff.GetPreviousState(ctx)
	transitions := s.diff.Compare(previous, current)
	summary.NewlyAvailable = len(transitions)
	metrics.Transitions.Add(float64(len(transitions)))

	if len(transitions) > 0 {
		prefs := s.notifier.GetUserPreferences(ctx)
		notifications := s.notifier.MatchPreferences(transitions, prefs)
		logger.WithFields(logrus.Fields{
			"transitions": len(transitions),
			"preferences": len(prefs),
			"recipients":  len(notifications),
		}).Info("transitions matched against preferences")
		summary.NotificationsSent = s.notifier.SendNotificationEmails(ctx, notifications)
	}

	if err := s.diff.UpdateState(ctx, current); err != nil {
		logger.WithError(err).Error("sync run failed")
		summary.Error = err.Error()
	} else {
		summary.Success = true
	}

	finishedAt := s.now()
	elapsed := finishedAt.Sub(startedAt)
	summary.ProcessingTime = elapsed.Round(time.Millisecond).String()
	metrics.RunDuration.WithLabelValues(strconv.FormatBool(summary.Success)).Observe(elapsed.Seconds())
	s.saveRun(ctx, summary, startedAt, finishedAt, logger)

	logger.WithFields(logrus.Fields{
		"success":            summary.Success,
		"total_slots":        summary.TotalSlots,
		"newly_available":    summary.NewlyAvailable,
		"notifications_sent": summary.NotificationsSent,
		"processing_time":    summary.ProcessingTime,
	}).Info("sync run finished")
	return summary
}

// fetchAll runs every adapter concurrently; a failed adapter contributes no slots
func (s *SyncService) fetchAll(ctx context.Context, dates []string, logger *logrus.Entry) ([]model.CanonicalSlot, []string) {
	results := make([][]model.CanonicalSlot, len(s.adapters))
	ok := make([]bool, len(s.adapters))

	var g errgroup.Group
	for i, a := range s.adapters {
		g.Go(func() error {
			slots, err := safeFetch(ctx, a, dates)
			if err != nil {
				metrics.AdapterFailures.WithLabelValues(string(a.GetType())).Inc()
				logger.WithError(err).WithField("platform", a.GetType()).Error("provider fetch failed, continuing without it")
				return nil
			}
			results[i] = slots
			ok[i] = true
			return nil
		})
	}
	_ = g.Wait()

	var all []model.CanonicalSlot
	var providers []string
	for i, a := range s.adapters {
		if !ok[i] {
			continue
		}
		providers = append(providers, string(a.GetType()))
		all = append(all, results[i]...)
	}
	return all, providers
}

func safeFetch(ctx context.Context, a interfaces.SlotAdapter, dates []string) (slots []model.CanonicalSlot, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%s adapter panicked: %v", a.GetType(), r)
		}
	}()
	return a.FetchAll(ctx, dates)
}

func (s *SyncService) saveRun(ctx context.Context, summary *model.RunSummary, startedAt, finishedAt time.Time, logger *logrus.Entry) {
	if s.runs == nil {
		return
	}
	raw, err := json.Marshal(summary)
	if err != nil {
		logger.WithError(err).Warn("encode run summary failed")
		return
	}
	row := &model.SyncRun{
		RunUUID:    summary.RunID,
		Success:    summary.Success,
		TotalSlots: summary.TotalSlots,
		Newly:      summary.NewlyAvailable,
		Notified:   summary.NotificationsSent,
		Summary:    datatypes.JSON(raw),
		StartedAt:  startedAt,
		FinishedAt: finishedAt,
	}
	if summary.Error != "" {
		msg := summary.Error
		row.Error = &msg
	}
	if err := s.runs.SaveRun(ctx, row); err != nil {
		logger.WithError(err).Warn("save run history failed")
	}
}

func sample(slots []model.CanonicalSlot, n int) []model.CanonicalSlot {
	if n <= 0 || len(slots) == 0 {
		return nil
	}
	if len(slots) < n {
		n = len(slots)
	}
	res := make([]model.CanonicalSlot, n)
	copy(res, slots[:n])
	return res
}
