package better

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"CourtSync/internal/adapter"
	"CourtSync/internal/config"
	"CourtSync/internal/interfaces"
	"CourtSync/internal/metrics"
	"CourtSync/internal/model"
	"CourtSync/internal/utils/httpclient"
	"CourtSync/internal/utils/slotutil"

	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"
)

const defaultRequestDelay = 500 * time.Millisecond

func init() {
	adapter.Register(model.PlatformBetter, NewBetterAdapter)
}

// Adapter grid/array provider: one request per (venue, activity, date), issued sequentially
type Adapter struct {
	cfg     config.PlatformConfig
	fetcher *httpclient.Fetcher
	targets []activityTarget
	delay   time.Duration
	loc     *time.Location
	now     func() time.Time
	logger  *logrus.Logger
}

type activityTarget struct {
	Target
	venueSlug    string
	activitySlug string
	name         string
}

func NewBetterAdapter(cfg config.PlatformConfig, opts adapter.Options) interfaces.SlotAdapter {
	return newAdapter(cfg, httpclient.NewFetcher(model.PlatformBetter, &cfg, opts.Logger), opts)
}

func newAdapter(cfg config.PlatformConfig, fetcher *httpclient.Fetcher, opts adapter.Options) *Adapter {
	a := &Adapter{
		cfg:     cfg,
		fetcher: fetcher,
		delay:   cfg.RequestDelay,
		loc:     opts.Location,
		now:     opts.Now,
		logger:  opts.Logger,
	}
	if a.delay <= 0 {
		a.delay = defaultRequestDelay
	}
	if a.loc == nil {
		a.loc = time.UTC
	}
	if a.now == nil {
		a.now = time.Now
	}
	for _, venue := range cfg.Venues {
		for _, activity := range venue.Activities {
			a.targets = append(a.targets, activityTarget{
				Target: Target{
					VenueID:    venue.ID,
					ActivityID: activity.ID,
					Hours:      slotutil.ParseHours(activity.OperatingHours),
				},
				venueSlug:    venue.SlugOrID(),
				activitySlug: activity.SlugOrID(),
				name:         joinName(venue.Name, activity.Name),
			})
		}
	}
	return a
}

func (a *Adapter) GetType() model.PlatformType {
	return model.PlatformBetter
}

// FetchAll walks dates x venue/activity pairs with a fixed pause between requests.
// A failed combination is logged and skipped.
func (a *Adapter) FetchAll(ctx context.Context, dates []string) ([]model.CanonicalSlot, error) {
	limiter := rate.NewLimiter(rate.Every(a.delay), 1)
	tr := Transformer{
		Location:  a.loc,
		NotBefore: slotutil.Yesterday(a.now(), a.loc),
		Logger:    a.logger.WithField("platform", model.PlatformBetter),
	}

	var all []model.CanonicalSlot
	failed := 0
	for _, date := range dates {
		for _, target := range a.targets {
			if err := limiter.Wait(ctx); err != nil {
				return all, fmt.Errorf("better fetch interrupted: %w", err)
			}
			slots, err := a.fetchOne(ctx, tr, target, date)
			if err != nil {
				failed++
				a.logger.WithError(err).WithFields(logrus.Fields{
					"location": target.Location(),
					"date":     date,
				}).Warn("better fetch failed, skipping")
				continue
			}
			all = append(all, slots...)
		}
	}

	all = slotutil.Dedup(all)
	metrics.SlotsFetched.WithLabelValues(string(model.PlatformBetter)).Add(float64(len(all)))
	a.logger.WithFields(logrus.Fields{
		"slots":    len(all),
		"requests": len(dates) * len(a.targets),
		"failed":   failed,
		"upstream": a.fetcher.State().String(),
	}).Info("better fetch complete")
	return all, nil
}

func (a *Adapter) fetchOne(ctx context.Context, tr Transformer, target activityTarget, date string) ([]model.CanonicalSlot, error) {
	endpoint := fmt.Sprintf("%s/activities/venue/%s/activity/%s/times?date=%s",
		strings.TrimRight(a.cfg.BaseURL, "/"),
		url.PathEscape(target.venueSlug),
		url.PathEscape(target.activitySlug),
		url.QueryEscape(date))

	header := http.Header{}
	header.Set("Accept", "application/json")
	if a.cfg.BookingURL != "" {
		booking := strings.TrimRight(a.cfg.BookingURL, "/")
		header.Set("Origin", booking)
		header.Set("Referer", fmt.Sprintf("%s/location/%s/%s/%s/by-time", booking, target.venueSlug, target.activitySlug, date))
	}

	body, err := a.fetcher.Get(ctx, endpoint, header)
	if err != nil {
		return nil, err
	}
	items, shape, err := DecodeTimes(body)
	if err != nil {
		return nil, err
	}
	if shape == ShapeUnknown {
		a.logger.WithFields(logrus.Fields{
			"location": target.Location(),
			"date":     date,
		}).Warn("unexpected better response shape, treating as empty")
		return nil, nil
	}
	a.logger.WithFields(logrus.Fields{
		"location": target.Location(),
		"date":     date,
		"shape":    shape.String(),
		"raw":      len(items),
	}).Debug("better response decoded")

	return tr.Transform(ParseTimeSlots(items), target.Target), nil
}

// BookingURL booking page for a one-hour slot starting at the slot time
func (a *Adapter) BookingURL(slot model.CanonicalSlot) (string, bool) {
	if a.cfg.BookingURL == "" {
		return "", false
	}
	for _, target := range a.targets {
		if target.Location() != slot.Location {
			continue
		}
		if len(slot.Time) < 5 {
			return "", false
		}
		hour, err := strconv.Atoi(slot.Time[:2])
		if err != nil {
			return "", false
		}
		end := fmt.Sprintf("%02d:%s", (hour+1)%24, slot.Time[3:5])
		return fmt.Sprintf("%s/location/%s/%s/%s/by-time/slot/%s-%s",
			strings.TrimRight(a.cfg.BookingURL, "/"),
			target.venueSlug, target.activitySlug, slot.Date, slot.Time[:5], end), true
	}
	return "", false
}

// Locations every venue/activity pair
func (a *Adapter) Locations() []interfaces.Location {
	res := make([]interfaces.Location, 0, len(a.targets))
	for _, target := range a.targets {
		res = append(res, interfaces.Location{
			Key:      target.Location(),
			Name:     target.name,
			Platform: model.PlatformBetter,
		})
	}
	return res
}

func joinName(venue, activity string) string {
	switch {
	case venue == "":
		return activity
	case activity == "":
		return venue
	default:
		return venue + " - " + activity
	}
}
