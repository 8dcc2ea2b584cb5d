package towerhamlets

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
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
	"golang.org/x/sync/errgroup"
)

func init() {
	adapter.Register(model.PlatformTowerHamlets, NewTowerHamletsAdapter)
}

// Adapter HTML-scrape provider: one booking page per (venue, date)
type Adapter struct {
	cfg     config.PlatformConfig
	fetcher *httpclient.Fetcher
	loc     *time.Location
	now     func() time.Time
	logger  *logrus.Logger
}

func NewTowerHamletsAdapter(cfg config.PlatformConfig, opts adapter.Options) interfaces.SlotAdapter {
	return newAdapter(cfg, httpclient.NewFetcher(model.PlatformTowerHamlets, &cfg, opts.Logger), opts)
}

func newAdapter(cfg config.PlatformConfig, fetcher *httpclient.Fetcher, opts adapter.Options) *Adapter {
	a := &Adapter{cfg: cfg, fetcher: fetcher, loc: opts.Location, now: opts.Now, logger: opts.Logger}
	if a.loc == nil {
		a.loc = time.UTC
	}
	if a.now == nil {
		a.now = time.Now
	}
	return a
}

func (a *Adapter) GetType() model.PlatformType {
	return model.PlatformTowerHamlets
}

// FetchAll scrapes every venue x date page concurrently; failed pages are logged and skipped
func (a *Adapter) FetchAll(ctx context.Context, dates []string) ([]model.CanonicalSlot, error) {
	notBefore := slotutil.Yesterday(a.now(), a.loc)

	type job struct {
		venue config.VenueConfig
		date  string
	}
	var jobs []job
	for _, venue := range a.cfg.Venues {
		for _, date := range dates {
			jobs = append(jobs, job{venue: venue, date: date})
		}
	}
	if len(jobs) == 0 {
		return nil, nil
	}

	results := make([][]model.CanonicalSlot, len(jobs))
	var g errgroup.Group
	for i, j := range jobs {
		g.Go(func() error {
			slots, err := a.fetchPage(ctx, j.venue, j.date, notBefore)
			if err != nil {
				a.logger.WithError(err).WithFields(logrus.Fields{
					"venue": j.venue.ID,
					"date":  j.date,
				}).Warn("tower hamlets page fetch failed, skipping")
				return nil
			}
			results[i] = slots
			return nil
		})
	}
	_ = g.Wait()

	var all []model.CanonicalSlot
	for _, r := range results {
		all = append(all, r...)
	}
	all = slotutil.Dedup(all)
	metrics.SlotsFetched.WithLabelValues(string(model.PlatformTowerHamlets)).Add(float64(len(all)))
	a.logger.WithFields(logrus.Fields{
		"slots":    len(all),
		"pages":    len(jobs),
		"upstream": a.fetcher.State().String(),
	}).Info("tower hamlets fetch complete")
	return all, nil
}

func (a *Adapter) fetchPage(ctx context.Context, venue config.VenueConfig, date, notBefore string) ([]model.CanonicalSlot, error) {
	endpoint := fmt.Sprintf("%s/%s/%s",
		strings.TrimRight(a.cfg.BaseURL, "/"), url.PathEscape(venue.SlugOrID()), url.PathEscape(date))

	header := http.Header{}
	header.Set("Accept", "text/html")
	body, err := a.fetcher.Get(ctx, endpoint, header)
	if err != nil {
		return nil, err
	}

	rows, found, err := ParseTable(body)
	if err != nil {
		return nil, err
	}
	if !found {
		a.logger.WithFields(logrus.Fields{
			"venue": venue.ID,
			"date":  date,
		}).Warn("no availability table in tower hamlets page")
		return nil, nil
	}

	logger := a.logger.WithFields(logrus.Fields{
		"platform": model.PlatformTowerHamlets,
		"location": venue.ID,
	})
	hours := slotutil.ParseHours(venue.OperatingHours)
	slots := slotutil.Validate(ToSlots(rows, date, venue.ID), notBefore, logger)
	return slotutil.FilterHours(slots, func(string) slotutil.Hours { return hours }, logger), nil
}

// BookingURL the venue's page for the slot date
func (a *Adapter) BookingURL(slot model.CanonicalSlot) (string, bool) {
	base := a.cfg.BookingURL
	if base == "" {
		base = a.cfg.BaseURL
	}
	if base == "" {
		return "", false
	}
	for _, venue := range a.cfg.Venues {
		if venue.ID == slot.Location {
			return fmt.Sprintf("%s/%s/%s", strings.TrimRight(base, "/"), venue.SlugOrID(), slot.Date), true
		}
	}
	return "", false
}

func (a *Adapter) Locations() []interfaces.Location {
	res := make([]interfaces.Location, 0, len(a.cfg.Venues))
	for _, venue := range a.cfg.Venues {
		res = append(res, interfaces.Location{Key: venue.ID, Name: venue.Name, Platform: model.PlatformTowerHamlets})
	}
	return res
}
