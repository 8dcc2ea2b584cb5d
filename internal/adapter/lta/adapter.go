package lta

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

	"github.com/goccy/go-json"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

const defaultSlotMinutes = 60

func init() {
	adapter.Register(model.PlatformLTA, NewLTAAdapter)
}

// Adapter session-grid provider: one request per venue covering the whole date window
type Adapter struct {
	cfg     config.PlatformConfig
	fetcher *httpclient.Fetcher
	loc     *time.Location
	now     func() time.Time
	logger  *logrus.Logger
}

func NewLTAAdapter(cfg config.PlatformConfig, opts adapter.Options) interfaces.SlotAdapter {
	return newAdapter(cfg, httpclient.NewFetcher(model.PlatformLTA, &cfg, opts.Logger), opts)
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
	return model.PlatformLTA
}

// FetchAll queries every venue concurrently; a failing venue contributes nothing
func (a *Adapter) FetchAll(ctx context.Context, dates []string) ([]model.CanonicalSlot, error) {
	if len(dates) == 0 || len(a.cfg.Venues) == 0 {
		return nil, nil
	}
	notBefore := slotutil.Yesterday(a.now(), a.loc)

	results := make([][]model.CanonicalSlot, len(a.cfg.Venues))
	var g errgroup.Group
	for i, venue := range a.cfg.Venues {
		g.Go(func() error {
			slots, err := a.fetchVenue(ctx, venue, dates[0], dates[len(dates)-1], notBefore)
			if err != nil {
				a.logger.WithError(err).WithFields(logrus.Fields{
					"venue": venue.ID,
					"from":  dates[0],
					"to":    dates[len(dates)-1],
				}).Warn("lta venue fetch failed, skipping")
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
	metrics.SlotsFetched.WithLabelValues(string(model.PlatformLTA)).Add(float64(len(all)))
	a.logger.WithFields(logrus.Fields{
		"slots":    len(all),
		"venues":   len(a.cfg.Venues),
		"upstream": a.fetcher.State().String(),
	}).Info("lta fetch complete")
	return all, nil
}

func (a *Adapter) fetchVenue(ctx context.Context, venue config.VenueConfig, startDate, endDate, notBefore string) ([]model.CanonicalSlot, error) {
	q := url.Values{}
	q.Set("resourceID", "")
	q.Set("startDate", startDate)
	q.Set("endDate", endDate)
	q.Set("roleId", "")
	q.Set("_", fmt.Sprintf("%d", a.now().UnixMilli()))
	endpoint := fmt.Sprintf("%s/%s/GetVenueSessions?%s",
		strings.TrimRight(a.cfg.BaseURL, "/"), url.PathEscape(venue.SlugOrID()), q.Encode())

	header := http.Header{}
	header.Set("Accept", "application/json")
	body, err := a.fetcher.Get(ctx, endpoint, header)
	if err != nil {
		return nil, err
	}

	var resp VenueSessionsResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("decode lta sessions for %s: %w", venue.ID, err)
	}
	if len(resp.Resources) == 0 {
		a.logger.WithField("venue", venue.ID).Warn("no resources in lta response")
		return nil, nil
	}

	slots := Transform(resp, venue.ID, a.slotMinutes(venue), slotutil.ParseHours(venue.OperatingHours), notBefore,
		a.logger.WithField("platform", model.PlatformLTA))
	a.logger.WithFields(logrus.Fields{
		"venue":  venue.ID,
		"courts": len(resp.Resources),
		"slots":  len(slots),
	}).Debug("lta venue transformed")
	return slots, nil
}

func (a *Adapter) slotMinutes(venue config.VenueConfig) int {
	switch {
	case venue.SlotMinutes > 0:
		return venue.SlotMinutes
	case a.cfg.SlotMinutes > 0:
		return a.cfg.SlotMinutes
	default:
		return defaultSlotMinutes
	}
}

// BookingURL venue's book-by-date page
func (a *Adapter) BookingURL(slot model.CanonicalSlot) (string, bool) {
	if a.cfg.BookingURL == "" {
		return "", false
	}
	for _, venue := range a.cfg.Venues {
		if venue.ID == slot.Location {
			return fmt.Sprintf("%s/%s/Booking/BookByDate#?date=%s",
				strings.TrimRight(a.cfg.BookingURL, "/"), venue.SlugOrID(), slot.Date), true
		}
	}
	return "", false
}

func (a *Adapter) Locations() []interfaces.Location {
	res := make([]interfaces.Location, 0, len(a.cfg.Venues))
	for _, venue := range a.cfg.Venues {
		res = append(res, interfaces.Location{Key: venue.ID, Name: venue.Name, Platform: model.PlatformLTA})
	}
	return res
}
