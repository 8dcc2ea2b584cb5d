package service

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"CourtSync/internal/interfaces"
	"CourtSync/internal/mailer"
	"CourtSync/internal/metrics"
	"CourtSync/internal/model"
	"CourtSync/internal/utils/slotutil"

	"github.com/sirupsen/logrus"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

const longDateLayout = "Monday, 2 January 2006"

// NotificationService matches transitions against subscriptions and emails each subscriber once per run
type NotificationService struct {
	prefs    interfaces.PreferenceRepository
	mailer   interfaces.Mailer
	renderer *mailer.Renderer
	linkers  []interfaces.PlatformLinker
	names    map[string]string
	siteURL  string
	logger   *logrus.Logger
}

func NewNotificationService(
	prefs interfaces.PreferenceRepository,
	m interfaces.Mailer,
	renderer *mailer.Renderer,
	adapters []interfaces.SlotAdapter,
	siteURL string,
	logger *logrus.Logger,
) *NotificationService {
	names := make(map[string]string)
	for _, loc := range interfaces.AllLocations(adapters) {
		if loc.Name != "" {
			names[loc.Key] = loc.Name
		}
	}
	return &NotificationService{
		prefs:    prefs,
		mailer:   m,
		renderer: renderer,
		linkers:  interfaces.Linkers(adapters),
		names:    names,
		siteURL:  siteURL,
		logger:   logger,
	}
}

// GetUserPreferences all subscriptions; a read failure yields none
func (s *NotificationService) GetUserPreferences(ctx context.Context) []model.UserPreference {
	prefs, err := s.prefs.ListPreferences(ctx)
	if err != nil {
		s.logger.WithError(err).Error("read user preferences failed")
		return nil
	}
	return prefs
}

// MatchPreferences delegates to the package-level MatchPreferences
func (s *NotificationService) MatchPreferences(transitions []model.TransitionSlot, prefs []model.UserPreference) []model.UserNotification {
	return MatchPreferences(transitions, prefs)
}

// MatchPreferences groups transitions by the email of every preference on the same key.
// Preference times are compared as HH:MM:SS; groups keep first-seen email order.
func MatchPreferences(transitions []model.TransitionSlot, prefs []model.UserPreference) []model.UserNotification {
	byKey := make(map[model.SlotKey][]string)
	for _, p := range prefs {
		t, ok := slotutil.NormalizeTime(p.Time)
		if !ok {
			continue
		}
		k := model.SlotKey{Date: p.Date, Time: t, Location: p.Location}
		byKey[k] = append(byKey[k], p.Email)
	}

	var res []model.UserNotification
	index := make(map[string]int)
	for _, tr := range transitions {
		seen := make(map[string]struct{})
		for _, email := range byKey[tr.Key()] {
			if _, dup := seen[email]; dup {
				continue
			}
			seen[email] = struct{}{}
			i, ok := index[email]
			if !ok {
				i = len(res)
				index[email] = i
				res = append(res, model.UserNotification{Email: email})
			}
			res[i].Slots = append(res[i].Slots, tr)
		}
	}
	return res
}

// SendNotificationEmails one email per notification; returns how many were attempted
func (s *NotificationService) SendNotificationEmails(ctx context.Context, notifications []model.UserNotification) int {
	attempted := 0
	for _, n := range notifications {
		if len(n.Slots) == 0 {
			continue
		}
		attempted++
		slots := make([]model.TransitionSlot, len(n.Slots))
		copy(slots, n.Slots)
		sort.SliceStable(slots, func(i, j int) bool {
			if slots[i].Date != slots[j].Date {
				return slots[i].Date < slots[j].Date
			}
			return slots[i].Time < slots[j].Time
		})

		logger := s.logger.WithFields(logrus.Fields{"email": n.Email, "slots": len(slots)})
		html, err := s.renderer.Render("availability", s.availabilityData(slots))
		if err != nil {
			metrics.Notifications.WithLabelValues("failed").Inc()
			logger.WithError(err).Error("render notification email failed")
			continue
		}
		if err := s.mailer.Send(ctx, n.Email, Subject(slots), html); err != nil {
			metrics.Notifications.WithLabelValues("failed").Inc()
			logger.WithError(err).Error("send notification email failed")
			continue
		}
		metrics.Notifications.WithLabelValues("sent").Inc()
		logger.Info("notification sent")
	}
	return attempted
}

// Subject "Tennis Court Available - Monday, 3 June 2024 at 18:00" or "N Tennis Courts Now Available"
func Subject(slots []model.TransitionSlot) string {
	if len(slots) != 1 {
		return fmt.Sprintf("%d Tennis Courts Now Available", len(slots))
	}
	return fmt.Sprintf("Tennis Court Available - %s at %s", longDate(slots[0].Date), shortTime(slots[0].Time))
}

func (s *NotificationService) availabilityData(slots []model.TransitionSlot) mailer.AvailabilityData {
	data := mailer.AvailabilityData{Multiple: len(slots) > 1, SiteURL: s.siteURL}
	for _, slot := range slots {
		view := mailer.SlotView{
			Date:     longDate(slot.Date),
			Time:     shortTime(slot.Time),
			Location: s.locationName(slot.Location),
			Spaces:   slot.CurrentSpaces,
		}
		view.BookingURL, view.Provider = s.bookingLink(slot.CanonicalSlot)
		data.Slots = append(data.Slots, view)
	}
	return data
}

func (s *NotificationService) bookingLink(slot model.CanonicalSlot) (string, string) {
	for _, l := range s.linkers {
		if u, ok := l.BookingURL(slot); ok {
			return u, l.Platform.DisplayName()
		}
	}
	return "", ""
}

func (s *NotificationService) locationName(key string) string {
	if name, ok := s.names[key]; ok {
		return name
	}
	return FormatLocationName(key)
}

// FormatLocationName "islington-tennis-centre/tennis-court-outdoor" -> "Islington Tennis Centre / Tennis Court Outdoor"
func FormatLocationName(key string) string {
	caser := cases.Title(language.English)
	parts := strings.Split(key, "/")
	for i, p := range parts {
		parts[i] = caser.String(strings.ReplaceAll(p, "-", " "))
	}
	return strings.Join(parts, " / ")
}

func longDate(date string) string {
	d, err := time.Parse(slotutil.DateLayout, date)
	if err != nil {
		return date
	}
	return d.Format(longDateLayout)
}

func shortTime(t string) string {
	if len(t) >= 5 {
		return t[:5]
	}
	return t
}
