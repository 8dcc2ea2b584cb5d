// Package slotutil holds the canonicalisation steps shared by every provider adapter:
// time normalisation, operating-hours windows, validation and natural-key dedup.
package slotutil

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"CourtSync/internal/config"
	"CourtSync/internal/model"

	"github.com/sirupsen/logrus"
)

const DateLayout = "2006-01-02"

var (
	dateRe     = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)
	timeRe     = regexp.MustCompile(`^\d{2}:\d{2}:\d{2}$`)
	meridiemRe = regexp.MustCompile(`(?i)(\d{1,2})\s*(am|pm)`)
)

// NormalizeTime HH:MM or HH:MM:SS -> HH:MM:SS
func NormalizeTime(t string) (string, bool) {
	t = strings.TrimSpace(t)
	parts := strings.Split(t, ":")
	switch len(parts) {
	case 2:
		parts = append(parts, "00")
	case 3:
	default:
		return "", false
	}
	var vals [3]int
	for i, p := range parts {
		n, err := strconv.Atoi(p)
		if err != nil || len(p) > 2 || n < 0 {
			return "", false
		}
		vals[i] = n
	}
	if vals[0] > 23 || vals[1] > 59 || vals[2] > 59 {
		return "", false
	}
	return fmt.Sprintf("%02d:%02d:%02d", vals[0], vals[1], vals[2]), true
}

// MinutesToTime minutes since midnight -> HH:MM:SS
func MinutesToTime(minutes int) string {
	return fmt.Sprintf("%02d:%02d:00", minutes/60, minutes%60)
}

// ParseHourMeridiem "7pm" -> "19:00", "12am" -> "00:00"
func ParseHourMeridiem(text string) (string, bool) {
	m := meridiemRe.FindStringSubmatch(text)
	if m == nil {
		return "", false
	}
	hour, err := strconv.Atoi(m[1])
	if err != nil || hour < 1 || hour > 12 {
		return "", false
	}
	switch strings.ToLower(m[2]) {
	case "pm":
		if hour != 12 {
			hour += 12
		}
	case "am":
		if hour == 12 {
			hour = 0
		}
	}
	return fmt.Sprintf("%02d:00", hour), true
}

// DateRange consecutive YYYY-MM-DD dates starting at start, in start's location
func DateRange(start time.Time, days int) []string {
	dates := make([]string, 0, days)
	for i := 0; i < days; i++ {
		dates = append(dates, start.AddDate(0, 0, i).Format(DateLayout))
	}
	return dates
}

// Yesterday oldest date a slot may carry and still be kept
func Yesterday(now time.Time, loc *time.Location) string {
	return now.In(loc).AddDate(0, 0, -1).Format(DateLayout)
}

// Hours parsed opening window in minutes since midnight; unset means always open
type Hours struct {
	start, end int
	bounded    bool
}

// ParseHours an unparseable or empty window is treated as unbounded
func ParseHours(h config.OperatingHours) Hours {
	start, okStart := clockMinutes(h.Start)
	end, okEnd := clockMinutes(h.End)
	if !okStart || !okEnd {
		return Hours{}
	}
	return Hours{start: start, end: end, bounded: true}
}

// Contains both ends inclusive; a time that cannot be parsed is outside
func (h Hours) Contains(t string) bool {
	m, ok := clockMinutes(t)
	if !ok {
		return false
	}
	if !h.bounded {
		return true
	}
	return m >= h.start && m <= h.end
}

func (h Hours) String() string {
	if !h.bounded {
		return "always"
	}
	return fmt.Sprintf("%s-%s", MinutesToTime(h.start)[:5], MinutesToTime(h.end)[:5])
}

func clockMinutes(t string) (int, bool) {
	parts := strings.Split(strings.TrimSpace(t), ":")
	if len(parts) < 2 {
		return 0, false
	}
	h, err := strconv.Atoi(parts[0])
	if err != nil {
		return 0, false
	}
	m, err := strconv.Atoi(parts[1])
	if err != nil {
		return 0, false
	}
	return h*60 + m, true
}

// FilterHours drops slots outside the window resolved for their location
func FilterHours(slots []model.CanonicalSlot, hoursFor func(location string) Hours, logger logrus.FieldLogger) []model.CanonicalSlot {
	res := make([]model.CanonicalSlot, 0, len(slots))
	for _, s := range slots {
		h := hoursFor(s.Location)
		if !h.Contains(s.Time) {
			logger.WithFields(logrus.Fields{
				"location": s.Location,
				"time":     s.Time,
				"hours":    h.String(),
			}).Debug("slot outside operating hours, dropped")
			continue
		}
		res = append(res, s)
	}
	return res
}

// Validate drops malformed slots and duplicate natural keys (first one wins).
// notBefore is the oldest acceptable date; it is passed in so the result only depends on the input.
func Validate(slots []model.CanonicalSlot, notBefore string, logger logrus.FieldLogger) []model.CanonicalSlot {
	valid := make([]model.CanonicalSlot, 0, len(slots))
	for i, s := range slots {
		if reason := invalidReason(s, notBefore); reason != "" {
			logger.WithFields(logrus.Fields{
				"index":    i,
				"date":     s.Date,
				"time":     s.Time,
				"location": s.Location,
				"spaces":   s.Spaces,
			}).Warnf("invalid slot dropped: %s", reason)
			continue
		}
		valid = append(valid, s)
	}
	res := Dedup(valid)
	if n := len(valid) - len(res); n > 0 {
		logger.WithField("duplicates", n).Warn("duplicate slots removed")
	}
	return res
}

// Dedup keeps the first slot for each natural key, preserving order
func Dedup(slots []model.CanonicalSlot) []model.CanonicalSlot {
	res := make([]model.CanonicalSlot, 0, len(slots))
	seen := make(map[model.SlotKey]struct{}, len(slots))
	for _, s := range slots {
		k := s.Key()
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		res = append(res, s)
	}
	return res
}

func invalidReason(s model.CanonicalSlot, notBefore string) string {
	switch {
	case !dateRe.MatchString(s.Date):
		return "bad date format"
	case !timeRe.MatchString(s.Time):
		return "bad time format"
	case s.Spaces < 0:
		return "negative spaces"
	case strings.TrimSpace(s.Location) == "":
		return "empty location"
	}
	if _, err := time.Parse(DateLayout, s.Date); err != nil {
		return "bad date value"
	}
	if notBefore != "" && s.Date < notBefore {
		return "date in the past"
	}
	if _, ok := NormalizeTime(s.Time); !ok {
		return "bad time value"
	}
	return ""
}
