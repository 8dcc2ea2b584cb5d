package better

import (
	"math"
	"time"

	"CourtSync/internal/model"
	"CourtSync/internal/utils/slotutil"

	"github.com/sirupsen/logrus"
)

// Target the venue/activity a response belongs to
type Target struct {
	VenueID    string
	ActivityID string
	Hours      slotutil.Hours
}

// Location natural-key location: venueId/activityId
func (t Target) Location() string {
	return t.VenueID + "/" + t.ActivityID
}

// Transformer pure raw -> canonical conversion for one provider response
type Transformer struct {
	Location  *time.Location
	NotBefore string
	Logger    logrus.FieldLogger
}

// Transform validates raw elements, converts them, then applies canonical validation,
// dedup and the operating-hours window of the target.
func (t Transformer) Transform(items []*TimeSlot, target Target) []model.CanonicalSlot {
	location := target.Location()
	logger := t.Logger.WithField("location", location)

	slots := make([]model.CanonicalSlot, 0, len(items))
	for i, item := range items {
		slot, ok := t.convert(item, location)
		if !ok {
			logger.WithField("index", i).Warn("skipping raw slot without date, spaces or start time")
			continue
		}
		slots = append(slots, slot)
	}

	slots = slotutil.Validate(slots, t.NotBefore, logger)
	return slotutil.FilterHours(slots, func(string) slotutil.Hours { return target.Hours }, logger)
}

func (t Transformer) convert(item *TimeSlot, location string) (model.CanonicalSlot, bool) {
	if item == nil || item.Date == "" || item.Spaces == nil {
		return model.CanonicalSlot{}, false
	}
	spaces := *item.Spaces
	if spaces < 0 || spaces != math.Trunc(spaces) {
		return model.CanonicalSlot{}, false
	}

	var clock string
	switch {
	case item.StartsAt.Format24Hour != "":
		normalized, ok := slotutil.NormalizeTime(item.StartsAt.Format24Hour)
		if !ok {
			return model.CanonicalSlot{}, false
		}
		clock = normalized
	case item.Timestamp != nil && *item.Timestamp > 0:
		loc := t.Location
		if loc == nil {
			loc = time.UTC
		}
		clock = time.Unix(int64(*item.Timestamp), 0).In(loc).Format("15:04:05")
	default:
		return model.CanonicalSlot{}, false
	}

	return model.CanonicalSlot{
		Date:     item.Date,
		Time:     clock,
		Location: location,
		Spaces:   int(spaces),
	}, true
}
