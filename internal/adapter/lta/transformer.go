package lta

import (
	"sort"
	"strings"

	"CourtSync/internal/model"
	"CourtSync/internal/utils/slotutil"

	"github.com/sirupsen/logrus"
)

// VenueSessionsResponse GetVenueSessions payload
type VenueSessionsResponse struct {
	Resources []Resource `json:"Resources"`
}

// Resource one physical court
type Resource struct {
	Name string `json:"Name"`
	Days []Day  `json:"Days"`
}

// Day sessions of one court on one date
type Day struct {
	Date     string    `json:"Date"` // ISO date, optionally with a time part
	Sessions []Session `json:"Sessions"`
}

// Session a bookable span in minutes from midnight; Capacity 1 = free, 0 = booked
type Session struct {
	Name      string `json:"Name"`
	Category  int    `json:"Category"`
	StartTime int    `json:"StartTime"`
	EndTime   int    `json:"EndTime"`
	Capacity  int    `json:"Capacity"`
}

// BucketKey one fixed-width time bucket on one date
type BucketKey struct {
	Date string
	Time string
}

// Bucket courts seen in a bucket across all resources, and how many of them were free
type Bucket struct {
	Total     int
	Available int
}

// Aggregate explodes sessions into slotMinutes-wide buckets and counts them across every resource
func Aggregate(resp VenueSessionsResponse, slotMinutes int) map[BucketKey]*Bucket {
	buckets := make(map[BucketKey]*Bucket)
	if slotMinutes <= 0 {
		return buckets
	}
	for _, resource := range resp.Resources {
		for _, day := range resource.Days {
			date, _, _ := strings.Cut(day.Date, "T")
			for _, session := range day.Sessions {
				span := session.EndTime - session.StartTime
				if span <= 0 {
					continue
				}
				for i := 0; i < span/slotMinutes; i++ {
					key := BucketKey{Date: date, Time: slotutil.MinutesToTime(session.StartTime + i*slotMinutes)}
					b, ok := buckets[key]
					if !ok {
						b = &Bucket{}
						buckets[key] = b
					}
					b.Total++
					if session.Capacity == 1 {
						b.Available++
					}
				}
			}
		}
	}
	return buckets
}

// Transform one canonical slot per (date, bucket) with spaces = free courts, sorted by date then time
func Transform(resp VenueSessionsResponse, venueID string, slotMinutes int, hours slotutil.Hours, notBefore string, logger logrus.FieldLogger) []model.CanonicalSlot {
	buckets := Aggregate(resp, slotMinutes)
	keys := make([]BucketKey, 0, len(buckets))
	for k := range buckets {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].Date != keys[j].Date {
			return keys[i].Date < keys[j].Date
		}
		return keys[i].Time < keys[j].Time
	})

	slots := make([]model.CanonicalSlot, 0, len(keys))
	for _, k := range keys {
		slots = append(slots, model.CanonicalSlot{
			Date:     k.Date,
			Time:     k.Time,
			Location: venueID,
			Spaces:   buckets[k].Available,
		})
	}

	logger = logger.WithField("location", venueID)
	slots = slotutil.Validate(slots, notBefore, logger)
	return slotutil.FilterHours(slots, func(string) slotutil.Hours { return hours }, logger)
}
