package better

import (
	"bytes"
	"fmt"
	"sort"
	"strconv"

	"github.com/goccy/go-json"
)

// TimeSlot one element of the times endpoint; only the fields the pipeline needs
type TimeSlot struct {
	StartsAt struct {
		Format12Hour string `json:"format_12_hour"`
		Format24Hour string `json:"format_24_hour"`
	} `json:"starts_at"`
	EndsAt struct {
		Format24Hour string `json:"format_24_hour"`
	} `json:"ends_at"`
	Timestamp *float64 `json:"timestamp"`
	Date      string   `json:"date"`
	Spaces    *float64 `json:"spaces"`
	Name      string   `json:"name"`
	VenueSlug string   `json:"venue_slug"`
}

// Shape which of the known payload layouts a response used
type Shape int

const (
	ShapeUnknown  Shape = iota
	ShapeDataList       // {"data": [ ... ]}
	ShapeDataMap        // {"data": {"4": {...}, "5": {...}}}, seen for today once some times have passed
	ShapeRootList       // [ ... ]
)

func (s Shape) String() string {
	switch s {
	case ShapeDataList:
		return "data-list"
	case ShapeDataMap:
		return "data-map"
	case ShapeRootList:
		return "root-list"
	default:
		return "unknown"
	}
}

// DecodeTimes detects the payload shape and coerces it to one ordered list of raw elements.
// Elements that are not objects are kept as raw values and rejected later by validation.
// An unrecognised shape yields ShapeUnknown and no elements, not an error.
func DecodeTimes(body []byte) ([]json.RawMessage, Shape, error) {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 {
		return nil, ShapeUnknown, fmt.Errorf("empty response body")
	}

	switch trimmed[0] {
	case '[':
		var items []json.RawMessage
		if err := json.Unmarshal(trimmed, &items); err != nil {
			return nil, ShapeUnknown, fmt.Errorf("decode root list: %w", err)
		}
		return items, ShapeRootList, nil
	case '{':
	default:
		return nil, ShapeUnknown, nil
	}

	var envelope struct {
		Data json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(trimmed, &envelope); err != nil {
		return nil, ShapeUnknown, fmt.Errorf("decode envelope: %w", err)
	}
	data := bytes.TrimSpace(envelope.Data)
	if len(data) == 0 {
		return nil, ShapeUnknown, nil
	}

	switch data[0] {
	case '[':
		var items []json.RawMessage
		if err := json.Unmarshal(data, &items); err != nil {
			return nil, ShapeUnknown, fmt.Errorf("decode data list: %w", err)
		}
		return items, ShapeDataList, nil
	case '{':
		var byIndex map[string]json.RawMessage
		if err := json.Unmarshal(data, &byIndex); err != nil {
			return nil, ShapeUnknown, fmt.Errorf("decode data map: %w", err)
		}
		keys := make([]string, 0, len(byIndex))
		for k := range byIndex {
			keys = append(keys, k)
		}
		sortIndexKeys(keys)
		items := make([]json.RawMessage, 0, len(keys))
		for _, k := range keys {
			items = append(items, byIndex[k])
		}
		return items, ShapeDataMap, nil
	default:
		return nil, ShapeUnknown, nil
	}
}

// sortIndexKeys numeric keys ascending first, then the rest lexically
func sortIndexKeys(keys []string) {
	sort.Slice(keys, func(i, j int) bool {
		a, errA := strconv.Atoi(keys[i])
		b, errB := strconv.Atoi(keys[j])
		switch {
		case errA == nil && errB == nil:
			return a < b
		case errA == nil:
			return true
		case errB == nil:
			return false
		default:
			return keys[i] < keys[j]
		}
	})
}

// ParseTimeSlots decodes each raw element; undecodable elements come back as nil
func ParseTimeSlots(items []json.RawMessage) []*TimeSlot {
	res := make([]*TimeSlot, 0, len(items))
	for _, item := range items {
		trimmed := bytes.TrimSpace(item)
		if len(trimmed) == 0 || trimmed[0] != '{' {
			res = append(res, nil)
			continue
		}
		var ts TimeSlot
		if err := json.Unmarshal(trimmed, &ts); err != nil {
			res = append(res, nil)
			continue
		}
		res = append(res, &ts)
	}
	return res
}
