package interfaces

import "CourtSync/internal/model"

// PlatformLinker booking-link capability tagged with its provider
type PlatformLinker struct {
	Platform model.PlatformType
	BookingLinker
}

// Linkers collects the adapters that can build booking links
func Linkers(adapters []SlotAdapter) []PlatformLinker {
	var res []PlatformLinker
	for _, a := range adapters {
		if l, ok := a.(BookingLinker); ok {
			res = append(res, PlatformLinker{Platform: a.GetType(), BookingLinker: l})
		}
	}
	return res
}

// AllLocations flattens the locations of every adapter that can list them
func AllLocations(adapters []SlotAdapter) []Location {
	var res []Location
	for _, a := range adapters {
		if l, ok := a.(LocationLister); ok {
			res = append(res, l.Locations()...)
		}
	}
	return res
}
