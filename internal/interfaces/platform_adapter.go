package interfaces

import (
	"context"

	"CourtSync/internal/model"
)

// SlotAdapter every upstream booking provider implements this
type SlotAdapter interface {
	GetType() model.PlatformType
	// FetchAll fetches every configured venue for the given dates and returns canonical slots.
	// Per-request failures are logged and skipped; an error means the whole provider is unusable.
	FetchAll(ctx context.Context, dates []string) ([]model.CanonicalSlot, error)
}

// BookingLinker optional capability: public booking page for a slot owned by the provider
type BookingLinker interface {
	BookingURL(slot model.CanonicalSlot) (string, bool)
}

// LocationLister optional capability: location keys the provider emits, for the selection UI
type LocationLister interface {
	Locations() []Location
}

// Location one selectable location key
type Location struct {
	Key      string             `json:"key"`
	Name     string             `json:"name"`
	Platform model.PlatformType `json:"platform"`
}

// SlotRepository snapshot persistence
type SlotRepository interface {
	ListSlots(ctx context.Context) ([]model.StoredSlot, error)
	ReplaceSlots(ctx context.Context, slots []model.CanonicalSlot) error
}

// PreferenceRepository user subscriptions
type PreferenceRepository interface {
	ListPreferences(ctx context.Context) ([]model.UserPreference, error)
	ListPreferencesByEmail(ctx context.Context, email string) ([]model.UserPreference, error)
	ReplacePreferences(ctx context.Context, email string, prefs []model.UserPreference) error
}

// RunRepository pipeline run history
type RunRepository interface {
	SaveRun(ctx context.Context, run *model.SyncRun) error
}

// Mailer outbound email: send(to, subject, html) -> ok|error
type Mailer interface {
	Send(ctx context.Context, to, subject, html string) error
}
