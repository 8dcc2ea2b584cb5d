package config

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func validConfig() *Config {
	return &Config{
		Sync: SyncConfig{DaysToFetch: 6, MaxDays: 30, Timezone: "Europe/London"},
		Platforms: map[string]PlatformConfig{
			"lta": {BaseURL: "https://clubspark.example", Venues: []VenueConfig{{ID: "finsbury-park"}}},
		},
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr bool
	}{
		{name: "valid", mutate: func(*Config) {}},
		{name: "non positive days", mutate: func(c *Config) { c.Sync.DaysToFetch = 0 }, wantErr: true},
		{name: "max below default", mutate: func(c *Config) { c.Sync.MaxDays = 3 }, wantErr: true},
		{name: "bad timezone", mutate: func(c *Config) { c.Sync.Timezone = "Mars/Olympus" }, wantErr: true},
		{name: "missing base url", mutate: func(c *Config) {
			c.Platforms["lta"] = PlatformConfig{}
		}, wantErr: true},
		{name: "duplicate venue", mutate: func(c *Config) {
			c.Platforms["lta"] = PlatformConfig{BaseURL: "x", Venues: []VenueConfig{{ID: "a"}, {ID: "a"}}}
		}, wantErr: true},
		{name: "same venue id on two providers", mutate: func(c *Config) {
			c.Platforms["lta"] = PlatformConfig{BaseURL: "x", Venues: []VenueConfig{{ID: "victoria-park"}}}
			c.Platforms["towerhamlets"] = PlatformConfig{BaseURL: "y", Venues: []VenueConfig{{ID: "victoria-park"}}}
		}, wantErr: true},
		{name: "activity key collides with another provider", mutate: func(c *Config) {
			c.Platforms["better"] = PlatformConfig{BaseURL: "x", Venues: []VenueConfig{{
				ID:         "islington",
				Activities: []ActivityConfig{{ID: "outdoor"}},
			}}}
			c.Platforms["lta"] = PlatformConfig{BaseURL: "y", Venues: []VenueConfig{{ID: "islington/outdoor"}}}
		}, wantErr: true},
		{name: "duplicate activity", mutate: func(c *Config) {
			c.Platforms["better"] = PlatformConfig{BaseURL: "x", Venues: []VenueConfig{{
				ID:         "islington",
				Activities: []ActivityConfig{{ID: "outdoor"}, {ID: "outdoor"}},
			}}}
		}, wantErr: true},
		{name: "distinct keys across providers", mutate: func(c *Config) {
			c.Platforms["better"] = PlatformConfig{BaseURL: "x", Venues: []VenueConfig{{
				ID:         "finsbury-park",
				Activities: []ActivityConfig{{ID: "outdoor"}},
			}}}
			c.Platforms["towerhamlets"] = PlatformConfig{BaseURL: "y", Venues: []VenueConfig{{ID: "victoria-park"}}}
		}},
		{name: "venue without id", mutate: func(c *Config) {
			c.Platforms["lta"] = PlatformConfig{BaseURL: "x", Venues: []VenueConfig{{Slug: "A"}}}
		}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := validConfig()
			tt.mutate(c)
			err := c.Validate()
			if tt.wantErr {
				require.Error(t, err)
			} else {
				require.NoError(t, err)
			}
		})
	}
}

func TestPlatformConfig_LocationKeys(t *testing.T) {
	p := PlatformConfig{Venues: []VenueConfig{
		{ID: "islington", Activities: []ActivityConfig{{ID: "outdoor"}, {ID: "indoor"}}},
		{ID: "victoria-park"},
	}}
	require.Equal(t, []string{"islington/outdoor", "islington/indoor", "victoria-park"}, p.LocationKeys())
}

func TestOverrideFromEnv(t *testing.T) {
	t.Setenv("DATABASE_DSN", "postgres://env/courtsync")
	t.Setenv("LTA_BASE_URL", "https://override.example")
	t.Setenv("SES_REGION", "eu-west-1")

	c := validConfig()
	overrideFromEnv(c)
	require.Equal(t, "postgres://env/courtsync", c.Database.DSN)
	require.Equal(t, "https://override.example", c.Platforms["lta"].BaseURL)
	require.Equal(t, "eu-west-1", c.Email.SES.Region)
}

func TestSlugOrID(t *testing.T) {
	require.Equal(t, "FinsburyPark", VenueConfig{ID: "finsbury-park", Slug: "FinsburyPark"}.SlugOrID())
	require.Equal(t, "finsbury-park", VenueConfig{ID: "finsbury-park"}.SlugOrID())
	require.Equal(t, "tennis", ActivityConfig{ID: "tennis"}.SlugOrID())
}
