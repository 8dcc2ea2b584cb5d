package model

// PlatformType upstream booking provider
type PlatformType string

const (
	PlatformBetter       PlatformType = "better"       // JSON array/object-hybrid per venue+activity+date
	PlatformLTA          PlatformType = "lta"          // minute-indexed session grid per venue
	PlatformTowerHamlets PlatformType = "towerhamlets" // scraped HTML availability table per venue+date
)

// DisplayName provider label used in emails
func (p PlatformType) DisplayName() string {
	switch p {
	case PlatformBetter:
		return "Better"
	case PlatformLTA:
		return "LTA ClubSpark"
	case PlatformTowerHamlets:
		return "Tower Hamlets"
	default:
		return "Booking"
	}
}
