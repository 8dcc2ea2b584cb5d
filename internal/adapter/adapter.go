// internal/adapter/adapter.go
package adapter

import (
	"CourtSync/internal/config"
	"CourtSync/internal/interfaces"
	"CourtSync/internal/model"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// Options construction inputs shared by every provider adapter
type Options struct {
	Location *time.Location   // venue wall-clock timezone
	Now      func() time.Time // clock, replaced in tests
	Logger   *logrus.Logger
}

// Factory builds an adapter from its immutable provider config
type Factory func(cfg config.PlatformConfig, opts Options) interfaces.SlotAdapter

var (
	factoryMu       sync.RWMutex
	factoryRegistry = make(map[model.PlatformType]Factory)
)

// Register called from each provider package's init
func Register(platform model.PlatformType, factory Factory) {
	if factory == nil {
		panic(fmt.Sprintf("adapter factory for %s is nil", platform))
	}
	factoryMu.Lock()
	defer factoryMu.Unlock()
	if _, exists := factoryRegistry[platform]; exists {
		logrus.Warnf("adapter for %s registered twice, replacing", platform)
	}
	factoryRegistry[platform] = factory
}

// GetFactory factory registered for a provider
func GetFactory(platform model.PlatformType) (Factory, bool) {
	factoryMu.RLock()
	defer factoryMu.RUnlock()
	factory, ok := factoryRegistry[platform]
	return factory, ok
}

// ListFactories registered providers, sorted
func ListFactories() []model.PlatformType {
	factoryMu.RLock()
	defer factoryMu.RUnlock()
	platforms := make([]model.PlatformType, 0, len(factoryRegistry))
	for p := range factoryRegistry {
		platforms = append(platforms, p)
	}
	sort.Slice(platforms, func(i, j int) bool { return platforms[i] < platforms[j] })
	return platforms
}
