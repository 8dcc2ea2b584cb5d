package adapter

import (
	"CourtSync/internal/config"
	"CourtSync/internal/interfaces"
	"CourtSync/internal/model"
	"fmt"
	"sort"

	"github.com/sirupsen/logrus"
)

// PlatformRegistry adapter instances for the providers present in the config
type PlatformRegistry struct {
	cfg      *config.Config
	opts     Options
	logger   *logrus.Logger
	adapters map[model.PlatformType]interfaces.SlotAdapter
}

func NewPlatformRegistry(cfg *config.Config, opts Options) *PlatformRegistry {
	r := &PlatformRegistry{
		cfg:      cfg,
		opts:     opts,
		logger:   opts.Logger,
		adapters: make(map[model.PlatformType]interfaces.SlotAdapter),
	}
	r.initAdaptersFromFactories()
	return r
}

// initAdaptersFromFactories matches configured providers to registered factories
func (r *PlatformRegistry) initAdaptersFromFactories() {
	r.logger.WithField("factory_platforms", ListFactories()).Debug("registered adapter factories")

	for name, platformCfg := range r.cfg.Platforms {
		platformType := model.PlatformType(name)

		factory, ok := GetFactory(platformType)
		if !ok {
			r.logger.WithField("platform", name).Error("no adapter factory registered for configured platform")
			continue
		}

		adapterIns := factory(platformCfg, r.opts)
		if adapterIns == nil {
			r.logger.WithField("platform", name).Error("adapter factory returned nil")
			continue
		}
		if adapterIns.GetType() != platformType {
			r.logger.WithFields(logrus.Fields{
				"config_platform":  name,
				"adapter_platform": adapterIns.GetType(),
			}).Error("adapter type does not match config key")
			continue
		}

		r.adapters[platformType] = adapterIns
		r.logger.WithFields(logrus.Fields{
			"platform": name,
			"venues":   len(platformCfg.Venues),
		}).Info("adapter initialised")
	}
}

// ListRegisteredPlatforms initialised providers, sorted
func (r *PlatformRegistry) ListRegisteredPlatforms() []model.PlatformType {
	platforms := make([]model.PlatformType, 0, len(r.adapters))
	for p := range r.adapters {
		platforms = append(platforms, p)
	}
	sort.Slice(platforms, func(i, j int) bool { return platforms[i] < platforms[j] })
	return platforms
}

// Adapters initialised adapters in provider-name order
func (r *PlatformRegistry) Adapters() []interfaces.SlotAdapter {
	res := make([]interfaces.SlotAdapter, 0, len(r.adapters))
	for _, p := range r.ListRegisteredPlatforms() {
		res = append(res, r.adapters[p])
	}
	return res
}

// GetAdapter adapter instance for one provider
func (r *PlatformRegistry) GetAdapter(platform model.PlatformType) (interfaces.SlotAdapter, error) {
	adapterIns, ok := r.adapters[platform]
	if !ok {
		return nil, fmt.Errorf("platform %s has no adapter (initialised: %v)", platform, r.ListRegisteredPlatforms())
	}
	return adapterIns, nil
}

// GetPlatformCount number of initialised adapters
func (r *PlatformRegistry) GetPlatformCount() int {
	return len(r.adapters)
}
