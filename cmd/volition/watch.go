package main

import (
	"github.com/jordanhubbard/volition/internal/config"
	"github.com/jordanhubbard/volition/internal/engine"
)

// newConfigWatcher hooks the config file watcher to the engine's hot reload.
func newConfigWatcher(cfgPath string, eng *engine.Engine) (*config.Watcher, error) {
	return config.NewWatcher(cfgPath, func(cfg *config.Config) {
		eng.SetConfig(cfg)
	})
}
