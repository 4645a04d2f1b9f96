package handlers

import (
	"github.com/devpulse/devpulse/internal/config"
	"github.com/devpulse/devpulse/internal/governor"
	"github.com/devpulse/devpulse/internal/store"
)

type Dependencies struct {
	Config    *config.Config
	Conns     *store.Connections
	Governor  *governor.Governor
	History   *store.HistoryStore
	Platforms []string
}

// governedPlatform reports whether a platform is one this deployment polls.
func (d *Dependencies) governedPlatform(platform string) bool {
	for _, p := range d.Platforms {
		if p == platform {
			return true
		}
	}
	return false
}
