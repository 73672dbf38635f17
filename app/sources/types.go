package sources

import (
	"time"
)

// Kind selects which adapter implementation serves a configured source.
type Kind string

const (
	KindLegistarAPI  Kind = "legistar_api"
	KindLegistarHTML Kind = "legistar_html"
	KindRSS          Kind = "rss"
	KindGIS          Kind = "gis"
)

func (k Kind) Valid() bool {
	switch k {
	case KindLegistarAPI, KindLegistarHTML, KindRSS, KindGIS:
		return true
	default:
		return false
	}
}

// Config describes one upstream source. Name is derived from the config
// filename and doubles as the adapter's source_id namespace.
type Config struct {
	Name      string         // Derived from filename (without .yml extension)
	Kind      Kind           `yaml:"kind"`
	URL       string         `yaml:"url"`
	Dataset   string         `yaml:"dataset"`   // gis only: dataset name for identifiers
	Publisher string         `yaml:"publisher"` // rss only: publisher attribution
	Settings  ConfigSettings `yaml:"settings"`
}

type ConfigSettings struct {
	Enabled         bool `yaml:"enabled"`
	RefreshInterval int  `yaml:"refresh_interval"` // seconds
	MaxItems        int  `yaml:"max_items"`
	Timeout         int  `yaml:"timeout"` // seconds, per discover/fetch request
}

func (s *ConfigSettings) GetRefreshInterval() time.Duration {
	if s.RefreshInterval <= 0 {
		return 3600 * time.Second
	}
	return time.Duration(s.RefreshInterval) * time.Second
}

func (s *ConfigSettings) GetTimeout() time.Duration {
	if s.Timeout <= 0 {
		return 30 * time.Second
	}
	return time.Duration(s.Timeout) * time.Second
}
