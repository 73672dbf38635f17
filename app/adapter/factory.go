package adapter

import (
	"fmt"
	"net/http"

	"github.com/openwhatcom/civicstream/app/sources"
)

// New builds the adapter matching a source configuration. The source name
// becomes the adapter's source_id, so every configured source owns a
// disjoint identifier namespace.
func New(config *sources.Config, client *http.Client, userAgent string) (SourceAdapter, error) {
	timeout := config.Settings.GetTimeout()

	switch config.Kind {
	case sources.KindLegistarAPI:
		return NewLegistarAPI(config.Name, config.URL, client, userAgent, timeout, config.Settings.MaxItems), nil
	case sources.KindLegistarHTML:
		return NewLegistarHTML(config.Name, config.URL, client, userAgent, timeout, config.Settings.MaxItems), nil
	case sources.KindRSS:
		return NewRSS(config.Name, config.URL, config.Publisher, client, userAgent, timeout, config.Settings.MaxItems), nil
	case sources.KindGIS:
		return NewGIS(config.Name, config.URL, config.Dataset, client, userAgent, timeout), nil
	default:
		return nil, fmt.Errorf("unsupported source kind: %s", config.Kind)
	}
}
