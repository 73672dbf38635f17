package sources

import (
	"os"
	"path/filepath"
	"testing"
)

func writeConfigFile(t *testing.T, dir, name, content string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0644); err != nil {
		t.Fatalf("Failed to write config file: %v", err)
	}
}

func TestLoadConfigDefaults(t *testing.T) {
	dir := t.TempDir()
	writeConfigFile(t, dir, "council-feed.yml", `
kind: rss
url: https://example.com/news/rss
publisher: Cascade Daily
settings:
  enabled: true
`)

	cc := NewConfigCache(dir)
	config, err := cc.LoadConfig("council-feed")
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}

	if config.Name != "council-feed" {
		t.Errorf("Expected name 'council-feed', got: %s", config.Name)
	}
	if config.Kind != KindRSS {
		t.Errorf("Expected kind 'rss', got: %s", config.Kind)
	}
	if config.Settings.RefreshInterval != 3600 {
		t.Errorf("Expected default refresh interval 3600, got: %d", config.Settings.RefreshInterval)
	}
	if config.Settings.MaxItems != 100 {
		t.Errorf("Expected default max items 100, got: %d", config.Settings.MaxItems)
	}
	if config.Settings.Timeout != 30 {
		t.Errorf("Expected default timeout 30, got: %d", config.Settings.Timeout)
	}
}

func TestLoadConfigInvalidKind(t *testing.T) {
	dir := t.TempDir()
	writeConfigFile(t, dir, "bad.yml", `
kind: ftp
url: ftp://example.com
`)

	cc := NewConfigCache(dir)
	if _, err := cc.LoadConfig("bad"); err == nil {
		t.Error("Expected error for invalid source kind")
	}
}

func TestLoadConfigGISRequiresDataset(t *testing.T) {
	dir := t.TempDir()
	writeConfigFile(t, dir, "parcels.yml", `
kind: gis
url: https://gis.example.com/parcels.geojson
`)

	cc := NewConfigCache(dir)
	if _, err := cc.LoadConfig("parcels"); err == nil {
		t.Error("Expected error for gis source without dataset")
	}

	writeConfigFile(t, dir, "parcels.yml", `
kind: gis
url: https://gis.example.com/parcels.geojson
dataset: county_parcels
`)
	if _, err := cc.LoadConfig("parcels"); err != nil {
		t.Errorf("Expected no error with dataset set, got: %v", err)
	}
}

func TestRunLoadsAllConfigs(t *testing.T) {
	dir := t.TempDir()
	writeConfigFile(t, dir, "meetings.yml", `
kind: legistar_api
url: https://webapi.legistar.com/v1/whatcomwa/events
settings:
  enabled: true
`)
	writeConfigFile(t, dir, "news.yml", `
kind: rss
url: https://example.com/rss
settings:
  enabled: false
`)

	cc := NewConfigCache(dir)
	if err := cc.Run(); err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}

	if cc.GetConfigCount() != 2 {
		t.Errorf("Expected 2 configs, got: %d", cc.GetConfigCount())
	}
	if len(cc.GetEnabledConfigs()) != 1 {
		t.Errorf("Expected 1 enabled config, got: %d", len(cc.GetEnabledConfigs()))
	}

	if _, err := cc.GetConfig("meetings"); err != nil {
		t.Errorf("Expected meetings config to be cached, got: %v", err)
	}
	if _, err := cc.GetConfig("missing"); err == nil {
		t.Error("Expected error for unknown source name")
	}
}

func TestRunMissingDirectory(t *testing.T) {
	cc := NewConfigCache("/nonexistent/sources")
	if err := cc.Run(); err != nil {
		t.Errorf("Expected no error for missing directory, got: %v", err)
	}
	if cc.GetConfigCount() != 0 {
		t.Errorf("Expected 0 configs, got: %d", cc.GetConfigCount())
	}
}
