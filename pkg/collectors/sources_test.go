package collectors

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadRegistryYAML(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "collectors.yaml")
	content := `
sources:
  - id: ppra
    name: PPRA Active Tenders
    type: ppra_listing
    source_url: https://ppra.example.org/active-tenders
    request_delay_ms: 750
    config:
      city_param: city
`
	if err := os.WriteFile(file, []byte(content), 0o644); err != nil {
		t.Fatalf("write collectors file: %v", err)
	}

	reg, err := LoadRegistry(file)
	if err != nil {
		t.Fatalf("LoadRegistry: %v", err)
	}
	if len(reg.All()) != 1 {
		t.Fatalf("expected 1 source, got %d", len(reg.All()))
	}

	s, ok := reg.ByID("ppra")
	if !ok {
		t.Fatalf("expected source id ppra to be loaded")
	}
	if s.SourceURL != "https://ppra.example.org/active-tenders" {
		t.Fatalf("unexpected source_url: %s", s.SourceURL)
	}
	if s.RequestDelay() != 750*time.Millisecond {
		t.Fatalf("unexpected request delay: %v", s.RequestDelay())
	}
	if ConfigString(s, ConfigCityParamKey, "") != "city" {
		t.Fatalf("city_param not loaded: %#v", s.Config)
	}
}

func TestLoadRegistryDuplicateID(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "collectors.yaml")
	content := `
sources:
  - id: duplicate
    name: Source One
    type: ppra_listing
    source_url: https://p1.example
  - id: duplicate
    name: Source Two
    type: ppra_listing
    source_url: https://p2.example
`
	if err := os.WriteFile(file, []byte(content), 0o644); err != nil {
		t.Fatalf("write collectors file: %v", err)
	}

	if _, err := LoadRegistry(file); err == nil {
		t.Fatalf("expected duplicate id error")
	}
}

func TestValidateSourceRequiresURL(t *testing.T) {
	err := validateSource(sanitizeSource(Source{ID: "s1", Name: "n", Type: "ppra_listing"}))
	if err == nil {
		t.Fatalf("expected error for missing source_url")
	}
}

func TestSanitizeSourceDefaults(t *testing.T) {
	s := sanitizeSource(Source{ID: " s1 ", Name: "n", Type: " PPRA_Listing ", SourceURL: " https://x "})
	if s.ID != "s1" || s.Type != "ppra_listing" || s.SourceURL != "https://x" {
		t.Fatalf("fields not normalized: %#v", s)
	}
	if s.RequestDelayMs != defaultRequestDelayMs {
		t.Fatalf("request delay default not applied: %d", s.RequestDelayMs)
	}
}
