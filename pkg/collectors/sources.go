package collectors

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"gopkg.in/yaml.v3"
)

// Package collectors contains pluggable tender source configs (YAML/JSON)
// and the collector implementations that consume them.

// Source is one configured tender listing to collect from.
type Source struct {
	ID             string         `json:"id" yaml:"id"`
	Name           string         `json:"name" yaml:"name"`
	Type           string         `json:"type" yaml:"type"`
	SourceURL      string         `json:"source_url" yaml:"source_url"`
	RequestDelayMs int            `json:"request_delay_ms" yaml:"request_delay_ms"`
	Config         map[string]any `json:"config" yaml:"config"`
}

type sourcesFile struct {
	Sources []Source `json:"sources" yaml:"sources"`
}

const defaultRequestDelayMs = 500

// Registry materializes source definitions loaded from config files.
type Registry struct {
	mu      sync.RWMutex
	sources []Source
	idx     map[string]Source
}

// LoadRegistry loads the source registry from a YAML/JSON file.
func LoadRegistry(path string) (*Registry, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, errors.New("collectors file path is empty")
	}

	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open collectors file: %w", err)
	}
	defer file.Close()

	raw, err := io.ReadAll(file)
	if err != nil {
		return nil, fmt.Errorf("read collectors file: %w", err)
	}

	parsed, err := parseSources(raw, filepath.Ext(path))
	if err != nil {
		return nil, err
	}
	if len(parsed.Sources) == 0 {
		return nil, errors.New("collectors file contains no sources entries")
	}

	reg := &Registry{
		sources: make([]Source, len(parsed.Sources)),
		idx:     make(map[string]Source, len(parsed.Sources)),
	}

	for i := range parsed.Sources {
		s := sanitizeSource(parsed.Sources[i])
		if err := validateSource(s); err != nil {
			return nil, fmt.Errorf("sources[%d]: %w", i, err)
		}
		if _, exists := reg.idx[s.ID]; exists {
			return nil, fmt.Errorf("duplicate source id %q", s.ID)
		}
		reg.sources[i] = s
		reg.idx[s.ID] = s
	}

	return reg, nil
}

func parseSources(data []byte, ext string) (sourcesFile, error) {
	ext = strings.ToLower(strings.TrimSpace(ext))

	decoders := []struct {
		name string
		ext  string
		fn   func([]byte, any) error
	}{
		{name: "yaml", ext: ".yaml", fn: yaml.Unmarshal},
		{name: "yaml", ext: ".yml", fn: yaml.Unmarshal},
		{name: "json", ext: ".json", fn: json.Unmarshal},
	}

	for _, d := range decoders {
		if ext != "" && ext != d.ext {
			continue
		}
		var parsed sourcesFile
		if err := d.fn(data, &parsed); err == nil {
			return parsed, nil
		}
	}

	return sourcesFile{}, errors.New("collectors file format not recognized (expected YAML or JSON)")
}

func sanitizeSource(s Source) Source {
	s.ID = strings.TrimSpace(s.ID)
	s.Name = strings.TrimSpace(s.Name)
	s.Type = strings.ToLower(strings.TrimSpace(s.Type))
	s.SourceURL = strings.TrimSpace(s.SourceURL)

	if s.Config == nil {
		s.Config = map[string]any{}
	}
	if s.RequestDelayMs <= 0 {
		s.RequestDelayMs = defaultRequestDelayMs
	}

	return s
}

func validateSource(s Source) error {
	if s.ID == "" {
		return errors.New("id is required")
	}
	if s.Name == "" {
		return fmt.Errorf("name is required for source %q", s.ID)
	}
	if s.Type == "" {
		return fmt.Errorf("type is required for source %q", s.ID)
	}
	if s.SourceURL == "" {
		return fmt.Errorf("source_url is required for source %q", s.ID)
	}
	return nil
}

// ByID returns the source entry for the given id, if loaded.
func (r *Registry) ByID(id string) (Source, bool) {
	if r == nil {
		return Source{}, false
	}

	id = strings.TrimSpace(id)
	if id == "" {
		return Source{}, false
	}

	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.idx[id]
	return s, ok
}

// All returns all configured sources.
func (r *Registry) All() []Source {
	if r == nil {
		return nil
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Source, len(r.sources))
	copy(out, r.sources)
	return out
}

// RequestDelay returns the per-request throttle duration for the source.
func (s Source) RequestDelay() time.Duration {
	if s.RequestDelayMs <= 0 {
		return time.Duration(defaultRequestDelayMs) * time.Millisecond
	}
	return time.Duration(s.RequestDelayMs) * time.Millisecond
}
