// Package indicator manages named presets for the EA's INDICATOR operation.
// A preset pins an indicator name, its parameter order and defaults, and an
// optional JSON schema guarding caller overrides. Whether the EA accepts the
// indicator stays the EA's call. The preset file hot-reloads on change.
package indicator

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/santhosh-tekuri/jsonschema/v5"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"mt4bridge/internal/logger"
)

// Preset describes one named indicator configuration.
type Preset struct {
	ID          string         `yaml:"id"`
	Indicator   string         `yaml:"indicator"`
	Description string         `yaml:"description"`
	Order       []string       `yaml:"order"`
	Defaults    map[string]any `yaml:"defaults"`
	Bars        int            `yaml:"bars"`
	Schema      map[string]any `yaml:"schema"`

	schemaCompiled *jsonschema.Schema
}

// FileConfig maps the presets file.
type FileConfig struct {
	Indicators map[string]Preset `yaml:"indicators"`
}

// Snapshot is the published preset set.
type Snapshot struct {
	Version  int64
	LoadedAt time.Time
	Presets  map[string]Preset
}

type Registry struct {
	path string
	v    *viper.Viper

	mu       sync.RWMutex
	snapshot Snapshot
}

// NewRegistry reads the preset file and watches it for updates.
func NewRegistry(path string) (*Registry, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("indicator registry requires path")
	}
	v := viper.New()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("read indicator presets failed: %w", err)
	}
	r := &Registry{path: path, v: v}
	if err := r.reload(); err != nil {
		return nil, err
	}
	v.OnConfigChange(func(evt fsnotify.Event) {
		if err := r.reload(); err != nil {
			logger.Errorf("indicator preset reload failed: %v", err)
		}
	})
	v.WatchConfig()
	return r, nil
}

// Snapshot returns the current preset set.
func (r *Registry) Snapshot() Snapshot {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return cloneSnapshot(r.snapshot)
}

// Preset returns the preset with the given ID.
func (r *Registry) Preset(id string) (Preset, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.snapshot.Presets[strings.TrimSpace(id)]
	return p, ok
}

// Resolve validates overrides against the preset schema and renders the
// comma-joined parameter string for the wire request.
func (r *Registry) Resolve(id string, overrides map[string]any) (Preset, string, error) {
	p, ok := r.Preset(id)
	if !ok {
		return Preset{}, "", fmt.Errorf("unknown indicator preset: %s", id)
	}
	params, err := p.Params(overrides)
	if err != nil {
		return Preset{}, "", err
	}
	return p, params, nil
}

func (r *Registry) reload() error {
	cfg, err := readPresetFile(r.path)
	if err != nil {
		return err
	}
	presets := make(map[string]Preset)
	for name, p := range cfg.Indicators {
		norm := normalizePreset(name, p)
		presets[norm.ID] = norm
	}
	r.mu.Lock()
	r.snapshot = Snapshot{
		Version:  r.snapshot.Version + 1,
		LoadedAt: time.Now(),
		Presets:  presets,
	}
	r.mu.Unlock()
	logger.Infof("indicator registry loaded %d presets from %s", len(presets), filepath.Base(r.path))
	return nil
}

func normalizePreset(name string, p Preset) Preset {
	p.ID = strings.TrimSpace(p.ID)
	if p.ID == "" {
		p.ID = strings.TrimSpace(name)
	}
	p.Indicator = strings.TrimSpace(p.Indicator)
	p.Description = strings.TrimSpace(p.Description)
	if p.Bars <= 0 {
		p.Bars = 10
	}
	if len(p.Schema) > 0 {
		if compiled, err := compileSchema(p.Schema); err != nil {
			logger.Errorf("indicator preset schema compile failed id=%s: %v", p.ID, err)
		} else {
			p.schemaCompiled = compiled
		}
	}
	return p
}

// Params merges overrides onto the defaults, validates the merged set, and
// joins the values in declared order. A preset without parameters renders "".
func (p Preset) Params(overrides map[string]any) (string, error) {
	merged := make(map[string]any, len(p.Defaults)+len(overrides))
	for k, v := range p.Defaults {
		merged[k] = v
	}
	for k, v := range overrides {
		if _, ok := p.Defaults[k]; !ok {
			return "", fmt.Errorf("preset %s has no parameter %q", p.ID, k)
		}
		merged[k] = v
	}
	if p.schemaCompiled != nil {
		if err := p.schemaCompiled.Validate(sanitizeParams(merged)); err != nil {
			return "", fmt.Errorf("preset %s parameter validation failed: %w", p.ID, err)
		}
	}
	if len(p.Order) == 0 {
		return "", nil
	}
	parts := make([]string, 0, len(p.Order))
	for _, key := range p.Order {
		v, ok := merged[key]
		if !ok {
			return "", fmt.Errorf("preset %s missing parameter %q", p.ID, key)
		}
		parts = append(parts, formatParam(v))
	}
	return strings.Join(parts, ","), nil
}

func formatParam(v any) string {
	switch t := v.(type) {
	case string:
		return strings.TrimSpace(t)
	case int:
		return strconv.Itoa(t)
	case int64:
		return strconv.FormatInt(t, 10)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	default:
		return fmt.Sprintf("%v", t)
	}
}

func cloneSnapshot(src Snapshot) Snapshot {
	dst := Snapshot{
		Version:  src.Version,
		LoadedAt: src.LoadedAt,
		Presets:  make(map[string]Preset, len(src.Presets)),
	}
	for id, p := range src.Presets {
		dst.Presets[id] = p
	}
	return dst
}

func compileSchema(data map[string]any) (*jsonschema.Schema, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource("schema.json", strings.NewReader(string(raw))); err != nil {
		return nil, err
	}
	return compiler.Compile("schema.json")
}

func readPresetFile(path string) (FileConfig, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return FileConfig{}, fmt.Errorf("read indicator presets failed: %w", err)
	}
	var cfg FileConfig
	dec := yaml.NewDecoder(bytes.NewReader(raw))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil {
		return FileConfig{}, fmt.Errorf("parse indicator presets failed: %w", err)
	}
	return cfg, nil
}

// sanitizeParams converts string-typed numbers so schema validation treats
// "14" and 14 alike.
func sanitizeParams(v any) any {
	switch val := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(val))
		for k, child := range val {
			out[k] = sanitizeParams(child)
		}
		return out
	case []any:
		out := make([]any, len(val))
		for i, child := range val {
			out[i] = sanitizeParams(child)
		}
		return out
	case string:
		s := strings.TrimSpace(val)
		if s == "" {
			return val
		}
		if num, err := strconv.ParseFloat(s, 64); err == nil {
			return num
		}
		return val
	default:
		return val
	}
}
