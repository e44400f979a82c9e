package config

import "strings"

// Config is the top-level configuration.
type Config struct {
	App        AppConfig       `toml:"app"`
	Bridge     BridgeConfig    `toml:"bridge"`
	Recorder   RecorderConfig  `toml:"recorder"`
	HTTP       HTTPConfig      `toml:"http"`
	Indicators IndicatorConfig `toml:"indicators"`
	Charts     ChartConfig     `toml:"charts"`
}

type AppConfig struct {
	LogLevel string `toml:"log_level"`
	LogPath  string `toml:"log_path"`
}

// BridgeConfig holds the EA endpoint. There is deliberately no timeout or
// retry knob here: the request channel blocks until the EA answers.
type BridgeConfig struct {
	Address string `toml:"address"`
}

type RecorderConfig struct {
	Enabled    bool     `toml:"enabled"`
	Symbols    []string `toml:"symbols"`
	Timeframes []string `toml:"timeframes"`
	Interval   string   `toml:"interval"`
	Bars       int      `toml:"bars"`
	MaxCached  int      `toml:"max_cached"`
	DBPath     string   `toml:"db_path"`
	TickLogDir string   `toml:"tick_log_dir"`
}

type HTTPConfig struct {
	Enabled bool   `toml:"enabled"`
	Addr    string `toml:"addr"`
}

type IndicatorConfig struct {
	PresetsPath string `toml:"presets_path"`
}

type ChartConfig struct {
	Enabled bool   `toml:"enabled"`
	Theme   string `toml:"theme"`
}

// keySet tracks which config paths were explicitly present in the file, so
// defaults only fill fields the user left out.
type keySet map[string]struct{}

func (k keySet) mark(path string) {
	path = strings.ToLower(strings.TrimSpace(path))
	if path == "" {
		return
	}
	k[path] = struct{}{}
}

func (k keySet) isSet(path string) bool {
	if len(k) == 0 {
		return false
	}
	path = strings.ToLower(strings.TrimSpace(path))
	_, ok := k[path]
	return ok
}

// fieldDefault describes one field's defaulting rule.
type fieldDefault struct {
	key   string
	need  func() bool
	apply func()
}
