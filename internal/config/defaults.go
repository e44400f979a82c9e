package config

import "strings"

const (
	defaultLogLevel          = "info"
	defaultBridgeAddress     = "tcp://localhost:5555"
	defaultRecorderInterval  = "1m"
	defaultRecorderBars      = 100
	defaultRecorderMaxCached = 300
	defaultRecorderDBPath    = "data/klines.db"
	defaultRecorderTickDir   = "data/ticks"
	defaultHTTPAddr          = ":8391"
	defaultPresetsPath       = "configs/indicators.yaml"
	defaultChartTheme        = "dark"
)

func (c *Config) applyDefaults(keys keySet) {
	c.App.applyDefaults(keys)
	c.Bridge.applyDefaults(keys)
	c.Recorder.applyDefaults(keys)
	c.HTTP.applyDefaults(keys)
	c.Indicators.applyDefaults(keys)
	c.Charts.applyDefaults(keys)
}

func (a *AppConfig) applyDefaults(keys keySet) {
	if a == nil {
		return
	}
	applyFieldDefaults(keys,
		stringFieldDefault("app.log_level", &a.LogLevel, defaultLogLevel),
	)
}

func (b *BridgeConfig) applyDefaults(keys keySet) {
	if b == nil {
		return
	}
	applyFieldDefaults(keys,
		stringFieldDefault("bridge.address", &b.Address, defaultBridgeAddress),
	)
}

func (r *RecorderConfig) applyDefaults(keys keySet) {
	if r == nil {
		return
	}
	applyFieldDefaults(keys,
		stringFieldDefault("recorder.interval", &r.Interval, defaultRecorderInterval),
		stringFieldDefault("recorder.db_path", &r.DBPath, defaultRecorderDBPath),
		stringFieldDefault("recorder.tick_log_dir", &r.TickLogDir, defaultRecorderTickDir),
		fieldDefault{
			key:   "recorder.bars",
			need:  func() bool { return r.Bars <= 0 },
			apply: func() { r.Bars = defaultRecorderBars },
		},
		fieldDefault{
			key:   "recorder.max_cached",
			need:  func() bool { return r.MaxCached <= 0 },
			apply: func() { r.MaxCached = defaultRecorderMaxCached },
		},
	)
}

func (h *HTTPConfig) applyDefaults(keys keySet) {
	if h == nil {
		return
	}
	applyFieldDefaults(keys,
		stringFieldDefault("http.addr", &h.Addr, defaultHTTPAddr),
	)
}

func (i *IndicatorConfig) applyDefaults(keys keySet) {
	if i == nil {
		return
	}
	applyFieldDefaults(keys,
		stringFieldDefault("indicators.presets_path", &i.PresetsPath, defaultPresetsPath),
	)
}

func (c *ChartConfig) applyDefaults(keys keySet) {
	if c == nil {
		return
	}
	applyFieldDefaults(keys,
		stringFieldDefault("charts.theme", &c.Theme, defaultChartTheme),
	)
}

func applyFieldDefaults(keys keySet, defs ...fieldDefault) {
	for _, def := range defs {
		if def.apply == nil {
			continue
		}
		if def.key != "" && keys.isSet(def.key) {
			continue
		}
		if def.need != nil && !def.need() {
			continue
		}
		def.apply()
	}
}

func stringFieldDefault(key string, target *string, def string) fieldDefault {
	return fieldDefault{
		key: key,
		need: func() bool {
			return target != nil && strings.TrimSpace(*target) == ""
		},
		apply: func() {
			if target != nil {
				*target = def
			}
		},
	}
}
