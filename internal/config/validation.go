package config

import (
	"fmt"
	"strings"

	"mt4bridge/internal/scheduler"
)

func validate(c *Config) error {
	if strings.TrimSpace(c.Bridge.Address) == "" {
		return fmt.Errorf("bridge.address cannot be empty")
	}
	if err := c.Recorder.validate(); err != nil {
		return err
	}
	if c.HTTP.Enabled && strings.TrimSpace(c.HTTP.Addr) == "" {
		return fmt.Errorf("http.addr cannot be empty when http is enabled")
	}
	return nil
}

func (r *RecorderConfig) validate() error {
	if !r.Enabled {
		return nil
	}
	if len(r.Symbols) == 0 {
		return fmt.Errorf("recorder.symbols requires at least one symbol")
	}
	if len(r.Timeframes) == 0 {
		return fmt.Errorf("recorder.timeframes requires at least one timeframe")
	}
	for _, sym := range r.Symbols {
		if strings.Contains(sym, ":") {
			return fmt.Errorf("recorder.symbols contains ':' (reserved by the wire grammar): %s", sym)
		}
	}
	if _, ok := scheduler.ParseIntervalDuration(r.Interval); !ok {
		return fmt.Errorf("recorder.interval is not a valid interval: %s", r.Interval)
	}
	if r.Bars <= 0 {
		return fmt.Errorf("recorder.bars must be > 0")
	}
	return nil
}
