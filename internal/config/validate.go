package config

import (
	"errors"
	"fmt"
	"sort"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if c.Paths.CacheDir == "" {
		return errors.New("paths.cache_dir must be set")
	}
	if err := c.validateSync(); err != nil {
		return err
	}
	if err := c.validateLogging(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validateSync() error {
	if err := ensurePositiveMap(map[string]int{
		"sync.sample_rate": c.Sync.SampleRate,
		"sync.hop_length":  c.Sync.HopLength,
		"sync.n_fft":       c.Sync.FFTSize,
		"sync.n_mels":      c.Sync.MelBands,
		"sync.n_mfcc":      c.Sync.Coefficients,
		"sync.window":      c.Sync.Window,
		"sync.window_min":  c.Sync.WindowMin,
	}); err != nil {
		return err
	}
	if c.Sync.FFTSize&(c.Sync.FFTSize-1) != 0 {
		return fmt.Errorf("sync.n_fft must be a power of two, got %d", c.Sync.FFTSize)
	}
	if c.Sync.Coefficients > c.Sync.MelBands {
		return errors.New("sync.n_mfcc must not exceed sync.n_mels")
	}
	if c.Sync.WindowMin < 2 {
		return fmt.Errorf("sync.window_min must be at least 2, got %d", c.Sync.WindowMin)
	}
	if c.Sync.WindowMin > c.Sync.Window {
		return errors.New("sync.window_min must not exceed sync.window")
	}
	if c.Sync.HopRatio <= 0 || c.Sync.HopRatio > 1 {
		return errors.New("sync.hop_ratio must be in (0, 1]")
	}
	if c.Sync.Cutoff < 0 || c.Sync.Cutoff >= 0.5 {
		return errors.New("sync.cutoff must be in [0, 0.5)")
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
		return nil
	default:
		return fmt.Errorf("logging.level %q is not one of debug, info, warn, error", c.Logging.Level)
	}
}

func ensurePositiveMap(values map[string]int) error {
	keys := make([]string, 0, len(values))
	for key := range values {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	for _, key := range keys {
		if values[key] <= 0 {
			return fmt.Errorf("%s must be positive", key)
		}
	}
	return nil
}
