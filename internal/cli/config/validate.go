package config

import (
	"fmt"
	"regexp"
)

var validOutputs = map[string]bool{
	"":         true,
	"auto":     true,
	"text":     true,
	"markdown": true,
	"json":     true,
}

// Validate checks configuration invariants that cannot wait until use.
func Validate(cfg *Config) error {
	if _, err := regexp.Compile(cfg.Pattern); err != nil {
		return fmt.Errorf("invalid run-boundary pattern %q: %w", cfg.Pattern, err)
	}
	if !validOutputs[cfg.OutputFormat] {
		return fmt.Errorf("invalid output format %q (want auto, text, markdown, or json)", cfg.OutputFormat)
	}
	return nil
}

// CompilePattern returns the compiled run-boundary regexp. Validate must
// have accepted the config first.
func (c *Config) CompilePattern() *regexp.Regexp {
	return regexp.MustCompile(c.Pattern)
}
