package config

import (
	"errors"
	"fmt"
	"net/url"
	"path/filepath"
	"strings"

	foundationerrors "git.home.luguber.info/inful/sitegraph/internal/foundation/errors"
)

// Validate checks the typed configuration and reports every problem at once.
func (c *Config) Validate() error {
	var problems []error
	add := func(format string, args ...any) {
		problems = append(problems, fmt.Errorf(format, args...))
	}

	if c.Build.Workers < 0 {
		add("build.workers must not be negative (got %d)", c.Build.Workers)
	}
	switch c.Build.ChangedSetPolicy {
	case PolicyTrust, PolicyVerify:
	default:
		add("build.changed_set_policy must be %q or %q (got %q)", PolicyTrust, PolicyVerify, c.Build.ChangedSetPolicy)
	}
	if c.History.Keep < 0 {
		add("history.keep must not be negative (got %d)", c.History.Keep)
	}
	if c.Watch.Debounce < 0 {
		add("watch.debounce must not be negative")
	}
	if c.Watch.FullRebuildInterval < 0 {
		add("watch.full_rebuild_interval must not be negative")
	}
	if _, err := url.Parse(c.BaseURL); err != nil {
		add("base_url is not a valid URL: %v", err)
	}
	if strings.TrimSpace(string(c.ContentDir)) == "" {
		add("content_dir must not be empty")
	}
	if strings.TrimSpace(string(c.OutputDir)) == "" {
		add("output_dir must not be empty")
	}
	if c.ContentDir != "" && c.OutputDir != "" && c.root != "" {
		content, output := c.ContentPath(), c.OutputPath()
		if content == output {
			add("output_dir must differ from content_dir")
		} else if rel, err := filepath.Rel(content, output); err == nil && !strings.HasPrefix(rel, "..") {
			add("output_dir must not be inside content_dir")
		}
	}
	seen := map[string]bool{}
	for _, t := range c.Taxonomies {
		if strings.TrimSpace(t) == "" {
			add("taxonomies must not contain empty names")
			continue
		}
		if seen[t] {
			add("taxonomy %q listed twice", t)
		}
		seen[t] = true
	}

	if len(problems) == 0 {
		return nil
	}
	return foundationerrors.ConfigError("invalid configuration").
		WithContext("problems", len(problems)).
		WithCause(errors.Join(problems...)).
		Build()
}
