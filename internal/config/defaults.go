package config

// Defaults returns the default configuration mapping. Each call returns a
// fresh copy.
func Defaults() map[string]any {
	return map[string]any{
		"title":       "",
		"base_url":    "/",
		"content_dir": "content",
		"output_dir":  "public",
		"static_dir":  "static",
		"layouts_dir": "layouts",
		"taxonomies":  []any{"tags", "categories"},
		"params":      map[string]any{},
		"build": map[string]any{
			"parallel":           true,
			"workers":            0,
			"incremental":        nil,
			"strict":             false,
			"changed_set_policy": string(PolicyTrust),
			"pretty_urls":        true,
		},
		"cache": map[string]any{
			"path":         ".sitegraph/cache.json",
			"legacy_paths": []any{".sitegraph-cache.json"},
		},
		"history": map[string]any{
			"enabled": true,
			"path":    ".sitegraph/history.db",
			"keep":    100,
		},
		"watch": map[string]any{
			"debounce":              "300ms",
			"full_rebuild_interval": "0s",
		},
		"metrics": map[string]any{
			"addr": "",
		},
	}
}
