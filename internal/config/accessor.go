package config

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Sanitize returns a copy of the config with credentials masked, safe to
// print or log.
func Sanitize(cfg *Config) *Config {
	c := *cfg
	for _, field := range []*string{
		&c.Line.ChannelSecret,
		&c.Line.AccessToken,
		&c.Providers.Gemini.APIKey,
		&c.Providers.OpenAI.APIKey,
		&c.Providers.Apify.Token,
		&c.Providers.Firecrawl.APIKey,
		&c.Knowledge.Notion.APIKey,
	} {
		if *field != "" {
			*field = maskString(*field)
		}
	}
	return &c
}

// maskString shows first 4 and last 4 chars, masks the rest.
func maskString(s string) string {
	if len(s) <= 8 {
		return "***"
	}
	return s[:4] + "****" + s[len(s)-4:]
}

// GetByPath retrieves a sanitized config value by its dotted json path,
// e.g. "providers.gemini.model".
func GetByPath(cfg *Config, path string) (any, error) {
	data, err := json.Marshal(Sanitize(cfg))
	if err != nil {
		return nil, err
	}
	var current any
	if err := json.Unmarshal(data, &current); err != nil {
		return nil, err
	}
	for _, key := range strings.Split(path, ".") {
		m, ok := current.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("cannot traverse into %T at %s", current, key)
		}
		if current, ok = m[key]; !ok {
			return nil, fmt.Errorf("key not found: %s", path)
		}
	}
	return current, nil
}
