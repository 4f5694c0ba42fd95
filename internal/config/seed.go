package config

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// SeedSource is one bootstrap crawl source from the YAML seed file.
// Operators provision new sites by adding entries and restarting the service;
// seeding is idempotent (upsert by URL).
type SeedSource struct {
	Name             string `yaml:"name"`
	URL              string `yaml:"url"`
	Frequency        string `yaml:"frequency"`         // DAILY | WEEKLY | MONTHLY
	ScraperType      string `yaml:"scraper_type"`      // must match a registered scraper
	IsDetailsCrawled bool   `yaml:"is_details_crawled"` // false = drafts straight from listings
}

// LoadSeedSources parses the YAML seed file at path. A missing path returns
// an empty slice; a malformed file is a startup error.
func LoadSeedSources(path string) ([]SeedSource, error) {
	if path == "" {
		return nil, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read seed file %s: %w", path, err)
	}

	var doc struct {
		Sources []SeedSource `yaml:"sources"`
	}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse seed YAML: %w", err)
	}

	for i, s := range doc.Sources {
		if s.URL == "" {
			return nil, fmt.Errorf("seed source %d: url is required", i)
		}
		switch strings.ToUpper(s.Frequency) {
		case "DAILY", "WEEKLY", "MONTHLY", "":
		default:
			return nil, fmt.Errorf("seed source %q: unknown frequency %q", s.URL, s.Frequency)
		}
	}

	return doc.Sources, nil
}

func splitKeys(raw string) []string {
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	keys := make([]string, 0, len(parts))
	for _, p := range parts {
		if k := strings.TrimSpace(p); k != "" {
			keys = append(keys, k)
		}
	}
	return keys
}
