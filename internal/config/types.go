// Package config loads and validates crawl configuration from YAML.
package config

import (
	"fmt"
	"net/url"
	"time"

	"harvester/internal/extract"
	"harvester/internal/output"
)

// CrawlConfig describes one site crawl: where the URL set comes from,
// which URLs to keep, what to extract, and where records go.
type CrawlConfig struct {
	// Name identifies the crawl in logs and reports.
	Name string `yaml:"name"`
	// Site is the homepage; the root sitemap is derived from it when
	// SitemapURL is not set.
	Site string `yaml:"site"`
	// SitemapURL overrides sitemap discovery. An invalid value degrades
	// the run to an empty URL set instead of failing it.
	SitemapURL string `yaml:"sitemap_url,omitempty"`

	Filter FilterConfig        `yaml:"filter,omitempty"`
	Fields []extract.FieldRule `yaml:"fields"`
	Output output.Config       `yaml:"output"`

	Concurrency    int           `yaml:"concurrency,omitempty"`
	RequestTimeout time.Duration `yaml:"request_timeout,omitempty"`
	RateLimit      float64       `yaml:"rate_limit,omitempty"`
	RateBurst      int           `yaml:"rate_burst,omitempty"`

	UserAgents []string          `yaml:"user_agents,omitempty"`
	Headers    map[string]string `yaml:"headers,omitempty"`
	LogLevel   string            `yaml:"log_level,omitempty"`
}

// FilterConfig selects URLs by substring. A URL is dispatched when it
// contains every include substring and none of the exclude substrings.
type FilterConfig struct {
	Include []string `yaml:"include,omitempty"`
	Exclude []string `yaml:"exclude,omitempty"`
}

// ExtractionSpec converts the configured fields into an extraction spec.
func (c *CrawlConfig) ExtractionSpec() extract.Spec {
	return extract.Spec{Fields: c.Fields}
}

// Validate checks the configuration for errors that would make the
// crawl unable to start.
func (c *CrawlConfig) Validate() error {
	if c.Site == "" && c.SitemapURL == "" {
		return fmt.Errorf("either site or sitemap_url is required")
	}
	if c.Site != "" {
		if err := validateURL(c.Site, "site"); err != nil {
			return err
		}
	}
	if c.SitemapURL != "" {
		if err := validateURL(c.SitemapURL, "sitemap_url"); err != nil {
			return err
		}
	}
	if len(c.Fields) == 0 {
		return fmt.Errorf("at least one extraction field is required")
	}
	if err := c.ExtractionSpec().Validate(); err != nil {
		return fmt.Errorf("fields: %w", err)
	}
	if c.Concurrency < 0 {
		return fmt.Errorf("concurrency cannot be negative")
	}
	if c.RateLimit < 0 {
		return fmt.Errorf("rate_limit cannot be negative")
	}
	if c.Output.Format != "" && !c.Output.Format.IsValid() {
		return fmt.Errorf("output format %q is not supported", c.Output.Format)
	}
	return nil
}

func validateURL(raw, field string) error {
	parsed, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("%s: %v", field, err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return fmt.Errorf("%s must be an http or https URL, got %q", field, raw)
	}
	if parsed.Host == "" {
		return fmt.Errorf("%s is missing a host: %q", field, raw)
	}
	return nil
}
