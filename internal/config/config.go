package config

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"harvester/internal/crawl"
	"harvester/internal/extract"
	"harvester/internal/output"
)

// LoadFromFile loads configuration from a YAML file.
func LoadFromFile(filename string) (*CrawlConfig, error) {
	if filename == "" {
		return nil, fmt.Errorf("configuration filename cannot be empty")
	}

	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read configuration file: %v", err)
	}

	return LoadFromBytes(data)
}

// LoadFromBytes loads configuration from YAML bytes. Environment
// variables in the form $VAR or ${VAR} are expanded before parsing.
func LoadFromBytes(data []byte) (*CrawlConfig, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("configuration data cannot be empty")
	}

	expanded := os.ExpandEnv(string(data))

	var cfg CrawlConfig
	if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse YAML configuration: %v", err)
	}

	applyDefaults(&cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %v", err)
	}

	return &cfg, nil
}

// LoadFromReader loads configuration from an io.Reader.
func LoadFromReader(reader io.Reader) (*CrawlConfig, error) {
	if reader == nil {
		return nil, fmt.Errorf("reader cannot be nil")
	}

	data, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("failed to read from reader: %v", err)
	}

	return LoadFromBytes(data)
}

// SaveToWriter writes the configuration as YAML.
func SaveToWriter(cfg *CrawlConfig, writer io.Writer) error {
	if cfg == nil {
		return fmt.Errorf("configuration cannot be nil")
	}
	if writer == nil {
		return fmt.Errorf("writer cannot be nil")
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal configuration to YAML: %v", err)
	}

	if _, err := writer.Write(data); err != nil {
		return fmt.Errorf("failed to write configuration: %v", err)
	}
	return nil
}

func applyDefaults(cfg *CrawlConfig) {
	if cfg.Concurrency == 0 {
		cfg.Concurrency = crawl.DefaultConcurrency
	}
	if cfg.RequestTimeout == 0 {
		cfg.RequestTimeout = 30 * time.Second
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = "info"
	}
	if cfg.Output.Format == "" {
		cfg.Output.Format = output.FormatJSONL
	}
	if cfg.Output.Format == output.FormatJSONL && cfg.Output.File == "" {
		cfg.Output.File = "records.jsonl"
	}
}

// GenerateTemplate generates a starter configuration for the given
// template type.
func GenerateTemplate(templateType string) CrawlConfig {
	switch strings.ToLower(templateType) {
	case "ecommerce":
		return generateEcommerceTemplate()
	default:
		return generateBasicTemplate()
	}
}

func generateBasicTemplate() CrawlConfig {
	return CrawlConfig{
		Name: "basic_crawl",
		Site: "https://example.com",
		Fields: []extract.FieldRule{
			{Name: "title", Selector: "h1", Required: true},
			{Name: "description", Selector: ".description"},
		},
		Output: output.Config{
			Format: output.FormatJSONL,
			File:   "records.jsonl",
		},
		Concurrency:    crawl.DefaultConcurrency,
		RequestTimeout: 30 * time.Second,
	}
}

func generateEcommerceTemplate() CrawlConfig {
	return CrawlConfig{
		Name: "ecommerce_crawl",
		Site: "https://shop.example.com",
		Filter: FilterConfig{
			Include: []string{"/product/"},
			Exclude: []string{"reviews"},
		},
		Fields: []extract.FieldRule{
			{Name: "title", Selector: "h1.product-name", Required: true},
			{Name: "description", Selector: "h2.product-description-header", FromParent: true, Child: "p", Required: true},
			{Name: "subtitle", Selector: "div.product-subtitle", Required: true},
		},
		Output: output.Config{
			Format: output.FormatJSONL,
			File:   "products.jsonl",
		},
		Concurrency:    crawl.DefaultConcurrency,
		RequestTimeout: 30 * time.Second,
		RateLimit:      2,
		RateBurst:      4,
	}
}
