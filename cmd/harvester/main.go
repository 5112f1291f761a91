// Command harvester crawls a site's sitemap and extracts structured
// records from the matching pages.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"gopkg.in/yaml.v3"

	"harvester/internal/config"
	"harvester/internal/crawl"
	"harvester/internal/fetch"
	"harvester/internal/output"
	"harvester/internal/sitemap"
	"harvester/internal/utils"
	"harvester/pkg/types"
)

// Version information (set by build flags)
var (
	version   = "dev"
	buildTime = "unknown"
	gitCommit = "unknown"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	switch command := os.Args[1]; command {
	case "run":
		if len(os.Args) < 3 {
			fmt.Fprintf(os.Stderr, "Error: config file required\n")
			fmt.Fprintf(os.Stderr, "Usage: harvester run <config.yaml>\n")
			os.Exit(1)
		}
		runCrawl(os.Args[2])

	case "validate":
		if len(os.Args) < 3 {
			fmt.Fprintf(os.Stderr, "Error: config file required\n")
			fmt.Fprintf(os.Stderr, "Usage: harvester validate <config.yaml>\n")
			os.Exit(1)
		}
		validateConfig(os.Args[2])

	case "template":
		template, err := generateTemplate(os.Args[2:])
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		fmt.Print(template)

	case "version", "--version", "-v":
		printVersion()

	case "help", "--help", "-h":
		printUsage()

	default:
		fmt.Fprintf(os.Stderr, "Error: unknown command '%s'\n", command)
		printUsage()
		os.Exit(1)
	}
}

// runCrawl loads the configuration, wires the pipeline, and runs it.
// Per-URL failures never affect the exit code; only a failure to start
// the crawl does.
func runCrawl(configFile string) {
	cfg, err := config.LoadFromFile(configFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	logger := utils.NewLoggerWithLevel(utils.ParseLevel(cfg.LogLevel))

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	report, err := executeCrawl(ctx, cfg, logger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(2)
	}

	fmt.Printf("Crawl complete: %d written, %d skipped, %d errored\n",
		report.Written, report.Skipped, report.Errored)
}

func executeCrawl(ctx context.Context, cfg *config.CrawlConfig, logger utils.Logger) (report types.Report, err error) {
	fetcher := fetch.New(fetch.Config{
		Timeout:    cfg.RequestTimeout,
		UserAgents: cfg.UserAgents,
		Headers:    cfg.Headers,
		RateLimit:  cfg.RateLimit,
		RateBurst:  cfg.RateBurst,
	})

	resolver := sitemap.NewResolver(
		sitemap.WithLogger(logger),
	)

	sink, err := output.NewSink(cfg.Output)
	if err != nil {
		return report, fmt.Errorf("open output: %w", err)
	}
	defer func() {
		if closeErr := sink.Close(); closeErr != nil && err == nil {
			err = fmt.Errorf("close output: %w", closeErr)
		}
	}()

	worker := crawl.NewWorker(fetcher, cfg.ExtractionSpec())
	orchestrator := crawl.NewOrchestrator(resolver, worker, sink,
		crawl.WithConcurrency(cfg.Concurrency),
		crawl.WithFilter(crawl.SubstringFilter(cfg.Filter.Include, cfg.Filter.Exclude)),
		crawl.WithLogger(logger),
	)

	return orchestrator.Run(ctx, cfg.Site, cfg.SitemapURL)
}

// validateConfig checks a configuration file without running it.
func validateConfig(configFile string) {
	cfg, err := config.LoadFromFile(configFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("✓ Configuration file '%s' is valid\n", configFile)
	if hasFlag("-v") || hasFlag("--verbose") {
		fmt.Printf("  Name: %s\n", cfg.Name)
		fmt.Printf("  Site: %s\n", cfg.Site)
		fmt.Printf("  Fields: %d\n", len(cfg.Fields))
		fmt.Printf("  Output format: %s\n", cfg.Output.Format)
	}
}

// generateTemplate renders a starter configuration as YAML.
func generateTemplate(args []string) (string, error) {
	templateType := "basic"
	if len(args) > 0 && args[0] == "--type" && len(args) > 1 {
		templateType = args[1]
	}

	template := config.GenerateTemplate(templateType)

	yamlData, err := yaml.Marshal(template)
	if err != nil {
		return "", fmt.Errorf("failed to marshal template to YAML: %w", err)
	}
	return string(yamlData), nil
}

// hasFlag checks if a flag is present in command line arguments.
func hasFlag(flag string) bool {
	for _, arg := range os.Args {
		if arg == flag {
			return true
		}
	}
	return false
}

func printUsage() {
	fmt.Println("Harvester - Sitemap-driven structured content extractor")
	fmt.Println()
	fmt.Println("Usage:")
	fmt.Println("  harvester run <config.yaml>        Run a crawl with the configuration file")
	fmt.Println("  harvester validate <config.yaml>   Validate a configuration file")
	fmt.Println("  harvester template [--type <type>] Generate a configuration template")
	fmt.Println("  harvester version                  Show version information")
	fmt.Println("  harvester help                     Show this help message")
	fmt.Println()
	fmt.Println("Options:")
	fmt.Println("  -v, --verbose                      Enable verbose output")
	fmt.Println()
	fmt.Println("Template types:")
	fmt.Println("  basic       Minimal single-field crawl (default)")
	fmt.Println("  ecommerce   Product page crawl with URL filtering")
}

func printVersion() {
	fmt.Printf("Harvester %s\n", version)
	fmt.Printf("Build time: %s\n", buildTime)
	fmt.Printf("Git commit: %s\n", gitCommit)
}
