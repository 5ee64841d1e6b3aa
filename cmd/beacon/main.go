// Command beacon sends a one-off report to the collector. It is a thin
// consumer of pkg/beacon, useful for wiring deploy hooks and cron jobs
// into the same project that receives a service's runtime errors.
package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/pflag"

	"github.com/crimson-sun/beacon/internal/config"
	"github.com/crimson-sun/beacon/internal/logging"
	"github.com/crimson-sun/beacon/pkg/beacon"
)

func main() {
	var (
		configPath  = pflag.String("config", "", "path to YAML config file")
		token       = pflag.String("token", "", "collector access token (overrides config)")
		level       = pflag.String("level", "info", "report level: debug, info, warning, error, critical")
		message     = pflag.String("message", "", "message text to report")
		environment = pflag.String("environment", "", "environment label (overrides config)")
		title       = pflag.String("title", "", "report title override")
		fingerprint = pflag.String("fingerprint", "", "grouping fingerprint override")
		custom      = pflag.StringArray("custom", nil, "custom data as key=value (repeatable)")
		verbose     = pflag.Bool("verbose", false, "log outgoing payload and acknowledgement")
	)
	pflag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	if *token != "" {
		cfg.AccessToken = *token
	}
	if *environment != "" {
		cfg.Environment = *environment
	}
	if *verbose {
		cfg.Verbose = true
	}

	logging.Init(logging.ParseLevel(cfg.LogLevel))

	if *message == "" {
		fmt.Fprintln(os.Stderr, "beacon: --message is required")
		os.Exit(2)
	}

	client, err := newClient(cfg)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	var opts []beacon.ReportOption
	if *title != "" {
		opts = append(opts, beacon.WithTitle(*title))
	}
	if *fingerprint != "" {
		opts = append(opts, beacon.WithFingerprint(*fingerprint))
	}

	ack := client.Message(context.Background(), beacon.Level(*level), *message, parseCustom(*custom), opts...)
	if ack == nil {
		fmt.Fprintln(os.Stderr, "beacon: report was not delivered")
		os.Exit(1)
	}
	if ack.Err != 0 {
		fmt.Fprintf(os.Stderr, "beacon: collector rejected report: %s\n", ack.Message)
		os.Exit(1)
	}
	fmt.Println(ack.UUID)
}

func newClient(cfg config.Config) (*beacon.Client, error) {
	opts := []beacon.Option{
		beacon.WithEnvironment(cfg.Environment),
		beacon.WithCodeVersion(cfg.CodeVersion),
		beacon.WithHost(cfg.Host),
		beacon.WithEndpoint(cfg.Endpoint),
		beacon.WithScrubFields(cfg.ScrubFields...),
		beacon.WithDefaultCustom(cfg.DefaultCustom),
	}
	if cfg.IncludeRequestBody {
		opts = append(opts, beacon.WithRequestBodies())
	}
	if cfg.Verbose {
		opts = append(opts, beacon.WithVerbose())
	}
	if cfg.Compress {
		opts = append(opts, beacon.WithCompression())
	}
	return beacon.New(cfg.AccessToken, opts...)
}

// parseCustom turns repeated key=value flags into a custom-data map.
func parseCustom(pairs []string) map[string]any {
	if len(pairs) == 0 {
		return nil
	}
	m := make(map[string]any, len(pairs))
	for _, p := range pairs {
		key, value, _ := strings.Cut(p, "=")
		m[key] = value
	}
	return m
}
