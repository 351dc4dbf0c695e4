package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/calyptra/voxwire/internal/api"
	"github.com/calyptra/voxwire/internal/attachment"
	"github.com/calyptra/voxwire/internal/capability/apigateway"
	"github.com/calyptra/voxwire/internal/config"
	"github.com/calyptra/voxwire/internal/dispatch"
	"github.com/calyptra/voxwire/internal/events"
	"github.com/calyptra/voxwire/internal/log"
)

var (
	version   = "0.1.0-dev"
	gitCommit = "unknown"
	buildDate = "unknown"
)

func main() {
	os.Exit(runCLI(os.Args[1:]))
}

func runCLI(cliArgs []string) int {
	if len(cliArgs) < 1 {
		printUsage()
		return 1
	}

	cmd := cliArgs[0]
	args := cliArgs[1:]

	switch cmd {
	case "start":
		return runStart(args)
	case "version", "--version":
		return runVersion(args)
	case "help", "--help", "-h":
		printUsage()
		return 0
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", cmd)
		printUsage()
		return 1
	}
}

func printUsage() {
	fmt.Fprintln(os.Stderr, `voxwire - directive ingestion and dispatch daemon

Usage:
  voxwire start [--config path]   Run the daemon
  voxwire version [--json]        Print version metadata
  voxwire help                    Show this help`)
}

type versionInfo struct {
	Version   string `json:"version"`
	Commit    string `json:"commit"`
	BuildTime string `json:"build_time"`
}

func runVersion(args []string) int {
	fs := flag.NewFlagSet("version", flag.ContinueOnError)
	jsonOut := fs.Bool("json", false, "Output version metadata as JSON")
	if err := fs.Parse(args); err != nil {
		fmt.Fprintf(os.Stderr, "Flag error: %v\n", err)
		return 1
	}

	if *jsonOut {
		out, _ := json.MarshalIndent(versionInfo{
			Version:   version,
			Commit:    gitCommit,
			BuildTime: buildDate,
		}, "", "  ")
		fmt.Println(string(out))
		return 0
	}

	fmt.Printf("voxwire %s (commit %s, built %s)\n", version, gitCommit, buildDate)
	return 0
}

func runStart(args []string) int {
	fs := flag.NewFlagSet("start", flag.ExitOnError)
	configPath := fs.String("config", "", "Path to configuration file")
	if err := fs.Parse(args); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to parse flags: %v\n", err)
		return 1
	}

	var cfg *config.Config
	var err error
	if *configPath == "" {
		cfg = config.Default()
	} else {
		cfg, err = config.Load(*configPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
			return 1
		}
	}

	log.Setup(cfg.LogLevel)
	logger := log.WithComponent("main")
	logger.Info("voxwire starting", "version", version, "config", *configPath)

	hub := events.NewHub(cfg.Events.Buffer)
	attachments := attachment.NewInProcessManager()
	reporter := dispatch.NewTraceReporter(hub)

	router := dispatch.NewRouter()
	gateway := apigateway.New(cfg.Gateway.Default, reporter)
	if err := router.AddHandler(gateway); err != nil {
		logger.Error("failed to register ApiGateway handler", "error", err)
		return 1
	}
	logger.Info("handler registered", "namespace", gateway.Namespace(), "handlers", router.Handlers())

	sequencer := dispatch.NewSequencer(router, reporter, attachments, hub)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	errCh := make(chan error, 1)

	apiConfig := api.Config{
		Listen: cfg.API.Listen,
		APIKey: cfg.API.APIKey,
	}
	apiServer := api.New(apiConfig, sequencer, router, hub, log.WithComponent("api"))
	go func() {
		if err := apiServer.Start(ctx); err != nil && err != context.Canceled {
			errCh <- fmt.Errorf("api: %w", err)
		}
	}()

	logger.Info("voxwire running (press Ctrl+C to stop)", "listen", cfg.API.Listen)

	exitCode := 0
	select {
	case sig := <-sigCh:
		logger.Info("received shutdown signal", "signal", sig)
		cancel()
	case err := <-errCh:
		logger.Error("component failed", "error", err)
		cancel()
		exitCode = 1
	}

	// Stop intake first so nothing new reaches handlers, then tear the
	// handlers down, then release attachment readers.
	sequencer.Shutdown()
	router.Shutdown()
	attachments.Shutdown()

	logger.Info("voxwire stopped")
	return exitCode
}
