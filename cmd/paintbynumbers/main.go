package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/alecthomas/kong"
)

// Version information - set by ldflags during build
var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

type cli struct {
	LogLevel string           `help:"Log level (debug, info, warn, error)" enum:"debug,info,warn,error" default:"info" env:"PBN_LOG_LEVEL"`
	Version  kong.VersionFlag `help:"Print version information and quit" short:"v"`

	Serve     serveCmd     `cmd:"" default:"1" help:"Run the MCP server on stdin/stdout (default)"`
	Vectorize vectorizeCmd `cmd:"" help:"Write the palette and region polygons of an image as JSON"`
	Render    renderCmd    `cmd:"" help:"Render the regions of an image as PNG, SVG or a zip bundle"`
	Batch     batchCmd     `cmd:"" help:"Render a bundle for every image in a folder"`
	Info      infoCmd      `cmd:"" name:"version" help:"Print build information"`
}

// newLogger returns a text logger on stderr. stdout is reserved for MCP
// traffic and JSON output.
func newLogger(level string) *slog.Logger {
	var lvl slog.Level
	switch strings.ToLower(level) {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl}))
}

type infoCmd struct{}

func (infoCmd) Run() error {
	fmt.Printf("paintbynumbers %s\n", Version)
	fmt.Printf("  Build time: %s\n", BuildTime)
	fmt.Printf("  Git commit: %s\n", GitCommit)
	return nil
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var c cli
	kctx := kong.Parse(&c,
		kong.Name("paintbynumbers"),
		kong.Description("Turn images into paint-by-numbers regions: a small palette plus simplified, numbered polygons."),
		kong.UsageOnError(),
		kong.Vars{"version": Version},
		kong.BindTo(ctx, (*context.Context)(nil)),
	)

	logger := newLogger(c.LogLevel)
	slog.SetDefault(logger)

	kctx.FatalIfErrorf(kctx.Run(logger))
}
