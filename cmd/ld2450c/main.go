package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/caarlos0/env/v11"
	"github.com/rs/zerolog/log"

	"github.com/timzifer/ld2450/compiler"
	"github.com/timzifer/ld2450/config"
	"github.com/timzifer/ld2450/entity"
	"github.com/timzifer/ld2450/internal/logging"
	"github.com/timzifer/ld2450/processor"
)

type environment struct {
	ConfigPath string `env:"LD2450_CONFIG" envDefault:"ld2450.yaml"`
	LogLevel   string `env:"LD2450_LOG_LEVEL"`
}

func main() {
	var envCfg environment
	if err := env.Parse(&envCfg); err != nil {
		fmt.Fprintf(os.Stderr, "parse env: %v\n", err)
		os.Exit(2)
	}

	cfgPath := flag.String("config", envCfg.ConfigPath, "Path to a YAML file or CUE package directory")
	configCheck := flag.Bool("config-check", false, "Compile configuration, print the entity graph and exit")
	watch := flag.Bool("watch", false, "Keep running and recompile on configuration changes")
	flag.Parse()

	if *configCheck {
		os.Exit(executeConfigCheck(os.Stdout, *cfgPath))
	}

	doc, err := config.Load(*cfgPath)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}
	if envCfg.LogLevel != "" {
		doc.Logging.Level = envCfg.LogLevel
	}

	logger, cleanup, err := logging.Setup(doc.Logging)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to setup logger")
	}
	defer cleanup()
	log.Logger = logger

	if !*watch {
		ctrl, err := compiler.CompileDocument(doc, compiler.WithLogger(logger))
		if err != nil {
			logger.Fatal().Err(err).Msg("compilation failed")
		}
		printReport(os.Stdout, ctrl)
		return
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	doc.HotReload = true
	proc, err := processor.New(ctx,
		processor.WithLogger(logger),
		processor.WithDocument(doc),
		processor.WithConfigPath(*cfgPath, nil),
	)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to start processor")
	}
	defer proc.Close()

	logger.Info().Str("config", *cfgPath).Str("controller", proc.Controller().Name).Msg("watching configuration")
	if err := proc.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error().Err(err).Msg("processor stopped with error")
	}
}

// executeConfigCheck loads and compiles the configuration at path and lists
// every field error instead of stopping at the first one.
func executeConfigCheck(w io.Writer, path string) int {
	doc, err := config.Load(path)
	if err != nil {
		reportInvalid(w, err)
		return 1
	}
	return checkDocument(w, doc)
}

func checkDocument(w io.Writer, doc *config.Document) int {
	ctrl, err := compiler.CompileDocument(doc)
	if err != nil {
		reportInvalid(w, err)
		return 1
	}
	printReport(w, ctrl)
	fmt.Fprintln(w, "Configuration check completed successfully.")
	return 0
}

func reportInvalid(w io.Writer, err error) {
	fmt.Fprintln(w, "Configuration invalid:")
	fields := config.FieldErrors(err)
	if len(fields) == 0 {
		fmt.Fprintf(w, "  - %v\n", err)
		return
	}
	for _, fe := range fields {
		fmt.Fprintf(w, "  - %s\n", fe.Error())
	}
}

func printReport(w io.Writer, ctrl *entity.Controller) {
	fmt.Fprintf(w, "Controller %q\n", ctrl.Name)
	fmt.Fprintf(w, "  ID: %s\n", ctrl.ID)
	fmt.Fprintf(w, "  UART: %s\n", ctrl.UARTID)
	fmt.Fprintf(w, "  Flip X axis: %t\n", ctrl.FlipXAxis)
	fmt.Fprintf(w, "  Fast off detection: %t\n", ctrl.FastOffDetection)
	fmt.Fprintf(w, "  Max distance margin: %.2fm\n", ctrl.MaxDistanceMargin)
	switch {
	case ctrl.FixedMaxDistance != nil:
		fmt.Fprintf(w, "  Max detection distance: %.2fm (fixed)\n", *ctrl.FixedMaxDistance)
	case ctrl.MaxDistanceNumber != nil:
		fmt.Fprintf(w, "  Max detection distance: %.2fm (adjustable)\n", ctrl.MaxDistanceNumber.InitialValue)
	}

	fmt.Fprintf(w, "  Targets: %d\n", len(ctrl.Targets))
	for _, t := range ctrl.Targets {
		fmt.Fprintf(w, "    - %s [%s]\n", t.Name, t.ID)
	}
	fmt.Fprintf(w, "  Zones: %d\n", len(ctrl.Zones))
	for _, z := range ctrl.Zones {
		fmt.Fprintf(w, "    - %s [%s] margin %.2fm, timeout %s, %d points\n", z.Name, z.ID, z.Margin, z.TargetTimeout, len(z.Polygon))
	}

	entities := ctrl.Entities()
	fmt.Fprintf(w, "  Entities: %d\n", len(entities))
	for _, e := range entities {
		meta := e.Metadata()
		notes := make([]string, 0, 2)
		if meta.Internal {
			notes = append(notes, "internal")
		}
		if meta.DisabledByDefault {
			notes = append(notes, "disabled")
		}
		fmt.Fprintf(w, "    - %s %q [%s]", e.Kind(), meta.Name, meta.ID)
		if len(notes) > 0 {
			fmt.Fprintf(w, " (%s)", strings.Join(notes, ", "))
		}
		fmt.Fprintln(w)
	}
}
