package main

import (
	"flag"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/dokzlo13/huepanel/internal/app"
	"github.com/dokzlo13/huepanel/internal/config"
)

func main() {
	var configPath string
	flag.StringVar(&configPath, "config", "config.yaml", "Path to configuration file")
	flag.StringVar(&configPath, "c", "config.yaml", "Path to configuration file (shorthand)")
	script := flag.String("script", "", "Run a Lua script against the default bridge (hue.bridge, hue.token) and exit")
	flag.Parse()

	cfg, err := config.Load(configPath)
	if err != nil {
		log.Fatal().Err(err).Str("config", configPath).Msg("Failed to load configuration")
	}
	setupLogging(cfg.Log)

	panel, err := app.New(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open panel storage")
	}

	ctx, stop := app.SignalContext()
	defer stop()

	if *script != "" {
		log.Info().Str("script", *script).Str("bridge", cfg.Hue.Bridge).Msg("Running script")
		if err := panel.RunScript(ctx, *script); err != nil {
			log.Error().Err(err).Str("script", *script).Msg("Script failed")
			stop()
			os.Exit(1)
		}
		return
	}

	log.Info().Str("config", configPath).Msg("Starting huepanel")
	if err := panel.Serve(ctx); err != nil {
		log.Error().Err(err).Msg("Panel stopped with error")
		stop()
		os.Exit(1)
	}
}

// setupLogging configures the global zerolog logger. Unknown levels fall
// back to info.
func setupLogging(cfg config.LogConfig) {
	zerolog.TimeFieldFormat = time.RFC3339

	if cfg.UseJSON {
		log.Logger = zerolog.New(os.Stderr).With().Timestamp().Logger()
	} else {
		log.Logger = log.Output(zerolog.ConsoleWriter{
			Out:        os.Stderr,
			TimeFormat: "15:04:05.000",
			NoColor:    !cfg.Colors,
		})
	}

	lvl, err := zerolog.ParseLevel(cfg.GetLevel())
	if err != nil || lvl == zerolog.NoLevel {
		lvl = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(lvl)
}
