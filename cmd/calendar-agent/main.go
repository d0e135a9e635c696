// Package main wires the credential store, calendar tools, and agent loop
// into an interactive calendar assistant.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"google.golang.org/api/option"

	"github.com/ryanlzh/calendar-agent-go/pkg/agent"
	configpkg "github.com/ryanlzh/calendar-agent-go/pkg/config"
	"github.com/ryanlzh/calendar-agent-go/pkg/gcal"
	"github.com/ryanlzh/calendar-agent-go/pkg/googleauth"
	loggerpkg "github.com/ryanlzh/calendar-agent-go/pkg/logger"
	"github.com/ryanlzh/calendar-agent-go/pkg/tools"
)

const defaultConfigFile = "config.yaml"

func main() {
	cfg, err := parseCLIConfig(os.Args[1:])
	if err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	appLogger := loggerpkg.NewWriterLogger(os.Stderr)
	ctx := context.Background()

	printBanner(cfg)

	store := googleauth.NewStore(cfg.TokenFile, cfg.ClientSecretFile, appLogger)
	fmt.Println("Initializing Google Calendar service...")
	fmt.Println("If this is your first time, a browser window will open for authentication.")
	if _, err := store.Token(ctx); err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "FATAL: could not authenticate with Google Calendar: %v\n", err)
		if errors.Is(err, googleauth.ErrMissingClientSecret) {
			_, _ = fmt.Fprintf(os.Stderr, "Download the OAuth client file from the Google Cloud Console and save it as %s.\n", cfg.ClientSecretFile)
		}
		os.Exit(1)
	}
	fmt.Println("Authentication successful! Calendar service is ready.")
	fmt.Println()

	registry := tools.New(tools.Context{
		Timezone: cfg.Timezone,
		Verbose:  cfg.Verbose,
		Ctx:      ctx,
		Logger:   appLogger,
		Sessions: func(ctx context.Context) (tools.EventCreator, error) {
			ts, err := store.TokenSource(ctx)
			if err != nil {
				return nil, err
			}
			return gcal.NewClient(ctx, option.WithTokenSource(ts))
		},
	})

	app, err := agent.New(ctx, cfg, registry, agent.WithLogger(appLogger))
	if err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	if err := runREPL(app, os.Stdin, os.Stdout); err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// parseCLIConfig layers the optional config file, .env, environment, and
// flags into the runtime config. API_KEY is the one required variable.
func parseCLIConfig(args []string) (configpkg.Config, error) {
	_ = godotenv.Load()

	defaults := configpkg.DefaultConfig()
	fs := flag.NewFlagSet("calendar-agent", flag.ContinueOnError)
	configFile := fs.String("config", defaultConfigFile, "Path to YAML config file")
	maxTurns := fs.Int("max_turns", defaults.MaxTurns, "Max tool-call turns per user input")
	verbose := fs.Bool("verbose", defaults.Verbose, "Verbose tool-call logging")
	if err := fs.Parse(args); err != nil {
		return configpkg.Config{}, err
	}

	cfg, err := configpkg.LoadFile(defaults, *configFile, *configFile != defaultConfigFile)
	if err != nil {
		return configpkg.Config{}, err
	}

	cfg.Verbose = *verbose
	// The flag only overrides the config file when it was actually passed;
	// otherwise its default would clobber the file's max_turns.
	fs.Visit(func(f *flag.Flag) {
		if f.Name == "max_turns" {
			cfg.MaxTurns = *maxTurns
		}
	})
	cfg.APIKey = strings.TrimSpace(os.Getenv("API_KEY"))
	if base := strings.TrimSpace(os.Getenv("BASE_URL")); base != "" {
		cfg.BaseURL = base
	}
	if model := strings.TrimSpace(os.Getenv("MODEL")); model != "" {
		cfg.Model = model
	}

	if cfg.APIKey == "" {
		return configpkg.Config{}, errors.New("API_KEY environment variable is required")
	}
	return configpkg.Normalize(cfg), nil
}

func printBanner(cfg configpkg.Config) {
	line := strings.Repeat("=", 60)
	fmt.Println(line)
	fmt.Println(`      [0_0]      YOUR PERSONAL`)
	fmt.Println(`     /|___|\     CALENDAR AI`)
	fmt.Println(`    / [___] \    -----------`)
	fmt.Println(`      |___|      READY TO SCHEDULE.`)
	fmt.Println()
	fmt.Printf("    Google Calendar assistant (%s)\n", cfg.Model)
	fmt.Println(line)
}
