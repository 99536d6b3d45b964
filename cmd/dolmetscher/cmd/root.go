package cmd

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/msto63/dolmetscher/pkg/core/config"
	"github.com/msto63/dolmetscher/pkg/core/logging"
)

var (
	cfgFile  string
	logLevel string
	verbose  bool

	// appConfig is loaded before every command runs
	appConfig *config.Config
)

var rootCmd = &cobra.Command{
	Use:   "dolmetscher",
	Short: "Dolmetscher - live speech interpreter",
	Long: `Dolmetscher listens to speech in one language, translates every
finished sentence and speaks the translation, live.

Default pair: Russian → English.

Components:
  capture     - PortAudio microphone capture
  recognition - whisper.cpp with WebRTC VAD endpointing
  translation - Ollama (local) or Gemini
  speech      - Piper or macOS say`,
	SilenceUsage:      true,
	PersistentPreRunE: loadConfig,
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: $DOLMETSCHER_CONFIG or ./configs/dolmetscher.toml)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output (same as --log-level debug)")
}

func loadConfig(cmd *cobra.Command, args []string) error {
	var err error
	if cfgFile != "" {
		appConfig, err = config.Load(cfgFile)
	} else {
		appConfig, err = config.LoadFromEnv()
	}
	if err != nil {
		return err
	}

	configureLogging(os.Stderr)
	return nil
}

// configureLogging applies the configured level and format to all loggers
// created afterwards
func configureLogging(out io.Writer) {
	lc := logging.DefaultLoggerConfig("")
	lc.Output = out
	lc.Level = appConfig.General.LogLevel
	lc.Format = appConfig.General.LogFormat
	if logLevel != "" {
		lc.Level = logLevel
	}
	if verbose {
		lc.Level = "debug"
	}
	logging.Configure(lc)
}

func printError(msg string, err error) {
	fmt.Fprintf(os.Stderr, "Error: %s: %v\n", msg, err)
}
