// ============================================================================
// meinDENKWERK (mDW) - Dolmetscher
// ============================================================================
//
// Package:     cmd
// Description: CLI command running the interpreter with console status
// Author:      Mike Stoffels
// Created:     2026-10-19
// License:     MIT
// ============================================================================

package cmd

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/msto63/dolmetscher/internal/interpreter"
	"github.com/msto63/dolmetscher/internal/interpreter/sink"
	"github.com/msto63/dolmetscher/internal/tray"
	"github.com/msto63/dolmetscher/pkg/core/config"
)

var (
	runInput  string
	runOutput string
	runModel  string
	runFrom   string
	runTo     string
	runHTTP   string
	runGRPC   string
	runMQTT   string
	runHotkey bool
	runPlain  bool
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Interpret live and print the status to the console",
	Long: `Starts capturing, recognizes speech, translates every finished
sentence and speaks the translation. Ctrl+C stops.

Without --input/--output the devices of the last session are used,
otherwise the system default devices.

Examples:
  dolmetscher run
  dolmetscher run --from ru --to de
  dolmetscher run --input "USB Microphone" --output "Headphones"
  dolmetscher run --input file:testdata/privet.wav
  dolmetscher run --http 127.0.0.1:9469 --mqtt tcp://localhost:1883
  dolmetscher run --hotkey`,
	RunE: runInterpreter,
}

func init() {
	rootCmd.AddCommand(runCmd)
	addSessionFlags(runCmd)

	runCmd.Flags().StringVar(&runHTTP, "http", "", "serve /status, /healthz and /ws on this address")
	runCmd.Flags().StringVar(&runGRPC, "grpc", "", "serve the gRPC health service on this address")
	runCmd.Flags().StringVar(&runMQTT, "mqtt", "", "publish status events to this MQTT broker")
	runCmd.Flags().BoolVar(&runHotkey, "hotkey", false, "toggle with "+tray.ShortcutDescription+" and keep running until Ctrl+C")
	runCmd.Flags().BoolVar(&runPlain, "plain", false, "print status lines without colors")
}

// addSessionFlags registers the flags shared by run, tui and tray
func addSessionFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&runInput, "input", "", "input device name or file:<wav>")
	cmd.Flags().StringVar(&runOutput, "output", "", "output device name")
	cmd.Flags().StringVar(&runModel, "model", "", "recognition model file")
	cmd.Flags().StringVar(&runFrom, "from", "", "source language (default ru)")
	cmd.Flags().StringVar(&runTo, "to", "", "target language (default en)")
}

// applyFlags lets explicitly given flags override the config file
func applyFlags(cmd *cobra.Command, cfg *config.Config) {
	flags := cmd.Flags()
	if flags.Changed("model") {
		cfg.Recognition.ModelPath = runModel
	}
	if flags.Changed("from") {
		cfg.Translation.Source = runFrom
	}
	if flags.Changed("to") {
		cfg.Translation.Target = runTo
	}
	if flags.Changed("http") {
		cfg.Server.HTTPAddr = runHTTP
	}
	if flags.Changed("grpc") {
		cfg.Server.GRPCAddr = runGRPC
	}
	if flags.Changed("mqtt") {
		cfg.MQTT.Broker = runMQTT
	}
}

func runInterpreter(cmd *cobra.Command, args []string) error {
	applyFlags(cmd, appConfig)

	a, err := newApp(appConfig, deviceFlags{input: runInput, output: runOutput})
	if err != nil {
		return err
	}
	defer a.close()

	a.controller.AddSink(sink.NewConsole(os.Stdout, runPlain))

	if err := a.startServer(); err != nil {
		return err
	}
	if err := a.startMQTT(); err != nil {
		printError("MQTT unavailable", err)
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if runHotkey {
		hk, err := tray.RegisterHotkey(func() {
			if err := a.controller.Toggle(); err != nil {
				a.logger.Warn("Toggle failed", "error", err)
			}
		})
		if err != nil {
			return err
		}
		defer hk.Unregister()
	}

	p, err := a.controller.Start()
	if err != nil {
		return err
	}

	if runHotkey {
		// The hotkey may stop and restart; only a signal ends the session
		<-ctx.Done()
	} else {
		select {
		case <-ctx.Done():
		case <-p.Done():
		}
	}

	if err := a.controller.Stop(); err != nil {
		a.logger.Warn("Stop incomplete", "error", err)
	}

	if cur := a.controller.Current(); cur != nil && cur.State() == interpreter.StateFailed {
		return fmt.Errorf("interpreter failed: %w", cur.Err())
	}
	a.rememberDevices()
	return nil
}
