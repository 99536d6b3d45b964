package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/msto63/dolmetscher/internal/tui"
)

var tuiCmd = &cobra.Command{
	Use:   "tui",
	Short: "Interpret with a terminal UI",
	Long: `Opens the terminal UI. Keys:

  s  start interpreting
  x  stop
  c  clear the transcript
  q  quit

Logs go to <data_dir>/dolmetscher.log while the UI is open.`,
	RunE: runTUI,
}

func init() {
	rootCmd.AddCommand(tuiCmd)
	addSessionFlags(tuiCmd)
}

func runTUI(cmd *cobra.Command, args []string) error {
	applyFlags(cmd, appConfig)

	// The UI owns the terminal
	if err := os.MkdirAll(appConfig.General.DataDir, 0o755); err != nil {
		return fmt.Errorf("failed to create data dir: %w", err)
	}
	logFile, err := os.OpenFile(filepath.Join(appConfig.General.DataDir, "dolmetscher.log"), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("failed to open log file: %w", err)
	}
	defer logFile.Close()
	configureLogging(logFile)

	a, err := newApp(appConfig, deviceFlags{input: runInput, output: runOutput})
	if err != nil {
		return err
	}
	defer a.close()

	bridge := tui.NewBridge()
	a.controller.AddSink(bridge)

	input, output := a.controller.Devices()
	info := tui.Info{
		Source: appConfig.Translation.Source,
		Target: appConfig.Translation.Target,
		Input:  input,
		Output: output,
	}

	if err := tui.Run(a.controller, bridge, info); err != nil {
		return err
	}
	a.rememberDevices()
	return nil
}
