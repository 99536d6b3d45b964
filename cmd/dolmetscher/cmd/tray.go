package cmd

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/msto63/dolmetscher/internal/interpreter/translate"
	"github.com/msto63/dolmetscher/internal/tray"
)

var trayHotkey bool

var trayCmd = &cobra.Command{
	Use:   "tray",
	Short: "Interpret from the system tray",
	Long: `Runs as a menu bar / system tray application with
Start/Stop and Quit entries. The icon turns red while listening.`,
	RunE: runTray,
}

func init() {
	rootCmd.AddCommand(trayCmd)
	addSessionFlags(trayCmd)
	trayCmd.Flags().BoolVar(&trayHotkey, "hotkey", true, "toggle with "+tray.ShortcutDescription)
}

func runTray(cmd *cobra.Command, args []string) error {
	applyFlags(cmd, appConfig)

	a, err := newApp(appConfig, deviceFlags{input: runInput, output: runOutput})
	if err != nil {
		return err
	}
	defer a.close()

	toggle := func() {
		if err := a.controller.Toggle(); err != nil {
			a.logger.Warn("Toggle failed", "error", err)
		}
	}

	app := tray.New(translate.Pair(appConfig.Translation.Source, appConfig.Translation.Target), tray.Callbacks{
		OnToggle: toggle,
		OnQuit: func() {
			if err := a.controller.Stop(); err != nil {
				a.logger.Warn("Stop incomplete", "error", err)
			}
		},
	})
	a.controller.AddSink(app)

	if trayHotkey {
		hk, err := tray.RegisterHotkey(toggle)
		if err != nil {
			a.logger.Warn("Hotkey unavailable", "error", err)
		} else {
			defer hk.Unregister()
		}
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	go func() {
		<-ctx.Done()
		app.Quit()
	}()

	app.Run()
	a.rememberDevices()
	return nil
}
