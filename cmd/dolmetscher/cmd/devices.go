// ============================================================================
// meinDENKWERK (mDW) - Dolmetscher
// ============================================================================
//
// Package:     cmd
// Description: CLI commands listing and selecting audio devices
// Author:      Mike Stoffels
// Created:     2026-10-19
// License:     MIT
// ============================================================================

package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/huh"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/msto63/dolmetscher/internal/interpreter"
	"github.com/msto63/dolmetscher/internal/interpreter/audio"
	"github.com/msto63/dolmetscher/internal/interpreter/prefs"
)

var (
	selectInput  string
	selectOutput string
)

var devicesCmd = &cobra.Command{
	Use:   "devices",
	Short: "List audio devices",
	RunE:  runDevicesList,
}

var devicesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List audio devices and the stored selection",
	RunE:  runDevicesList,
}

var devicesSelectCmd = &cobra.Command{
	Use:   "select",
	Short: "Choose the input and output device for the next sessions",
	Long: `Stores the devices used when run, tui or tray start without
--input/--output. Without flags an interactive picker opens.

Examples:
  dolmetscher devices select
  dolmetscher devices select --input "USB Microphone" --output default`,
	RunE: runDevicesSelect,
}

func init() {
	rootCmd.AddCommand(devicesCmd)
	devicesCmd.AddCommand(devicesListCmd)
	devicesCmd.AddCommand(devicesSelectCmd)

	devicesSelectCmd.Flags().StringVar(&selectInput, "input", "", "input device name (default: system default)")
	devicesSelectCmd.Flags().StringVar(&selectOutput, "output", "", "output device name (default: system default)")
}

func runDevicesList(cmd *cobra.Command, args []string) error {
	devices, err := audio.ListDevices()
	if err != nil {
		return err
	}

	var stored prefs.Devices
	if store, err := prefs.Open(prefs.Config{Path: appConfig.Prefs.Path}); err == nil {
		stored, _ = store.Devices(cmd.Context())
		store.Close()
	}

	renderDevices(os.Stdout, devices, stored)
	return nil
}

func renderDevices(w io.Writer, devices []audio.DeviceInfo, stored prefs.Devices) {
	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"Device", "Host API", "In", "Out", "Rate", "Default", "Selected"})
	table.SetBorder(false)
	table.SetCenterSeparator("|")
	table.SetColumnSeparator("|")
	table.SetRowSeparator("-")
	table.SetAutoWrapText(false)
	table.SetAutoFormatHeaders(true)

	for _, d := range devices {
		table.Append([]string{
			d.Name,
			d.HostAPI,
			fmt.Sprintf("%d", d.MaxInputChannels),
			fmt.Sprintf("%d", d.MaxOutputChannels),
			fmt.Sprintf("%.0f", d.DefaultSampleRate),
			defaultMarks(d),
			selectedMarks(d, stored),
		})
	}

	table.Render()
}

func defaultMarks(d audio.DeviceInfo) string {
	var marks []string
	if d.IsDefaultInput {
		marks = append(marks, "in")
	}
	if d.IsDefaultOutput {
		marks = append(marks, "out")
	}
	return strings.Join(marks, ",")
}

func selectedMarks(d audio.DeviceInfo, stored prefs.Devices) string {
	var marks []string
	if d.IsInput() && d.Handle == stored.Input {
		marks = append(marks, "in")
	}
	if d.IsOutput() && d.Handle == stored.Output {
		marks = append(marks, "out")
	}
	return strings.Join(marks, ",")
}

func runDevicesSelect(cmd *cobra.Command, args []string) error {
	store, err := prefs.Open(prefs.Config{Path: appConfig.Prefs.Path})
	if err != nil {
		return err
	}
	defer store.Close()

	input := interpreter.DeviceHandle(selectInput)
	output := interpreter.DeviceHandle(selectOutput)

	if !cmd.Flags().Changed("input") && !cmd.Flags().Changed("output") {
		devices, err := audio.ListDevices()
		if err != nil {
			return err
		}
		stored, err := store.Devices(cmd.Context())
		if err != nil {
			return err
		}
		if input, output, err = pickDevices(devices, stored); err != nil {
			return err
		}
	}

	return saveSelection(cmd.Context(), store, input, output)
}

func pickDevices(devices []audio.DeviceInfo, stored prefs.Devices) (interpreter.DeviceHandle, interpreter.DeviceHandle, error) {
	input := string(audio.Resolve(audio.Inputs(devices), stored.Input))
	output := string(audio.Resolve(audio.Outputs(devices), stored.Output))

	form := huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[string]().
				Title("Input device (speech to interpret)").
				Options(deviceOptions(audio.Inputs(devices))...).
				Value(&input),
			huh.NewSelect[string]().
				Title("Output device (translated speech)").
				Options(deviceOptions(audio.Outputs(devices))...).
				Value(&output),
		),
	)
	if err := form.Run(); err != nil {
		return "", "", err
	}
	return interpreter.DeviceHandle(input), interpreter.DeviceHandle(output), nil
}

func deviceOptions(devices []audio.DeviceInfo) []huh.Option[string] {
	options := []huh.Option[string]{huh.NewOption("System default", string(interpreter.DefaultDevice))}
	for _, d := range devices {
		label := d.Name
		if d.HostAPI != "" {
			label = fmt.Sprintf("%s (%s)", d.Name, d.HostAPI)
		}
		options = append(options, huh.NewOption(label, string(d.Handle)))
	}
	return options
}

func saveSelection(ctx context.Context, store *prefs.Store, input, output interpreter.DeviceHandle) error {
	if err := store.SaveDevices(ctx, input, output); err != nil {
		return err
	}
	fmt.Printf("Input:  %s\n", input)
	fmt.Printf("Output: %s\n", output)
	return nil
}
