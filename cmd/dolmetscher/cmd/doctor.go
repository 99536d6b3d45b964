package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/msto63/dolmetscher/internal/interpreter/audio"
	"github.com/msto63/dolmetscher/pkg/core/health"
)

var doctorTimeout time.Duration

var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Check models, tools, backends and audio devices",
	RunE:  runDoctor,
}

func init() {
	rootCmd.AddCommand(doctorCmd)
	doctorCmd.Flags().DurationVar(&doctorTimeout, "timeout", 10*time.Second, "overall check timeout")
}

func runDoctor(cmd *cobra.Command, args []string) error {
	registry := newRegistry(appConfig)
	registry.RegisterFunc("audio devices", audioDevicesCheck)

	report := registry.CheckWithTimeout(doctorTimeout)
	renderReport(os.Stdout, report)

	if report.Status == health.StatusUnhealthy {
		return fmt.Errorf("%d check(s) failed", countStatus(report, health.StatusUnhealthy))
	}
	return nil
}

func audioDevicesCheck(ctx context.Context) health.CheckResult {
	result := health.CheckResult{Name: "audio devices"}

	devices, err := audio.ListDevices()
	if err != nil {
		result.Status = health.StatusUnhealthy
		result.Message = err.Error()
		return result
	}

	inputs, outputs := len(audio.Inputs(devices)), len(audio.Outputs(devices))
	result.Message = fmt.Sprintf("%d input(s), %d output(s)", inputs, outputs)
	switch {
	case inputs == 0:
		result.Status = health.StatusUnhealthy
	case outputs == 0:
		result.Status = health.StatusDegraded
	default:
		result.Status = health.StatusHealthy
	}
	return result
}

func renderReport(w io.Writer, report *health.Report) {
	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"Check", "Status", "Details", "Time"})
	table.SetBorder(false)
	table.SetAutoWrapText(false)

	for _, c := range report.Checks {
		table.Append([]string{
			c.Name,
			statusMark(c.Status),
			c.Message,
			c.Duration.Round(time.Millisecond).String(),
		})
	}
	table.Render()

	fmt.Fprintf(w, "\nOverall: %s\n", report.Status)
	if report.Status != health.StatusHealthy {
		fmt.Fprintln(w, "Tips:")
		fmt.Fprintln(w, "  - The recognition model is a whisper.cpp ggml file, see recognition.model_path")
		fmt.Fprintln(w, "  - Start Ollama with `ollama serve`; the model is pulled on first use")
		fmt.Fprintln(w, "  - Install PortAudio (brew install portaudio / apt install libportaudio2)")
	}
}

func statusMark(s health.Status) string {
	switch s {
	case health.StatusHealthy:
		return "✓ ok"
	case health.StatusDegraded:
		return "~ degraded"
	case health.StatusUnhealthy:
		return "✗ failed"
	default:
		return string(s)
	}
}

func countStatus(report *health.Report, status health.Status) int {
	n := 0
	for _, c := range report.Checks {
		if c.Status == status {
			n++
		}
	}
	return n
}
