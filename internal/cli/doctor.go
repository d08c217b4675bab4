package cli

import (
	"fmt"
	"os/exec"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/jwo-cv/merlcut/internal/pipeline"
)

const ffmpegInstallURL = "https://ffmpeg.org/download.html"

var (
	headerStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#D33061"))
	okStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("#A6A75D"))
	missingStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#AC3835")).Bold(true)
	dimStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("#AEA47A"))
)

// toolCheck is the outcome of looking up one external binary.
type toolCheck struct {
	Name string
	Bin  string
	Path string
	Err  error
}

func checkTools(tools map[string]string, order []string) []toolCheck {
	out := make([]toolCheck, 0, len(order))
	for _, name := range order {
		bin := tools[name]
		p, err := exec.LookPath(bin)
		out = append(out, toolCheck{Name: name, Bin: bin, Path: p, Err: err})
	}
	return out
}

func renderChecks(checks []toolCheck) string {
	var b strings.Builder
	b.WriteString(headerStyle.Render("merlcut doctor"))
	b.WriteString("\n")
	for _, c := range checks {
		if c.Err != nil {
			fmt.Fprintf(&b, "%s %s %s\n",
				missingStyle.Render("✗"),
				c.Name,
				dimStyle.Render(fmt.Sprintf("%q not found, install from %s", c.Bin, ffmpegInstallURL)))
			continue
		}
		fmt.Fprintf(&b, "%s %s %s\n", okStyle.Render("✓"), c.Name, dimStyle.Render(c.Path))
	}
	return b.String()
}

func newDoctorCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "doctor",
		Short: "Check that ffmpeg and ffprobe are installed",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := pipeline.LoadConfig()
			if err != nil {
				return fmt.Errorf("config: %w", err)
			}
			checks := checkTools(map[string]string{
				"ffmpeg":  cfg.FFmpegPath,
				"ffprobe": cfg.FFprobePath,
			}, []string{"ffmpeg", "ffprobe"})
			fmt.Fprint(cmd.OutOrStdout(), renderChecks(checks))

			var missing []string
			for _, c := range checks {
				if c.Err != nil {
					missing = append(missing, c.Name)
				}
			}
			if len(missing) > 0 {
				return fmt.Errorf("missing dependencies: %s", strings.Join(missing, ", "))
			}
			return nil
		},
	}
}
