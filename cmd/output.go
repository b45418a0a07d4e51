package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/mensylisir/xmdeploy/history"
	"github.com/mensylisir/xmdeploy/pipeline/ending"
	xmtime "github.com/mensylisir/xmdeploy/time"
	"github.com/mensylisir/xmdeploy/util"
)

type outputFormat string

const (
	outputText outputFormat = "text"
	outputJSON outputFormat = "json"
	outputYAML outputFormat = "yaml"
)

func parseOutputFormat(s string) (outputFormat, error) {
	switch f := outputFormat(strings.ToLower(strings.TrimSpace(s))); f {
	case "", outputText:
		return outputText, nil
	case outputJSON, outputYAML:
		return f, nil
	default:
		return "", errors.Errorf("unsupported output format %q (want text, json or yaml)", s)
	}
}

var (
	okStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("10"))
	failStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("9"))
	warnStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("11"))
	labelStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	headStyle  = lipgloss.NewStyle().Bold(true).Underline(true)
)

// encodeStructured writes v as indented JSON or YAML.
func encodeStructured(w io.Writer, format outputFormat, v interface{}) error {
	switch format {
	case outputJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	case outputYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return err
		}
		return enc.Close()
	}
	return errors.Errorf("format %q is not structured", format)
}

// renderResult prints the result of a finished deployment. The remote
// output itself is already on the log.
func renderResult(w io.Writer, format outputFormat, res *ending.ExecutionResult) error {
	if format != outputText {
		return encodeStructured(w, format, res)
	}

	var b strings.Builder
	if res.Success {
		b.WriteString(okStyle.Render("✔ deployment succeeded"))
	} else {
		b.WriteString(failStyle.Render(fmt.Sprintf("✘ remote script exited with code %d", res.ExitCode)))
	}
	b.WriteString("\n")
	writeField(&b, "deployment", res.DeploymentID)
	writeField(&b, "remote path", res.RemotePath)
	writeField(&b, "duration", xmtime.Elapsed(res.Duration))
	cleanup := strings.ToLower(res.Cleanup.Status.String())
	if res.Cleanup.Failed() {
		cleanup = warnStyle.Render(cleanup + ": " + res.Cleanup.Error)
	}
	writeField(&b, "cleanup", cleanup)
	_, err := io.WriteString(w, b.String())
	return err
}

func writeField(b *strings.Builder, label, value string) {
	fmt.Fprintf(b, "  %s %s\n", labelStyle.Render(fmt.Sprintf("%-12s", label+":")), value)
}

func renderHistory(w io.Writer, format outputFormat, rows []history.Deployment) error {
	if format != outputText {
		return encodeStructured(w, format, rows)
	}
	if len(rows) == 0 {
		_, err := fmt.Fprintln(w, "no deployments recorded")
		return err
	}

	var b strings.Builder
	b.WriteString(headStyle.Render(fmt.Sprintf("%-36s  %-19s  %-28s  %-11s  %4s  %8s", "DEPLOYMENT", "STARTED", "TARGET", "STATE", "EXIT", "DURATION")))
	b.WriteString("\n")
	for _, r := range rows {
		exit := "-"
		if r.ExitCode != nil {
			exit = fmt.Sprintf("%d", *r.ExitCode)
		}
		state := fmt.Sprintf("%-11s", r.FinalState)
		if r.Success {
			state = okStyle.Render(state)
		} else {
			state = failStyle.Render(state)
		}
		fmt.Fprintf(&b, "%-36s  %-19s  %-28s  %s  %4s  %8s\n",
			r.DeploymentID,
			r.StartedAt.Local().Format("2006-01-02 15:04:05"),
			util.TruncateString(r.Target, 28, "..."),
			state,
			exit,
			xmtime.Elapsed(xmtime.Millis(r.DurationMs)))
	}
	_, err := io.WriteString(w, b.String())
	return err
}

func renderDeployment(w io.Writer, format outputFormat, r *history.Deployment) error {
	if format != outputText {
		return encodeStructured(w, format, r)
	}
	var b strings.Builder
	if r.Success {
		b.WriteString(okStyle.Render("✔ " + r.FinalState))
	} else {
		b.WriteString(failStyle.Render("✘ " + r.FinalState))
	}
	b.WriteString("\n")
	writeField(&b, "deployment", r.DeploymentID)
	writeField(&b, "target", r.Target)
	writeField(&b, "local path", r.LocalPath)
	writeField(&b, "remote path", r.RemotePath)
	writeField(&b, "started", r.StartedAt.Local().Format("2006-01-02 15:04:05 MST"))
	writeField(&b, "duration", xmtime.Elapsed(xmtime.Millis(r.DurationMs)))
	if r.ExitCode != nil {
		writeField(&b, "exit code", fmt.Sprintf("%d", *r.ExitCode))
	}
	if r.CleanupStatus != "" {
		writeField(&b, "cleanup", r.CleanupStatus)
	}
	if r.Error != "" {
		writeField(&b, "error", failStyle.Render(r.Error))
	}
	_, err := io.WriteString(w, b.String())
	return err
}
