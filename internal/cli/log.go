package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"unipkg/internal/logging"
	"unipkg/internal/ui"
)

var (
	logLines int
	logLevel string
)

var logCmd = &cobra.Command{
	Use:   "log",
	Short: "Show the unipkg log",
	Long: `Show the most recent entries of the unipkg log file, including the
package manager commands that were run and their outcome.

Examples:
  unipkg log               # Last 50 entries
  unipkg log -n 200        # Last 200 entries
  unipkg log --level warn  # Warnings and errors only`,
	RunE: runLog,
}

func init() {
	logCmd.Flags().IntVarP(&logLines, "lines", "n", 50, "number of entries to show (0 for all)")
	logCmd.Flags().StringVar(&logLevel, "level", "debug", "minimum severity (debug, info, warn, error)")
	rootCmd.AddCommand(logCmd)
}

func runLog(cmd *cobra.Command, args []string) error {
	if cfg.Logging.File == "" {
		return fmt.Errorf("file logging is disabled in the config")
	}

	threshold := minSeverity(logLevel)
	entries, err := logging.ReadFile(cfg.Logging.File, 0)
	if err != nil {
		return err
	}

	var shown []logging.Entry
	for _, e := range entries {
		if e.Severity >= threshold {
			shown = append(shown, e)
		}
	}
	if logLines > 0 && len(shown) > logLines {
		shown = shown[len(shown)-logLines:]
	}

	for _, e := range shown {
		ts := ui.Muted.Sprint(e.Time.Local().Format("2006-01-02 15:04:05"))
		switch e.Severity {
		case logging.SeverityDebug:
			fmt.Printf("%s %s\n", ts, ui.Muted.Sprint(e.Message))
		case logging.SeveritySuccess:
			fmt.Printf("%s %s\n", ts, ui.Success.Sprint(e.Message))
		case logging.SeverityWarning:
			fmt.Printf("%s %s\n", ts, ui.Warning.Sprint(e.Message))
		case logging.SeverityError:
			fmt.Printf("%s %s\n", ts, ui.Error.Sprint(e.Message))
		default:
			fmt.Printf("%s %s\n", ts, e.Message)
		}
	}
	return nil
}

func minSeverity(level string) logging.Severity {
	switch level {
	case "info":
		return logging.SeverityInfo
	case "warn", "warning":
		return logging.SeverityWarning
	case "error":
		return logging.SeverityError
	}
	return logging.SeverityDebug
}
