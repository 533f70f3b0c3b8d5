package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/grovetools/dock/cli"
	"github.com/grovetools/dock/logging"
	"github.com/grovetools/dock/tui/theme"
	"github.com/hpcloud/tail"
	"github.com/spf13/cobra"
)

func newLogsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "logs [component]",
		Short: "Show today's log file for a dock component",
		Long: `Show today's log file for a dock component (default: dockd, the daemon).
Framework app stderr is logged by the daemon at debug level.

Examples:
  # Follow the daemon log
  dock logs -f

  # Last 50 lines of the CLI log
  dock logs dock -n 50`,
		Args: cobra.MaximumNArgs(1),
		RunE: runLogs,
	}

	cmd.Flags().BoolP("follow", "f", false, "Follow log output")
	cmd.Flags().IntP("lines", "n", -1, "Number of lines to show from the end of the log (default: all)")
	cmd.Flags().String("date", "", "Day to show, YYYY-MM-DD (default: today)")

	return cmd
}

func runLogs(cmd *cobra.Command, args []string) error {
	component := "dockd"
	if len(args) > 0 {
		component = args[0]
	}
	follow, _ := cmd.Flags().GetBool("follow")
	lines, _ := cmd.Flags().GetInt("lines")
	dateFlag, _ := cmd.Flags().GetString("date")

	day := time.Now()
	if dateFlag != "" {
		parsed, err := time.ParseInLocation("2006-01-02", dateFlag, time.Local)
		if err != nil {
			return fmt.Errorf("invalid --date %q: %w", dateFlag, err)
		}
		day = parsed
	}

	path := logging.LogFilePath(component, day)
	if _, err := os.Stat(path); err != nil && !follow {
		return fmt.Errorf("no log file for %s at %s", component, path)
	}

	out := cmd.OutOrStdout()
	printLine := printLogText
	if cli.GetOptions(cmd).JSONOutput {
		printLine = printLogJSON
	}

	// Existing content: all of it, or the last n lines.
	offset, err := printExisting(path, lines, func(line string) { printLine(out, line) })
	if err != nil && !os.IsNotExist(err) {
		return err
	}
	if !follow {
		return nil
	}

	t, err := tail.TailFile(path, tail.Config{
		Follow:    true,
		ReOpen:    true,
		MustExist: false,
		Location:  &tail.SeekInfo{Offset: offset, Whence: io.SeekStart},
		Logger:    tail.DiscardingLogger,
	})
	if err != nil {
		return fmt.Errorf("cannot tail %s: %w", path, err)
	}
	defer t.Cleanup()

	for line := range t.Lines {
		if line.Err != nil {
			continue
		}
		printLine(out, line.Text)
	}
	return t.Err()
}

// printExisting reads path to the end with tail, printing the last n lines
// (all when n < 0), and returns the offset reading stopped at.
func printExisting(path string, n int, emit func(string)) (int64, error) {
	if _, err := os.Stat(path); err != nil {
		return 0, err
	}

	t, err := tail.TailFile(path, tail.Config{
		Follow:    false,
		MustExist: true,
		Logger:    tail.DiscardingLogger,
	})
	if err != nil {
		return 0, err
	}
	defer t.Cleanup()

	var buffered []string
	for line := range t.Lines {
		if line.Err != nil {
			continue
		}
		if n < 0 {
			emit(line.Text)
			continue
		}
		buffered = append(buffered, line.Text)
		if len(buffered) > n {
			buffered = buffered[1:]
		}
	}
	for _, line := range buffered {
		emit(line)
	}

	info, err := os.Stat(path)
	if err != nil {
		return 0, err
	}
	return info.Size(), nil
}

// printLogJSON prints JSON lines unchanged and wraps text lines.
func printLogJSON(w io.Writer, line string) {
	var entry map[string]interface{}
	if err := json.Unmarshal([]byte(line), &entry); err != nil {
		data, _ := json.Marshal(map[string]string{"raw_line": line})
		fmt.Fprintln(w, string(data))
		return
	}
	fmt.Fprintln(w, line)
}

// printLogText styles JSON log lines and passes text lines through.
func printLogText(w io.Writer, line string) {
	var entry map[string]interface{}
	if err := json.Unmarshal([]byte(line), &entry); err != nil {
		fmt.Fprintln(w, line)
		return
	}

	ts, _ := entry["time"].(string)
	level, _ := entry["level"].(string)
	msg, _ := entry["msg"].(string)
	component, _ := entry["component"].(string)

	timeStr := ts
	if parsed, err := time.Parse(time.RFC3339Nano, ts); err == nil {
		timeStr = parsed.Format("15:04:05")
	}

	var levelStyle lipgloss.Style
	switch strings.ToLower(level) {
	case "error", "fatal", "panic":
		levelStyle = theme.DefaultTheme.Error
	case "warning":
		levelStyle = theme.DefaultTheme.Warning
	case "info":
		levelStyle = theme.DefaultTheme.Info
	default:
		levelStyle = theme.DefaultTheme.Muted
	}

	var keys []string
	for k := range entry {
		switch k {
		case "time", "level", "msg", "component":
			continue
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)

	fields := make([]string, 0, len(keys))
	for _, k := range keys {
		fields = append(fields, fmt.Sprintf("%s=%v", theme.DefaultTheme.Muted.Render(k), entry[k]))
	}

	fmt.Fprintf(w, "%s %s [%s] %s %s\n",
		timeStr,
		levelStyle.Render(strings.ToUpper(level)),
		theme.DefaultTheme.Accent.Render(component),
		msg,
		strings.Join(fields, " "))
}
