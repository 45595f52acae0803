package ui

import (
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/mattn/go-isatty"
	"github.com/mgutz/ansi"
	"github.com/olekukonko/tablewriter"

	apperrors "github.com/Skylar-117/DEND-Nanodegree-Udacity/pkg/errors"
)

var (
	// Output receives everything the package prints.
	Output io.Writer = os.Stdout

	// Check if output supports colors
	supportsColor = isatty.IsTerminal(os.Stdout.Fd()) || isatty.IsCygwinTerminal(os.Stdout.Fd())

	// Color functions
	ColorSuccess  = colorFunc(ansi.Green)
	ColorError    = colorFunc(ansi.Red)
	ColorWarning  = colorFunc(ansi.Yellow)
	ColorInfo     = colorFunc(ansi.Cyan)
	ColorProgress = colorFunc(ansi.Blue)
	ColorBold     = colorFunc("default+b")
	ColorDim      = colorFunc("default+h")
)

// colorFunc returns a function that colors text if supported
func colorFunc(color string) func(string) string {
	return func(text string) string {
		if supportsColor {
			return ansi.Color(text, color)
		}
		return text
	}
}

// SetColor forces color output on or off, e.g. for --no-color.
func SetColor(enabled bool) {
	supportsColor = enabled
}

// ColorEnabled reports whether output is colored.
func ColorEnabled() bool {
	return supportsColor
}

// ShowHeader displays a formatted header
func ShowHeader(title string) {
	width := 50
	padding := (width - len(title) - 2) / 2
	if padding < 0 {
		padding = 0
	}
	right := width - 2 - padding - len(title)
	if right < 0 {
		right = 0
	}

	fmt.Fprintln(Output, "\n+"+strings.Repeat("-", width-2)+"+")
	fmt.Fprintf(Output, "|%s%s%s|\n",
		strings.Repeat(" ", padding),
		ColorBold(title),
		strings.Repeat(" ", right),
	)
	fmt.Fprintln(Output, "+"+strings.Repeat("-", width-2)+"+")
}

// ShowError displays a formatted error. Application errors print their
// message, context and suggestions; other errors print line by line.
func ShowError(err error) {
	if joined, ok := err.(interface{ Unwrap() []error }); ok {
		for _, e := range joined.Unwrap() {
			ShowError(e)
		}
		return
	}

	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		showAppError(err, appErr)
		return
	}

	fmt.Fprintf(Output, "\n%s\n", ColorError("ERROR:"))
	message := err.Error()
	for i, line := range strings.Split(message, "\n") {
		if i == 0 {
			fmt.Fprintf(Output, "  %s\n", line)
		} else {
			fmt.Fprintf(Output, "  %s\n", ColorDim(line))
		}
	}

	if suggestion := getSuggestion(message); suggestion != "" {
		fmt.Fprintf(Output, "\n  %s %s\n", ColorInfo("TIP:"), ColorInfo(suggestion))
	}
}

func showAppError(err error, appErr *apperrors.AppError) {
	fmt.Fprintf(Output, "\n%s %s\n", ColorError("ERROR:"), ColorError(string(appErr.Code)))

	// A task prefix such as "load_users: " is kept in front of the message.
	message := appErr.Message
	if full := err.Error(); full != appErr.Error() {
		if i := strings.Index(full, appErr.Error()); i > 0 {
			message = full[:i] + message
		}
	}
	fmt.Fprintf(Output, "  %s\n", message)

	if appErr.Cause != nil {
		fmt.Fprintf(Output, "  %s\n", ColorDim("Caused by: "+appErr.Cause.Error()))
	}

	keys := make([]string, 0, len(appErr.Context))
	for k := range appErr.Context {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(Output, "  %-12s %v\n", ColorDim(k+":"), appErr.Context[k])
	}

	suggestions := appErr.Suggestions
	if len(suggestions) == 0 {
		if s := getSuggestion(err.Error()); s != "" {
			suggestions = []string{s}
		}
	}
	for _, s := range suggestions {
		fmt.Fprintf(Output, "\n  %s %s\n", ColorInfo("TIP:"), ColorInfo(s))
	}
}

// ShowSuccess displays a success message
func ShowSuccess(message string) {
	fmt.Fprintf(Output, "%s %s\n", ColorSuccess("SUCCESS:"), message)
}

// ShowWarning displays a warning message
func ShowWarning(message string) {
	fmt.Fprintf(Output, "%s %s\n", ColorWarning("WARNING:"), ColorWarning(message))
}

// ShowInfo displays an info message
func ShowInfo(message string) {
	fmt.Fprintf(Output, "%s %s\n", ColorInfo("INFO:"), message)
}

// Table renders rows with aligned columns.
type Table struct {
	writer *tablewriter.Table
}

// NewTable creates a table writing to Output.
func NewTable() *Table {
	return NewTableTo(Output)
}

// NewTableTo creates a table writing to w.
func NewTableTo(w io.Writer) *Table {
	t := tablewriter.NewWriter(w)
	t.SetBorder(false)
	t.SetAutoWrapText(false)
	t.SetAutoFormatHeaders(false)
	t.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	t.SetAlignment(tablewriter.ALIGN_LEFT)
	return &Table{writer: t}
}

// AddHeader sets the header row.
func (t *Table) AddHeader(columns ...string) {
	t.writer.SetHeader(columns)
}

// AddRow adds a data row to the table
func (t *Table) AddRow(values ...string) {
	t.writer.Append(values)
}

// Render displays the table
func (t *Table) Render() {
	t.writer.Render()
}

// FormatRows formats an affected-row count; drivers that report none give -1.
func FormatRows(n int64) string {
	if n < 0 {
		return "-"
	}
	return fmt.Sprintf("%d", n)
}

// FormatDuration formats a duration in a human-readable way
func FormatDuration(d time.Duration) string {
	if d < time.Second {
		return fmt.Sprintf("%dms", d.Milliseconds())
	}
	if d < time.Minute {
		return fmt.Sprintf("%.1fs", d.Seconds())
	}
	if d < time.Hour {
		minutes := int(d.Minutes())
		seconds := int(d.Seconds()) % 60
		return fmt.Sprintf("%dm%ds", minutes, seconds)
	}
	hours := int(d.Hours())
	minutes := int(d.Minutes()) % 60
	return fmt.Sprintf("%dh%dm", hours, minutes)
}

// getSuggestion returns helpful suggestions based on error messages
func getSuggestion(error string) string {
	lower := strings.ToLower(error)

	switch {
	case strings.Contains(lower, "authentication failed"):
		return "Check the connection password in the config, the environment or the keyring"
	case strings.Contains(lower, "connection refused"):
		return "Verify the cluster endpoint, port and security group rules"
	case strings.Contains(lower, "stl_load_errors"):
		return "Query stl_load_errors for the rejected rows"
	case strings.Contains(lower, "not authorized"), strings.Contains(lower, "access denied"):
		return "Ensure the IAM role is attached to the cluster and can read the bucket"
	case strings.Contains(lower, "does not exist"):
		return "Run 'sparkify-dwh tables create' before staging or loading"
	default:
		return ""
	}
}
