package notifier

import (
	"fmt"
	"html"
	"strings"
	"time"
)

// TeardownReport summarises a finished run for the shutdown alert.
type TeardownReport struct {
	SessionID   string
	Display     string
	Reason      string
	Frames      int
	FetchErrors int
	GhostCycles int
	StartedAt   time.Time
	StoppedAt   time.Time
	Err         error
}

// FormatTeardown formats the shutdown alert as Telegram HTML.
func FormatTeardown(r *TeardownReport) string {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("🛑 <b>PaperTicker stopped</b> | %s\n\n", r.StoppedAt.Format("2006-01-02 15:04:05")))
	b.WriteString(fmt.Sprintf("Reason: %s\n", html.EscapeString(r.Reason)))
	b.WriteString(fmt.Sprintf("Display: %s\n", html.EscapeString(r.Display)))
	b.WriteString(fmt.Sprintf("Uptime: %s\n", r.StoppedAt.Sub(r.StartedAt).Round(time.Second)))
	b.WriteString(fmt.Sprintf("Frames: %d (price missing in %d)\n", r.Frames, r.FetchErrors))
	if r.GhostCycles > 0 {
		b.WriteString(fmt.Sprintf("Ghost-fix cycles: %d\n", r.GhostCycles))
	}
	if r.Err != nil {
		b.WriteString(fmt.Sprintf("\n⚠️ Teardown error: %s\n", html.EscapeString(r.Err.Error())))
	}
	b.WriteString(fmt.Sprintf("\nSession: <code>%s</code>", r.SessionID))
	return b.String()
}
