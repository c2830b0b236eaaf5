// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/extlaunch/extlaunch/internal/dispatch"
	"github.com/extlaunch/extlaunch/internal/launcher"
)

// logViewerTitle heads every log panel; the elapsed time follows in parentheses.
const logViewerTitle = "External Launcher Log Viewer"

type (
	// terminalNotifier prints dispatch notifications as one styled line.
	terminalNotifier struct {
		mu sync.Mutex
		w  io.Writer
	}

	// terminalLogView renders dispatch logs as a bordered panel.
	terminalLogView struct {
		mu sync.Mutex
		w  io.Writer
	}
)

func (n *terminalNotifier) Notify(msg string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	fmt.Fprintln(n.w, notifyStyle.Render("◆ ")+msg)
}

func (v *terminalLogView) ShowLog(l dispatch.Log) {
	v.mu.Lock()
	defer v.mu.Unlock()
	fmt.Fprintln(v.w, renderLogPanel(l))
}

// renderLogPanel formats l with a title line, a success or warning marker and
// the detail text.
func renderLogPanel(l dispatch.Log) string {
	marker := SuccessStyle.Render("✓ success")
	panel := logSuccessBorder
	if l.IsError {
		marker = WarningStyle.Render("! warning")
		panel = logWarningBorder
	}

	var b strings.Builder
	b.WriteString(TitleStyle.Render(fmt.Sprintf("%s (%s)", logViewerTitle, launcher.FormatElapsed(l.Elapsed))))
	b.WriteString("\n")
	b.WriteString(marker)
	if l.Script != "" {
		b.WriteString(" ")
		b.WriteString(CmdStyle.Render(string(l.Script)))
	}
	b.WriteString("\n\n")
	b.WriteString(strings.TrimRight(l.Detail, "\n"))
	return panel.Render(b.String())
}
