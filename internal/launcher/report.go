// SPDX-License-Identifier: MPL-2.0

package launcher

import (
	"fmt"
	"strings"
	"time"

	"github.com/extlaunch/extlaunch/internal/resolve"
	"github.com/extlaunch/extlaunch/internal/runtime"
	"github.com/extlaunch/extlaunch/internal/snapshot"
	"github.com/extlaunch/extlaunch/pkg/script"
)

// Report collects the debug details of one execution. Fields that were not
// reached (for example Command on an aborted run) are left out of the text.
type Report struct {
	Script   script.Script
	Program  string
	WorkDir  string
	Snapshot *snapshot.Snapshot
	Command  *resolve.Command
	Elapsed  time.Duration
	Result   *runtime.Result
	Err      error
}

// String renders the report as plain text, one field per line.
func (r Report) String() string {
	var b strings.Builder

	fmt.Fprintf(&b, "Script: %s\n", r.Script.Name)
	fmt.Fprintf(&b, "Command: %s\n", r.Program)
	if r.Command != nil {
		fmt.Fprintf(&b, "Full command: %s\n", r.Command.Line())
	}
	fmt.Fprintf(&b, "Working directory: %s\n", r.WorkDir)

	if r.Snapshot != nil {
		b.WriteString("Context snapshot:\n")
		b.WriteString(r.Snapshot.IndentedJSON())
		b.WriteString("\n")
	}

	if r.Command != nil {
		for _, tok := range r.Command.Args {
			fmt.Fprintf(&b, "- %s: %s\n", tok.Template, tok.Quoted)
		}
	}

	if r.Result != nil || r.Elapsed > 0 {
		fmt.Fprintf(&b, "Execution time: %s\n", FormatElapsed(r.Elapsed))
	}

	if r.Err != nil {
		fmt.Fprintf(&b, "Error: %v\n", r.Err)
	}
	if r.Result != nil {
		fmt.Fprintf(&b, "stdout:\n%s\n", r.Result.Output)
		fmt.Fprintf(&b, "stderr:\n%s\n", r.Result.ErrOutput)
	}

	return b.String()
}
