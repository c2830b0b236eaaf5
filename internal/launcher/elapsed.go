// SPDX-License-Identifier: MPL-2.0

package launcher

import (
	"fmt"
	"time"
)

// FormatElapsed renders d as "<m>m <s>s <ms>ms". Each unit is truncated, not
// rounded. Minutes wrap at 60 and hours are dropped. Negative durations render as zero.
func FormatElapsed(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	ms := d.Milliseconds()
	return fmt.Sprintf("%dm %ds %dms", (ms/60_000)%60, (ms/1000)%60, ms%1000)
}
