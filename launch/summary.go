//go:build unix

package launch

import (
	"io"
	"strconv"
	"time"

	"github.com/olekukonko/tablewriter"
)

// WriteSummary renders one row per outcome, in launch order.
func WriteSummary(w io.Writer, outcomes []Outcome) {
	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"#", "Program", "Label", "Pid", "Result", "Duration"})
	table.SetAutoWrapText(false)
	table.SetAutoFormatHeaders(true)
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetCenterSeparator("")
	table.SetColumnSeparator("")
	table.SetRowSeparator("")
	table.SetHeaderLine(false)
	table.SetBorder(false)
	table.SetTablePadding("  ")
	table.SetNoWhiteSpace(true)

	for i, o := range outcomes {
		pid := "-"
		if o.Pid != 0 {
			pid = strconv.Itoa(o.Pid)
		}

		duration := "-"
		if o.Duration > 0 {
			duration = o.Duration.Round(100 * time.Microsecond).String()
		}

		table.Append([]string{strconv.Itoa(i + 1), o.Program, o.Label, pid, o.Result(), duration})
	}

	table.Render()
}

// CountFailed returns how many outcomes did not end in a successful exit.
func CountFailed(outcomes []Outcome) int {
	n := 0

	for _, o := range outcomes {
		if o.Failed() {
			n++
		}
	}

	return n
}
