//go:build unix

package launch

import (
	"fmt"

	"github.com/gookit/color"
)

var (
	bannerTag     = color.New(color.FgCyan)
	bannerProgram = color.New(color.FgGreen, color.OpBold)
	bannerLabel   = color.New(color.FgYellow)
)

// Banner formats the progress line printed before a child is launched:
//
//	PARENT PROCESS: <program, padded to 25>: <label>
//
// With colorize set, the three parts are colored (cyan, bold green, yellow)
// when the terminal supports it.
func Banner(d Descriptor, colorize bool) string {
	program := fmt.Sprintf("%-25s", d.Program)

	if !colorize {
		return fmt.Sprintf("PARENT PROCESS: %s: %s\n", program, d.Label)
	}

	return fmt.Sprintf("%s: %s: %s\n",
		bannerTag.Render("PARENT PROCESS"),
		bannerProgram.Render(program),
		bannerLabel.Render(d.Label),
	)
}
