package diagfmt

import (
	"fmt"
	"io"

	"github.com/fatih/color"

	"kiln/internal/diag"
)

var (
	errColor  = color.New(color.FgRed, color.Bold)
	warnColor = color.New(color.FgYellow, color.Bold)
	infoColor = color.New(color.FgCyan)
)

// Pretty renders a bag's diagnostics one per line:
// <unit>:<span>: <SEV> <CODE>: <message>, followed by indented notes.
func Pretty(w io.Writer, unitName string, bag *diag.Bag, opts PrettyOpts) {
	if bag == nil {
		return
	}
	for _, d := range bag.Items() {
		sev := d.Severity.String()
		if opts.Color {
			switch d.Severity {
			case diag.SevError:
				sev = errColor.Sprint(sev)
			case diag.SevWarning:
				sev = warnColor.Sprint(sev)
			default:
				sev = infoColor.Sprint(sev)
			}
		}
		fmt.Fprintf(w, "%s:%s: %s %s: %s\n", unitName, d.Primary, sev, d.Code, d.Message)
		if !opts.ShowNotes {
			continue
		}
		for _, n := range d.Notes {
			fmt.Fprintf(w, "  note: %s: %s\n", n.Span, n.Msg)
		}
	}
}
