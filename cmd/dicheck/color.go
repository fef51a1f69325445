package main

import (
	"fmt"
	"io"

	"github.com/fatih/color"
	"github.com/junioryono/dicore"
)

var (
	boldRed    = color.New(color.FgRed, color.Bold).SprintFunc()
	boldYellow = color.New(color.FgYellow, color.Bold).SprintFunc()
	boldGreen  = color.New(color.FgGreen, color.Bold).SprintFunc()
	gray       = color.New(color.FgHiBlack).SprintFunc()
	cyan       = color.New(color.FgCyan).SprintFunc()
)

// printDiagnostics writes one line per diagnostic and a summary line.
func printDiagnostics(w io.Writer, diags dicore.Diagnostics) {
	for _, d := range diags {
		severity := boldYellow("warning")
		if d.IsFatal() {
			severity = boldRed("error")
		}

		fmt.Fprintf(w, "%s %s %s: %s\n", severity, gray(d.Kind.Code()), cyan(d.Kind), d.Message)
		if d.Location != "" {
			fmt.Fprintf(w, "    %s %s\n", gray("at"), d.Location)
		}
		if len(d.Path) > 0 {
			fmt.Fprintf(w, "    %s %s\n", gray("path"), d.PathString())
		}
	}

	errors, warnings := len(diags.Fatal()), len(diags.Warnings())
	switch {
	case errors > 0:
		fmt.Fprintf(w, "%s %d error(s), %d warning(s)\n", boldRed("FAIL"), errors, warnings)
	case warnings > 0:
		fmt.Fprintf(w, "%s %d warning(s)\n", boldYellow("OK"), warnings)
	default:
		fmt.Fprintf(w, "%s no problems found\n", boldGreen("OK"))
	}
}
