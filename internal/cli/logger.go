package cli

import (
	"fmt"
	"io"

	"github.com/fatih/color"
)

type Logger struct {
	Out     io.Writer
	Err     io.Writer
	Verbose bool
	Debug   bool
}

func (l Logger) Infof(msg string, args ...any) {
	if l.Verbose {
		fmt.Fprintf(l.Out, color.GreenString("[info] ")+msg+"\n", args...)
	}
}

func (l Logger) Debugf(msg string, args ...any) {
	if l.Debug {
		fmt.Fprintf(l.Out, color.CyanString("[debug] ")+msg+"\n", args...)
	}
}

func (l Logger) Warnf(msg string, args ...any) {
	fmt.Fprintf(l.Err, color.YellowString("[warn] ")+msg+"\n", args...)
}

func (l Logger) Successf(msg string, args ...any) {
	fmt.Fprintf(l.Out, color.GreenString("✓ ")+msg+"\n", args...)
}
