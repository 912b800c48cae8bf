package main

import (
	"fmt"
	"io"
	"os"
)

// Human-facing status lines go to messages so stdout stays clean for
// values other commands pipe, such as session IDs and explanations.
var messages io.Writer = os.Stderr

// style is an ANSI escape sequence; the zero value leaves text untouched.
type style string

const (
	styleReset  style = "\033[0m"
	styleBold   style = "\033[1m"
	styleRed    style = "\033[31m"
	styleGreen  style = "\033[32m"
	styleYellow style = "\033[33m"
	styleCyan   style = "\033[36m"
)

func (s style) apply(text string) string {
	if noColor || s == "" {
		return text
	}
	return string(s) + text + string(styleReset)
}

// notice writes one marked line, e.g. "✓ server started".
func notice(s style, mark, format string, args ...any) {
	fmt.Fprintln(messages, s.apply(mark+" "+fmt.Sprintf(format, args...)))
}

func printSuccess(format string, args ...any) { notice(styleGreen, "✓", format, args...) }
func printError(format string, args ...any)   { notice(styleRed, "✗", format, args...) }
func printWarning(format string, args ...any) { notice(styleYellow, "⚠", format, args...) }
func printHint(format string, args ...any)    { notice(styleCyan, "→", format, args...) }

// printField writes an indented "Label: value" row for `codevoice status`
// and the one-shot explain summary.
func printField(label, format string, args ...any) {
	fmt.Fprintf(messages, "  %s %s\n", styleBold.apply(label+":"), fmt.Sprintf(format, args...))
}
