package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/kalambet/codevoice/internal/tone"
)

var errNoSelection = errors.New("no code selected: pass --file (optionally with --lines) or pipe code on stdin")

// readSelection returns the code to explain: lines of file when given,
// otherwise everything on stdin.
func readSelection(file, lines string, stdin io.Reader) (string, error) {
	if file == "" {
		if lines != "" {
			return "", fmt.Errorf("--lines requires --file")
		}
		data, err := io.ReadAll(stdin)
		if err != nil {
			return "", fmt.Errorf("reading stdin: %w", err)
		}
		return string(data), nil
	}

	data, err := os.ReadFile(file)
	if err != nil {
		return "", fmt.Errorf("reading file: %w", err)
	}
	if lines == "" {
		return string(data), nil
	}

	all := strings.SplitAfter(string(data), "\n")
	if n := len(all); n > 0 && all[n-1] == "" {
		all = all[:n-1]
	}
	from, to, err := parseLineRange(lines, len(all))
	if err != nil {
		return "", err
	}
	return strings.Join(all[from-1:to], ""), nil
}

// parseLineRange parses "a-b" or "a" into a 1-based inclusive range. The
// end is clamped to total.
func parseLineRange(s string, total int) (int, int, error) {
	fromStr, toStr, isRange := strings.Cut(strings.TrimSpace(s), "-")
	from, err := strconv.Atoi(strings.TrimSpace(fromStr))
	if err != nil {
		return 0, 0, fmt.Errorf("invalid --lines %q: want N or A-B", s)
	}
	to := from
	if isRange {
		to, err = strconv.Atoi(strings.TrimSpace(toStr))
		if err != nil {
			return 0, 0, fmt.Errorf("invalid --lines %q: want N or A-B", s)
		}
	}
	if from < 1 || to < from {
		return 0, 0, fmt.Errorf("invalid --lines %q: range must start at 1 or later and not run backwards", s)
	}
	if from > total {
		return 0, 0, fmt.Errorf("--lines %q starts past the end of the file (%d lines)", s, total)
	}
	return from, min(to, total), nil
}

// pickTone shows a numbered menu on out and reads the choice from in. The
// answer may be a number or a (partial) tone name.
func pickTone(in io.Reader, out io.Writer) (tone.Tone, error) {
	tones := tone.All()
	fmt.Fprintln(out, "Choose a tone:")
	for i, t := range tones {
		fmt.Fprintf(out, "  %d) %s: %s\n", i+1, styleBold.apply(t.Name), t.Description)
	}
	fmt.Fprint(out, "> ")

	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return tone.Tone{}, fmt.Errorf("reading choice: %w", err)
	}
	answer := strings.TrimSpace(line)
	if answer == "" {
		return tone.Tone{}, fmt.Errorf("%w: no tone chosen", tone.ErrUnknownTone)
	}
	if n, err := strconv.Atoi(answer); err == nil {
		if n < 1 || n > len(tones) {
			return tone.Tone{}, fmt.Errorf("%w: choose 1-%d", tone.ErrUnknownTone, len(tones))
		}
		return tones[n-1], nil
	}
	return tone.Match(answer)
}
