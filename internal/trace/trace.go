// Package trace parses free-text stack traces into ordered structured
// frames. It understands the two mainstream engine dialects ("at fn
// (file:1:2)" and "fn@file:1:2") plus anonymous variants; anything else
// degrades into a placeholder frame rather than being dropped.
package trace

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/crimson-sun/beacon/internal/payload"
)

// Placeholder filenames for frames that carry no real location.
const (
	FilenameNoStack  = "(no stack trace)"
	FilenameUnparsed = "(unparsed)"

	// MethodAnonymous marks frames whose function name is unrecoverable.
	MethodAnonymous = "(anonymous)"

	defaultKind = "Error"
)

// The location's line and column are always the last two colon-separated
// integer groups, so the path group stays greedy and may itself contain
// colons (file:// URLs, Windows drive letters).
var (
	// "at foo (a.js:1:2)", "at async Object.run (file:///srv/x.js:10:4)"
	reNamed = regexp.MustCompile(`^(?:at\s+)?(?:async\s+)?(\S+)\s+\((.*):(\d+):(\d+)\)?$`)
	// "at a.js:3:4" — no function identifier, no parens. "@" is excluded
	// from the path so alternate-dialect lines fall through to reAlternate.
	reAnonymous = regexp.MustCompile(`^(?:at\s+)?(?:async\s+)?([^()\s@]+):(\d+):(\d+)$`)
	// "foo@a.js:1:2", "@a.js:1:2"
	reAlternate = regexp.MustCompile(`^(\S*)@(.*):(\d+):(\d+)$`)
)

// matcher attempts one frame-line grammar. Matchers are pure and tried in
// order, first match wins.
type matcher func(line string) (payload.Frame, bool)

var matchers = []matcher{matchNamed, matchAnonymous, matchAlternate}

// Parse normalizes a raw stack trace into an ordered frame sequence.
// kind is the error's declared class name ("TypeError", ...); it is used
// to recognize the summary line and to label the placeholder frame when
// no trace text is available. The returned sequence is oldest-first: the
// outermost caller leads and the originating frame is last.
func Parse(kind, stack string) []payload.Frame {
	if kind == "" {
		kind = defaultKind
	}
	if strings.TrimSpace(stack) == "" {
		return []payload.Frame{placeholder(kind)}
	}

	var frames []payload.Frame
	for i, line := range strings.Split(stack, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if i == 0 && isSummary(line, kind) {
			continue
		}
		frames = append(frames, parseLine(line))
	}
	if len(frames) == 0 {
		return []payload.Frame{placeholder(kind)}
	}

	// Raw traces list the originating frame first; the collector expects
	// oldest-first, so reverse.
	for i, j := 0, len(frames)-1; i < j; i, j = i+1, j-1 {
		frames[i], frames[j] = frames[j], frames[i]
	}
	return frames
}

// Locate returns the frame nearest the error's origin, when a real one
// exists. Placeholder frames don't count as a location.
func Locate(kind, stack string) (payload.Frame, bool) {
	frames := Parse(kind, stack)
	last := frames[len(frames)-1]
	if last.Filename == FilenameNoStack || last.Filename == FilenameUnparsed {
		return payload.Frame{}, false
	}
	return last, true
}

// parseLine tries each grammar in order. A line matching none of them is
// preserved as an "(unparsed)" frame holding the raw text, so nothing is
// silently lost.
func parseLine(line string) payload.Frame {
	for _, m := range matchers {
		if f, ok := m(line); ok {
			return f
		}
	}
	return payload.Frame{Filename: FilenameUnparsed, Method: line}
}

func matchNamed(line string) (payload.Frame, bool) {
	m := reNamed.FindStringSubmatch(line)
	if m == nil {
		return payload.Frame{}, false
	}
	lineno, colno, ok := parseLocation(m[3], m[4])
	if !ok {
		return payload.Frame{}, false
	}
	return payload.Frame{Filename: m[2], Lineno: lineno, Colno: colno, Method: m[1]}, true
}

func matchAnonymous(line string) (payload.Frame, bool) {
	m := reAnonymous.FindStringSubmatch(line)
	if m == nil {
		return payload.Frame{}, false
	}
	lineno, colno, ok := parseLocation(m[2], m[3])
	if !ok {
		return payload.Frame{}, false
	}
	return payload.Frame{Filename: m[1], Lineno: lineno, Colno: colno, Method: MethodAnonymous}, true
}

func matchAlternate(line string) (payload.Frame, bool) {
	m := reAlternate.FindStringSubmatch(line)
	if m == nil {
		return payload.Frame{}, false
	}
	lineno, colno, ok := parseLocation(m[3], m[4])
	if !ok {
		return payload.Frame{}, false
	}
	method := m[1]
	if method == "" {
		method = MethodAnonymous
	}
	return payload.Frame{Filename: m[2], Lineno: lineno, Colno: colno, Method: method}, true
}

// parseLocation converts the captured line/column text. Malformed numbers
// (e.g. out of int range) disqualify the grammar attempt.
func parseLocation(lineText, colText string) (lineno, colno *int, ok bool) {
	l, err := strconv.Atoi(lineText)
	if err != nil || l < 0 {
		return nil, nil, false
	}
	c, err := strconv.Atoi(colText)
	if err != nil || c < 0 {
		return nil, nil, false
	}
	return &l, &c, true
}

// isSummary reports whether the first trace line is the error-summary line
// ("TypeError: x is not a function" or a bare "TypeError").
func isSummary(line, kind string) bool {
	return line == kind || strings.HasPrefix(line, kind+":")
}

func placeholder(kind string) payload.Frame {
	return payload.Frame{Filename: FilenameNoStack, Method: kind}
}
