package extract

import (
	"regexp"
	"strings"
)

var (
	fencePattern = regexp.MustCompile("(?s)```(.*?)```")
	tagPattern   = regexp.MustCompile(`^[A-Za-z0-9_+.#-]*$`)
)

// testMarkers identify a fenced block as a test block.
var testMarkers = []string{"assert", "unittest", "pytest", "def test_"}

// Fence is a single fenced region of generator output.
type Fence struct {
	Tag  string
	Body string
}

// Fences returns every fenced region in text in order of appearance.
// The optional language tag on the opening line is split off and the body
// is trimmed.
func Fences(text string) []Fence {
	matches := fencePattern.FindAllStringSubmatch(text, -1)
	fences := make([]Fence, 0, len(matches))
	for _, m := range matches {
		fences = append(fences, parseFence(m[1]))
	}
	return fences
}

func parseFence(inner string) Fence {
	first, rest, found := strings.Cut(inner, "\n")
	first = strings.TrimSpace(first)
	if found && tagPattern.MatchString(first) {
		return Fence{Tag: strings.ToLower(first), Body: strings.TrimSpace(rest)}
	}
	return Fence{Body: strings.TrimSpace(inner)}
}

// IsTestBlock reports whether body looks like test code.
func IsTestBlock(body string) bool {
	for _, m := range testMarkers {
		if strings.Contains(body, m) {
			return true
		}
	}
	return false
}

// SplitCodeAndTests splits coder output into a program and an optional
// test block.
//
// Zero fences: the whole trimmed text is code. One fence: its body is code.
// Several fences: the last one is the test block only when it contains a
// test marker; the first fence is always the code and any others are
// dropped.
func SplitCodeAndTests(text string) (code, tests string, hasTests bool) {
	fences := Fences(text)
	switch len(fences) {
	case 0:
		return strings.TrimSpace(text), "", false
	case 1:
		return fences[0].Body, "", false
	}

	last := fences[len(fences)-1]
	if IsTestBlock(last.Body) {
		return fences[0].Body, last.Body, true
	}
	return fences[0].Body, "", false
}

// Code returns the body of the first fenced block regardless of its tag,
// or the trimmed text when there is none.
func Code(text string) string {
	if fences := Fences(text); len(fences) > 0 {
		return fences[0].Body
	}
	return strings.TrimSpace(text)
}

// StripFences removes fence marker lines and keeps everything else.
func StripFences(text string) string {
	lines := strings.Split(text, "\n")
	kept := lines[:0]
	for _, line := range lines {
		if strings.HasPrefix(strings.TrimSpace(line), "```") {
			continue
		}
		kept = append(kept, line)
	}
	return strings.TrimSpace(strings.Join(kept, "\n"))
}
