// Package sanitize infers a small preamble of missing imports for generated
// Python programs before they run.
//
// The pass is textual and deliberately narrow. It knows exactly three symbol
// families (the re module, a bare randint call, and the random module) and
// adds a fixed random seed when tests are present. It is not an import
// resolver: anything outside those families is left for the repair loop to
// report as a runtime error.
package sanitize

import (
	"regexp"
	"slices"
	"strings"
)

const (
	ImportRegex   = "import re"
	ImportRandint = "from random import randint"
	ImportRandom  = "import random"
	SeedRandom    = "random.seed(0)"
)

var (
	regexUse      = regexp.MustCompile(`\bre\.[A-Za-z_]+`)
	regexImported = regexp.MustCompile(`(?m)^\s*(?:import\s+(?:[\w.]+\s*,\s*)*re\b|from\s+re\s+import\b)`)

	randintUse      = regexp.MustCompile(`(?m)(?:^|[^\w.])randint\s*\(`)
	randintImported = regexp.MustCompile(`(?m)^\s*from\s+random\s+import\s+.*\brandint\b`)

	randomUse      = regexp.MustCompile(`\brandom\.[A-Za-z_]+`)
	randomImported = regexp.MustCompile(`(?m)^\s*import\s+(?:[\w.]+\s*,\s*)*random\b`)

	seedPresent = regexp.MustCompile(`\brandom\.seed\s*\(`)
)

// Preamble is the ordered list of statements to prepend to a program.
type Preamble struct {
	Lines []string
}

// String renders the preamble one statement per line, with a trailing
// newline. An empty preamble renders as "".
func (p Preamble) String() string {
	if len(p.Lines) == 0 {
		return ""
	}
	return strings.Join(p.Lines, "\n") + "\n"
}

// Empty reports whether the preamble has no statements.
func (p Preamble) Empty() bool {
	return len(p.Lines) == 0
}

// Build scans code and tests and returns the statements needed to run them.
// Imports always precede the seed directive.
func Build(code, tests string) Preamble {
	src := code
	if tests != "" {
		src += "\n" + tests
	}

	var lines []string
	if regexUse.MatchString(src) && !regexImported.MatchString(src) {
		lines = append(lines, ImportRegex)
	}

	// The randint and random recognizers are independent: code that mixes a
	// bare randint call with random.* gets both imports.
	usesRandint := randintUse.MatchString(src)
	if usesRandint && !randintImported.MatchString(src) {
		lines = append(lines, ImportRandint)
	}
	usesRandom := randomUse.MatchString(src)
	if usesRandom && !randomImported.MatchString(src) {
		lines = append(lines, ImportRandom)
	}

	if tests != "" && (usesRandint || usesRandom) && !seedPresent.MatchString(src) {
		if !slices.Contains(lines, ImportRandom) && !randomImported.MatchString(src) {
			lines = append(lines, ImportRandom)
		}
		lines = append(lines, SeedRandom)
	}

	return Preamble{Lines: lines}
}

// Payload assembles the executable program: preamble, code, and the tests
// separated by a blank line when present.
func Payload(code, tests string) string {
	payload := Build(code, tests).String() + code
	if tests != "" {
		payload += "\n\n" + tests
	}
	return payload
}
