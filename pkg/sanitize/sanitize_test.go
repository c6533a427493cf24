package sanitize

import (
	"slices"
	"strings"
	"testing"
)

const diceCode = "def roll_dice(input_line):\n    parts = re.match(r'(\\d*)d(\\d+)', '3d6')\n    x = randint(1,6)\n    return x"

func TestBuild(t *testing.T) {
	tests := []struct {
		name  string
		code  string
		tests string
		want  []string
	}{
		{
			name: "nothing to add",
			code: "print('ok')",
		},
		{
			name: "regex without import",
			code: "m = re.match('a', 'a')",
			want: []string{ImportRegex},
		},
		{
			name: "regex already imported",
			code: "import os, re\nm = re.match('a', 'a')",
		},
		{
			name: "bare randint",
			code: "x = randint(1, 6)",
			want: []string{ImportRandint},
		},
		{
			name: "qualified randint is general use",
			code: "x = random.randint(1, 6)",
			want: []string{ImportRandom},
		},
		{
			name: "randint already imported",
			code: "from random import choice, randint\nx = randint(1, 6)",
		},
		{
			name:  "regex and randint with tests",
			code:  diceCode,
			tests: "assert roll_dice('3d6') >= 1",
			want:  []string{ImportRegex, ImportRandint, ImportRandom, SeedRandom},
		},
		{
			name:  "random module with tests",
			code:  "def pick(xs):\n    return random.choice(xs)",
			tests: "assert pick([1]) == 1",
			want:  []string{ImportRandom, SeedRandom},
		},
		{
			name: "bare randint and random module",
			code: "x = randint(1, 6)\ny = random.choice([x])",
			want: []string{ImportRandint, ImportRandom},
		},
		{
			name:  "random imported, seed still needed",
			code:  "import random\nx = random.random()",
			tests: "assert x < 1",
			want:  []string{SeedRandom},
		},
		{
			name:  "randint imported, seed needs module",
			code:  "from random import randint\nx = randint(1, 6)",
			tests: "assert 1 <= x <= 6",
			want:  []string{ImportRandom, SeedRandom},
		},
		{
			name:  "seed already present",
			code:  "import random\nrandom.seed(1)\nx = random.random()",
			tests: "assert x < 1",
		},
		{
			name:  "tests without randomness",
			code:  "def f():\n    return 1",
			tests: "assert f() == 1",
		},
		{
			name: "score attribute is not regex use",
			code: "total = player.score.value",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Build(tt.code, tt.tests)
			if !slices.Equal(got.Lines, tt.want) {
				t.Errorf("Build().Lines = %q, want %q", got.Lines, tt.want)
			}
		})
	}
}

func TestBuildImportsPrecedeSeed(t *testing.T) {
	p := Build(diceCode, "assert roll_dice('3d6') == 9")
	seed := slices.Index(p.Lines, SeedRandom)
	imp := slices.Index(p.Lines, ImportRandom)
	if seed == -1 || imp == -1 {
		t.Fatalf("Lines = %q, want both %q and %q", p.Lines, ImportRandom, SeedRandom)
	}
	if imp > seed {
		t.Errorf("%q at %d comes after %q at %d", ImportRandom, imp, SeedRandom, seed)
	}
	if !slices.Contains(p.Lines, ImportRegex) {
		t.Errorf("Lines = %q, want %q", p.Lines, ImportRegex)
	}
}

func TestBuildIsIdempotent(t *testing.T) {
	inputs := []struct{ code, tests string }{
		{diceCode, "assert roll_dice('3d6') >= 1"},
		{diceCode, ""},
		{"x = randint(1, 2)\ny = random.choice([x])", ""},
		{"print(re.sub('a', 'b', 'abc'))", "assert True"},
	}
	for _, in := range inputs {
		first := Build(in.code, in.tests)
		second := Build(first.String()+in.code, in.tests)
		if !second.Empty() {
			t.Errorf("second pass over %q added %q", in.code, second.Lines)
		}
	}
}

func TestPayload(t *testing.T) {
	got := Payload(diceCode, "assert roll_dice('3d6') >= 1")
	wantPrefix := "import re\nfrom random import randint\nimport random\nrandom.seed(0)\ndef roll_dice"
	if !strings.HasPrefix(got, wantPrefix) {
		t.Errorf("Payload() prefix = %q, want %q", got[:len(wantPrefix)], wantPrefix)
	}
	if !strings.HasSuffix(got, "return x\n\nassert roll_dice('3d6') >= 1") {
		t.Errorf("Payload() = %q, want tests after a blank line", got)
	}

	if got := Payload("print('ok')", ""); got != "print('ok')" {
		t.Errorf("Payload() = %q, want code unchanged", got)
	}
}

func TestPreambleString(t *testing.T) {
	if got := (Preamble{}).String(); got != "" {
		t.Errorf("empty String() = %q, want empty", got)
	}
	if got := (Preamble{Lines: []string{"a", "b"}}).String(); got != "a\nb\n" {
		t.Errorf("String() = %q, want %q", got, "a\nb\n")
	}
}
