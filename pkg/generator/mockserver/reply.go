// Package mockserver is a deterministic generator backend for end-to-end
// tests. It speaks the Ollama chat API and the OpenAI Chat Completions API
// and recognises the thinker, coder, interaction and summariser prompts by
// their content.
//
// The first coder reply for a task is a program that raises; once the
// prompt carries previous code, the reply is a working program. Tasks
// containing "always fail" never get a working program.
package mockserver

import (
	"encoding/json"
	"strings"
)

// Canned replies.
const (
	BrokenProgram = "```python\n" +
		"def greet(name):\n" +
		"    raise ValueError('greeting not implemented for ' + name)\n" +
		"\n" +
		"print(greet('world'))\n" +
		"```\n"

	FixedProgram = "```python\n" +
		"def greet(name):\n" +
		"    return 'Hello, ' + name + '!'\n" +
		"\n" +
		"print(greet('world'))\n" +
		"```\n" +
		"\n" +
		"```python\n" +
		"assert greet('world') == 'Hello, world!'\n" +
		"```\n"

	noDirective = "```json\n{\"actions\": [], \"followup_spec\": \"\"}\n```\n"

	Summary = "The program raised ValueError on every attempt. " +
		"Check whether the task can be solved with the standard library."
)

// Reply picks the canned answer for a prompt. Prompts are told apart by
// their opening words, since the summariser prompt embeds all the others.
func Reply(prompt string) string {
	switch {
	case strings.HasPrefix(prompt, "A generated Python program failed"):
		return noDirective
	case strings.HasPrefix(prompt, "You are the planning half"):
		spec, _ := json.Marshal(map[string]string{
			"spec": "Write a program that solves: " + field(prompt, "Task: "),
		})
		return "```json\n" + string(spec) + "\n```\n"
	case strings.HasPrefix(prompt, "You are the implementation half"):
		if strings.Contains(prompt, "always fail") || !strings.Contains(prompt, "Previous code: ") {
			return BrokenProgram
		}
		return FixedProgram
	default:
		return Summary
	}
}

// field returns the rest of the first line starting with prefix.
func field(prompt, prefix string) string {
	for _, line := range strings.Split(prompt, "\n") {
		if v, ok := strings.CutPrefix(line, prefix); ok {
			return v
		}
	}
	return ""
}

// chunks splits text into word-sized pieces that concatenate back to it.
func chunks(text string) []string {
	var out []string
	for len(text) > 0 {
		i := strings.IndexAny(text[1:], " \n")
		if i < 0 {
			out = append(out, text)
			break
		}
		out = append(out, text[:i+1])
		text = text[i+1:]
	}
	return out
}
