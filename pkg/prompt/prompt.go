// Package prompt loads the role prompt templates and builds the full
// prompts submitted to the generators.
//
// Templates are embedded in the binary. A directory may override any of
// them with a file named after the template, e.g. coder.txt.
package prompt

import (
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	"github.com/rhuss/laph/pkg/debug"
)

// Name identifies a template.
type Name string

const (
	Thinker            Name = "thinker"
	Coder              Name = "coder"
	ThinkerInteraction Name = "thinker_interaction"
	Summariser         Name = "summariser"
)

// Names lists every template the builder needs.
var Names = []Name{Thinker, Coder, ThinkerInteraction, Summariser}

//go:embed templates/*.txt
var embedded embed.FS

// Builder holds the current templates. It is safe for concurrent use;
// Reload swaps templates atomically with respect to the build methods.
type Builder struct {
	dir string

	mu        sync.RWMutex
	templates map[Name]string
}

// New loads the embedded templates and applies overrides from dir.
// An empty dir uses the embedded templates only.
func New(dir string) (*Builder, error) {
	b := &Builder{dir: dir}
	if err := b.Reload(); err != nil {
		return nil, err
	}
	return b, nil
}

// Default returns a Builder with the embedded templates.
func Default() *Builder {
	b, err := New("")
	if err != nil {
		panic(err)
	}
	return b
}

// Dir returns the override directory.
func (b *Builder) Dir() string { return b.dir }

// Reload re-reads every template. On error the previous templates stay
// in place.
func (b *Builder) Reload() error {
	templates := make(map[Name]string, len(Names))
	for _, n := range Names {
		data, err := embedded.ReadFile("templates/" + string(n) + ".txt")
		if err != nil {
			return fmt.Errorf("embedded template %s: %w", n, err)
		}
		templates[n] = strings.TrimRight(string(data), "\n")
	}

	if b.dir != "" {
		for _, n := range Names {
			data, err := os.ReadFile(filepath.Join(b.dir, string(n)+".txt"))
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			if err != nil {
				return fmt.Errorf("template override %s: %w", n, err)
			}
			templates[n] = strings.TrimRight(string(data), "\n")
			debug.Log("prompt", "template override loaded", "name", n, "dir", b.dir)
		}
	}

	b.mu.Lock()
	b.templates = templates
	b.mu.Unlock()
	return nil
}

// Template returns the current text of template n.
func (b *Builder) Template(n Name) string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.templates[n]
}

// Thinker builds the specification prompt. Empty code and errText are
// omitted.
func (b *Builder) Thinker(task, code, errText string) string {
	var sb strings.Builder
	sb.WriteString(b.Template(Thinker))
	sb.WriteString("\n\nTask: " + task + "\n")
	writePrevious(&sb, code, errText)
	return sb.String()
}

// Coder builds the implementation prompt.
func (b *Builder) Coder(spec, code, errText string) string {
	var sb strings.Builder
	sb.WriteString(b.Template(Coder))
	sb.WriteString("\n\nSpecification: " + spec + "\n")
	writePrevious(&sb, code, errText)
	return sb.String()
}

// Interaction builds the probing prompt sent after a failed run. The
// execution result is always included, even when a stream is empty.
func (b *Builder) Interaction(task, code, stdout, stderr string, exitCode int) string {
	var sb strings.Builder
	sb.WriteString(b.Template(ThinkerInteraction))
	sb.WriteString("\n\nTask: " + task + "\n")
	if code != "" {
		sb.WriteString("Previous code: " + code + "\n")
	}
	sb.WriteString("STDOUT: " + stdout + "\n")
	sb.WriteString("STDERR: " + stderr + "\n")
	sb.WriteString("Exitcode: " + strconv.Itoa(exitCode) + "\n")
	return sb.String()
}

// Summariser builds the post-mortem prompt for an exhausted run.
func (b *Builder) Summariser(logs string) string {
	return b.Template(Summariser) + "\n\nLogs: " + logs + "\n"
}

func writePrevious(sb *strings.Builder, code, errText string) {
	if code != "" {
		sb.WriteString("Previous code: " + code + "\n")
	}
	if errText != "" {
		sb.WriteString("Error: " + errText + "\n")
	}
}
