package sandbox

import (
	"os"
	"strings"
	"sync/atomic"
)

// Environment consumed by the re-executed binary in its sandbox child role.
const (
	envChild  = "LAPH_SANDBOX_CHILD"
	envCPU    = "LAPH_SANDBOX_CPU"
	envMemory = "LAPH_SANDBOX_AS"
)

var trampolineReady atomic.Bool

// Init must be the first call in main (and in TestMain of packages that
// execute programs). When the process was started as a sandbox child it
// applies the resource limits and replaces itself with the interpreter;
// it never returns in that case. Otherwise it enables limited execution
// for Local runners.
//
// Without Init, Local runners still enforce the wall-clock timeout but run
// programs without CPU and memory ceilings.
func Init() {
	if os.Getenv(envChild) == "1" {
		runChild(os.Args[1:])
	}
	trampolineReady.Store(true)
}

// childEnv strips the sandbox control variables from env.
func childEnv(env []string) []string {
	out := make([]string, 0, len(env))
	for _, kv := range env {
		if strings.HasPrefix(kv, "LAPH_SANDBOX_") {
			continue
		}
		out = append(out, kv)
	}
	return out
}
