package repair

// State names a step of the repair loop. States are logged on every
// transition.
type State string

const (
	StateSpecGen         State = "SPEC_GEN"
	StateCodeGen         State = "CODE_GEN"
	StateExecute         State = "EXECUTE"
	StateInteract        State = "INTERACT"
	StateFollowupCodeGen State = "FOLLOWUP_CODE_GEN"
	StateRetry           State = "RETRY"
	StateSuccess         State = "SUCCESS"
	StateExhausted       State = "EXHAUSTED"
	StateCancelled       State = "CANCELLED"
)

// MaxIterations is the largest accepted iteration budget.
const MaxIterations = 60

// ClampBudget limits n to [0, MaxIterations].
func ClampBudget(n int) int {
	return max(0, min(n, MaxIterations))
}
