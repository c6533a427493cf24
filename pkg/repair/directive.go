package repair

import (
	"encoding/json"
	"strings"

	"github.com/rhuss/laph/pkg/extract"
)

// ActionInput is the only action type the loop acts on.
const ActionInput = "input"

// Action is one step proposed by the interaction prompt. It is either an
// InputAction or an UnknownAction.
type Action interface {
	// Kind returns the action's type field.
	Kind() string
	isAction()
}

// InputAction supplies one stdin line for a probing run.
type InputAction struct {
	Payload string
}

// UnknownAction preserves an action of an unrecognized type. It has no
// effect on the run.
type UnknownAction struct {
	Type string
	Raw  json.RawMessage
}

func (InputAction) Kind() string     { return ActionInput }
func (a UnknownAction) Kind() string { return a.Type }
func (InputAction) isAction()        {}
func (UnknownAction) isAction()      {}

// Directive is the parsed answer to an interaction prompt.
type Directive struct {
	Actions      []Action
	FollowupSpec string
}

// Inputs returns the payloads of all input actions, in order.
func (d Directive) Inputs() []string {
	var inputs []string
	for _, a := range d.Actions {
		if in, ok := a.(InputAction); ok {
			inputs = append(inputs, in.Payload)
		}
	}
	return inputs
}

// ParseDirective extracts a Directive from interaction output. It returns
// false when no JSON object could be found; the zero Directive then means
// "plain retry". Non-string payloads are kept in their JSON encoding.
// Both followup_spec and followupSpec are accepted.
func ParseDirective(text string) (Directive, bool) {
	obj, ok := extract.JSONObject(text)
	if !ok {
		return Directive{}, false
	}

	var d Directive
	for _, key := range []string{"followup_spec", "followupSpec"} {
		if raw, ok := obj[key]; ok {
			if s, ok := extract.StringField(raw); ok && strings.TrimSpace(s) != "" {
				d.FollowupSpec = strings.TrimSpace(s)
				break
			}
		}
	}

	var actions []json.RawMessage
	if raw, ok := obj["actions"]; ok {
		// A malformed actions field leaves the directive without actions.
		_ = json.Unmarshal(raw, &actions)
	}
	for _, raw := range actions {
		var fields map[string]json.RawMessage
		if err := json.Unmarshal(raw, &fields); err != nil {
			continue
		}
		typ, _ := extract.StringField(fields["type"])
		if typ != ActionInput {
			d.Actions = append(d.Actions, UnknownAction{Type: typ, Raw: raw})
			continue
		}
		payload, _ := extract.StringField(fields["payload"])
		d.Actions = append(d.Actions, InputAction{Payload: payload})
	}
	return d, true
}
