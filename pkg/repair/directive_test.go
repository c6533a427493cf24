package repair

import (
	"reflect"
	"testing"
)

func TestParseDirective(t *testing.T) {
	tests := []struct {
		name       string
		text       string
		wantOK     bool
		wantInputs []string
		wantSpec   string
		wantKinds  []string
	}{
		{
			name:       "snake case followup",
			text:       `{"actions": [{"type": "input", "payload": "hello"}], "followup_spec": "Replace unknown_var with input()"}`,
			wantOK:     true,
			wantInputs: []string{"hello"},
			wantSpec:   "Replace unknown_var with input()",
			wantKinds:  []string{"input"},
		},
		{
			name:     "camel case followup in fenced block",
			text:     "Sure.\n```json\n{\"actions\": [], \"followupSpec\": \"read two ints\"}\n```",
			wantOK:   true,
			wantSpec: "read two ints",
		},
		{
			name:       "non string payload is stringified",
			text:       `{"actions": [{"type": "input", "payload": 42}, {"type": "input", "payload": {"a": 1}}]}`,
			wantOK:     true,
			wantInputs: []string{"42", `{"a":1}`},
			wantKinds:  []string{"input", "input"},
		},
		{
			name:       "unknown actions are kept but inert",
			text:       `{"actions": [{"type": "click", "x": 3}, {"type": "input", "payload": "y"}]}`,
			wantOK:     true,
			wantInputs: []string{"y"},
			wantKinds:  []string{"click", "input"},
		},
		{
			name:       "missing payload is an empty line",
			text:       `{"actions": [{"type": "input"}]}`,
			wantOK:     true,
			wantInputs: []string{""},
			wantKinds:  []string{"input"},
		},
		{
			name:   "malformed actions field",
			text:   `{"actions": "input hello", "followup_spec": ""}`,
			wantOK: true,
		},
		{
			name:   "no json",
			text:   "I think the program needs stdin.",
			wantOK: false,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d, ok := ParseDirective(tt.text)
			if ok != tt.wantOK {
				t.Fatalf("ok = %v, want %v", ok, tt.wantOK)
			}
			if got := d.Inputs(); !reflect.DeepEqual(got, tt.wantInputs) {
				t.Errorf("Inputs = %q, want %q", got, tt.wantInputs)
			}
			if d.FollowupSpec != tt.wantSpec {
				t.Errorf("FollowupSpec = %q, want %q", d.FollowupSpec, tt.wantSpec)
			}
			var kinds []string
			for _, a := range d.Actions {
				kinds = append(kinds, a.Kind())
			}
			if !reflect.DeepEqual(kinds, tt.wantKinds) {
				t.Errorf("kinds = %q, want %q", kinds, tt.wantKinds)
			}
		})
	}
}

func TestUnknownActionKeepsRaw(t *testing.T) {
	d, _ := ParseDirective(`{"actions": [{"type": "screenshot", "region": [0, 0]}]}`)
	if len(d.Actions) != 1 {
		t.Fatalf("actions = %d, want 1", len(d.Actions))
	}
	u, ok := d.Actions[0].(UnknownAction)
	if !ok {
		t.Fatalf("action = %T, want UnknownAction", d.Actions[0])
	}
	if string(u.Raw) != `{"type": "screenshot", "region": [0, 0]}` {
		t.Errorf("Raw = %s", u.Raw)
	}
}

func TestClampBudget(t *testing.T) {
	tests := []struct{ in, want int }{
		{-5, 0}, {0, 0}, {1, 1}, {20, 20}, {60, 60}, {61, 60}, {1000, 60},
	}
	for _, tt := range tests {
		if got := ClampBudget(tt.in); got != tt.want {
			t.Errorf("ClampBudget(%d) = %d, want %d", tt.in, got, tt.want)
		}
	}
}
