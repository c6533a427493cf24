package api

import "testing"

func TestRoleValid(t *testing.T) {
	for _, r := range []Role{RoleThinker, RoleCoder, RoleSummariser} {
		if !r.Valid() {
			t.Errorf("Role(%q).Valid() = false, want true", r)
		}
	}
	if Role("vision").Valid() {
		t.Error("Role(\"vision\").Valid() = true, want false")
	}
}

func TestGeneratorEventType(t *testing.T) {
	tests := []struct {
		marker Marker
		want   RunEventType
	}{
		{MarkerPrompt, "generator.prompt"},
		{MarkerStart, "generator.start"},
		{MarkerChunk, "generator.chunk"},
		{MarkerEnd, "generator.end"},
	}
	for _, tt := range tests {
		if got := GeneratorEventType(tt.marker); got != tt.want {
			t.Errorf("GeneratorEventType(%q) = %q, want %q", tt.marker, got, tt.want)
		}
	}
}
