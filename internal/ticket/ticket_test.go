package ticket

import "testing"

func TestEmbedText(t *testing.T) {
	tests := []struct {
		name        string
		summary     string
		description string
		want        string
	}{
		{"both", "login broken", "users cannot sign in", "login broken users cannot sign in"},
		{"summary only", "login broken", "", "login broken"},
		{"description only", "", "users cannot sign in", "users cannot sign in"},
		{"neither", "", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tk := Ticket{Summary: tt.summary, Description: tt.description}
			if got := tk.EmbedText(); got != tt.want {
				t.Errorf("EmbedText() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestHasContent(t *testing.T) {
	if (Ticket{Summary: "  ", Description: "\t"}).HasContent() {
		t.Error("whitespace-only ticket should have no content")
	}
	if !(Ticket{Description: "something"}).HasContent() {
		t.Error("ticket with description should have content")
	}
}

func TestOptString(t *testing.T) {
	if got := Some("high").Or("none"); got != "high" {
		t.Errorf("Some().Or() = %q, want high", got)
	}
	if got := None().Or("none"); got != "none" {
		t.Errorf("None().Or() = %q, want none", got)
	}
	// An empty present value is distinct from absence.
	if !Some("").Valid {
		t.Error("Some(\"\") should be valid")
	}
	if got := Some("").Or("fallback"); got != "" {
		t.Errorf("Some(\"\").Or() = %q, want empty", got)
	}
}
