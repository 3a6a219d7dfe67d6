package domain

import "testing"

func TestParseContentType(t *testing.T) {
	cases := map[string]ContentType{
		"TV":       TypeTV,
		" movie ":  TypeMovie,
		"OVA":      TypeOVA,
		"special":  TypeSpecial,
		"ONA":      TypeONA,
		"Music":    TypeMusic,
		"TV Short": "",
		"":         "",
	}
	for in, want := range cases {
		if got := ParseContentType(in); got != want {
			t.Fatalf("ParseContentType(%q): expected %q, got %q", in, want, got)
		}
	}
}

func TestResolution_Playable(t *testing.T) {
	tests := []struct {
		res  Resolution
		want bool
	}{
		{Resolution{ExternalID: "1", Confidence: ConfidenceDirect}, true},
		{Resolution{ExternalID: "1", Confidence: ConfidenceSimplified}, true},
		{Resolution{ExternalID: "1", Confidence: PlayableConfidence}, false},
		{Resolution{Confidence: ConfidenceDirect}, false},
	}
	for _, tt := range tests {
		if got := tt.res.Playable(); got != tt.want {
			t.Fatalf("Playable(%+v): expected %v, got %v", tt.res, tt.want, got)
		}
	}
	if (Resolution{}).Resolved() {
		t.Fatal("empty resolution must not be resolved")
	}
}
