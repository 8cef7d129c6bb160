package formatting_test

import (
	"errors"
	"strings"
	"testing"

	"github.com/mobby57/memoLib-sub019/pkg/formatting"
)

type verdict struct {
	Label      string  `json:"label"`
	Confidence float64 `json:"confidence"`
}

func TestParse(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  verdict
	}{
		{"direct", `{"label":"deadline","confidence":0.9}`, verdict{"deadline", 0.9}},
		{"padded", "  {\"label\":\"billing\",\"confidence\":0.5}  ", verdict{"billing", 0.5}},
		{"fenced", "```json\n{\"label\":\"intake\",\"confidence\":0.7}\n```", verdict{"intake", 0.7}},
		{"prose around object", "Sure! Here it is: {\"label\":\"other\",\"confidence\":0.1} Hope that helps.", verdict{"other", 0.1}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := formatting.Parse[verdict](tt.input)
			if err != nil {
				t.Fatalf("Parse error: %v", err)
			}
			if got != tt.want {
				t.Errorf("Parse = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestParseFailure(t *testing.T) {
	input := strings.Repeat("not json ", 100)
	_, err := formatting.Parse[verdict](input)
	if !errors.Is(err, formatting.ErrParseFailed) {
		t.Fatalf("error = %v, want ErrParseFailed", err)
	}
	if len(err.Error()) > 300 {
		t.Errorf("error message not truncated: %d bytes", len(err.Error()))
	}
}

func TestParseBytes(t *testing.T) {
	tests := []struct {
		input   string
		want    int64
		wantErr bool
	}{
		{"512", 512, false},
		{"1KB", 1024, false},
		{"1 mb", 1 << 20, false},
		{"1.5MB", 1572864, false},
		{"", 0, true},
		{"10XB", 0, true},
		{"abc", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := formatting.ParseBytes(tt.input)
			if tt.wantErr {
				if err == nil {
					t.Errorf("ParseBytes(%q) expected error", tt.input)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseBytes(%q) error: %v", tt.input, err)
			}
			if got != tt.want {
				t.Errorf("ParseBytes(%q) = %d, want %d", tt.input, got, tt.want)
			}
		})
	}
}

func TestFormatBytes(t *testing.T) {
	tests := []struct {
		n         int64
		precision int
		want      string
	}{
		{0, 2, "0 B"},
		{512, 0, "512 B"},
		{1024, 1, "1.0 KB"},
		{1572864, 2, "1.50 MB"},
		{2048, -1, "2 KB"},
	}

	for _, tt := range tests {
		if got := formatting.FormatBytes(tt.n, tt.precision); got != tt.want {
			t.Errorf("FormatBytes(%d, %d) = %q, want %q", tt.n, tt.precision, got, tt.want)
		}
	}
}
