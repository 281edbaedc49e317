package gemini_test

import (
	"reflect"
	"testing"

	"github.com/bridgeline/bridgeline/internal/database"
	"github.com/bridgeline/bridgeline/internal/gemini"
)

func TestParseTone(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		raw  string
		want database.Tone
	}{
		{name: "exact distressed", raw: "Distressed", want: database.ToneDistressed},
		{name: "exact anxious", raw: "Anxious", want: database.ToneAnxious},
		{name: "exact calm", raw: "Calm", want: database.ToneCalm},
		{name: "distressed in sentence", raw: "The tone is Distressed.", want: database.ToneDistressed},
		{name: "anxious in sentence", raw: "Classification: Anxious", want: database.ToneAnxious},
		{name: "unrecognized defaults to calm", raw: "upbeat", want: database.ToneCalm},
		{name: "empty defaults to calm", raw: "", want: database.ToneCalm},
		{name: "distressed wins over anxious", raw: "Anxious leaning Distressed", want: database.ToneDistressed},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			if got := gemini.ParseTone(tc.raw); got != tc.want {
				t.Errorf("ParseTone(%q) = %q, want %q", tc.raw, got, tc.want)
			}
		})
	}
}

func TestParseMemoryLines(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		raw  string
		want []string
	}{
		{
			name: "plain lines",
			raw:  "Prefers vegetarian meals\nHas a service dog",
			want: []string{"Prefers vegetarian meals", "Has a service dog"},
		},
		{
			name: "bulleted and numbered",
			raw:  "- Needs insulin refills\n* Avoids shelters downtown\n1. Reachable after 6pm",
			want: []string{"Needs insulin refills", "Avoids shelters downtown", "Reachable after 6pm"},
		},
		{
			name: "blank lines dropped",
			raw:  "\nFirst point\n\n  \nSecond point\n",
			want: []string{"First point", "Second point"},
		},
		{
			name: "all blank yields nil",
			raw:  "\n  \n",
			want: nil,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			got := gemini.ParseMemoryLines(tc.raw)
			if !reflect.DeepEqual(got, tc.want) {
				t.Errorf("ParseMemoryLines(%q) = %v, want %v", tc.raw, got, tc.want)
			}
		})
	}
}
