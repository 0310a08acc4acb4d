package concepts

import (
	"math"
	"reflect"
	"testing"
)

func TestExtractNormalizes(t *testing.T) {
	tokens := Extract("The Curiosity drive is a powerful drive for LEARNING!")

	want := []string{"curiosity", "drive", "learning", "powerful"}
	if !reflect.DeepEqual(tokens, want) {
		t.Errorf("Extract() = %v, want %v", tokens, want)
	}
}

func TestExtractFiltersShortAndStopWords(t *testing.T) {
	tokens := Extract("it is an AI of me and you")
	for _, tok := range tokens {
		if len(tok) < 3 {
			t.Errorf("short token %q survived filtering", tok)
		}
		if stopWords[tok] {
			t.Errorf("stop word %q survived filtering", tok)
		}
	}
}

func TestExtractEmpty(t *testing.T) {
	if tokens := Extract(""); len(tokens) != 0 {
		t.Errorf("Extract(\"\") = %v, want empty", tokens)
	}
}

func TestOverlap(t *testing.T) {
	tests := []struct {
		name string
		a, b []string
		want float64
	}{
		{"identical", []string{"learning", "drive"}, []string{"learning", "drive"}, 1.0},
		{"subset", []string{"learning", "drive"}, []string{"learning", "drive", "motivation"}, 2.0 / 3.0},
		{"disjoint", []string{"learning", "drive"}, []string{"empathy"}, 0},
		{"empty", nil, []string{"empathy"}, 0},
		{"both empty", nil, nil, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Overlap(tt.a, tt.b)
			if math.Abs(got-tt.want) > 1e-9 {
				t.Errorf("Overlap(%v, %v) = %f, want %f", tt.a, tt.b, got, tt.want)
			}
			// Overlap must be symmetric
			if rev := Overlap(tt.b, tt.a); math.Abs(got-rev) > 1e-9 {
				t.Errorf("Overlap not symmetric: %f vs %f", got, rev)
			}
		})
	}
}

func TestUnion(t *testing.T) {
	got := Union([]string{"learning", "drive"}, []string{"drive", "motivation"})
	want := []string{"drive", "learning", "motivation"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Union() = %v, want %v", got, want)
	}
}
