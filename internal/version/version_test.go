package version

import (
	"errors"
	"testing"
)

func TestParseRejectsNonNumeric(t *testing.T) {
	cases := []string{"", "  ", "1..2", "1.2-beta", "v1.2", "1.x"}
	for _, in := range cases {
		if _, err := Parse(in); !errors.Is(err, ErrUnparseable) {
			t.Fatalf("Parse(%q): expected ErrUnparseable, got %v", in, err)
		}
	}
}

func TestParseAcceptsDottedNumeric(t *testing.T) {
	v, err := Parse(" 1.20.3 ")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if v.String() != "1.20.3" {
		t.Fatalf("expected 1.20.3, got %s", v.String())
	}
}

func TestCompareTreatsMissingSegmentsAsZero(t *testing.T) {
	a, _ := Parse("1.2")
	b, _ := Parse("1.2.0")
	if got := Compare(a, b); got != 0 {
		t.Fatalf("expected equal, got %d", got)
	}
}

func TestCompareOrdersNumerically(t *testing.T) {
	cases := []struct {
		a, b string
		want int
	}{
		{"1.2.0", "1.10.0", -1},
		{"2.0", "1.99.99", 1},
		{"1.0.1", "1.0.0", 1},
	}
	for _, tc := range cases {
		got, err := CompareStrings(tc.a, tc.b)
		if err != nil {
			t.Fatalf("CompareStrings(%q,%q): %v", tc.a, tc.b, err)
		}
		if got != tc.want {
			t.Fatalf("CompareStrings(%q,%q) = %d, want %d", tc.a, tc.b, got, tc.want)
		}
	}
}

func TestCompareStringsSurfacesParseFailure(t *testing.T) {
	if _, err := CompareStrings("1.0.0", "2.0.0-beta.1"); !errors.Is(err, ErrUnparseable) {
		t.Fatalf("expected ErrUnparseable, got %v", err)
	}
}
