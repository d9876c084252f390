package voice

import "testing"

func TestNormalizeLowersAndCollapsesWhitespace(t *testing.T) {
	got := Normalize("  Hey   FOXIE,\tfeed\n me ")
	want := "hey foxie, feed me"
	if got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
}

func TestNormalizeIsIdempotent(t *testing.T) {
	inputs := []string{"Hello There", "  spaced   out  ", "already normal", ""}
	for _, in := range inputs {
		once := Normalize(in)
		twice := Normalize(once)
		if once != twice {
			t.Fatalf("normalize not idempotent for %q: %q != %q", in, once, twice)
		}
	}
}
