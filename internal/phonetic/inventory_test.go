package phonetic_test

import (
	"slices"
	"testing"

	"github.com/MrWong99/concatsynth/internal/phonetic"
)

var arpabet = []string{"AA1", "AH0", "AH1", "AY1", "EY1", "M", "N", "P", "S", "T", "W", "sp"}

type staticSource []string

func (s staticSource) Inventory() []string { return s }

func TestInventory_Symbols(t *testing.T) {
	t.Parallel()

	inv := phonetic.New([]string{"N", "AH0", "N", "W"})
	if got, want := inv.Symbols(), []string{"AH0", "N", "W"}; !slices.Equal(got, want) {
		t.Errorf("Symbols() = %v, want %v", got, want)
	}
	if inv.Len() != 3 {
		t.Errorf("Len() = %d, want 3", inv.Len())
	}
	if !inv.Contains("AH0") || inv.Contains("AH1") {
		t.Error("Contains reports wrong membership")
	}
}

func TestInventory_Unknown(t *testing.T) {
	t.Parallel()

	inv := phonetic.FromSource(staticSource(arpabet))
	got := inv.Unknown([]string{"HH", "AH0", "L", "OW1", "L"})
	if want := []string{"HH", "L", "OW1"}; !slices.Equal(got, want) {
		t.Errorf("Unknown() = %v, want %v", got, want)
	}
	if got := inv.Unknown([]string{"N", "S", "AH0"}); got != nil {
		t.Errorf("Unknown() = %v, want nil for known content", got)
	}
}

func TestInventory_SuggestStressVariants(t *testing.T) {
	t.Parallel()

	inv := phonetic.New(arpabet)

	got := inv.Suggest("AH2")
	if len(got) < 2 {
		t.Fatalf("Suggest(AH2) = %v, want at least 2 suggestions", got)
	}
	if got[0].Symbol != "AH0" || got[1].Symbol != "AH1" {
		t.Errorf("Suggest(AH2) = %v, want AH0 then AH1", got)
	}
	if got[0].Score != got[1].Score {
		t.Errorf("stress variants should score equally: %v", got)
	}
	if got[0].Score < 0.7 {
		t.Errorf("score = %f, want >= 0.7", got[0].Score)
	}
}

func TestInventory_SuggestCaseInsensitive(t *testing.T) {
	t.Parallel()

	inv := phonetic.New(arpabet)
	got := inv.Suggest("ah2")
	if len(got) == 0 || got[0].Symbol != "AH0" {
		t.Errorf("Suggest(ah2) = %v, want AH0 first", got)
	}
}

func TestInventory_SuggestKnown(t *testing.T) {
	t.Parallel()

	inv := phonetic.New(arpabet)
	got := inv.Suggest("EY1")
	if len(got) != 1 || got[0].Symbol != "EY1" || got[0].Score != 1 {
		t.Errorf("Suggest(EY1) = %v, want itself with score 1", got)
	}
}

func TestInventory_SuggestNoMatch(t *testing.T) {
	t.Parallel()

	inv := phonetic.New(arpabet)
	for _, sym := range []string{"ZH", "", "  "} {
		if got := inv.Suggest(sym); len(got) != 0 {
			t.Errorf("Suggest(%q) = %v, want none", sym, got)
		}
	}
}

func TestInventory_Options(t *testing.T) {
	t.Parallel()

	inv := phonetic.New(arpabet, phonetic.WithLimit(1))
	if got := inv.Suggest("AH2"); len(got) != 1 || got[0].Symbol != "AH0" {
		t.Errorf("limited Suggest(AH2) = %v, want [AH0]", got)
	}

	strict := phonetic.New(arpabet, phonetic.WithThreshold(0.99))
	if got := strict.Suggest("AH2"); len(got) != 0 {
		t.Errorf("strict Suggest(AH2) = %v, want none", got)
	}
}

func TestInventory_SuggestAll(t *testing.T) {
	t.Parallel()

	inv := phonetic.New(arpabet)
	got := inv.SuggestAll([]string{"W", "AH2", "ZH"})
	if len(got) != 2 {
		t.Fatalf("SuggestAll() = %v, want entries for AH2 and ZH", got)
	}
	if len(got["AH2"]) == 0 {
		t.Error("expected suggestions for AH2")
	}
	if s, ok := got["ZH"]; !ok || len(s) != 0 {
		t.Errorf("ZH entry = %v (present %v), want present and empty", s, ok)
	}
	if inv.SuggestAll([]string{"W"}) != nil {
		t.Error("SuggestAll of known content should be nil")
	}
}
