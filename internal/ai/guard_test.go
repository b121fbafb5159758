package ai

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/baldionna/baldi/internal/config"
)

func admitAll(g *Guard, deltas ...string) (int, TripReason) {
	for i, d := range deltas {
		if reason := g.Admit(d); reason != TripNone {
			return i, reason
		}
	}
	return len(deltas), TripNone
}

func TestGuard_RepeatedPhraseTrips(t *testing.T) {
	phrase := "the more you know, the better " // 30 chars
	g := NewGuard(DefaultPolicy())

	assert.Equal(t, TripNone, g.Admit(phrase), "first delta is never a repeat")
	assert.Equal(t, TripNone, g.Admit(phrase))
	assert.Equal(t, 1, g.Strikes())
	assert.Equal(t, TripLocalRepetition, g.Admit(phrase))
	assert.Equal(t, 1, g.Strikes(), "rejected delta does not change state")
}

func TestGuard_StrikesResetOnFreshText(t *testing.T) {
	phrase := "una frase bastante larga "
	g := NewGuard(DefaultPolicy())

	n, reason := admitAll(g, phrase, phrase, "algo distinto por aqui ", phrase, "otra cosa ")
	assert.Equal(t, TripNone, reason)
	assert.Equal(t, 5, n)
	assert.Equal(t, 0, g.Strikes())
}

func TestGuard_ShortDeltasNeverStrike(t *testing.T) {
	g := NewGuard(DefaultPolicy())
	for i := 0; i < 200; i++ {
		if reason := g.Admit("de la "); reason != TripNone {
			t.Fatalf("delta %d tripped %s", i, reason)
		}
	}
	assert.Equal(t, 0, g.Strikes())
}

func TestGuard_TokenBudget(t *testing.T) {
	p := DefaultPolicy()
	p.TokenCeiling = 10
	g := NewGuard(p)

	// 40 runes is 10 tokens, at the ceiling but not over it.
	n, reason := admitAll(g, "abcdefghi ", "jklmnopqr ", "stuvwxyza ", "bcdefghij ", "klmnopqrs ")
	assert.Equal(t, TripTokenBudget, reason)
	assert.Equal(t, 4, n)
	assert.Equal(t, "\n\n[output truncated: length limit reached]", reason.Marker())
}

func TestGuard_WordFrequency(t *testing.T) {
	p := DefaultPolicy()
	p.WordCeiling = 8
	g := NewGuard(p)

	var deltas []string
	for i := 0; i < 12; i++ {
		deltas = append(deltas, "Palabra, ")
	}
	n, reason := admitAll(g, deltas...)
	assert.Equal(t, TripWordFrequency, reason)
	assert.Equal(t, 8, n, "ninth occurrence exceeds the ceiling")
	assert.Equal(t, "\n\n[output truncated: repetitive pattern detected]", reason.Marker())
}

func TestGuard_WordSplitAcrossDeltas(t *testing.T) {
	p := DefaultPolicy()
	p.WordCeiling = 2
	g := NewGuard(p)

	n, reason := admitAll(g, "repet", "ido ", "repetido ", "rep", "etido ")
	assert.Equal(t, TripWordFrequency, reason)
	assert.Equal(t, 4, n)
}

func TestGuard_ShortWordsIgnored(t *testing.T) {
	p := DefaultPolicy()
	p.WordCeiling = 2
	g := NewGuard(p)

	_, reason := admitAll(g, "hola que tal ", "hola ", "hola ", "hola ", "tal ")
	assert.Equal(t, TripNone, reason, "short words are not counted")
}

func TestGuard_SuffixFrequency(t *testing.T) {
	words := []string{
		"rapidamente ", "claramente ", "lentamente ", "finalmente ", "realmente ",
		"totalmente ", "simplemente ", "solamente ", "normalmente ", "fuertemente ",
		"suavemente ",
	}
	g := NewGuard(DefaultPolicy())

	n, reason := admitAll(g, words...)
	assert.Equal(t, TripSuffixFrequency, reason)
	assert.Equal(t, 10, n)
}

func TestGuard_Disabled(t *testing.T) {
	p := DefaultPolicy()
	p.Disabled = true
	p.TokenCeiling = 1
	g := NewGuard(p)

	phrase := "the more you know, the better "
	_, reason := admitAll(g, phrase, phrase, phrase, phrase)
	assert.Equal(t, TripNone, reason)
}

func TestPolicy_Apply(t *testing.T) {
	ceiling := 8
	strikes := 3
	suffix := "MENTE"
	p := DefaultPolicy().Apply(config.Guard{WordCeiling: &ceiling, MaxStrikes: &strikes, Suffix: &suffix})

	assert.Equal(t, 8, p.WordCeiling)
	assert.Equal(t, 3, p.MaxStrikes)
	assert.Equal(t, "mente", p.Suffix)
	assert.Equal(t, 20000, p.TokenCeiling)
	assert.False(t, p.Disabled)
}

func TestTripReason_MarkerNone(t *testing.T) {
	assert.Empty(t, TripNone.Marker())
}

func TestGuard_UnbrokenTextStaysLinear(t *testing.T) {
	g := NewGuard(DefaultPolicy())

	start := time.Now()
	for i := 0; i < 40000; i++ {
		delta := string(rune(0x4E00 + i%2000))
		if reason := g.Admit(delta); reason != TripNone {
			t.Fatalf("delta %d tripped %s", i, reason)
		}
		if len(g.partial) >= maxWordRunes {
			t.Fatalf("trailing word grew to %d runes", len(g.partial))
		}
	}
	if elapsed := time.Since(start); elapsed > 2*time.Second {
		t.Errorf("40000 deltas took %s", elapsed)
	}
}

func TestGuard_UnbrokenRepetitionTrips(t *testing.T) {
	g := NewGuard(DefaultPolicy())

	deltas := make([]string, 40000)
	for i := range deltas {
		deltas[i] = "漢字"
	}
	// Every 32 deltas complete one 64-rune chunk; the 25th exceeds the ceiling.
	n, reason := admitAll(g, deltas...)
	assert.Equal(t, TripWordFrequency, reason)
	assert.Equal(t, 799, n)
}
