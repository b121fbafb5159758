package ai

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/baldionna/baldi/internal/config"
)

// TripReason names the check that stopped a stream. TripNone means the
// delta was admitted.
type TripReason string

const (
	TripNone            TripReason = ""
	TripTokenBudget     TripReason = "token_budget"
	TripLocalRepetition TripReason = "local_repetition"
	TripWordFrequency   TripReason = "word_frequency"
	TripSuffixFrequency TripReason = "suffix_frequency"
)

// maxWordRunes bounds the unfinished trailing word carried between deltas.
const maxWordRunes = 64

const (
	markerLength     = "length limit reached"
	markerRepetitive = "repetitive pattern detected"
)

// Marker returns the user-visible note appended to truncated output.
func (r TripReason) Marker() string {
	switch r {
	case TripNone:
		return ""
	case TripTokenBudget:
		return "\n\n[output truncated: " + markerLength + "]"
	default:
		return "\n\n[output truncated: " + markerRepetitive + "]"
	}
}

// Policy holds the guard thresholds. A zero ceiling disables its check.
type Policy struct {
	Disabled      bool
	TokenCeiling  int
	CharsPerToken int
	Window        int
	MinRepeatLen  int
	MaxStrikes    int
	MinWordLen    int
	WordCeiling   int
	Suffix        string
	SuffixCeiling int
}

// DefaultPolicy returns the built-in thresholds.
func DefaultPolicy() Policy {
	return Policy{
		TokenCeiling:  20000,
		CharsPerToken: 4,
		Window:        150,
		MinRepeatLen:  12,
		MaxStrikes:    2,
		MinWordLen:    5,
		WordCeiling:   24,
		Suffix:        "mente",
		SuffixCeiling: 10,
	}
}

// Apply returns p with every non-nil override applied.
func (p Policy) Apply(g config.Guard) Policy {
	p.Disabled = g.Disabled
	set := func(dst *int, src *int) {
		if src != nil {
			*dst = *src
		}
	}
	set(&p.TokenCeiling, g.TokenCeiling)
	set(&p.CharsPerToken, g.CharsPerToken)
	set(&p.Window, g.Window)
	set(&p.MinRepeatLen, g.MinRepeatLen)
	set(&p.MaxStrikes, g.MaxStrikes)
	set(&p.MinWordLen, g.MinWordLen)
	set(&p.WordCeiling, g.WordCeiling)
	set(&p.SuffixCeiling, g.SuffixCeiling)
	if g.Suffix != nil {
		p.Suffix = strings.ToLower(*g.Suffix)
	}
	return p
}

// Guard inspects deltas against the output accumulated so far and decides
// whether the stream is degenerating. It keeps only what the checks need:
// rune count, a lowercase trailing window, strike count and word counts.
// A Guard belongs to one session and is not safe for concurrent use.
type Guard struct {
	policy     Policy
	runes      int
	window     []rune
	strikes    int
	words      map[string]int
	suffixHits int
	partial    []rune
}

// NewGuard returns a guard enforcing p.
func NewGuard(p Policy) *Guard {
	return &Guard{policy: p, words: map[string]int{}}
}

// Strikes returns the current consecutive repetition strike count.
func (g *Guard) Strikes() int { return g.strikes }

// Admit evaluates delta in order: token budget, local repetition, word
// frequency. An admitted delta is committed to the guard state and TripNone
// is returned; otherwise the state is left untouched.
func (g *Guard) Admit(delta string) TripReason {
	p := g.policy
	n := utf8.RuneCountInString(delta)
	if p.Disabled {
		g.runes += n
		return TripNone
	}

	if p.TokenCeiling > 0 && p.CharsPerToken > 0 && (g.runes+n)/p.CharsPerToken > p.TokenCeiling {
		return TripTokenBudget
	}

	strikes := g.strikes
	if g.runes > 0 && p.MaxStrikes > 0 {
		norm := strings.ToLower(strings.TrimSpace(delta))
		if norm != "" && utf8.RuneCountInString(norm) >= p.MinRepeatLen && strings.Contains(string(g.window), norm) {
			strikes++
		} else {
			strikes = 0
		}
		if strikes >= p.MaxStrikes {
			return TripLocalRepetition
		}
	}

	complete, partial := splitWords(g.partial, delta)
	if reason := g.checkWords(complete, partial); reason != TripNone {
		return reason
	}

	g.runes += n
	g.strikes = strikes
	g.partial = partial
	for _, w := range complete {
		if word, ok := g.countable(w); ok {
			g.words[word]++
			if g.hasSuffix(word) {
				g.suffixHits++
			}
		}
	}
	g.window = append(g.window, []rune(strings.ToLower(delta))...)
	if p.Window > 0 && len(g.window) > p.Window {
		g.window = append(g.window[:0], g.window[len(g.window)-p.Window:]...)
	}
	return TripNone
}

// checkWords counts complete words plus the trailing partial one as if
// appended to the committed counts, without mutating them.
func (g *Guard) checkWords(complete [][]rune, partial []rune) TripReason {
	p := g.policy
	if p.WordCeiling <= 0 && p.SuffixCeiling <= 0 {
		return TripNone
	}
	pending := make(map[string]int)
	suffix := 0
	candidates := complete
	if len(partial) > 0 {
		candidates = append(candidates[:len(candidates):len(candidates)], partial)
	}
	for _, w := range candidates {
		word, ok := g.countable(w)
		if !ok {
			continue
		}
		pending[word]++
		if p.WordCeiling > 0 && g.words[word]+pending[word] > p.WordCeiling {
			return TripWordFrequency
		}
		if g.hasSuffix(word) {
			suffix++
			if p.SuffixCeiling > 0 && g.suffixHits+suffix > p.SuffixCeiling {
				return TripSuffixFrequency
			}
		}
	}
	return TripNone
}

// countable normalizes w to lowercase letters and reports whether it is
// longer than the minimum word length.
func (g *Guard) countable(w []rune) (string, bool) {
	var b strings.Builder
	letters := 0
	for _, r := range w {
		if unicode.IsLetter(r) {
			b.WriteRune(unicode.ToLower(r))
			letters++
		}
	}
	if letters <= g.policy.MinWordLen {
		return "", false
	}
	return b.String(), true
}

func (g *Guard) hasSuffix(word string) bool {
	s := g.policy.Suffix
	return s != "" && len(word) > len(s) && strings.HasSuffix(word, s)
}

// splitWords tokenizes partial+delta on whitespace. The last word is
// returned separately when delta does not end in whitespace. Runs without
// whitespace are cut into words of maxWordRunes so rest stays bounded.
func splitWords(partial []rune, delta string) (complete [][]rune, rest []rune) {
	cur := append([]rune(nil), partial...)
	for _, r := range delta {
		if unicode.IsSpace(r) {
			if len(cur) > 0 {
				complete = append(complete, cur)
				cur = nil
			}
			continue
		}
		cur = append(cur, r)
		if len(cur) == maxWordRunes {
			complete = append(complete, cur)
			cur = nil
		}
	}
	return complete, cur
}
