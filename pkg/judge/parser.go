package judge

import (
	"strings"
	"unicode/utf8"

	"debatearena/pkg/debate"
)

// Verdict is what a parser extracted from a judge's response. Winner and
// Loser are both set or both nil.
type Verdict struct {
	Draw   bool
	Winner *debate.Participant
	Loser  *debate.Participant
}

// VerdictParser turns free-text judge output into a Verdict.
type VerdictParser interface {
	Parse(response string, participants []debate.Participant) Verdict
}

// DefaultIndicators are the phrases that announce a winner.
//
//nolint:gochecknoglobals // Static phrase list
var DefaultIndicators = []string{
	"winner is", "winner:", "wins the debate", "is the winner",
	"stronger case", "more convincing", "better arguments", "outperformed",
}

// KeywordParser finds a winner by looking for a participant's position near a
// winner phrase. Phrases are tried in order; for each occurrence the text
// within Window characters either side of where it starts is searched for the
// first participant's position, then the second's.
type KeywordParser struct {
	Indicators []string
	Window     int
}

// NewKeywordParser returns a parser with DefaultIndicators and a 50 character window.
func NewKeywordParser() *KeywordParser {
	return &KeywordParser{Indicators: DefaultIndicators, Window: 50}
}

// Parse implements VerdictParser. Draw is a plain substring test for "draw"
// or "tie", so words such as "abilities" also count.
func (k *KeywordParser) Parse(response string, participants []debate.Participant) Verdict {
	lower := strings.ToLower(response)
	v := Verdict{Draw: strings.Contains(lower, "draw") || strings.Contains(lower, "tie")}
	if len(participants) != 2 {
		return v
	}

	runes := []rune(lower)
	positions := [2]string{
		strings.ToLower(participants[0].Position),
		strings.ToLower(participants[1].Position),
	}

	for _, indicator := range k.Indicators {
		needle := strings.ToLower(indicator)
		if needle == "" {
			continue
		}
		for offset := 0; ; {
			idx := strings.Index(lower[offset:], needle)
			if idx < 0 {
				break
			}
			start := offset + idx
			offset = start + len(needle)

			at := utf8.RuneCountInString(lower[:start])
			nearby := string(runes[max(0, at-k.Window):min(len(runes), at+k.Window)])

			for i, pos := range positions {
				if pos != "" && strings.Contains(nearby, pos) {
					winner, loser := participants[i], participants[1-i]
					v.Winner, v.Loser = &winner, &loser
					return v
				}
			}
		}
	}
	return v
}
