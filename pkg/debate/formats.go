package debate

import (
	"fmt"
	"strings"
)

// RoundType selects the instruction given to debaters for a round.
type RoundType string

// Round types. Only opening, rebuttal, counter-rebuttal and closing carry
// dedicated instructions; the rest use the default instruction.
const (
	RoundOpening          RoundType = "opening"
	RoundRebuttal         RoundType = "rebuttal"
	RoundCounterRebuttal  RoundType = "counter-rebuttal"
	RoundClosing          RoundType = "closing"
	RoundQuestioning      RoundType = "questioning"
	RoundResponse         RoundType = "response"
	RoundCrossExamination RoundType = "cross-examination"
	RoundHetu             RoundType = "hetu"
	RoundUdaharana        RoundType = "udaharana"
	RoundElaboration      RoundType = "elaboration"
	RoundReconciliation   RoundType = "reconciliation"
	RoundContemplation    RoundType = "contemplation"
	RoundDiss             RoundType = "diss"
	RoundComeback         RoundType = "comeback"
)

// Round is one stage of a debate format. Tokens is the per-turn output budget.
type Round struct {
	Type   RoundType `json:"type"`
	Name   string    `json:"name"`
	Tokens int       `json:"tokens"`
}

// Format is an immutable debate template.
type Format struct {
	Key         string  `json:"key"`
	Name        string  `json:"name"`
	Description string  `json:"description"`
	Style       string  `json:"style,omitempty"`
	Rounds      []Round `json:"rounds"`
}

// Style tags with a system-prompt directive.
const (
	StyleSocratic       = "socratic"
	StyleOxford         = "oxford"
	StyleLincolnDouglas = "lincoln-douglas"
	StyleNyayasutra     = "nyayasutra"
	StyleConfucian      = "confucian"
	StyleBuddhist       = "buddhist"
	StyleRapBattle      = "rap_battle"
	StyleParliamentary  = "parliamentary"
)

//nolint:gochecknoglobals // Fixed directive table
var styleDirectives = map[string]string{
	StyleSocratic:       "Use the Socratic method of questioning to reveal insights. Focus on asking thoughtful questions and examining assumptions.",
	StyleOxford:         "Follow the formal Oxford debating style. Be eloquent, structured, and respectful of procedure.",
	StyleLincolnDouglas: "Focus on values and philosophical frameworks. Present clear value contentions and address the moral dimensions of the topic.",
	StyleNyayasutra:     "Follow the ancient Indian Nyaya school of logic. Structure your argument with clear proposition, reason, example, and conclusion.",
	StyleConfucian:      "Emphasize harmony, respect, and the pursuit of wisdom. Use references to tradition and prioritize collective well-being.",
	StyleBuddhist:       "Consider multiple perspectives and avoid extremes. Focus on compassionate reasoning and the elimination of suffering.",
	StyleRapBattle:      "Use rhymes, wordplay, and creative language. Be persuasive but also entertaining with your flow and delivery.",
	StyleParliamentary:  "Use formal parliamentary language and procedure. Address \"the chair\" and follow the conventions of legislative debate.",
}

// StyleDirective returns the system-prompt directive for style, or "" for
// an empty or unknown style.
func StyleDirective(style string) string {
	return styleDirectives[style]
}

// DefaultFormatKey is used when no format is named.
const DefaultFormatKey = "STANDARD"

//nolint:gochecknoglobals // Static format catalogue, in presentation order
var formats = []Format{
	{
		Key:         "STANDARD",
		Name:        "Standard Debate",
		Description: "A standard debate with opening statements, rebuttals, and closing statements",
		Rounds: []Round{
			{RoundOpening, "Opening Statement", 2000},
			{RoundRebuttal, "Rebuttal", 1500},
			{RoundCounterRebuttal, "Counter-Rebuttal", 1500},
			{RoundClosing, "Closing Statement", 1500},
		},
	},
	{
		Key:         "SHORT",
		Name:        "Short Debate",
		Description: "A shorter debate format with opening and closing only",
		Rounds: []Round{
			{RoundOpening, "Opening Statement", 1500},
			{RoundClosing, "Closing Statement", 1500},
		},
	},
	{
		Key:         "COMPREHENSIVE",
		Name:        "Comprehensive Debate",
		Description: "A detailed debate with multiple rounds of rebuttals",
		Rounds: []Round{
			{RoundOpening, "Opening Statement", 2000},
			{RoundRebuttal, "First Rebuttal", 1500},
			{RoundCounterRebuttal, "First Counter-Rebuttal", 1500},
			{RoundRebuttal, "Second Rebuttal", 1000},
			{RoundCounterRebuttal, "Second Counter-Rebuttal", 1000},
			{RoundClosing, "Closing Statement", 2000},
		},
	},
	{
		Key:         "SOCRATIC",
		Name:        "Socratic Dialogue",
		Description: "A philosophical debate based on questioning to stimulate critical thinking",
		Style:       StyleSocratic,
		Rounds: []Round{
			{RoundOpening, "Initial Position", 1500},
			{RoundQuestioning, "Socratic Questioning", 1500},
			{RoundResponse, "Response to Questions", 1500},
			{RoundClosing, "Final Position", 1500},
		},
	},
	{
		Key:         "OXFORD",
		Name:        "Oxford-Style Debate",
		Description: "A formal debate with strict rules and timed speeches",
		Style:       StyleOxford,
		Rounds: []Round{
			{RoundOpening, "Opening Statement", 2000},
			{RoundRebuttal, "First Rebuttal", 1500},
			{RoundCrossExamination, "Cross-Examination", 1000},
			{RoundClosing, "Closing Statement", 1500},
		},
	},
	{
		Key:         "LINCOLN_DOUGLAS",
		Name:        "Lincoln-Douglas Debate",
		Description: "A one-on-one debate format focusing on values and philosophical arguments",
		Style:       StyleLincolnDouglas,
		Rounds: []Round{
			{RoundOpening, "Affirmative Constructive", 2000},
			{RoundOpening, "Negative Constructive", 2000},
			{RoundRebuttal, "Affirmative Rebuttal", 1500},
			{RoundRebuttal, "Negative Rebuttal", 1500},
			{RoundClosing, "Closing Statements", 1500},
		},
	},
	{
		Key:         "NYAYASUTRA",
		Name:        "Nyayasutra Debate",
		Description: "An ancient Indian debate format based on logical reasoning and structured arguments",
		Style:       StyleNyayasutra,
		Rounds: []Round{
			{RoundOpening, "Pratijna (Proposition)", 1500},
			{RoundHetu, "Hetu (Reason)", 1500},
			{RoundUdaharana, "Udaharana (Example)", 1500},
			{RoundClosing, "Nigamana (Conclusion)", 1500},
		},
	},
	{
		Key:         "CONFUCIAN",
		Name:        "Confucian Dialogue",
		Description: "A respectful debate style emphasizing harmony and mutual understanding",
		Style:       StyleConfucian,
		Rounds: []Round{
			{RoundOpening, "Initial Wisdom", 1500},
			{RoundElaboration, "Elaboration of Views", 1500},
			{RoundReconciliation, "Seeking Harmony", 1500},
			{RoundClosing, "Virtuous Conclusion", 1500},
		},
	},
	{
		Key:         "BUDDHIST",
		Name:        "Buddhist Debate Style",
		Description: "A contemplative debate style examining truth from multiple perspectives",
		Style:       StyleBuddhist,
		Rounds: []Round{
			{RoundOpening, "Initial View", 1500},
			{RoundContemplation, "Middle Path Examination", 1500},
			{RoundRebuttal, "Refuting Extremes", 1500},
			{RoundClosing, "Enlightened Conclusion", 1500},
		},
	},
	{
		Key:         "RAP_BATTLE",
		Name:        "Rap Battle",
		Description: "A creative debate format using rhythm, rhyme and wordplay",
		Style:       StyleRapBattle,
		Rounds: []Round{
			{RoundOpening, "Opening Verse", 1000},
			{RoundDiss, "Diss Track", 1000},
			{RoundComeback, "Comeback Verse", 1000},
			{RoundClosing, "Final Bars", 1000},
		},
	},
	{
		Key:         "PARLIAMENTARY",
		Name:        "Parliamentary Debate",
		Description: "A formal legislative-style debate with government and opposition roles",
		Style:       StyleParliamentary,
		Rounds: []Round{
			{RoundOpening, "Prime Minister Speech", 2000},
			{RoundOpening, "Leader of Opposition Speech", 2000},
			{RoundRebuttal, "Government Rebuttal", 1500},
			{RoundRebuttal, "Opposition Rebuttal", 1500},
			{RoundClosing, "Closing Speeches", 1500},
		},
	},
}

// Formats returns a copy of every format in presentation order.
func Formats() []Format {
	out := make([]Format, len(formats))
	for i := range formats {
		out[i] = formats[i].clone()
	}
	return out
}

// LookupFormat returns the format for key. Keys are matched case-insensitively.
func LookupFormat(key string) (Format, error) {
	if key == "" {
		key = DefaultFormatKey
	}
	for i := range formats {
		if strings.EqualFold(formats[i].Key, key) {
			return formats[i].clone(), nil
		}
	}
	return Format{}, fmt.Errorf("%w: %s", ErrUnknownFormat, key)
}

func (f Format) clone() Format {
	f.Rounds = append([]Round(nil), f.Rounds...)
	return f
}
