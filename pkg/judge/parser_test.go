package judge

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"debatearena/pkg/debate"
)

func testParticipants() []debate.Participant {
	return []debate.Participant{
		{ModelID: "alpha", Position: "Pro", DisplayName: "Alpha"},
		{ModelID: "beta", Position: "Con", DisplayName: "Beta"},
	}
}

func TestKeywordParser(t *testing.T) {
	tests := []struct {
		name     string
		response string
		winner   string
		draw     bool
	}{
		{"winner is first", "After weighing everything, the winner is Pro.", "alpha", false},
		{"winner colon second", "Final verdict. Winner: Con", "beta", false},
		{"outperformed", "Overall, Con outperformed its opponent.", "beta", false},
		{"case insensitive", "THE WINNER IS PRO", "alpha", false},
		{"first participant checked first", "Con argued well but the winner is Pro", "alpha", false},
		{"no indicator", "Both sides argued well.", "", false},
		{"draw keyword", "This debate is a draw.", "", true},
		{"tie substring", "The abilities shown were equal.", "", true},
		{"draw and winner", "Not a draw: the winner is Con.", "beta", true},
	}

	p := NewKeywordParser()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := p.Parse(tt.response, testParticipants())
			assert.Equal(t, tt.draw, v.Draw)
			if tt.winner == "" {
				assert.Nil(t, v.Winner)
				assert.Nil(t, v.Loser)
				return
			}
			require.NotNil(t, v.Winner)
			require.NotNil(t, v.Loser)
			assert.Equal(t, tt.winner, v.Winner.ModelID)
			assert.NotEqual(t, v.Winner.ModelID, v.Loser.ModelID)
		})
	}
}

func TestKeywordParserWindow(t *testing.T) {
	p := NewKeywordParser()
	filler := strings.Repeat("x", 60)

	v := p.Parse("the winner is "+filler+" Con", testParticipants())
	assert.Nil(t, v.Winner)

	v = p.Parse("Con "+strings.Repeat("x", 40)+" winner is", testParticipants())
	require.NotNil(t, v.Winner)
	assert.Equal(t, "beta", v.Winner.ModelID)
}

func TestKeywordParserLaterOccurrence(t *testing.T) {
	p := NewKeywordParser()
	filler := strings.Repeat("x", 80)

	v := p.Parse("the winner is unclear "+filler+" so the winner is Con", testParticipants())
	require.NotNil(t, v.Winner)
	assert.Equal(t, "beta", v.Winner.ModelID)
}

func TestKeywordParserMultibyte(t *testing.T) {
	p := NewKeywordParser()
	v := p.Parse("Con "+strings.Repeat("é", 50)+" winner is", testParticipants())
	assert.Nil(t, v.Winner)

	// 30 two-byte characters put "winner is" 65 bytes but only 35 characters in.
	v = p.Parse("Con "+strings.Repeat("é", 30)+" winner is", testParticipants())
	require.NotNil(t, v.Winner)
	assert.Equal(t, "beta", v.Winner.ModelID)
}

func TestKeywordParserReturnsCopies(t *testing.T) {
	participants := testParticipants()
	v := NewKeywordParser().Parse("the winner is Pro", participants)
	require.NotNil(t, v.Winner)

	v.Winner.DisplayName = "changed"
	assert.Equal(t, "Alpha", participants[0].DisplayName)
}
