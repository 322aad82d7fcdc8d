package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func breakdownWith(signals ...Signal) ScoreBreakdown {
	return ScoreBreakdown{Score: 70, Signals: signals}
}

func TestScoreBreakdown_ProsCons(t *testing.T) {
	pros := breakdownWith(
		Signal{Kind: SignalPro, Text: "High protein"},
		Signal{Kind: SignalCon, Text: "Pricey"},
		Signal{Kind: SignalPro, Text: "Grain free"},
	).Pros()
	assert.Equal(t, []string{"High protein", "Grain free"}, pros)

	assert.Equal(t, []string{"Pricey"}, breakdownWith(Signal{Kind: SignalCon, Text: "Pricey"}).Cons())
	assert.Nil(t, breakdownWith().Cons())
}
