package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEmotionTally_Dominant(t *testing.T) {
	tally := NewEmotionTally()
	for i := 0; i < 5; i++ {
		tally.Add("happy")
	}
	for i := 0; i < 3; i++ {
		tally.Add("neutral")
	}

	require.Equal(t, 8, tally.Detected())
	dominant := tally.Dominant()
	require.NotNil(t, dominant)
	assert.Equal(t, "happy", dominant.Emotion)
	assert.InDelta(t, 62.5, dominant.Percentage, 1e-9)
}

func TestEmotionTally_EmptyReturnsNil(t *testing.T) {
	assert.Nil(t, NewEmotionTally().Dominant())
}

func TestEmotionTally_IgnoresEmptyLabel(t *testing.T) {
	tally := NewEmotionTally()
	tally.Add("")
	assert.Equal(t, 0, tally.Detected())
	assert.Nil(t, tally.Dominant())
}

func TestEmotionTally_TieBreaksLexicographically(t *testing.T) {
	tally := NewEmotionTally()
	tally.Add("sad")
	tally.Add("angry")

	dominant := tally.Dominant()
	require.NotNil(t, dominant)
	assert.Equal(t, "angry", dominant.Emotion)
	assert.InDelta(t, 50.0, dominant.Percentage, 1e-9)
}

func TestArgmax(t *testing.T) {
	emotion, score := Argmax(map[string]float64{
		"happy":   0.7,
		"neutral": 0.2,
		"sad":     0.1,
	})
	assert.Equal(t, "happy", emotion)
	assert.InDelta(t, 0.7, score, 1e-9)
}

func TestArgmax_TieBreaksLexicographically(t *testing.T) {
	emotion, score := Argmax(map[string]float64{
		"surprise": 0.5,
		"disgust":  0.5,
	})
	assert.Equal(t, "disgust", emotion)
	assert.InDelta(t, 0.5, score, 1e-9)
}

func TestArgmax_Empty(t *testing.T) {
	emotion, score := Argmax(nil)
	assert.Equal(t, "", emotion)
	assert.Zero(t, score)
}
