package httpserver

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTranslateFeedbackType_ClickAndSelectSetClickThrough(t *testing.T) {
	click, satisfaction, err := translateFeedbackType(feedbackClick, nil)
	require.NoError(t, err)
	assert.True(t, click)
	assert.Nil(t, satisfaction)

	click, satisfaction, err = translateFeedbackType(feedbackSelect, nil)
	require.NoError(t, err)
	assert.True(t, click)
	assert.Nil(t, satisfaction)
}

func TestTranslateFeedbackType_RelevantDefaultsToOne(t *testing.T) {
	click, satisfaction, err := translateFeedbackType(feedbackRelevant, nil)
	require.NoError(t, err)
	assert.False(t, click)
	require.NotNil(t, satisfaction)
	assert.Equal(t, 1.0, *satisfaction)
}

func TestTranslateFeedbackType_NotRelevantDefaultsToZero(t *testing.T) {
	click, satisfaction, err := translateFeedbackType(feedbackNotRelevant, nil)
	require.NoError(t, err)
	assert.False(t, click)
	require.NotNil(t, satisfaction)
	assert.Equal(t, 0.0, *satisfaction)
}

func TestTranslateFeedbackType_ScoreOverridesDefault(t *testing.T) {
	score := 0.75
	_, satisfaction, err := translateFeedbackType(feedbackRelevant, &score)
	require.NoError(t, err)
	require.NotNil(t, satisfaction)
	assert.Equal(t, 0.75, *satisfaction)
}

func TestTranslateFeedbackType_RejectsUnknownValue(t *testing.T) {
	_, _, err := translateFeedbackType(feedbackType("bogus"), nil)
	assert.Error(t, err)
}
