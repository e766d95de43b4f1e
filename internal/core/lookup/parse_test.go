package lookup

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"nutrient-resolver/internal/pkg/jsonrepair"
)

const fullResponse = "```json\n" + `{
  "searchTerm": "アボカド",
  "candidates": [
    {"name": "アボカド(生)", "matchScore": 95, "matchReason": "完全一致", "calories": 178, "protein": 2.1, "fat": 17.5, "carbs": 7.9},
    {"name": "アボカドオイル", "matchScore": 40},
    {"name": "", "matchScore": 10},
    {"name": "グアカモーレ", "matchScore": 30},
  ],
  "bestMatch": {"name": "アボカド(生)", "matchScore": 95, "confidence": 0.9,
    "calories": 178, "protein": 2.1, "fat": 17.5, "carbs": 7.9, "potassium": 590, "vitaminE": 3.3}
}` + "\n```"

func TestParseFullResponse(t *testing.T) {
	res, err := Parse(fullResponse, "アボカド", 2)
	require.NoError(t, err)

	assert.Equal(t, "アボカド", res.SearchTerm)
	require.Len(t, res.Candidates, 2)
	assert.Equal(t, "アボカド（生）", res.Candidates[0].Name)
	assert.Equal(t, 95.0, res.Candidates[0].MatchScore)
	assert.Equal(t, "完全一致", res.Candidates[0].MatchReason)
	require.NotNil(t, res.Candidates[0].Record)
	assert.Equal(t, 178.0, res.Candidates[0].Record.Calories)
	assert.Nil(t, res.Candidates[1].Record)

	assert.Equal(t, "アボカド（生）", res.BestMatch.Name)
	assert.Equal(t, 0.9, res.BestMatch.Confidence)
	assert.Equal(t, 178.0, res.BestMatch.Record.Calories)
	require.NotNil(t, res.BestMatch.Record.Potassium)
	assert.Equal(t, 590.0, *res.BestMatch.Record.Potassium)
	assert.Nil(t, res.BestMatch.Record.Iron)
}

func TestParseMissingBestMatchKeepsCandidates(t *testing.T) {
	res, err := Parse(`{"searchTerm": "謎の料理", "candidates": [{"name": "煮物", "matchScore": 30}]}`, "謎の料理", 5)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrNoBestMatch))
	require.NotNil(t, res)
	require.Len(t, res.Candidates, 1)
	assert.Equal(t, "煮物", res.Candidates[0].Name)
}

func TestParseBestMatchWithoutCalories(t *testing.T) {
	_, err := Parse(`{"bestMatch": {"name": "x", "protein": 1}}`, "x", 5)
	assert.ErrorIs(t, err, ErrNoBestMatch)
}

func TestParseDefaultsSearchTermAndName(t *testing.T) {
	res, err := Parse(`{"bestMatch": {"calories": 50}}`, "こんにゃく", 5)
	require.NoError(t, err)
	assert.Equal(t, "こんにゃく", res.SearchTerm)
	assert.Equal(t, "こんにゃく", res.BestMatch.Name)
	assert.Empty(t, res.Candidates)
}

func TestParseMalformed(t *testing.T) {
	_, err := Parse("no json here", "x", 5)
	assert.ErrorIs(t, err, jsonrepair.ErrUnrepairable)
}
