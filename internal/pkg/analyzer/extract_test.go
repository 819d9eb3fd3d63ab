package analyzer

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseOrExtract_JSON(t *testing.T) {
	res := ParseOrExtract(`{"emotionalTone": "nostalgic", "themes": ["family", "home"],
	 "summary": "Olia summary.", "insights": ["i1"]}`)
	require.NotNil(t, res)
	assert.Equal(t, "nostalgic", res.EmotionalTone)
	assert.Equal(t, []string{"family", "home"}, res.Themes)
	assert.Equal(t, "Olia summary.", res.Summary)
	assert.Equal(t, []string{"i1"}, res.Insights)
}

func TestParseOrExtract_JSONDefaults(t *testing.T) {
	res := ParseOrExtract(`{}`)
	require.NotNil(t, res)
	assert.Equal(t, "reflective", res.EmotionalTone)
	assert.Equal(t, []string{}, res.Themes)
	assert.Equal(t, "", res.Summary)
}

func TestParseOrExtract_CapsThemes(t *testing.T) {
	res := ParseOrExtract(`{"themes": ["1", "2", "3", "4", "5", "6", "7"]}`)
	require.NotNil(t, res)
	assert.Equal(t, []string{"1", "2", "3", "4", "5"}, res.Themes)
}

func TestParseOrExtract_FreeText(t *testing.T) {
	res := ParseOrExtract(`Emotional tone: Nostalgic

Themes: family, - home, legacy

Summary: A story about the old family home.`)
	require.NotNil(t, res)
	assert.Equal(t, "Nostalgic", res.EmotionalTone)
	assert.Equal(t, []string{"family", "home", "legacy"}, res.Themes)
	assert.Equal(t, "A story about the old family home.", res.Summary)
}

func TestParseOrExtract_FreeTextDefaults(t *testing.T) {
	res := ParseOrExtract(`olia olia olia`)
	require.NotNil(t, res)
	assert.Equal(t, "reflective", res.EmotionalTone)
	assert.Equal(t, []string{"legacy"}, res.Themes)
	assert.Equal(t, "olia olia olia", res.Summary)
}

func TestParseOrExtract_LongSummaryTruncated(t *testing.T) {
	res := ParseOrExtract(strings.Repeat("a", 600))
	require.NotNil(t, res)
	assert.Equal(t, 500, len(res.Summary))
}
