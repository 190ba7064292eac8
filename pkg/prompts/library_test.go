package prompts

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRelevantPatternsKeywordTriggers(t *testing.T) {
	out := RelevantPatterns("I need a spur gear with 20 teeth")
	assert.Contains(t, out, "CQ_GEARS")
	assert.NotContains(t, out, "CQ-GRIDFINITY")

	out = RelevantPatterns("a bracket with M5 screw holes")
	assert.Contains(t, out, "CQ-WAREHOUSE")

	out = RelevantPatterns("a gridfinity bin 2x3")
	assert.Contains(t, out, "CQ-GRIDFINITY")
}

func TestRelevantPatternsFrenchAliases(t *testing.T) {
	out := RelevantPatterns("un support avec engrenage et roulement")
	assert.Contains(t, out, "CQ_GEARS")
	assert.Contains(t, out, "CQ-WAREHOUSE")
}

func TestRelevantPatternsNoMatch(t *testing.T) {
	assert.Empty(t, RelevantPatterns("a simple box 40x25x10"))
}

func TestRelevantPatternsDeduplicates(t *testing.T) {
	// bearing and screw both map to cq-warehouse
	out := RelevantPatterns("a bearing housing with screw holes")
	assert.Equal(t, 1, strings.Count(out, "## CQ-WAREHOUSE"))
}

func TestAllPatternsIncludesEverything(t *testing.T) {
	out := AllPatterns()
	for _, marker := range []string{"CQ-WAREHOUSE", "CQ_GEARS", "CQ-GRIDFINITY", "CQ-KIT"} {
		assert.Contains(t, out, marker)
	}
	assert.Contains(t, out, "LIBRARY USAGE RULES")
}

func TestStandardQuestionsCoverTopics(t *testing.T) {
	for _, topic := range []string{"initial", "dimensions", "purpose", "structural", "aesthetic", "features"} {
		qs, ok := StandardQuestions[topic]
		assert.True(t, ok, topic)
		assert.NotEmpty(t, qs, topic)
	}
	assert.True(t, StandardQuestions["features"][0].AllowMultiple)
}
