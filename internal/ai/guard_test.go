package ai

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestReviewQuestion(t *testing.T) {
	years := []int{2023, 2024}
	tests := []struct {
		name     string
		question string
		level    GuardLevel
		reason   string
	}{
		{"empty", "   ", GuardReject, "empty"},
		{"too short", "abc", GuardReject, "too_short"},
		{"symbols", "?!?!?!?!?!?!??!!a", GuardReject, "gibberish"},
		{"finance english", "How did revenue growth change this quarter?", GuardOK, "pass"},
		{"finance chinese", "最近的營收表現如何？", GuardOK, "pass"},
		{"off topic", "What is the best pizza in town?", GuardWarn, "warn"},
		{"year out of range", "What was the revenue in 2015?", GuardWarn, "warn"},
		{"year in range", "What was the revenue in 2024?", GuardOK, "pass"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := ReviewQuestion(tt.question, years)
			assert.Equal(t, tt.level, v.Level)
			assert.Equal(t, tt.reason, v.Reason)
			if tt.level == GuardWarn {
				assert.NotEmpty(t, v.SystemHint)
				assert.NotEmpty(t, v.Message)
			}
		})
	}
}

func TestReviewQuestion_ShortKeywordsNeedWordBoundary(t *testing.T) {
	assert.Equal(t, GuardWarn, ReviewQuestion("Tell me about the people there", nil).Level)
	assert.Equal(t, GuardOK, ReviewQuestion("Is the PE too high here?", nil).Level)
}

func TestReviewQuestion_YearsWithoutData(t *testing.T) {
	v := ReviewQuestion("Revenue outlook for 2030?", nil)
	assert.Equal(t, GuardOK, v.Level)
}
