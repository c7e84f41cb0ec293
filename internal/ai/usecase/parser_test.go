package usecase

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mailscope-backend/pkg/errs"
)

func TestParseSummary(t *testing.T) {
	missingField := []struct {
		name  string
		reply string
	}{
		{"no summary", "KEY_POINTS:\n- a\nACTION_REQUIRED: no\nURGENCY: low\nSUGGESTED_TONE: friendly\nCONFIDENCE: 0.5"},
		{"no key points label", "SUMMARY: x\nACTION_REQUIRED: no\nURGENCY: low\nSUGGESTED_TONE: friendly\nCONFIDENCE: 0.5"},
		{"empty key points", "SUMMARY: x\nKEY_POINTS:\nACTION_REQUIRED: no\nURGENCY: low\nSUGGESTED_TONE: friendly\nCONFIDENCE: 0.5"},
		{"no confidence", "SUMMARY: x\nKEY_POINTS:\n- a\nACTION_REQUIRED: no\nURGENCY: low\nSUGGESTED_TONE: friendly"},
		{"bad action flag", "SUMMARY: x\nKEY_POINTS:\n- a\nACTION_REQUIRED: maybe\nURGENCY: low\nSUGGESTED_TONE: friendly\nCONFIDENCE: 0.5"},
		{"bad urgency", "SUMMARY: x\nKEY_POINTS:\n- a\nACTION_REQUIRED: no\nURGENCY: extreme\nSUGGESTED_TONE: friendly\nCONFIDENCE: 0.5"},
		{"confidence out of range", "SUMMARY: x\nKEY_POINTS:\n- a\nACTION_REQUIRED: no\nURGENCY: low\nSUGGESTED_TONE: friendly\nCONFIDENCE: 1.5"},
		{"free text only", "The email talks about a report and asks for review."},
	}
	for _, tc := range missingField {
		t.Run(tc.name, func(t *testing.T) {
			artifact, err := parseSummary(tc.reply)
			require.Error(t, err)
			assert.Nil(t, artifact)
			assert.True(t, errs.IsKind(err, errs.KindAI))
			assert.Equal(t, errs.ReasonMalformedOutput, errs.ReasonOf(err))
		})
	}

	t.Run("summary may continue on a second line", func(t *testing.T) {
		artifact, err := parseSummary("SUMMARY: The report is ready\nand awaits review.\nKEY_POINTS:\n- a\nACTION_REQUIRED: no\nURGENCY: low\nSUGGESTED_TONE: friendly\nCONFIDENCE: 0.5")
		require.NoError(t, err)
		assert.Equal(t, "The report is ready and awaits review.", artifact.Summary)
	})

	t.Run("labels and values are normalized case-insensitively", func(t *testing.T) {
		artifact, err := parseSummary("SUMMARY: x\nKEY_POINTS:\n- a\nACTION_REQUIRED: Yes\nURGENCY: HIGH\nSUGGESTED_TONE: Formal\nCONFIDENCE: 1")
		require.NoError(t, err)
		assert.True(t, artifact.ActionRequired)
		assert.Equal(t, "high", artifact.UrgencyLevel)
		assert.Equal(t, "formal", artifact.SuggestedTone)
	})
}

func TestParseResponse(t *testing.T) {
	t.Run("missing body or confidence is malformed", func(t *testing.T) {
		for _, reply := range []string{
			"CONFIDENCE: 0.9",
			"BODY:\nHi there",
			"BODY:\nCONFIDENCE: 0.9",
			"just prose with no labels",
		} {
			artifact, err := parseResponse(reply)
			require.Error(t, err, reply)
			assert.Nil(t, artifact)
			assert.True(t, errs.IsKind(err, errs.KindAI))
		}
	})

	t.Run("multi-line body keeps internal blank lines", func(t *testing.T) {
		artifact, err := parseResponse("BODY:\nHi John,\n\nAll done.\n\nBest,\nAnna\nCONFIDENCE: 0.7")
		require.NoError(t, err)
		assert.Equal(t, "Hi John,\n\nAll done.\n\nBest,\nAnna", artifact.Body)
		assert.Equal(t, 6, artifact.WordCount)
	})
}
