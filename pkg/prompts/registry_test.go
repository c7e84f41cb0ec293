package prompts

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mailscope-backend/pkg/errs"
)

const testPrompts = `
config:
  max_tokens_summarization: 400
  max_tokens_response: 200

prompts:
  summarization:
    current_version: "1.0.0"
    required_variables: [subject, body]
    template: |
      Summarize this email.
      Subject: {subject}
      {body}
  response_generation:
    current_version: "2.0.0"
    required_variables: [body, user_input]
    template: |
      Reply to {body} covering {user_input}.
`

func writePrompts(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "prompts.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoad(t *testing.T) {
	t.Run("loads templates and budgets", func(t *testing.T) {
		reg, err := Load(writePrompts(t, testPrompts))
		require.NoError(t, err)

		assert.Equal(t, 400, reg.MaxSummaryTokens())
		assert.Equal(t, 200, reg.MaxResponseTokens())

		tpl, err := reg.Get("summarization")
		require.NoError(t, err)
		assert.Equal(t, "1.0.0", tpl.Version)
		assert.Equal(t, []string{"subject", "body"}, tpl.RequiredVariables)
	})

	t.Run("missing file fails", func(t *testing.T) {
		_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
		assert.Error(t, err)
	})

	t.Run("declared variable without placeholder fails at load", func(t *testing.T) {
		broken := `
prompts:
  summarization:
    current_version: "1.0.0"
    required_variables: [subject]
    template: "no placeholder here"
`
		_, err := Load(writePrompts(t, broken))
		assert.ErrorContains(t, err, "placeholder")
	})

	t.Run("missing version fails at load", func(t *testing.T) {
		broken := `
prompts:
  summarization:
    required_variables: []
    template: "hello"
`
		_, err := Load(writePrompts(t, broken))
		assert.ErrorContains(t, err, "current_version")
	})
}

func TestRegistry_Render(t *testing.T) {
	reg, err := Load(writePrompts(t, testPrompts))
	require.NoError(t, err)

	t.Run("substitutes required variables", func(t *testing.T) {
		out, err := reg.Render("summarization", map[string]string{
			"subject": "Quarterly report",
			"body":    "Numbers attached.",
		})
		require.NoError(t, err)
		assert.Contains(t, out, "Subject: Quarterly report")
		assert.Contains(t, out, "Numbers attached.")
		assert.NotContains(t, out, "{subject}")
		assert.NotContains(t, out, "{body}")
	})

	t.Run("missing required variable is a validation error", func(t *testing.T) {
		_, err := reg.Render("summarization", map[string]string{"subject": "hi"})
		assert.True(t, errs.IsKind(err, errs.KindValidation))
		assert.Equal(t, errs.ReasonMissingVariable, errs.ReasonOf(err))
	})

	t.Run("unknown template is not found", func(t *testing.T) {
		_, err := reg.Render("nope", nil)
		assert.True(t, errs.IsKind(err, errs.KindNotFound))
	})

	t.Run("extra variables are ignored", func(t *testing.T) {
		out, err := reg.Render("response_generation", map[string]string{
			"body":       "original",
			"user_input": "say thanks",
			"extra":      "unused",
		})
		require.NoError(t, err)
		assert.Contains(t, out, "original")
		assert.NotContains(t, out, "unused")
	})
}

func TestRegistry_VersionOf(t *testing.T) {
	reg, err := Load(writePrompts(t, testPrompts))
	require.NoError(t, err)

	v, err := reg.VersionOf("response_generation")
	require.NoError(t, err)
	assert.Equal(t, "2.0.0", v)

	_, err = reg.VersionOf("missing")
	assert.True(t, errs.IsKind(err, errs.KindNotFound))

	assert.Equal(t, map[string]string{
		"summarization":       "1.0.0",
		"response_generation": "2.0.0",
	}, reg.Versions())
}
