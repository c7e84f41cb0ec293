// Package prompts loads versioned prompt templates from a YAML file at
// process start. The registry is immutable after Load, so concurrent reads
// need no locking.
package prompts

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"mailscope-backend/pkg/errs"
)

// Template ids known to the application.
const (
	TemplateSummarization      = "summarization"
	TemplateResponse           = "response_generation"
	TemplateResponseFormal     = "response_generation_formal"
	TemplateResponseFriendly   = "response_generation_friendly"
	TemplateResponseUrgent     = "response_generation_urgent"
	TemplateResponseApologetic = "response_generation_apologetic"
)

// Template is one versioned prompt definition. Immutable after load.
type Template struct {
	ID                string
	Version           string
	RequiredVariables []string
	Text              string
}

type Registry struct {
	templates map[string]*Template

	maxTokensSummarization int
	maxTokensResponse      int
}

type fileFormat struct {
	Config struct {
		MaxTokensSummarization int `yaml:"max_tokens_summarization"`
		MaxTokensResponse      int `yaml:"max_tokens_response"`
	} `yaml:"config"`
	Prompts map[string]struct {
		CurrentVersion    string   `yaml:"current_version"`
		RequiredVariables []string `yaml:"required_variables"`
		Template          string   `yaml:"template"`
	} `yaml:"prompts"`
}

// Load reads and validates the prompts file. Called once at startup; a broken
// prompts file is a fatal configuration error.
func Load(path string) (*Registry, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read prompts file %s: %w", path, err)
	}

	var parsed fileFormat
	if err := yaml.Unmarshal(raw, &parsed); err != nil {
		return nil, fmt.Errorf("parse prompts file %s: %w", path, err)
	}
	if len(parsed.Prompts) == 0 {
		return nil, fmt.Errorf("prompts file %s defines no prompts", path)
	}

	reg := &Registry{
		templates:              make(map[string]*Template, len(parsed.Prompts)),
		maxTokensSummarization: parsed.Config.MaxTokensSummarization,
		maxTokensResponse:      parsed.Config.MaxTokensResponse,
	}
	if reg.maxTokensSummarization <= 0 {
		reg.maxTokensSummarization = 500
	}
	if reg.maxTokensResponse <= 0 {
		reg.maxTokensResponse = 300
	}

	for id, def := range parsed.Prompts {
		if def.CurrentVersion == "" {
			return nil, fmt.Errorf("prompt %q has no current_version", id)
		}
		if strings.TrimSpace(def.Template) == "" {
			return nil, fmt.Errorf("prompt %q has an empty template", id)
		}
		// A declared variable with no placeholder would silently render a
		// prompt missing its input; fail at load instead of at request time.
		for _, v := range def.RequiredVariables {
			if !strings.Contains(def.Template, placeholder(v)) {
				return nil, fmt.Errorf("prompt %q declares variable %q but the template has no {%s} placeholder", id, v, v)
			}
		}
		reg.templates[id] = &Template{
			ID:                id,
			Version:           def.CurrentVersion,
			RequiredVariables: def.RequiredVariables,
			Text:              def.Template,
		}
	}

	return reg, nil
}

// Get returns the template for id.
func (r *Registry) Get(id string) (*Template, error) {
	tpl, ok := r.templates[id]
	if !ok {
		return nil, errs.NotFound("prompts.Get", fmt.Errorf("unknown template %q", id))
	}
	return tpl, nil
}

// VersionOf returns the current version of the template with the given id.
func (r *Registry) VersionOf(id string) (string, error) {
	tpl, err := r.Get(id)
	if err != nil {
		return "", err
	}
	return tpl.Version, nil
}

// Has reports whether a template with the given id is registered.
func (r *Registry) Has(id string) bool {
	_, ok := r.templates[id]
	return ok
}

// Versions returns every template id mapped to its current version.
func (r *Registry) Versions() map[string]string {
	versions := make(map[string]string, len(r.templates))
	for id, tpl := range r.templates {
		versions[id] = tpl.Version
	}
	return versions
}

// Render substitutes the template's required variables from vars. Every
// required variable must be present; a missing one fails before any external
// call can be made with the half-rendered prompt.
func (r *Registry) Render(id string, vars map[string]string) (string, error) {
	tpl, err := r.Get(id)
	if err != nil {
		return "", err
	}

	for _, name := range tpl.RequiredVariables {
		if _, ok := vars[name]; !ok {
			return "", errs.Validation("prompts.Render", errs.ReasonMissingVariable,
				fmt.Errorf("template %q requires variable %q", id, name))
		}
	}

	pairs := make([]string, 0, 2*len(tpl.RequiredVariables))
	for _, name := range tpl.RequiredVariables {
		pairs = append(pairs, placeholder(name), vars[name])
	}
	return strings.NewReplacer(pairs...).Replace(tpl.Text), nil
}

// MaxSummaryTokens is the output budget for summarization calls.
func (r *Registry) MaxSummaryTokens() int { return r.maxTokensSummarization }

// MaxResponseTokens is the output budget for response generation calls.
func (r *Registry) MaxResponseTokens() int { return r.maxTokensResponse }

func placeholder(name string) string {
	return "{" + name + "}"
}
