package workflow

import (
	"fmt"
	"os"
	"strings"
	"text/template"

	"gopkg.in/yaml.v3"
)

const defaultGeneratorPrompt = `You are a principle engineer who has expertise in understanding code fast and to answer queries. With your expertise please answer this query: {{.Query}}`

const defaultGeneratorFeedbackPrompt = `Previous answer was marked as needing improvement.

Feedback: {{.Feedback}}

Original question: {{.Query}}

Please provide an improved, complete answer addressing the feedback.`

const defaultValidatorPrompt = `You are validating an answer about a codebase.

Question: {{.Query}}

Answer to validate:
{{.Answer}}

Instructions:
1. Check if the answer correctly addresses the question
2. Verify code references are accurate (if any)
3. Check for completeness

Respond with EXACTLY one of these formats:
- "VALID" - if the answer is correct and complete
- "INVALID: <specific issues>" - if there are factual errors
- "PARTIAL: <what's missing>" - if partially correct but incomplete

Start your response with VALID, INVALID, or PARTIAL.`

// PromptSet holds the templates the engine renders for each node. Templates
// use text/template syntax with .Query, .Feedback and .Answer fields.
type PromptSet struct {
	Generator         string `yaml:"generator"`
	GeneratorFeedback string `yaml:"generator_feedback"`
	Validator         string `yaml:"validator"`
}

type promptData struct {
	Query    string
	Feedback string
	Answer   string
}

// DefaultPromptSet returns the built-in templates.
func DefaultPromptSet() PromptSet {
	return PromptSet{
		Generator:         defaultGeneratorPrompt,
		GeneratorFeedback: defaultGeneratorFeedbackPrompt,
		Validator:         defaultValidatorPrompt,
	}
}

// LoadPromptSet reads template overrides from a YAML file. Fields left empty
// in the file keep their defaults. The merged set is validated before use so
// a broken override fails at startup, not mid-run.
func LoadPromptSet(path string) (PromptSet, error) {
	set := DefaultPromptSet()
	data, err := os.ReadFile(path)
	if err != nil {
		return set, fmt.Errorf("read prompts file: %w", err)
	}
	var override PromptSet
	if err := yaml.Unmarshal(data, &override); err != nil {
		return set, fmt.Errorf("parse prompts file %s: %w", path, err)
	}
	if override.Generator != "" {
		set.Generator = override.Generator
	}
	if override.GeneratorFeedback != "" {
		set.GeneratorFeedback = override.GeneratorFeedback
	}
	if override.Validator != "" {
		set.Validator = override.Validator
	}
	if err := set.Validate(); err != nil {
		return set, fmt.Errorf("prompts file %s: %w", path, err)
	}
	return set, nil
}

// Validate checks that every template parses and interpolates the fields its
// node depends on. A generator prompt that drops the query would send the
// model off to answer nothing in particular.
func (p PromptSet) Validate() error {
	checks := []struct {
		name    string
		tpl     string
		require []string
	}{
		{"generator", p.Generator, []string{"query"}},
		{"generator_feedback", p.GeneratorFeedback, []string{"query", "feedback"}},
		{"validator", p.Validator, []string{"query", "answer"}},
	}
	sentinel := promptData{
		Query:    "\x00query\x00",
		Feedback: "\x00feedback\x00",
		Answer:   "\x00answer\x00",
	}
	markers := map[string]string{
		"query":    sentinel.Query,
		"feedback": sentinel.Feedback,
		"answer":   sentinel.Answer,
	}
	for _, c := range checks {
		out, err := renderTemplate(c.name, c.tpl, sentinel)
		if err != nil {
			return err
		}
		for _, field := range c.require {
			if !strings.Contains(out, markers[field]) {
				return fmt.Errorf("template %s does not interpolate the %s field", c.name, field)
			}
		}
	}
	return nil
}

// RenderGenerator produces the generation prompt. A non-empty feedback
// switches to the revision template so the model sees what the validator
// rejected.
func (p PromptSet) RenderGenerator(query, feedback string) (string, error) {
	if feedback != "" {
		return renderTemplate("generator_feedback", p.GeneratorFeedback, promptData{Query: query, Feedback: feedback})
	}
	return renderTemplate("generator", p.Generator, promptData{Query: query})
}

// RenderValidator produces the validation prompt for an answer.
func (p PromptSet) RenderValidator(query, answer string) (string, error) {
	return renderTemplate("validator", p.Validator, promptData{Query: query, Answer: answer})
}

func renderTemplate(name, tpl string, data promptData) (string, error) {
	t, err := template.New(name).Parse(tpl)
	if err != nil {
		return "", fmt.Errorf("parse template %s: %w", name, err)
	}
	var b strings.Builder
	if err := t.Execute(&b, data); err != nil {
		return "", fmt.Errorf("render template %s: %w", name, err)
	}
	return b.String(), nil
}
