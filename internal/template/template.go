// Package template renders Go template strings against manifest vars and
// host facts. Steps use {{ .vars.xxx }} and {{ .facts.xxx }} syntax in any
// string field; included bundles additionally see {{ .params.xxx }}.
// Referencing an undeclared variable is an error at load time, before any
// step touches the host.
package template

import (
	"bytes"
	"fmt"
	"text/template"

	"gopkg.in/yaml.v3"

	"github.com/hostforge/hostforge/internal/config"
)

// Render executes the Go template string s with data as the data object.
func Render(s string, data map[string]any) (string, error) {
	t, err := template.New("").Option("missingkey=error").Parse(s)
	if err != nil {
		return "", fmt.Errorf("parse template %q: %w", s, err)
	}
	var buf bytes.Buffer
	if err := t.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("execute template %q: %w", s, err)
	}
	return buf.String(), nil
}

// RenderStep renders all string fields of step that may contain template
// expressions. It marshals the step to YAML, renders the resulting string,
// then unmarshals back; this covers every string field without explicit
// enumeration.
func RenderStep(step config.Step, data map[string]any) (config.Step, error) {
	if len(data) == 0 {
		return step, nil
	}

	raw, err := yaml.Marshal(step)
	if err != nil {
		return step, fmt.Errorf("marshal step for rendering: %w", err)
	}

	rendered, err := Render(string(raw), data)
	if err != nil {
		return step, fmt.Errorf("render step %q: %w", step.Name, err)
	}

	var result config.Step
	if err := yaml.Unmarshal([]byte(rendered), &result); err != nil {
		return step, fmt.Errorf("unmarshal rendered step %q: %w", step.Name, err)
	}
	return result, nil
}

// RenderSteps renders a slice of steps with shared data.
func RenderSteps(steps []config.Step, data map[string]any) ([]config.Step, error) {
	out := make([]config.Step, 0, len(steps))
	for _, s := range steps {
		rendered, err := RenderStep(s, data)
		if err != nil {
			return nil, err
		}
		out = append(out, rendered)
	}
	return out, nil
}
