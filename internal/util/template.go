package util

import (
	"bytes"
	"fmt"
	"strings"
	"text/template"
)

// Prompt templates come from config files, so directives that pull in other
// templates or call functions are refused.
var forbiddenDirectives = []string{"{{call", "{{define", "{{template", "{{block"}

// ParseTemplate validates and parses a prompt template.
// Parsing once at startup surfaces template errors before the first request.
func ParseTemplate(name, tmpl string) (*template.Template, error) {
	compact := strings.ReplaceAll(tmpl, " ", "")
	for _, directive := range forbiddenDirectives {
		if strings.Contains(compact, directive) {
			return nil, fmt.Errorf("template %s contains forbidden directive: %s", name, directive)
		}
	}

	t, err := template.New(name).
		Option("missingkey=error").
		Parse(tmpl)
	if err != nil {
		return nil, fmt.Errorf("failed to parse template %s: %w", name, err)
	}
	return t, nil
}

// RenderTemplate parses and executes tmpl with data in one step
func RenderTemplate(tmpl string, data any) (string, error) {
	t, err := ParseTemplate("prompt", tmpl)
	if err != nil {
		return "", err
	}
	return Execute(t, data)
}

// Execute runs a parsed template and returns the rendered text
func Execute(t *template.Template, data any) (string, error) {
	var buf bytes.Buffer
	if err := t.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("failed to execute template %s: %w", t.Name(), err)
	}
	return buf.String(), nil
}

// TruncateString truncates a string to maxLen runes (Unicode-safe)
func TruncateString(s string, maxLen int) string {
	runes := []rune(s)
	if len(runes) <= maxLen {
		return s
	}
	return string(runes[:maxLen]) + "..."
}
