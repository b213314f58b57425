package config

import (
	"fmt"
	"net/url"
	"unicode"
	"unicode/utf8"

	"github.com/lamim/reportforge/internal/util"
)

const (
	// MaxTopicLength is the maximum allowed length for a request topic
	MaxTopicLength = 500

	// MaxQuestionLength is the maximum allowed length for a request question
	MaxQuestionLength = 4000

	// MaxModelNameLength is the maximum allowed length for model names
	MaxModelNameLength = 100

	// MaxTemplateSize is the maximum allowed size for template content
	MaxTemplateSize = 50 * 1024 // 50KB
)

// ValidateInputs performs additional validation on values that end up in
// outbound requests: the upstream URL, the model name and the templates.
func (c *Config) ValidateInputs() error {
	if err := validateBaseURL(c.Upstream.BaseURL); err != nil {
		return err
	}

	if err := validateModelName(c.Upstream.ModelName); err != nil {
		return err
	}

	return c.validateTemplates()
}

// ValidateTopic checks a request topic before it is rendered into a prompt
func ValidateTopic(topic string) error {
	return validateField("topic", topic, MaxTopicLength)
}

// ValidateQuestion checks a request question before it is rendered into a prompt
func ValidateQuestion(question string) error {
	return validateField("question", question, MaxQuestionLength)
}

func validateField(name, value string, maxLen int) error {
	if n := utf8.RuneCountInString(value); n > maxLen {
		return fmt.Errorf("%s exceeds maximum length of %d characters (got %d)", name, maxLen, n)
	}
	if containsControlChars(value) {
		return fmt.Errorf("%s contains invalid control characters", name)
	}
	return nil
}

// validateModelName checks model name for security issues
func validateModelName(modelName string) error {
	if len(modelName) > MaxModelNameLength {
		return fmt.Errorf("upstream.model_name exceeds maximum length of %d (got %d)",
			MaxModelNameLength, len(modelName))
	}
	if containsControlChars(modelName) {
		return fmt.Errorf("upstream.model_name contains invalid control characters")
	}
	return nil
}

// validateBaseURL checks that the base URL is properly formatted and safe
func validateBaseURL(baseURL string) error {
	u, err := url.Parse(baseURL)
	if err != nil {
		return fmt.Errorf("upstream.base_url is invalid: %w", err)
	}

	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("upstream.base_url must use http or https scheme (got %s)", u.Scheme)
	}

	if u.Host == "" {
		return fmt.Errorf("upstream.base_url must have a host")
	}

	return nil
}

// templateProbe has the fields prompt templates are executed with
type templateProbe struct {
	Topic    string
	Question string
}

// validateTemplates checks size limits and renders each template once,
// so unknown fields fail at load time
func (c *Config) validateTemplates() error {
	templates := []struct {
		name  string
		value string
	}{
		{"report", c.PromptTemplates.Report},
		{"chart", c.PromptTemplates.Chart},
	}

	for _, tmpl := range templates {
		if len(tmpl.value) > MaxTemplateSize {
			return fmt.Errorf("template '%s' exceeds maximum size of %d bytes (got %d)",
				tmpl.name, MaxTemplateSize, len(tmpl.value))
		}
		if _, err := util.RenderTemplate(tmpl.value, templateProbe{Topic: "topic", Question: "question"}); err != nil {
			return fmt.Errorf("prompt_templates.%s: %w", tmpl.name, err)
		}
	}

	return nil
}

// containsControlChars checks if a string contains control characters
// (excluding newlines, tabs, and carriage returns which are acceptable)
func containsControlChars(s string) bool {
	for _, r := range s {
		if unicode.IsControl(r) && r != '\n' && r != '\t' && r != '\r' {
			return true
		}
	}
	return false
}
