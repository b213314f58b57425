package util

import (
	"regexp"
	"strings"
)

// Matches <think>, <thinking> and <reasoning> blocks emitted by reasoning models.
// Some Chinese models use <思考> instead.
var (
	thinkTagRegex        = regexp.MustCompile(`(?i)<(?:think|thinking|reasoning)>[\s\S]*?</(?:think|thinking|reasoning)>`)
	chineseThinkTagRegex = regexp.MustCompile(`<思考>[\s\S]*?</思考>`)
)

// ContainsThinkTags reports whether the response carries a reasoning block
func ContainsThinkTags(response string) bool {
	return thinkTagRegex.MatchString(response) || chineseThinkTagRegex.MatchString(response)
}

// StripThinkTags removes reasoning blocks so only the final answer remains.
// Responses without reasoning blocks are returned unchanged.
func StripThinkTags(response string) string {
	if !ContainsThinkTags(response) {
		return response
	}
	result := thinkTagRegex.ReplaceAllString(response, "")
	result = chineseThinkTagRegex.ReplaceAllString(result, "")
	return strings.TrimSpace(result)
}
