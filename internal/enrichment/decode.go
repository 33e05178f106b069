package enrichment

import (
	"encoding/json"
	"strings"

	"github.com/rs/zerolog/log"
)

const fence = "```"

// ExtractText returns choices[0].message.content. A missing or mistyped
// level, or empty content, is logged and reported as false.
func ExtractText(env Envelope) (string, bool) {
	choices, ok := env["choices"].([]any)
	if !ok || len(choices) == 0 {
		log.Error().RawJSON("envelope", env.Raw()).Msg("unexpected response format: no choices")
		return "", false
	}
	first, ok := choices[0].(map[string]any)
	if !ok {
		log.Error().RawJSON("envelope", env.Raw()).Msg("unexpected response format: choice is not an object")
		return "", false
	}
	message, ok := first["message"].(map[string]any)
	if !ok {
		log.Error().RawJSON("envelope", env.Raw()).Msg("unexpected response format: no message")
		return "", false
	}
	content, ok := message["content"].(string)
	if !ok || strings.TrimSpace(content) == "" {
		log.Error().RawJSON("envelope", env.Raw()).Msg("unexpected response format: empty message content")
		return "", false
	}
	return content, true
}

// TotalTokens returns usage.total_tokens, or nil when the envelope has none.
func TotalTokens(env Envelope) *int {
	usage, ok := env["usage"].(map[string]any)
	if !ok {
		return nil
	}
	n, ok := usage["total_tokens"].(float64)
	if !ok {
		return nil
	}
	v := int(n)
	return &v
}

// DecodeJSON parses model output as a JSON object, removing a surrounding
// markdown fence first when both the opening and closing fence are present.
func DecodeJSON(text string) (map[string]any, bool) {
	var payload map[string]any
	if err := json.Unmarshal([]byte(stripFence(text)), &payload); err != nil || payload == nil {
		log.Error().Err(err).Str("content", text).Msg("model response is not a JSON object")
		return nil, false
	}
	return payload, true
}

func stripFence(text string) string {
	s := strings.TrimSpace(text)
	if len(s) < 2*len(fence) || !strings.HasPrefix(s, fence) || !strings.HasSuffix(s, fence) {
		return s
	}
	s = s[len(fence) : len(s)-len(fence)]

	// Drop an info string such as ```json on the opening line.
	if nl := strings.IndexByte(s, '\n'); nl >= 0 && !strings.ContainsAny(s[:nl], "{[") {
		s = s[nl+1:]
	} else if len(s) >= 4 && strings.EqualFold(s[:4], "json") {
		s = s[4:]
	}
	return strings.TrimSpace(s)
}

// firstPresent returns the first key whose value is a non-blank string.
func firstPresent(payload map[string]any, keys ...string) string {
	for _, k := range keys {
		if v, ok := payload[k].(string); ok && strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v)
		}
	}
	return ""
}
