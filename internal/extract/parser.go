package extract

import (
	"encoding/json"
	"fmt"
	"strings"
)

// ParseCandidates extracts a JSON array of candidates from an LLM response.
// The response may be wrapped in markdown code fences or prose.
func ParseCandidates(content string) ([]Candidate, error) {
	content = strings.TrimSpace(content)

	if strings.HasPrefix(content, "```") {
		lines := strings.Split(content, "\n")
		if len(lines) > 2 {
			content = strings.Join(lines[1:len(lines)-1], "\n")
		}
	}
	content = strings.TrimSpace(content)

	start := strings.Index(content, "[")
	end := strings.LastIndex(content, "]")
	if start < 0 || end < 0 || end <= start {
		return nil, fmt.Errorf("no JSON array found in response")
	}

	var candidates []Candidate
	if err := json.Unmarshal([]byte(content[start:end+1]), &candidates); err != nil {
		return nil, fmt.Errorf("unmarshal candidates: %w", err)
	}

	out := candidates[:0]
	for _, c := range candidates {
		if strings.TrimSpace(c.Content) == "" {
			continue
		}
		if c.Confidence <= 0 || c.Confidence > 1 {
			c.Confidence = 0.5
		}
		if c.Role != "user" && c.Role != "tool" {
			c.Role = "user"
		}
		out = append(out, c)
	}
	return out, nil
}
