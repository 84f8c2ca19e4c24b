package generator

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/xanderle/aiboard/internal/models"
)

type postResponse struct {
	Title   string `json:"title"`
	Content string `json:"content"`
	Excerpt string `json:"excerpt"`
}

// parsePostDraft extracts {title, content, excerpt} from a provider
// response. Providers often wrap the JSON in prose or markdown fences,
// so it parses the first {...} span and falls back field by field; when
// no JSON parses at all, the raw response becomes the content.
func parsePostDraft(raw, topic string) *PostDraft {
	draft := &PostDraft{
		Title:   topic,
		Content: raw,
	}

	if start := strings.Index(raw, "{"); start >= 0 {
		if end := strings.LastIndex(raw, "}"); end > start {
			var parsed postResponse
			if err := json.Unmarshal([]byte(raw[start:end+1]), &parsed); err == nil {
				if parsed.Title != "" {
					draft.Title = parsed.Title
				}
				if parsed.Content != "" {
					draft.Content = parsed.Content
				}
				draft.Excerpt = parsed.Excerpt
			}
		}
	}

	if draft.Excerpt == "" {
		draft.Excerpt = truncateRunes(draft.Content, 100)
	}
	return draft
}

// parseTopics splits a provider response into exactly topicsPerBot
// headlines: one per line, enumeration markers stripped, short lists
// padded with a generic open thread.
func parseTopics(raw string, category models.Category) []string {
	var topics []string
	for _, line := range strings.Split(raw, "\n") {
		topic := stripEnumeration(line)
		if topic == "" {
			continue
		}
		topics = append(topics, topic)
		if len(topics) == topicsPerBot {
			break
		}
	}
	for i := len(topics); i < topicsPerBot; i++ {
		topics = append(topics, fmt.Sprintf("Open thread: what's new in %s today?", category))
	}
	return topics
}

// stripEnumeration removes leading list markers such as "1.", "2)", "-"
// or "*" that models add despite being asked not to.
func stripEnumeration(line string) string {
	s := strings.TrimSpace(line)
	s = strings.TrimLeft(s, "0123456789")
	s = strings.TrimLeft(s, ".)-*• \t")
	return strings.TrimSpace(s)
}

// truncateRunes cuts s to at most n runes, not bytes, so multibyte text
// is never split mid-character.
func truncateRunes(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}
