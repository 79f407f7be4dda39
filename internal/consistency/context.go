package consistency

import (
	"fmt"
	"strings"

	"github.com/bytefield-ai/chronicle/internal/model"
)

// BuildContextInjection renders channel history into a prompt block the
// miner appends to its system instructions. Jargon is grouped by domain and
// prior claims by topic so the model reads related context together. An
// empty history renders to the empty string so the miner prompt stays
// unchanged for new channels.
func BuildContextInjection(history *model.ChannelHistory) string {
	if history == nil || history.Empty() {
		return ""
	}

	var b strings.Builder
	b.WriteString("## Channel context\n\n")
	b.WriteString("This channel has prior episodes. Use the context below to keep terminology consistent and to phrase claims so they are comparable with earlier ones. Do not suppress a claim merely because it resembles a prior one.\n")

	if len(history.Jargon) > 0 {
		b.WriteString("\n### Established terminology\n")
		b.WriteString("Reuse these definitions verbatim when the same term appears:\n")
		domains := make([]string, len(history.Jargon))
		for i, j := range history.Jargon {
			domains[i] = j.Domain
		}
		for _, domain := range groupOrder(domains) {
			fmt.Fprintf(&b, "\n%s:\n", headingOr(domain, "general"))
			for _, j := range history.Jargon {
				if j.Domain == domain {
					fmt.Fprintf(&b, "- %s: %s\n", j.Term, j.Definition)
				}
			}
		}
	}

	if len(history.Claims) > 0 {
		b.WriteString("\n### Prior claims from this channel\n")
		b.WriteString("If a new statement updates, refines, or contradicts one of these, extract it anyway; downstream stages track evolution:\n")
		topics := make([]string, len(history.Claims))
		for i, c := range history.Claims {
			topics[i] = c.Topic
		}
		for _, topic := range groupOrder(topics) {
			fmt.Fprintf(&b, "\n%s:\n", headingOr(topic, "uncategorized"))
			for _, c := range history.Claims {
				if c.Topic == topic {
					fmt.Fprintf(&b, "- %s\n", c.Text)
				}
			}
		}
	}

	return b.String()
}

// groupOrder returns the distinct keys in first-appearance order, keeping
// the rendered block deterministic for a given history.
func groupOrder(keys []string) []string {
	seen := make(map[string]bool, len(keys))
	var out []string
	for _, k := range keys {
		if !seen[k] {
			seen[k] = true
			out = append(out, k)
		}
	}
	return out
}

func headingOr(key, fallback string) string {
	if key == "" {
		return fallback
	}
	return key
}
