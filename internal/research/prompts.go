package research

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/scholarpipe/research-assistant/internal/domain"
	"github.com/scholarpipe/research-assistant/internal/llm"
)

// Prompt construction for the completion provider. Temperatures and token
// budgets differ per operation: synthesis favours precision, extension
// generation favours creativity.
const (
	synthesisSystem  = "You are a research paper summarizer. Be concise."
	extensionsSystem = "You are a research strategist. Propose innovative extensions."
	explainSystem    = "You are a concept explainer. Use simple language."
	checkPaperSystem = "You are a paper formatting checker. Be specific."

	// Truncation limits keep prompts inside the provider context window.
	abstractLimit  = 300
	contextLimit   = 1000
	explainCtxMax  = 200
	paperCheckMax  = 1500
	synthesisTemp  = 0.5
	extensionsTemp = 0.7
	explainTemp    = 0.6
	checkTemp      = 0.3
)

// papersText renders the retrieved papers into the text block shared by
// the synthesis and extension prompts.
func papersText(papers []domain.Paper) string {
	var b strings.Builder
	for i, p := range papers {
		if i > 0 {
			b.WriteString("\n\n")
		}
		fmt.Fprintf(&b, "Paper %d: %s\nAbstract: %s", i+1, p.Title, truncate(p.Abstract, abstractLimit))
	}
	return b.String()
}

// BuildSynthesisRequest builds the completion request that condenses the
// retrieved papers into a synthesis.
func BuildSynthesisRequest(papers []domain.Paper) llm.CompletionRequest {
	prompt := fmt.Sprintf(`Summarize these %d research papers concisely.

%s

For each paper, provide:
- Main finding (1 sentence)
- Method used (1 sentence)
- Significance (1 sentence)

Format: Paper 1: [summary], Paper 2: [summary], ...`, len(papers), papersText(papers))

	return llm.CompletionRequest{
		System:      synthesisSystem,
		Prompt:      prompt,
		MaxTokens:   1000,
		Temperature: synthesisTemp,
	}
}

// BuildExtensionsRequest builds the completion request that proposes
// future research directions from the same papers. It does not depend on
// the synthesis output, so both requests can run concurrently.
func BuildExtensionsRequest(papers []domain.Paper) llm.CompletionRequest {
	prompt := fmt.Sprintf(`Based on this research summary:

%s

Generate 3 future research directions. For each provide:
1. Title (brief)
2. Description (2 sentences)
3. Solution approach (1 sentence)
4. Difficulty (Easy/Medium/Hard)

Format clearly with numbers.`, truncate(papersText(papers), contextLimit))

	return llm.CompletionRequest{
		System:      extensionsSystem,
		Prompt:      prompt,
		MaxTokens:   800,
		Temperature: extensionsTemp,
	}
}

// BuildExplainRequest builds the completion request for explaining a
// concept in accessible terms. extraContext is optional.
func BuildExplainRequest(concept, extraContext string) llm.CompletionRequest {
	prompt := fmt.Sprintf(`Explain the concept '%s' in simple terms.

Include:
1. Simple definition (2 sentences)
2. Two concrete examples
3. One analogy
4. Why it matters

Max 200 words. Be clear and accessible.`, concept)

	if extraContext != "" {
		prompt += "\n\nContext: " + truncate(extraContext, explainCtxMax)
	}

	return llm.CompletionRequest{
		System:      explainSystem,
		Prompt:      prompt,
		MaxTokens:   500,
		Temperature: explainTemp,
	}
}

// BuildCheckPaperRequest builds the completion request that reviews a
// paper draft for formatting completeness.
func BuildCheckPaperRequest(title, content string) llm.CompletionRequest {
	prompt := fmt.Sprintf(`Review this research paper for formatting:

Title: %s

Content (preview):
%s

Check for:
1. Abstract (present/missing)
2. Introduction (present/missing)
3. Methodology (present/missing)
4. Results (present/missing)
5. Conclusion (present/missing)
6. References (present/missing)

Provide:
- Score (0-100)
- Missing sections
- 3 quick recommendations`, title, truncate(content, paperCheckMax))

	return llm.CompletionRequest{
		System:      checkPaperSystem,
		Prompt:      prompt,
		MaxTokens:   500,
		Temperature: checkTemp,
	}
}

// truncate limits s to at most n runes.
func truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}

// extensionItemRegex matches the start of a numbered list item, e.g.
// "1. Title" or "2) Cross-modal transfer".
var extensionItemRegex = regexp.MustCompile(`^(\d+)[.)]\s*(.*)$`)

// labelled field prefixes the model is asked to emit per extension.
var (
	titlePrefix       = "title:"
	descPrefix        = "description:"
	approachPrefix    = "approach:"
	solApproachPrefix = "solution approach:"
	difficultyPrefix  = "difficulty:"
)

// ParseExtensions parses the model's numbered extension list into
// structured records. Lines that do not match a labelled field are folded
// into the description. Items without a title are dropped. Difficulty
// defaults to medium when missing or unrecognized.
func ParseExtensions(text string) []domain.Extension {
	var extensions []domain.Extension
	var current *domain.Extension

	flush := func() {
		if current == nil {
			return
		}
		current.Title = strings.TrimSpace(current.Title)
		current.Description = strings.TrimSpace(current.Description)
		if current.Title != "" {
			extensions = append(extensions, *current)
		}
		current = nil
	}

	for _, raw := range strings.Split(text, "\n") {
		line := strings.TrimSpace(raw)
		if line == "" {
			continue
		}

		if m := extensionItemRegex.FindStringSubmatch(line); m != nil {
			flush()
			current = &domain.Extension{Difficulty: domain.DifficultyMedium}
			rest := cleanMarkup(m[2])
			if after, ok := cutPrefixFold(rest, titlePrefix); ok {
				rest = after
			}
			current.Title = strings.TrimSpace(rest)
			continue
		}

		if current == nil {
			continue
		}

		field := cleanMarkup(line)
		switch {
		case hasPrefixFold(field, titlePrefix):
			after, _ := cutPrefixFold(field, titlePrefix)
			current.Title = strings.TrimSpace(after)
		case hasPrefixFold(field, descPrefix):
			after, _ := cutPrefixFold(field, descPrefix)
			current.Description = strings.TrimSpace(after)
		case hasPrefixFold(field, solApproachPrefix):
			after, _ := cutPrefixFold(field, solApproachPrefix)
			current.Approach = strings.TrimSpace(after)
		case hasPrefixFold(field, approachPrefix):
			after, _ := cutPrefixFold(field, approachPrefix)
			current.Approach = strings.TrimSpace(after)
		case hasPrefixFold(field, difficultyPrefix):
			after, _ := cutPrefixFold(field, difficultyPrefix)
			current.Difficulty = parseDifficulty(after)
		default:
			if current.Description != "" {
				current.Description += " "
			}
			current.Description += field
		}
	}

	flush()
	return extensions
}

// cleanMarkup strips list bullets and markdown emphasis markers.
func cleanMarkup(s string) string {
	s = strings.TrimSpace(s)
	s = strings.TrimLeft(s, "-*• ")
	s = strings.ReplaceAll(s, "**", "")
	return strings.TrimSpace(s)
}

// hasPrefixFold reports whether s starts with prefix, case-insensitively.
func hasPrefixFold(s, prefix string) bool {
	return len(s) >= len(prefix) && strings.EqualFold(s[:len(prefix)], prefix)
}

// cutPrefixFold removes prefix from s case-insensitively.
func cutPrefixFold(s, prefix string) (string, bool) {
	if hasPrefixFold(s, prefix) {
		return s[len(prefix):], true
	}
	return s, false
}

// parseDifficulty maps free-form difficulty text to a known grade.
func parseDifficulty(s string) domain.Difficulty {
	lower := strings.ToLower(strings.TrimSpace(s))
	switch {
	case strings.Contains(lower, "easy"):
		return domain.DifficultyEasy
	case strings.Contains(lower, "hard"):
		return domain.DifficultyHard
	default:
		return domain.DifficultyMedium
	}
}
