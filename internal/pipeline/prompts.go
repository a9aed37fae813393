package pipeline

import (
	"strings"
	"unicode/utf8"

	"paperforge/internal/models"
)

const summarySystemPrompt = `You are an academic research assistant. Write for engineers who have not read the paper.`

const summaryPromptTemplate = `Analyze this research paper and provide:
1. A clear, concise summary (250-300 words)
2. 5-7 key points, under a line reading "Key Points:", one per line starting with "- "

Title: {{title}}

Content:
{{content}}`

const codeSystemPrompt = `You are an expert at translating academic research into practical coding projects. Respond with JSON only.`

const codePromptTemplate = `Based on this paper:
Title: {{title}}

Summary:
{{summary}}

Excerpt:
{{content}}

Generate 3 practical coding projects that implement ideas from this paper: a beginner, an intermediate and an advanced one.
Return a JSON array. Each element must have the keys "title", "description" (2-3 sentences), "difficulty" (Beginner, Intermediate or Advanced), "language", and "codeImplementation": an array of {"filename": string, "code": string} with 50-100 lines of code demonstrating the core idea.
Do not add explanations outside the JSON.`

const chatSystemPrompt = `You are a research assistant answering follow-up questions about a paper the user uploaded. Be accurate and concise. Say so when the paper does not answer the question.`

const chatPromptTemplate = `Paper: {{title}}

Summary:
{{summary}}

Excerpt:
{{content}}

Question:
{{question}}`

// summaryPlaceholder stands in for the not-yet-generated summary when the
// code prompt is estimated before any call.
const summaryPlaceholder = "[summary of the paper]"

func renderPrompt(tpl string, vars map[string]string) string {
	pairs := make([]string, 0, len(vars)*2)
	for k, v := range vars {
		pairs = append(pairs, "{{"+k+"}}", v)
	}
	return strings.NewReplacer(pairs...).Replace(tpl)
}

func summaryPrompt(p models.PaperContent, maxChars int) string {
	return renderPrompt(summaryPromptTemplate, map[string]string{
		"title":   strings.TrimSpace(p.Title),
		"content": truncateRunes(p.Content, maxChars),
	})
}

func codePrompt(p models.PaperContent, summary string, maxChars int) string {
	return renderPrompt(codePromptTemplate, map[string]string{
		"title":   strings.TrimSpace(p.Title),
		"summary": summary,
		"content": truncateRunes(p.Content, maxChars),
	})
}

func chatPrompt(p models.PaperContent, summary, question string, maxChars int) string {
	if strings.TrimSpace(summary) == "" {
		summary = "(no summary available)"
	}
	return renderPrompt(chatPromptTemplate, map[string]string{
		"title":    strings.TrimSpace(p.Title),
		"summary":  summary,
		"content":  truncateRunes(p.Content, maxChars),
		"question": strings.TrimSpace(question),
	})
}

// truncateRunes keeps at most n characters without splitting a UTF-8 sequence.
func truncateRunes(s string, n int) string {
	if n <= 0 || len(s) <= n {
		return s
	}
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	i := 0
	for pos := range s {
		if i == n {
			return s[:pos]
		}
		i++
	}
	return s
}
