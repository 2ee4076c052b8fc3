package service

import (
	"regexp"
	"strings"
)

const sentencesPerParagraph = 3

var (
	transitionCues = []string{"además", "por otro lado", "también", "asimismo", "finalmente"}
	listPattern    = regexp.MustCompile(`\d+\.\s|[-•]\s`)
)

// FormatAnswer splits a generated answer into paragraphs of at most three
// sentences, breaking early after transition words, and bolds "heading: body"
// paragraphs.
func FormatAnswer(raw string) string {
	if raw == "" {
		return raw
	}

	pieces := strings.Split(strings.TrimSpace(raw), ". ")
	var sentences []string
	for i, piece := range pieces {
		s := strings.TrimSpace(piece)
		if s == "" {
			continue
		}
		if i < len(pieces)-1 && !strings.HasSuffix(s, ".") {
			s += "."
		}
		sentences = append(sentences, s)
	}

	var (
		paragraphs []string
		current    []string
	)
	for _, s := range sentences {
		current = append(current, s)
		if len(current) >= sentencesPerParagraph || hasTransitionCue(s) {
			paragraphs = append(paragraphs, strings.Join(current, " "))
			current = nil
		}
	}
	if len(current) > 0 {
		paragraphs = append(paragraphs, strings.Join(current, " "))
	}

	for i, p := range paragraphs {
		paragraphs[i] = formatParagraph(p)
	}
	return strings.Join(paragraphs, "\n\n")
}

func hasTransitionCue(sentence string) bool {
	lower := strings.ToLower(sentence)
	for _, cue := range transitionCues {
		if strings.Contains(lower, cue) {
			return true
		}
	}
	return false
}

func formatParagraph(p string) string {
	if listPattern.MatchString(p) {
		return p
	}
	if strings.Count(p, ":") != 1 {
		return p
	}
	head, body, _ := strings.Cut(p, ":")
	head, body = strings.TrimSpace(head), strings.TrimSpace(body)
	if head == "" || body == "" {
		return p
	}
	return "**" + head + ":**\n" + body
}
