package service

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

// DefaultMaxChunkSize bounds chunk length for knowledge ingestion.
const DefaultMaxChunkSize = 1000

var sentencePattern = regexp.MustCompile(`[^.!?]+[.!?]+`)

// ChunkText splits text into sentence-aligned chunks of at most maxChunkSize
// characters. Sentences are accumulated greedily; a single sentence longer
// than the limit is kept whole rather than truncated. Empty input yields an
// empty slice. Pure function, safe for concurrent use.
func ChunkText(text string, maxChunkSize int) []string {
	if strings.TrimSpace(text) == "" {
		return []string{}
	}
	if maxChunkSize <= 0 {
		maxChunkSize = DefaultMaxChunkSize
	}

	sentences := splitSentences(text)

	chunks := make([]string, 0, 4)
	current := ""
	for _, sentence := range sentences {
		if utf8.RuneCountInString(current+sentence) > maxChunkSize && len(current) > 0 {
			chunks = append(chunks, strings.TrimSpace(current))
			current = sentence
		} else {
			current += sentence
		}
	}

	if strings.TrimSpace(current) != "" {
		chunks = append(chunks, strings.TrimSpace(current))
	}

	return chunks
}

// splitSentences splits on `.`, `!`, `?` boundaries, keeping the punctuation
// with the preceding sentence. Text without terminal punctuation (or trailing
// after the last boundary) survives as a final sentence so nothing is lost.
func splitSentences(text string) []string {
	locs := sentencePattern.FindAllStringIndex(text, -1)
	if len(locs) == 0 {
		return []string{text}
	}

	sentences := make([]string, 0, len(locs)+1)
	for _, loc := range locs {
		sentences = append(sentences, text[loc[0]:loc[1]])
	}

	tail := text[locs[len(locs)-1][1]:]
	if strings.TrimSpace(tail) != "" {
		sentences = append(sentences, tail)
	}
	return sentences
}
