// Package chunker implements deterministic, size-bounded, overlap-preserving,
// sentence-aware text splitting (spec §4.1).
package chunker

import (
	"regexp"
	"strings"
)

var (
	whitespaceRun  = regexp.MustCompile(`\s+`)
	sentenceBreak  = regexp.MustCompile(`[.!?](\s+|$)`)
	tokenBoundary  = regexp.MustCompile(`\s+`)
)

// Unit is one emitted chunk of text together with its position in the
// normalized source.
type Unit struct {
	Text  string
	Index int
}

// Chunker splits normalized text into size-bounded, overlap-preserving units.
type Chunker interface {
	Split(text string, chunkSize, overlap int) ([]Unit, error)
}

// SentenceChunker is the reference Chunker: it normalizes whitespace, splits
// on sentence terminators with a trailing-whitespace lookahead, and falls
// back to token-level splitting when a single sentence alone would exceed
// chunkSize.
type SentenceChunker struct{}

func New() *SentenceChunker { return &SentenceChunker{} }

// Split implements Chunker. Preconditions: chunkSize > 0, 0 <= overlap <
// chunkSize; violations return an error rather than panicking, since these
// are caller bugs, not data conditions.
func (c *SentenceChunker) Split(text string, chunkSize, overlap int) ([]Unit, error) {
	if chunkSize <= 0 {
		return nil, errInvalidChunkSize
	}
	if overlap < 0 || overlap >= chunkSize {
		return nil, errInvalidOverlap
	}

	normalized := strings.TrimSpace(whitespaceRun.ReplaceAllString(text, " "))
	if normalized == "" {
		return nil, nil
	}

	sentences := splitSentences(normalized)

	var units []Unit
	var buf strings.Builder

	flush := func() {
		s := strings.TrimSpace(buf.String())
		if s == "" {
			return
		}
		units = append(units, Unit{Text: s, Index: len(units)})
	}

	for _, sentence := range sentences {
		if buf.Len() == 0 {
			appendSentenceOrTokens(&buf, &units, sentence, chunkSize)
			continue
		}
		candidateLen := buf.Len() + 1 + len(sentence)
		if candidateLen <= chunkSize {
			buf.WriteByte(' ')
			buf.WriteString(sentence)
			continue
		}
		full := buf.String()
		flush()
		buf.Reset()
		buf.WriteString(carryOverlap(full, overlap))
		if buf.Len() > 0 {
			buf.WriteByte(' ')
		}
		appendSentenceOrTokens(&buf, &units, sentence, chunkSize)
	}
	flush()

	return units, nil
}

// appendSentenceOrTokens writes sentence into buf, or — if the sentence
// alone exceeds chunkSize — flushes buf and emits the sentence split at
// token boundaries. A piece exceeds chunkSize only when it is a single token
// longer than chunkSize (see splitTokens).
func appendSentenceOrTokens(buf *strings.Builder, units *[]Unit, sentence string, chunkSize int) {
	if len(sentence) <= chunkSize {
		buf.WriteString(sentence)
		return
	}
	if buf.Len() > 0 {
		s := strings.TrimSpace(buf.String())
		if s != "" {
			*units = append(*units, Unit{Text: s, Index: len(*units)})
		}
		buf.Reset()
	}
	for _, tok := range splitTokens(sentence, chunkSize) {
		*units = append(*units, Unit{Text: tok, Index: len(*units)})
	}
}

// splitTokens breaks an over-long sentence into whitespace-bounded pieces no
// longer than chunkSize; if even a single token exceeds chunkSize it is
// emitted whole (chunkSize=1 with multi-character tokens is the documented
// boundary case).
func splitTokens(sentence string, chunkSize int) []string {
	words := tokenBoundary.Split(sentence, -1)
	var out []string
	var cur strings.Builder
	for _, w := range words {
		if w == "" {
			continue
		}
		if cur.Len() == 0 {
			cur.WriteString(w)
			continue
		}
		if cur.Len()+1+len(w) <= chunkSize {
			cur.WriteByte(' ')
			cur.WriteString(w)
			continue
		}
		out = append(out, cur.String())
		cur.Reset()
		cur.WriteString(w)
	}
	if cur.Len() > 0 {
		out = append(out, cur.String())
	}
	return out
}

// carryOverlap returns the last complete sentence contained within the
// trailing overlap characters of full, or — if no sentence boundary is found
// in that window — the trailing overlap characters verbatim.
func carryOverlap(full string, overlap int) string {
	if overlap == 0 || full == "" {
		return ""
	}
	start := len(full) - overlap
	if start < 0 {
		start = 0
	}
	window := full[start:]

	locs := sentenceBreak.FindAllStringIndex(window, -1)
	if len(locs) > 0 {
		last := locs[len(locs)-1]
		tail := strings.TrimSpace(window[last[1]:])
		if tail != "" {
			return tail
		}
	}
	return strings.TrimSpace(window)
}

func splitSentences(text string) []string {
	locs := sentenceBreak.FindAllStringIndex(text, -1)
	if len(locs) == 0 {
		return []string{text}
	}
	var out []string
	start := 0
	for _, loc := range locs {
		out = append(out, strings.TrimSpace(text[start:loc[0]+1]))
		start = loc[1]
	}
	if rest := strings.TrimSpace(text[start:]); rest != "" {
		out = append(out, rest)
	}
	return out
}
