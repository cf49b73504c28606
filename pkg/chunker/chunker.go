// Package chunker splits extracted document text into overlapping
// windows for embedding, preferring semantic boundaries (paragraph,
// then sentence, then whitespace) over a hard character cut (C3).
package chunker

import (
	"regexp"
	"strings"
)

// Window is one chunk of source text together with its character span
// in the original (unmodified) text.
type Window struct {
	Text  string
	Start int
	End   int
}

var sentenceBoundary = regexp.MustCompile(`[.!?][\s"')\]]`)

// Split recursively divides text into windows of at most
// ceil(window*1.25) characters, each overlapping the next by roughly
// overlap characters, preferring to break at a paragraph boundary, then
// a sentence boundary, then whitespace, and only falling back to a hard
// cut when none of those exist within the window.
//
// Concatenating the returned windows' text with their overlaps trimmed
// reconstructs text exactly up to whitespace normalization. No window
// is empty.
func Split(text string, window, overlap int) []Window {
	if window <= 0 {
		window = 1000
	}
	if overlap < 0 || overlap >= window {
		overlap = 200
	}
	if text == "" {
		return nil
	}

	maxLen := window + window/4 // 1.25x target
	var windows []Window
	pos := 0
	n := len(text)

	for pos < n {
		end := pos + window
		if end >= n {
			end = n
		} else {
			end = findBoundary(text, pos, end, maxLen)
		}
		if end <= pos {
			end = pos + 1
		}

		windows = append(windows, Window{Text: text[pos:end], Start: pos, End: end})

		if end >= n {
			break
		}
		next := end - overlap
		if next <= pos {
			next = end
		}
		pos = next
	}
	return windows
}

// findBoundary looks for the best break point at or before softEnd
// (preferring paragraph > sentence > whitespace), falling back to a
// hard cut at hardEnd if nothing suitable is found.
func findBoundary(text string, start, softEnd, hardLimitOffset int) int {
	hardEnd := start + hardLimitOffset
	if hardEnd > len(text) {
		hardEnd = len(text)
	}
	if softEnd > hardEnd {
		softEnd = hardEnd
	}

	window := text[start:softEnd]

	if idx := strings.LastIndex(window, "\n\n"); idx > 0 {
		return start + idx + 2
	}

	if loc := lastSentenceBoundary(window); loc > 0 {
		return start + loc
	}

	if idx := strings.LastIndexAny(window, " \t\n"); idx > 0 {
		return start + idx + 1
	}

	// No semantic boundary within the soft window; search up to the
	// hard limit for at least whitespace before giving up to a hard cut.
	extended := text[start:hardEnd]
	if idx := strings.LastIndexAny(extended, " \t\n"); idx > softEnd-start {
		return start + idx + 1
	}
	return hardEnd
}

func lastSentenceBoundary(s string) int {
	matches := sentenceBoundary.FindAllStringIndex(s, -1)
	if len(matches) == 0 {
		return 0
	}
	last := matches[len(matches)-1]
	return last[0] + 2 // include the punctuation and the following space/quote
}

// Reconstruct rejoins windows produced by Split back into the original
// text, trimming each window's overlap with its predecessor. Used by
// tests to verify the reconstruction guarantee; not needed in the
// pipeline itself since windows carry their own Start/End spans.
func Reconstruct(windows []Window) string {
	var b strings.Builder
	pos := 0
	for _, w := range windows {
		if w.Start > pos {
			pos = w.Start
		}
		if w.End <= pos {
			continue
		}
		b.WriteString(w.Text[pos-w.Start:])
		pos = w.End
	}
	return b.String()
}
