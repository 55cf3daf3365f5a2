package content

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// sentenceEnds are the runes after which a hard-wrapped line is allowed to end
// a paragraph.
const sentenceEnds = "。！？…!?.;；:：”」』\"'）)】"

// dialogueOpens start a new paragraph when found after a sentence end inside
// a long paragraph.
const dialogueOpens = "“「『"

// longParagraph is the rune count above which a paragraph is split at
// dialogue boundaries.
const longParagraph = 200

// ReSegment re-flows scraped text into paragraphs. Lines broken in the middle
// of a sentence are joined, lines repeating the chapter title are dropped,
// and long paragraphs are split where a quoted utterance begins.
func ReSegment(text, title string) string {
	title = strings.TrimSpace(title)
	var paragraphs []string
	var cur strings.Builder

	flush := func() {
		if cur.Len() > 0 {
			paragraphs = append(paragraphs, splitDialogue(cur.String())...)
			cur.Reset()
		}
	}

	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimFunc(line, isPad)
		if line == "" {
			flush()
			continue
		}
		if title != "" && line == title && len(paragraphs) == 0 && cur.Len() == 0 {
			continue
		}
		cur.WriteString(line)
		if endsSentence(line) {
			flush()
		}
	}
	flush()

	return strings.Join(paragraphs, "\n")
}

func isPad(r rune) bool {
	return r <= 0x20 || r == '　' || r == '\u00a0'
}

func endsSentence(line string) bool {
	r, _ := utf8.DecodeLastRuneInString(line)
	return strings.ContainsRune(sentenceEnds, r)
}

// splitDialogue breaks a long paragraph before each opening quote that
// follows a sentence end.
func splitDialogue(p string) []string {
	if utf8.RuneCountInString(p) <= longParagraph {
		return []string{p}
	}
	var out []string
	runes := []rune(p)
	start := 0
	for i := 1; i < len(runes); i++ {
		if !strings.ContainsRune(dialogueOpens, runes[i]) {
			continue
		}
		prev := runes[i-1]
		if strings.ContainsRune(sentenceEnds, prev) || unicode.IsSpace(prev) {
			if seg := strings.TrimSpace(string(runes[start:i])); seg != "" {
				out = append(out, seg)
			}
			start = i
		}
	}
	if seg := strings.TrimSpace(string(runes[start:])); seg != "" {
		out = append(out, seg)
	}
	return out
}
