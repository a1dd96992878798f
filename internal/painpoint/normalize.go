package painpoint

import (
	"strings"
	"unicode/utf8"
)

// minTextRunes is the shortest text worth keeping after trimming. Social
// feeds are full of two-character reactions that carry no pain signal.
const minTextRunes = 6

// fillerPhrases are whole-text social reactions that survive the length
// filter but carry no analyzable content.
var fillerPhrases = map[string]struct{}{
	"哈哈哈哈哈哈": {},
	"太棒了太棒了": {},
	"冲冲冲冲冲冲": {},
	"yyds永远的神":  {},
	"first!":       {},
	"nice video":   {},
	"so cool!!":    {},
}

// Normalize trims whitespace, drops empty and near-empty strings, removes
// exact duplicates, and preserves first-seen order. It never fails; the
// worst case is an empty slice.
func Normalize(texts []string) []string {
	out := make([]string, 0, len(texts))
	seen := make(map[string]struct{}, len(texts))
	for _, t := range texts {
		t = strings.TrimSpace(t)
		if utf8.RuneCountInString(t) < minTextRunes {
			continue
		}
		if _, dup := seen[t]; dup {
			continue
		}
		if _, filler := fillerPhrases[strings.ToLower(t)]; filler {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	return out
}

// ItemTexts extracts the text column from raw items.
func ItemTexts(items []RawItem) []string {
	texts := make([]string, 0, len(items))
	for _, it := range items {
		texts = append(texts, it.Text)
	}
	return texts
}
