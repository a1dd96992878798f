package painpoint

import (
	"sort"
	"strings"
	"unicode/utf8"
)

// painMarkers are lexical signals that a text describes a real pain point:
// questions, cost complaints, difficulty, unmet wishes. Mirrors the
// whitelist used by the clustering service's cleaner so both ends of the
// pipeline prefer the same texts.
var painMarkers = []string{
	"how to", "how do", "difficult", "expensive", "wish", "don't understand",
	"can't", "cannot", "annoying", "frustrat", "problem", "help",
	"怎么", "如何", "为什么", "难", "太难", "学不会", "搞不懂", "看不懂", "不懂", "不会",
	"贵", "便宜", "平替", "省钱", "坑", "踩坑", "避雷", "麻烦", "求", "希望",
	"后悔", "问题", "解决", "吐槽", "差评", "退款", "售后", "客服", "质量",
	"bug", "卡", "闪退", "崩溃", "报错",
}

// SelectRepresentatives picks up to maxCount diverse, high-signal texts from
// a cluster for downstream analysis. Clusters at or under the budget are
// returned unchanged in original order. Deterministic: scoring has no
// randomness and ties keep original order.
func SelectRepresentatives(texts []string, maxCount int) []string {
	if maxCount <= 0 {
		return nil
	}
	if len(texts) <= maxCount {
		out := make([]string, len(texts))
		copy(out, texts)
		return out
	}

	type scored struct {
		text  string
		score float64
	}
	ranked := make([]scored, len(texts))
	for i, t := range texts {
		ranked[i] = scored{text: t, score: representativeScore(t)}
	}
	sort.SliceStable(ranked, func(i, j int) bool { return ranked[i].score > ranked[j].score })

	out := make([]string, 0, maxCount)
	for _, r := range ranked[:maxCount] {
		out = append(out, r.text)
	}
	return out
}

func representativeScore(text string) float64 {
	score := 1.0

	switch n := utf8.RuneCountInString(text); {
	case n < 10:
		score -= 1.0
	case n >= 20 && n <= 100:
		score += 0.5
	case n > 200:
		score -= 0.3
	}

	lower := strings.ToLower(text)
	for _, marker := range painMarkers {
		if strings.Contains(lower, marker) {
			score += 2.0
			break
		}
	}

	if strings.ContainsAny(text, "?？") {
		score += 0.5
	}
	return score
}
