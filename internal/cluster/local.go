package cluster

import (
	"context"
	"strings"
	"unicode"
)

// LocalClusterer is an in-process alternative to the external clustering
// service, used when no embedding service is configured. It clusters by
// token-set Jaccard similarity: cheap, deterministic, and good enough for
// short social-media texts. It implements Service so the gateway treats it
// like any other primary path.
type LocalClusterer struct {
	// Threshold is the minimum average similarity to join a cluster.
	Threshold float64
	// MinGroupSize is the smallest cluster kept without reassignment.
	MinGroupSize int
}

func NewLocalClusterer() *LocalClusterer {
	return &LocalClusterer{Threshold: 0.3, MinGroupSize: 2}
}

func (l *LocalClusterer) Cluster(_ context.Context, req Request) (Response, error) {
	groups := l.clusterTexts(req.Texts)
	resp := Response{Success: true, Clusters: groups, TotalClusters: len(groups)}
	for _, g := range groups {
		resp.TotalTexts += g.Size
	}
	return resp, nil
}

func (l *LocalClusterer) clusterTexts(texts []string) []Group {
	if len(texts) == 0 {
		return nil
	}
	threshold := l.Threshold
	if threshold <= 0 {
		threshold = 0.3
	}
	minSize := l.MinGroupSize
	if minSize <= 0 {
		minSize = 2
	}

	tokens := make([]map[string]struct{}, len(texts))
	for i, t := range texts {
		tokens[i] = tokenize(t)
	}

	// Greedy pass: each text joins the first cluster whose members it
	// matches on average, else starts a new one.
	type protoCluster struct {
		members []int
	}
	var protos []*protoCluster
	for i := range texts {
		placed := false
		for _, pc := range protos {
			if avgSimilarity(tokens, i, pc.members) >= threshold {
				pc.members = append(pc.members, i)
				placed = true
				break
			}
		}
		if !placed {
			protos = append(protos, &protoCluster{members: []int{i}})
		}
	}

	var valid []*protoCluster
	var orphans []int
	for _, pc := range protos {
		if len(pc.members) >= minSize {
			valid = append(valid, pc)
		} else {
			orphans = append(orphans, pc.members...)
		}
	}

	// Orphan reassignment: an undersized text moves to the valid cluster it
	// most resembles, provided the average similarity clears 80% of the
	// formation threshold; otherwise it stays a singleton.
	var singletons []int
	for _, idx := range orphans {
		bestCluster := -1
		bestSim := 0.0
		for ci, pc := range valid {
			if sim := avgSimilarity(tokens, idx, pc.members); sim > bestSim {
				bestSim = sim
				bestCluster = ci
			}
		}
		if bestCluster >= 0 && bestSim > threshold*0.8 {
			valid[bestCluster].members = append(valid[bestCluster].members, idx)
		} else {
			singletons = append(singletons, idx)
		}
	}

	groups := make([]Group, 0, len(valid)+len(singletons))
	for _, pc := range valid {
		g := Group{Size: len(pc.members)}
		for _, m := range pc.members {
			g.Texts = append(g.Texts, texts[m])
		}
		g.RepresentativeText = g.Texts[0]
		groups = append(groups, g)
	}
	for _, idx := range singletons {
		groups = append(groups, Group{
			RepresentativeText: texts[idx],
			Size:               1,
			Texts:              []string{texts[idx]},
		})
	}
	return groups
}

func avgSimilarity(tokens []map[string]struct{}, idx int, members []int) float64 {
	if len(members) == 0 {
		return 0
	}
	total := 0.0
	for _, m := range members {
		total += jaccard(tokens[idx], tokens[m])
	}
	return total / float64(len(members))
}

func jaccard(a, b map[string]struct{}) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	small, large := a, b
	if len(b) < len(a) {
		small, large = b, a
	}
	inter := 0
	for t := range small {
		if _, ok := large[t]; ok {
			inter++
		}
	}
	union := len(a) + len(b) - inter
	if union == 0 {
		return 0
	}
	return float64(inter) / float64(union)
}

// tokenize lowercases and splits a text into ASCII words plus CJK character
// bigrams. Bigrams keep short Chinese texts comparable without a segmenter.
func tokenize(text string) map[string]struct{} {
	tokens := map[string]struct{}{}
	var word []rune
	var prevCJK rune

	flush := func() {
		if len(word) > 0 {
			tokens[string(word)] = struct{}{}
			word = word[:0]
		}
	}

	for _, r := range strings.ToLower(text) {
		switch {
		case unicode.Is(unicode.Han, r):
			flush()
			if prevCJK != 0 {
				tokens[string([]rune{prevCJK, r})] = struct{}{}
			}
			tokens[string(r)] = struct{}{}
			prevCJK = r
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			word = append(word, r)
			prevCJK = 0
		default:
			flush()
			prevCJK = 0
		}
	}
	flush()
	return tokens
}
