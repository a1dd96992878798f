package cluster

import (
	"context"
	"log"
	"strings"

	"github.com/joelkehle/painradar/internal/painpoint"
)

// Config carries the clustering parameters forwarded to the service and the
// shaping rules applied to its output. Zero values get sensible defaults.
type Config struct {
	Eps          float64 // DBSCAN neighborhood radius
	MinSamples   int     // DBSCAN min_samples
	MinLength    int     // shortest text the service should keep
	MinGroupSize int     // groups below this are dropped
}

func (c Config) withDefaults() Config {
	if c.Eps <= 0 {
		c.Eps = 0.4
	}
	if c.MinSamples <= 0 {
		c.MinSamples = 2
	}
	if c.MinLength <= 0 {
		c.MinLength = 4
	}
	if c.MinGroupSize <= 0 {
		c.MinGroupSize = 2
	}
	return c
}

// keywordBuckets is the fallback vocabulary: a text lands in the first
// bucket whose marker it contains. Order is fixed so bucketing stays
// deterministic when a text matches several.
var keywordBuckets = []struct {
	name    string
	markers []string
}{
	{"price", []string{"价格", "贵", "便宜", "平替", "省钱", "price", "expensive", "cheap", "cost"}},
	{"quality", []string{"质量", "做工", "耐用", "quality", "broke", "durable"}},
	{"service", []string{"服务", "售后", "客服", "退款", "service", "support", "refund"}},
	{"function", []string{"功能", "配置", "参数", "function", "feature"}},
	{"usage", []string{"怎么", "如何", "使用", "用法", "教程", "how to", "how do", "usage", "tutorial"}},
	{"recommendation", []string{"推荐", "建议", "求", "recommend", "suggest", "which one"}},
	{"problem", []string{"问题", "坑", "麻烦", "bug", "报错", "闪退", "崩溃", "problem", "issue", "broken"}},
	{"effect", []string{"效果", "有用", "没用", "effect", "result", "works"}},
}

const catchAllBucket = "other"

// Gateway orchestrates the external clustering call and shapes the result
// into domain clusters. It never returns zero groups for non-empty input:
// service failure engages the keyword-bucket heuristic, and an empty
// heuristic result collapses to a single group holding everything.
type Gateway struct {
	svc Service
	cfg Config
}

func NewGateway(svc Service, cfg Config) *Gateway {
	return &Gateway{svc: svc, cfg: cfg.withDefaults()}
}

// Cluster groups one modality's texts. Callers cluster video-derived and
// comment-derived texts with two independent calls and concatenate, video
// groups first.
func (g *Gateway) Cluster(ctx context.Context, texts []string, modality painpoint.Modality) ([]painpoint.Cluster, bool) {
	if len(texts) == 0 {
		return nil, false
	}

	groups, err := g.serviceGroups(ctx, texts)
	degraded := false
	if err != nil || len(groups) == 0 {
		if err != nil {
			log.Printf("clustering service failed (%d texts, modality=%s): %v, engaging keyword fallback", len(texts), modality, err)
		}
		degraded = true
		groups = FallbackBuckets(texts, g.cfg.MinGroupSize)
	}
	if len(groups) == 0 {
		// Never zero groups for non-empty input.
		groups = []Group{{Size: len(texts), Texts: texts}}
	}

	clusters := make([]painpoint.Cluster, 0, len(groups))
	for _, grp := range groups {
		clusters = append(clusters, painpoint.Cluster{Modality: modality, Texts: grp.Texts})
	}
	return clusters, degraded
}

func (g *Gateway) serviceGroups(ctx context.Context, texts []string) ([]Group, error) {
	if g.svc == nil {
		return nil, errNoService
	}
	resp, err := g.svc.Cluster(ctx, Request{
		Texts:      texts,
		Eps:        g.cfg.Eps,
		MinSamples: g.cfg.MinSamples,
		MinLength:  g.cfg.MinLength,
	})
	if err != nil {
		return nil, err
	}
	if !resp.Success {
		return nil, errServiceReported{msg: resp.Error}
	}
	var kept []Group
	for _, grp := range resp.Clusters {
		if len(grp.Texts) >= g.cfg.MinGroupSize {
			kept = append(kept, grp)
		}
	}
	return kept, nil
}

// FallbackBuckets groups texts by presence of a fixed domain vocabulary.
// Texts matching nothing go to a catch-all bucket; buckets below minSize
// are discarded.
func FallbackBuckets(texts []string, minSize int) []Group {
	if minSize <= 0 {
		minSize = 2
	}
	byBucket := map[string][]string{}
	for _, t := range texts {
		byBucket[bucketFor(t)] = append(byBucket[bucketFor(t)], t)
	}

	var groups []Group
	for _, b := range keywordBuckets {
		if members := byBucket[b.name]; len(members) >= minSize {
			groups = append(groups, Group{Size: len(members), Texts: members})
		}
	}
	if members := byBucket[catchAllBucket]; len(members) >= minSize {
		groups = append(groups, Group{Size: len(members), Texts: members})
	}
	return groups
}

func bucketFor(text string) string {
	lower := strings.ToLower(text)
	for _, b := range keywordBuckets {
		for _, m := range b.markers {
			if strings.Contains(lower, m) {
				return b.name
			}
		}
	}
	return catchAllBucket
}

type errServiceReported struct{ msg string }

func (e errServiceReported) Error() string {
	if e.msg == "" {
		return "clustering service reported failure"
	}
	return "clustering service reported failure: " + e.msg
}

var errNoService = errServiceReported{msg: "no clustering service configured"}
