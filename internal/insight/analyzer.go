package insight

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"math"
	"strings"
	"time"

	"github.com/joelkehle/painradar/internal/painpoint"
)

const maxAnalyzeAttempts = 3

// placeholderUnknown is the marker used wherever the analysis could not
// produce a real value. The priority scorer recognizes it and does not count
// it as evidence.
const placeholderUnknown = "需要进一步调研"

const analysisPromptContext = `You are given a cluster of social-media texts that all voice a similar
complaint, question, or need around the given search keywords. Produce a deep
analysis of the underlying pain point:

PAIN_STATEMENT
  One sentence naming the concrete unmet need, in the voice of the user.

PAID_INTEREST (High|Medium|Low)
  How likely these users are to pay for a solution. High only when texts show
  active search for alternatives, money already spent, or strong frustration
  with existing paid options.

PAIN_DEPTH
  emotional_intensity is 0-5: 5 means anger/desperation, 0 means idle
  curiosity. Describe how often the pain recurs and what workaround users
  currently rely on.

MARKET_LANDSCAPE
  market_size_score is your 0-5 estimate of the addressable market for a
  solution, independent of this sample. List existing solutions users mention
  or that you know serve this need, and the gap they leave open.

MVP_PLAN
  The smallest product that would relieve the pain: one core feature, one
  acquisition channel, a pricing model, and the very first step to validate.

RELEVANCE
  score is 0-100: how well this cluster actually matches the search keywords,
  with a one-line reason.

Be conservative with scores. Write every free-text field in the same language
as the source texts.`

const analysisSchemaPrompt = `Required JSON schema:
{
  "pain_statement":"string",
  "paid_interest":"High|Medium|Low",
  "rationale":"string",
  "product_concept":"string",
  "pain_depth":{"emotional_intensity":0-5,"frequency":"string","current_workaround":"string"},
  "market_landscape":{"market_size_score":0-5,"existing_solutions":["string"],"gaps":"string"},
  "mvp_plan":{"core_feature":"string","channel":"string","pricing_model":"string","first_step":"string"},
  "relevance":{"score":0-100,"reason":"string"}
}`

// ClusterInput is everything the analyzer needs about one cluster.
type ClusterInput struct {
	Texts      []string // representative texts, already capped by the caller
	Keywords   []string
	SampleSize int // total texts collected in the run, for context
}

// Analyzer produces one AnalysisPayload per cluster. It retries transient
// transport failures and malformed output, and past that synthesizes a
// degraded payload instead of failing: one bad cluster must never sink a run.
type Analyzer struct {
	caller LLMCaller
	sleep  func(time.Duration)
}

func NewAnalyzer(caller LLMCaller) *Analyzer {
	return &Analyzer{caller: caller, sleep: time.Sleep}
}

// Analyze returns a fully populated payload. Degraded is set when the
// payload had to be synthesized from placeholders.
func (a *Analyzer) Analyze(ctx context.Context, in ClusterInput) painpoint.AnalysisPayload {
	if a.caller == nil {
		return DegradedPayload(in)
	}

	prompt := buildPrompt(in)
	feedback := ""
	for attempt := 1; attempt <= maxAnalyzeAttempts; attempt++ {
		fullPrompt := prompt + "\n\nRespond with only valid JSON matching the schema."
		if feedback != "" {
			fullPrompt += "\n\n" + feedback
		}

		raw, err := a.caller.GenerateJSON(ctx, fullPrompt)
		if err != nil {
			if retryable(classifyTransportError(err)) && attempt < maxAnalyzeAttempts {
				a.sleep(backoffDelay(attempt))
				continue
			}
			log.Printf("cluster analysis transport failure after %d attempt(s): %v", attempt, err)
			return DegradedPayload(in)
		}

		raw = strings.TrimSpace(raw)
		if raw == "" {
			feedback = "Your previous response was empty. Respond with valid JSON."
			continue
		}

		var payload painpoint.AnalysisPayload
		if err := json.Unmarshal([]byte(stripCodeFences(raw)), &payload); err != nil {
			feedback = "Your previous response was not valid JSON. Respond with only valid JSON."
			continue
		}
		sanitize(&payload, in)
		return payload
	}

	log.Printf("cluster analysis produced no usable JSON after %d attempts", maxAnalyzeAttempts)
	return DegradedPayload(in)
}

func buildPrompt(in ClusterInput) string {
	var sb strings.Builder
	sb.WriteString(analysisPromptContext)
	sb.WriteString("\n\nSearch keywords: ")
	sb.WriteString(strings.Join(in.Keywords, ", "))
	fmt.Fprintf(&sb, "\nTotal texts collected in this run: %d\n", in.SampleSize)
	fmt.Fprintf(&sb, "\nCluster texts (%d shown):\n", len(in.Texts))
	for i, t := range in.Texts {
		fmt.Fprintf(&sb, "%d. %s\n", i+1, t)
	}
	sb.WriteString("\n")
	sb.WriteString(analysisSchemaPrompt)
	return sb.String()
}

// DegradedPayload is the documented placeholder payload used when analysis
// fails outright. Every field is populated so downstream scoring and
// rendering never see a hole.
func DegradedPayload(in ClusterInput) painpoint.AnalysisPayload {
	p := painpoint.AnalysisPayload{
		PainStatement: fallbackStatement(in),
		Rationale:     "分析服务不可用，以下为默认评估",
		Degraded:      true,
	}
	sanitize(&p, in)
	p.Degraded = true
	return p
}

// sanitize fills missing or out-of-range fields with neutral defaults so a
// decoded payload is always complete.
func sanitize(p *painpoint.AnalysisPayload, in ClusterInput) {
	if strings.TrimSpace(p.PainStatement) == "" {
		p.PainStatement = fallbackStatement(in)
	}
	p.PaidInterest = normalizePaidInterest(p.PaidInterest)
	if strings.TrimSpace(p.Rationale) == "" {
		p.Rationale = placeholderUnknown
	}
	if strings.TrimSpace(p.ProductConcept) == "" {
		p.ProductConcept = placeholderUnknown
	}

	if p.PainDepth == nil {
		p.PainDepth = &painpoint.PainDepth{EmotionalIntensity: 2.5}
	}
	p.PainDepth.EmotionalIntensity = sanitizeScore(p.PainDepth.EmotionalIntensity, 5, 2.5)
	if p.PainDepth.Frequency == "" {
		p.PainDepth.Frequency = placeholderUnknown
	}
	if p.PainDepth.CurrentWorkaround == "" {
		p.PainDepth.CurrentWorkaround = placeholderUnknown
	}

	if p.MarketLandscape == nil {
		p.MarketLandscape = &painpoint.MarketLandscape{MarketSizeScore: 2.5}
	}
	p.MarketLandscape.MarketSizeScore = sanitizeScore(p.MarketLandscape.MarketSizeScore, 5, 2.5)
	if len(p.MarketLandscape.ExistingSolutions) == 0 {
		p.MarketLandscape.ExistingSolutions = []string{placeholderUnknown}
	}
	if p.MarketLandscape.Gaps == "" {
		p.MarketLandscape.Gaps = placeholderUnknown
	}

	if p.MVPPlan == nil {
		p.MVPPlan = &painpoint.MVPPlan{}
	}
	for _, f := range []*string{&p.MVPPlan.CoreFeature, &p.MVPPlan.Channel, &p.MVPPlan.PricingModel, &p.MVPPlan.FirstStep} {
		if *f == "" {
			*f = placeholderUnknown
		}
	}

	if p.Relevance == nil {
		p.Relevance = &painpoint.Relevance{Score: 50}
	}
	p.Relevance.Score = sanitizeScore(p.Relevance.Score, 100, 50)
	if p.Relevance.Reason == "" {
		p.Relevance.Reason = placeholderUnknown
	}
}

func normalizePaidInterest(v painpoint.PaidInterest) painpoint.PaidInterest {
	switch strings.ToLower(strings.TrimSpace(string(v))) {
	case "high", "高":
		return painpoint.PaidInterestHigh
	case "low", "低":
		return painpoint.PaidInterestLow
	case "medium", "中":
		return painpoint.PaidInterestMedium
	default:
		return painpoint.PaidInterestMedium
	}
}

func sanitizeScore(v, max, fallback float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 || v > max {
		return fallback
	}
	return v
}

func fallbackStatement(in ClusterInput) string {
	if len(in.Texts) > 0 {
		return truncateRunes(strings.TrimSpace(in.Texts[0]), 80)
	}
	return placeholderUnknown
}

func truncateRunes(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "…"
}
