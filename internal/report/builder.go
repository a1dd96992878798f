// Package report renders a finished analysis run as markdown and,
// optionally, as a print-quality PDF.
package report

import (
	"fmt"
	"strings"
	"time"

	"github.com/joelkehle/painradar/internal/painpoint"
)

// Header carries the run-level facts printed above the findings.
type Header struct {
	JobID        string
	Keywords     []string
	Source       string
	GeneratedAt  time.Time
	SampleSize   int
	QualityLevel string
	Degraded     bool
}

// BuildMarkdown renders the ranked findings of one run. Results are printed
// in the order given, which is the run's final ranking.
func BuildMarkdown(h Header, results []painpoint.AnalysisResult) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# Pain Point Mining Report\n\n")
	fmt.Fprintf(&b, "- Job: %s\n", h.JobID)
	fmt.Fprintf(&b, "- Keywords: %s\n", strings.Join(h.Keywords, ", "))
	if h.Source != "" {
		fmt.Fprintf(&b, "- Source: %s\n", h.Source)
	}
	if !h.GeneratedAt.IsZero() {
		fmt.Fprintf(&b, "- Date: %s\n", h.GeneratedAt.Format(time.RFC3339))
	}
	fmt.Fprintf(&b, "- Sample size: %d texts (%s)\n\n", h.SampleSize, qualityLabel(h.QualityLevel))

	if h.QualityLevel == string(painpoint.QualityExploratory) {
		fmt.Fprintf(&b, "> Small sample: treat these findings as leads to verify, not conclusions.\n\n")
	}
	if h.Degraded {
		fmt.Fprintf(&b, "> One or more pipeline stages fell back to heuristics during this run; some fields may hold default estimates.\n\n")
	}

	fmt.Fprintf(&b, "## Ranked Findings\n\n")
	if len(results) == 0 {
		fmt.Fprintf(&b, "No findings were produced by this run.\n")
		return b.String()
	}

	fmt.Fprintf(&b, "| # | Pain Point | Modality | Cluster Size | Overall | Level |\n")
	fmt.Fprintf(&b, "|---|-----------|----------|--------------|---------|-------|\n")
	for i, r := range results {
		overall, level := "-", "-"
		if r.Priority != nil {
			overall = fmt.Sprintf("%.1f", r.Priority.Overall)
			level = string(r.Priority.Level)
		}
		fmt.Fprintf(&b, "| %d | %s | %s | %d | %s | %s |\n",
			i+1, cellText(r.Analysis.PainStatement), r.Modality, r.ClusterSize, overall, level)
	}
	b.WriteString("\n")

	for i, r := range results {
		writeFinding(&b, i+1, r)
	}
	return b.String()
}

func writeFinding(b *strings.Builder, rank int, r painpoint.AnalysisResult) {
	a := r.Analysis
	fmt.Fprintf(b, "## Finding %d: %s\n\n", rank, strings.TrimSpace(a.PainStatement))
	if r.Priority != nil {
		fmt.Fprintf(b, "**Priority %.1f (%s)** — demand %.1f, market %.1f, competition %.1f\n\n",
			r.Priority.Overall, r.Priority.Level,
			r.Priority.DemandIntensity, r.Priority.MarketSize, r.Priority.Competition)
	}
	fmt.Fprintf(b, "- Paid interest: %s\n", a.PaidInterest)
	fmt.Fprintf(b, "- Rationale: %s\n", a.Rationale)
	fmt.Fprintf(b, "- Product concept: %s\n\n", a.ProductConcept)

	if a.PainDepth != nil {
		fmt.Fprintf(b, "### Pain Depth\n\n")
		fmt.Fprintf(b, "- Emotional intensity: %.1f / 5\n", a.PainDepth.EmotionalIntensity)
		fmt.Fprintf(b, "- Frequency: %s\n", a.PainDepth.Frequency)
		fmt.Fprintf(b, "- Current workaround: %s\n\n", a.PainDepth.CurrentWorkaround)
	}
	if a.MarketLandscape != nil {
		fmt.Fprintf(b, "### Market Landscape\n\n")
		fmt.Fprintf(b, "- Market size estimate: %.1f / 5\n", a.MarketLandscape.MarketSizeScore)
		fmt.Fprintf(b, "- Existing solutions: %s\n", strings.Join(a.MarketLandscape.ExistingSolutions, "; "))
		fmt.Fprintf(b, "- Gaps: %s\n\n", a.MarketLandscape.Gaps)
	}
	if a.MVPPlan != nil {
		fmt.Fprintf(b, "### MVP Plan\n\n")
		fmt.Fprintf(b, "- Core feature: %s\n", a.MVPPlan.CoreFeature)
		fmt.Fprintf(b, "- Channel: %s\n", a.MVPPlan.Channel)
		fmt.Fprintf(b, "- Pricing: %s\n", a.MVPPlan.PricingModel)
		fmt.Fprintf(b, "- First step: %s\n\n", a.MVPPlan.FirstStep)
	}
	if a.Relevance != nil {
		fmt.Fprintf(b, "### Keyword Relevance\n\n")
		fmt.Fprintf(b, "- Score: %.0f / 100 — %s\n\n", a.Relevance.Score, a.Relevance.Reason)
	}
	if len(r.Representatives) > 0 {
		fmt.Fprintf(b, "### Representative Voices\n\n")
		for _, t := range r.Representatives {
			fmt.Fprintf(b, "> %s\n>\n", cellText(t))
		}
		b.WriteString("\n")
	}
}

func qualityLabel(level string) string {
	switch painpoint.DataQualityLevel(level) {
	case painpoint.QualityReliable:
		return "reliable"
	case painpoint.QualityPreliminary:
		return "preliminary"
	case painpoint.QualityExploratory:
		return "exploratory"
	default:
		return "ungraded"
	}
}

// cellText keeps user text from breaking the markdown table or quote layout.
func cellText(s string) string {
	s = strings.ReplaceAll(s, "\n", " ")
	s = strings.ReplaceAll(s, "|", "\\|")
	return strings.TrimSpace(s)
}
