// Package painpoint holds the domain model and pure scoring logic for
// pain-point mining: raw social-media items, semantic clusters, per-cluster
// analysis payloads, priority scores, and run-level data quality grades.
package painpoint

// Modality distinguishes where a text came from. Video titles/descriptions
// and comments are clustered separately so the two styles never mix.
type Modality string

const (
	ModalityVideo   Modality = "video"
	ModalityComment Modality = "comment"
)

// RawItem is one text-bearing unit collected by a scraper. Immutable once
// captured.
type RawItem struct {
	Text        string   `json:"text"`
	Author      string   `json:"author,omitempty"`
	Likes       string   `json:"likes,omitempty"`
	CollectedAt string   `json:"collected_at,omitempty"`
	VideoRef    string   `json:"video_ref,omitempty"` // parent video URL/title for comments
	Modality    Modality `json:"modality"`
}

// Cluster is a group of semantically similar texts from one modality.
type Cluster struct {
	Modality Modality `json:"modality"`
	Texts    []string `json:"texts"`
}

func (c Cluster) Size() int { return len(c.Texts) }

type PaidInterest string

const (
	PaidInterestHigh   PaidInterest = "High"
	PaidInterestMedium PaidInterest = "Medium"
	PaidInterestLow    PaidInterest = "Low"
)

// PainDepth describes how severe and frequent the pain is.
type PainDepth struct {
	EmotionalIntensity float64 `json:"emotional_intensity"` // 0-5
	Frequency          string  `json:"frequency"`
	CurrentWorkaround  string  `json:"current_workaround"`
}

// MarketLandscape captures the externally-estimated market context.
type MarketLandscape struct {
	MarketSizeScore   float64  `json:"market_size_score"` // 0-5
	ExistingSolutions []string `json:"existing_solutions"`
	Gaps              string   `json:"gaps"`
}

// MVPPlan sketches the smallest product that would address the pain.
type MVPPlan struct {
	CoreFeature  string `json:"core_feature"`
	Channel      string `json:"channel"`
	PricingModel string `json:"pricing_model"`
	FirstStep    string `json:"first_step"`
}

// Relevance scores how well the cluster matches the search keywords.
type Relevance struct {
	Score  float64 `json:"score"` // 0-100
	Reason string  `json:"reason"`
}

// AnalysisPayload is the structured deep-analysis output for one cluster.
// The sub-structures are each optional and independently defaultable: a
// payload is always fully populated, either from the reasoning service or
// from documented placeholders.
type AnalysisPayload struct {
	PainStatement  string       `json:"pain_statement"`
	PaidInterest   PaidInterest `json:"paid_interest"`
	Rationale      string       `json:"rationale"`
	ProductConcept string       `json:"product_concept"`

	PainDepth       *PainDepth       `json:"pain_depth,omitempty"`
	MarketLandscape *MarketLandscape `json:"market_landscape,omitempty"`
	MVPPlan         *MVPPlan         `json:"mvp_plan,omitempty"`
	Relevance       *Relevance       `json:"relevance,omitempty"`

	// Degraded marks payloads synthesized from placeholders after a call or
	// parse failure. Kept for observability; never exposed on the job
	// status surface.
	Degraded bool `json:"-"`
}

type PriorityLevel string

const (
	PriorityHigh   PriorityLevel = "High"
	PriorityMedium PriorityLevel = "Medium"
	PriorityLow    PriorityLevel = "Low"
)

// PriorityScore is the composite 0-5 ranking for one cluster. Pure function
// of its inputs; immutable once attached to an AnalysisResult.
type PriorityScore struct {
	DemandIntensity float64       `json:"demand_intensity"`
	MarketSize      float64       `json:"market_size"`
	Competition     float64       `json:"competition"`
	Overall         float64       `json:"overall"`
	Level           PriorityLevel `json:"level"`
}

// AnalysisResult is the finding produced for one cluster.
type AnalysisResult struct {
	ClusterID       int             `json:"cluster_id"`
	ClusterSize     int             `json:"cluster_size"`
	Modality        Modality        `json:"modality"`
	Analysis        AnalysisPayload `json:"analysis"`
	Representatives []string        `json:"representatives"`
	Priority        *PriorityScore  `json:"priority,omitempty"`
}

type DataQualityLevel string

const (
	QualityExploratory DataQualityLevel = "exploratory"
	QualityPreliminary DataQualityLevel = "preliminary"
	QualityReliable    DataQualityLevel = "reliable"
)

// DataQuality classifies a whole run by total sample size.
type DataQuality struct {
	Level           DataQualityLevel `json:"level"`
	SampleSize      int              `json:"sample_size"`
	ClusterCount    int              `json:"cluster_count"`
	MeanClusterSize int              `json:"mean_cluster_size"`
}
