package scoring

import "sort"

// Priority tags a recommendation pool.
type Priority string

// Known priorities. Anything else ranks below low.
const (
	PriorityHigh   Priority = "high"
	PriorityMedium Priority = "medium"
	PriorityLow    Priority = "low"
)

// Rank orders priorities; higher ranks are returned first.
func (p Priority) Rank() int {
	switch p {
	case PriorityHigh:
		return 3
	case PriorityMedium:
		return 2
	case PriorityLow:
		return 1
	default:
		return 0
	}
}

// RecommendationPool is one source of recommendations sharing a priority.
type RecommendationPool struct {
	Source   string
	Priority Priority
	Items    []string
}

// Recommendation is a single merged item.
type Recommendation struct {
	Text     string   `json:"text"`
	Source   string   `json:"source"`
	Priority Priority `json:"priority"`
}

// Recommendation pool sources used for resumes.
const (
	SourceGeneral = "general"
	SourceATS     = "ats"
	SourceContent = "content"
)

// ResumeRecommendationPools builds the fixed resume pools: general and
// content advice at medium priority, ATS advice at high.
func ResumeRecommendationPools(general, ats, content []string) []RecommendationPool {
	return []RecommendationPool{
		{Source: SourceGeneral, Priority: PriorityMedium, Items: general},
		{Source: SourceATS, Priority: PriorityHigh, Items: ats},
		{Source: SourceContent, Priority: PriorityMedium, Items: content},
	}
}

// TopRecommendations merges pools in order, stable-sorts by priority
// descending and keeps at most limit items. Items of equal priority keep
// their merged order.
func TopRecommendations(pools []RecommendationPool, limit int) []Recommendation {
	if limit <= 0 {
		return []Recommendation{}
	}
	var merged []Recommendation
	for _, pool := range pools {
		for _, item := range pool.Items {
			merged = append(merged, Recommendation{Text: item, Source: pool.Source, Priority: pool.Priority})
		}
	}
	sort.SliceStable(merged, func(i, j int) bool {
		return merged[i].Priority.Rank() > merged[j].Priority.Rank()
	})
	if len(merged) > limit {
		merged = merged[:limit]
	}
	if merged == nil {
		return []Recommendation{}
	}
	return merged
}
