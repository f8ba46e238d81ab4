package models

import "time"

type Phase string

const (
	PhaseResearch    Phase = "research"
	PhaseValidation  Phase = "validation"
	PhaseDevelopment Phase = "development"
	PhaseLaunch      Phase = "launch"
)

// PhaseOrder is the fixed lifecycle ordering used for adjacency scoring.
var PhaseOrder = []Phase{PhaseResearch, PhaseValidation, PhaseDevelopment, PhaseLaunch}

func (p Phase) Index() int {
	for i, candidate := range PhaseOrder {
		if candidate == p {
			return i
		}
	}
	return -1
}

func (p Phase) Valid() bool {
	return p.Index() >= 0
}

type IdeaType string

const (
	IdeaTypeSoftware        IdeaType = "software"
	IdeaTypePhysicalProduct IdeaType = "physical_product"
	IdeaTypeService         IdeaType = "service"
	IdeaTypeMarketplace     IdeaType = "marketplace"
)

func (t IdeaType) Valid() bool {
	switch t {
	case IdeaTypeSoftware, IdeaTypePhysicalProduct, IdeaTypeService, IdeaTypeMarketplace:
		return true
	}
	return false
}

type ResourceType string

const (
	ResourceTypeArticle  ResourceType = "article"
	ResourceTypeTool     ResourceType = "tool"
	ResourceTypeTemplate ResourceType = "template"
	ResourceTypeVideo    ResourceType = "video"
	ResourceTypeGuide    ResourceType = "guide"
)

type Difficulty string

const (
	DifficultyBeginner     Difficulty = "beginner"
	DifficultyIntermediate Difficulty = "intermediate"
	DifficultyAdvanced     Difficulty = "advanced"
)

func (d Difficulty) Level() int {
	switch d {
	case DifficultyBeginner:
		return 0
	case DifficultyIntermediate:
		return 1
	case DifficultyAdvanced:
		return 2
	}
	return -1
}

type Tier string

const (
	TierFree       Tier = "free"
	TierPro        Tier = "pro"
	TierEnterprise Tier = "enterprise"
)

type AccessType string

const (
	AccessView         AccessType = "view"
	AccessDownload     AccessType = "download"
	AccessExternalLink AccessType = "external_link"
)

// Resource is a read-only catalog entry. AverageRating is scaled 0-500
// (0.00-5.00). An empty Difficulty or nil CategoryID means the attribute is
// unknown; scorers resolve missing attributes to neutral values.
type Resource struct {
	ID             int64
	Title          string
	Description    string
	CategoryID     *int64
	Type           ResourceType
	PhaseRelevance []Phase
	IdeaTypes      []IdeaType
	Difficulty     Difficulty
	AverageRating  int
	ViewCount      int64
	BookmarkCount  int64
	IsActive       bool
	IsPremium      bool
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

func (r *Resource) HasPhase(phase Phase) bool {
	for _, p := range r.PhaseRelevance {
		if p == phase {
			return true
		}
	}
	return false
}

func (r *Resource) HasIdeaType(ideaType IdeaType) bool {
	for _, t := range r.IdeaTypes {
		if t == ideaType {
			return true
		}
	}
	return false
}

type InteractionRecord struct {
	ID         int64
	UserID     string
	ResourceID int64
	AccessType AccessType
	CreatedAt  time.Time
}

// UserOverlap pairs a user with the number of resources they share with a
// reference interaction set.
type UserOverlap struct {
	UserID       string
	OverlapCount int
}

// MatchingContext describes a single task-scoped matching call.
type MatchingContext struct {
	Phase            Phase
	IdeaType         IdeaType
	StepKeywords     []string
	UserExperience   Difficulty
	PreviouslyViewed []int64
	UserTier         Tier
}

// RecommendationContext describes a single user-scoped recommendation
// call. TaskPhase/TaskIdeaType are optional and carry the analysis context
// the AnalysisID refers to; they feed a small content-score bonus. An empty
// UserTier is treated as free so premium resources are never leaked by
// omission.
type RecommendationContext struct {
	UserID             string
	AnalysisID         string
	UserTier           Tier
	TaskPhase          Phase
	TaskIdeaType       IdeaType
	Limit              int
	ExcludeResourceIDs []int64
}

// ScoredResource carries a resource with its combined score, the named
// sub-scores that produced it, and a label for the dominant factor.
type ScoredResource struct {
	Resource  *Resource
	Score     float64
	Breakdown map[string]float64
	Reason    string
}

// CandidateFilter narrows the candidate pool fetched from the catalog.
// Phase and idea-type fit are ranking concerns, not fetch filters, so the
// filter only gates premium visibility and known exclusions.
type CandidateFilter struct {
	IncludePremium bool
	ExcludeIDs     []int64
}
