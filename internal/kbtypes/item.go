// Package kbtypes defines the data model shared by the item store,
// enrichment pipeline, and related-item engine: Item, Status, Tag,
// Keyword, Concept, ItemRelation, and SystemState.
package kbtypes

import (
	"regexp"
	"time"
)

// Priority is one of the five fixed severity levels an Item can carry.
type Priority string

const (
	PriorityCritical Priority = "CRITICAL"
	PriorityHigh     Priority = "HIGH"
	PriorityMedium   Priority = "MEDIUM"
	PriorityLow      Priority = "LOW"
	PriorityMinimal  Priority = "MINIMAL"
)

// ValidPriorities lists every priority accepted on write, in descending
// severity order.
var ValidPriorities = []Priority{
	PriorityCritical, PriorityHigh, PriorityMedium, PriorityLow, PriorityMinimal,
}

// IsValid reports whether p is one of ValidPriorities.
func (p Priority) IsValid() bool {
	for _, v := range ValidPriorities {
		if p == v {
			return true
		}
	}
	return false
}

// typePattern matches the free-form, lowercase, tag-like type
// discriminator: letters, digits, and underscore only.
var typePattern = regexp.MustCompile(`^[a-z0-9_]+$`)

// ValidType reports whether t matches ^[a-z0-9_]+$.
func ValidType(t string) bool {
	return t != "" && typePattern.MatchString(t)
}

// EmbeddingDim is the fixed dimensionality of the quantized semantic
// embedding every Item may carry.
const EmbeddingDim = 128

// Item is the single universal record type. Its Type attribute is a
// label, not a schema discriminator: every item shares this physical
// shape regardless of Type.
type Item struct {
	ID          int64
	Type        string
	Title       string
	Description string
	Content     string
	Priority    Priority
	Status      Status
	Category    string
	StartDate   *time.Time
	EndDate     *time.Time
	Version     string // denormalized X.Y.Z on read, see NormalizeVersion
	CreatedAt   time.Time
	UpdatedAt   time.Time

	// AI-derived fields. Zero value means "not yet enriched" or
	// "enrichment unavailable"; never surfaced in list/search projections.
	AISummary   string
	SearchIndex string
	Embedding   []byte // exactly EmbeddingDim bytes when present

	Tags     []Tag
	Keywords []ItemKeyword
	Concepts []ItemConcept
}

// ItemSummary is the lightweight projection list_items and
// search_items return: no content, no embedding.
type ItemSummary struct {
	ID          int64
	Type        string
	Title       string
	Priority    Priority
	Status      Status
	Category    string
	Version     string
	Tags        []string
	CreatedAt   time.Time
	UpdatedAt   time.Time
	SearchScore float64 // set only by search_items; zero for list_items
}

// Status is a reference-table row an Item's Status field points to.
type Status struct {
	ID         int64
	Name       string
	IsClosable bool
	SortOrder  int
}

// DefaultStatuses lists the 12 pre-seeded statuses, in seed order. The
// sort order column follows seed order starting at 1.
var DefaultStatuses = []Status{
	{Name: "Open", IsClosable: false, SortOrder: 1},
	{Name: "Specification", IsClosable: false, SortOrder: 2},
	{Name: "Waiting", IsClosable: false, SortOrder: 3},
	{Name: "Ready", IsClosable: false, SortOrder: 4},
	{Name: "In Progress", IsClosable: false, SortOrder: 5},
	{Name: "Review", IsClosable: false, SortOrder: 6},
	{Name: "Testing", IsClosable: false, SortOrder: 7},
	{Name: "Pending", IsClosable: false, SortOrder: 8},
	{Name: "Completed", IsClosable: true, SortOrder: 9},
	{Name: "Closed", IsClosable: true, SortOrder: 10},
	{Name: "Canceled", IsClosable: true, SortOrder: 11},
	{Name: "Rejected", IsClosable: true, SortOrder: 12},
}

// DefaultStatusName is the status newly created items receive when the
// caller does not supply one.
const DefaultStatusName = "Open"

// Tag is a unique, caller-supplied, case-sensitive label. Tags are
// created on demand; normalization, if any, is the caller's job.
type Tag struct {
	ID   int64
	Name string
}

// Keyword is a unique derived term. Keywords are never caller-supplied;
// they come from the enrichment pipeline.
type Keyword struct {
	ID   int64
	Word string
}

// ItemKeyword is the weighted join between an Item and a Keyword.
type ItemKeyword struct {
	Word   string
	Weight float64 // (0, 1]
}

// Concept is a unique derived higher-level topic.
type Concept struct {
	ID   int64
	Name string
}

// ItemConcept is the confidence-weighted join between an Item and a
// Concept.
type ItemConcept struct {
	Name       string
	Confidence float64 // (0, 1]
}

// ItemRelation is one directed row of the symmetric many-to-many
// relation between two items. Storage always keeps both directions.
type ItemRelation struct {
	SourceID int64
	TargetID int64
}

// SystemStateMetrics is the JSON-serialized metrics snapshot embedded in
// a SystemState row.
type SystemStateMetrics struct {
	TotalItems      int       `json:"totalItems"`
	TotalRelations  int       `json:"totalRelations"`
	AvgConnections  float64   `json:"avgConnections"`
	MaxConnections  int       `json:"maxConnections"`
	IsolatedNodes   int       `json:"isolatedNodes"`
	Timestamp       time.Time `json:"timestamp"`
}

// SystemState is one row of the current-system-state history table. At
// most one row has IsActive = true at any time.
type SystemState struct {
	ID           int64
	Version      string
	Content      string
	Summary      string
	Metrics      SystemStateMetrics
	Context      string
	Checkpoint   string
	Metadata     string
	Tags         []string
	RelatedItems []int64
	IsActive     bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
