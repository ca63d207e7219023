package search

import (
	"cmp"

	"github.com/hupe1980/segread/index"
)

// FieldComparator ranks documents by one sort criterion during top-N
// collection. It keeps a value per queue slot and compares slots, the
// current bottom (weakest competitive) slot and incoming documents.
//
// Negative results mean the first argument sorts before the second. A
// comparator is used by one collector at a time and is not safe for
// concurrent use.
type FieldComparator interface {
	// Compare orders two filled slots.
	Compare(slot1, slot2 int) int
	// SetBottom marks slot as the weakest entry of a full queue.
	SetBottom(slot int)
	// CompareBottom orders the bottom slot against doc of the current
	// segment; a positive result means doc is competitive.
	CompareBottom(doc int) int
	// Copy stores doc's value into slot.
	Copy(slot, doc int)
	// SetNextReader switches to the next segment.
	SetNextReader(ctx index.LeafContext) error
	// Value returns the sort value held by slot.
	Value(slot int) any
	// CompareValues orders two values returned by Value.
	CompareValues(a, b any) int
	// CompareDocToValue orders doc of the current segment against a value
	// returned by Value, typically from a previous page.
	CompareDocToValue(doc int, value any) int
}

// Scorer exposes the score of the document being collected.
type Scorer interface {
	Score() float32
}

// ScorerAware is implemented by comparators that read scores.
type ScorerAware interface {
	SetScorer(s Scorer)
}

// RelevanceComparator orders by score, highest first.
type RelevanceComparator struct {
	scores []float32
	bottom float32
	scorer Scorer
}

// NewRelevanceComparator creates a RelevanceComparator with numHits slots.
func NewRelevanceComparator(numHits int) *RelevanceComparator {
	return &RelevanceComparator{scores: make([]float32, numHits)}
}

func (c *RelevanceComparator) SetScorer(s Scorer) { c.scorer = s }

func (c *RelevanceComparator) Compare(slot1, slot2 int) int {
	return cmp.Compare(c.scores[slot2], c.scores[slot1])
}

func (c *RelevanceComparator) SetBottom(slot int) { c.bottom = c.scores[slot] }

func (c *RelevanceComparator) CompareBottom(int) int {
	return cmp.Compare(c.scorer.Score(), c.bottom)
}

func (c *RelevanceComparator) Copy(slot, _ int) { c.scores[slot] = c.scorer.Score() }

func (c *RelevanceComparator) SetNextReader(index.LeafContext) error { return nil }

func (c *RelevanceComparator) Value(slot int) any { return c.scores[slot] }

func (c *RelevanceComparator) CompareValues(a, b any) int { return compareScores(a, b) }

func (c *RelevanceComparator) CompareDocToValue(_ int, value any) int {
	return cmp.Compare(toFloat(value), float64(c.scorer.Score()))
}

// DocComparator orders by global doc id, lowest first.
type DocComparator struct {
	docs    []int
	bottom  int
	docBase int
}

// NewDocComparator creates a DocComparator with numHits slots.
func NewDocComparator(numHits int) *DocComparator {
	return &DocComparator{docs: make([]int, numHits)}
}

func (c *DocComparator) Compare(slot1, slot2 int) int {
	return cmp.Compare(c.docs[slot1], c.docs[slot2])
}

func (c *DocComparator) SetBottom(slot int) { c.bottom = c.docs[slot] }

func (c *DocComparator) CompareBottom(doc int) int {
	return cmp.Compare(c.bottom, c.docBase+doc)
}

func (c *DocComparator) Copy(slot, doc int) { c.docs[slot] = c.docBase + doc }

func (c *DocComparator) SetNextReader(ctx index.LeafContext) error {
	c.docBase = ctx.DocBase
	return nil
}

func (c *DocComparator) Value(slot int) any { return c.docs[slot] }

func (c *DocComparator) CompareValues(a, b any) int { return cmp.Compare(toInt(a), toInt(b)) }

func (c *DocComparator) CompareDocToValue(doc int, value any) int {
	return cmp.Compare(c.docBase+doc, toInt(value))
}

var (
	_ FieldComparator = (*RelevanceComparator)(nil)
	_ FieldComparator = (*DocComparator)(nil)
	_ FieldComparator = (*TermOrdValComparator)(nil)
	_ ScorerAware     = (*RelevanceComparator)(nil)
)
