package search

import (
	"bytes"
	"cmp"
	"errors"
	"fmt"
	"math"

	"github.com/hupe1980/segread/index"
)

// ErrEmptySort is returned when a collector is created without sort fields.
var ErrEmptySort = errors.New("search: sort has no fields")

// CollectorOption configures a TopFieldCollector.
type CollectorOption func(*TopFieldCollector)

// WithSearchAfter only collects documents that sort after the given hit,
// which must carry the sort values of a previous page.
func WithSearchAfter(after ScoreDoc) CollectorOption {
	return func(c *TopFieldCollector) {
		c.after = &after
	}
}

// TopFieldCollector keeps the numHits best documents according to a Sort.
// Segments must be visited in doc-base order and documents in ascending
// order within a segment; among documents equal on every field the
// earlier one wins.
type TopFieldCollector struct {
	sort        *Sort
	comparators []FieldComparator
	reverseMul  []int
	numHits     int

	queue      *priorityQueue[int]
	slotDocs   []int
	slotScores []float32
	bottom     int
	full       bool

	docBase   int
	scorer    *currentScorer
	totalHits int
	maxScore  float32
	after     *ScoreDoc
}

type currentScorer struct {
	score float32
}

func (s *currentScorer) Score() float32 { return s.score }

// NewTopFieldCollector creates a collector for the numHits best documents.
func NewTopFieldCollector(sort *Sort, numHits int, opts ...CollectorOption) (*TopFieldCollector, error) {
	if sort == nil || len(sort.Fields) == 0 {
		return nil, ErrEmptySort
	}
	if numHits <= 0 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidNumHits, numHits)
	}

	c := &TopFieldCollector{
		sort:        sort,
		comparators: make([]FieldComparator, len(sort.Fields)),
		reverseMul:  make([]int, len(sort.Fields)),
		numHits:     numHits,
		slotDocs:    make([]int, numHits),
		slotScores:  make([]float32, numHits),
		scorer:      &currentScorer{},
		maxScore:    float32(math.NaN()),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.after != nil && len(c.after.Fields) != len(sort.Fields) {
		return nil, &SortValuesError{ShardIndex: c.after.ShardIndex, HitIndex: -1, Got: len(c.after.Fields), Want: len(sort.Fields)}
	}

	for i, f := range sort.Fields {
		comp, err := f.NewComparator(numHits)
		if err != nil {
			return nil, err
		}
		if sa, ok := comp.(ScorerAware); ok {
			sa.SetScorer(c.scorer)
		}
		c.comparators[i] = comp
		c.reverseMul[i] = f.reverseMul()
	}

	// Top of the queue is the weakest slot.
	c.queue = newPriorityQueue(numHits, func(a, b int) bool {
		return c.compareSlots(a, b) > 0
	})
	return c, nil
}

func (c *TopFieldCollector) compareSlots(a, b int) int {
	for i, comp := range c.comparators {
		if r := c.reverseMul[i] * comp.Compare(a, b); r != 0 {
			return r
		}
	}
	return cmp.Compare(c.slotDocs[a], c.slotDocs[b])
}

// SetNextReader switches every comparator to the next segment.
func (c *TopFieldCollector) SetNextReader(ctx index.LeafContext) error {
	c.docBase = ctx.DocBase
	for _, comp := range c.comparators {
		if err := comp.SetNextReader(ctx); err != nil {
			return fmt.Errorf("search: segment %d: %w", ctx.Ord, err)
		}
	}
	return nil
}

// Collect offers doc of the current segment with its score.
func (c *TopFieldCollector) Collect(doc int, score float32) {
	c.scorer.score = score
	c.totalHits++
	if math.IsNaN(float64(c.maxScore)) || score > c.maxScore {
		c.maxScore = score
	}
	if c.after != nil && !c.isAfter(doc) {
		return
	}

	if c.full {
		if !c.competitive(doc) {
			return
		}
		c.fill(c.bottom, doc, score)
		c.queue.UpdateTop()
		c.updateBottom()
		return
	}

	slot := c.queue.Len()
	c.fill(slot, doc, score)
	c.queue.Push(slot)
	if c.queue.Len() == c.numHits {
		c.full = true
		c.updateBottom()
	}
}

func (c *TopFieldCollector) competitive(doc int) bool {
	for i, comp := range c.comparators {
		r := c.reverseMul[i] * comp.CompareBottom(doc)
		if r != 0 {
			return r > 0
		}
	}
	// Equal on every field: the bottom has the lower doc id.
	return false
}

func (c *TopFieldCollector) isAfter(doc int) bool {
	for i, comp := range c.comparators {
		r := c.reverseMul[i] * comp.CompareDocToValue(doc, c.after.Fields[i])
		if r != 0 {
			return r > 0
		}
	}
	return c.docBase+doc > c.after.Doc
}

func (c *TopFieldCollector) fill(slot, doc int, score float32) {
	for _, comp := range c.comparators {
		comp.Copy(slot, doc)
	}
	c.slotDocs[slot] = c.docBase + doc
	c.slotScores[slot] = score
}

func (c *TopFieldCollector) updateBottom() {
	c.bottom = c.queue.Top()
	for _, comp := range c.comparators {
		comp.SetBottom(c.bottom)
	}
}

// TotalHits returns the number of documents offered, including those
// skipped by WithSearchAfter.
func (c *TopFieldCollector) TotalHits() int { return c.totalHits }

// TopDocs drains the collector and returns its hits best first, each with
// Fields filled from the comparators.
func (c *TopFieldCollector) TopDocs() *TopDocs {
	hits := make([]ScoreDoc, c.queue.Len())
	for i := len(hits) - 1; i >= 0; i-- {
		slot := c.queue.Pop()
		fields := make([]any, len(c.comparators))
		for j, comp := range c.comparators {
			v := comp.Value(slot)
			if b, ok := v.([]byte); ok {
				v = bytes.Clone(b)
			}
			fields[j] = v
		}
		hits[i] = ScoreDoc{
			Doc:        c.slotDocs[slot],
			Score:      c.slotScores[slot],
			ShardIndex: -1,
			Fields:     fields,
		}
	}
	c.full = false

	return &TopDocs{
		TotalHits: c.totalHits,
		MaxScore:  c.maxScore,
		ScoreDocs: hits,
		Fields:    c.sort.Fields,
	}
}

// Search runs a match-all collection of r into c: every live document is
// offered with score 1 unless scores returns another.
func Search(r index.Reader, c *TopFieldCollector, scores func(globalDoc int) float32) error {
	for _, leaf := range index.Leaves(r) {
		if err := c.SetNextReader(leaf); err != nil {
			return err
		}
		live := leaf.Reader.LiveDocs()
		for doc := 0; doc < leaf.Reader.MaxDoc(); doc++ {
			if live != nil && !live.Get(doc) {
				continue
			}
			score := float32(1)
			if scores != nil {
				score = scores(leaf.DocBase + doc)
			}
			c.Collect(doc, score)
		}
	}
	return nil
}
