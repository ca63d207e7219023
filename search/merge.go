package search

import (
	"errors"
	"fmt"
	"math"
)

// ErrSortValuesNotFilled is returned when a hit lacks the sort values a
// field-sorted merge needs.
var ErrSortValuesNotFilled = errors.New("search: sort values not filled")

// SortValuesError names the hit whose sort values are missing or do not
// match the sort.
type SortValuesError struct {
	ShardIndex int
	HitIndex   int
	Got        int
	Want       int
}

func (e *SortValuesError) Error() string {
	return fmt.Sprintf("search: shard %d hit %d has %d sort values, want %d; collect with field values filled",
		e.ShardIndex, e.HitIndex, e.Got, e.Want)
}

func (e *SortValuesError) Unwrap() error { return ErrSortValuesNotFilled }

// ScoreDoc is one hit. Doc is global to its shard. ShardIndex is -1 until
// the hit passes through a merge.
type ScoreDoc struct {
	Doc        int
	Score      float32
	ShardIndex int
	// Fields holds one sort value per sort field for field-sorted hits.
	Fields []any
}

// TopDocs is a ranked result page.
type TopDocs struct {
	// TotalHits counts every matching document, not only those returned.
	TotalHits int
	// MaxScore is NaN when there are no hits.
	MaxScore  float32
	ScoreDocs []ScoreDoc
	// Fields is the sort the hits are ordered by; nil for score order.
	Fields []SortField
}

// ShardRef points at the next unconsumed hit of a shard.
type ShardRef struct {
	ShardIndex int
	HitIndex   int
}

type shardQueue interface {
	LessThan(a, b ShardRef) bool
}

func tieBreak(a, b ShardRef) bool {
	if a.ShardIndex != b.ShardIndex {
		return a.ShardIndex < b.ShardIndex
	}
	return a.HitIndex < b.HitIndex
}

// ScoreMergeSortQueue orders shard cursors by score, highest first.
type ScoreMergeSortQueue struct {
	hits [][]ScoreDoc
}

// NewScoreMergeSortQueue creates a score queue over the hits of shards.
func NewScoreMergeSortQueue(shards []*TopDocs) *ScoreMergeSortQueue {
	return &ScoreMergeSortQueue{hits: shardHits(shards)}
}

// LessThan reports whether a's hit ranks before b's. NaN scores rank below
// every other score.
func (q *ScoreMergeSortQueue) LessThan(a, b ShardRef) bool {
	sa := q.hits[a.ShardIndex][a.HitIndex].Score
	sb := q.hits[b.ShardIndex][b.HitIndex].Score
	if r := compareScores(sa, sb); r != 0 {
		return r < 0
	}
	return tieBreak(a, b)
}

// MergeSortQueue orders shard cursors by the sort values of their hits.
type MergeSortQueue struct {
	hits       [][]ScoreDoc
	fields     []SortField
	reverseMul []int
}

// NewMergeSortQueue creates a field queue over the hits of shards. Every
// hit must carry exactly one value per sort field.
func NewMergeSortQueue(sort *Sort, shards []*TopDocs) (*MergeSortQueue, error) {
	q := &MergeSortQueue{
		hits:       shardHits(shards),
		fields:     sort.Fields,
		reverseMul: make([]int, len(sort.Fields)),
	}
	for i, f := range sort.Fields {
		q.reverseMul[i] = f.reverseMul()
	}
	for shard, hits := range q.hits {
		for i, hit := range hits {
			if hit.Fields == nil || len(hit.Fields) != len(sort.Fields) {
				return nil, &SortValuesError{ShardIndex: shard, HitIndex: i, Got: len(hit.Fields), Want: len(sort.Fields)}
			}
		}
	}
	return q, nil
}

// LessThan reports whether a's hit ranks before b's. The first field that
// differs decides; equal hits keep shard then hit order.
func (q *MergeSortQueue) LessThan(a, b ShardRef) bool {
	fa := q.hits[a.ShardIndex][a.HitIndex].Fields
	fb := q.hits[b.ShardIndex][b.HitIndex].Fields
	for i, f := range q.fields {
		if r := q.reverseMul[i] * f.CompareValues(fa[i], fb[i]); r != 0 {
			return r < 0
		}
	}
	return tieBreak(a, b)
}

func shardHits(shards []*TopDocs) [][]ScoreDoc {
	hits := make([][]ScoreDoc, len(shards))
	for i, s := range shards {
		if s != nil {
			hits[i] = s.ScoreDocs
		}
	}
	return hits
}

// Merge combines per-shard results into the topN best hits. A nil sort
// merges by score. Each shard's hits must already be in its own ranking
// order, and for a field sort they must carry their sort values.
func Merge(sort *Sort, topN int, shards []*TopDocs) (*TopDocs, error) {
	return MergeFrom(sort, 0, topN, shards)
}

// MergeFrom is Merge for the page of size hits starting at rank start.
// Nil shards count as empty.
func MergeFrom(sort *Sort, start, size int, shards []*TopDocs) (*TopDocs, error) {
	if start < 0 || size < 0 {
		return nil, fmt.Errorf("search: invalid page start=%d size=%d", start, size)
	}

	var queue shardQueue
	if sort == nil {
		queue = NewScoreMergeSortQueue(shards)
	} else {
		q, err := NewMergeSortQueue(sort, shards)
		if err != nil {
			return nil, err
		}
		queue = q
	}

	pq := newPriorityQueue(len(shards), queue.LessThan)
	totalHits := 0
	available := 0
	maxScore := float32(math.NaN())
	for i, s := range shards {
		if s == nil {
			continue
		}
		totalHits += s.TotalHits
		if len(s.ScoreDocs) == 0 {
			continue
		}
		available += len(s.ScoreDocs)
		pq.Push(ShardRef{ShardIndex: i})
		if !math.IsNaN(float64(s.MaxScore)) && (math.IsNaN(float64(maxScore)) || s.MaxScore > maxScore) {
			maxScore = s.MaxScore
		}
	}

	var hits []ScoreDoc
	if start < available {
		end := available
		if size < available-start {
			end = start + size
		}
		hits = make([]ScoreDoc, 0, end-start)
		for upto := 0; upto < end; upto++ {
			ref := pq.Top()
			hit := shards[ref.ShardIndex].ScoreDocs[ref.HitIndex]
			if upto >= start {
				hit.ShardIndex = ref.ShardIndex
				hits = append(hits, hit)
			}
			ref.HitIndex++
			if ref.HitIndex < len(shards[ref.ShardIndex].ScoreDocs) {
				pq.ReplaceTop(ref)
			} else {
				pq.Pop()
			}
		}
	}

	out := &TopDocs{TotalHits: totalHits, MaxScore: maxScore, ScoreDocs: hits}
	if sort != nil {
		out.Fields = sort.Fields
	}
	return out, nil
}
