package search

import (
	"bytes"
	"cmp"
	"errors"
	"fmt"
	"math"
	"strings"
)

var (
	// ErrInvalidNumHits is returned for a non-positive hit count.
	ErrInvalidNumHits = errors.New("search: numHits must be positive")
	// ErrUnknownSortType is returned for a SortField with an unsupported type.
	ErrUnknownSortType = errors.New("search: unknown sort type")
)

// SortType selects what a SortField orders by.
type SortType uint8

const (
	// SortString orders by the indexed term of a field, missing values last.
	SortString SortType = iota
	// SortScore orders by relevance score, highest first.
	SortScore
	// SortDoc orders by global doc id, lowest first.
	SortDoc
)

func (t SortType) String() string {
	switch t {
	case SortString:
		return "string"
	case SortScore:
		return "score"
	case SortDoc:
		return "doc"
	default:
		return fmt.Sprintf("search.SortType(%d)", uint8(t))
	}
}

// SortField is one criterion of a Sort.
type SortField struct {
	// Field names the indexed field for SortString.
	Field string
	Type  SortType
	// Reverse inverts the natural order of Type. For SortString the
	// inversion includes missing values, so a reversed string sort lists
	// documents without a value first.
	Reverse bool
	// MissingValue is reported, wrapped in a MissingTerm, as the sort value
	// of documents without a value. It does not change their rank.
	MissingValue []byte
}

// MissingTerm is the sort value of a document without a value in a field
// that has a MissingValue. It compares like a nil value: after every term.
type MissingTerm []byte

// StringField sorts by the term of field.
func StringField(field string, reverse bool) SortField {
	return SortField{Field: field, Type: SortString, Reverse: reverse}
}

// ScoreField sorts by relevance.
func ScoreField() SortField {
	return SortField{Type: SortScore}
}

// DocField sorts by index order.
func DocField() SortField {
	return SortField{Type: SortDoc}
}

func (f SortField) String() string {
	var b strings.Builder
	switch f.Type {
	case SortString:
		fmt.Fprintf(&b, "%q", f.Field)
	case SortScore:
		b.WriteString("<score>")
	case SortDoc:
		b.WriteString("<doc>")
	default:
		b.WriteString(f.Type.String())
	}
	if f.Reverse {
		b.WriteByte('!')
	}
	return b.String()
}

// NewComparator creates a comparator with numHits slots.
func (f SortField) NewComparator(numHits int) (FieldComparator, error) {
	if numHits <= 0 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidNumHits, numHits)
	}
	switch f.Type {
	case SortString:
		return NewTermOrdValComparator(numHits, f.Field, f.MissingValue), nil
	case SortScore:
		return NewRelevanceComparator(numHits), nil
	case SortDoc:
		return NewDocComparator(numHits), nil
	default:
		return nil, fmt.Errorf("%w: %d", ErrUnknownSortType, f.Type)
	}
}

// CompareValues compares two sort values produced by this field's
// comparator, in natural order. Reverse is not applied.
func (f SortField) CompareValues(a, b any) int {
	switch f.Type {
	case SortScore:
		return compareScores(a, b)
	case SortDoc:
		return cmp.Compare(toInt(a), toInt(b))
	default:
		return compareTerms(a, b)
	}
}

func (f SortField) reverseMul() int {
	if f.Reverse {
		return -1
	}
	return 1
}

// Sort is an ordered list of sort criteria; earlier fields take precedence.
type Sort struct {
	Fields []SortField
}

// NewSort creates a Sort over fields.
func NewSort(fields ...SortField) *Sort {
	return &Sort{Fields: fields}
}

// NeedsScores reports whether any field sorts by score.
func (s *Sort) NeedsScores() bool {
	for _, f := range s.Fields {
		if f.Type == SortScore {
			return true
		}
	}
	return false
}

func (s *Sort) String() string {
	parts := make([]string, len(s.Fields))
	for i, f := range s.Fields {
		parts[i] = f.String()
	}
	return strings.Join(parts, ",")
}

// compareTerms orders term values with missing values (nil or a
// MissingTerm) last.
func compareTerms(a, b any) int {
	va, okA := termValue(a)
	vb, okB := termValue(b)
	switch {
	case !okA && !okB:
		return 0
	case !okA:
		return 1
	case !okB:
		return -1
	}
	return bytes.Compare(va, vb)
}

// compareScores orders scores descending with NaN last.
func compareScores(a, b any) int {
	fa, fb := toFloat(a), toFloat(b)
	switch na, nb := math.IsNaN(fa), math.IsNaN(fb); {
	case na && nb:
		return 0
	case na:
		return 1
	case nb:
		return -1
	}
	return cmp.Compare(fb, fa)
}

func termValue(v any) ([]byte, bool) {
	switch t := v.(type) {
	case []byte:
		return t, t != nil
	case string:
		return []byte(t), true
	default:
		return nil, false
	}
}

func toFloat(v any) float64 {
	switch t := v.(type) {
	case float32:
		return float64(t)
	case float64:
		return t
	default:
		return 0
	}
}

func toInt(v any) int {
	switch t := v.(type) {
	case int:
		return t
	case int32:
		return int(t)
	case int64:
		return int(t)
	default:
		return 0
	}
}
