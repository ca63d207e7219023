package index

import (
	"errors"
	"fmt"
)

// ErrNoLeaves is returned when a composite reader is built without segments.
var ErrNoLeaves = errors.New("index: composite reader needs at least one leaf")

// CompositeReader presents several segments as one doc id space.
// Leaf i owns global docs [DocBase_i, DocBase_i + MaxDoc_i).
type CompositeReader struct {
	leaves []LeafContext
	starts []int
}

// NewCompositeReader assigns doc bases to subs in order.
func NewCompositeReader(subs ...LeafReader) (*CompositeReader, error) {
	if len(subs) == 0 {
		return nil, ErrNoLeaves
	}
	c := &CompositeReader{
		leaves: make([]LeafContext, len(subs)),
		starts: make([]int, len(subs)+1),
	}
	base := 0
	for i, sub := range subs {
		if sub == nil {
			return nil, fmt.Errorf("index: leaf %d is nil", i)
		}
		c.leaves[i] = LeafContext{Reader: sub, Ord: i, DocBase: base}
		c.starts[i] = base
		base += sub.MaxDoc()
	}
	c.starts[len(subs)] = base
	return c, nil
}

// Leaves returns the leaf contexts in doc base order.
func (c *CompositeReader) Leaves() []LeafContext { return c.leaves }

func (c *CompositeReader) MaxDoc() int { return c.starts[len(c.starts)-1] }

// NumDocs sums the live documents of every leaf.
func (c *CompositeReader) NumDocs() int {
	n := 0
	for _, leaf := range c.leaves {
		n += leaf.Reader.NumDocs()
	}
	return n
}

// SubIndex returns the leaf that contains global doc.
func (c *CompositeReader) SubIndex(doc int) int {
	return SubIndex(doc, c.starts[:len(c.leaves)])
}

// Close closes every leaf and joins their errors.
func (c *CompositeReader) Close() error {
	var errs []error
	for _, leaf := range c.leaves {
		if err := leaf.Reader.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
