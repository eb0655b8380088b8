package zoning

import (
	"slices"
)

// ClassCatalog maps detector class indices to class names. The i-th name
// belongs to the i-th filtered class id.
type ClassCatalog struct {
	names []string
	index map[int]int
}

// NewClassCatalog builds a catalog from parallel name and class id lists.
func NewClassCatalog(names []string, classIDs []int) (*ClassCatalog, error) {
	if len(names) != len(classIDs) {
		return nil, configErrorf("%d class names for %d filter class ids", len(names), len(classIDs))
	}

	c := &ClassCatalog{
		names: slices.Clone(names),
		index: make(map[int]int, len(classIDs)),
	}
	seenNames := make(map[string]bool, len(names))
	for i, id := range classIDs {
		if _, dup := c.index[id]; dup {
			return nil, configErrorf("class id %d listed twice", id)
		}
		if names[i] == "" {
			return nil, configErrorf("class id %d has an empty name", id)
		}
		if seenNames[names[i]] {
			return nil, configErrorf("class name %q listed twice", names[i])
		}
		seenNames[names[i]] = true
		c.index[id] = i
	}
	return c, nil
}

// Name returns the class name for a detector class index.
func (c *ClassCatalog) Name(classIndex int) (string, bool) {
	i, ok := c.index[classIndex]
	if !ok {
		return "", false
	}
	return c.names[i], true
}

// Names returns the class names in configured order.
func (c *ClassCatalog) Names() []string {
	return slices.Clone(c.names)
}

// Len returns the number of classes.
func (c *ClassCatalog) Len() int { return len(c.names) }

// emptyBuckets returns a node holding an empty id list for every class.
func (c *ClassCatalog) emptyBuckets() Node {
	n := make(Node, len(c.names))
	for _, name := range c.names {
		n[name] = IDList()
	}
	return n
}
