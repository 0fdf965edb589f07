package twin

import (
	"context"

	"github.com/benjaminle3309williamlopez/TbmTwin-FHE/interfaces"
)

// counterSet maintains one running encrypted tally per category, plus the
// reverse mapping from a category hash back to its key for the counter
// reveal path, and the last revealed value per category. Callers hold the
// ledger lock.
type counterSet struct {
	handles  map[interfaces.Category]interfaces.CiphertextHandle
	byHash   map[interfaces.CategoryHash]interfaces.Category
	order    []interfaces.Category
	revealed map[interfaces.Category]uint64
}

func newCounterSet() counterSet {
	return counterSet{
		handles:  make(map[interfaces.Category]interfaces.CiphertextHandle),
		byHash:   make(map[interfaces.CategoryHash]interfaces.Category),
		revealed: make(map[interfaces.Category]uint64),
	}
}

// stagedIncrement is an increment that has been computed by the evaluator
// but not yet applied to the set. Staging keeps a failed callback free of
// side effects: the evaluator runs before the commit point, and the set is
// only mutated once every check has passed.
type stagedIncrement struct {
	category  interfaces.Category
	next      interfaces.CiphertextHandle
	firstSeen bool
}

// stageIncrement computes category's counter plus one, initializing
// first-seen categories at an encrypted zero. Category keys are opaque: no
// normalization. The set itself is not mutated.
func (c *counterSet) stageIncrement(ctx context.Context, evaluator interfaces.HomomorphicEvaluator, category interfaces.Category) (stagedIncrement, error) {
	current, ok := c.handles[category]
	if !ok {
		zero, err := evaluator.EncryptUint64(ctx, 0)
		if err != nil {
			return stagedIncrement{}, err
		}
		current = zero
	}

	next, err := evaluator.AddPlain(ctx, current, 1)
	if err != nil {
		return stagedIncrement{}, err
	}

	return stagedIncrement{category: category, next: next, firstSeen: !ok}, nil
}

// commit applies a staged increment. Infallible.
func (c *counterSet) commit(s stagedIncrement) {
	if s.firstSeen {
		c.byHash[s.category.Hash()] = s.category
		c.order = append(c.order, s.category)
	}
	c.handles[s.category] = s.next
}

// handle returns the current encrypted counter for a category.
func (c *counterSet) handle(category interfaces.Category) (interfaces.CiphertextHandle, bool) {
	h, ok := c.handles[category]
	return h, ok
}

// categoryByHash resolves the reveal correlation key back to a category.
func (c *counterSet) categoryByHash(hash interfaces.CategoryHash) (interfaces.Category, bool) {
	category, ok := c.byHash[hash]
	return category, ok
}

// commitReveal records the value reported by a completed counter reveal.
// Successive reveals only ever report the count as of that moment, so the
// stored value is monotonically non-decreasing.
func (c *counterSet) commitReveal(category interfaces.Category, value uint64) {
	c.revealed[category] = value
}

// revealedValue returns the last revealed count, if any reveal completed.
func (c *counterSet) revealedValue(category interfaces.Category) (uint64, bool) {
	v, ok := c.revealed[category]
	return v, ok
}

// categories lists known keys in first-seen order.
func (c *counterSet) categories() []interfaces.Category {
	out := make([]interfaces.Category, len(c.order))
	copy(out, c.order)
	return out
}
