package vendors

import (
	"errors"
	"fmt"
	"slices"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/cleared-dev/tally/internal/model"
)

// ErrNotFound is returned when a vendor ID is unknown.
var ErrNotFound = errors.New("vendor not found")

// Dictionary is the mutable set of known vendors. Readers take snapshots;
// writes go through the methods below.
type Dictionary struct {
	mu   sync.Mutex
	byID map[string]*model.Vendor
}

// NewDictionary creates a Dictionary from existing vendors.
func NewDictionary(vendors []model.Vendor) *Dictionary {
	d := &Dictionary{byID: make(map[string]*model.Vendor, len(vendors))}
	for _, v := range vendors {
		c := v.Clone()
		d.byID[c.ID] = &c
	}
	return d
}

// Len returns the number of vendors.
func (d *Dictionary) Len() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.byID)
}

// Snapshot returns deep copies of all vendors ordered by ID.
func (d *Dictionary) Snapshot() []model.Vendor {
	d.mu.Lock()
	defer d.mu.Unlock()

	out := make([]model.Vendor, 0, len(d.byID))
	for _, v := range d.byID {
		out = append(out, v.Clone())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Get returns a copy of the vendor with the given ID.
func (d *Dictionary) Get(id string) (model.Vendor, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	v, ok := d.byID[id]
	if !ok {
		return model.Vendor{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return v.Clone(), nil
}

// Add inserts a vendor, assigning an ID when empty, and returns the stored copy.
func (d *Dictionary) Add(v model.Vendor) model.Vendor {
	c := v.Clone()
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	if c.AccountVotes == nil {
		c.AccountVotes = make(map[string]int)
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	d.byID[c.ID] = &c
	return c.Clone()
}

// NewFromPayee builds an unsaved vendor for a payee nothing matched.
func NewFromPayee(payee string) model.Vendor {
	key, display := Normalize(payee)
	return model.Vendor{
		Name:         display,
		OriginalName: payee,
		Patterns:     []string{key},
		Category:     InferCategory(key),
		AccountVotes: make(map[string]int),
	}
}

// Update applies fn to the stored vendor under the lock.
func (d *Dictionary) Update(id string, fn func(v *model.Vendor)) (model.Vendor, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	v, ok := d.byID[id]
	if !ok {
		return model.Vendor{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if v.AccountVotes == nil {
		v.AccountVotes = make(map[string]int)
	}
	fn(v)
	return v.Clone(), nil
}

// Rename changes a vendor's display name and keeps its previous comparison
// key as an alias pattern.
func (d *Dictionary) Rename(id, name string) (model.Vendor, error) {
	return d.Update(id, func(v *model.Vendor) {
		old := Key(v.Name)
		v.Name = name
		if old != "" && old != Key(name) && !slices.Contains(v.Patterns, old) {
			v.Patterns = append(v.Patterns, old)
		}
	})
}
