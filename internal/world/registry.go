package world

import (
	"github.com/sasha-s/go-deadlock"
	"github.com/zyedidia/generic/mapset"
)

// Registry buckets.
const (
	bucketItem = iota
	bucketPet
	bucketPlayer
	bucketMonster // monsters and guards
	bucketOther
	bucketCount
)

func bucketOf(c Category) int {
	switch c {
	case CategoryItem:
		return bucketItem
	case CategoryPet:
		return bucketPet
	case CategoryPlayer:
		return bucketPlayer
	case CategoryMonster, CategoryGuard:
		return bucketMonster
	default:
		return bucketOther
	}
}

type bucket struct {
	mu   deadlock.RWMutex
	objs mapset.Set[Object]
}

// Registry keeps per-category collections for category-wide iteration.
// Buckets hold objects by identity, like the grid cells, so two objects
// sharing an ID stay separate entries. Each bucket has its own lock;
// iteration works on snapshots so callbacks may add or remove objects freely.
type Registry struct {
	buckets [bucketCount]bucket
}

func NewRegistry() *Registry {
	r := &Registry{}
	for i := range r.buckets {
		r.buckets[i].objs = mapset.New[Object]()
	}
	return r
}

// Add inserts o into the bucket for its category.
func (r *Registry) Add(o Object) {
	b := &r.buckets[bucketOf(o.Category())]
	b.mu.Lock()
	b.objs.Put(o)
	b.mu.Unlock()
}

// Remove deletes o from the bucket for its category.
func (r *Registry) Remove(o Object) {
	b := &r.buckets[bucketOf(o.Category())]
	b.mu.Lock()
	b.objs.Remove(o)
	b.mu.Unlock()
}

// Has reports whether o is registered.
func (r *Registry) Has(o Object) bool {
	b := &r.buckets[bucketOf(o.Category())]
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.objs.Has(o)
}

func (r *Registry) count(i int) int {
	b := &r.buckets[i]
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.objs.Size()
}

func (r *Registry) snapshot(i int) []Object {
	b := &r.buckets[i]
	b.mu.RLock()
	defer b.mu.RUnlock()
	out := make([]Object, 0, b.objs.Size())
	b.objs.Each(func(o Object) {
		out = append(out, o)
	})
	return out
}

func (r *Registry) PlayerCount() int  { return r.count(bucketPlayer) }
func (r *Registry) PetCount() int     { return r.count(bucketPet) }
func (r *Registry) ItemCount() int    { return r.count(bucketItem) }
func (r *Registry) MonsterCount() int { return r.count(bucketMonster) }
func (r *Registry) OtherCount() int   { return r.count(bucketOther) }

// Players returns a snapshot of registered players.
func (r *Registry) Players() []Player {
	objs := r.snapshot(bucketPlayer)
	out := make([]Player, 0, len(objs))
	for _, o := range objs {
		if p, ok := o.(Player); ok {
			out = append(out, p)
		}
	}
	return out
}

// Pets returns a snapshot of registered pets.
func (r *Registry) Pets() []Pet {
	objs := r.snapshot(bucketPet)
	out := make([]Pet, 0, len(objs))
	for _, o := range objs {
		if p, ok := o.(Pet); ok {
			out = append(out, p)
		}
	}
	return out
}

// Items returns a snapshot of registered ground items.
func (r *Registry) Items() []Item {
	objs := r.snapshot(bucketItem)
	out := make([]Item, 0, len(objs))
	for _, o := range objs {
		if it, ok := o.(Item); ok {
			out = append(out, it)
		}
	}
	return out
}

// Monsters returns a snapshot of monsters and guards.
func (r *Registry) Monsters() []Object { return r.snapshot(bucketMonster) }

// Others returns a snapshot of uncategorized objects.
func (r *Registry) Others() []Object { return r.snapshot(bucketOther) }
