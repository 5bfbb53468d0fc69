package world

import "github.com/l1jgo/mapsim/internal/net/packet"

// Category is the object kind used to pick a registry bucket.
type Category uint8

const (
	CategoryOther Category = iota
	CategoryItem
	CategoryPet
	CategoryPlayer
	CategoryMonster
	CategoryGuard
)

func (c Category) String() string {
	switch c {
	case CategoryItem:
		return "item"
	case CategoryPet:
		return "pet"
	case CategoryPlayer:
		return "player"
	case CategoryMonster:
		return "monster"
	case CategoryGuard:
		return "guard"
	default:
		return "other"
	}
}

// Object is anything placed on a map. Implementations must be pointer types
// (they are used as set keys) and safe for concurrent reads.
type Object interface {
	ObjectID() int32
	Category() Category
	Position() Point
	Blocking() bool
	Dead() bool
}

// Player is the session-backed object. Enqueue hands a packet to the
// player's delivery queue and must not block.
type Player interface {
	Object
	Enqueue(p packet.Outbound)
	Resurrect()
	Teleport(target *Map, area AreaType)
	RespawnMapID() int
}

// Pet is a player-owned companion.
type Pet interface {
	Object
	Despawn()
	Recall()
}

// Item is a ground item.
type Item interface {
	Object
	Destroy()
}

// Despawner is implemented by objects that can remove themselves from the world.
type Despawner interface {
	Despawn()
}
