package bot

import "voxelbot.ai/internal/voxel"

// InvSlot is one inventory slot; slot order is significant.
type InvSlot struct {
	Item   uint16
	Amount int64
}

type Inventory []InvSlot

func (inv Inventory) Count(item uint16) int64 {
	var n int64
	for _, s := range inv {
		if s.Item == item {
			n += s.Amount
		}
	}
	return n
}

// SlotOf returns the first slot index holding item, or -1.
func (inv Inventory) SlotOf(item uint16) int {
	for i, s := range inv {
		if s.Item == item && s.Amount > 0 {
			return i
		}
	}
	return -1
}

// State is the per-cycle snapshot of world-derived facts. It is produced once
// per cycle and must not be mutated afterwards; modes attach their own
// assessment through Ext on the copy AssessState returns.
type State struct {
	Pos       voxel.Coord
	Energy    int64
	Inventory Inventory
	Chest     Inventory
	Location  string

	// Ext carries mode-specific assessment, opaque to the scheduler.
	Ext any
}

// WithExt returns a shallow copy carrying the mode-specific extension,
// leaving the observed fields untouched.
func (s *State) WithExt(ext any) *State {
	c := *s
	c.Ext = ext
	return &c
}
