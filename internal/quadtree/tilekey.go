// Package quadtree implements the packed, read-only quad-tree index
// format used to resolve tile keys to data handles, and the TileKey
// arithmetic the format is built on.
package quadtree

import (
	"fmt"
	"math/bits"
	"strconv"
)

// TileKey identifies a node in the global quadtree: level plus a
// row/col pair in [0, 2^level).
type TileKey struct {
	Level uint32
	Row   uint64
	Col   uint64
}

// Invalid reports whether row or col exceed the bounds implied by level.
func (t TileKey) Invalid() bool {
	if t.Level >= 64 {
		return true
	}
	bound := uint64(1) << t.Level
	return t.Row >= bound || t.Col >= bound
}

// Parent returns the tile one level up. The root tile (level 0) has no
// parent.
func (t TileKey) Parent() (TileKey, error) {
	if t.Level == 0 {
		return TileKey{}, fmt.Errorf("quadtree: root tile has no parent")
	}
	return TileKey{Level: t.Level - 1, Row: t.Row >> 1, Col: t.Col >> 1}, nil
}

// ChangedLevelBy returns the tile obtained by moving delta levels up
// (delta < 0) or down (delta > 0) the quadtree, clamped at level 0.
// Moving down loses information: the lowest bits of row/col are zero,
// i.e. the result is the first (Morton-order) descendant at that level.
func (t TileKey) ChangedLevelBy(delta int) TileKey {
	newLevel := int(t.Level) + delta
	if newLevel < 0 {
		newLevel = 0
	}
	shift := int(t.Level) - newLevel
	if shift >= 0 {
		return TileKey{Level: uint32(newLevel), Row: t.Row >> uint(shift), Col: t.Col >> uint(shift)}
	}
	left := uint(-shift)
	return TileKey{Level: uint32(newLevel), Row: t.Row << left, Col: t.Col << left}
}

// IsAncestorOf reports whether t is an ancestor of other, i.e. other
// lies within t's subtree.
func (t TileKey) IsAncestorOf(other TileKey) bool {
	if other.Level < t.Level {
		return false
	}
	candidate := other.ChangedLevelBy(int(t.Level) - int(other.Level))
	return candidate == t
}

// SubQuadkeyAt returns the 2*depth-bit Morton-ordered local index of t
// within the ancestor depth levels above it. depth == 0 always yields 1
// (the tile is its own root).
func (t TileKey) SubQuadkeyAt(depth uint32) uint16 {
	key := uint64(1)
	for d := depth; d > 0; d-- {
		shift := d - 1
		rowBit := (t.Row >> shift) & 1
		colBit := (t.Col >> shift) & 1
		quadrant := (rowBit << 1) | colBit
		key = (key << 2) | quadrant
	}
	return uint16(key)
}

// ToHereTile encodes t as an absolute "here-tile" code: a leading 1 bit
// followed by the 2-bit Morton quadrant of each level from 1 to t.Level.
func (t TileKey) ToHereTile() uint64 {
	key := uint64(1)
	for l := t.Level; l > 0; l-- {
		shift := l - 1
		rowBit := (t.Row >> shift) & 1
		colBit := (t.Col >> shift) & 1
		quadrant := (rowBit << 1) | colBit
		key = (key << 2) | quadrant
	}
	return key
}

// FromHereTile decodes an absolute here-tile code back into a TileKey.
func FromHereTile(code uint64) (TileKey, error) {
	if code == 0 {
		return TileKey{}, fmt.Errorf("quadtree: here-tile code must be non-zero")
	}
	totalBits := bits.Len64(code) - 1
	if totalBits%2 != 0 {
		return TileKey{}, fmt.Errorf("quadtree: malformed here-tile code %d", code)
	}
	level := uint32(totalBits / 2)
	var row, col uint64
	for l := uint32(0); l < level; l++ {
		shift := uint(2 * (level - l - 1))
		quadrant := (code >> shift) & 3
		row = (row << 1) | (quadrant >> 1)
		col = (col << 1) | (quadrant & 1)
	}
	return TileKey{Level: level, Row: row, Col: col}, nil
}

// HereTileString renders t as the decimal string form used on the wire
// and as a cache-key component.
func (t TileKey) HereTileString() string {
	return strconv.FormatUint(t.ToHereTile(), 10)
}

// ParseHereTileString parses the decimal here-tile string produced by
// HereTileString.
func ParseHereTileString(s string) (TileKey, error) {
	code, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return TileKey{}, fmt.Errorf("quadtree: invalid here-tile string %q: %w", s, err)
	}
	return FromHereTile(code)
}

// subQuadkeyToRowCol decodes a depth-bounded local index (as produced by
// SubQuadkeyAt) back into a row/col offset relative to the ancestor.
func subQuadkeyToRowCol(sub uint16, depth uint32) (row, col uint64) {
	code := uint64(sub)
	for l := uint32(0); l < depth; l++ {
		shift := uint(2 * (depth - l - 1))
		quadrant := (code >> shift) & 3
		row = (row << 1) | (quadrant >> 1)
		col = (col << 1) | (quadrant & 1)
	}
	return row, col
}

// TileAt reconstructs the absolute TileKey of the descendant identified
// by a local sub-quadkey depth levels below root.
func TileAt(root TileKey, depth uint32, sub uint16) TileKey {
	localRow, localCol := subQuadkeyToRowCol(sub, depth)
	return TileKey{
		Level: root.Level + depth,
		Row:   root.Row<<depth | localRow,
		Col:   root.Col<<depth | localCol,
	}
}
