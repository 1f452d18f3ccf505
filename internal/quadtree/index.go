package quadtree

import (
	"encoding/binary"
	"errors"
	"fmt"
	"sort"
)

// ErrBadLayout is returned by Load when the buffer does not describe a
// valid packed index: truncated, counts exceeding the buffer, unsorted
// arrays, or a tag_offset out of range.
var ErrBadLayout = errors.New("quadtree: bad index layout")

const (
	flagHasVersion    = 1 << 0
	flagHasCRC        = 1 << 1
	flagHasDataHandle = 1 << 3
)

const headerSize = 8 + 1 + 1 + 2 // root_tilekey, depth, parent_count, subkey_count
const subEntrySize = 2 + 2       // sub_quadkey, tag_offset
const parentEntrySize = 8 + 4    // key, tag_offset

// Entry is the resolved content of one tag: a data handle and/or a
// catalog version. HasVersion/HasDataHandle mirror the tag's flag bits;
// an Entry with neither set is never returned from Find (it is treated
// as a miss).
type Entry struct {
	DataHandle    string
	Version       uint64
	HasVersion    bool
	HasDataHandle bool
}

// Node is one (tile, data handle, version) triple fed to Build. Leave
// HasDataHandle/HasVersion false to model an entry present in the index
// but unresolvable, per the packed format's reserved semantics.
type Node struct {
	Tile          TileKey
	DataHandle    string
	Version       uint64
	HasVersion    bool
	HasDataHandle bool
}

// NewNode builds a fully-resolved node: both version and data handle set.
func NewNode(tile TileKey, dataHandle string, version uint64) Node {
	return Node{Tile: tile, DataHandle: dataHandle, Version: version, HasVersion: true, HasDataHandle: true}
}

type subEntry struct {
	subQuadkey uint16
	tagOffset  uint16
}

type parentEntry struct {
	key       uint64
	tagOffset uint32
}

// Index is a read-only, random-access view over a packed quad-tree
// response. Load decodes the two sorted entry arrays once; lookups are
// binary searches over those decoded arrays, not over the packed bytes
// in place, and only the matching tag is decoded from the buffer. There
// is no intermediate tree.
type Index struct {
	raw []byte

	root        TileKey
	depth       uint8
	parentCount uint8

	subs    []subEntry
	parents []parentEntry

	dataStart int
}

// Raw returns the packed buffer backing the index. The slice must not be
// mutated; Build's output is self-contained and safe to persist as-is.
func (idx *Index) Raw() []byte { return idx.raw }

// Root returns the tile the index is rooted at.
func (idx *Index) Root() TileKey { return idx.root }

// Depth returns the number of descendant levels covered below Root.
func (idx *Index) Depth() uint8 { return idx.depth }

// Load parses buf as a packed quad-tree index without copying the
// buffer. It validates header counts against the buffer length and the
// strict ordering of both sorted arrays; it does not parse any tags.
func Load(buf []byte) (*Index, error) {
	if len(buf) < headerSize {
		return nil, fmt.Errorf("%w: buffer shorter than header (%d bytes)", ErrBadLayout, len(buf))
	}

	rootCode := binary.LittleEndian.Uint64(buf[0:8])
	depth := buf[8]
	parentCount := buf[9]
	subkeyCount := binary.LittleEndian.Uint16(buf[10:12])

	root, err := FromHereTile(rootCode)
	if err != nil {
		return nil, fmt.Errorf("%w: root tile: %v", ErrBadLayout, err)
	}

	subsEnd := headerSize + int(subkeyCount)*subEntrySize
	parentsEnd := subsEnd + int(parentCount)*parentEntrySize
	if len(buf) < parentsEnd {
		return nil, fmt.Errorf("%w: buffer too short for %d sub-entries and %d parent-entries", ErrBadLayout, subkeyCount, parentCount)
	}

	subs := make([]subEntry, subkeyCount)
	for i := range subs {
		off := headerSize + i*subEntrySize
		subs[i] = subEntry{
			subQuadkey: binary.LittleEndian.Uint16(buf[off : off+2]),
			tagOffset:  binary.LittleEndian.Uint16(buf[off+2 : off+4]),
		}
		if i > 0 && subs[i-1].subQuadkey >= subs[i].subQuadkey {
			return nil, fmt.Errorf("%w: sub-entries not strictly ascending", ErrBadLayout)
		}
	}

	parents := make([]parentEntry, parentCount)
	for i := range parents {
		off := subsEnd + i*parentEntrySize
		parents[i] = parentEntry{
			key:       binary.LittleEndian.Uint64(buf[off : off+8]),
			tagOffset: binary.LittleEndian.Uint32(buf[off+8 : off+12]),
		}
		if i > 0 && parents[i-1].key >= parents[i].key {
			return nil, fmt.Errorf("%w: parent-entries not strictly ascending", ErrBadLayout)
		}
	}

	dataLen := len(buf) - parentsEnd
	for _, s := range subs {
		if int(s.tagOffset) >= dataLen {
			return nil, fmt.Errorf("%w: sub-entry tag_offset %d out of range", ErrBadLayout, s.tagOffset)
		}
	}
	for _, p := range parents {
		if int(p.tagOffset) >= dataLen {
			return nil, fmt.Errorf("%w: parent-entry tag_offset %d out of range", ErrBadLayout, p.tagOffset)
		}
	}

	return &Index{
		raw:         buf,
		root:        root,
		depth:       depth,
		parentCount: parentCount,
		subs:        subs,
		parents:     parents,
		dataStart:   parentsEnd,
	}, nil
}

// Build constructs a self-contained index from decoded nodes: entries
// within depth levels below root become sub-entries, everything else
// becomes a parent-entry. Both arrays are sorted and tags are packed
// into a single contiguous data section with tag_offset rewritten to
// absolute byte offsets from the start of that section.
func Build(root TileKey, depth uint8, nodes []Node) (*Index, error) {
	type tagged struct {
		node Node
		tag  []byte
	}

	var subsT, parentsT []tagged
	for _, n := range nodes {
		tag := encodeTag(n)
		d := int(n.Tile.Level) - int(root.Level)
		if d >= 0 && d <= int(depth) && root.IsAncestorOf(n.Tile) {
			subsT = append(subsT, tagged{node: n, tag: tag})
		} else {
			parentsT = append(parentsT, tagged{node: n, tag: tag})
		}
	}

	sort.Slice(subsT, func(i, j int) bool {
		return subsT[i].node.Tile.SubQuadkeyAt(uint32(subsT[i].node.Tile.Level-root.Level)) <
			subsT[j].node.Tile.SubQuadkeyAt(uint32(subsT[j].node.Tile.Level-root.Level))
	})
	sort.Slice(parentsT, func(i, j int) bool {
		return parentsT[i].node.Tile.ToHereTile() < parentsT[j].node.Tile.ToHereTile()
	})

	var data []byte
	subs := make([]subEntry, 0, len(subsT))
	for _, t := range subsT {
		off := len(data)
		data = append(data, t.tag...)
		d := uint32(t.node.Tile.Level - root.Level)
		subs = append(subs, subEntry{subQuadkey: t.node.Tile.SubQuadkeyAt(d), tagOffset: uint16(off)})
	}
	parents := make([]parentEntry, 0, len(parentsT))
	for _, t := range parentsT {
		off := len(data)
		data = append(data, t.tag...)
		parents = append(parents, parentEntry{key: t.node.Tile.ToHereTile(), tagOffset: uint32(off)})
	}

	buf := make([]byte, 0, headerSize+len(subs)*subEntrySize+len(parents)*parentEntrySize+len(data))
	var hdr [headerSize]byte
	binary.LittleEndian.PutUint64(hdr[0:8], root.ToHereTile())
	hdr[8] = depth
	hdr[9] = byte(len(parents))
	binary.LittleEndian.PutUint16(hdr[10:12], uint16(len(subs)))
	buf = append(buf, hdr[:]...)

	for _, s := range subs {
		var b [subEntrySize]byte
		binary.LittleEndian.PutUint16(b[0:2], s.subQuadkey)
		binary.LittleEndian.PutUint16(b[2:4], s.tagOffset)
		buf = append(buf, b[:]...)
	}
	for _, p := range parents {
		var b [parentEntrySize]byte
		binary.LittleEndian.PutUint64(b[0:8], p.key)
		binary.LittleEndian.PutUint32(b[8:12], p.tagOffset)
		buf = append(buf, b[:]...)
	}
	buf = append(buf, data...)

	return Load(buf)
}

func encodeTag(n Node) []byte {
	var flags byte
	if n.HasVersion {
		flags |= flagHasVersion
	}
	if n.HasDataHandle {
		flags |= flagHasDataHandle
	}
	tag := []byte{flags}
	if n.HasVersion {
		var v [8]byte
		binary.LittleEndian.PutUint64(v[:], n.Version)
		tag = append(tag, v[:]...)
	}
	if n.HasDataHandle {
		tag = append(tag, []byte(n.DataHandle)...)
		tag = append(tag, 0)
	}
	return tag
}

// decodeTag parses the tag starting at offset off within the data
// section. The HasCrc bit is reserved: per spec this implementation
// never reads past it, it only affects bits we don't understand yet.
func (idx *Index) decodeTag(off int) (Entry, error) {
	data := idx.raw[idx.dataStart:]
	if off < 0 || off >= len(data) {
		return Entry{}, fmt.Errorf("%w: tag_offset %d out of range", ErrBadLayout, off)
	}
	flags := data[off]
	pos := off + 1

	var e Entry
	if flags&flagHasVersion != 0 {
		if pos+8 > len(data) {
			return Entry{}, fmt.Errorf("%w: truncated version tag", ErrBadLayout)
		}
		e.Version = binary.LittleEndian.Uint64(data[pos : pos+8])
		e.HasVersion = true
		pos += 8
	}
	if flags&flagHasDataHandle != 0 {
		end := pos
		for end < len(data) && data[end] != 0 {
			end++
		}
		if end >= len(data) {
			return Entry{}, fmt.Errorf("%w: unterminated data handle", ErrBadLayout)
		}
		e.DataHandle = string(data[pos:end])
		e.HasDataHandle = true
	}
	return e, nil
}

// Find resolves tile against the index: a descendant within Depth is
// resolved via the sub-entry array, an ancestor within the response's
// parent_count is resolved via the parent-entry array, anything else is
// a miss. Lookups never return an error; absence is reported via ok.
func (idx *Index) Find(tile TileKey) (Entry, bool) {
	if tile.Level >= idx.root.Level && tile.Level-idx.root.Level <= uint32(idx.depth) && idx.root.IsAncestorOf(tile) {
		sub := tile.SubQuadkeyAt(tile.Level - idx.root.Level)
		i := sort.Search(len(idx.subs), func(i int) bool { return idx.subs[i].subQuadkey >= sub })
		if i < len(idx.subs) && idx.subs[i].subQuadkey == sub {
			e, err := idx.decodeTag(int(idx.subs[i].tagOffset))
			if err != nil {
				return Entry{}, false
			}
			if !e.HasVersion && !e.HasDataHandle {
				return Entry{}, false
			}
			return e, true
		}
		return Entry{}, false
	}

	if tile.Level < idx.root.Level && idx.root.Level-tile.Level <= uint32(idx.parentCount) && tile.IsAncestorOf(idx.root) {
		key := tile.ToHereTile()
		i := sort.Search(len(idx.parents), func(i int) bool { return idx.parents[i].key >= key })
		if i < len(idx.parents) && idx.parents[i].key == key {
			e, err := idx.decodeTag(int(idx.parents[i].tagOffset))
			if err != nil {
				return Entry{}, false
			}
			if !e.HasVersion && !e.HasDataHandle {
				return Entry{}, false
			}
			return e, true
		}
		return Entry{}, false
	}

	return Entry{}, false
}

// SubTiles returns the absolute TileKeys of every sub-entry, in
// ascending sub-quadkey order. Used by the removal path to enumerate a
// quad-tree's covered descendants without re-parsing tags.
func (idx *Index) SubTiles() []TileKey {
	out := make([]TileKey, len(idx.subs))
	for i, s := range idx.subs {
		out[i] = tileFromSubEntry(idx.root, uint32(idx.depth), s.subQuadkey)
	}
	return out
}

// tileFromSubEntry reconstructs a descendant's absolute TileKey from its
// sub-entry. The sub-quadkey's bit width depends on the descendant's own
// depth below root, which we recover from the code's highest set bit
// (same convention as a here-tile code, see SubQuadkeyAt).
func tileFromSubEntry(root TileKey, maxDepth uint32, sub uint16) TileKey {
	code := uint64(sub)
	totalBits := 0
	for c := code; c > 1; c >>= 1 {
		totalBits++
	}
	d := uint32(totalBits / 2)
	if d > maxDepth {
		d = maxDepth
	}
	return TileAt(root, d, sub)
}
