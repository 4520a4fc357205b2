package state

import (
	"github.com/arr4n/symtest/word"
)

// memWrite records one Write call, in program order, for the symbolic
// fallback path described in spec.md §4.4.
type memWrite struct {
	offset word.Word
	data   []word.Byte
}

// Memory is the logical byte-addressable store of spec.md §3/§4.4. While
// every offset seen by Write has been concrete, reads are served directly
// from a flat cell map. The first symbolic-offset write switches Memory into
// a mode where every subsequent read — concrete or symbolic — is
// reconstructed as a chain of conditional (ITE) selects over the full write
// history, which is the only way to preserve semantic equivalence under an
// `o1 = o2` equality the path condition later turns out to imply.
type Memory struct {
	cfg word.Config

	cells  map[int]word.Byte
	maxLen int

	history     []memWrite
	hasSymbolic bool
}

// NewMemory returns an empty Memory using cfg for the arithmetic
// (offset comparison) it performs internally.
func NewMemory(cfg word.Config) *Memory {
	return &Memory{cfg: cfg, cells: make(map[int]word.Byte)}
}

// Len returns the current MSIZE value: the highest byte offset touched,
// rounded up to the next multiple of 32. It is exact when every write seen
// so far had a concrete offset and length; once a symbolic-offset write has
// occurred, it is a conservative (non-decreasing) estimate, since the
// effective extent of a symbolic write cannot be known at write time.
func (m *Memory) Len() int {
	if m.maxLen%32 == 0 {
		return m.maxLen
	}
	return m.maxLen + (32 - m.maxLen%32)
}

// Write stores data starting at offset, overwriting any previous bytes in
// that range.
func (m *Memory) Write(offset word.Word, data []word.Byte) {
	m.history = append(m.history, memWrite{offset: offset, data: data})

	if off, ok := offset.Uint256(); ok && off.IsUint64() {
		start := int(off.Uint64())
		if !m.hasSymbolic {
			for i, b := range data {
				m.cells[start+i] = b
			}
		}
		if end := start + len(data); end > m.maxLen {
			m.maxLen = end
		}
		return
	}

	m.hasSymbolic = true
	// Best-effort MSIZE growth: assume the symbolic write could reach
	// just past whatever has already been addressed.
	if end := m.maxLen + len(data); end > m.maxLen {
		m.maxLen = end
	}
}

// Read reconstructs length bytes starting at offset.
func (m *Memory) Read(offset word.Word, length int) []word.Byte {
	if !m.hasSymbolic {
		if off, ok := offset.Uint256(); ok && off.IsUint64() {
			start := int(off.Uint64())
			out := make([]word.Byte, length)
			for i := range out {
				if b, ok := m.cells[start+i]; ok {
					out[i] = b
				} else {
					out[i] = word.ByteFromConcrete(0)
				}
			}
			return out
		}
	}

	out := make([]word.Byte, length)
	for i := range out {
		pos := word.Add(m.cfg, offset, word.FromUint64(uint64(i)))
		out[i] = m.readByte(pos)
	}
	return out
}

// readByte folds the write history, oldest first, into a nested conditional
// selecting the most recent write (if any) that covers pos.
func (m *Memory) readByte(pos word.Word) word.Byte {
	acc := m.fastByte(pos)
	for _, w := range m.history {
		acc = word.ByteIte(m.covers(pos, w), m.selectByte(pos, w), acc)
	}
	return acc
}

// fastByte returns the flat-map value at a concrete pos (before any history
// overlay), or a concrete zero for an unwritten/symbolic position — the
// base case of the ITE chain.
func (m *Memory) fastByte(pos word.Word) word.Byte {
	if off, ok := pos.Uint256(); ok && off.IsUint64() {
		if b, ok := m.cells[int(off.Uint64())]; ok {
			return b
		}
	}
	return word.ByteFromConcrete(0)
}

// covers returns the Boolean-sorted condition "pos falls within w's written
// range", i.e. 0 <= pos-w.offset < len(w.data).
func (m *Memory) covers(pos word.Word, w memWrite) *word.Expr {
	rel := word.Sub(m.cfg, pos, w.offset)
	inRange := word.Lt(rel, word.FromUint64(uint64(len(w.data))))
	return word.NotZero(inRange)
}

// selectByte returns the byte of w.data at relative index pos-w.offset,
// built as a nested ITE over concrete indices when that index is symbolic.
func (m *Memory) selectByte(pos word.Word, w memWrite) word.Byte {
	rel := word.Sub(m.cfg, pos, w.offset)
	if r, ok := rel.Uint256(); ok && r.IsUint64() {
		if idx := r.Uint64(); idx < uint64(len(w.data)) {
			return w.data[idx]
		}
		return word.ByteFromConcrete(0)
	}

	n := len(w.data)
	if n == 0 {
		return word.ByteFromConcrete(0)
	}
	acc := w.data[n-1]
	for j := n - 2; j >= 0; j-- {
		eq := word.NotZero(word.Eq(rel, word.FromUint64(uint64(j))))
		acc = word.ByteIte(eq, w.data[j], acc)
	}
	return acc
}

// Clone returns a deep copy of m.
func (m *Memory) Clone() *Memory {
	cp := &Memory{
		cfg:         m.cfg,
		cells:       make(map[int]word.Byte, len(m.cells)),
		maxLen:      m.maxLen,
		hasSymbolic: m.hasSymbolic,
		history:     make([]memWrite, len(m.history)),
	}
	for k, v := range m.cells {
		cp.cells[k] = v
	}
	copy(cp.history, m.history)
	return cp
}
