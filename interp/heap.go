package interp

import (
	"math/big"
	"sort"
)

// ---------------------------------------------------------------------------
// Heap: sparse addressable memory
// ---------------------------------------------------------------------------

// Heap maps arbitrary-precision addresses to values. It starts empty and
// is owned by exactly one run; loads of never-stored addresses are faults
// surfaced by the interpreter.
type Heap struct {
	cells map[string]*big.Int
}

// NewHeap returns an empty heap.
func NewHeap() *Heap {
	return &Heap{cells: make(map[string]*big.Int)}
}

// Store writes a value at an address.
func (h *Heap) Store(addr, val *big.Int) {
	h.cells[addr.String()] = new(big.Int).Set(val)
}

// Load reads the value at an address; ok is false when the address was
// never stored.
func (h *Heap) Load(addr *big.Int) (*big.Int, bool) {
	v, ok := h.cells[addr.String()]
	return v, ok
}

// Len returns the number of populated cells.
func (h *Heap) Len() int { return len(h.cells) }

// Snapshot returns the populated addresses in sorted textual order, for
// diagnostic dumps.
func (h *Heap) Snapshot() []HeapCell {
	cells := make([]HeapCell, 0, len(h.cells))
	for addr, val := range h.cells {
		cells = append(cells, HeapCell{Addr: addr, Val: val.String()})
	}
	sort.Slice(cells, func(i, j int) bool { return cells[i].Addr < cells[j].Addr })
	return cells
}

// HeapCell is one populated heap cell in textual form.
type HeapCell struct {
	Addr string
	Val  string
}
