// Package abi builds symbolic calldata for a test function per spec.md §6:
// a fixed-length byte vector whose head/tail layout mirrors the Solidity ABI,
// populated with fresh symbolic constants named after their source
// parameter.
package abi

import (
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/crypto"

	"github.com/arr4n/symtest/word"
)

// CalldataSize is the fixed vector length spec.md §4.2 allocates for
// calldata ("a fixed 10,000-byte vector").
const CalldataSize = 10_000

// A Param is one function-input entry, as described by a driver-supplied
// ABI. Supported Types: uint<N>, int<N>, address, bool, bytes<N> (fixed),
// bytes, string, and any of the foregoing suffixed "[K]" (fixed-size array).
// tuple and "[]" (dynamic array) are rejected with an error.
type Param struct {
	Name string
	Type string
}

// An Entry is one ABI function entry: a name and its ordered inputs. Method
// selectors are computed from it via Selector.
type Entry struct {
	Name   string
	Inputs []Param
}

// Selector returns the 4-byte Keccak-256 function selector for e, per the
// standard Solidity ABI convention.
func (e Entry) Selector() [4]byte {
	sig := e.Name + "(" + strings.Join(canonicalTypes(e.Inputs), ",") + ")"
	h := crypto.Keccak256([]byte(sig))
	var sel [4]byte
	copy(sel[:], h[:4])
	return sel
}

func canonicalTypes(params []Param) []string {
	out := make([]string, len(params))
	for i, p := range params {
		out[i] = p.Type
	}
	return out
}

// ArrLen maps a bytes/string parameter name to the tail byte-length used
// when laying it out, per spec.md §6's `arrlen` driver input.
type ArrLen map[string]int

// A Bound records the byte-length actually used for one bytes/string
// parameter, for the "bounds: [...]" line of a test's report (spec.md §6's
// "list of bound sizes" output, carried into halmos's `dyn_param_size`).
type Bound struct {
	Name   string
	Length int
}

// Build lays out symbolic calldata for e, returning CalldataSize bytes whose
// first four are e's concrete selector and whose head/tail area follows
// spec.md §6 exactly, plus the bounds chosen for any bytes/string
// parameter. defaultLen is used for any such parameter absent from lens
// (spec.md §6: "defaulting to max_loop").
func Build(e Entry, lens ArrLen, defaultLen int) ([]word.Byte, []Bound, error) {
	cd := make([]word.Byte, CalldataSize)
	sel := e.Selector()
	for i, b := range sel {
		cd[i] = word.ByteFromConcrete(b)
	}

	headOff := 4
	tailOff := headOff + 32*len(e.Inputs)
	var bounds []Bound

	for _, p := range e.Inputs {
		base, elems, isArray, err := parseType(p.Type)
		if err != nil {
			return nil, nil, fmt.Errorf("abi: parameter %q: %w", p.Name, err)
		}

		n := 1
		if isArray {
			n = elems
		}

		switch base {
		case "bytes", "string":
			if isArray {
				return nil, nil, fmt.Errorf("abi: parameter %q: dynamic-array-of-%s not supported", p.Name, base)
			}
			length := defaultLen
			if l, ok := lens[p.Name]; ok {
				length = l
			}
			bounds = append(bounds, Bound{Name: p.Name, Length: length})
			off, n := writeDynamic(cd, tailOff, p.Name, base, length)
			writeWord(cd, headOff, word.FromUint64(uint64(off-4)))
			headOff += 32
			tailOff += n
			continue
		}

		for i := 0; i < n; i++ {
			name := fmt.Sprintf("p_%s_%s", p.Name, base)
			if isArray {
				name = fmt.Sprintf("p_%s_%d_%s", p.Name, i, base)
			}
			writeWord(cd, headOff, word.Symbol(name))
			headOff += 32
		}
	}

	return cd, bounds, nil
}

// writeDynamic lays out a bytes/string tail entry (32-byte length, then
// length bytes of fresh symbolic data, zero-padded to a 32-byte boundary),
// returning the tail entry's own offset and its total on-wire size.
func writeDynamic(cd []word.Byte, at int, name, base string, length int) (offset, size int) {
	offset = at
	writeWord(cd, at, word.FromUint64(uint64(length)))
	at += 32

	dataName := fmt.Sprintf("p_%s_%s", name, base)
	for i := 0; i < length; i++ {
		cd[at+i] = word.ByteFromExpr(word.UF(dataName, word.FromUint64(uint64(i)).ToExpr()))
	}
	padded := ((length + 31) / 32) * 32
	return offset, 32 + padded
}

func writeWord(cd []word.Byte, at int, w word.Word) {
	bs := word.WordToBytes(w)
	for i, b := range bs {
		cd[at+i] = b
	}
}

// parseType splits a Solidity ABI type into its base type and, if
// array-suffixed ("[K]"), its element count. tuple and bare "[]" are
// rejected.
func parseType(t string) (base string, elems int, isArray bool, err error) {
	if strings.Contains(t, "tuple") {
		return "", 0, false, fmt.Errorf("not supported: tuple")
	}
	open := strings.IndexByte(t, '[')
	if open < 0 {
		return t, 0, false, nil
	}
	bracketClose := strings.IndexByte(t, ']')
	if bracketClose <= open+1 {
		return "", 0, false, fmt.Errorf("not supported: dynamic array %q", t)
	}
	var n int
	if _, serr := fmt.Sscanf(t[open+1:bracketClose], "%d", &n); serr != nil || n <= 0 {
		return "", 0, false, fmt.Errorf("not supported: dynamic array %q", t)
	}
	return t[:open], n, true, nil
}
