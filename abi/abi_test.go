package abi

import (
	"strings"
	"testing"

	"github.com/arr4n/symtest/word"
)

func TestSelectorMatchesKnownSignature(t *testing.T) {
	// transfer(address,uint256) selector is the textbook 0xa9059cbb.
	e := Entry{Name: "transfer", Inputs: []Param{{Name: "to", Type: "address"}, {Name: "amount", Type: "uint256"}}}
	sel := e.Selector()
	want := [4]byte{0xa9, 0x05, 0x9c, 0xbb}
	if sel != want {
		t.Errorf("Selector() = %x, want %x", sel, want)
	}
}

func TestBuildPrimitiveHeadLayout(t *testing.T) {
	e := Entry{Name: "test_add", Inputs: []Param{{Name: "x", Type: "uint256"}, {Name: "y", Type: "uint256"}}}
	cd, _, err := Build(e, nil, 2)
	if err != nil {
		t.Fatal(err)
	}
	if len(cd) != CalldataSize {
		t.Fatalf("len(cd) = %d, want %d", len(cd), CalldataSize)
	}
	xWord := word.BytesToWord([32]word.Byte(cd[4:36]))
	yWord := word.BytesToWord([32]word.Byte(cd[36:68]))
	if !strings.Contains(xWord.String(), "p_x_uint256") {
		t.Errorf("head slot for x = %v, want a symbol named p_x_uint256", xWord)
	}
	if !strings.Contains(yWord.String(), "p_y_uint256") {
		t.Errorf("head slot for y = %v, want a symbol named p_y_uint256", yWord)
	}
}

func TestBuildFixedArrayNaming(t *testing.T) {
	e := Entry{Name: "test_arr", Inputs: []Param{{Name: "xs", Type: "uint256[2]"}}}
	cd, _, err := Build(e, nil, 2)
	if err != nil {
		t.Fatal(err)
	}
	x0 := word.BytesToWord([32]word.Byte(cd[4:36]))
	x1 := word.BytesToWord([32]word.Byte(cd[36:68]))
	if !strings.Contains(x0.String(), "p_xs_0_uint256") {
		t.Errorf("head slot 0 = %v, want p_xs_0_uint256", x0)
	}
	if !strings.Contains(x1.String(), "p_xs_1_uint256") {
		t.Errorf("head slot 1 = %v, want p_xs_1_uint256", x1)
	}
}

func TestBuildBytesTailLayout(t *testing.T) {
	e := Entry{Name: "test_bytes", Inputs: []Param{{Name: "b", Type: "bytes"}}}
	cd, _, err := Build(e, ArrLen{"b": 64}, 2)
	if err != nil {
		t.Fatal(err)
	}
	ptr := word.BytesToWord([32]word.Byte(cd[4:36]))
	v, ok := ptr.Uint256()
	if !ok || !v.IsUint64() {
		t.Fatalf("head pointer not concrete: %v", ptr)
	}
	// Offset is relative to the start of the args area (byte 4), so the
	// tail length word lives at 4 + offset.
	tailLenOff := 4 + int(v.Uint64())
	length := word.BytesToWord([32]word.Byte(cd[tailLenOff : tailLenOff+32]))
	if !length.Equal(word.FromUint64(64)) {
		t.Errorf("tail length = %v, want 64", length)
	}
}

func TestBuildReturnsBounds(t *testing.T) {
	e := Entry{Name: "test_bytes", Inputs: []Param{
		{Name: "b", Type: "bytes"},
		{Name: "s", Type: "string"},
	}}
	_, bounds, err := Build(e, ArrLen{"b": 64}, 2)
	if err != nil {
		t.Fatal(err)
	}
	want := []Bound{{Name: "b", Length: 64}, {Name: "s", Length: 2}}
	if len(bounds) != len(want) {
		t.Fatalf("got %d bounds, want %d", len(bounds), len(want))
	}
	for i := range want {
		if bounds[i] != want[i] {
			t.Errorf("bounds[%d] = %+v, want %+v", i, bounds[i], want[i])
		}
	}
}

func TestBuildRejectsDynamicArray(t *testing.T) {
	e := Entry{Name: "test_bad", Inputs: []Param{{Name: "xs", Type: "uint256[]"}}}
	if _, _, err := Build(e, nil, 2); err == nil {
		t.Error("Build with a dynamic-array parameter did not error")
	}
}

func TestBuildRejectsTuple(t *testing.T) {
	e := Entry{Name: "test_bad", Inputs: []Param{{Name: "t", Type: "tuple"}}}
	if _, _, err := Build(e, nil, 2); err == nil {
		t.Error("Build with a tuple parameter did not error")
	}
}
