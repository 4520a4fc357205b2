package main

import (
	"testing"

	"github.com/arr4n/symtest/word"
)

func TestParseDispatch(t *testing.T) {
	tests := []struct {
		in      string
		want    word.Dispatch
		wantErr bool
	}{
		{"", word.Native, false},
		{"native", word.Native, false},
		{"Native", word.Native, false},
		{"uf", word.UF_, false},
		{"UF", word.UF_, false},
		{"bogus", 0, true},
	}
	for _, tt := range tests {
		got, err := parseDispatch(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("parseDispatch(%q) err = %v, wantErr %v", tt.in, err, tt.wantErr)
			continue
		}
		if err == nil && got != tt.want {
			t.Errorf("parseDispatch(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestHexDecode(t *testing.T) {
	got, err := hexDecode("0x01ab")
	if err != nil {
		t.Fatal(err)
	}
	want := []byte{0x01, 0xab}
	if len(got) != len(want) || got[0] != want[0] || got[1] != want[1] {
		t.Errorf("hexDecode = %x, want %x", got, want)
	}

	if _, err := hexDecode("0x0"); err == nil {
		t.Error("hexDecode with odd-length string: want error, got nil")
	}
}

func TestParseSelector(t *testing.T) {
	sel, err := parseSelector("0xa5d059ca")
	if err != nil {
		t.Fatal(err)
	}
	want := [4]byte{0xa5, 0xd0, 0x59, 0xca}
	if sel != want {
		t.Errorf("parseSelector = %x, want %x", sel, want)
	}

	if _, err := parseSelector("0x0102"); err == nil {
		t.Error("parseSelector with < 4 bytes: want error, got nil")
	}
}

func TestTestsFiltering(t *testing.T) {
	entries := []abiEntryJSON{
		{Type: "function", Name: "setUp"},
		{Type: "function", Name: "test_trivial"},
		{Type: "function", Name: "helperNotATest"},
		{Type: "function", Name: "test_add", Inputs: []paramRef{
			{Name: "x", Type: "uint256"},
			{Name: "y", Type: "uint256"},
		}},
	}
	got := tests(entries)
	if len(got) != 2 {
		t.Fatalf("tests() returned %d entries, want 2: %+v", len(got), got)
	}
	if got[0].Name != "test_trivial" || got[1].Name != "test_add" {
		t.Errorf("tests() = %+v, want test_trivial then test_add", got)
	}
	if len(got[1].Inputs) != 2 {
		t.Errorf("test_add inputs = %+v, want 2 params", got[1].Inputs)
	}
}
