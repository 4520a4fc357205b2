package bytecode

import "testing"

func TestParseSrcMapInheritance(t *testing.T) {
	// "1:2:0:-:0;;3::1" — second entry inherits everything, third
	// overrides only start and file_id.
	got, err := ParseSrcMap("1:2:0:-:0;;3::1")
	if err != nil {
		t.Fatal(err)
	}
	want := []SrcMap{
		{Start: 1, Length: 2, FileID: 0, Jump: "-", ModifierDepth: 0},
		{Start: 1, Length: 2, FileID: 0, Jump: "-", ModifierDepth: 0},
		{Start: 3, Length: 2, FileID: 1, Jump: "-", ModifierDepth: 0},
	}
	if len(got) != len(want) {
		t.Fatalf("got %d entries, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("entry %d = %+v, want %+v", i, got[i], want[i])
		}
	}
}

func TestParseSrcMapEmpty(t *testing.T) {
	got, err := ParseSrcMap("")
	if err != nil {
		t.Fatal(err)
	}
	if got != nil {
		t.Errorf("ParseSrcMap(\"\") = %v, want nil", got)
	}
}

func TestAttachSrcMap(t *testing.T) {
	p, err := Decode("0x6001600201" + "00")
	if err != nil {
		t.Fatal(err)
	}
	entries, err := ParseSrcMap("10:1:0:-:0;20:2:0:-:0;30:1:0:-:0;40:1:0:-:0")
	if err != nil {
		t.Fatal(err)
	}
	p.AttachSrcMap(entries)
	for i, want := range entries {
		if got := p.Ops[i].Src; got != want {
			t.Errorf("Ops[%d].Src = %+v, want %+v", i, got, want)
		}
	}
}
