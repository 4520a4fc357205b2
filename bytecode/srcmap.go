package bytecode

import (
	"strconv"
	"strings"
)

// A SrcMap is the per-instruction source-map tuple described in spec.md
// §3/§4.2: (start, length, file_id, jump_char, modifier_depth). Decoding
// source text from (start, length, file_id) is the driver's job (spec.md §1
// Non-goals: "Source-map decoding beyond storing a tuple per instruction");
// bytecode only stores the tuple.
type SrcMap struct {
	Start, Length, FileID int
	Jump                  string
	ModifierDepth         int
}

// ParseSrcMap parses a colon-separated solc-style source map, one entry per
// instruction, applying the standard "inherit previous field on empty" rule:
// an empty field repeats the previous entry's value for that field.
// FileID -1 and Jump "-" are the conventional defaults for the very first
// entry's unset fields.
func ParseSrcMap(s string) ([]SrcMap, error) {
	if s == "" {
		return nil, nil
	}
	entries := strings.Split(s, ";")
	out := make([]SrcMap, len(entries))

	cur := SrcMap{FileID: -1, Jump: "-"}
	for i, e := range entries {
		fields := strings.Split(e, ":")
		for len(fields) < 5 {
			fields = append(fields, "")
		}

		if fields[0] != "" {
			v, err := strconv.Atoi(fields[0])
			if err != nil {
				return nil, err
			}
			cur.Start = v
		}
		if fields[1] != "" {
			v, err := strconv.Atoi(fields[1])
			if err != nil {
				return nil, err
			}
			cur.Length = v
		}
		if fields[2] != "" {
			v, err := strconv.Atoi(fields[2])
			if err != nil {
				return nil, err
			}
			cur.FileID = v
		}
		if fields[3] != "" {
			cur.Jump = fields[3]
		}
		if fields[4] != "" {
			v, err := strconv.Atoi(fields[4])
			if err != nil {
				return nil, err
			}
			cur.ModifierDepth = v
		}

		out[i] = cur
	}
	return out, nil
}

// AttachSrcMap walks entries in instruction order and attaches one to each
// Opcode of p, leaving any trailing Opcodes (beyond len(entries)) with the
// zero SrcMap.
func (p *Program) AttachSrcMap(entries []SrcMap) {
	for i := range p.Ops {
		if i >= len(entries) {
			return
		}
		p.Ops[i].Src = entries[i]
	}
}
