package state

import (
	"encoding/hex"
	"fmt"

	"github.com/ethereum/go-ethereum/crypto"

	"github.com/arr4n/symtest/word"
)

// A storageWrite records one SSTORE, in program order, keyed by the
// (possibly symbolic) slot it targets.
type storageWrite struct {
	key, val word.Word
}

// Storage is a per-account mapping from symbolic 256-bit key to symbolic
// 256-bit value (spec.md §3/§4.5), represented functionally as a write
// history rather than mutating any single array term in place, so that
// Clone is a cheap slice copy and every fork sees exactly the writes made on
// its own path.
type Storage struct {
	cfg  word.Config
	gen  int
	hist []storageWrite
	// cold caches the fresh constant minted for each distinct cold-read
	// key (fingerprinted by keyFingerprint), so repeated SLOADs of the
	// same never-written slot observe the same value instead of a new
	// unconstrained symbol each time.
	cold map[string]word.Word
}

// NewStorage returns an empty Storage at generation gen. gen is folded into
// the name of every fresh symbolic constant minted by Load on a cold key, so
// that re-execution of the same path produces byte-identical names (spec.md
// §3: "storages: history of storage generations, for fresh-name
// determinism").
func NewStorage(cfg word.Config, gen int) *Storage {
	return &Storage{cfg: cfg, gen: gen, cold: map[string]word.Word{}}
}

// keyFingerprint derives a short, deterministic fingerprint of key's
// structure (its concrete value or its expression tree), per spec.md §4.5's
// "named deterministically from the key's structural hash". Keccak256 is
// the domain hash already used throughout the engine (SHA3 opcode, ABI
// selectors), rather than reaching for a stdlib hash for this one spot.
func keyFingerprint(key word.Word) string {
	sum := crypto.Keccak256([]byte(key.String()))
	return hex.EncodeToString(sum[:8])
}

// coldConstant returns the canonical fresh constant for a cold read of key,
// minting and caching it on first access so every subsequent cold read of
// the structurally-same key returns the identical Word (spec.md §4.5).
func (s *Storage) coldConstant(key word.Word, fresh func(kind string) string) word.Word {
	fp := keyFingerprint(key)
	if w, ok := s.cold[fp]; ok {
		return w
	}
	w := word.Symbol(fresh(fmt.Sprintf("storage_%d_%s", s.gen, fp)))
	s.cold[fp] = w
	return w
}

// Store records val at key, shadowing any earlier write to the same or an
// aliasing key.
func (s *Storage) Store(key, val word.Word) {
	s.hist = append(s.hist, storageWrite{key: key, val: val})
}

// Load returns the value at key: the most recent write whose key is
// structurally equal (folded as a concrete match when both are concrete),
// or — for a key the history cannot prove distinct from — a conditional
// select over the whole history terminating in a cold-read fallback.
//
// fresh is the Namer used to mint the cold-read constant deterministically;
// callers pass Exec.Fresh so the name also encodes the opcode counter.
func (s *Storage) Load(key word.Word, fresh func(kind string) string) word.Word {
	if key.IsConcrete() {
		for i := len(s.hist) - 1; i >= 0; i-- {
			w := s.hist[i]
			if w.key.IsConcrete() && w.key.Equal(key) {
				return w.val
			}
			if w.key.IsSymbolic() {
				// A prior symbolic-key write might alias this concrete key;
				// fall through to the general ITE-chain reconstruction.
				return s.loadSymbolic(key, fresh)
			}
		}
		return s.coldConstant(key, fresh)
	}
	return s.loadSymbolic(key, fresh)
}

// loadSymbolic builds the general-case nested ITE: most recent write first,
// each guarded by key equality, terminating in a single fresh cold-read
// constant.
func (s *Storage) loadSymbolic(key word.Word, fresh func(kind string) string) word.Word {
	acc := s.coldConstant(key, fresh)
	for i := len(s.hist) - 1; i >= 0; i-- {
		w := s.hist[i]
		cond := word.NotZero(word.Eq(key, w.key))
		acc = word.Ite(cond, w.val, acc)
	}
	return acc
}

// Clone returns a deep copy of s, including the cold-read cache (so a key
// already read before the fork resolves to the same constant on both
// branches), and bumps the generation counter so that any key *not yet*
// cold-read mints a distinctly-named constant independently per fork.
func (s *Storage) Clone(nextGen int) *Storage {
	cp := &Storage{cfg: s.cfg, gen: nextGen, hist: make([]storageWrite, len(s.hist)), cold: make(map[string]word.Word, len(s.cold))}
	copy(cp.hist, s.hist)
	for k, v := range s.cold {
		cp.cold[k] = v
	}
	return cp
}
