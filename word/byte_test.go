package word

import "testing"

func TestWordByteRoundTrip(t *testing.T) {
	w := FromUint256(mustUint256("0x0102030405060708090a0b0c0d0e0f101112131415161718191a1b1c1d1e1f20"))
	bs := WordToBytes(w)
	got := BytesToWord(bs)
	if !got.Equal(w) {
		t.Errorf("BytesToWord(WordToBytes(w)) = %s, want %s", got, w)
	}
}

func TestWordByteRoundTripSymbolic(t *testing.T) {
	w := Symbol("x")
	bs := WordToBytes(w)
	for i, b := range bs {
		if b.IsConcrete() {
			t.Fatalf("byte %d of symbolic word should be symbolic", i)
		}
	}
}
