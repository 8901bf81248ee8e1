package cmn

import "testing"

func TestAcceptVersion(t *testing.T) {
	cases := []struct {
		accept string
		wantN  int
		wantOK bool
	}{
		{"application/vnd.beaconlibrary.v1+json", 1, true},
		{"application/vnd.beaconlibrary.v42+json", 42, true},
		{"application/json", 0, false},
		{"application/vnd.beaconlibrary.v+json", 0, false},
	}
	for _, c := range cases {
		n, ok := AcceptVersion(c.accept, AcceptProduct)
		if ok != c.wantOK || (ok && n != c.wantN) {
			t.Errorf("AcceptVersion(%q) = (%d, %v), want (%d, %v)", c.accept, n, ok, c.wantN, c.wantOK)
		}
	}
}

func TestSHA256HexEmpty(t *testing.T) {
	if got := SHA256Hex(nil); got != EmptySHA256 {
		t.Errorf("SHA256Hex(nil) = %s, want %s", got, EmptySHA256)
	}
}

func TestErrorKindMatching(t *testing.T) {
	err := WrapError(KindConflict, ErrConflict, "filename already exists")
	if !IsKind(err, KindConflict) {
		t.Errorf("expected KindConflict")
	}
	if IsKind(err, KindNotFound) {
		t.Errorf("did not expect KindNotFound")
	}
}
