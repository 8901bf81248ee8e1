package cmn

import (
	"crypto/sha256"
	"encoding/hex"
	"io"
)

// SHA256 of b, lowercase hex — used for File.checksum_sha256 and for the
// sha256(path)[0:16] fallback in the vector chunk-id scheme (§4.5). Plain
// crypto/sha256 is used rather than a third-party checksum library: no
// example repo reaches for one for content hashing, and the teacher's own
// cmn/cos checksum helpers wrap the very same stdlib primitive.
func SHA256Hex(b []byte) string {
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])
}

// SHA256HexReader streams through r, returning the hex digest and the
// byte count without buffering the whole body. The multipart upload path
// does not call it: a completed multipart upload records the S3 ETag in
// place of a SHA-256 (see design notes on the ETag-as-SHA256 stand-in).
func SHA256HexReader(r io.Reader) (string, int64, error) {
	h := sha256.New()
	n, err := io.Copy(h, r)
	if err != nil {
		return "", n, err
	}
	return hex.EncodeToString(h.Sum(nil)), n, nil
}

// EmptySHA256 is the checksum of the zero-byte file, asserted by the
// 0-byte upload boundary test (§8).
const EmptySHA256 = "e3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855"
