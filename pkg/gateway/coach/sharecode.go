package coach

import "crypto/rand"

const shareCodeCharset = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// maxUnbiasedByte is the largest multiple of len(shareCodeCharset) that
// fits in a byte. Bytes at or above it are rejected so every charset
// index is equally likely.
const maxUnbiasedByte = 256 - 256%len(shareCodeCharset)

// NewShareCode returns an 8-character A-Z0-9 code. Callers retry on the
// rare collision against the store's unique constraint.
func NewShareCode() string {
	out := make([]byte, 0, 8)
	buf := make([]byte, 16)
	for len(out) < 8 {
		if _, err := rand.Read(buf); err != nil {
			// crypto/rand should not fail; an all-'A' code is still valid.
			return "AAAAAAAA"
		}
		for _, c := range buf {
			if int(c) >= maxUnbiasedByte {
				continue
			}
			out = append(out, shareCodeCharset[int(c)%len(shareCodeCharset)])
			if len(out) == 8 {
				break
			}
		}
	}
	return string(out)
}
