// Package contenthash computes content fingerprints for media files. The
// digest is a dedup/change-detection identity, not a security primitive.
package contenthash

import (
	"crypto/md5" //nolint:gosec // content fingerprint, not a security primitive
	"encoding/hex"
	"io"
	"os"

	"github.com/pkg/errors"
)

const bufferSize = 64 * 1024

// Hash streams the file at path through a fixed-size buffer and returns its
// 32-character lowercase hex digest. Memory use is constant regardless of
// file size, and the file handle is released on every exit path.
func Hash(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", errors.Wrapf(err, "failed to open %s for hashing", path)
	}
	defer f.Close()

	h := md5.New() //nolint:gosec
	buf := make([]byte, bufferSize)
	if _, err := io.CopyBuffer(h, f, buf); err != nil {
		return "", errors.Wrapf(err, "failed to read %s for hashing", path)
	}

	return hex.EncodeToString(h.Sum(nil)), nil
}
