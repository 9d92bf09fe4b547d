package digest

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
)

// File returns the hex SHA-256 of the bytes stored at path.
func File(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", fmt.Errorf("read %s: %w", path, err)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// Comparison is the outcome of hashing two files.
type Comparison struct {
	PathA, PathB     string
	DigestA, DigestB string
}

// Equal reports whether both files hold identical bytes.
func (c Comparison) Equal() bool {
	return c.DigestA == c.DigestB
}

func (c Comparison) String() string {
	if c.Equal() {
		return "The images have the same hash content."
	}
	return "The images do not have the same hash content."
}

// Compare hashes a and b. A mismatch is not an error; failing to read
// either file is, and no comparison is made in that case.
func Compare(ctx context.Context, a, b string) (Comparison, error) {
	c := Comparison{PathA: a, PathB: b}
	var err error
	if c.DigestA, err = File(a); err != nil {
		return Comparison{}, fmt.Errorf("hash %s: %w", a, err)
	}
	if err := ctx.Err(); err != nil {
		return Comparison{}, err
	}
	if c.DigestB, err = File(b); err != nil {
		return Comparison{}, fmt.Errorf("hash %s: %w", b, err)
	}
	return c, nil
}
