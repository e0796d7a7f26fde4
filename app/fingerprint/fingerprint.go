package fingerprint

import (
	"encoding/hex"
	"fmt"
	"hash"
	"io"
	"os"
	"strings"

	"github.com/minio/highwayhash"
)

// Key is the hardcoded HighwayHash key. Hashes of the same input are stable
// across runs and machines, which presets and cache keys rely on.
var Key = []byte("thebridge hash key\x00\x00\x00\x00\x00\x00\x00\x00\x00\x00\x00\x00\x00\x00")

// String returns the 64-bit HighwayHash of s as hex.
func String(s string) string {
	sum := highwayhash.Sum64([]byte(s), Key)
	return fmt.Sprintf("%016x", sum)
}

// Strings hashes parts joined with sep. Order matters.
func Strings(parts []string, sep string) string {
	return String(strings.Join(parts, sep))
}

// File calculates the 256-bit HighwayHash of the file content.
func File(filePath string) (string, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return "", err
	}
	defer file.Close()
	return Reader(file)
}

// New returns a 256-bit HighwayHash keyed with Key.
func New() (hash.Hash, error) {
	h, err := highwayhash.New(Key)
	if err != nil {
		return nil, fmt.Errorf("failed to create hash: %w", err)
	}
	return h, nil
}

// Reader hashes everything read from r.
func Reader(r io.Reader) (string, error) {
	hash, err := New()
	if err != nil {
		return "", err
	}
	if _, err := io.Copy(hash, r); err != nil {
		return "", err
	}
	return hex.EncodeToString(hash.Sum(nil)), nil
}
