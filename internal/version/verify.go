package version

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"strings"
)

// VerifyFile re-hashes everything after the first line of an artifact
// and compares it with the checksum embedded in the header. It returns
// the embedded checksum on success, ErrMissingHeader when the file has
// no header, and ErrChecksumMismatch when the body was altered.
func VerifyFile(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read artifact: %w", err)
	}
	text := string(data)
	i := strings.IndexByte(text, '\n')
	if i < 0 {
		return "", fmt.Errorf("%s: %w", path, ErrMissingHeader)
	}
	want, ok := strings.CutPrefix(text[:i], headerPrefix)
	if !ok {
		return "", fmt.Errorf("%s: %w", path, ErrMissingHeader)
	}
	want = strings.TrimSpace(want)

	sum := sha256.Sum256(data[i+1:])
	got := hex.EncodeToString(sum[:])
	if got != want {
		return "", fmt.Errorf("%s: %w: header %s, body %s", path, ErrChecksumMismatch, want, got)
	}
	return want, nil
}
