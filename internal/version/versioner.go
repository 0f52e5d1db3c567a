// Package version persists taxonomy documents as a family of immutable,
// checksummed snapshots beside an always-current latest pointer.
//
// For a latest pointer like data/taxonomy/reasons.latest.yml the
// immutable snapshots are reasons.v1.yml, reasons.v2.yml, ... in the
// same directory. Every artifact starts with a header line embedding
// the SHA-256 of the body that follows, so any copy can be verified in
// isolation. Whether a run allocates a new snapshot is decided by the
// document's timestamp-free content hash: identical content never
// burns a version number, however often it is recomputed.
package version

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/rangefold/lasso/internal/taxonomy"
)

// headerPrefix starts the first line of every artifact.
const headerPrefix = "# file_checksum_sha256: "

var (
	// ErrNoDocument marks a latest pointer with no file behind it.
	ErrNoDocument = errors.New("no taxonomy document")
	// ErrMissingHeader marks an artifact without a checksum header.
	ErrMissingHeader = errors.New("missing checksum header")
	// ErrChecksumMismatch marks an artifact whose body no longer
	// matches its embedded checksum.
	ErrChecksumMismatch = errors.New("checksum mismatch")
)

var versionFileRe = regexp.MustCompile(`\.v(\d+)\.ya?ml$`)

// Result reports what Write did.
type Result struct {
	// Written is true when a new immutable snapshot was created.
	Written bool
	// Version is the allocated snapshot number, 0 when none was.
	Version int
	// Path is the snapshot file path when Written.
	Path string
	// Hash is the file checksum embedded in the rewritten latest
	// pointer; change records stamp it as the output checksum.
	Hash string
	// ContentHash is the timestamp-free hash that drove the decision.
	ContentHash string
}

// Info describes one snapshot found on disk.
type Info struct {
	Version int
	Path    string
	Hash    string // embedded file checksum
}

// Store manages one artifact family.
type Store struct {
	latestPath string
}

// NewStore returns a store for the family anchored at latestPath.
func NewStore(latestPath string) *Store {
	return &Store{latestPath: latestPath}
}

// LatestPath returns the pointer location the store was built with.
func (s *Store) LatestPath() string { return s.latestPath }

func (s *Store) dir() string { return filepath.Dir(s.latestPath) }

// stem is the family name: reasons.latest.yml -> reasons.
func (s *Store) stem() string {
	base := filepath.Base(s.latestPath)
	if cut, ok := strings.CutSuffix(base, ".latest.yml"); ok {
		return cut
	}
	return strings.TrimSuffix(base, filepath.Ext(base))
}

func (s *Store) versionPath(n int) string {
	return filepath.Join(s.dir(), fmt.Sprintf("%s.v%d.yml", s.stem(), n))
}

// LoadLatest reads and parses the current latest document. Returns
// ErrNoDocument when the pointer does not exist.
func (s *Store) LoadLatest() (*taxonomy.Document, error) {
	data, err := os.ReadFile(s.latestPath)
	if errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("%s: %w", s.latestPath, ErrNoDocument)
	}
	if err != nil {
		return nil, fmt.Errorf("read latest taxonomy: %w", err)
	}
	return taxonomy.DecodeDocument(stripHeader(data))
}

// Versions lists the snapshots present on disk, ascending.
func (s *Store) Versions() ([]Info, error) {
	entries, err := os.ReadDir(s.dir())
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("scan taxonomy dir: %w", err)
	}
	prefix := s.stem() + ".v"
	var infos []Info
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasPrefix(name, prefix) {
			continue
		}
		m := versionFileRe.FindStringSubmatch(name)
		if m == nil {
			continue
		}
		n, err := strconv.Atoi(m[1])
		if err != nil {
			continue
		}
		path := filepath.Join(s.dir(), name)
		hash, _ := embeddedChecksum(path)
		infos = append(infos, Info{Version: n, Path: path, Hash: hash})
	}
	sort.Slice(infos, func(i, j int) bool { return infos[i].Version < infos[j].Version })
	return infos, nil
}

// NextVersion returns one past the highest snapshot on disk, 1 when
// the family is empty.
func (s *Store) NextVersion() (int, error) {
	infos, err := s.Versions()
	if err != nil {
		return 0, err
	}
	max := 0
	for _, in := range infos {
		if in.Version > max {
			max = in.Version
		}
	}
	return max + 1, nil
}

// Write persists doc. When its content hash differs from prior's (or
// there is no prior), a new immutable snapshot is created and the
// latest pointer rewritten; when the content is unchanged only the
// pointer is rewritten, carrying the fresh generation timestamp.
func (s *Store) Write(doc, prior *taxonomy.Document) (*Result, error) {
	body, err := doc.Encode()
	if err != nil {
		return nil, err
	}
	contentHash, err := doc.ContentHash()
	if err != nil {
		return nil, err
	}
	changed := true
	if prior != nil {
		priorHash, err := prior.ContentHash()
		if err != nil {
			return nil, err
		}
		changed = contentHash != priorHash
	}

	sum := sha256.Sum256(body)
	fileHash := hex.EncodeToString(sum[:])
	artifact := make([]byte, 0, len(headerPrefix)+len(fileHash)+1+len(body))
	artifact = append(artifact, headerPrefix...)
	artifact = append(artifact, fileHash...)
	artifact = append(artifact, '\n')
	artifact = append(artifact, body...)

	if err := os.MkdirAll(s.dir(), 0o755); err != nil {
		return nil, fmt.Errorf("create taxonomy dir: %w", err)
	}

	res := &Result{Hash: fileHash, ContentHash: contentHash}
	if changed {
		n, err := s.NextVersion()
		if err != nil {
			return nil, err
		}
		vp := s.versionPath(n)
		if err := os.WriteFile(vp, artifact, 0o644); err != nil {
			return nil, fmt.Errorf("write taxonomy snapshot: %w", err)
		}
		res.Written, res.Version, res.Path = true, n, vp
	}
	if err := os.WriteFile(s.latestPath, artifact, 0o644); err != nil {
		return nil, fmt.Errorf("write latest taxonomy: %w", err)
	}
	return res, nil
}

// stripHeader drops the checksum header line if present.
func stripHeader(data []byte) []byte {
	if !strings.HasPrefix(string(data), "# ") {
		return data
	}
	if i := strings.IndexByte(string(data), '\n'); i >= 0 {
		return data[i+1:]
	}
	return nil
}

// embeddedChecksum reads just the header hash of an artifact.
func embeddedChecksum(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	line := string(data)
	if i := strings.IndexByte(line, '\n'); i >= 0 {
		line = line[:i]
	}
	hash, ok := strings.CutPrefix(line, headerPrefix)
	if !ok {
		return "", fmt.Errorf("%s: %w", path, ErrMissingHeader)
	}
	return strings.TrimSpace(hash), nil
}
