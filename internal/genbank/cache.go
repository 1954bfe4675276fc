package genbank

import (
	"encoding/gob"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/inodb/promoscan/internal/sequence"
)

// FileFingerprint holds stat-based identity for a file.
type FileFingerprint struct {
	Path    string
	Size    int64
	ModTime time.Time
}

// StatFiles fingerprints every path.
func StatFiles(paths []string) ([]FileFingerprint, error) {
	fps := make([]FileFingerprint, len(paths))
	for i, p := range paths {
		info, err := os.Stat(p)
		if err != nil {
			return nil, err
		}
		fps[i] = FileFingerprint{Path: p, Size: info.Size(), ModTime: info.ModTime()}
	}
	return fps, nil
}

func (fp FileFingerprint) String() string {
	return fp.Path + "|" + strconv.FormatInt(fp.Size, 10) + "|" + fp.ModTime.UTC().Format(time.RFC3339Nano)
}

// RecordCache stores parsed records as gob next to a fingerprint sidecar:
//
//	{dir}/records.gob       (serialized records)
//	{dir}/records.gob.meta  (source file fingerprints)
type RecordCache struct {
	dir string
}

// NewRecordCache creates a record cache in dir.
func NewRecordCache(dir string) *RecordCache {
	return &RecordCache{dir: dir}
}

func (rc *RecordCache) gobPath() string {
	return filepath.Join(rc.dir, "records.gob")
}

func (rc *RecordCache) metaPath() string {
	return filepath.Join(rc.dir, "records.gob.meta")
}

// Valid reports whether the cache was written from exactly these files.
func (rc *RecordCache) Valid(files []FileFingerprint) bool {
	meta, err := rc.readMeta()
	if err != nil {
		return false
	}
	if meta["files"] != strconv.Itoa(len(files)) {
		return false
	}
	for i, fp := range files {
		if meta["file."+strconv.Itoa(i)] != fp.String() {
			return false
		}
	}
	if _, err := os.Stat(rc.gobPath()); err != nil {
		return false
	}
	return true
}

// Load reads the cached records.
func (rc *RecordCache) Load() ([]*sequence.Record, error) {
	f, err := os.Open(rc.gobPath())
	if err != nil {
		return nil, fmt.Errorf("open record cache: %w", err)
	}
	defer f.Close()

	var recs []*sequence.Record
	if err := gob.NewDecoder(f).Decode(&recs); err != nil {
		return nil, fmt.Errorf("decode record cache: %w", err)
	}
	return recs, nil
}

// Write stores records along with the fingerprints of the files they came from.
func (rc *RecordCache) Write(recs []*sequence.Record, files []FileFingerprint) error {
	if err := os.MkdirAll(rc.dir, 0755); err != nil {
		return fmt.Errorf("create cache directory: %w", err)
	}
	f, err := os.Create(rc.gobPath())
	if err != nil {
		return fmt.Errorf("create record cache: %w", err)
	}
	if err := gob.NewEncoder(f).Encode(recs); err != nil {
		f.Close()
		os.Remove(rc.gobPath())
		return fmt.Errorf("encode record cache: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close record cache: %w", err)
	}
	return rc.writeMeta(files)
}

// Clear removes the cached files.
func (rc *RecordCache) Clear() {
	os.Remove(rc.gobPath())
	os.Remove(rc.metaPath())
}

func (rc *RecordCache) writeMeta(files []FileFingerprint) error {
	lines := []string{"files=" + strconv.Itoa(len(files))}
	for i, fp := range files {
		lines = append(lines, "file."+strconv.Itoa(i)+"="+fp.String())
	}
	lines = append(lines, "created_at="+time.Now().UTC().Format(time.RFC3339), "")
	return os.WriteFile(rc.metaPath(), []byte(strings.Join(lines, "\n")), 0644)
}

func (rc *RecordCache) readMeta() (map[string]string, error) {
	data, err := os.ReadFile(rc.metaPath())
	if err != nil {
		return nil, err
	}
	meta := make(map[string]string)
	for _, line := range strings.Split(string(data), "\n") {
		if k, v, ok := strings.Cut(line, "="); ok {
			meta[k] = v
		}
	}
	return meta, nil
}
