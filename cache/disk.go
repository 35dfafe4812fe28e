package cache

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/klauspost/compress/gzip"
	"github.com/rs/zerolog"
)

// compressedSentinel prefixes the on-disk body when it was worth
// compressing (spec.md §4.3 "Disk encoding"). Reads auto-detect it.
const compressedSentinel = "COMPRESSED:"

// diskRecord is the on-disk JSON shape for one Entry; Data is always carried
// as a base64 string rather than json.RawMessage, since the payload need not
// be JSON. The marshaled record as a whole may then be gzip-compressed by
// encodeBody.
type diskRecord struct {
	Key          string        `json:"key"`
	Data         string        `json:"data"`
	Timestamp    time.Time     `json:"timestamp"`
	Version      string        `json:"version"`
	Dependencies []string      `json:"dependencies"`
	Size         int64         `json:"size"`
	HitCount     int64         `json:"hitCount"`
	LastAccessed time.Time     `json:"lastAccessed"`
	ComputeTime  time.Duration `json:"computeTime"`
}

// diskTier persists entries as individual files under baseDir, named by
// Filename(prefix, key).
type diskTier struct {
	baseDir string
	prefix  string
	logger  zerolog.Logger
}

func newDiskTier(baseDir, prefix string, logger zerolog.Logger) *diskTier {
	return &diskTier{baseDir: baseDir, prefix: prefix, logger: logger}
}

// save writes e to disk, compressing the body when doing so saves at least
// 20% (spec.md §4.3: "if compressed payload is ≤80% of raw, store with a
// COMPRESSED: sentinel and base64 body; else store raw").
func (d *diskTier) save(e *Entry) error {
	if err := os.MkdirAll(d.baseDir, 0o755); err != nil {
		return fmt.Errorf("mkdir cache dir: %w", err)
	}

	rec := diskRecord{
		Key:          e.Key,
		Data:         base64.StdEncoding.EncodeToString(e.Data),
		Timestamp:    e.Timestamp,
		Version:      e.Version,
		Dependencies: e.Dependencies,
		Size:         e.Metadata.Size,
		HitCount:     e.Metadata.HitCount,
		LastAccessed: e.Metadata.LastAccessed,
		ComputeTime:  e.Metadata.ComputeTime,
	}
	raw, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshal cache entry: %w", err)
	}

	body, err := encodeBody(raw)
	if err != nil {
		return fmt.Errorf("encode cache entry: %w", err)
	}

	path := filepath.Join(d.baseDir, Filename(d.prefix, e.Key))
	return os.WriteFile(path, body, 0o644)
}

// encodeBody gzips raw and returns the compressed form prefixed with
// compressedSentinel when that's at least 20% smaller; otherwise returns
// raw unchanged.
func encodeBody(raw []byte) ([]byte, error) {
	var buf bytes.Buffer
	gw := gzip.NewWriter(&buf)
	if _, err := gw.Write(raw); err != nil {
		return nil, err
	}
	if err := gw.Close(); err != nil {
		return nil, err
	}

	if float64(buf.Len()) <= float64(len(raw))*0.8 {
		encoded := base64.StdEncoding.EncodeToString(buf.Bytes())
		return []byte(compressedSentinel + encoded), nil
	}
	return raw, nil
}

func decodeBody(body []byte) ([]byte, error) {
	s := string(body)
	if !strings.HasPrefix(s, compressedSentinel) {
		return body, nil
	}
	decoded, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(s, compressedSentinel))
	if err != nil {
		return nil, fmt.Errorf("decode compressed body: %w", err)
	}
	gr, err := gzip.NewReader(bytes.NewReader(decoded))
	if err != nil {
		return nil, fmt.Errorf("open gzip reader: %w", err)
	}
	defer gr.Close()

	var out bytes.Buffer
	if _, err := out.ReadFrom(gr); err != nil {
		return nil, fmt.Errorf("inflate cache entry: %w", err)
	}
	return out.Bytes(), nil
}

// loadAll reads every entry file under baseDir. A single corrupt file is
// skipped with a warning rather than failing the whole load (spec.md §4.3
// "Failure": disk failures are warnings, not fatal).
func (d *diskTier) loadAll() ([]*Entry, error) {
	matches, err := filepath.Glob(filepath.Join(d.baseDir, d.prefix+"_*.json"))
	if err != nil {
		return nil, fmt.Errorf("glob cache dir: %w", err)
	}

	var entries []*Entry
	for _, path := range matches {
		e, err := d.loadOne(path)
		if err != nil {
			d.logger.Warn().Err(err).Str("path", path).Msg("cache: skipping unreadable entry")
			continue
		}
		entries = append(entries, e)
	}
	return entries, nil
}

func (d *diskTier) loadOne(path string) (*Entry, error) {
	body, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read: %w", err)
	}
	raw, err := decodeBody(body)
	if err != nil {
		return nil, err
	}

	var rec diskRecord
	if err := json.Unmarshal(raw, &rec); err != nil {
		return nil, fmt.Errorf("unmarshal: %w", err)
	}

	data, err := base64.StdEncoding.DecodeString(rec.Data)
	if err != nil {
		return nil, fmt.Errorf("decode data: %w", err)
	}

	return &Entry{
		Key:          rec.Key,
		Data:         data,
		Timestamp:    rec.Timestamp,
		Version:      rec.Version,
		Dependencies: rec.Dependencies,
		Metadata: Metadata{
			Size:         rec.Size,
			HitCount:     rec.HitCount,
			LastAccessed: rec.LastAccessed,
			ComputeTime:  rec.ComputeTime,
		},
	}, nil
}

func (d *diskTier) remove(key string) error {
	path := filepath.Join(d.baseDir, Filename(d.prefix, key))
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

func (d *diskTier) clear() error {
	matches, err := filepath.Glob(filepath.Join(d.baseDir, d.prefix+"_*.json"))
	if err != nil {
		return err
	}
	for _, path := range matches {
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			return err
		}
	}
	return nil
}
