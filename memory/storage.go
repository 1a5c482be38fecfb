package memory

import (
	"encoding/csv"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/pkg/errors"

	"github.com/hupe1980/agentrelay/logging"
)

var header = []string{"id", "text", "subject", "embedding", "created_at", "importance"}

// Storage persists memory records.
type Storage interface {
	Load() ([]Record, error)
	Append(rec Record) error
}

// CSVStorage stores records as rows of a CSV file with the columns
// id, text, subject, embedding, created_at and importance. Embeddings are
// space separated floats and timestamps are RFC 3339.
type CSVStorage struct {
	path   string
	logger logging.Logger
	mu     sync.Mutex
}

var _ Storage = (*CSVStorage)(nil)

// NewCSVStorage creates a storage for path. The file is created on first append.
func NewCSVStorage(path string, logger logging.Logger) *CSVStorage {
	if logger == nil {
		logger = logging.NoOpLogger{}
	}

	return &CSVStorage{path: path, logger: logger}
}

// Path returns the file location.
func (s *CSVStorage) Path() string { return s.path }

// Load reads all records. A missing file yields no records. Rows that cannot
// be parsed are logged and skipped.
func (s *CSVStorage) Load() ([]Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	f, err := os.Open(s.path)
	if os.IsNotExist(err) {
		s.logger.Warn("memory.storage.missing", "path", s.path)
		return []Record{}, nil
	}

	if err != nil {
		return nil, errors.Wrapf(err, "open %s", s.path)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1

	head, err := r.Read()
	if err == io.EOF {
		return []Record{}, nil
	}

	if err != nil {
		return nil, errors.Wrapf(err, "read header of %s", s.path)
	}

	cols := make(map[string]int, len(head))
	for i, name := range head {
		cols[strings.TrimSpace(name)] = i
	}

	records := []Record{}

	for line := 2; ; line++ {
		row, err := r.Read()
		if err == io.EOF {
			break
		}

		if err != nil {
			return nil, errors.Wrapf(err, "read %s", s.path)
		}

		rec, err := parseRow(cols, row)
		if err != nil {
			s.logger.Error("memory.storage.bad_row", "path", s.path, "line", line, "error", err.Error())
			continue
		}

		records = append(records, rec)
	}

	s.logger.Info("memory.storage.loaded", "path", s.path, "records", len(records))

	return records, nil
}

// Append writes rec as a new row, writing the header first for a new file.
func (s *CSVStorage) Append(rec Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if dir := filepath.Dir(s.path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return errors.Wrapf(err, "create %s", dir)
		}
	}

	_, statErr := os.Stat(s.path)
	isNew := os.IsNotExist(statErr)

	f, err := os.OpenFile(s.path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return errors.Wrapf(err, "open %s", s.path)
	}
	defer f.Close()

	w := csv.NewWriter(f)

	if isNew {
		if err := w.Write(header); err != nil {
			return errors.Wrap(err, "write header")
		}
	}

	if err := w.Write(formatRow(rec)); err != nil {
		return errors.Wrapf(err, "write record %s", rec.ID)
	}

	w.Flush()

	return errors.Wrap(w.Error(), "flush")
}

func formatRow(rec Record) []string {
	parts := make([]string, len(rec.Embedding))
	for i, v := range rec.Embedding {
		parts[i] = strconv.FormatFloat(float64(v), 'g', -1, 32)
	}

	return []string{
		rec.ID,
		rec.Text,
		rec.Subject,
		strings.Join(parts, " "),
		rec.CreatedAt.UTC().Format(time.RFC3339Nano),
		strconv.FormatFloat(rec.Importance, 'f', -1, 64),
	}
}

func parseRow(cols map[string]int, row []string) (Record, error) {
	get := func(name string) string {
		if i, ok := cols[name]; ok && i < len(row) {
			return row[i]
		}

		return ""
	}

	rec := Record{ID: get("id"), Text: get("text"), Subject: get("subject"), Importance: 0.5}
	if rec.ID == "" {
		return Record{}, errors.New("missing id")
	}

	for _, field := range strings.Fields(get("embedding")) {
		v, err := strconv.ParseFloat(field, 32)
		if err != nil {
			return Record{}, errors.Wrap(err, "parse embedding")
		}

		rec.Embedding = append(rec.Embedding, float32(v))
	}

	created, err := parseTime(get("created_at"))
	if err != nil {
		return Record{}, err
	}

	rec.CreatedAt = created

	if raw := get("importance"); raw != "" {
		imp, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return Record{}, errors.Wrap(err, "parse importance")
		}

		rec.Importance = ClampImportance(imp)
	}

	return rec, nil
}

// parseTime accepts RFC 3339 and unix seconds with fraction.
func parseTime(raw string) (time.Time, error) {
	if raw == "" {
		return time.Time{}, errors.New("missing created_at")
	}

	if t, err := time.Parse(time.RFC3339Nano, raw); err == nil {
		return t, nil
	}

	secs, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return time.Time{}, errors.Wrapf(err, "parse created_at %q", raw)
	}

	whole := int64(secs)

	return time.Unix(whole, int64((secs-float64(whole))*1e9)).UTC(), nil
}
