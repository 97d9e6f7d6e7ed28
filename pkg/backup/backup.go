package backup

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/screa/solana-mint-miner/pkg/types"
)

const fieldsPerLine = 3

var ErrMalformedLine = errors.New("backup line must have address,private_key,suffix")

// Entry is one backup line
type Entry struct {
	Address    string
	PrivateKey string
	SuffixType string
}

// FileName returns the backup file name for a session started at t
func FileName(suffix string, t time.Time) string {
	return fmt.Sprintf("%s_addresses_%s.txt", suffix, t.UTC().Format("20060102_150405"))
}

// Writer appends records to a local file, one synced line per record
type Writer struct {
	mu   sync.Mutex
	path string
	file *os.File
	csv  *csv.Writer
}

// Create opens (or appends to) the backup file for suffix in dir
func Create(dir, suffix string, now time.Time) (*Writer, error) {
	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, fmt.Errorf("%w: %w", types.ErrLocalBackup, err)
	}
	return Open(filepath.Join(dir, FileName(suffix, now)))
}

// Open appends to the file at path, creating it if needed
func Open(path string) (*Writer, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0600)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", types.ErrLocalBackup, err)
	}
	return &Writer{path: path, file: f, csv: csv.NewWriter(f)}, nil
}

// Path returns the backup file location
func (w *Writer) Path() string {
	return w.path
}

// Append writes rec and syncs it to disk
func (w *Writer) Append(rec types.AddressRecord) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if err := w.csv.Write([]string{rec.PublicAddress, rec.PrivateKey, rec.SuffixType}); err != nil {
		return fmt.Errorf("%w: %w", types.ErrLocalBackup, err)
	}
	w.csv.Flush()
	if err := w.csv.Error(); err != nil {
		return fmt.Errorf("%w: %w", types.ErrLocalBackup, err)
	}
	if err := w.file.Sync(); err != nil {
		return fmt.Errorf("%w: %w", types.ErrLocalBackup, err)
	}
	return nil
}

// Close closes the file
func (w *Writer) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.file.Close()
}

// ReadFile reads every entry of a backup file
func ReadFile(path string) ([]Entry, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return Read(f)
}

// Read parses backup lines from r
func Read(r io.Reader) ([]Entry, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1

	var entries []Entry
	for {
		fields, err := cr.Read()
		if err == io.EOF {
			return entries, nil
		}
		if err != nil {
			return nil, err
		}
		if len(fields) != fieldsPerLine {
			line, _ := cr.FieldPos(0)
			return nil, fmt.Errorf("line %d: %w", line, ErrMalformedLine)
		}
		entries = append(entries, Entry{
			Address:    fields[0],
			PrivateKey: fields[1],
			SuffixType: fields[2],
		})
	}
}

// Record converts an entry back into a record stamped with at
func (e Entry) Record(at time.Time) types.AddressRecord {
	return types.AddressRecord{
		PublicAddress: e.Address,
		PrivateKey:    e.PrivateKey,
		SuffixType:    e.SuffixType,
		DiscoveredAt:  at.UTC(),
	}
}
