// Package knowledgebase persists the reference price table as a spreadsheet.
package knowledgebase

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"github.com/pricelens/backend/internal/domain"
	"github.com/pricelens/backend/internal/infrastructure/metrics"
)

// Columns is the interchange schema shared with bulk import/export tooling.
// Names and order must not change.
var Columns = []string{"product_name", "nett_price", "platform", "link"}

// XLSXStore keeps the knowledge base in a single .xlsx file.
// Writes are serialized and replace the file atomically; readers see either
// the old or the new table, never a partial one.
type XLSXStore struct {
	path   string
	logger *zap.Logger

	// writeMu serializes load -> append -> persist sequences
	writeMu sync.Mutex

	cacheMu    sync.RWMutex
	snapshot   []domain.KnowledgeBaseEntry
	cached     bool
	generation uint64
}

// NewXLSXStore creates a store backed by path. The file is created on first write.
func NewXLSXStore(path string, logger *zap.Logger) *XLSXStore {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &XLSXStore{path: path, logger: logger}
}

// Path returns the backing file path
func (s *XLSXStore) Path() string {
	return s.path
}

// Load returns every entry in insertion order. A missing file is an empty store.
func (s *XLSXStore) Load(ctx context.Context) ([]domain.KnowledgeBaseEntry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.cacheMu.RLock()
	if s.cached {
		entries := cloneEntries(s.snapshot)
		s.cacheMu.RUnlock()
		return entries, nil
	}
	gen := s.generation
	s.cacheMu.RUnlock()

	entries, err := s.readFile()
	if err != nil {
		s.logger.Error("failed to load knowledge base", zap.String("path", s.path), zap.Error(err))
		return nil, err
	}

	s.cacheMu.Lock()
	// A write or external change since we started reading makes this snapshot stale.
	if gen == s.generation {
		s.snapshot = entries
		s.cached = true
	}
	s.cacheMu.Unlock()

	metrics.KnowledgeBaseEntries.Set(float64(len(entries)))
	return cloneEntries(entries), nil
}

// FindByNameSubstring returns entries whose product name contains name, ignoring case
func (s *XLSXStore) FindByNameSubstring(ctx context.Context, name string) ([]domain.KnowledgeBaseEntry, error) {
	entries, err := s.Load(ctx)
	if err != nil {
		return nil, err
	}

	needle := strings.ToLower(strings.TrimSpace(name))
	matches := make([]domain.KnowledgeBaseEntry, 0)
	for _, e := range entries {
		if strings.Contains(strings.ToLower(e.ProductName), needle) {
			matches = append(matches, e)
		}
	}
	return matches, nil
}

// Append adds one entry and rewrites the file
func (s *XLSXStore) Append(ctx context.Context, entry domain.KnowledgeBaseEntry) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	entries, err := s.readFile()
	if err != nil {
		return err
	}
	entries = append(entries, entry)

	if err := s.writeFile(entries); err != nil {
		return err
	}
	s.Invalidate()
	return nil
}

// Import appends every row of an uploaded spreadsheet in a single write.
// The upload must use the same columns as the store.
func (s *XLSXStore) Import(ctx context.Context, r io.Reader) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	f, err := excelize.OpenReader(r)
	if err != nil {
		return 0, fmt.Errorf("%w: cannot open spreadsheet: %v", domain.ErrInvalidRequest, err)
	}
	defer f.Close()

	imported, err := parseWorkbook(f)
	if err != nil {
		return 0, fmt.Errorf("%w: %w", domain.ErrInvalidRequest, err)
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	entries, err := s.readFile()
	if err != nil {
		return 0, err
	}
	entries = append(entries, imported...)

	if err := s.writeFile(entries); err != nil {
		return 0, err
	}
	s.Invalidate()
	return len(imported), nil
}

// ExportSnapshot serializes the current table to xlsx bytes
func (s *XLSXStore) ExportSnapshot(ctx context.Context) ([]byte, error) {
	entries, err := s.Load(ctx)
	if err != nil {
		return nil, err
	}

	f, err := buildWorkbook(entries)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrKnowledgeBaseIO, err)
	}
	return bytes.Clone(buf.Bytes()), nil
}

// Clear deletes the backing file
func (s *XLSXStore) Clear(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	if err := os.Remove(s.path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("%w: %v", domain.ErrKnowledgeBaseIO, err)
	}
	s.Invalidate()
	return nil
}

// Invalidate drops the cached snapshot so the next Load reads the file again
func (s *XLSXStore) Invalidate() {
	s.cacheMu.Lock()
	s.snapshot = nil
	s.cached = false
	s.generation++
	s.cacheMu.Unlock()
}

// readFile parses the backing file; a missing file yields an empty table
func (s *XLSXStore) readFile() ([]domain.KnowledgeBaseEntry, error) {
	file, err := os.Open(s.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return []domain.KnowledgeBaseEntry{}, nil
		}
		return nil, fmt.Errorf("%w: %v", domain.ErrKnowledgeBaseIO, err)
	}
	defer file.Close()

	f, err := excelize.OpenReader(file)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrKnowledgeBaseCorrupt, err)
	}
	defer f.Close()

	return parseWorkbook(f)
}

// writeFile writes entries to a temp file next to the target and renames it into place
func (s *XLSXStore) writeFile(entries []domain.KnowledgeBaseEntry) (err error) {
	f, err := buildWorkbook(entries)
	if err != nil {
		return err
	}
	defer f.Close()

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrKnowledgeBaseIO, err)
	}

	tmp, err := os.CreateTemp(dir, ".knowledge-base-*.xlsx")
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrKnowledgeBaseIO, err)
	}
	tmpName := tmp.Name()
	closed := false
	defer func() {
		if !closed {
			tmp.Close()
		}
		if err != nil {
			os.Remove(tmpName)
		}
	}()

	if _, err = f.WriteTo(tmp); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrKnowledgeBaseIO, err)
	}
	if err = tmp.Sync(); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrKnowledgeBaseIO, err)
	}
	closed = true
	if err = tmp.Close(); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrKnowledgeBaseIO, err)
	}
	if err = os.Rename(tmpName, s.path); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrKnowledgeBaseIO, err)
	}

	s.logger.Debug("knowledge base written", zap.String("path", s.path), zap.Int("entries", len(entries)))
	return nil
}

// buildWorkbook lays out the header row followed by one row per entry on the first sheet
func buildWorkbook(entries []domain.KnowledgeBaseEntry) (*excelize.File, error) {
	f := excelize.NewFile()
	sheet := f.GetSheetName(0)

	header := make([]interface{}, len(Columns))
	for i, c := range Columns {
		header[i] = c
	}
	if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
		f.Close()
		return nil, fmt.Errorf("%w: %v", domain.ErrKnowledgeBaseIO, err)
	}

	for i, e := range entries {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			f.Close()
			return nil, fmt.Errorf("%w: %v", domain.ErrKnowledgeBaseIO, err)
		}
		row := []interface{}{e.ProductName, e.UnitPrice, string(e.Platform), e.SourceURL}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			f.Close()
			return nil, fmt.Errorf("%w: %v", domain.ErrKnowledgeBaseIO, err)
		}
	}
	return f, nil
}

// parseWorkbook reads the first sheet, checks the header and converts each row
func parseWorkbook(f *excelize.File) ([]domain.KnowledgeBaseEntry, error) {
	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("%w: workbook has no sheets", domain.ErrKnowledgeBaseCorrupt)
	}

	rows, err := f.GetRows(sheets[0], excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrKnowledgeBaseCorrupt, err)
	}

	entries := make([]domain.KnowledgeBaseEntry, 0, len(rows))
	if len(rows) == 0 {
		return entries, nil
	}

	if err := checkHeader(rows[0]); err != nil {
		return nil, err
	}

	for i, row := range rows[1:] {
		if isBlankRow(row) {
			continue
		}
		cells := make([]string, len(Columns))
		copy(cells, row)

		price, err := strconv.ParseFloat(strings.TrimSpace(cells[1]), 64)
		if err != nil || price < 0 {
			return nil, fmt.Errorf("%w: row %d has invalid nett_price %q", domain.ErrKnowledgeBaseCorrupt, i+2, cells[1])
		}

		entries = append(entries, domain.KnowledgeBaseEntry{
			ProductName: cells[0],
			UnitPrice:   price,
			Platform:    domain.Platform(cells[2]),
			SourceURL:   cells[3],
		})
	}
	return entries, nil
}

func checkHeader(row []string) error {
	if len(row) < len(Columns) {
		return fmt.Errorf("%w: expected columns %v, got %v", domain.ErrKnowledgeBaseCorrupt, Columns, row)
	}
	for i, want := range Columns {
		if strings.TrimSpace(row[i]) != want {
			return fmt.Errorf("%w: expected columns %v, got %v", domain.ErrKnowledgeBaseCorrupt, Columns, row[:len(Columns)])
		}
	}
	return nil
}

func isBlankRow(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}

func cloneEntries(entries []domain.KnowledgeBaseEntry) []domain.KnowledgeBaseEntry {
	out := make([]domain.KnowledgeBaseEntry, len(entries))
	copy(out, entries)
	return out
}
