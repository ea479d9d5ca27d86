package export

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/xuri/excelize/v2"
)

// textNumFmt is the builtin "@" number format.
const textNumFmt = 49

// Workbook appends each session as a new sheet of a single xlsx file.
// Column A holds the frame time, followed by one "block N" column per cell.
type Workbook struct {
	path string
	mu   sync.Mutex
}

// NewWorkbook creates a workbook exporter. The file is created on first export.
func NewWorkbook(path string) *Workbook {
	return &Workbook{path: path}
}

// Path returns the workbook file path.
func (w *Workbook) Path() string {
	return w.path
}

// Export writes s into a new sheet named after its start time.
func (w *Workbook) Export(ctx context.Context, s Session) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(w.path), 0o755); err != nil {
		return fmt.Errorf("failed to create export directory: %w", err)
	}

	f, fresh, err := w.open()
	if err != nil {
		return err
	}
	defer f.Close()

	sheet := uniqueSheetName(f, s.Name())
	idx, err := f.NewSheet(sheet)
	if err != nil {
		return fmt.Errorf("failed to add sheet %q: %w", sheet, err)
	}
	if fresh {
		// Drop the default sheet of a new file
		for _, name := range f.GetSheetList() {
			if name != sheet {
				if err := f.DeleteSheet(name); err != nil {
					return fmt.Errorf("failed to delete sheet %q: %w", name, err)
				}
			}
		}
		if idx, err = f.GetSheetIndex(sheet); err != nil {
			return fmt.Errorf("failed to find sheet %q: %w", sheet, err)
		}
	}
	f.SetActiveSheet(idx)

	if err := writeSheet(ctx, f, sheet, s); err != nil {
		return err
	}

	if err := f.SaveAs(w.path); err != nil {
		return fmt.Errorf("failed to save workbook: %w", err)
	}
	return nil
}

func (w *Workbook) open() (*excelize.File, bool, error) {
	f, err := excelize.OpenFile(w.path)
	if err == nil {
		return f, false, nil
	}
	if errors.Is(err, fs.ErrNotExist) {
		return excelize.NewFile(), true, nil
	}
	return nil, false, fmt.Errorf("failed to open workbook: %w", err)
}

func writeSheet(ctx context.Context, f *excelize.File, sheet string, s Session) error {
	style, err := f.NewStyle(&excelize.Style{NumFmt: textNumFmt})
	if err != nil {
		return fmt.Errorf("failed to create style: %w", err)
	}
	if err := f.SetColStyle(sheet, "A", style); err != nil {
		return fmt.Errorf("failed to set time column style: %w", err)
	}

	header := make([]any, 0, s.Cells()+1)
	header = append(header, "time")
	for i := range s.Cells() {
		header = append(header, fmt.Sprintf("block %d", i))
	}
	if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}

	row := make([]any, 0, s.Cells()+1)
	for i, e := range s.Entries {
		if err := ctx.Err(); err != nil {
			return err
		}
		row = row[:0]
		row = append(row, e.Time.Format(EntryTimeLayout))
		for _, v := range e.Frame {
			row = append(row, v)
		}
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return fmt.Errorf("failed to write row %d: %w", i+2, err)
		}
	}
	return nil
}

// uniqueSheetName suffixes name until no sheet of f carries it.
func uniqueSheetName(f *excelize.File, name string) string {
	candidate := name
	for n := 2; ; n++ {
		if idx, _ := f.GetSheetIndex(candidate); idx < 0 {
			return candidate
		}
		candidate = fmt.Sprintf("%s (%d)", name, n)
	}
}
