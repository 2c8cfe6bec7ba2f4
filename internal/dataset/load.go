package dataset

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"
)

// LoadOptions controls how a dataset file is read.
type LoadOptions struct {
	// Delimiter for CSV. If 0, picks '\t' for .tsv files and ',' otherwise.
	Delimiter rune
	// Sheet selects an XLSX sheet by name; empty means the first sheet.
	Sheet string
	Parse ParseOptions
}

// DefaultLoadOptions returns options for plain comma-separated exports.
func DefaultLoadOptions() LoadOptions {
	return LoadOptions{Parse: DefaultParseOptions()}
}

// Load reads a CSV, TSV or XLSX file depending on its extension.
func Load(path string, opt LoadOptions) (*Frame, error) {
	if strings.HasSuffix(strings.ToLower(path), ".xlsx") {
		return LoadXLSX(path, opt)
	}
	return LoadCSV(path, opt)
}

// LoadCSV reads a delimited text file whose first record is the header.
func LoadCSV(path string, opt LoadOptions) (*Frame, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open csv: %w", err)
	}
	defer f.Close()
	return ReadCSV(f, filepath.Base(path), delimiterFor(path, opt.Delimiter), opt.Parse)
}

// ReadCSV reads delimited text from r.
func ReadCSV(r io.Reader, name string, delim rune, opt ParseOptions) (*Frame, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	if delim != 0 {
		cr.Comma = delim
	}
	header, err := cr.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("read header: %s is empty", name)
		}
		return nil, fmt.Errorf("read header: %w", err)
	}
	if len(header) > 0 {
		header[0] = strings.TrimPrefix(header[0], "\ufeff")
	}
	var rows [][]string
	for {
		rec, err := cr.Read()
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return nil, fmt.Errorf("read row %d: %w", len(rows)+1, err)
		}
		if len(rec) > len(header) {
			return nil, fmt.Errorf("read row %d: %d fields, header has %d", len(rows)+1, len(rec), len(header))
		}
		rows = append(rows, rec)
	}
	return NewFrame(name, header, rows, opt)
}

// LoadXLSX reads one worksheet of an .xlsx workbook; the first row is the header.
func LoadXLSX(path string, opt LoadOptions) (*Frame, error) {
	wb, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("open xlsx: %w", err)
	}
	defer wb.Close()

	sheet := opt.Sheet
	sheets := wb.GetSheetList()
	if sheet == "" {
		if len(sheets) == 0 {
			return nil, fmt.Errorf("workbook %s has no sheets", filepath.Base(path))
		}
		sheet = sheets[0]
	} else {
		found := false
		for _, s := range sheets {
			if strings.EqualFold(s, sheet) {
				sheet, found = s, true
				break
			}
		}
		if !found {
			return nil, fmt.Errorf("sheet '%s' not found in workbook '%s'.\nAvailable sheets: %s",
				opt.Sheet, filepath.Base(path), strings.Join(sheets, ", "))
		}
	}
	all, err := wb.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("read sheet %s: %w", sheet, err)
	}
	if len(all) == 0 {
		return nil, fmt.Errorf("read header: sheet %s is empty", sheet)
	}
	return NewFrame(filepath.Base(path), all[0], all[1:], opt.Parse)
}

func delimiterFor(path string, delim rune) rune {
	if delim != 0 {
		return delim
	}
	if strings.HasSuffix(strings.ToLower(path), ".tsv") {
		return '\t'
	}
	return ','
}
