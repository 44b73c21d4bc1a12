// Package spreadsheet reads capacity upload workbooks (xlsx). The first
// sheet's first row is the header; every later non-blank row is one
// candidate capacity record.
package spreadsheet

import (
	"bytes"
	"fmt"
	"strings"

	e "github.com/gartstein/capacity/internal/capacity/errors"
	"github.com/xuri/excelize/v2"
)

// Header names, matched case-insensitively after trimming.
const (
	ColCompanyEmployeeID = "companyemployeeid"
	ColWorkingSince      = "workingsince"
	ColCTC               = "ctc"
	ColJobTitle          = "jobtitle"
	ColRole              = "role"
	ColGender            = "gender"
	ColLocation          = "location"
	ColTotalExperience   = "totalexperience"
	ColTechnicalSkills   = "technicalskills"
	ColTools             = "tools"
	ColNumberOfProjects  = "numberofprojects"
	ColEmployerNote      = "employernote"
	ColCertifications    = "certifications"
)

// RequiredColumns is the upload template. Column order in the file is free
// and extra columns are ignored.
var RequiredColumns = []string{
	ColCompanyEmployeeID,
	ColWorkingSince,
	ColCTC,
	ColJobTitle,
	ColRole,
	ColGender,
	ColLocation,
	ColTotalExperience,
	ColTechnicalSkills,
	ColTools,
	ColNumberOfProjects,
	ColEmployerNote,
	ColCertifications,
}

// Parser holds a validated workbook. It keeps the raw bytes so that row
// iteration can be restarted.
type Parser struct {
	content []byte
	sheet   string
	columns map[string]int
}

// ValidateTemplate checks that content is a workbook carrying every
// required header column.
func ValidateTemplate(content []byte) error {
	_, err := Open(content)
	return err
}

// Open reads the header of the first sheet. It returns a *errors.TemplateError
// when the file cannot be read or columns are missing.
func Open(content []byte) (*Parser, error) {
	f, err := excelize.OpenReader(bytes.NewReader(content))
	if err != nil {
		return nil, &e.TemplateError{Reason: "file is not a readable xlsx workbook"}
	}
	defer f.Close()

	sheet := f.GetSheetName(0)
	if sheet == "" {
		return nil, &e.TemplateError{Reason: "workbook has no sheets"}
	}

	rows, err := f.Rows(sheet)
	if err != nil {
		return nil, &e.TemplateError{Reason: fmt.Sprintf("cannot read sheet %q", sheet)}
	}
	defer rows.Close()

	var header []string
	if rows.Next() {
		if header, err = rows.Columns(); err != nil {
			return nil, &e.TemplateError{Reason: "cannot read header row"}
		}
	}

	columns := make(map[string]int, len(header))
	for i, name := range header {
		key := strings.ToLower(strings.TrimSpace(name))
		if _, seen := columns[key]; !seen && key != "" {
			columns[key] = i
		}
	}

	var missing []string
	for _, col := range RequiredColumns {
		if _, ok := columns[col]; !ok {
			missing = append(missing, col)
		}
	}
	if len(missing) > 0 {
		return nil, &e.TemplateError{Missing: missing}
	}

	return &Parser{content: content, sheet: sheet, columns: columns}, nil
}

// Sheet is the name of the sheet being read.
func (p *Parser) Sheet() string {
	return p.sheet
}

// Rows starts a fresh pass over the data rows. The caller must Close the
// iterator.
func (p *Parser) Rows() (*RowIterator, error) {
	f, err := excelize.OpenReader(bytes.NewReader(p.content))
	if err != nil {
		return nil, fmt.Errorf("reopen workbook: %w", err)
	}
	rows, err := f.Rows(p.sheet)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("read sheet %q: %w", p.sheet, err)
	}
	// header
	rows.Next()

	return &RowIterator{parser: p, file: f, rows: rows, number: 1}, nil
}

// RowIterator walks data rows lazily, skipping blank ones.
type RowIterator struct {
	parser *Parser
	file   *excelize.File
	rows   *excelize.Rows
	number int
	cur    RawRow
	err    error
}

// Next advances to the next non-blank row.
func (it *RowIterator) Next() bool {
	if it.err != nil {
		return false
	}
	for it.rows.Next() {
		it.number++
		cells, err := it.rows.Columns(excelize.Options{RawCellValue: true})
		if err != nil {
			it.err = fmt.Errorf("read row %d: %w", it.number, err)
			return false
		}
		if isBlank(cells) {
			continue
		}
		it.cur = RawRow{Number: it.number, cells: cells, columns: it.parser.columns}
		return true
	}
	it.err = it.rows.Error()
	return false
}

// Row returns the row loaded by the last successful Next.
func (it *RowIterator) Row() RawRow {
	return it.cur
}

// Err returns the error that stopped iteration, if any.
func (it *RowIterator) Err() error {
	return it.err
}

// Close releases the workbook.
func (it *RowIterator) Close() error {
	if err := it.rows.Close(); err != nil {
		it.file.Close()
		return err
	}
	return it.file.Close()
}

// RawRow is one data row with raw (unformatted) cell values.
type RawRow struct {
	// Number is the 1-based sheet row number.
	Number  int
	cells   []string
	columns map[string]int
}

// Get returns the trimmed raw value of the named column.
func (r RawRow) Get(column string) string {
	idx, ok := r.columns[column]
	if !ok || idx >= len(r.cells) {
		return ""
	}
	return strings.TrimSpace(r.cells[idx])
}

func isBlank(cells []string) bool {
	for _, c := range cells {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}
