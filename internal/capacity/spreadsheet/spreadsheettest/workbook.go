// Package spreadsheettest builds in-memory upload workbooks for tests.
package spreadsheettest

import (
	"fmt"
	"testing"

	"github.com/xuri/excelize/v2"
)

// Header is the upload template in its documented order and casing.
var Header = []interface{}{
	"CompanyEmployeeId", "WorkingSince", "CTC", "JobTitle", "Role", "Gender",
	"Location", "TotalExperience", "TechnicalSkills", "Tools",
	"NumberOfProjects", "EmployerNote", "Certifications",
}

// Row returns a valid data row for the standard Header. workingSince may be
// a time.Time, a serial number or a string.
func Row(employeeID string, workingSince interface{}) []interface{} {
	return []interface{}{
		employeeID, workingSince, 85000, "Engineer", "Backend", "F",
		"Pune", 6.5, "Go, SQL", "Git", 4, "Strong reviewer", "AWS, CKA",
	}
}

// Workbook writes header and rows onto the first sheet and returns the
// xlsx bytes. A nil row leaves that sheet row empty.
func Workbook(t testing.TB, header []interface{}, rows ...[]interface{}) []byte {
	t.Helper()

	f := excelize.NewFile()
	defer f.Close()
	sheet := f.GetSheetName(0)

	if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
		t.Fatalf("write header: %v", err)
	}
	for i, row := range rows {
		if row == nil {
			continue
		}
		cell := fmt.Sprintf("A%d", i+2)
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			t.Fatalf("write row %d: %v", i+2, err)
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		t.Fatalf("write workbook: %v", err)
	}
	return buf.Bytes()
}
