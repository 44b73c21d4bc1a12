package spreadsheet

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"

	e "github.com/gartstein/capacity/internal/capacity/errors"
	"github.com/gartstein/capacity/internal/capacity/models"
	"github.com/gartstein/capacity/internal/pkg/utils"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"
)

// Count columns are stored as 32-bit integers.
var (
	minCount = decimal.NewFromInt(math.MinInt32)
	maxCount = decimal.NewFromInt(math.MaxInt32)
)

// dateLayouts are tried in order for free-text dates. Slash dates are read
// month first.
var dateLayouts = []string{
	"2006-01-02",
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006/1/2",
	"1/2/2006",
	"1-2-2006",
	"2-Jan-2006",
	"2 Jan 2006",
	"2 January 2006",
	"Jan 2, 2006",
	"January 2, 2006",
}

// Decode turns the row into a candidate record owned by companyID. The
// record has no workflow state yet. Cell problems come back as a
// *errors.FieldError naming the column.
func (r RawRow) Decode(companyID uuid.UUID) (*models.CapacityRecord, error) {
	workingSince, err := ParseDate(r.Get(ColWorkingSince))
	if err != nil {
		return nil, e.NewParseError(ColWorkingSince, err.Error())
	}
	ctc, err := r.decimalCell(ColCTC)
	if err != nil {
		return nil, err
	}
	experience, err := r.decimalCell(ColTotalExperience)
	if err != nil {
		return nil, err
	}
	projects, err := r.intCell(ColNumberOfProjects)
	if err != nil {
		return nil, err
	}

	return &models.CapacityRecord{
		CompanyID:         companyID,
		CompanyEmployeeID: r.Get(ColCompanyEmployeeID),
		WorkingSince:      workingSince,
		CTC:               ctc,
		JobTitle:          r.Get(ColJobTitle),
		Role:              r.Get(ColRole),
		Gender:            r.Get(ColGender),
		Location:          r.Get(ColLocation),
		TotalExperience:   experience,
		TechnicalSkills:   r.Get(ColTechnicalSkills),
		Tools:             r.Get(ColTools),
		NumberOfProjects:  projects,
		EmployerNote:      r.Get(ColEmployerNote),
		Certifications:    SplitCertifications(r.Get(ColCertifications)),
	}, nil
}

// ParseDate reads a date cell in any of its encodings: a spreadsheet serial
// number (which is also how date-formatted cells are stored), an ISO-8601
// date cell, or free text. The result is a UTC calendar date.
func ParseDate(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, fmt.Errorf("value is required")
	}
	if serial, err := strconv.ParseFloat(raw, 64); err == nil {
		if serial <= 0 {
			return time.Time{}, fmt.Errorf("date serial %s out of range", raw)
		}
		t, err := excelize.ExcelDateToTime(serial, false)
		if err != nil {
			return time.Time{}, fmt.Errorf("date serial %s: %v", raw, err)
		}
		return utils.DateOf(t), nil
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return utils.DateOf(t), nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognised date %q", raw)
}

// SplitCertifications splits a comma-separated list, dropping empty names.
// Order and duplicates are kept.
func SplitCertifications(raw string) []string {
	var names []string
	for _, part := range strings.Split(raw, ",") {
		if name := strings.TrimSpace(part); name != "" {
			names = append(names, name)
		}
	}
	return names
}

// groupedNumber matches a number written with comma thousands separators,
// such as 1,250,000.50.
var groupedNumber = regexp.MustCompile(`^[+-]?\d{1,3}(,\d{3})+(\.\d+)?$`)

// decimalCell reads a numeric cell; blank reads as zero. Commas are only
// accepted as thousands separators.
func (r RawRow) decimalCell(column string) (decimal.Decimal, error) {
	raw := r.Get(column)
	if raw == "" {
		return decimal.Zero, nil
	}
	if strings.Contains(raw, ",") {
		if !groupedNumber.MatchString(raw) {
			return decimal.Zero, e.NewParseError(column, fmt.Sprintf("ambiguous separators: %q", raw))
		}
		raw = strings.ReplaceAll(raw, ",", "")
	}
	d, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero, e.NewParseError(column, fmt.Sprintf("not a number: %q", r.Get(column)))
	}
	return d, nil
}

func (r RawRow) intCell(column string) (int, error) {
	d, err := r.decimalCell(column)
	if err != nil {
		return 0, err
	}
	if !d.IsInteger() {
		return 0, e.NewParseError(column, fmt.Sprintf("not a whole number: %q", r.Get(column)))
	}
	if d.LessThan(minCount) || d.GreaterThan(maxCount) {
		return 0, e.NewParseError(column, fmt.Sprintf("out of range: %q", r.Get(column)))
	}
	return int(d.IntPart()), nil
}
