package utils

import (
	"errors"
	"fmt"
	"io"
	"log"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"

	"campus-idcards/models"
)

// studentColumns maps normalized header names to the student attribute they fill
var studentColumns = map[string]func(*models.Student, string){
	"id":             func(s *models.Student, v string) { s.ID, _ = strconv.ParseInt(v, 10, 64) },
	"gr_number":      func(s *models.Student, v string) { s.GRNumber = v },
	"roll_number":    func(s *models.Student, v string) { s.RollNumber = v },
	"full_name":      func(s *models.Student, v string) { s.FullName = v },
	"name":           func(s *models.Student, v string) { s.FullName = v },
	"dob":            func(s *models.Student, v string) { s.DOB = v },
	"date_of_birth":  func(s *models.Student, v string) { s.DOB = v },
	"gender":         func(s *models.Student, v string) { s.Gender = v },
	"class_id":       func(s *models.Student, v string) { s.ClassID = v },
	"class_name":     func(s *models.Student, v string) { s.ClassName = v },
	"class":          func(s *models.Student, v string) { s.ClassName = v },
	"section":        func(s *models.Student, v string) { s.Section = v },
	"address":        func(s *models.Student, v string) { s.Address = v },
	"contact_number": func(s *models.Student, v string) { s.MobileNumber = v },
	"mobile_number":  func(s *models.Student, v string) { s.MobileNumber = v },
	"blood_group":    func(s *models.Student, v string) { s.BloodGroup = v },
	"passport_photo": func(s *models.Student, v string) { s.PassportPhoto = v },
	"photo":          func(s *models.Student, v string) { s.PassportPhoto = v },
}

// normalizeHeader turns "Full Name" / "GR Number" / "full-name" into full_name form
func normalizeHeader(h string) string {
	h = strings.ToLower(strings.TrimSpace(h))
	h = strings.NewReplacer(" ", "_", "-", "_", ".", "").Replace(h)
	return h
}

// ParseStudentsSheet reads students from the first sheet of an .xlsx workbook.
// The first row is the header; unknown columns are ignored, blank rows skipped.
// Row order is preserved since it becomes the export order.
func ParseStudentsSheet(r io.Reader) ([]models.Student, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to open excel file: %w", err)
	}
	defer func() {
		if err := f.Close(); err != nil {
			log.Printf("⚠️  Error closing excel file: %v", err)
		}
	}()

	sheetName := f.GetSheetName(0)
	if sheetName == "" {
		return nil, errors.New("excel file does not contain any sheets")
	}

	rows, err := f.GetRows(sheetName)
	if err != nil {
		return nil, fmt.Errorf("failed to get rows from sheet %s: %w", sheetName, err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("sheet %s is empty", sheetName)
	}

	setters := make([]func(*models.Student, string), len(rows[0]))
	matched := 0
	for i, header := range rows[0] {
		if set, ok := studentColumns[normalizeHeader(header)]; ok {
			setters[i] = set
			matched++
		}
	}
	if matched == 0 {
		return nil, fmt.Errorf("sheet %s has no recognized student columns", sheetName)
	}

	var students []models.Student
	for i, row := range rows[1:] {
		var s models.Student
		filled := false
		for col, cell := range row {
			if col >= len(setters) || setters[col] == nil {
				continue
			}
			cell = strings.TrimSpace(cell)
			if cell == "" {
				continue
			}
			setters[col](&s, cell)
			filled = true
		}
		if !filled {
			continue
		}
		if s.ID == 0 {
			// rows without an id still need a stable identity inside the session
			s.ID = int64(-(i + 1))
		}
		students = append(students, s)
	}

	log.Printf("📦 Parsed %d students from sheet %s", len(students), sheetName)
	return students, nil
}
