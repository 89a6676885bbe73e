package models

import (
	"fmt"
	"strings"
)

// Student is the record an ID card is rendered for. Read-only to the card engine.
type Student struct {
	ID            int64  `json:"id"`
	GRNumber      string `json:"gr_number"`
	RollNumber    string `json:"roll_number"`
	FullName      string `json:"full_name"`
	DOB           string `json:"dob"`
	Gender        string `json:"gender"`
	ClassID       string `json:"class_id"`
	ClassName     string `json:"class_name"`
	Section       string `json:"section"`
	Address       string `json:"address"`
	MobileNumber  string `json:"mobile_number"`
	BloodGroup    string `json:"blood_group"`
	PassportPhoto string `json:"passport_photo,omitempty"` // data URI, documents file name, or drive:<fileId>
}

// HasPhoto reports whether the record carries a photo reference
func (s Student) HasPhoto() bool {
	return strings.TrimSpace(s.PassportPhoto) != ""
}

// FieldKey identifies one renderable student attribute
type FieldKey string

const (
	FieldFullName      FieldKey = "full_name"
	FieldGRNumber      FieldKey = "gr_number"
	FieldRollNumber    FieldKey = "roll_number"
	FieldClassName     FieldKey = "class_name"
	FieldAddress       FieldKey = "address"
	FieldDOB           FieldKey = "dob"
	FieldContactNumber FieldKey = "contact_number"
)

// FieldKeys lists the bindable fields in menu order
var FieldKeys = []FieldKey{
	FieldFullName,
	FieldGRNumber,
	FieldRollNumber,
	FieldClassName,
	FieldAddress,
	FieldDOB,
	FieldContactNumber,
}

var fieldLabels = map[FieldKey]string{
	FieldFullName:      "Full Name",
	FieldGRNumber:      "GR Number",
	FieldRollNumber:    "Roll Number",
	FieldClassName:     "Class Name",
	FieldAddress:       "Address",
	FieldDOB:           "Date of Birth",
	FieldContactNumber: "Contact Number",
}

var fieldAccessors = map[FieldKey]func(Student) string{
	FieldFullName:      func(s Student) string { return s.FullName },
	FieldGRNumber:      func(s Student) string { return s.GRNumber },
	FieldRollNumber:    func(s Student) string { return s.RollNumber },
	FieldClassName:     func(s Student) string { return s.ClassName },
	FieldAddress:       func(s Student) string { return s.Address },
	FieldDOB:           func(s Student) string { return s.DOB },
	FieldContactNumber: func(s Student) string { return s.MobileNumber },
}

// ParseFieldKey validates a key coming from a request or a spreadsheet header
func ParseFieldKey(raw string) (FieldKey, error) {
	key := FieldKey(strings.ToLower(strings.TrimSpace(raw)))
	if _, ok := fieldAccessors[key]; !ok {
		return "", fmt.Errorf("unknown field key %q", raw)
	}
	return key, nil
}

// Label returns the human-readable field name
func (k FieldKey) Label() string {
	if label, ok := fieldLabels[k]; ok {
		return label
	}
	return string(k)
}

// FieldValue resolves a field to display text. Missing values render as "".
func (s Student) FieldValue(k FieldKey) string {
	get, ok := fieldAccessors[k]
	if !ok {
		return ""
	}
	return strings.TrimSpace(get(s))
}
