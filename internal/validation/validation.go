// Package validation holds the field rules of a person record. Every validator is a pure
// function returning ReasonNone when the value is acceptable.
package validation

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

	"gitlab.com/dirk.krummacker/person-directory/pkg/model"
)

// Field identifies one editable field of a person record.
type Field int

const (
	FieldLastName Field = iota
	FieldFirstName
	FieldBirthDate
	FieldAddress
	FieldPhone

	fieldCount
)

// Fields lists all fields in form order.
var Fields = [fieldCount]Field{FieldLastName, FieldFirstName, FieldBirthDate, FieldAddress, FieldPhone}

func (f Field) String() string {
	switch f {
	case FieldLastName:
		return "nom"
	case FieldFirstName:
		return "prenom"
	case FieldBirthDate:
		return "dateNaissance"
	case FieldAddress:
		return "adresse"
	case FieldPhone:
		return "telephone"
	}
	return fmt.Sprintf("Field(%d)", int(f))
}

// Label is the human-readable name of the field.
func (f Field) Label() string {
	switch f {
	case FieldLastName:
		return "last name"
	case FieldFirstName:
		return "first name"
	case FieldBirthDate:
		return "birth date"
	case FieldAddress:
		return "address"
	case FieldPhone:
		return "phone"
	}
	return f.String()
}

// Reason is the cause of a failed validation.
type Reason int

const (
	ReasonNone Reason = iota
	ReasonRequired
	ReasonInvalidCharset
	ReasonWrongLength
	ReasonInvalidFormat
	ReasonFutureDate
)

func (r Reason) String() string {
	switch r {
	case ReasonNone:
		return "None"
	case ReasonRequired:
		return "Required"
	case ReasonInvalidCharset:
		return "InvalidCharset"
	case ReasonWrongLength:
		return "WrongLength"
	case ReasonInvalidFormat:
		return "InvalidFormat"
	case ReasonFutureDate:
		return "FutureDate"
	}
	return fmt.Sprintf("Reason(%d)", int(r))
}

// Message renders the reason for field f as shown next to the input.
func (r Reason) Message(f Field) string {
	switch r {
	case ReasonRequired:
		return fmt.Sprintf("the %s is required", f.Label())
	case ReasonInvalidCharset:
		if f == FieldAddress {
			return "the address contains invalid characters"
		}
		return fmt.Sprintf("the %s must only contain letters and spaces", f.Label())
	case ReasonWrongLength:
		return "the number must contain exactly 9 digits"
	case ReasonInvalidFormat:
		if f == FieldBirthDate {
			return "the birth date must be formatted as YYYY-MM-DD"
		}
		return "the number must start with 7 (e.g. 77, 78, 76, 75, 70)"
	case ReasonFutureDate:
		return "the birth date cannot be in the future"
	}
	return ""
}

var (
	// Latin letters including the accented range, without the × and ÷ signs.
	nameRegex    = regexp.MustCompile(`^[a-zA-ZÀ-ÖØ-öø-ÿ\s]+$`)
	addressRegex = regexp.MustCompile(`^[a-zA-Z0-9À-ÖØ-öø-ÿ\s,.-]+$`)
	phoneRegex   = regexp.MustCompile(`^7[0-8][0-9]{7}$`)
)

// ValidateName checks a required last or first name.
func ValidateName(value string) Reason {
	if strings.TrimSpace(value) == "" {
		return ReasonRequired
	}
	if !nameRegex.MatchString(value) {
		return ReasonInvalidCharset
	}
	return ReasonNone
}

// ValidatePhone checks an optional phone number. Spaces are ignored.
func ValidatePhone(value string) Reason {
	if value == "" {
		return ReasonNone
	}
	cleaned := strings.ReplaceAll(value, " ", "")
	if utf8.RuneCountInString(cleaned) != 9 {
		return ReasonWrongLength
	}
	if !phoneRegex.MatchString(cleaned) {
		return ReasonInvalidFormat
	}
	return ReasonNone
}

// ValidateAddress checks an optional postal address.
func ValidateAddress(value string) Reason {
	if value == "" {
		return ReasonNone
	}
	if !addressRegex.MatchString(value) {
		return ReasonInvalidCharset
	}
	return ReasonNone
}

// ValidateBirthDate checks an optional "YYYY-MM-DD" birth date against the day of now.
func ValidateBirthDate(value string, now time.Time) Reason {
	if strings.TrimSpace(value) == "" {
		return ReasonNone
	}
	d, err := model.ParseDate(value)
	if err != nil {
		return ReasonInvalidFormat
	}
	if d.AfterDay(now) {
		return ReasonFutureDate
	}
	return ReasonNone
}

// Validate runs the validator of field f on value.
func Validate(f Field, value string, now time.Time) Reason {
	switch f {
	case FieldLastName, FieldFirstName:
		return ValidateName(value)
	case FieldBirthDate:
		return ValidateBirthDate(value, now)
	case FieldAddress:
		return ValidateAddress(value)
	case FieldPhone:
		return ValidatePhone(value)
	}
	return ReasonNone
}

// ValidationError is a failed field validation. It never leaves the client.
type ValidationError struct {
	Field  Field
	Reason Reason
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Reason.Message(e.Field))
}

// Errors has one slot per field; ReasonNone means the field is valid.
type Errors [fieldCount]Reason

// Get returns the reason recorded for f.
func (e Errors) Get(f Field) Reason {
	return e[f]
}

// Set records reason r for f.
func (e *Errors) Set(f Field, r Reason) {
	e[f] = r
}

// Any reports whether at least one field failed.
func (e Errors) Any() bool {
	for _, r := range e {
		if r != ReasonNone {
			return true
		}
	}
	return false
}

// Clear resets every slot.
func (e *Errors) Clear() {
	*e = Errors{}
}

// Err joins the failures into one error, or returns nil.
func (e Errors) Err() error {
	var errs []error
	for _, f := range Fields {
		if e[f] != ReasonNone {
			errs = append(errs, &ValidationError{Field: f, Reason: e[f]})
		}
	}
	return errors.Join(errs...)
}

// Values carries the raw text of every field, as typed by the user.
type Values [fieldCount]string

// ValidateAll recomputes every slot from scratch.
func ValidateAll(values Values, now time.Time) Errors {
	var errs Errors
	for _, f := range Fields {
		errs[f] = Validate(f, values[f], now)
	}
	return errs
}
