package models

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

type Field string

const (
	FieldName      Field = "name"
	FieldPhone     Field = "phone"
	FieldBirthdate Field = "birthdate"
	FieldQuantity  Field = "quantity"
	FieldLotID     Field = "lotId"
)

var (
	ErrUnknownField     = errors.New("unknown field")
	ErrInvalidBirthdate = errors.New("invalid birthdate")
)

// Registrant is the person being registered. It is a value type: every With
// method returns a new copy and leaves the receiver untouched.
type Registrant struct {
	Name      string     `json:"name"`
	Phone     string     `json:"phone"`
	Birthdate *time.Time `json:"birthdate"`
	LotID     string     `json:"lotId"`
}

func (r Registrant) WithName(name string) Registrant {
	r.Name = name
	return r
}

func (r Registrant) WithPhone(phone string) Registrant {
	r.Phone = phone
	return r
}

func (r Registrant) WithBirthdate(birthdate *time.Time) Registrant {
	if birthdate != nil {
		b := *birthdate
		birthdate = &b
	}
	r.Birthdate = birthdate
	return r
}

func (r Registrant) WithLotID(lotID string) Registrant {
	r.LotID = lotID
	return r
}

// WithField applies a raw form value to the named field. Quantity is not a
// registrant field and is rejected like any other unknown name.
func (r Registrant) WithField(field Field, value string) (Registrant, error) {
	switch field {
	case FieldName:
		return r.WithName(value), nil
	case FieldPhone:
		return r.WithPhone(value), nil
	case FieldLotID:
		return r.WithLotID(strings.TrimSpace(value)), nil
	case FieldBirthdate:
		birthdate, err := ParseBirthdate(value)
		if err != nil {
			return r, err
		}
		return r.WithBirthdate(birthdate), nil
	default:
		return r, fmt.Errorf("%w: %q", ErrUnknownField, field)
	}
}

// ParseBirthdate accepts a calendar date (2006-01-02) or an RFC 3339
// timestamp. An empty value clears the birthdate.
func ParseBirthdate(value string) (*time.Time, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil, nil
	}
	for _, layout := range []string{time.DateOnly, time.RFC3339Nano} {
		if t, err := time.Parse(layout, value); err == nil {
			return &t, nil
		}
	}
	return nil, fmt.Errorf("%w: %q", ErrInvalidBirthdate, value)
}
