package form

import (
	"fmt"
	"time"
	"unicode/utf8"

	"github.com/gdg-garage/cafe-das-mulheres/internal/models"
)

const (
	MinNameLength = 2
	MinAgeYears   = 16
)

var (
	MsgName             = fmt.Sprintf("Nome inválido (mínimo %d caracteres).", MinNameLength)
	MsgPhone            = fmt.Sprintf("Telefone deve conter de %d a %d dígitos.", PhoneMinDigits, PhoneMaxDigits)
	MsgBirthdateMissing = "Data de nascimento obrigatória."
	MsgBirthdateMinAge  = fmt.Sprintf("Idade mínima: %d anos.", MinAgeYears)
	MsgQuantity         = "Quantidade mínima é 1."
	MsgLotUnavailable   = "Selecione um lote disponível."
	MsgQuantityExceeded = "Quantidade indisponível para o lote selecionado."
)

// Errors maps a field to its message. An empty map means the form is valid.
type Errors map[models.Field]string

// Merge copies every entry of other into e, keeping e's message on conflicts.
func (e Errors) Merge(other Errors) Errors {
	for field, msg := range other {
		if _, ok := e[field]; !ok {
			e[field] = msg
		}
	}
	return e
}

// ValidateForm runs every field rule against r and quantity. Rules do not
// short-circuit, so the result lists all failing fields at once.
func ValidateForm(r models.Registrant, quantity int, now time.Time) Errors {
	errs := Errors{}

	if utf8.RuneCountInString(Sanitize(r.Name)) < MinNameLength {
		errs[models.FieldName] = MsgName
	}

	if !ValidatePhone(r.Phone) {
		errs[models.FieldPhone] = MsgPhone
	}

	if r.Birthdate == nil {
		errs[models.FieldBirthdate] = MsgBirthdateMissing
	} else if !OldEnough(*r.Birthdate, now) {
		errs[models.FieldBirthdate] = MsgBirthdateMinAge
	}

	if quantity < 1 {
		errs[models.FieldQuantity] = MsgQuantity
	}

	return errs
}

// ValidateLot checks the selected lot against the pickable list. A quantity
// below one is left to ValidateForm.
func ValidateLot(lotID string, quantity int, pickable []models.Lot) Errors {
	errs := Errors{}

	for _, lot := range pickable {
		if lot.ID != lotID {
			continue
		}
		if quantity > lot.Quantity {
			errs[models.FieldQuantity] = MsgQuantityExceeded
		}
		return errs
	}

	errs[models.FieldLotID] = MsgLotUnavailable
	return errs
}

// OldEnough reports whether someone born on birthdate is at least
// MinAgeYears old on now. Only calendar dates are compared: the birthdate is
// read in its own location and now in the caller's, so a date-only value
// parsed as UTC midnight is not shifted by the server's time zone.
func OldEnough(birthdate, now time.Time) bool {
	by, bm, bd := birthdate.Date()
	ny, nm, nd := now.Date()

	born := time.Date(by, bm, bd, 0, 0, 0, 0, time.UTC)
	cutoff := time.Date(ny-MinAgeYears, nm, nd, 0, 0, 0, 0, time.UTC)
	return !born.After(cutoff)
}
