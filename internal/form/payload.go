package form

import (
	"github.com/gdg-garage/cafe-das-mulheres/internal/models"
)

// TimestampLayout is the canonical birthdate format sent to the webhook.
const TimestampLayout = "2006-01-02T15:04:05.000Z"

// Payload is what the automation webhook receives for one registration.
type Payload struct {
	Name      string  `json:"name"`
	Phone     string  `json:"phone"`
	Birthdate *string `json:"birthdate"`
	LotID     string  `json:"lotId"`
	Quantity  int     `json:"quantity"`
}

// Format returns a copy of r with a sanitized name, a digits-only phone and
// the birthdate in UTC.
func Format(r models.Registrant) models.Registrant {
	out := r.WithName(Sanitize(r.Name)).WithPhone(NormalizePhone(r.Phone))
	if r.Birthdate != nil {
		b := r.Birthdate.UTC()
		out = out.WithBirthdate(&b)
	}
	return out
}

func NewPayload(r models.Registrant, quantity int) Payload {
	r = Format(r)

	p := Payload{
		Name:     r.Name,
		Phone:    r.Phone,
		LotID:    r.LotID,
		Quantity: quantity,
	}
	if r.Birthdate != nil {
		ts := r.Birthdate.Format(TimestampLayout)
		p.Birthdate = &ts
	}
	return p
}
