// Package patients holds the cached patient list and the dashboard's
// patient search.
package patients

import "strings"

// AdultResponsible is the optional guardian attached to a minor
// patient. A nil pointer means the patient has none.
type AdultResponsible struct {
	Name  string `json:"name"`
	Phone string `json:"phone"`
	CPF   string `json:"cpf"`
}

// Patient is the backend's patient record, read-mostly on this side.
type Patient struct {
	ID               string            `json:"id"`
	Name             string            `json:"name"`
	Phone            string            `json:"phone"`
	CPF              string            `json:"cpf"`
	Email            string            `json:"email,omitempty"`
	AdultResponsible *AdultResponsible `json:"adultResponsible,omitempty"`
}

// Query carries the three independent search fields. Empty fields
// match everything.
type Query struct {
	Name  string
	Phone string
	CPF   string
}

// Search filters the cached list. Every provided field must match at
// once: the production dashboard combines name, phone and CPF with a
// logical AND, and that behavior is kept even though an OR would
// likely serve users better.
func Search(list []Patient, q Query) []Patient {
	name := strings.ToLower(strings.TrimSpace(q.Name))
	phone := digits(q.Phone)
	cpf := digits(q.CPF)

	var out []Patient
	for _, p := range list {
		matchName := name == "" || strings.Contains(strings.ToLower(p.Name), name)
		matchPhone := phone == "" || strings.Contains(digits(p.Phone), phone)
		matchCPF := cpf == "" || strings.Contains(digits(p.CPF), cpf)
		if matchName && matchPhone && matchCPF {
			out = append(out, p)
		}
	}
	return out
}

// digits strips everything but 0-9, so "(11) 98765-4321" and
// "11987654321" compare equal.
func digits(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}
