// Package clinic holds the clinic fact sheet used to ground answers.
package clinic

import (
	"errors"
	"fmt"
	"strings"
)

// Facts is the clinic's public information.
type Facts struct {
	Name      string    `yaml:"name" json:"name"`
	Address   string    `yaml:"address" json:"address"`
	Hours     Hours     `yaml:"hours" json:"hours"`
	Contact   Contact   `yaml:"contact" json:"contact"`
	Insurance Insurance `yaml:"insurance" json:"insurance"`
	Services  Services  `yaml:"services" json:"services"`
	Protocols []string  `yaml:"protocols" json:"protocols"`
}

// Hours lists the opening hours per day range.
type Hours struct {
	Weekdays  string `yaml:"weekdays" json:"weekdays"`
	Saturdays string `yaml:"saturdays" json:"saturdays"`
}

// Contact lists the phone lines.
type Contact struct {
	Central     string `yaml:"central" json:"central"`
	WhatsApp    string `yaml:"whatsapp" json:"whatsapp"`
	Emergencies string `yaml:"emergencies" json:"emergencies"`
}

// Insurance lists the accepted health insurers.
type Insurance struct {
	Fonasa  string   `yaml:"fonasa" json:"fonasa"`
	Isapres []string `yaml:"isapres" json:"isapres"`
}

// Services holds prices in Chilean pesos.
type Services struct {
	GeneralConsultation    int        `yaml:"general_consultation" json:"generalConsultation"`
	Cleaning               int        `yaml:"cleaning" json:"cleaning"`
	Fillings               PriceRange `yaml:"fillings" json:"fillings"`
	Whitening              int        `yaml:"whitening" json:"whitening"`
	OrthodonticsEvaluation int        `yaml:"orthodontics_evaluation" json:"orthodonticsEvaluation"`
}

// PriceRange is an inclusive price interval.
type PriceRange struct {
	From int `yaml:"from" json:"from"`
	To   int `yaml:"to" json:"to"`
}

// Insurers returns every accepted insurer, Fonasa first.
func (i Insurance) Insurers() []string {
	out := make([]string, 0, len(i.Isapres)+1)
	if i.Fonasa != "" {
		out = append(out, "Fonasa")
	}
	return append(out, i.Isapres...)
}

// Seed returns the fact sheet of Clínica Sonrisa Saludable.
func Seed() Facts {
	return Facts{
		Name:    "Sonrisa Saludable",
		Address: "Avenida Dental 123, Santiago Centro",
		Hours: Hours{
			Weekdays:  "9:00 - 19:00 hrs",
			Saturdays: "10:00 - 14:00 hrs",
		},
		Contact: Contact{
			Central:     "(2) 2345 6789",
			WhatsApp:    "+56 9 1234 5678",
			Emergencies: "+56 9 8765 4321",
		},
		Insurance: Insurance{
			Fonasa:  "todos los tramos",
			Isapres: []string{"Banmédica", "Colmena", "Cruz Blanca", "Consalud"},
		},
		Services: Services{
			GeneralConsultation:    15000,
			Cleaning:               25000,
			Fillings:               PriceRange{From: 20000, To: 35000},
			Whitening:              120000,
			OrthodonticsEvaluation: 30000,
		},
		Protocols: []string{
			"Para emergencias dentales, contactar inmediatamente por teléfono",
			"Después de una extracción: reposo, dieta blanda, no fumar por 48 horas",
			"Cita de control post-tratamiento a los 7 días",
		},
	}
}

// Validate reports every missing or inconsistent field at once.
func (f Facts) Validate() error {
	var errs []error
	required := map[string]string{
		"name":                f.Name,
		"address":             f.Address,
		"hours.weekdays":      f.Hours.Weekdays,
		"hours.saturdays":     f.Hours.Saturdays,
		"contact.central":     f.Contact.Central,
		"contact.whatsapp":    f.Contact.WhatsApp,
		"contact.emergencies": f.Contact.Emergencies,
	}
	for _, field := range []string{"name", "address", "hours.weekdays", "hours.saturdays", "contact.central", "contact.whatsapp", "contact.emergencies"} {
		if strings.TrimSpace(required[field]) == "" {
			errs = append(errs, fmt.Errorf("%s is required", field))
		}
	}

	prices := []struct {
		field string
		value int
	}{
		{"services.general_consultation", f.Services.GeneralConsultation},
		{"services.cleaning", f.Services.Cleaning},
		{"services.fillings.from", f.Services.Fillings.From},
		{"services.fillings.to", f.Services.Fillings.To},
		{"services.whitening", f.Services.Whitening},
		{"services.orthodontics_evaluation", f.Services.OrthodonticsEvaluation},
	}
	for _, p := range prices {
		if p.value <= 0 {
			errs = append(errs, fmt.Errorf("%s must be positive", p.field))
		}
	}
	if f.Services.Fillings.From > f.Services.Fillings.To {
		errs = append(errs, fmt.Errorf("services.fillings range is inverted: %d > %d", f.Services.Fillings.From, f.Services.Fillings.To))
	}

	if len(f.Insurance.Insurers()) == 0 {
		errs = append(errs, errors.New("insurance must list at least one insurer"))
	}

	return errors.Join(errs...)
}
