// Package intent answers common front-desk questions from the clinic facts
// without calling the remote model.
package intent

import (
	"fmt"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"github.com/sonrisasaludable/frontdesk/internal/model/clinic"
)

// Label names a recognised question type.
type Label string

const (
	None              Label = ""
	CleaningPrice     Label = "cleaning_price"
	GeneralPrice      Label = "general_price"
	FillingsPrice     Label = "fillings_price"
	WhiteningPrice    Label = "whitening_price"
	OrthodonticsPrice Label = "orthodontics_price"
	SpecificInsurer   Label = "specific_insurer"
	Hours             Label = "hours"
	PriceList         Label = "price_list"
	InsuranceList     Label = "insurance_list"
	ContactInfo       Label = "contact_info"
)

const unrecognisedAnswerText = "Lo siento, no pude entender tu consulta. ¿Podrías reformularla?"

// Decision is the outcome of routing one query.
type Decision struct {
	Intent Label
	Answer string
}

// Matched reports whether a rule fired.
func (d Decision) Matched() bool {
	return d.Intent != None
}

type rule struct {
	intent   Label
	keywords []string
	answer   func(clinic.Facts, string) string
}

// Router matches queries against an ordered rule list; the first rule whose
// keywords appear in the query wins.
type Router struct {
	facts clinic.Facts
	rules []rule
}

// NewRouter builds a router over the given facts.
func NewRouter(facts clinic.Facts) *Router {
	return &Router{facts: facts, rules: defaultRules(facts)}
}

// Route classifies the query. Decision.Matched is false when no rule applies.
func (r *Router) Route(query string) Decision {
	normalized := Normalize(query)
	if normalized == "" {
		return Decision{}
	}
	for _, rl := range r.rules {
		for _, kw := range rl.keywords {
			if strings.Contains(normalized, kw) {
				return Decision{Intent: rl.intent, Answer: rl.answer(r.facts, kw)}
			}
		}
	}
	return Decision{}
}

// Answer returns the canned answer, or an apology when nothing matches.
func (r *Router) Answer(query string) string {
	if d := r.Route(query); d.Matched() {
		return d.Answer
	}
	return unrecognisedAnswerText
}

// Normalize lowercases and strips diacritics so "Teléfono" matches "telefono".
func Normalize(text string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, strings.ToLower(strings.TrimSpace(text)))
	if err != nil {
		return strings.ToLower(strings.TrimSpace(text))
	}
	return out
}

func defaultRules(facts clinic.Facts) []rule {
	price := clinic.FormatCLP
	rules := []rule{
		{CleaningPrice, []string{"limpieza"}, func(f clinic.Facts, _ string) string {
			return "El precio de la limpieza dental es: " + price(f.Services.Cleaning)
		}},
		{GeneralPrice, []string{"consulta general", "general"}, func(f clinic.Facts, _ string) string {
			return "El precio de la consulta general es: " + price(f.Services.GeneralConsultation)
		}},
		{FillingsPrice, []string{"obturacion", "tapadura"}, func(f clinic.Facts, _ string) string {
			return fmt.Sprintf("El precio de las obturaciones va desde %s hasta %s", price(f.Services.Fillings.From), price(f.Services.Fillings.To))
		}},
		{WhiteningPrice, []string{"blanqueamiento"}, func(f clinic.Facts, _ string) string {
			return "El precio del blanqueamiento dental es: " + price(f.Services.Whitening)
		}},
		{OrthodonticsPrice, []string{"ortodoncia"}, func(f clinic.Facts, _ string) string {
			return "El precio de la evaluación de ortodoncia es: " + price(f.Services.OrthodonticsEvaluation)
		}},
	}

	insurers := facts.Insurance.Insurers()
	names := make(map[string]string, len(insurers))
	keywords := make([]string, 0, len(insurers))
	for _, name := range insurers {
		kw := Normalize(name)
		names[kw] = name
		keywords = append(keywords, kw)
	}
	rules = append(rules, rule{SpecificInsurer, keywords, func(_ clinic.Facts, kw string) string {
		return "Sí, trabajamos con " + names[kw]
	}})

	return append(rules,
		rule{Hours, []string{"horario", "abren", "atienden"}, func(f clinic.Facts, _ string) string {
			return fmt.Sprintf("Nuestros horarios de atención son:\n- Lunes a Viernes: %s\n- Sábados: %s", f.Hours.Weekdays, f.Hours.Saturdays)
		}},
		rule{PriceList, []string{"precio", "valor", "costo", "cuanto cuesta"}, func(f clinic.Facts, _ string) string {
			s := f.Services
			return fmt.Sprintf("Estos son nuestros precios:\n- Consulta general: %s\n- Limpieza dental: %s\n- Obturaciones: %s - %s\n- Blanqueamiento dental: %s\n- Ortodoncia (evaluación inicial): %s",
				price(s.GeneralConsultation), price(s.Cleaning), price(s.Fillings.From), price(s.Fillings.To), price(s.Whitening), price(s.OrthodonticsEvaluation))
		}},
		rule{InsuranceList, []string{"seguro", "isapre", "prevision"}, func(f clinic.Facts, _ string) string {
			return "Trabajamos con los siguientes seguros: " + strings.Join(f.Insurance.Insurers(), ", ")
		}},
		rule{ContactInfo, []string{"telefono", "contacto", "numero", "whatsapp", "urgencia", "direccion"}, func(f clinic.Facts, _ string) string {
			return fmt.Sprintf("Puedes contactarnos en:\n- Teléfono: %s\n- WhatsApp: %s\n- Urgencias: %s\n- Dirección: %s", f.Contact.Central, f.Contact.WhatsApp, f.Contact.Emergencies, f.Address)
		}},
	)
}
