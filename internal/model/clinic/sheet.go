package clinic

import (
	"fmt"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

var pesoPrinter = message.NewPrinter(language.Spanish)

// FormatCLP renders an amount of pesos with Spanish digit grouping, e.g. $25.000.
func FormatCLP(amount int) string {
	return pesoPrinter.Sprintf("$%d", amount)
}

// Sheet renders the facts as the bullet block embedded in prompts.
func (f Facts) Sheet() string {
	s := f.Services
	var b strings.Builder
	fmt.Fprintf(&b, "- **Horarios de atención**: Lunes a Viernes: %s, Sábados: %s\n", f.Hours.Weekdays, f.Hours.Saturdays)
	fmt.Fprintf(&b, "- **Teléfonos**: Central: %s, WhatsApp: %s, Urgencias: %s\n", f.Contact.Central, f.Contact.WhatsApp, f.Contact.Emergencies)
	b.WriteString("- **Seguros de salud aceptados**: ")
	if f.Insurance.Fonasa != "" {
		fmt.Fprintf(&b, "Fonasa (%s)", f.Insurance.Fonasa)
		if len(f.Insurance.Isapres) > 0 {
			b.WriteString(", ")
		}
	}
	if len(f.Insurance.Isapres) > 0 {
		fmt.Fprintf(&b, "Isapres: %s", strings.Join(f.Insurance.Isapres, ", "))
	}
	b.WriteString("\n")
	fmt.Fprintf(&b, "- **Dirección**: %s\n", f.Address)
	b.WriteString("- **Servicios principales**:\n")
	fmt.Fprintf(&b, "  * Consulta general: %s\n", FormatCLP(s.GeneralConsultation))
	fmt.Fprintf(&b, "  * Limpieza dental: %s\n", FormatCLP(s.Cleaning))
	fmt.Fprintf(&b, "  * Obturaciones (tapaduras): %s - %s\n", FormatCLP(s.Fillings.From), FormatCLP(s.Fillings.To))
	fmt.Fprintf(&b, "  * Blanqueamiento dental: %s\n", FormatCLP(s.Whitening))
	fmt.Fprintf(&b, "  * Ortodoncia: evaluación inicial %s", FormatCLP(s.OrthodonticsEvaluation))

	if len(f.Protocols) > 0 {
		b.WriteString("\n\nPROTOCOLOS IMPORTANTES:")
		for _, p := range f.Protocols {
			b.WriteString("\n- ")
			b.WriteString(p)
		}
	}
	return b.String()
}
