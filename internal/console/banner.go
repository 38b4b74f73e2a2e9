package console

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

var (
	titleStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("14"))
	hintStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	boxStyle   = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
)

// Banner renders the greeting shown before the first prompt.
func Banner(clinicName, mode string) string {
	title := titleStyle.Render("🦷 CLÍNICA DENTAL '" + strings.ToUpper(clinicName) + "'")
	subtitle := "🤖 Asistente virtual (modo " + mode + ")"
	hints := hintStyle.Render(strings.Join([]string{
		"📋 Puedes preguntar sobre: horarios, teléfonos, seguros, precios...",
		"❌ Escribe 'salir' para terminar",
	}, "\n"))

	return boxStyle.Render(strings.Join([]string{title, subtitle, "", "💬 ¡Sistema listo para conversar!", hints}, "\n"))
}
