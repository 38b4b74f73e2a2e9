package ai

import (
	"strings"
	"testing"

	"github.com/sonrisasaludable/frontdesk/internal/model/clinic"
)

func TestFactsPromptContainsSheetAndRules(t *testing.T) {
	pb := NewPromptBuilder(clinic.Seed(), false)
	prompt := pb.FactsPrompt()

	for _, want := range []string{
		`Clínica "Sonrisa Saludable"`,
		"INFORMACIÓN OFICIAL DE LA CLÍNICA",
		"Urgencias: +56 9 8765 4321",
		"Blanqueamiento dental: $120.000",
		"5. Si la consulta no está en la información",
	} {
		if !strings.Contains(prompt, want) {
			t.Fatalf("facts prompt missing %q:\n%s", want, prompt)
		}
	}
	if strings.Contains(prompt, `"output"`) {
		t.Fatal("json hint must be absent when disabled")
	}
}

func TestAgentPromptOmitsEmptyContext(t *testing.T) {
	pb := NewPromptBuilder(clinic.Seed(), false)
	if strings.Contains(pb.AgentPrompt("  "), "INFORMACIÓN RECUPERADA") {
		t.Fatal("empty retrieval should not add a context section")
	}
}
