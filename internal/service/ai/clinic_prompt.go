package ai

import (
	"fmt"
	"strings"

	"github.com/sonrisasaludable/frontdesk/internal/model/clinic"
)

// PromptTemplate groups the fixed parts of a system prompt.
type PromptTemplate struct {
	Role         string
	Instructions []string
}

// PromptBuilder renders system prompts for both answering modes.
type PromptBuilder struct {
	facts      clinic.Facts
	factsMode  PromptTemplate
	agentMode  PromptTemplate
	jsonOutput bool
}

// NewPromptBuilder creates a builder over the clinic facts. When jsonOutput is
// set every prompt asks the model to answer as {"output": "..."}.
func NewPromptBuilder(facts clinic.Facts, jsonOutput bool) *PromptBuilder {
	role := fmt.Sprintf("Eres un asistente dental profesional de la Clínica %q.", facts.Name)
	return &PromptBuilder{
		facts: facts,
		factsMode: PromptTemplate{
			Role: role,
			Instructions: []string{
				"Responde ÚNICAMENTE con la información proporcionada arriba",
				"Mantén un tono profesional pero empático",
				"No des diagnósticos médicos complejos",
				"Para situaciones de emergencia, deriva inmediatamente al teléfono de urgencias",
				"Si la consulta no está en la información, sugiere contactar directamente con la clínica",
			},
		},
		agentMode: PromptTemplate{
			Role: role,
			Instructions: []string{
				"Mantén un tono profesional pero empático.",
				"No des diagnósticos médicos complejos.",
				"Para situaciones de emergencia, deriva inmediatamente al teléfono de urgencias.",
				"Usa la información recuperada para responder preguntas sobre la clínica (precios, horarios, etc.).",
				"Tienes acceso a un historial de chat para mantener el contexto.",
			},
		},
		jsonOutput: jsonOutput,
	}
}

// FactsPrompt embeds the complete fact sheet.
func (pb *PromptBuilder) FactsPrompt() string {
	var b strings.Builder
	b.WriteString(pb.factsMode.Role)
	b.WriteString("\n\nINFORMACIÓN OFICIAL DE LA CLÍNICA:\n")
	b.WriteString(pb.facts.Sheet())
	b.WriteString("\n\nINSTRUCCIONES PARA EL ASISTENTE:")
	for i, rule := range pb.factsMode.Instructions {
		fmt.Fprintf(&b, "\n%d. %s", i+1, rule)
	}
	pb.appendOutputHint(&b)
	return b.String()
}

// AgentPrompt carries the base instructions plus whatever the knowledge
// lookup returned for the current query.
func (pb *PromptBuilder) AgentPrompt(retrieved string) string {
	var b strings.Builder
	b.WriteString(pb.agentMode.Role)
	for _, rule := range pb.agentMode.Instructions {
		b.WriteString("\n- ")
		b.WriteString(rule)
	}

	retrieved = strings.TrimSpace(retrieved)
	if retrieved != "" {
		b.WriteString("\n\nINFORMACIÓN RECUPERADA DE LA BASE DE CONOCIMIENTO:\n")
		b.WriteString(retrieved)
	}
	pb.appendOutputHint(&b)
	return b.String()
}

func (pb *PromptBuilder) appendOutputHint(b *strings.Builder) {
	if !pb.jsonOutput {
		return
	}
	b.WriteString("\n\nResponde siempre con un objeto JSON de la forma {\"output\": \"<tu respuesta>\"} y nada más.")
}
