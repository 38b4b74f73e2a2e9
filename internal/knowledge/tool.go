package knowledge

import (
	"context"
	"fmt"
	"strings"

	"github.com/cloudwego/eino/components/retriever"
	"github.com/sirupsen/logrus"

	"github.com/sonrisasaludable/frontdesk/internal/logging"
)

// Separator joins retrieved chunks.
const Separator = "\n---\n"

// Tool is the clinic information lookup offered to the answer generator.
type Tool struct {
	retriever retriever.Retriever
	indexPath string
	log       *logrus.Entry
}

// NewTool wraps a retriever. indexPath is only used in the fallback message.
func NewTool(r retriever.Retriever, indexPath string, log *logrus.Entry) *Tool {
	if log == nil {
		log = logging.Component(logging.Discard(), "knowledge")
	}
	return &Tool{retriever: r, indexPath: indexPath, log: log}
}

// FallbackMessage is returned by Lookup whenever retrieval fails.
func FallbackMessage(indexPath string) string {
	return fmt.Sprintf("Error al consultar la base de conocimiento. Verifica que el índice '%s' exista.", indexPath)
}

// Lookup returns the most relevant chunks joined by Separator. It never
// fails: any problem yields FallbackMessage.
func (t *Tool) Lookup(ctx context.Context, query string) (result string) {
	log := t.log.WithField("query", query)
	log.Info("knowledge lookup")

	defer func() {
		if r := recover(); r != nil {
			log.WithField("panic", r).Error("knowledge lookup panicked")
			result = FallbackMessage(t.indexPath)
		}
	}()

	if t.retriever == nil {
		log.Error("knowledge lookup without retriever")
		return FallbackMessage(t.indexPath)
	}

	docs, err := t.retriever.Retrieve(ctx, query)
	if err != nil {
		log.WithError(err).Error("knowledge lookup failed")
		return FallbackMessage(t.indexPath)
	}

	parts := make([]string, 0, len(docs))
	for _, doc := range docs {
		if doc == nil {
			continue
		}
		parts = append(parts, doc.Content)
	}
	result = strings.Join(parts, Separator)

	log.WithField("chunks", len(parts)).Debugf("context found:\n%s", result)
	return result
}
