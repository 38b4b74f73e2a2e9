package knowledge

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/cloudwego/eino/components/embedding"
	"github.com/sirupsen/logrus"

	"github.com/sonrisasaludable/frontdesk/internal/logging"
)

const defaultBatchSize = 32

// BuildStats summarises an index build.
type BuildStats struct {
	Documents  int
	Chunks     int
	Dimensions int
}

// Builder turns a directory of .txt and .md files into an index.
type Builder struct {
	embedder  embedding.Embedder
	model     string
	chunking  ChunkOptions
	batchSize int
	log       *logrus.Entry
}

// NewBuilder creates a builder. model is recorded in the index metadata.
func NewBuilder(embedder embedding.Embedder, model string, chunking ChunkOptions, log *logrus.Entry) *Builder {
	if log == nil {
		log = logging.Component(logging.Discard(), "indexer")
	}
	return &Builder{
		embedder:  embedder,
		model:     model,
		chunking:  chunking,
		batchSize: defaultBatchSize,
		log:       log,
	}
}

// Build indexes every document under docsDir into indexPath. The index is
// written to a temporary file and renamed into place, so readers never see a
// partial index.
func (b *Builder) Build(ctx context.Context, docsDir, indexPath string) (BuildStats, error) {
	if b.embedder == nil {
		return BuildStats{}, errors.New("embedder is required")
	}

	docs, err := collectDocuments(docsDir)
	if err != nil {
		return BuildStats{}, err
	}
	if len(docs) == 0 {
		return BuildStats{}, fmt.Errorf("no .txt or .md documents under %s", docsDir)
	}

	var chunks []Chunk
	for _, path := range docs {
		raw, err := os.ReadFile(path)
		if err != nil {
			return BuildStats{}, fmt.Errorf("read %s: %w", path, err)
		}
		source, err := sourceName(docsDir, path)
		if err != nil {
			return BuildStats{}, err
		}
		for seq, text := range SplitText(string(raw), b.chunking) {
			chunks = append(chunks, Chunk{Source: source, Seq: seq, Text: text})
		}
	}
	if len(chunks) == 0 {
		return BuildStats{}, fmt.Errorf("documents under %s contain no text", docsDir)
	}

	if err := b.embed(ctx, chunks); err != nil {
		return BuildStats{}, err
	}
	dims := len(chunks[0].Embedding)

	tmpPath := indexPath + ".tmp"
	idx, err := Create(tmpPath)
	if err != nil {
		return BuildStats{}, err
	}
	if err := b.write(ctx, idx, chunks, dims); err != nil {
		idx.Close()
		os.Remove(tmpPath)
		return BuildStats{}, err
	}
	if err := idx.Close(); err != nil {
		os.Remove(tmpPath)
		return BuildStats{}, fmt.Errorf("close index: %w", err)
	}
	if err := os.Rename(tmpPath, indexPath); err != nil {
		os.Remove(tmpPath)
		return BuildStats{}, fmt.Errorf("install index: %w", err)
	}

	stats := BuildStats{Documents: len(docs), Chunks: len(chunks), Dimensions: dims}
	b.log.WithFields(logrus.Fields{
		"documents":  stats.Documents,
		"chunks":     stats.Chunks,
		"dimensions": stats.Dimensions,
		"index":      indexPath,
	}).Info("index built")
	return stats, nil
}

func (b *Builder) embed(ctx context.Context, chunks []Chunk) error {
	for start := 0; start < len(chunks); start += b.batchSize {
		end := min(start+b.batchSize, len(chunks))
		texts := make([]string, 0, end-start)
		for _, c := range chunks[start:end] {
			texts = append(texts, c.Text)
		}

		vectors, err := b.embedder.EmbedStrings(ctx, texts)
		if err != nil {
			return fmt.Errorf("embed chunks %d-%d: %w", start, end-1, err)
		}
		if len(vectors) != len(texts) {
			return fmt.Errorf("embedder returned %d vectors for %d chunks", len(vectors), len(texts))
		}
		for i, v := range vectors {
			chunks[start+i].Embedding = v
		}
		b.log.WithField("done", end).Debug("embedded batch")
	}

	dims := len(chunks[0].Embedding)
	for _, c := range chunks {
		if len(c.Embedding) != dims || dims == 0 {
			return fmt.Errorf("inconsistent embedding dimensions in %s#%d", c.Source, c.Seq)
		}
	}
	return nil
}

func (b *Builder) write(ctx context.Context, idx *Index, chunks []Chunk, dims int) error {
	if err := idx.Add(ctx, chunks); err != nil {
		return err
	}
	meta := map[string]string{
		MetaEmbeddingModel: b.model,
		MetaDimensions:     strconv.Itoa(dims),
		MetaBuiltAt:        time.Now().UTC().Format(time.RFC3339),
	}
	for key, value := range meta {
		if err := idx.SetMeta(ctx, key, value); err != nil {
			return err
		}
	}
	return nil
}

func collectDocuments(root string) ([]string, error) {
	var docs []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		switch strings.ToLower(filepath.Ext(path)) {
		case ".txt", ".md":
			docs = append(docs, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("scan %s: %w", root, err)
	}
	sort.Strings(docs)
	return docs, nil
}

// sourceName is the slash-separated document path relative to docsDir.
func sourceName(docsDir, path string) (string, error) {
	rel, err := filepath.Rel(docsDir, path)
	if err != nil {
		return "", fmt.Errorf("resolve source name for %s: %w", path, err)
	}
	return filepath.ToSlash(rel), nil
}
