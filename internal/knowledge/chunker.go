package knowledge

import "strings"

// ChunkOptions bounds chunk sizes in bytes.
type ChunkOptions struct {
	TargetSize int
	MaxSize    int
}

// DefaultChunkOptions fits a short clinic paragraph per chunk.
func DefaultChunkOptions() ChunkOptions {
	return ChunkOptions{TargetSize: 500, MaxSize: 800}
}

// WithTarget returns options aiming at size bytes per chunk.
func (o ChunkOptions) WithTarget(size int) ChunkOptions {
	if size <= 0 {
		return o
	}
	o.TargetSize = size
	if o.MaxSize < size {
		o.MaxSize = size + size/2
	}
	return o
}

// SplitText splits a document on headings and blank lines, then merges small
// sections up to the target size. Sections over MaxSize are cut on line
// boundaries.
func SplitText(text string, opts ChunkOptions) []string {
	if opts.TargetSize <= 0 || opts.MaxSize <= 0 {
		opts = DefaultChunkOptions()
	}

	text = strings.TrimSpace(strings.ReplaceAll(text, "\r\n", "\n"))
	if text == "" {
		return nil
	}
	if len(text) <= opts.MaxSize {
		return []string{text}
	}

	return mergeSections(splitSections(text), opts)
}

func splitSections(text string) []string {
	var sections []string
	var current []string

	flush := func() {
		if s := strings.TrimSpace(strings.Join(current, "\n")); s != "" {
			sections = append(sections, s)
		}
		current = nil
	}

	for _, line := range strings.Split(text, "\n") {
		trimmed := strings.TrimSpace(line)
		switch {
		case strings.HasPrefix(trimmed, "#"):
			flush()
		case trimmed == "":
			flush()
			continue
		}
		current = append(current, line)
	}
	flush()

	return sections
}

func mergeSections(sections []string, opts ChunkOptions) []string {
	var chunks []string
	var accum string

	flush := func() {
		if accum == "" {
			return
		}
		if len(accum) > opts.MaxSize {
			chunks = append(chunks, cutLines(accum, opts.TargetSize)...)
		} else {
			chunks = append(chunks, accum)
		}
		accum = ""
	}

	for _, s := range sections {
		if accum == "" {
			accum = s
			continue
		}
		if combined := accum + "\n\n" + s; len(combined) <= opts.TargetSize {
			accum = combined
			continue
		}
		flush()
		accum = s
	}
	flush()

	return chunks
}

// cutLines breaks text on line boundaries; a single line longer than size
// becomes its own chunk.
func cutLines(text string, size int) []string {
	var out []string
	var current []string
	length := 0

	for _, line := range strings.Split(text, "\n") {
		if length+len(line) > size && len(current) > 0 {
			if s := strings.TrimSpace(strings.Join(current, "\n")); s != "" {
				out = append(out, s)
			}
			current = nil
			length = 0
		}
		current = append(current, line)
		length += len(line) + 1
	}
	if s := strings.TrimSpace(strings.Join(current, "\n")); s != "" {
		out = append(out, s)
	}
	return out
}
