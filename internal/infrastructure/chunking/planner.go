// Package chunking splits large extracted documents into independently
// reviewable slices.
package chunking

import "strings"

type Planner struct {
	ChunkSize int
	Overlap   int
}

func NewPlanner(chunkSize, overlap int) *Planner {
	if chunkSize <= 0 {
		chunkSize = 16000
	}
	if overlap < 0 {
		overlap = 0
	}
	if overlap >= chunkSize {
		overlap = chunkSize / 4
	}
	return &Planner{
		ChunkSize: chunkSize,
		Overlap:   overlap,
	}
}

// Split cuts text into rune-bounded chunks. A document at or under the
// chunk size comes back as a single chunk and is reviewed unsplit.
func (p *Planner) Split(text string) []string {
	runes := []rune(text)
	if len(runes) == 0 {
		return nil
	}
	if len(runes) <= p.ChunkSize {
		return []string{text}
	}

	step := p.ChunkSize - p.Overlap
	if step <= 0 {
		step = p.ChunkSize
	}

	out := make([]string, 0, len(runes)/step+1)
	for start := 0; start < len(runes); start += step {
		end := start + p.ChunkSize
		if end > len(runes) {
			end = len(runes)
		}
		chunk := strings.TrimSpace(string(runes[start:end]))
		if chunk != "" {
			out = append(out, chunk)
		}
		if end == len(runes) {
			break
		}
	}
	return out
}
