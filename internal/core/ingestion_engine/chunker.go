package ingestion_engine

import (
	"context"
	"strings"

	"golang.org/x/sync/errgroup"
)

// IngestConfig tunes the streaming chunker.
//
// TargetTokens:  approximate tokens per chunk.
// OverlapTokens: tokens retained from the end of one chunk as the seed of the next.
// MinChunkChars: chunks shorter than this are dropped as noise.
type IngestConfig struct {
	TargetTokens  int
	OverlapTokens int
	MinChunkChars int
}

func DefaultIngestConfig() *IngestConfig {
	return &IngestConfig{
		TargetTokens:  800,
		OverlapTokens: 200,
		MinChunkChars: 50,
	}
}

// chunk is the internal representation passed through the pipeline.
type chunk struct {
	Index    int
	Text     string
	TokenCnt int
}

// streamLines feeds non-empty lines of the document into a fragment channel.
func streamLines(ctx context.Context, g *errgroup.Group, text string) <-chan string {
	out := make(chan string, 32)

	g.Go(func() error {
		defer close(out)
		for _, line := range strings.Split(text, "\n") {
			if line = strings.TrimSpace(line); line == "" {
				continue
			}
			select {
			case out <- line:
			case <-ctx.Done():
				return ctx.Err()
			}
		}
		return nil
	})

	return out
}

// streamChunk groups incoming fragments into token-bounded chunks with overlap.
func streamChunk(
	ctx context.Context,
	g *errgroup.Group,
	frags <-chan string,
	targetTokens int,
	overlapTokens int,
) <-chan chunk {
	out := make(chan chunk, 8)

	g.Go(func() error {
		defer close(out)

		var (
			buf    []string
			tokSum int
			index  int
			fresh  bool
		)

		// flush emits the buffer as a chunk and keeps an overlapTokens tail
		// as the seed of the next one.
		flush := func(force bool) error {
			if tokSum == 0 && !force {
				return nil
			}
			ch := chunk{Index: index, Text: strings.Join(buf, "\n"), TokenCnt: tokSum}
			index++

			select {
			case out <- ch:
			case <-ctx.Done():
				return ctx.Err()
			}

			if overlapTokens > 0 {
				keep := []string{}
				remain := overlapTokens
				for j := len(buf) - 1; j >= 0 && remain > 0; j-- {
					keep = append([]string{buf[j]}, keep...)
					remain -= approxTokens(buf[j])
				}
				buf = keep
				tokSum = 0
				for _, s := range buf {
					tokSum += approxTokens(s)
				}
			} else {
				buf = buf[:0]
				tokSum = 0
			}
			return nil
		}

		for frag := range frags {
			select {
			case <-ctx.Done():
				return ctx.Err()
			default:
			}

			buf = append(buf, frag)
			tokSum += approxTokens(frag)
			fresh = true

			if tokSum >= targetTokens {
				if err := flush(false); err != nil {
					return err
				}
				fresh = false
			}
		}

		// A tail of pure overlap was already emitted with the previous chunk.
		if !fresh {
			return nil
		}
		return flush(true)
	})

	return out
}

// collectChunks runs the line and chunk stages over the full document text
// and gathers the results. Chunks below the minimum length are dropped. Text
// the line chunker cannot handle (no line breaks, or a single line far past
// the target size) is re-split with a character window instead.
func collectChunks(ctx context.Context, text string, cfg *IngestConfig) ([]chunk, error) {
	g, gctx := errgroup.WithContext(ctx)

	frags := streamLines(gctx, g, text)
	chunkCh := streamChunk(gctx, g, frags, cfg.TargetTokens, cfg.OverlapTokens)

	var out []chunk
	g.Go(func() error {
		for c := range chunkCh {
			if len(strings.TrimSpace(c.Text)) < cfg.MinChunkChars {
				continue
			}
			c.Index = len(out)
			out = append(out, c)
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}

	oversized := false
	for _, c := range out {
		if c.TokenCnt > cfg.TargetTokens*2 {
			oversized = true
			break
		}
	}

	if len(out) == 0 || oversized {
		out = out[:0]
		for _, part := range splitByChars(text, cfg.TargetTokens*4, cfg.OverlapTokens*4) {
			if len(strings.TrimSpace(part)) < cfg.MinChunkChars {
				continue
			}
			out = append(out, chunk{Index: len(out), Text: part, TokenCnt: approxTokens(part)})
		}
	}
	return out, nil
}

// splitByChars windows the text by character count with overlap, preferring to
// break at a sentence boundary near the end of each window.
func splitByChars(text string, size, overlap int) []string {
	runes := []rune(text)
	if size <= 0 || len(runes) == 0 {
		return nil
	}

	var parts []string
	start := 0
	for start < len(runes) {
		end := start + size
		if end > len(runes) {
			end = len(runes)
		}

		if end < len(runes) {
			boundary := end
			for j := end - 1; j >= start && j >= end-200; j-- {
				if runes[j] == '.' {
					boundary = j + 1
					break
				}
			}
			end = boundary
		}

		parts = append(parts, strings.TrimSpace(string(runes[start:end])))
		if end == len(runes) {
			break
		}
		start = end - overlap
		if start < 0 {
			start = 0
		}
	}
	return parts
}

// approxTokens is a cheap token estimator (~4 chars ≈ 1 token).
func approxTokens(s string) int {
	n := len([]rune(s))
	if n <= 0 {
		return 0
	}
	return (n + 3) / 4
}
