package embedding

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// FanOutOptions tune the concurrent batch embedding helper.
type FanOutOptions struct {
	// BatchSize is how many texts are embedded concurrently per wave.
	BatchSize int

	// InterBatchDelay is slept between waves to respect provider rate
	// limits.
	InterBatchDelay time.Duration
}

// FanOut embeds texts in concurrent waves of BatchSize, gathering results
// in input order, with a small delay between waves. Providers with a native
// batch endpoint should be called through EmbedBatch instead; this helper
// serves providers that only expose single-text embedding.
func FanOut(ctx context.Context, p Provider, texts []string, optFns ...func(o *FanOutOptions)) ([][]float64, error) {
	opts := FanOutOptions{BatchSize: 8, InterBatchDelay: 50 * time.Millisecond}
	for _, fn := range optFns {
		fn(&opts)
	}
	if opts.BatchSize <= 0 {
		opts.BatchSize = 1
	}

	results := make([][]float64, len(texts))
	var (
		mu       sync.Mutex
		firstErr error
	)

	for start := 0; start < len(texts); start += opts.BatchSize {
		end := start + opts.BatchSize
		if end > len(texts) {
			end = len(texts)
		}

		var wg sync.WaitGroup
		for i := start; i < end; i++ {
			wg.Add(1)
			go func(idx int) {
				defer wg.Done()
				vec, err := p.Embed(ctx, texts[idx])
				if err != nil {
					mu.Lock()
					if firstErr == nil {
						firstErr = fmt.Errorf("embed text %d: %w", idx, err)
					}
					mu.Unlock()
					return
				}
				results[idx] = vec
			}(i)
		}
		wg.Wait()

		if firstErr != nil {
			return nil, firstErr
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if end < len(texts) && opts.InterBatchDelay > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(opts.InterBatchDelay):
			}
		}
	}
	return results, nil
}
