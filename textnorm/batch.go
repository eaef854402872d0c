package textnorm

import (
	"context"
	"runtime"

	"golang.org/x/sync/errgroup"
)

// chunksPerWorker keeps workers busy when document lengths are uneven.
const chunksPerWorker = 4

// NormalizeAll normalizes docs concurrently. Documents are independent, so the
// slice is split into contiguous chunks and out[i] always corresponds to
// docs[i]. The only error returned is the context's.
func (n *Normalizer) NormalizeAll(ctx context.Context, docs []string) ([]string, error) {
	out := make([]string, len(docs))
	if len(docs) == 0 {
		return out, nil
	}
	workers := n.cfg.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	chunk := len(docs) / (workers * chunksPerWorker)
	if chunk < 1 {
		chunk = 1
	}

	group, gctx := errgroup.WithContext(ctx)
	group.SetLimit(workers)
	for start := 0; start < len(docs); start += chunk {
		if err := gctx.Err(); err != nil {
			break
		}
		end := min(start+chunk, len(docs))
		group.Go(func() error {
			for i := start; i < end; i++ {
				if err := gctx.Err(); err != nil {
					return err
				}
				out[i] = n.Normalize(docs[i])
			}
			return nil
		})
	}
	if err := group.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return out, nil
}
