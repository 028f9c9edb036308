package etl

import (
	"context"
	"path/filepath"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// UnpackAll processes the given source files on a bounded pool and
// returns one Result per file, in input order. A bad file only fails
// its own slot. Cancelling the context stops dispatching new files;
// files already running finish normally.
func UnpackAll(ctx context.Context, paths []string, outDir string, tables *CodeTables, workers int, log *zap.Logger) []Result {
	if workers < 1 {
		workers = 1
	}
	results := make([]Result, len(paths))
	var eg errgroup.Group
	eg.SetLimit(workers)
	for i, path := range paths {
		i, path := i, path // per-iteration copies for the closure; the module compiles at go 1.21
		if err := ctx.Err(); err != nil {
			results[i] = Result{Base: filepath.Base(path), Err: err}
			continue
		}
		eg.Go(func() error {
			results[i] = UnpackFile(path, outDir, tables, log)
			return nil
		})
	}
	eg.Wait()
	return results
}
