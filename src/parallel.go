package csi

import (
	"context"
	"runtime"

	"golang.org/x/sync/errgroup"
)

// Result of processing one frame of a batch.
type Result struct {
	Raw      RawFrame
	Frame    *Frame
	Decision bool
	Err      error // Frame was skipped.
}

// ProcessAll runs Process over frames on up to jobs goroutines.  Results
// are in the same order as frames.  Only cancellation makes it return an
// error; per frame problems are in each Result.
func (s *Session) ProcessAll(ctx context.Context, frames []RawFrame, jobs int) ([]Result, error) {
	s.defaults()

	if jobs <= 0 {
		jobs = runtime.GOMAXPROCS(0)
	}

	var results = make([]Result, len(frames))

	var g, gctx = errgroup.WithContext(ctx)
	g.SetLimit(jobs)

	for i, raw := range frames {
		if gctx.Err() != nil {
			break
		}

		g.Go(func() error {
			var ctxErr = gctx.Err()
			if ctxErr != nil {
				return ctxErr
			}

			var frame, decision, err = s.Process(raw)
			results[i] = Result{Raw: raw, Frame: frame, Decision: decision, Err: err}

			return nil
		})
	}

	var err = g.Wait()
	if err == nil {
		err = ctx.Err()
	}

	return results, err
}
