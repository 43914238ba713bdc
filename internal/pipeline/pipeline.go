// Package pipeline runs one full reconciliation pass: normalize every raw
// record, resolve it against the registry, classify ownership and merge
// the result into the consolidated dataset.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/pricebot-pl/internal/classify"
	"github.com/pricebot-pl/internal/dataset"
	"github.com/pricebot-pl/internal/listing"
	"github.com/pricebot-pl/internal/merge"
	"github.com/pricebot-pl/internal/normalize"
	"github.com/pricebot-pl/internal/registry"
	"github.com/pricebot-pl/internal/resolve"
)

// Error wraps a fatal pipeline failure with the run it belongs to.
type Error struct {
	RunID string
	Stage string
	Err   error
}

func (e *Error) Error() string {
	return fmt.Sprintf("run %s failed during %s: %v", e.RunID, e.Stage, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Options tunes one run. The zero value picks sensible defaults.
type Options struct {
	Workers int              // concurrent record processors, defaults to NumCPU
	Logger  *zap.Logger      // defaults to zap.NewNop()
	Now     func() time.Time // injectable clock for tests
}

func (o Options) withDefaults() Options {
	if o.Workers <= 0 {
		o.Workers = runtime.NumCPU()
	}
	if o.Logger == nil {
		o.Logger = zap.NewNop()
	}
	if o.Now == nil {
		o.Now = time.Now
	}
	return o
}

// Run processes a batch of raw records against the registry and merges the
// outcomes into ds. Per-record validation failures are skipped and
// reported; a missing court mapping for a matched unit aborts the run,
// since it means the reference tables themselves are inconsistent.
func Run(ctx context.Context, recs []listing.RawRecord, reg *registry.Registry, ds *dataset.Dataset, opts Options) (*merge.Report, error) {
	opts = opts.withDefaults()
	runID := uuid.NewString()
	startedAt := opts.Now().UTC()
	rep := merge.NewReport(runID, startedAt)

	if reg == nil {
		return rep, &Error{RunID: runID, Stage: "setup", Err: errors.New("no registry loaded")}
	}
	if ds == nil {
		return rep, &Error{RunID: runID, Stage: "setup", Err: errors.New("no dataset loaded")}
	}

	log := opts.Logger.With(zap.String("run_id", runID))
	log.Info("run started",
		zap.Int("records", len(recs)),
		zap.Int("workers", opts.Workers),
		zap.Int("registry_units", reg.UnitCount()),
	)

	merger := merge.NewMerger()
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(opts.Workers)

	for _, rec := range recs {
		rec := rec
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			if err := rec.Validate(); err != nil {
				log.Warn("record skipped", zap.String("link", rec.URL), zap.Error(err))
				rep.AddSkip(rec.URL, err.Error())
				return nil
			}

			addr := normalize.Normalize(rec.RawAddress)
			res, err := resolve.Resolve(addr, reg)
			if err != nil {
				// Reference-data integrity failure, fatal to the run.
				return &Error{RunID: runID, Stage: "resolve", Err: err}
			}

			merger.MergeOne(ds, merge.Candidate{
				Record:     rec,
				Address:    addr,
				Resolution: res,
				Ownership:  classify.Classify(rec),
			}, opts.Now().UTC(), rep)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		rep.FinishedAt = opts.Now().UTC()
		log.Error("run aborted", zap.Error(err))
		var perr *Error
		if errors.As(err, &perr) {
			return rep, err
		}
		return rep, &Error{RunID: runID, Stage: "process", Err: err}
	}

	rep.FinishedAt = opts.Now().UTC()
	log.Info("run finished",
		zap.Int("inserted", rep.Inserted),
		zap.Int("updated", rep.Updated),
		zap.Int("unresolved", rep.Unresolved),
		zap.Int("conflicts", rep.ConflictCount()),
		zap.Int("skipped", rep.SkipCount()),
		zap.Duration("elapsed", rep.FinishedAt.Sub(rep.StartedAt)),
	)
	return rep, nil
}
