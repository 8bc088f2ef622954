// Package bulk validates batches of addresses with a bounded worker
// pool and routes each record to a pass or fail sink. One bad record
// never sinks the batch: panics and internal failures are confined to
// the record that caused them.
package bulk

import (
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/mailvet/mailvet"
	"github.com/mailvet/mailvet/types"
)

// Record is one row of work: an address to validate and, optionally,
// the website claimed alongside it. Columns carries the raw input row
// so sinks can echo it back untouched.
type Record struct {
	ID      string
	Email   string
	Website string
	Columns []string
}

// Source yields records one at a time. Next returns io.EOF when the
// input is exhausted.
type Source interface {
	Next() (Record, error)
}

// Sink receives finished records. Write is called from a single
// goroutine, so implementations need no locking.
type Sink interface {
	Write(rec Record, out mailvet.Outcome) error
}

// Pipeline validates one address. *mailvet.Validator satisfies it.
type Pipeline interface {
	Validate(ctx context.Context, email, website string) (mailvet.Outcome, error)
}

// Config controls a batch run.
type Config struct {
	// Workers bounds concurrent validations. Defaults to 8.
	Workers int

	// Pass receives accepted records, Fail receives rejected ones.
	// Either may be nil.
	Pass Sink
	Fail Sink

	// Logger for per-record diagnostics. Defaults to the standard
	// logrus logger.
	Logger logrus.FieldLogger

	// OnResult, when set, is called from the collector goroutine after
	// each record is routed. Useful for progress reporting.
	OnResult func(rec Record, out mailvet.Outcome)
}

// Summary reports what a batch run did.
type Summary struct {
	RunID   string
	Total   int
	Passed  int
	Failed  int
	Errors  int
	Elapsed time.Duration
}

// Runner drains a Source through a worker pool.
type Runner struct {
	pipeline Pipeline
	cfg      Config
}

// NewRunner wires a pipeline to a batch configuration.
func NewRunner(pipeline Pipeline, cfg Config) *Runner {
	if cfg.Workers <= 0 {
		cfg.Workers = 8
	}
	if cfg.Logger == nil {
		cfg.Logger = logrus.StandardLogger()
	}
	return &Runner{pipeline: pipeline, cfg: cfg}
}

type item struct {
	rec Record
	out mailvet.Outcome
}

// Run validates every record the source yields and routes each outcome
// to the pass or fail sink. It stops early when ctx is cancelled,
// finishing work already handed to workers. Source errors other than
// io.EOF abort the run.
func (r *Runner) Run(ctx context.Context, src Source) (Summary, error) {
	start := time.Now()
	sum := Summary{RunID: uuid.NewString()}
	log := r.cfg.Logger.WithField("run_id", sum.RunID)

	jobs := make(chan Record)
	results := make(chan item)

	var wg sync.WaitGroup
	for i := 0; i < r.cfg.Workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for rec := range jobs {
				results <- item{rec: rec, out: r.validateOne(ctx, rec)}
			}
		}()
	}
	go func() {
		wg.Wait()
		close(results)
	}()

	var srcErr error
	go func() {
		defer close(jobs)
		for {
			rec, err := src.Next()
			if err == io.EOF {
				return
			}
			if err != nil {
				srcErr = err
				return
			}
			select {
			case jobs <- rec:
			case <-ctx.Done():
				return
			}
		}
	}()

	// Single collector: sinks see records from one goroutine only.
	for it := range results {
		sum.Total++
		switch {
		case it.out.Reason == types.ReasonInternalError:
			sum.Errors++
			log.WithFields(logrus.Fields{
				"email":  it.rec.Email,
				"detail": failDetail(it.out),
			}).Warn("record failed internally")
			r.route(r.cfg.Fail, it, log)
		case it.out.Accepted:
			sum.Passed++
			r.route(r.cfg.Pass, it, log)
		default:
			sum.Failed++
			r.route(r.cfg.Fail, it, log)
		}
		if r.cfg.OnResult != nil {
			r.cfg.OnResult(it.rec, it.out)
		}
	}

	sum.Elapsed = time.Since(start)
	if srcErr != nil {
		return sum, fmt.Errorf("bulk: reading source: %w", srcErr)
	}
	return sum, ctx.Err()
}

func (r *Runner) route(sink Sink, it item, log logrus.FieldLogger) {
	if sink == nil {
		return
	}
	if err := sink.Write(it.rec, it.out); err != nil {
		log.WithError(err).WithField("email", it.rec.Email).Error("sink write failed")
	}
}

// validateOne confines panics to the record that raised them.
func (r *Runner) validateOne(ctx context.Context, rec Record) (out mailvet.Outcome) {
	defer func() {
		if p := recover(); p != nil {
			out = internalError(rec, fmt.Sprintf("panic: %v", p))
		}
	}()

	out, err := r.pipeline.Validate(ctx, rec.Email, rec.Website)
	if err != nil {
		return internalError(rec, err.Error())
	}
	return out
}

func internalError(rec Record, detail string) mailvet.Outcome {
	return mailvet.Outcome{
		Email:    rec.Email,
		Website:  rec.Website,
		Accepted: false,
		Reason:   types.ReasonInternalError,
		Checks: []types.CheckResult{{
			Passed:  false,
			Reason:  types.ReasonInternalError,
			Details: detail,
		}},
	}
}

func failDetail(out mailvet.Outcome) string {
	for _, cr := range out.Checks {
		if !cr.Passed && cr.Details != "" {
			return cr.Details
		}
	}
	return string(out.Reason)
}
