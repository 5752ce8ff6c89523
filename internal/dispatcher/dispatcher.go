// Package dispatcher fans keyed tasks out to a bounded pool of workers.
package dispatcher

import (
	"context"
	"fmt"
	"runtime/debug"
	"sync"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/JakeFAU/sitecorpus/internal/telemetry"
)

// Task processes one key.
type Task func(ctx context.Context, key string) error

// Failure records a task that returned an error or panicked.
type Failure struct {
	Key      string
	Err      error
	Panicked bool
}

// Dispatcher runs tasks on at most Concurrency goroutines.
type Dispatcher struct {
	concurrency int
	logger      *zap.Logger
	tracer      trace.Tracer
}

// Option customizes a Dispatcher.
type Option func(*Dispatcher)

// WithTracerProvider traces tasks with tp instead of the global provider.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(d *Dispatcher) { d.tracer = tp.Tracer(telemetry.InstrumentationName) }
}

// New creates a Dispatcher. Concurrency below one means one worker.
func New(concurrency int, logger *zap.Logger, opts ...Option) *Dispatcher {
	if concurrency < 1 {
		concurrency = 1
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	d := &Dispatcher{concurrency: concurrency, logger: logger}
	for _, opt := range opts {
		opt(d)
	}
	if d.tracer == nil {
		d.tracer = telemetry.Tracer()
	}
	return d
}

// Concurrency returns the pool size.
func (d *Dispatcher) Concurrency() int {
	return d.concurrency
}

// Run executes task once per key and blocks until every task has returned.
// Keys not yet started when ctx ends are reported as failures with ctx.Err().
// A panicking task is recovered and reported; it never takes down the pool.
func (d *Dispatcher) Run(ctx context.Context, keys []string, task Task) []Failure {
	jobs := make(chan string)
	var (
		mu       sync.Mutex
		failures []Failure
		wg       sync.WaitGroup
	)
	record := func(f Failure) {
		mu.Lock()
		failures = append(failures, f)
		mu.Unlock()
	}

	workers := min(d.concurrency, len(keys))
	for range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for key := range jobs {
				if f, failed := d.execute(ctx, key, task); failed {
					record(f)
				}
			}
		}()
	}

	for i, key := range keys {
		select {
		case jobs <- key:
		case <-ctx.Done():
			for _, skipped := range keys[i:] {
				record(Failure{Key: skipped, Err: ctx.Err()})
			}
			close(jobs)
			wg.Wait()
			return failures
		}
	}
	close(jobs)
	wg.Wait()
	return failures
}

func (d *Dispatcher) execute(ctx context.Context, key string, task Task) (f Failure, failed bool) {
	ctx, span := d.tracer.Start(ctx, "dispatcher.task", trace.WithAttributes(attribute.String("task.key", key)))
	defer func() {
		if r := recover(); r != nil {
			d.logger.Error("task panicked",
				zap.String("key", key),
				zap.Any("panic", r),
				zap.ByteString("stack", debug.Stack()),
			)
			f = Failure{Key: key, Err: fmt.Errorf("task panicked: %v", r), Panicked: true}
			failed = true
			span.SetAttributes(attribute.Bool("task.panicked", true))
		}
		if failed {
			span.RecordError(f.Err)
			span.SetStatus(codes.Error, f.Err.Error())
		}
		span.End()
	}()
	if err := task(ctx, key); err != nil {
		return Failure{Key: key, Err: err}, true
	}
	return Failure{}, false
}
