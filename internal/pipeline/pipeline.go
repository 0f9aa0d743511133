// Package pipeline runs the two stages end to end and guarantees that each
// run leaves an artifact at its output path.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/FranksOps/quill/internal/article"
	"github.com/FranksOps/quill/internal/metrics"
	"github.com/FranksOps/quill/internal/research"
	"github.com/FranksOps/quill/internal/storage"
)

var (
	// ErrNoResults is returned when the research record carries an error.
	ErrNoResults = errors.New("no results found")
	// ErrUnexpected wraps panics recovered at the stage boundary.
	ErrUnexpected = errors.New("unexpected error")
)

// Aggregator is satisfied by *research.Aggregator.
type Aggregator interface {
	Run(ctx context.Context, query string, depth storage.Depth) *research.Run
}

// Loader is satisfied by any storage.Backend.
type Loader interface {
	Load(ctx context.Context) (*storage.Record, error)
}

// Research aggregates query and saves the record through backend, even when
// aggregation fails. It returns ErrNoResults for a record without results and
// an ErrUnexpected error when aggregation panicked.
func Research(ctx context.Context, agg Aggregator, backend storage.Backend, query string, depth storage.Depth) (*research.Run, error) {
	run, runErr := aggregate(ctx, agg, query, depth)
	if runErr != nil {
		run = &research.Run{Record: failureRecord(query, depth, runErr)}
	}

	// The record is written even if the run was interrupted.
	if err := backend.Save(context.WithoutCancel(ctx), run.Record); err != nil {
		return run, fmt.Errorf("save record: %w", err)
	}

	switch {
	case runErr != nil:
		metrics.RecordsTotal.WithLabelValues("error").Inc()
		return run, runErr
	case run.Record.Failed():
		metrics.RecordsTotal.WithLabelValues("empty").Inc()
		return run, ErrNoResults
	default:
		metrics.RecordsTotal.WithLabelValues("ok").Inc()
		return run, nil
	}
}

// Fail saves a failure record for a run that could not start, for example
// when the provider chain cannot be built from configuration.
func Fail(ctx context.Context, backend storage.Backend, query string, depth storage.Depth, cause error) error {
	if err := backend.Save(context.WithoutCancel(ctx), failureRecord(query, depth, cause)); err != nil {
		return fmt.Errorf("save record: %w", err)
	}
	metrics.RecordsTotal.WithLabelValues("error").Inc()
	return nil
}

// panicError carries a value recovered at a stage boundary.
type panicError struct {
	value any
}

func (e *panicError) Error() string { return fmt.Sprintf("%s: %v", ErrUnexpected, e.value) }

func (e *panicError) Unwrap() error { return ErrUnexpected }

func (e *panicError) cause() string { return fmt.Sprint(e.value) }

func aggregate(ctx context.Context, agg Aggregator, query string, depth storage.Depth) (run *research.Run, err error) {
	defer func() {
		if r := recover(); r != nil {
			run, err = nil, &panicError{value: r}
		}
	}()
	run = agg.Run(ctx, query, depth)
	if run == nil || run.Record == nil {
		return nil, &panicError{value: "aggregator returned no record"}
	}
	return run, nil
}

func failureRecord(query string, depth storage.Depth, err error) *storage.Record {
	if depth != storage.DepthAdvanced {
		depth = storage.DepthBasic
	}
	text := err.Error()
	var pe *panicError
	if errors.As(err, &pe) {
		text = pe.cause()
	}
	return &storage.Record{
		Query:       query,
		Timestamp:   time.Now().UTC().Format(time.RFC3339Nano),
		SearchDepth: depth,
		Results:     []storage.Result{},
		Sources:     []string{},
		Summary:     "Error during research: " + text,
		Error:       text,
	}
}

// Write loads a record, renders it and writes the document to outPath. On
// any failure the error document is written instead and the error returned.
func Write(ctx context.Context, loader Loader, outPath string, synth *article.Synthesizer, style, length string) (string, error) {
	label := styleLabel(style)
	doc, err := compose(ctx, loader, synth, style, length)
	if err == nil {
		err = storage.WriteFile(outPath, []byte(doc))
	}
	if err != nil {
		metrics.DocumentsTotal.WithLabelValues(label, "error").Inc()
		if werr := storage.WriteFile(outPath, []byte(article.ErrorDocument(Message(err)))); werr != nil {
			return "", errors.Join(err, fmt.Errorf("write error document: %w", werr))
		}
		return "", err
	}

	metrics.DocumentsTotal.WithLabelValues(label, "ok").Inc()
	return doc, nil
}

// styleLabel keeps the documents counter to the known styles.
func styleLabel(style string) string {
	st, err := article.ParseStyle(style)
	if err != nil {
		return "invalid"
	}
	return string(st)
}

func compose(ctx context.Context, loader Loader, synth *article.Synthesizer, style, length string) (doc string, err error) {
	defer func() {
		if r := recover(); r != nil {
			doc, err = "", &panicError{value: r}
		}
	}()

	st, err := article.ParseStyle(style)
	if err != nil {
		return "", err
	}
	ln, err := article.ParseLength(length)
	if err != nil {
		return "", err
	}

	rec, err := loader.Load(ctx)
	if err != nil {
		return "", err
	}
	return synth.Synthesize(rec, st, ln)
}

// Message is the user-facing line for err, as printed on stderr and written
// into error documents.
func Message(err error) string {
	return "ERROR: " + err.Error()
}
