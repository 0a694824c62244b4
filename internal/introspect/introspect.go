// Package introspect builds a Snapshot by enumerating every object kind
// and fetching DDL for each name, storing the DDL text at snapshot time
// rather than re-fetching it later — the reverse planner needs the DDL of
// objects the forward plan drops, after they would no longer exist.
package introspect

import (
	"context"
	"fmt"
	"sort"

	"golang.org/x/sync/errgroup"

	"github.com/dbddl/ddlwizard/internal/model"
	"github.com/dbddl/ddlwizard/internal/reader"
)

// Stage identifies which part of introspection failed, for the single
// consolidated error message the CLI reports.
type Stage string

const (
	StageConnect    Stage = "connect"
	StageEnumerate  Stage = "enumerate"
	StageExtraction Stage = "extract"
)

// Error is the structured error returned at the Introspector boundary.
type Error struct {
	Stage Stage
	Kind  model.ObjectKind
	Err   error
}

func (e *Error) Error() string {
	if e.Kind != "" {
		return fmt.Sprintf("introspect: %s stage (%s): %v", e.Stage, e.Kind, e.Err)
	}
	return fmt.Sprintf("introspect: %s stage: %v", e.Stage, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// DefaultConcurrency is the suggested fan-out for per-object DDL extraction.
const DefaultConcurrency = 8

// DDLFetcher is the surface Snapshot needs from a DDL Reader. It is
// satisfied by *reader.Reader; tests substitute an in-memory fake so the
// Introspector's sorting/concurrency/error-handling logic can be verified
// without a live database.
type DDLFetcher interface {
	EnumerateNames(kind model.ObjectKind) ([]string, error)
	FetchDDL(kind model.ObjectKind, name string) (string, error)
}

// Snapshot builds a model.Snapshot for schema by enumerating every object
// kind and fetching DDL concurrently within each kind, up to concurrency
// fan-out. Enumeration failures are fatal; per-object DDL failures are
// recoverable and recorded as a warning with the object kept at empty DDL.
//
// The final Snapshot's per-kind lists are always sorted by name regardless
// of completion order.
func Snapshot(ctx context.Context, r DDLFetcher, schema string, concurrency int) (*model.Snapshot, error) {
	if concurrency <= 0 {
		concurrency = DefaultConcurrency
	}

	snap := &model.Snapshot{
		Schema:  schema,
		Objects: make(map[model.ObjectKind][]model.ObjectRecord),
	}

	for _, kind := range model.AllKinds() {
		names, err := r.EnumerateNames(kind)
		if err != nil {
			return nil, &Error{Stage: StageEnumerate, Kind: kind, Err: err}
		}

		records, err := fetchAll(ctx, r, kind, names, concurrency)
		if err != nil {
			return nil, &Error{Stage: StageExtraction, Kind: kind, Err: err}
		}
		sort.Slice(records, func(i, j int) bool { return records[i].Name < records[j].Name })
		snap.Objects[kind] = records
	}

	return snap, nil
}

// fetchAll fetches DDL for every name of kind, up to concurrency goroutines
// at once. A per-object fetch error is recoverable: the object is kept
// with an empty DDL and a warning is logged; fetchAll itself only returns
// an error for a context cancellation, never for an individual object
// failure.
func fetchAll(ctx context.Context, r DDLFetcher, kind model.ObjectKind, names []string, concurrency int) ([]model.ObjectRecord, error) {
	// Each goroutine below writes to a disjoint index of records, so no
	// mutex is needed despite the shared slice.
	records := make([]model.ObjectRecord, len(names))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)

	for i, name := range names {
		i, name := i, name
		g.Go(func() error {
			select {
			case <-gctx.Done():
				return gctx.Err()
			default:
			}
			ddl, err := r.FetchDDL(kind, name)
			if err != nil {
				reader.WarnSkip(kind, name, err)
				records[i] = model.ObjectRecord{ObjectRef: model.ObjectRef{Kind: kind, Name: name}, DDL: ""}
				return nil
			}
			records[i] = model.ObjectRecord{ObjectRef: model.ObjectRef{Kind: kind, Name: name}, DDL: ddl}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return records, nil
}
