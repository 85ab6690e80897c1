package batch

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/hashicorp/go-multierror"
	"go.uber.org/zap"

	"github.com/skshohagmiah/couchctl/internal/couch"
	"github.com/skshohagmiah/couchctl/internal/database"
	"github.com/skshohagmiah/couchctl/internal/document"
)

// ProgressFunc is called after every item with the running tally, so
// an interface layer can render per-item progress without polling.
type ProgressFunc func(done, total int, id string, err error)

// ItemError records one failed item.
type ItemError struct {
	ID  string
	Err error
}

// Result is the outcome of a batch run. Items appear in the order
// they were attempted; a duplicate id in the input is attempted and
// reported once per occurrence. Requested records every attempted id,
// which for the delete-all entry points is the listing snapshot the
// run worked from.
type Result struct {
	Requested []string
	Succeeded []string
	Failed    []ItemError
}

// Ok reports whether every item succeeded.
func (r *Result) Ok() bool {
	return len(r.Failed) == 0
}

// Err collapses the failures into a single error, nil when every
// item succeeded.
func (r *Result) Err() error {
	if len(r.Failed) == 0 {
		return nil
	}
	var merr *multierror.Error
	for _, f := range r.Failed {
		merr = multierror.Append(merr, fmt.Errorf("%s: %w", f.ID, f.Err))
	}
	return merr.ErrorOrNil()
}

// Coordinator runs multi-item deletions one item at a time, recording
// each outcome independently. One item's failure never aborts or
// skips the rest; partial failure is a normal Result, not an error.
type Coordinator struct {
	// Progress, when set, is invoked after every item.
	Progress ProgressFunc

	log *zap.SugaredLogger
}

// New creates a batch coordinator.
func New(log *zap.SugaredLogger) *Coordinator {
	return &Coordinator{log: log}
}

// DeleteDatabases deletes the named databases in the given order.
func (c *Coordinator) DeleteDatabases(ctx context.Context, reg *database.Registry, names []string) *Result {
	return c.run(ctx, "delete-databases", names, func(ctx context.Context, i int) error {
		return reg.Delete(ctx, names[i])
	})
}

// DeleteAllDatabases deletes every database in the listing taken at
// call time; databases created concurrently are not included. Only a
// failure to take the listing is an error.
func (c *Coordinator) DeleteAllDatabases(ctx context.Context, reg *database.Registry) (*Result, error) {
	names, err := reg.List(ctx)
	if err != nil {
		return nil, err
	}
	return c.DeleteDatabases(ctx, reg, names), nil
}

// DeleteDocuments deletes the identified documents from the session's
// database. Revisions are resolved from one listing snapshot taken up
// front; ids absent from the snapshot are still attempted, so the
// server reports each of them individually.
func (c *Coordinator) DeleteDocuments(ctx context.Context, sess *document.Session, ids []string) (*Result, error) {
	docs, err := sess.List(ctx, document.ListOptions{})
	if err != nil {
		return nil, err
	}
	revs := make(map[string]string, len(docs))
	for _, d := range docs {
		revs[d.ID] = d.Revision
	}
	c.log.Debugw("snapshot taken", "db", sess.Database(), "revisions", len(revs))
	return c.run(ctx, "delete-documents", ids, func(ctx context.Context, i int) error {
		return sess.Delete(ctx, ids[i], revs[ids[i]])
	}), nil
}

// DeleteAllDocuments deletes every document in the session's database
// as of the listing taken at call time, design documents excluded.
func (c *Coordinator) DeleteAllDocuments(ctx context.Context, sess *document.Session) (*Result, error) {
	docs, err := sess.List(ctx, document.ListOptions{})
	if err != nil {
		return nil, err
	}
	ids := make([]string, len(docs))
	revs := make(map[string]string, len(docs))
	for i, d := range docs {
		ids[i] = d.ID
		revs[d.ID] = d.Revision
	}
	c.log.Debugw("snapshot taken", "db", sess.Database(), "documents", len(ids))
	return c.run(ctx, "delete-all-documents", ids, func(ctx context.Context, i int) error {
		return sess.Delete(ctx, ids[i], revs[ids[i]])
	}), nil
}

// run walks ids in caller order, calling del for each. Cancellation
// is checked between items, never mid-item: once the context is done,
// the current and all remaining items are recorded as Cancelled and
// no further deletes are attempted.
func (c *Coordinator) run(ctx context.Context, op string, ids []string, del func(ctx context.Context, i int) error) *Result {
	runID := uuid.NewString()[:8]
	res := &Result{Requested: append([]string(nil), ids...)}

	for i, id := range ids {
		var err error
		if cause := ctx.Err(); cause != nil {
			err = couch.WrapError(couch.KindCancelled, cause, "batch %s was cancelled", runID)
		} else {
			err = del(ctx, i)
		}

		if err != nil {
			res.Failed = append(res.Failed, ItemError{ID: id, Err: err})
		} else {
			res.Succeeded = append(res.Succeeded, id)
		}
		if c.Progress != nil {
			c.Progress(i+1, len(ids), id, err)
		}
	}

	c.log.Infow("batch finished",
		"run", runID,
		"op", op,
		"requested", len(res.Requested),
		"succeeded", len(res.Succeeded),
		"failed", len(res.Failed),
	)
	return res
}
