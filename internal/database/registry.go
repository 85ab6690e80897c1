package database

import (
	"context"
	"net/http"
	"net/url"

	"go.uber.org/zap"

	"github.com/skshohagmiah/couchctl/internal/connection"
	"github.com/skshohagmiah/couchctl/internal/couch"
)

// Registry lists, creates, and deletes databases on the connected
// server.
type Registry struct {
	conn *connection.Manager
	log  *zap.SugaredLogger
}

// NewRegistry creates a registry bound to the shared connection.
func NewRegistry(conn *connection.Manager, log *zap.SugaredLogger) *Registry {
	return &Registry{conn: conn, log: log}
}

// List returns all database names in server order. An empty list is a
// valid result.
func (r *Registry) List(ctx context.Context) ([]string, error) {
	t, err := r.conn.Transport()
	if err != nil {
		return nil, err
	}

	var names []string
	if err := t.Request(ctx, http.MethodGet, "/_all_dbs", nil, nil, &names); err != nil {
		return nil, err
	}
	return names, nil
}

// Create makes a new database. The name is checked locally first so an
// obviously invalid one never costs a round trip; an existing database
// surfaces as DatabaseExists. After a successful create a default
// index on _id is posted so the database is immediately queryable;
// its failure is logged and never fails the create.
func (r *Registry) Create(ctx context.Context, name string) error {
	t, err := r.conn.Transport()
	if err != nil {
		return err
	}
	if err := couch.ValidateDatabaseName(name); err != nil {
		return err
	}

	if err := t.Request(ctx, http.MethodPut, "/"+url.PathEscape(name), nil, nil, nil); err != nil {
		return err
	}
	r.log.Infow("database created", "name", name)

	spec := map[string]interface{}{
		"index": map[string]interface{}{"fields": []string{"_id"}},
		"name":  name + "_idx",
	}
	if err := t.Request(ctx, http.MethodPost, "/"+url.PathEscape(name)+"/_index", nil, spec, nil); err != nil {
		r.log.Warnw("default index creation failed", "database", name, "error", err)
	}
	return nil
}

// Delete removes a database. A missing database surfaces as NotFound
// rather than being swallowed, so batch reporting stays accurate.
func (r *Registry) Delete(ctx context.Context, name string) error {
	t, err := r.conn.Transport()
	if err != nil {
		return err
	}

	if err := t.Request(ctx, http.MethodDelete, "/"+url.PathEscape(name), nil, nil, nil); err != nil {
		return err
	}
	r.log.Infow("database deleted", "name", name)
	return nil
}

// Rename always fails with Unsupported: the wire protocol has no
// rename primitive.
func (r *Registry) Rename(ctx context.Context, oldName, newName string) error {
	return couch.NewError(couch.KindUnsupported, "the server has no rename operation; move documents to a new database instead")
}

// Info fetches per-database metadata (document counts).
func (r *Registry) Info(ctx context.Context, name string) (couch.DatabaseInfo, error) {
	t, err := r.conn.Transport()
	if err != nil {
		return couch.DatabaseInfo{}, err
	}

	var info couch.DatabaseInfo
	if err := t.Request(ctx, http.MethodGet, "/"+url.PathEscape(name), nil, nil, &info); err != nil {
		if couch.IsKind(err, couch.KindNotFound) {
			return couch.DatabaseInfo{}, couch.WrapError(couch.KindDatabaseNotFound, err, "database %q does not exist", name)
		}
		return couch.DatabaseInfo{}, err
	}
	return info, nil
}

// Exists reports whether a database is present.
func (r *Registry) Exists(ctx context.Context, name string) (bool, error) {
	t, err := r.conn.Transport()
	if err != nil {
		return false, err
	}

	err = t.Request(ctx, http.MethodHead, "/"+url.PathEscape(name), nil, nil, nil)
	if couch.IsKind(err, couch.KindNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}
