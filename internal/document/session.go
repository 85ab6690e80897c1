package document

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/skshohagmiah/couchctl/internal/connection"
	"github.com/skshohagmiah/couchctl/internal/couch"
)

// searchPageSize bounds how many rows one search page fetches.
const searchPageSize = 200

// Session performs document operations scoped to one database.
type Session struct {
	db   string
	conn *connection.Manager
	log  *zap.SugaredLogger
}

// NewSession verifies the database exists and returns a session
// scoped to it.
func NewSession(ctx context.Context, conn *connection.Manager, log *zap.SugaredLogger, db string) (*Session, error) {
	t, err := conn.Transport()
	if err != nil {
		return nil, err
	}
	if err := t.Request(ctx, http.MethodHead, "/"+url.PathEscape(db), nil, nil, nil); err != nil {
		if couch.IsKind(err, couch.KindNotFound) {
			return nil, couch.WrapError(couch.KindDatabaseNotFound, err, "database %q does not exist", db)
		}
		return nil, err
	}
	return &Session{db: db, conn: conn, log: log}, nil
}

// Database returns the database name this session is scoped to.
func (s *Session) Database() string {
	return s.db
}

// ListOptions controls pagination and whether bodies are fetched.
type ListOptions struct {
	Limit         int // 0 means the server default
	Skip          int
	IncludeBodies bool
}

type allDocsRow struct {
	ID    string `json:"id"`
	Value struct {
		Rev string `json:"rev"`
	} `json:"value"`
	Doc couch.Body `json:"doc"`
}

type allDocsResponse struct {
	TotalRows int          `json:"total_rows"`
	Rows      []allDocsRow `json:"rows"`
}

type writeResult struct {
	OK  bool   `json:"ok"`
	ID  string `json:"id"`
	Rev string `json:"rev"`
}

// List returns the database's documents in server order, id and
// revision only unless bodies are asked for. Design documents are
// filtered out.
func (s *Session) List(ctx context.Context, opts ListOptions) ([]couch.Document, error) {
	t, err := s.conn.Transport()
	if err != nil {
		return nil, err
	}

	q := url.Values{}
	if opts.Limit > 0 {
		q.Set("limit", strconv.Itoa(opts.Limit))
	}
	if opts.Skip > 0 {
		q.Set("skip", strconv.Itoa(opts.Skip))
	}
	if opts.IncludeBodies {
		q.Set("include_docs", "true")
	}

	var res allDocsResponse
	if err := t.Request(ctx, http.MethodGet, s.dbPath()+"/_all_docs", q, nil, &res); err != nil {
		return nil, err
	}

	docs := make([]couch.Document, 0, len(res.Rows))
	for _, row := range res.Rows {
		if strings.HasPrefix(row.ID, "_design/") {
			continue
		}
		docs = append(docs, couch.Document{ID: row.ID, Revision: row.Value.Rev, Body: row.Doc})
	}
	return docs, nil
}

// Get fetches one document. The returned body is the full server
// object, _id and _rev members included, with the id and revision
// also lifted into the Document fields.
func (s *Session) Get(ctx context.Context, id string) (couch.Document, error) {
	t, err := s.conn.Transport()
	if err != nil {
		return couch.Document{}, err
	}

	var body couch.Body
	if err := t.Request(ctx, http.MethodGet, s.docPath(id), nil, nil, &body); err != nil {
		return couch.Document{}, err
	}

	doc := couch.Document{Body: body}
	doc.ID, _ = body["_id"].(string)
	doc.Revision, _ = body["_rev"].(string)
	return doc, nil
}

// Search scans the database and returns the documents whose id or
// serialized body contains query, case-insensitively. The scan pages
// through the listing so memory stays bounded; it is finite, and
// every call starts over from the beginning. An empty query matches
// everything.
func (s *Session) Search(ctx context.Context, query string) ([]couch.Document, error) {
	t, err := s.conn.Transport()
	if err != nil {
		return nil, err
	}

	needle := strings.ToLower(query)
	var matches []couch.Document

	for skip := 0; ; skip += searchPageSize {
		q := url.Values{}
		q.Set("include_docs", "true")
		q.Set("limit", strconv.Itoa(searchPageSize))
		if skip > 0 {
			q.Set("skip", strconv.Itoa(skip))
		}

		var page allDocsResponse
		if err := t.Request(ctx, http.MethodGet, s.dbPath()+"/_all_docs", q, nil, &page); err != nil {
			return nil, err
		}

		for _, row := range page.Rows {
			if strings.HasPrefix(row.ID, "_design/") {
				continue
			}
			doc := couch.Document{ID: row.ID, Revision: row.Value.Rev, Body: row.Doc}
			if matchesQuery(doc, needle) {
				matches = append(matches, doc)
			}
		}
		if len(page.Rows) < searchPageSize {
			break
		}
	}

	s.log.Debugw("search finished", "database", s.db, "query", query, "matches", len(matches))
	return matches, nil
}

// Create stores a new document. With an empty id the server assigns
// one; with an explicit id a collision surfaces as DocumentExists.
// Any _id/_rev members in body are dropped from the submitted
// payload.
func (s *Session) Create(ctx context.Context, id string, body couch.Body) (couch.Document, error) {
	t, err := s.conn.Transport()
	if err != nil {
		return couch.Document{}, err
	}
	if body == nil {
		return couch.Document{}, couch.NewError(couch.KindInvalidJSON, "document body is required")
	}

	var res writeResult
	if id == "" {
		err = t.Request(ctx, http.MethodPost, s.dbPath(), nil, stripMeta(body), &res)
	} else {
		err = t.Request(ctx, http.MethodPut, s.docPath(id), nil, stripMeta(body), &res)
	}
	if err != nil {
		if id != "" && couch.IsKind(err, couch.KindRevisionConflict) {
			return couch.Document{}, couch.WrapError(couch.KindDocumentExists, err, "document %q already exists", id)
		}
		return couch.Document{}, err
	}

	s.log.Infow("document created", "database", s.db, "id", res.ID, "rev", res.Rev)
	return couch.Document{ID: res.ID, Revision: res.Rev, Body: body}, nil
}

// Update overwrites a document at exactly the given revision. A stale
// revision fails with RevisionConflict and the stored document stays
// untouched; the caller must re-fetch and retry.
func (s *Session) Update(ctx context.Context, id, rev string, body couch.Body) (couch.Document, error) {
	t, err := s.conn.Transport()
	if err != nil {
		return couch.Document{}, err
	}
	if body == nil {
		return couch.Document{}, couch.NewError(couch.KindInvalidJSON, "document body is required")
	}

	q := url.Values{}
	if rev != "" {
		q.Set("rev", rev)
	}
	var res writeResult
	if err := t.Request(ctx, http.MethodPut, s.docPath(id), q, stripMeta(body), &res); err != nil {
		return couch.Document{}, err
	}

	s.log.Infow("document updated", "database", s.db, "id", id, "rev", res.Rev)
	return couch.Document{ID: res.ID, Revision: res.Rev, Body: body}, nil
}

// Delete removes a document at exactly the given revision, with the
// same conflict discipline as Update.
func (s *Session) Delete(ctx context.Context, id, rev string) error {
	t, err := s.conn.Transport()
	if err != nil {
		return err
	}

	q := url.Values{}
	if rev != "" {
		q.Set("rev", rev)
	}
	if err := t.Request(ctx, http.MethodDelete, s.docPath(id), q, nil, nil); err != nil {
		return err
	}

	s.log.Infow("document deleted", "database", s.db, "id", id)
	return nil
}

func (s *Session) dbPath() string {
	return "/" + url.PathEscape(s.db)
}

func (s *Session) docPath(id string) string {
	return s.dbPath() + "/" + url.PathEscape(id)
}

// matchesQuery checks the id first, then the serialized body.
func matchesQuery(doc couch.Document, needle string) bool {
	if needle == "" {
		return true
	}
	if strings.Contains(strings.ToLower(doc.ID), needle) {
		return true
	}
	if doc.Body == nil {
		return false
	}
	raw, err := json.Marshal(doc.Body)
	if err != nil {
		return false
	}
	return strings.Contains(strings.ToLower(string(raw)), needle)
}

// stripMeta copies body without the server-managed members, so a
// fetched body can be passed straight back to a write.
func stripMeta(body couch.Body) couch.Body {
	payload := make(couch.Body, len(body))
	for k, v := range body {
		if k == "_id" || k == "_rev" {
			continue
		}
		payload[k] = v
	}
	return payload
}
