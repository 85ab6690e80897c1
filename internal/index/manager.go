package index

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strings"

	"go.uber.org/zap"

	"github.com/skshohagmiah/couchctl/internal/connection"
	"github.com/skshohagmiah/couchctl/internal/couch"
)

// Manager creates, lists, and deletes Mango indexes.
type Manager struct {
	conn *connection.Manager
	log  *zap.SugaredLogger
}

// NewManager creates an index manager bound to the shared connection.
func NewManager(conn *connection.Manager, log *zap.SugaredLogger) *Manager {
	return &Manager{conn: conn, log: log}
}

// indexField decodes a def.fields entry, which the server returns
// either as a bare field name or as a {"field": "asc"} object.
type indexField struct {
	Name string
}

func (f *indexField) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		f.Name = s
		return nil
	}
	var m map[string]string
	if err := json.Unmarshal(data, &m); err != nil {
		return err
	}
	for name := range m {
		f.Name = name
		break
	}
	return nil
}

type wireIndex struct {
	DDoc *string `json:"ddoc"` // null for the built-in special index
	Name string  `json:"name"`
	Type string  `json:"type"`
	Def  struct {
		Fields []indexField `json:"fields"`
	} `json:"def"`
}

type listResponse struct {
	Indexes []wireIndex `json:"indexes"`
}

type indexDef struct {
	Fields []string `json:"fields"`
}

type createRequest struct {
	Index indexDef `json:"index"`
	Name  string   `json:"name,omitempty"`
	Type  string   `json:"type"`
}

type createResponse struct {
	Result string `json:"result"` // "created", or "exists" for an identical index
	ID     string `json:"id"`
	Name   string `json:"name"`
}

// List returns every index the server reports for db, including the
// built-in special index, in server order.
func (m *Manager) List(ctx context.Context, db string) ([]couch.Index, error) {
	t, err := m.conn.Transport()
	if err != nil {
		return nil, err
	}

	var res listResponse
	if err := t.Request(ctx, http.MethodGet, "/"+url.PathEscape(db)+"/_index", nil, nil, &res); err != nil {
		if couch.IsKind(err, couch.KindNotFound) {
			return nil, couch.WrapError(couch.KindDatabaseNotFound, err, "database %q does not exist", db)
		}
		return nil, err
	}

	indexes := make([]couch.Index, 0, len(res.Indexes))
	for _, wi := range res.Indexes {
		idx := couch.Index{Name: wi.Name, Type: wi.Type}
		if wi.DDoc != nil {
			idx.DesignDoc = strings.TrimPrefix(*wi.DDoc, "_design/")
		}
		for _, f := range wi.Def.Fields {
			idx.Fields = append(idx.Fields, f.Name)
		}
		indexes = append(indexes, idx)
	}
	return indexes, nil
}

// Create submits a Mango index over fields. The field list is checked
// locally before any network call. An empty name lets the server pick
// one. Submitting an index identical to an existing one is success;
// the server answers result "exists".
func (m *Manager) Create(ctx context.Context, db string, fields []string, name string) (couch.Index, error) {
	t, err := m.conn.Transport()
	if err != nil {
		return couch.Index{}, err
	}
	if err := validateFields(fields); err != nil {
		return couch.Index{}, err
	}

	req := createRequest{
		Index: indexDef{Fields: fields},
		Name:  name,
		Type:  couch.IndexTypeJSON,
	}
	var res createResponse
	if err := t.Request(ctx, http.MethodPost, "/"+url.PathEscape(db)+"/_index", nil, req, &res); err != nil {
		if couch.IsKind(err, couch.KindNotFound) {
			return couch.Index{}, couch.WrapError(couch.KindDatabaseNotFound, err, "database %q does not exist", db)
		}
		return couch.Index{}, err
	}

	m.log.Infow("index created",
		"database", db,
		"name", res.Name,
		"fields", fields,
		"result", res.Result,
	)

	return couch.Index{
		DesignDoc: strings.TrimPrefix(res.ID, "_design/"),
		Name:      res.Name,
		Type:      couch.IndexTypeJSON,
		Fields:    fields,
	}, nil
}

// Delete removes the named index. Callers address indexes by name
// alone, so the owning design document is resolved by listing first.
func (m *Manager) Delete(ctx context.Context, db, name string) error {
	t, err := m.conn.Transport()
	if err != nil {
		return err
	}

	indexes, err := m.List(ctx, db)
	if err != nil {
		return err
	}
	var found *couch.Index
	for i := range indexes {
		if indexes[i].Name == name {
			found = &indexes[i]
			break
		}
	}
	if found == nil {
		return couch.NewError(couch.KindNotFound, "index %q not found in database %q", name, db)
	}
	if found.Type == couch.IndexTypeSpecial {
		return couch.NewError(couch.KindUnsupported, "the built-in %q index cannot be deleted", name)
	}

	path := "/" + url.PathEscape(db) + "/_index/_design/" + url.PathEscape(found.DesignDoc) + "/json/" + url.PathEscape(name)
	if err := t.Request(ctx, http.MethodDelete, path, nil, nil, nil); err != nil {
		return err
	}
	m.log.Infow("index deleted", "database", db, "name", name)
	return nil
}

func validateFields(fields []string) error {
	if len(fields) == 0 {
		return couch.NewError(couch.KindInvalidIndexSpec, "an index needs at least one field")
	}
	seen := make(map[string]bool, len(fields))
	for _, f := range fields {
		if strings.TrimSpace(f) == "" {
			return couch.NewError(couch.KindInvalidIndexSpec, "index fields must not be blank")
		}
		if seen[f] {
			return couch.NewError(couch.KindInvalidIndexSpec, "duplicate index field %q", f)
		}
		seen[f] = true
	}
	return nil
}
