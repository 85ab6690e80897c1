package couch

// Body is the decoded JSON object of a document.
type Body map[string]interface{}

// Document represents a single document in a database.
// Revision is an opaque version token assigned by the server; it is
// required to match on update and delete, and is refreshed on every
// successful write. A document with no revision is new. Body may be
// nil when a listing was fetched without bodies.
type Document struct {
	ID       string
	Revision string
	Body     Body
}

// Credentials is an optional username/password pair for basic auth.
type Credentials struct {
	Username string
	Password string
}

// Connection is a snapshot of the managed connection state.
type Connection struct {
	BaseURL   string
	Connected bool
	Server    ServerInfo
}

// ServerInfo is the server greeting returned by GET /.
type ServerInfo struct {
	Version string `json:"version"`
	UUID    string `json:"uuid"`
}

// DatabaseInfo is the per-database metadata returned by GET /{db}.
type DatabaseInfo struct {
	Name        string `json:"db_name"`
	DocCount    int64  `json:"doc_count"`
	DocDelCount int64  `json:"doc_del_count"`
}

// Index represents a secondary index scoped to one database.
// Type is "json" for Mango indexes; the server also reports a built-in
// "special" index (_all_docs) that has no design document.
type Index struct {
	DesignDoc string   // design document holding the index, without the _design/ prefix
	Name      string
	Type      string   // "json" or "special"
	Fields    []string // ordered field names
}

// Index type constants
const (
	IndexTypeJSON    = "json"
	IndexTypeSpecial = "special"
)
