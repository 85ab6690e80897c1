package connection

import (
	"context"
	"net/http"
	"sync"

	"go.uber.org/zap"

	"github.com/skshohagmiah/couchctl/internal/couch"
	"github.com/skshohagmiah/couchctl/internal/transport"
)

// DialFunc builds a transport adapter for a server. Overridable so
// tests can install a fake.
type DialFunc func(opts transport.Options) (transport.Adapter, error)

// Manager owns the process-wide connection state. Every other
// component reaches the server through Transport(), which fails fast
// while disconnected. The connect/disconnect transition is atomic:
// observers see either the previous session or the new one, never a
// half-updated descriptor.
type Manager struct {
	Dial DialFunc

	mu        sync.Mutex
	log       *zap.SugaredLogger
	adapter   transport.Adapter
	baseURL   string
	info      couch.ServerInfo
	connected bool
}

// New returns a disconnected manager.
func New(log *zap.SugaredLogger) *Manager {
	return &Manager{
		Dial: func(opts transport.Options) (transport.Adapter, error) {
			return transport.NewClient(opts)
		},
		log: log,
	}
}

// Connect validates the endpoint and probes it before committing any
// state. GET / yields the server greeting; GET /_all_dbs checks that
// the credentials are actually usable (the greeting endpoint answers
// without auth). Failures surface as connection errors and commit
// nothing: a first connect stays disconnected, and a failed re-connect
// keeps the previous session. Connecting while already connected
// replaces the previous session once the probes pass.
func (m *Manager) Connect(ctx context.Context, opts transport.Options) (couch.Connection, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	adapter, err := m.Dial(opts)
	if err != nil {
		return couch.Connection{}, asConnectionError(err, "invalid endpoint")
	}

	var info couch.ServerInfo
	if err := adapter.Request(ctx, http.MethodGet, "/", nil, nil, &info); err != nil {
		return couch.Connection{}, asConnectionError(err, "server probe failed")
	}

	var dbs []string
	if err := adapter.Request(ctx, http.MethodGet, "/_all_dbs", nil, nil, &dbs); err != nil {
		return couch.Connection{}, asConnectionError(err, "server rejected the credentials")
	}

	m.adapter = adapter
	m.baseURL = opts.BaseURL
	m.info = info
	m.connected = true

	m.log.Infow("connected",
		"url", opts.BaseURL,
		"version", info.Version,
		"databases", len(dbs),
	)

	return m.snapshot(), nil
}

// Disconnect clears the endpoint, credentials, and server info. It is
// idempotent.
func (m *Manager) Disconnect() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.connected {
		return
	}
	m.adapter = nil
	m.baseURL = ""
	m.info = couch.ServerInfo{}
	m.connected = false
	m.log.Info("disconnected")
}

// Transport returns the active adapter, or ErrNotConnected. This is
// the guard every operation passes through.
func (m *Manager) Transport() (transport.Adapter, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.connected {
		return nil, couch.ErrNotConnected
	}
	return m.adapter, nil
}

// Connected reports whether a session is established.
func (m *Manager) Connected() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.connected
}

// Current returns a snapshot of the connection descriptor.
func (m *Manager) Current() couch.Connection {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.snapshot()
}

// Info returns the server greeting captured at connect time.
func (m *Manager) Info() couch.ServerInfo {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.info
}

func (m *Manager) snapshot() couch.Connection {
	return couch.Connection{
		BaseURL:   m.baseURL,
		Connected: m.connected,
		Server:    m.info,
	}
}

// asConnectionError keeps connection-kind errors as they are and
// re-kinds anything else (a 404 greeting from something that is not
// this kind of server, a decode failure) so connect always fails with
// a connection error.
func asConnectionError(err error, msg string) error {
	if couch.IsKind(err, couch.KindConnection) {
		return err
	}
	return couch.WrapError(couch.KindConnection, err, "%s", msg)
}
