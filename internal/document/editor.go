package document

import (
	"context"
	"encoding/json"

	"github.com/skshohagmiah/couchctl/internal/couch"
)

// EditState tracks where an edit session is in its lifecycle.
type EditState int

// Edit session states
const (
	StateLoaded EditState = iota
	StateEditing
	StateConflict
	StateDiscarded
)

func (s EditState) String() string {
	switch s {
	case StateLoaded:
		return "loaded"
	case StateEditing:
		return "editing"
	case StateConflict:
		return "conflict"
	case StateDiscarded:
		return "discarded"
	default:
		return "unknown"
	}
}

// Editor is a single-document edit session with optimistic
// concurrency: it remembers the revision it loaded and refuses to
// save over a concurrent change. After a conflict the caller has to
// Reload before saving again; the editor never merges.
type Editor struct {
	session *Session
	id      string
	rev     string
	state   EditState
	text    string
}

// Edit loads a document into a fresh edit session. The working text
// starts out as the pretty-printed body.
func (s *Session) Edit(ctx context.Context, id string) (*Editor, error) {
	doc, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	text, err := renderBody(doc.Body)
	if err != nil {
		return nil, err
	}
	return &Editor{
		session: s,
		id:      id,
		rev:     doc.Revision,
		state:   StateLoaded,
		text:    text,
	}, nil
}

// ID returns the id of the document being edited.
func (e *Editor) ID() string {
	return e.id
}

// Revision returns the revision the working text is based on.
func (e *Editor) Revision() string {
	return e.rev
}

// State returns the session's current lifecycle state.
func (e *Editor) State() EditState {
	return e.state
}

// Text returns the working text.
func (e *Editor) Text() string {
	return e.text
}

// SetText replaces the working text. The text is held verbatim even
// when it is not valid JSON, so the caller can keep correcting it; it
// is only parsed at save time.
func (e *Editor) SetText(text string) {
	e.text = text
	if e.state == StateLoaded {
		e.state = StateEditing
	}
}

// Format re-indents the working text in place, touching nothing but
// whitespace. Text that does not parse is kept as it was and the
// failure is reported as InvalidJSON; no request is made either way.
func (e *Editor) Format() error {
	text, err := couch.FormatJSON(e.text)
	if err != nil {
		return err
	}
	if text != e.text {
		e.SetText(text)
	}
	return nil
}

// Save parses the working text and submits it at the revision this
// session loaded. While in conflict it fails without touching the
// server; a Reload is required first.
func (e *Editor) Save(ctx context.Context) (couch.Document, error) {
	switch e.state {
	case StateConflict:
		return couch.Document{}, couch.NewError(couch.KindRevisionConflict, "document %q changed on the server; reload before saving again", e.id)
	case StateDiscarded:
		return couch.Document{}, couch.NewError(couch.KindUnsupported, "edit session for %q was discarded", e.id)
	}

	body, err := couch.ParseBody(e.text)
	if err != nil {
		return couch.Document{}, err
	}

	doc, err := e.session.Update(ctx, e.id, e.rev, body)
	if err != nil {
		if couch.IsKind(err, couch.KindRevisionConflict) {
			e.state = StateConflict
		}
		return couch.Document{}, err
	}

	e.rev = doc.Revision
	e.state = StateLoaded
	return doc, nil
}

// Reload refetches the document, replacing the working text and
// clearing any conflict. Local edits are lost.
func (e *Editor) Reload(ctx context.Context) error {
	if e.state == StateDiscarded {
		return couch.NewError(couch.KindUnsupported, "edit session for %q was discarded", e.id)
	}

	doc, err := e.session.Get(ctx, e.id)
	if err != nil {
		return err
	}
	text, err := renderBody(doc.Body)
	if err != nil {
		return err
	}
	e.rev = doc.Revision
	e.text = text
	e.state = StateLoaded
	return nil
}

// Discard abandons the session. Discarded sessions reject every
// further Save and Reload.
func (e *Editor) Discard() {
	e.state = StateDiscarded
}

func renderBody(body couch.Body) (string, error) {
	data, err := json.MarshalIndent(body, "", "  ")
	if err != nil {
		return "", couch.WrapError(couch.KindInvalidJSON, err, "failed to render document body")
	}
	return string(data), nil
}
