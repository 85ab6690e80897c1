package document

import (
	"context"
	"strings"
	"testing"

	"github.com/skshohagmiah/couchctl/internal/couch"
)

// TestEditorSaveFlow tests the happy path: load, edit, save, and the
// revision moving forward.
func TestEditorSaveFlow(t *testing.T) {
	ms := newMemoryServer("orders")
	s := newTestSession(t, ms)
	ctx := context.Background()

	created, err := s.Create(ctx, "invoice-1", couch.Body{"customer": "acme", "paid": false})
	if err != nil {
		t.Fatalf("failed to create document: %v", err)
	}

	ed, err := s.Edit(ctx, "invoice-1")
	if err != nil {
		t.Fatalf("failed to open editor: %v", err)
	}
	if ed.State() != StateLoaded {
		t.Errorf("expected state %s, got %s", StateLoaded, ed.State())
	}
	if ed.Revision() != created.Revision {
		t.Errorf("expected revision %s, got %s", created.Revision, ed.Revision())
	}
	if !strings.Contains(ed.Text(), `"customer": "acme"`) {
		t.Errorf("expected pretty-printed text, got %q", ed.Text())
	}

	ed.SetText(`{"customer": "acme", "paid": true}`)
	if ed.State() != StateEditing {
		t.Errorf("expected state %s, got %s", StateEditing, ed.State())
	}

	saved, err := ed.Save(ctx)
	if err != nil {
		t.Fatalf("failed to save: %v", err)
	}
	if saved.Revision == created.Revision {
		t.Error("expected the revision to change on save")
	}
	if ed.State() != StateLoaded {
		t.Errorf("expected state %s after save, got %s", StateLoaded, ed.State())
	}
	if ed.Revision() != saved.Revision {
		t.Errorf("expected the editor to track revision %s, got %s", saved.Revision, ed.Revision())
	}

	got, err := s.Get(ctx, "invoice-1")
	if err != nil {
		t.Fatalf("failed to get document: %v", err)
	}
	if got.Body["paid"] != true {
		t.Errorf("expected paid true, got %v", got.Body["paid"])
	}
}

// TestEditorConflict tests the conflict protocol: a concurrent update
// puts the editor into conflict, further saves fail without touching
// the server, and a reload clears the way.
func TestEditorConflict(t *testing.T) {
	ms := newMemoryServer("orders")
	s := newTestSession(t, ms)
	ctx := context.Background()

	created, err := s.Create(ctx, "invoice-1", couch.Body{"customer": "acme"})
	if err != nil {
		t.Fatalf("failed to create document: %v", err)
	}

	ed, err := s.Edit(ctx, "invoice-1")
	if err != nil {
		t.Fatalf("failed to open editor: %v", err)
	}

	// someone else wins the race
	if _, err := s.Update(ctx, "invoice-1", created.Revision, couch.Body{"customer": "globex"}); err != nil {
		t.Fatalf("failed to update concurrently: %v", err)
	}

	ed.SetText(`{"customer": "initech"}`)
	if _, err := ed.Save(ctx); couch.KindOf(err) != couch.KindRevisionConflict {
		t.Fatalf("expected %s, got %v", couch.KindRevisionConflict, err)
	}
	if ed.State() != StateConflict {
		t.Errorf("expected state %s, got %s", StateConflict, ed.State())
	}

	before := len(ms.calls)
	if _, err := ed.Save(ctx); couch.KindOf(err) != couch.KindRevisionConflict {
		t.Errorf("expected %s on save-while-conflicted, got %v", couch.KindRevisionConflict, err)
	}
	if len(ms.calls) != before {
		t.Errorf("expected no requests while conflicted, got %v", ms.calls[before:])
	}

	if err := ed.Reload(ctx); err != nil {
		t.Fatalf("failed to reload: %v", err)
	}
	if ed.State() != StateLoaded {
		t.Errorf("expected state %s after reload, got %s", StateLoaded, ed.State())
	}
	if !strings.Contains(ed.Text(), "globex") {
		t.Errorf("expected the reloaded text to carry the winning change, got %q", ed.Text())
	}

	ed.SetText(`{"customer": "initech"}`)
	if _, err := ed.Save(ctx); err != nil {
		t.Fatalf("failed to save after reload: %v", err)
	}

	got, err := s.Get(ctx, "invoice-1")
	if err != nil {
		t.Fatalf("failed to get document: %v", err)
	}
	if got.Body["customer"] != "initech" {
		t.Errorf("expected customer initech, got %v", got.Body["customer"])
	}
}

// TestEditorInvalidJSON tests that malformed working text fails the
// save locally and keeps the text for correction.
func TestEditorInvalidJSON(t *testing.T) {
	ms := newMemoryServer("orders")
	s := newTestSession(t, ms)
	ctx := context.Background()

	if _, err := s.Create(ctx, "invoice-1", couch.Body{"customer": "acme"}); err != nil {
		t.Fatalf("failed to create document: %v", err)
	}
	ed, err := s.Edit(ctx, "invoice-1")
	if err != nil {
		t.Fatalf("failed to open editor: %v", err)
	}

	ed.SetText(`{"customer": "acme"`)
	before := len(ms.calls)
	if _, err := ed.Save(ctx); couch.KindOf(err) != couch.KindInvalidJSON {
		t.Errorf("expected %s, got %v", couch.KindInvalidJSON, err)
	}
	if len(ms.calls) != before {
		t.Errorf("expected no requests for malformed text, got %v", ms.calls[before:])
	}
	if ed.Text() != `{"customer": "acme"` {
		t.Errorf("expected the text to be kept, got %q", ed.Text())
	}
	if ed.State() != StateEditing {
		t.Errorf("expected state %s, got %s", StateEditing, ed.State())
	}

	ed.SetText(`{"customer": "acme", "fixed": true}`)
	if _, err := ed.Save(ctx); err != nil {
		t.Fatalf("failed to save corrected text: %v", err)
	}
}

// TestEditorFormat tests re-indenting the working text: compact edits
// come back pretty-printed and malformed text is kept as is, with no
// requests either way.
func TestEditorFormat(t *testing.T) {
	ms := newMemoryServer("orders")
	s := newTestSession(t, ms)
	ctx := context.Background()

	if _, err := s.Create(ctx, "invoice-1", couch.Body{"customer": "acme"}); err != nil {
		t.Fatalf("failed to create document: %v", err)
	}
	ed, err := s.Edit(ctx, "invoice-1")
	if err != nil {
		t.Fatalf("failed to open editor: %v", err)
	}
	before := len(ms.calls)

	if err := ed.Format(); err != nil {
		t.Fatalf("failed to format freshly loaded text: %v", err)
	}
	if ed.State() != StateLoaded {
		t.Errorf("expected an unchanged format to keep state %s, got %s", StateLoaded, ed.State())
	}

	ed.SetText(`{"customer":"globex","tags":["a","b"]}`)
	if err := ed.Format(); err != nil {
		t.Fatalf("failed to format: %v", err)
	}
	want := "{\n  \"customer\": \"globex\",\n  \"tags\": [\n    \"a\",\n    \"b\"\n  ]\n}"
	if ed.Text() != want {
		t.Errorf("expected re-indented text %q, got %q", want, ed.Text())
	}
	if ed.State() != StateEditing {
		t.Errorf("expected state %s, got %s", StateEditing, ed.State())
	}

	ed.SetText(`{"customer": "globex"`)
	if err := ed.Format(); couch.KindOf(err) != couch.KindInvalidJSON {
		t.Errorf("expected %s, got %v", couch.KindInvalidJSON, err)
	}
	if ed.Text() != `{"customer": "globex"` {
		t.Errorf("expected malformed text to be kept, got %q", ed.Text())
	}

	if len(ms.calls) != before {
		t.Errorf("expected no requests from formatting, got %v", ms.calls[before:])
	}
}

// TestEditorDiscard tests that a discarded session rejects saves and
// reloads without any requests.
func TestEditorDiscard(t *testing.T) {
	ms := newMemoryServer("orders")
	s := newTestSession(t, ms)
	ctx := context.Background()

	if _, err := s.Create(ctx, "invoice-1", couch.Body{"customer": "acme"}); err != nil {
		t.Fatalf("failed to create document: %v", err)
	}
	ed, err := s.Edit(ctx, "invoice-1")
	if err != nil {
		t.Fatalf("failed to open editor: %v", err)
	}

	ed.Discard()
	if ed.State() != StateDiscarded {
		t.Errorf("expected state %s, got %s", StateDiscarded, ed.State())
	}

	before := len(ms.calls)
	if _, err := ed.Save(ctx); couch.KindOf(err) != couch.KindUnsupported {
		t.Errorf("expected %s on save, got %v", couch.KindUnsupported, err)
	}
	if err := ed.Reload(ctx); couch.KindOf(err) != couch.KindUnsupported {
		t.Errorf("expected %s on reload, got %v", couch.KindUnsupported, err)
	}
	if len(ms.calls) != before {
		t.Errorf("expected no requests after discard, got %v", ms.calls[before:])
	}
}

// TestEditorMissingDocument tests that editing an unknown id fails up
// front.
func TestEditorMissingDocument(t *testing.T) {
	ms := newMemoryServer("orders")
	s := newTestSession(t, ms)

	_, err := s.Edit(context.Background(), "ghost")
	if couch.KindOf(err) != couch.KindNotFound {
		t.Errorf("expected %s, got %v", couch.KindNotFound, err)
	}
}
