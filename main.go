package main

import (
	"context"
	"fmt"
	"log"
	"os"

	"go.uber.org/zap"

	"github.com/skshohagmiah/couchctl/internal/batch"
	"github.com/skshohagmiah/couchctl/internal/connection"
	"github.com/skshohagmiah/couchctl/internal/couch"
	"github.com/skshohagmiah/couchctl/internal/database"
	"github.com/skshohagmiah/couchctl/internal/document"
	"github.com/skshohagmiah/couchctl/internal/index"
	"github.com/skshohagmiah/couchctl/internal/transport"
)

func main() {
	url := envOr("COUCHDB_URL", "http://localhost:5984")

	zl, err := zap.NewDevelopment()
	if err != nil {
		log.Fatal(err)
	}
	logger := zl.Sugar()
	ctx := context.Background()

	fmt.Println("🚀 CouchDB Management Demo")
	fmt.Println("==========================")

	// Connect and probe the server
	fmt.Printf("\n1. Connecting to %s\n", url)
	m := connection.New(logger)
	opts := transport.DefaultOptions(url)
	opts.Auth = couch.Credentials{
		Username: os.Getenv("COUCHDB_USER"),
		Password: os.Getenv("COUCHDB_PASSWORD"),
	}
	opts.Logger = logger
	conn, err := m.Connect(ctx, opts)
	if err != nil {
		log.Fatal(err)
	}
	defer m.Disconnect()
	fmt.Printf("   Server version: %s\n", conn.Server.Version)

	// Create a working database
	dbName := "couchctl_demo"
	fmt.Printf("\n2. Creating database %q\n", dbName)
	reg := database.NewRegistry(m, logger)
	if err := reg.Create(ctx, dbName); err != nil {
		log.Fatal(err)
	}

	fmt.Println("\n3. Creating an index on 'customer'")
	ix, err := index.NewManager(m, logger).Create(ctx, dbName, []string{"customer"}, "by-customer")
	if err != nil {
		log.Fatal(err)
	}
	fmt.Printf("   Index %q ready\n", ix.Name)

	fmt.Println("\n4. Creating three documents")
	sess, err := document.NewSession(ctx, m, logger, dbName)
	if err != nil {
		log.Fatal(err)
	}
	if _, err := sess.Create(ctx, "invoice-1", couch.Body{"customer": "acme", "total": 41.5}); err != nil {
		log.Fatal(err)
	}
	for _, body := range []couch.Body{
		{"customer": "globex", "total": 12.0},
		{"customer": "initech", "total": 99.9},
	} {
		doc, err := sess.Create(ctx, "", body)
		if err != nil {
			log.Fatal(err)
		}
		fmt.Printf("   Created %s (rev %s)\n", doc.ID, doc.Revision)
	}

	fmt.Println("\n5. Fetching 'invoice-1'")
	doc, err := sess.Get(ctx, "invoice-1")
	if err != nil {
		log.Fatal(err)
	}
	fmt.Printf("   rev %s, customer %v\n", doc.Revision, doc.Body["customer"])

	// A concurrent writer beats the editor to the update; the save
	// must fail with a revision conflict, and a reload clears it.
	fmt.Println("\n6. Demonstrating a revision conflict")
	ed, err := sess.Edit(ctx, "invoice-1")
	if err != nil {
		log.Fatal(err)
	}
	if _, err := sess.Update(ctx, "invoice-1", doc.Revision, couch.Body{"customer": "megacorp", "total": 500.0}); err != nil {
		log.Fatal(err)
	}
	ed.SetText(`{"customer": "acme", "total": 42.0}`)
	if _, err := ed.Save(ctx); err != nil {
		fmt.Printf("   Save failed as expected: %v\n", err)
	}
	fmt.Printf("   Editor state: %s\n", ed.State())
	if err := ed.Reload(ctx); err != nil {
		log.Fatal(err)
	}
	ed.SetText(`{"customer":"acme","total":42.0}`)
	if err := ed.Format(); err != nil {
		log.Fatal(err)
	}
	if _, err := ed.Save(ctx); err != nil {
		log.Fatal(err)
	}
	fmt.Println("   Reloaded, formatted, and saved cleanly")

	fmt.Println("\n7. Searching for 'acme'")
	matches, err := sess.Search(ctx, "acme")
	if err != nil {
		log.Fatal(err)
	}
	for _, d := range matches {
		fmt.Printf("   %s (rev %s)\n", d.ID, d.Revision)
	}

	fmt.Println("\n8. Purging every document")
	c := batch.New(logger)
	c.Progress = func(done, total int, id string, err error) {
		if err != nil {
			fmt.Printf("   ❌ [%d/%d] %s: %v\n", done, total, id, err)
			return
		}
		fmt.Printf("   ✅ [%d/%d] %s\n", done, total, id)
	}
	res, err := c.DeleteAllDocuments(ctx, sess)
	if err != nil {
		log.Fatal(err)
	}
	fmt.Printf("   %d/%d deleted\n", len(res.Succeeded), len(res.Requested))

	fmt.Printf("\n9. Deleting database %q\n", dbName)
	if err := reg.Delete(ctx, dbName); err != nil {
		log.Fatal(err)
	}

	fmt.Println("\n✅ Demo completed successfully!")
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
