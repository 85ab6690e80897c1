package main

import (
	"context"
	"fmt"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/skshohagmiah/couchctl/internal/connection"
	"github.com/skshohagmiah/couchctl/internal/couch"
	"github.com/skshohagmiah/couchctl/internal/database"
	"github.com/skshohagmiah/couchctl/internal/document"
	"github.com/skshohagmiah/couchctl/internal/transport"
)

func main() {
	url := os.Getenv("COUCHDB_URL")
	if url == "" {
		url = "http://localhost:5984"
	}

	logger := zap.NewNop().Sugar()
	ctx := context.Background()

	m := connection.New(logger)
	opts := transport.DefaultOptions(url)
	opts.Auth = couch.Credentials{
		Username: os.Getenv("COUCHDB_USER"),
		Password: os.Getenv("COUCHDB_PASSWORD"),
	}
	if _, err := m.Connect(ctx, opts); err != nil {
		fmt.Printf("Failed to connect: %v\n", err)
		return
	}
	defer m.Disconnect()

	dbName := "couchctl_bench"
	reg := database.NewRegistry(m, logger)
	if err := reg.Create(ctx, dbName); err != nil && couch.KindOf(err) != couch.KindDatabaseExists {
		fmt.Printf("Failed to create database: %v\n", err)
		return
	}
	defer reg.Delete(ctx, dbName)

	sess, err := document.NewSession(ctx, m, logger, dbName)
	if err != nil {
		fmt.Printf("Failed to open session: %v\n", err)
		return
	}

	concurrency := 16
	duration := 15 * time.Second

	fmt.Println("📊 Running Document Throughput Benchmark")
	fmt.Println("=========================================")
	fmt.Println()

	// Write benchmark
	fmt.Printf("⚡ Write Performance (%d workers, %v duration)...\n", concurrency, duration)
	var writeOps int64
	writeCounts := make([]int, concurrency)
	var wg sync.WaitGroup
	startTime := time.Now()
	endTime := startTime.Add(duration)

	for i := 0; i < concurrency; i++ {
		wg.Add(1)
		go func(workerID int) {
			defer wg.Done()
			localOps := 0
			for time.Now().Before(endTime) {
				id := fmt.Sprintf("bench-%d-%d", workerID, localOps)
				if _, err := sess.Create(ctx, id, couch.Body{"worker": workerID, "seq": localOps}); err == nil {
					localOps++
				}
			}
			writeCounts[workerID] = localOps
			atomic.AddInt64(&writeOps, int64(localOps))
		}(i)
	}
	wg.Wait()
	writeElapsed := time.Since(startTime)
	fmt.Printf("   %d writes in %v (%.0f ops/sec)\n\n", writeOps, writeElapsed.Round(time.Millisecond), float64(writeOps)/writeElapsed.Seconds())

	// Read benchmark over the documents just written
	fmt.Printf("⚡ Read Performance (%d workers, %v duration)...\n", concurrency, duration)
	var readOps int64
	startTime = time.Now()
	endTime = startTime.Add(duration)

	for i := 0; i < concurrency; i++ {
		wg.Add(1)
		go func(workerID int) {
			defer wg.Done()
			written := writeCounts[workerID]
			if written == 0 {
				return
			}
			localOps := 0
			for time.Now().Before(endTime) {
				id := fmt.Sprintf("bench-%d-%d", workerID, localOps%written)
				if _, err := sess.Get(ctx, id); err == nil {
					localOps++
				}
			}
			atomic.AddInt64(&readOps, int64(localOps))
		}(i)
	}
	wg.Wait()
	readElapsed := time.Since(startTime)
	fmt.Printf("   %d reads in %v (%.0f ops/sec)\n", readOps, readElapsed.Round(time.Millisecond), float64(readOps)/readElapsed.Seconds())
}
