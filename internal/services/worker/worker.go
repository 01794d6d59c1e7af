// Package worker writes stored records in the background.
//
// Go Pattern: A buffered channel is the job queue and N goroutines drain it.
// Every job carries its own result channel, so a record write is an explicit
// task whose outcome can be observed (or ignored) without ever blocking or
// failing the analysis that produced it.
package worker

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/Shimizu-Technology/content-analyzer/internal/logger"
	"github.com/Shimizu-Technology/content-analyzer/internal/metrics"
	"github.com/Shimizu-Technology/content-analyzer/internal/models"
	"github.com/Shimizu-Technology/content-analyzer/internal/services/docstore"
)

// ErrQueueFull is reported when the job queue has no room.
var ErrQueueFull = errors.New("persist queue is full")

// ErrStopped is reported for jobs submitted after Stop.
var ErrStopped = errors.New("persist worker stopped")

// writeTimeout bounds a single store write.
const writeTimeout = 30 * time.Second

// DocumentCreator is the slice of the document store the worker needs.
type DocumentCreator interface {
	CreateDocument(ctx context.Context, databaseID, collectionID, documentID string, data any) (*models.Document, error)
}

// Result is the outcome of one record write.
type Result struct {
	DocumentID string
	Err        error
}

type job struct {
	record models.StoredRecord
	result chan Result
}

// Pool manages the persistence goroutines.
type Pool struct {
	jobs         chan job
	workers      int
	store        DocumentCreator
	databaseID   string
	collectionID string

	wg sync.WaitGroup

	mu      sync.RWMutex
	stopped bool

	ctx    context.Context
	cancel context.CancelFunc
}

// NewPool creates a pool that writes into the given database and collection.
func NewPool(workers, queueSize int, store DocumentCreator, databaseID, collectionID string) *Pool {
	ctx, cancel := context.WithCancel(context.Background())
	return &Pool{
		jobs:         make(chan job, queueSize),
		workers:      workers,
		store:        store,
		databaseID:   databaseID,
		collectionID: collectionID,
		ctx:          ctx,
		cancel:       cancel,
	}
}

// Start launches the worker goroutines.
func (p *Pool) Start() {
	logger.Info("🚀 Starting persist workers", zap.Int("workers", p.workers))
	for i := 0; i < p.workers; i++ {
		p.wg.Add(1)
		go p.worker(i)
	}
}

// Stop drains queued jobs and waits for the workers to exit.
func (p *Pool) Stop() {
	p.mu.Lock()
	if p.stopped {
		p.mu.Unlock()
		return
	}
	p.stopped = true
	close(p.jobs)
	p.mu.Unlock()

	p.wg.Wait()
	p.cancel()
	logger.Info("✅ All persist workers stopped")
}

// Submit queues a record write and returns the channel its Result will be
// sent on. The channel is buffered, so callers may drop it. Submit never
// blocks: a full queue or stopped pool is reported on the channel right away.
func (p *Pool) Submit(rec models.StoredRecord) <-chan Result {
	result := make(chan Result, 1)

	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.stopped {
		p.fail(rec, result, ErrStopped)
		return result
	}

	select {
	case p.jobs <- job{record: rec, result: result}:
		logger.Debug("📥 Record queued", zap.String("user_id", rec.UserID), zap.String("file", rec.FileName))
	default:
		p.fail(rec, result, ErrQueueFull)
	}
	return result
}

// QueueSize returns the current number of jobs in the queue.
func (p *Pool) QueueSize() int {
	return len(p.jobs)
}

// WorkerCount returns the number of workers.
func (p *Pool) WorkerCount() int {
	return p.workers
}

func (p *Pool) worker(id int) {
	defer p.wg.Done()

	for j := range p.jobs {
		docID, err := p.write(j.record)
		if err != nil {
			p.fail(j.record, j.result, err)
			continue
		}

		metrics.PersistTotal.WithLabelValues("success").Inc()
		logger.Info("✅ Record stored",
			zap.Int("worker", id),
			zap.String("document_id", docID),
			zap.String("user_id", j.record.UserID),
		)
		j.result <- Result{DocumentID: docID}
	}
}

func (p *Pool) write(rec models.StoredRecord) (string, error) {
	ctx, cancel := context.WithTimeout(p.ctx, writeTimeout)
	defer cancel()

	doc, err := p.store.CreateDocument(ctx, p.databaseID, p.collectionID, docstore.UniqueID, rec)
	if err != nil {
		return "", fmt.Errorf("store record: %w", err)
	}
	return doc.ID, nil
}

func (p *Pool) fail(rec models.StoredRecord, result chan Result, err error) {
	metrics.PersistTotal.WithLabelValues("failed").Inc()
	logger.Error("❌ Record not stored",
		zap.String("user_id", rec.UserID),
		zap.String("file", rec.FileName),
		zap.Error(err),
	)
	result <- Result{Err: err}
}
