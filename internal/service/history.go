package service

import (
	"context"
	"sync"
	"time"

	"github.com/loanops/commsync/internal/model"
	"github.com/loanops/commsync/internal/pkg/logger"
)

// HistoryRepo persists update records. Postgres-backed in production;
// nil is allowed, in which case only the in-memory ring buffer serves reads.
type HistoryRepo interface {
	Insert(ctx context.Context, rec *model.UpdateRecord) error
	List(ctx context.Context, limit int) ([]*model.UpdateRecord, error)
	Cleanup(ctx context.Context, olderThan time.Duration) error
}

// HistoryService records every successful value update. Writes go through a
// buffered channel so a slow database never blocks the reconcile path.
type HistoryService struct {
	recordChan chan *model.UpdateRecord
	buffer     *historyBuffer
	repo       HistoryRepo

	retention       time.Duration
	cleanupInterval time.Duration

	mu     sync.Mutex
	closed bool

	stop chan struct{}
	wg   sync.WaitGroup
}

func NewHistoryService(repo HistoryRepo, retention, cleanupInterval time.Duration) *HistoryService {
	svc := &HistoryService{
		recordChan:      make(chan *model.UpdateRecord, 256),
		buffer:          newHistoryBuffer(512),
		repo:            repo,
		retention:       retention,
		cleanupInterval: cleanupInterval,
		stop:            make(chan struct{}),
	}

	svc.wg.Add(1)
	go svc.processRecords()

	if repo != nil && retention > 0 && cleanupInterval > 0 {
		svc.wg.Add(1)
		go svc.cleanupLoop()
	}

	return svc
}

// Record enqueues an update record. Drops on a full buffer rather than
// blocking the sync cycle, and is a no-op after Close.
func (s *HistoryService) Record(rec *model.UpdateRecord) {
	s.buffer.Add(rec)
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	select {
	case s.recordChan <- rec:
	default:
		logger.Warn("History buffer full, dropping record", "opportunity_id", rec.OpportunityID)
	}
}

func (s *HistoryService) List(ctx context.Context, limit int) ([]*model.UpdateRecord, error) {
	if s.repo != nil {
		records, err := s.repo.List(ctx, limit)
		if err == nil {
			return records, nil
		}
		logger.Warn("History repo list failed, serving from memory", "error", err)
	}
	return s.buffer.List(limit), nil
}

func (s *HistoryService) processRecords() {
	defer s.wg.Done()
	for rec := range s.recordChan {
		if s.repo == nil {
			continue
		}
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := s.repo.Insert(ctx, rec); err != nil {
			logger.Error("Failed to persist update record", "opportunity_id", rec.OpportunityID, "error", err)
		}
		cancel()
	}
}

func (s *HistoryService) cleanupLoop() {
	defer s.wg.Done()
	ticker := time.NewTicker(s.cleanupInterval)
	defer ticker.Stop()
	for {
		select {
		case <-s.stop:
			return
		case <-ticker.C:
			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			if err := s.repo.Cleanup(ctx, s.retention); err != nil {
				logger.Warn("History cleanup failed", "error", err)
			}
			cancel()
		}
	}
}

func (s *HistoryService) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	s.mu.Unlock()

	close(s.stop)
	close(s.recordChan)
	s.wg.Wait()
}

type historyBuffer struct {
	mu        sync.Mutex
	maxSize   int
	records   []*model.UpdateRecord
	nextIndex int
}

func newHistoryBuffer(maxSize int) *historyBuffer {
	if maxSize <= 0 {
		maxSize = 512
	}
	return &historyBuffer{
		maxSize: maxSize,
		records: make([]*model.UpdateRecord, 0, maxSize),
	}
}

func (b *historyBuffer) Add(rec *model.UpdateRecord) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if len(b.records) < b.maxSize {
		b.records = append(b.records, rec)
		return
	}
	b.records[b.nextIndex] = rec
	b.nextIndex = (b.nextIndex + 1) % b.maxSize
}

// List returns the most recent records, newest first.
func (b *historyBuffer) List(limit int) []*model.UpdateRecord {
	b.mu.Lock()
	defer b.mu.Unlock()
	if limit <= 0 || limit > b.maxSize {
		limit = b.maxSize
	}
	total := len(b.records)
	results := make([]*model.UpdateRecord, 0, limit)
	for i := 0; i < total && len(results) < limit; i++ {
		idx := (b.nextIndex + total - 1 - i) % total
		if rec := b.records[idx]; rec != nil {
			results = append(results, rec)
		}
	}
	return results
}
