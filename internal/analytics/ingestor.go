package analytics

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/nulzo/chat-router/internal/store"
	"github.com/nulzo/chat-router/internal/store/model"
	"go.uber.org/zap"
)

const (
	defaultBufferSize = 10000
	defaultBatchSize  = 50
	defaultFlushEvery = 5 * time.Second
)

// Ingestor handles the asynchronous persistence of route logs.
type Ingestor interface {
	Log(log *model.RouteLog)
	Start(ctx context.Context)
	Stop()
}

type ingestor struct {
	logger    *zap.Logger
	repo      store.Repository
	logChan   chan *model.RouteLog
	batchSize int
	flushTime time.Duration

	// mu orders Log against the close of logChan in Stop
	mu      sync.RWMutex
	closed  bool
	started atomic.Bool
	done    chan struct{}
}

type Option func(*ingestor)

func WithBatchSize(n int) Option {
	return func(i *ingestor) {
		if n > 0 {
			i.batchSize = n
		}
	}
}

func WithFlushInterval(d time.Duration) Option {
	return func(i *ingestor) {
		if d > 0 {
			i.flushTime = d
		}
	}
}

func WithBufferSize(n int) Option {
	return func(i *ingestor) {
		if n > 0 {
			i.logChan = make(chan *model.RouteLog, n)
		}
	}
}

func NewIngestor(logger *zap.Logger, repo store.Repository, opts ...Option) Ingestor {
	if logger == nil {
		logger = zap.NewNop()
	}
	i := &ingestor{
		logger:    logger,
		repo:      repo,
		logChan:   make(chan *model.RouteLog, defaultBufferSize),
		batchSize: defaultBatchSize,
		flushTime: defaultFlushEvery,
		done:      make(chan struct{}),
	}
	for _, opt := range opts {
		opt(i)
	}
	return i
}

// Log enqueues a record without blocking; when the buffer is full the record is dropped.
// Records logged after Stop are dropped as well.
func (i *ingestor) Log(log *model.RouteLog) {
	i.mu.RLock()
	defer i.mu.RUnlock()

	if i.closed {
		i.logger.Debug("Analytics ingestor stopped, dropping route log", zap.String("id", log.ID))
		return
	}
	select {
	case i.logChan <- log:
	default:
		i.logger.Warn("Analytics buffer full, dropping route log", zap.String("id", log.ID))
	}
}

func (i *ingestor) Start(ctx context.Context) {
	if i.started.CompareAndSwap(false, true) {
		go i.worker(ctx)
	}
}

// Stop closes the buffer and waits for the worker to flush what is left.
// Records logged to an ingestor that was never started are discarded.
func (i *ingestor) Stop() {
	i.mu.Lock()
	if !i.closed {
		i.closed = true
		close(i.logChan)
	}
	i.mu.Unlock()

	if i.started.Load() {
		<-i.done
	}
}

func (i *ingestor) worker(ctx context.Context) {
	defer close(i.done)

	batch := make([]*model.RouteLog, 0, i.batchSize)
	ticker := time.NewTicker(i.flushTime)
	defer ticker.Stop()

	flush := func() {
		if len(batch) == 0 {
			return
		}
		// the request context is long gone by now
		err := i.repo.WithTx(context.Background(), func(tx store.Repository) error {
			return tx.Routes().Log(context.Background(), batch...)
		})
		if err != nil {
			i.logger.Error("Failed to persist route logs", zap.Int("count", len(batch)), zap.Error(err))
		}
		batch = batch[:0]
	}

	// cancellation only forces a flush; the worker keeps draining until
	// Stop closes the buffer so late logs from in-flight requests survive
	cancelled := ctx.Done()
	for {
		select {
		case log, ok := <-i.logChan:
			if !ok {
				flush()
				return
			}
			batch = append(batch, log)
			if len(batch) >= i.batchSize {
				flush()
			}
		case <-ticker.C:
			flush()
		case <-cancelled:
			flush()
			cancelled = nil
		}
	}
}
