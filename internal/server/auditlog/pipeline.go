// Package auditlog ships the bot's log file to durable storage. Each cycle
// reads the lines appended since the last checkpoint, writes them as one
// batch and compacts the file once everything in it has been shipped.
//
// Delivery is at-least-once: the offset is kept in memory only, so a crash
// between a successful write and the offset update ships those lines again.
// A regular cycle ships complete lines only; the final drain on shutdown also
// ships a trailing line that has no newline yet.
package auditlog

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/dmitrijs2005/serialgate/internal/common"
	"github.com/dmitrijs2005/serialgate/internal/logging"
	"github.com/dmitrijs2005/serialgate/internal/server/config"
	"github.com/dmitrijs2005/serialgate/internal/server/metrics"
	"github.com/dmitrijs2005/serialgate/internal/server/models"
)

type Pipeline struct {
	path         string
	interval     time.Duration
	drainTimeout time.Duration

	sink    Sink
	logger  logging.Logger
	metrics *metrics.Metrics

	// writerLock, when set, is held by in-process writers for each write.
	writerLock sync.Locker

	now   func() time.Time
	newID func() string

	// mu serializes cycles; offset is readable without it.
	mu     sync.Mutex
	offset atomic.Int64
}

const (
	defaultInterval     = 300 * time.Second
	defaultDrainTimeout = 10 * time.Second
)

type Option func(*Pipeline)

// WithWriterLock makes compaction hold l between checking the file size and
// truncating, so lines written by the holder of l are never truncated away
// unshipped.
func WithWriterLock(l sync.Locker) Option {
	return func(p *Pipeline) {
		p.writerLock = l
	}
}

func NewPipeline(cfg *config.Config, sink Sink, logger logging.Logger, m *metrics.Metrics, opts ...Option) *Pipeline {
	interval := cfg.CheckpointInterval
	if interval <= 0 {
		interval = defaultInterval
	}
	drain := cfg.DrainTimeout
	if drain <= 0 {
		drain = defaultDrainTimeout
	}
	p := &Pipeline{
		path:         cfg.LogFile,
		interval:     interval,
		drainTimeout: drain,
		sink:         sink,
		logger:       logger.With("module", "auditlog"),
		metrics:      m,
		now:          time.Now,
		newID:        uuid.NewString,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Offset is the number of bytes of the current file already shipped.
func (p *Pipeline) Offset() int64 { return p.offset.Load() }

// Run flushes on every tick until ctx is cancelled, then drains once more
// within the drain timeout.
func (p *Pipeline) Run(ctx context.Context) {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			_ = p.Flush(ctx)
		case <-ctx.Done():
			drainCtx, cancel := context.WithTimeout(context.Background(), p.drainTimeout)
			defer cancel()
			if err := p.flush(drainCtx, true); err == nil {
				p.logger.Info(drainCtx, "final log drain done", "offset", p.Offset())
			}
			return
		}
	}
}

// Flush runs one checkpoint cycle. Errors are logged and returned; the
// offset is left unchanged so the next cycle retries the same lines.
func (p *Pipeline) Flush(ctx context.Context) error {
	return p.flush(ctx, false)
}

func (p *Pipeline) flush(ctx context.Context, final bool) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	err := p.cycle(ctx, final)
	if err != nil {
		p.metrics.CycleFailures.Inc()
		p.logger.Error(ctx, "log checkpoint failed", "error", err, "offset", p.Offset())
	}
	p.metrics.LogOffset.Set(float64(p.Offset()))
	return err
}

func (p *Pipeline) cycle(ctx context.Context, final bool) error {
	f, err := os.OpenFile(p.path, os.O_RDWR|os.O_CREATE, 0o640)
	if err != nil {
		return fmt.Errorf("%w: open: %w", common.ErrLogIO, err)
	}
	defer f.Close()

	st, err := f.Stat()
	if err != nil {
		return fmt.Errorf("%w: stat: %w", common.ErrLogIO, err)
	}

	off := p.offset.Load()
	if st.Size() < off {
		p.logger.Warn(ctx, "log file shrank, restarting from the beginning", "size", st.Size(), "offset", off)
		off = 0
		p.offset.Store(0)
	}

	lines, end, err := readLines(f, off, st.Size(), final)
	if err != nil {
		return err
	}

	if len(lines) > 0 {
		batch := &models.LogBatch{ID: p.newID(), Timestamp: p.now(), Logs: lines}
		if err := p.sink.Write(ctx, batch); err != nil {
			return fmt.Errorf("ship batch: %w", err)
		}
		p.offset.Store(end)
		p.metrics.BatchesShipped.Inc()
		p.metrics.LinesShipped.Add(float64(len(lines)))
		p.logger.Debug(ctx, "log batch shipped", "batch_id", batch.ID, "lines", len(lines), "offset", end)
	}

	return p.compact(ctx, f)
}

// compact empties the file when everything in it has been shipped. A file
// that grew after the read is left for the next cycle.
func (p *Pipeline) compact(ctx context.Context, f *os.File) error {
	off := p.offset.Load()
	if off == 0 {
		return nil
	}

	size, err := p.truncateIfShipped(f, off)
	if err != nil {
		return err
	}
	if size != off {
		p.logger.Debug(ctx, "log file grew during cycle, compaction deferred", "size", size, "offset", off)
		return nil
	}
	p.offset.Store(0)
	p.metrics.Truncations.Inc()
	return nil
}

// truncateIfShipped empties f when its size equals off and returns the size
// it saw. The writer lock is held from the stat to the truncate; nothing may
// log in between since the logger writes to the same file.
func (p *Pipeline) truncateIfShipped(f *os.File, off int64) (int64, error) {
	if p.writerLock != nil {
		p.writerLock.Lock()
		defer p.writerLock.Unlock()
	}

	st, err := f.Stat()
	if err != nil {
		return 0, fmt.Errorf("%w: stat: %w", common.ErrLogIO, err)
	}
	if st.Size() != off {
		return st.Size(), nil
	}
	if err := f.Truncate(0); err != nil {
		return 0, fmt.Errorf("%w: truncate: %w", common.ErrLogIO, err)
	}
	return off, nil
}

// readLines returns the complete lines in [off, size) without their line
// terminators, and the offset just past the last newline. A trailing partial
// line is returned only when partial is set, and then the offset is size.
func readLines(f *os.File, off, size int64, partial bool) ([]string, int64, error) {
	if size <= off {
		return nil, off, nil
	}

	buf := make([]byte, size-off)
	n, err := f.ReadAt(buf, off)
	if err != nil && !errors.Is(err, io.EOF) {
		return nil, off, fmt.Errorf("%w: read: %w", common.ErrLogIO, err)
	}
	buf = buf[:n]

	var lines []string
	last := bytes.LastIndexByte(buf, '\n')
	if last >= 0 {
		for _, l := range bytes.Split(buf[:last], []byte{'\n'}) {
			lines = append(lines, string(bytes.TrimSuffix(l, []byte{'\r'})))
		}
	}
	end := off + int64(last) + 1

	if rest := buf[last+1:]; partial && len(rest) > 0 {
		lines = append(lines, string(bytes.TrimSuffix(rest, []byte{'\r'})))
		end = off + int64(len(buf))
	}
	return lines, end, nil
}
