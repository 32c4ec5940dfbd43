package auditlog

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/dmitrijs2005/serialgate/internal/common"
	"github.com/dmitrijs2005/serialgate/internal/logging"
	"github.com/dmitrijs2005/serialgate/internal/server/config"
	"github.com/dmitrijs2005/serialgate/internal/server/metrics"
	"github.com/dmitrijs2005/serialgate/internal/server/models"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingSink struct {
	mu      sync.Mutex
	batches []*models.LogBatch
	err     error
}

func (s *recordingSink) Write(_ context.Context, b *models.LogBatch) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.batches = append(s.batches, b)
	return nil
}

func (s *recordingSink) setErr(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.err = err
}

func (s *recordingSink) snapshot() []*models.LogBatch {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]*models.LogBatch(nil), s.batches...)
}

func newTestPipeline(t *testing.T, interval time.Duration) (*Pipeline, *recordingSink, string, *metrics.Metrics) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "bot_logs.log")
	sink := &recordingSink{}
	m := metrics.New()
	cfg := &config.Config{LogFile: path, CheckpointInterval: interval, DrainTimeout: time.Second}
	p := NewPipeline(cfg, sink, logging.Nop(), m)
	p.now = func() time.Time { return time.Unix(1700000000, 0) }
	return p, sink, path, m
}

func appendTo(t *testing.T, path, s string) {
	t.Helper()
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o640)
	require.NoError(t, err)
	defer f.Close()
	_, err = f.WriteString(s)
	require.NoError(t, err)
}

func fileSize(t *testing.T, path string) int64 {
	t.Helper()
	st, err := os.Stat(path)
	require.NoError(t, err)
	return st.Size()
}

func TestFlush_ThreeLinesShippedAndFileCompacted(t *testing.T) {
	p, sink, path, m := newTestPipeline(t, time.Hour)
	appendTo(t, path, "A\nB\nC\n")

	require.NoError(t, p.Flush(context.Background()))

	got := sink.snapshot()
	require.Len(t, got, 1)
	assert.Equal(t, []string{"A", "B", "C"}, got[0].Logs)
	assert.Equal(t, time.Unix(1700000000, 0), got[0].Timestamp)
	assert.NotEmpty(t, got[0].ID)

	assert.Zero(t, fileSize(t, path))
	assert.Zero(t, p.Offset())
	assert.Equal(t, 1.0, testutil.ToFloat64(m.BatchesShipped))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.LinesShipped))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Truncations))
}

func TestFlush_MissingFileIsCreated(t *testing.T) {
	p, sink, path, _ := newTestPipeline(t, time.Hour)

	require.NoError(t, p.Flush(context.Background()))

	assert.Empty(t, sink.snapshot())
	assert.Zero(t, fileSize(t, path))
	assert.Zero(t, p.Offset())
}

func TestFlush_EmptyFileShipsNothing(t *testing.T) {
	p, sink, path, _ := newTestPipeline(t, time.Hour)
	appendTo(t, path, "")

	require.NoError(t, p.Flush(context.Background()))
	require.NoError(t, p.Flush(context.Background()))
	assert.Empty(t, sink.snapshot())
}

func TestFlush_PartialLineWaitsForNewline(t *testing.T) {
	p, sink, path, _ := newTestPipeline(t, time.Hour)
	appendTo(t, path, "A\nB")

	require.NoError(t, p.Flush(context.Background()))
	require.Len(t, sink.snapshot(), 1)
	assert.Equal(t, []string{"A"}, sink.snapshot()[0].Logs)
	assert.EqualValues(t, 2, p.Offset())
	assert.EqualValues(t, 3, fileSize(t, path), "file with unshipped bytes is not truncated")

	appendTo(t, path, "C\n")
	require.NoError(t, p.Flush(context.Background()))

	got := sink.snapshot()
	require.Len(t, got, 2)
	assert.Equal(t, []string{"BC"}, got[1].Logs)
	assert.Zero(t, p.Offset())
	assert.Zero(t, fileSize(t, path))
}

func TestFlush_OffsetNeverPassesFileEnd(t *testing.T) {
	p, _, path, _ := newTestPipeline(t, time.Hour)

	prev := int64(0)
	for _, chunk := range []string{"one\ntw", "o\nthr", "ee"} {
		appendTo(t, path, chunk)
		require.NoError(t, p.Flush(context.Background()))
		off := p.Offset()
		assert.LessOrEqual(t, off, fileSize(t, path))
		if fileSize(t, path) > 0 {
			assert.GreaterOrEqual(t, off, prev)
		}
		prev = off
	}
}

func TestFlush_SinkFailureKeepsOffsetAndRetries(t *testing.T) {
	p, sink, path, m := newTestPipeline(t, time.Hour)
	appendTo(t, path, "A\nB\n")

	sink.setErr(errors.New("db down"))
	err := p.Flush(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "db down")
	assert.Zero(t, p.Offset())
	assert.EqualValues(t, 4, fileSize(t, path))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.CycleFailures))

	sink.setErr(nil)
	appendTo(t, path, "C\n")
	require.NoError(t, p.Flush(context.Background()))

	got := sink.snapshot()
	require.Len(t, got, 1)
	assert.Equal(t, []string{"A", "B", "C"}, got[0].Logs)
	assert.Zero(t, fileSize(t, path))
}

func TestFlush_ExternalTruncationResetsOffset(t *testing.T) {
	p, sink, path, _ := newTestPipeline(t, time.Hour)
	appendTo(t, path, "A\nB")
	require.NoError(t, p.Flush(context.Background()))
	require.EqualValues(t, 2, p.Offset())

	require.NoError(t, os.Truncate(path, 0))
	require.NoError(t, p.Flush(context.Background()))
	assert.Zero(t, p.Offset())

	appendTo(t, path, "Z\n")
	require.NoError(t, p.Flush(context.Background()))
	got := sink.snapshot()
	require.Len(t, got, 2)
	assert.Equal(t, []string{"Z"}, got[1].Logs)
}

func TestFlush_DeletedFileIsRecreated(t *testing.T) {
	p, _, path, _ := newTestPipeline(t, time.Hour)
	appendTo(t, path, "A\nB")
	require.NoError(t, p.Flush(context.Background()))

	require.NoError(t, os.Remove(path))
	require.NoError(t, p.Flush(context.Background()))

	assert.Zero(t, p.Offset())
	assert.Zero(t, fileSize(t, path))
}

func TestFlush_CRLFAndEmptyLines(t *testing.T) {
	p, sink, path, _ := newTestPipeline(t, time.Hour)
	appendTo(t, path, "A\r\n\nB\n")

	require.NoError(t, p.Flush(context.Background()))
	assert.Equal(t, []string{"A", "", "B"}, sink.snapshot()[0].Logs)
}

func TestFlush_UnopenableFile(t *testing.T) {
	sink := &recordingSink{}
	cfg := &config.Config{LogFile: filepath.Join(t.TempDir(), "missing-dir", "bot.log"), DrainTimeout: time.Second}
	p := NewPipeline(cfg, sink, logging.Nop(), metrics.New())

	err := p.Flush(context.Background())
	require.ErrorIs(t, err, common.ErrLogIO)
	assert.Zero(t, p.Offset())
}

func TestRun_ShipsOnTick(t *testing.T) {
	p, sink, path, _ := newTestPipeline(t, 10*time.Millisecond)
	appendTo(t, path, "tick\n")

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		p.Run(ctx)
		close(done)
	}()

	require.Eventually(t, func() bool { return len(sink.snapshot()) == 1 }, 2*time.Second, 5*time.Millisecond)
	cancel()
	<-done
}

func TestRun_FinalDrainOnCancel(t *testing.T) {
	p, sink, path, _ := newTestPipeline(t, time.Hour)
	appendTo(t, path, "last words\n")

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		p.Run(ctx)
		close(done)
	}()
	cancel()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after cancel")
	}

	got := sink.snapshot()
	require.Len(t, got, 1)
	assert.Equal(t, []string{"last words"}, got[0].Logs)
	assert.Zero(t, fileSize(t, path))
}

func TestRun_FinalDrainShipsTrailingPartialLine(t *testing.T) {
	p, sink, path, _ := newTestPipeline(t, time.Hour)
	appendTo(t, path, "A\nB")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	p.Run(ctx)

	got := sink.snapshot()
	require.Len(t, got, 1)
	assert.Equal(t, []string{"A", "B"}, got[0].Logs)
	assert.Zero(t, p.Offset())
	assert.Zero(t, fileSize(t, path))
}

func TestFlush_ConcurrentWriterLosesNoLines(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bot_logs.log")
	lf, err := logging.OpenFile(path)
	require.NoError(t, err)
	defer lf.Close()

	sink := &recordingSink{}
	cfg := &config.Config{LogFile: path, DrainTimeout: time.Second}
	p := NewPipeline(cfg, sink, logging.Nop(), metrics.New(), WithWriterLock(lf))

	const total = 20000
	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < total; i++ {
			if _, err := fmt.Fprintf(lf, "line-%d\n", i); err != nil {
				t.Error(err)
				return
			}
		}
	}()

	ctx := context.Background()
	for writing := true; writing; {
		select {
		case <-done:
			writing = false
		default:
		}
		require.NoError(t, p.Flush(ctx))
	}
	require.NoError(t, p.Flush(ctx))

	seen := make(map[string]struct{}, total)
	for _, b := range sink.snapshot() {
		for _, l := range b.Logs {
			seen[l] = struct{}{}
		}
	}
	missing := 0
	for i := 0; i < total; i++ {
		if _, ok := seen[fmt.Sprintf("line-%d", i)]; !ok {
			missing++
		}
	}
	assert.Zero(t, missing, "lines written during compaction must still be shipped")
	assert.Len(t, seen, total)
	assert.Zero(t, fileSize(t, path))
}

func TestReadLines_PartialOnlyWhenAsked(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bot.log")
	appendTo(t, path, "x\ny\r\nz")
	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	lines, end, err := readLines(f, 2, 6, false)
	require.NoError(t, err)
	assert.Equal(t, []string{"y"}, lines)
	assert.EqualValues(t, 5, end)

	lines, end, err = readLines(f, 5, 6, true)
	require.NoError(t, err)
	assert.Equal(t, []string{"z"}, lines)
	assert.EqualValues(t, 6, end)

	lines, end, err = readLines(f, 5, 6, false)
	require.NoError(t, err)
	assert.Empty(t, lines)
	assert.EqualValues(t, 5, end)
}

func TestNewPipeline_DefaultInterval(t *testing.T) {
	p := NewPipeline(&config.Config{LogFile: "x"}, &recordingSink{}, logging.Nop(), metrics.New())
	assert.Equal(t, defaultInterval, p.interval)
}
