package auditlog

import (
	"context"
	"errors"
	"testing"

	"github.com/dmitrijs2005/serialgate/internal/server/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeAuditRepo struct {
	inserted []*models.LogBatch
	err      error
}

func (f *fakeAuditRepo) Insert(_ context.Context, b *models.LogBatch) error {
	if f.err != nil {
		return f.err
	}
	f.inserted = append(f.inserted, b)
	return nil
}

type orderSink struct {
	name  string
	trace *[]string
	err   error
}

func (s orderSink) Write(context.Context, *models.LogBatch) error {
	*s.trace = append(*s.trace, s.name)
	return s.err
}

func TestStoreSink_Inserts(t *testing.T) {
	repo := &fakeAuditRepo{}
	b := &models.LogBatch{ID: "1", Logs: []string{"x"}}

	require.NoError(t, NewStoreSink(repo).Write(context.Background(), b))
	assert.Equal(t, []*models.LogBatch{b}, repo.inserted)
}

func TestStoreSink_PropagatesError(t *testing.T) {
	repo := &fakeAuditRepo{err: errors.New("db error: down")}
	require.Error(t, NewStoreSink(repo).Write(context.Background(), &models.LogBatch{}))
}

func TestMultiSink_OrderAndShortCircuit(t *testing.T) {
	var trace []string
	boom := errors.New("boom")

	ok := MultiSink{orderSink{"db", &trace, nil}, orderSink{"s3", &trace, nil}}
	require.NoError(t, ok.Write(context.Background(), &models.LogBatch{}))
	assert.Equal(t, []string{"db", "s3"}, trace)

	trace = nil
	failing := MultiSink{orderSink{"db", &trace, boom}, orderSink{"s3", &trace, nil}}
	require.ErrorIs(t, failing.Write(context.Background(), &models.LogBatch{}), boom)
	assert.Equal(t, []string{"db"}, trace)
}
