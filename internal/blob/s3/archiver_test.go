package s3blob

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/degenlabs/moonshot/internal/domain"
)

type memWriter struct {
	path        string
	contentType string
	data        []byte
	err         error
}

func (m *memWriter) Put(_ context.Context, path string, data io.Reader, contentType string) error {
	if m.err != nil {
		return m.err
	}
	m.path = path
	m.contentType = contentType
	var err error
	m.data, err = io.ReadAll(data)
	return err
}

type memArchiveStore struct {
	trades  []domain.TradeRecord
	deleted *time.Time
}

func (m *memArchiveStore) ListBefore(_ context.Context, before time.Time) ([]domain.TradeRecord, error) {
	var out []domain.TradeRecord
	for _, tr := range m.trades {
		if tr.ExitTime.Before(before) {
			out = append(out, tr)
		}
	}
	return out, nil
}

func (m *memArchiveStore) DeleteBefore(_ context.Context, before time.Time) (int64, error) {
	m.deleted = &before
	var kept []domain.TradeRecord
	var n int64
	for _, tr := range m.trades {
		if tr.ExitTime.Before(before) {
			n++
			continue
		}
		kept = append(kept, tr)
	}
	m.trades = kept
	return n, nil
}

type memAudit struct {
	events []string
}

func (m *memAudit) Log(_ context.Context, event string, _ map[string]any) error {
	m.events = append(m.events, event)
	return nil
}

func (m *memAudit) List(_ context.Context, _ domain.ListOpts) ([]domain.AuditEntry, error) {
	return nil, nil
}

func trade(id string, exit time.Time) domain.TradeRecord {
	return domain.TradeRecord{
		PositionID:  id,
		MarketID:    "m-" + id,
		RealizedPnL: 1.23,
		ExitTime:    exit,
		Reason:      domain.ExitTakeProfit,
	}
}

func TestArchiveTradesUploadsAndDeletes(t *testing.T) {
	cutoff := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	store := &memArchiveStore{trades: []domain.TradeRecord{
		trade("old1", cutoff.Add(-48*time.Hour)),
		trade("old2", cutoff.Add(-time.Hour)),
		trade("fresh", cutoff.Add(time.Hour)),
	}}
	writer := &memWriter{}
	audit := &memAudit{}

	count, err := NewArchiver(writer, store, audit).ArchiveTrades(context.Background(), cutoff)
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)

	assert.Equal(t, "archive/trades/2026-08.jsonl", writer.path)
	assert.Equal(t, "application/x-ndjson", writer.contentType)

	// One JSON object per line, decodable back into records.
	var ids []string
	scanner := bufio.NewScanner(bytes.NewReader(writer.data))
	for scanner.Scan() {
		var tr domain.TradeRecord
		require.NoError(t, json.Unmarshal(scanner.Bytes(), &tr))
		ids = append(ids, tr.PositionID)
	}
	assert.Equal(t, []string{"old1", "old2"}, ids)

	// Archived rows are gone, fresher ones remain.
	require.Len(t, store.trades, 1)
	assert.Equal(t, "fresh", store.trades[0].PositionID)

	assert.Equal(t, []string{"archive.trades"}, audit.events)
}

func TestArchiveTradesNoopWhenEmpty(t *testing.T) {
	writer := &memWriter{}
	count, err := NewArchiver(writer, &memArchiveStore{}, nil).
		ArchiveTrades(context.Background(), time.Now())
	require.NoError(t, err)
	assert.Zero(t, count)
	assert.Empty(t, writer.path, "nothing uploaded")
}

func TestArchiveTradesKeepsRowsOnUploadFailure(t *testing.T) {
	cutoff := time.Now()
	store := &memArchiveStore{trades: []domain.TradeRecord{
		trade("old", cutoff.Add(-time.Hour)),
	}}
	writer := &memWriter{err: errors.New("bucket unreachable")}

	_, err := NewArchiver(writer, store, nil).ArchiveTrades(context.Background(), cutoff)
	require.Error(t, err)
	assert.Nil(t, store.deleted, "no delete without a successful upload")
	assert.Len(t, store.trades, 1)
}
