package output

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decodeLines(t *testing.T, buf *bytes.Buffer) []Record {
	t.Helper()
	var out []Record
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		if line == "" {
			continue
		}
		var rec Record
		require.NoError(t, json.Unmarshal([]byte(line), &rec))
		out = append(out, rec)
	}
	return out
}

func TestNewJSONLWriter(t *testing.T) {
	var buf bytes.Buffer
	w := NewJSONLWriter(&buf, "job-123", "gdrive")

	assert.NotNil(t, w)
	assert.Equal(t, "job-123", w.jobID)
	assert.Equal(t, "gdrive", w.provider)
}

func TestJSONLWriter_WriteItem(t *testing.T) {
	var buf bytes.Buffer
	w := NewJSONLWriter(&buf, "job-123", "gdrive")
	fixed := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	w.now = func() time.Time { return fixed }

	err := w.WriteItem(context.Background(), &ItemRecord{
		ItemID:         "1abc",
		Name:           "Budget",
		MimeType:       "application/vnd.google-apps.spreadsheet",
		ExportMimeType: "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
		Path:           "/tmp/out/Budget.xlsx",
		Bytes:          2048,
		State:          "deleted",
	})
	require.NoError(t, err)

	records := decodeLines(t, &buf)
	require.Len(t, records, 1)
	assert.Equal(t, TypeItem, records[0].Type)
	assert.Equal(t, "job-123", records[0].JobID)
	assert.Equal(t, "gdrive", records[0].Provider)
	assert.Equal(t, fixed, records[0].TS)

	var item ItemRecord
	require.NoError(t, json.Unmarshal(records[0].Data, &item))
	assert.Equal(t, "1abc", item.ItemID)
	assert.Equal(t, "/tmp/out/Budget.xlsx", item.Path)
	assert.Equal(t, int64(2048), item.Bytes)
	assert.Equal(t, "deleted", item.State)
	assert.Empty(t, item.Error)
}

func TestJSONLWriter_RecordTypes(t *testing.T) {
	ctx := context.Background()
	var buf bytes.Buffer
	w := NewJSONLWriter(&buf, "job", "memory")

	require.NoError(t, w.WritePreflight(ctx, &PreflightRecord{Mode: "read-safe"}))
	require.NoError(t, w.WriteProgress(ctx, &ProgressRecord{Phase: PhaseListing, Pages: 1}))
	require.NoError(t, w.WritePlan(ctx, &PlanRecord{ItemID: "1", Action: ActionDownload}))
	require.NoError(t, w.WriteItem(ctx, &ItemRecord{ItemID: "1", State: "transfer_failed", Error: "boom"}))
	require.NoError(t, w.WriteError(ctx, &ErrorRecord{Code: ErrCodeAccessDenied, Message: "denied", Stage: "list"}))
	require.NoError(t, w.WriteSummary(ctx, &SummaryRecord{Seen: 1, Failed: 1}))

	var types []string
	for _, rec := range decodeLines(t, &buf) {
		types = append(types, rec.Type)
	}
	assert.Equal(t, []string{TypePreflight, TypeProgress, TypePlan, TypeItem, TypeError, TypeSummary}, types)
}

func TestJSONLWriter_NewlineTerminated(t *testing.T) {
	var buf bytes.Buffer
	w := NewJSONLWriter(&buf, "job", "gdrive")

	for i := 0; i < 3; i++ {
		require.NoError(t, w.WriteItem(context.Background(), &ItemRecord{ItemID: "x"}))
	}

	out := buf.String()
	assert.True(t, strings.HasSuffix(out, "\n"))
	assert.Equal(t, 3, strings.Count(out, "\n"))
}

func TestJSONLWriter_Close(t *testing.T) {
	var buf bytes.Buffer
	w := NewJSONLWriter(&buf, "job", "gdrive")
	require.NoError(t, w.Close())

	err := w.WriteItem(context.Background(), &ItemRecord{ItemID: "x"})
	assert.ErrorIs(t, err, ErrWriterClosed)
	assert.Zero(t, buf.Len())
}

func TestJSONLWriter_ConcurrentWrites(t *testing.T) {
	var buf bytes.Buffer
	w := NewJSONLWriter(&buf, "job", "gdrive")

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 10; j++ {
				_ = w.WriteItem(context.Background(), &ItemRecord{ItemID: "x", Name: strings.Repeat("n", 64)})
			}
		}()
	}
	wg.Wait()

	assert.Len(t, decodeLines(t, &buf), 200)
}

func TestJSONLWriter_ContextCancellation(t *testing.T) {
	var buf bytes.Buffer
	w := NewJSONLWriter(&buf, "job", "gdrive")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := w.WriteItem(ctx, &ItemRecord{ItemID: "x"})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, buf.Len())

	// Summaries still go out after cancellation.
	require.NoError(t, w.WriteSummary(ctx, &SummaryRecord{Seen: 2, Cancelled: true}))
	records := decodeLines(t, &buf)
	require.Len(t, records, 1)
	assert.Equal(t, TypeSummary, records[0].Type)
}

func TestJSONLWriter_WriteFailure(t *testing.T) {
	w := NewJSONLWriter(failingWriter{}, "job", "gdrive")

	err := w.WriteItem(context.Background(), &ItemRecord{ItemID: "x"})
	require.Error(t, err)

	var werr *WriteError
	require.ErrorAs(t, err, &werr)
	assert.Equal(t, "write", werr.Op)
}

func TestJSONLWriter_ShortWrite(t *testing.T) {
	sw := &shortWriteWriter{bytesPerWrite: 7}
	w := NewJSONLWriter(sw, "job", "gdrive")

	require.NoError(t, w.WriteItem(context.Background(), &ItemRecord{ItemID: "1abc", Name: "report.pdf"}))

	lines := strings.Split(strings.TrimSpace(sw.buf.String()), "\n")
	require.Len(t, lines, 1)
	var rec Record
	assert.NoError(t, json.Unmarshal([]byte(lines[0]), &rec))
	assert.Equal(t, TypeItem, rec.Type)
}

func TestJSONLWriter_ZeroWrite(t *testing.T) {
	w := NewJSONLWriter(zeroWriteWriter{}, "job", "gdrive")

	err := w.WriteItem(context.Background(), &ItemRecord{ItemID: "x"})
	require.Error(t, err)
	assert.ErrorIs(t, err, io.ErrShortWrite)
}

func TestWriteError(t *testing.T) {
	underlying := errors.New("underlying error")
	err := &WriteError{Op: "marshal_data", Err: underlying}

	assert.Equal(t, "output: marshal_data: underlying error", err.Error())
	assert.ErrorIs(t, err, underlying)
}

func TestItemRecord_OmitEmpty(t *testing.T) {
	data, err := json.Marshal(ItemRecord{ItemID: "1", Name: "a.pdf", MimeType: "application/pdf", State: "deleted"})
	require.NoError(t, err)

	s := string(data)
	assert.NotContains(t, s, "export_mime_type")
	assert.NotContains(t, s, "error_code")
	assert.NotContains(t, s, `"error"`)
	assert.Contains(t, s, `"bytes":0`)
}

func TestDiscard(t *testing.T) {
	ctx := context.Background()
	assert.NoError(t, Discard.WriteItem(ctx, &ItemRecord{}))
	assert.NoError(t, Discard.WriteSummary(ctx, &SummaryRecord{}))
	assert.NoError(t, Discard.Close())
}

type failingWriter struct{}

func (failingWriter) Write([]byte) (int, error) { return 0, errors.New("disk full") }

type shortWriteWriter struct {
	buf           bytes.Buffer
	bytesPerWrite int
}

func (sw *shortWriteWriter) Write(p []byte) (int, error) {
	if len(p) > sw.bytesPerWrite {
		p = p[:sw.bytesPerWrite]
	}
	return sw.buf.Write(p)
}

type zeroWriteWriter struct{}

func (zeroWriteWriter) Write([]byte) (int, error) { return 0, nil }

func BenchmarkJSONLWriter_WriteItem(b *testing.B) {
	w := NewJSONLWriter(io.Discard, "job", "gdrive")
	item := &ItemRecord{
		ItemID:   "1abcdefghijklmnop",
		Name:     "Quarterly report.pdf",
		MimeType: "application/pdf",
		Path:     "/var/backup/Quarterly report.pdf",
		Bytes:    1 << 20,
		State:    "deleted",
	}
	ctx := context.Background()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = w.WriteItem(ctx, item)
	}
}
