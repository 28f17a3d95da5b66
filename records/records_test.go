package records

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"discord-archive/models"
)

func writeLog(t *testing.T, lines ...string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.records")
	var data []byte
	for _, l := range lines {
		data = append(data, l...)
		data = append(data, '\n')
	}
	require.NoError(t, os.WriteFile(path, data, 0o644))
	return path
}

func collect(t *testing.T, path string) []Record {
	t.Helper()
	var out []Record
	require.NoError(t, Scan(path, func(rec Record) error {
		out = append(out, rec)
		return nil
	}))
	return out
}

func TestLogFileName(t *testing.T) {
	at := time.Date(2024, 6, 1, 9, 30, 0, 0, time.UTC)
	assert.Equal(t, "123.2024-06-01T09-30.general.records", LogFileName("123", "general", at))
	// Everything outside the safe set collapses to underscores.
	assert.Equal(t, "9.2024-06-01T09-30.caf___rules_.records", LogFileName("9", "café #rules!", at))
}

func TestWriterScannerRoundtrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.records")
	w, err := NewWriter(path)
	require.NoError(t, err)
	require.NoError(t, w.Write(models.TypeRunInfo, models.RunInfo{FormatVersion: 1, Version: "2.0.0"}))
	require.NoError(t, w.Write(models.TypeMessage, models.Message{ID: 42, Channel: 7, Content: "hi,\nthere"}))
	require.NoError(t, w.Close())

	recs := collect(t, path)
	require.Len(t, recs, 2)
	assert.Equal(t, models.TypeRunInfo, recs[0].Type)

	var m models.Message
	require.NoError(t, Unmarshal(recs[1], &m))
	assert.Equal(t, int64(42), m.ID)
	assert.Equal(t, "hi,\nthere", m.Content, "content newlines survive json framing")
}

func TestWriterAppendsToExistingLog(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.records")
	for i := 0; i < 2; i++ {
		w, err := NewWriter(path)
		require.NoError(t, err)
		require.NoError(t, w.Write(models.TypeRunInfo, models.RunInfo{FormatVersion: 1}))
		require.NoError(t, w.Close())
	}
	assert.Len(t, collect(t, path), 2)
}

func TestScanSkipsTornFinalLine(t *testing.T) {
	path := writeLog(t,
		`run_info,{"format_version":1}`,
		`message,{"id":10,"channel":1}`,
		`message,{"id":11,"chan`, // crash tail
	)
	recs := collect(t, path)
	require.Len(t, recs, 2)
	assert.Equal(t, models.TypeMessage, recs[1].Type)
}

func TestScanRejectsMalformedMiddleLine(t *testing.T) {
	path := writeLog(t,
		`run_info,{"format_version":1}`,
		`message,{"id":10,"chan`,
		`message,{"id":11,"channel":1}`,
	)
	err := Scan(path, func(Record) error { return nil })
	assert.ErrorIs(t, err, ErrCorruptLog)
}

func TestScanRejectsLineWithoutType(t *testing.T) {
	path := writeLog(t,
		`run_info,{"format_version":1}`,
		`,{"id":10}`,
		`message,{"id":11,"channel":1}`,
	)
	err := Scan(path, func(Record) error { return nil })
	assert.ErrorIs(t, err, ErrCorruptLog)
}

func TestScanSkipsBlankLines(t *testing.T) {
	path := writeLog(t,
		`run_info,{"format_version":1}`,
		``,
		`message,{"id":10,"channel":1}`,
	)
	assert.Len(t, collect(t, path), 2)
}

func TestReadPlanWatermarksAreMaxima(t *testing.T) {
	path := writeLog(t,
		`run_info,{"format_version":1,"conf":{"mode":"server","id":5},"channels":[1,2]}`,
		`message,{"id":30,"channel":1}`,
		`message,{"id":10,"channel":2}`,
		`message,{"id":20,"channel":1}`,
		`run_finished,{"time":1}`,
	)
	plan, err := ReadPlan(path)
	require.NoError(t, err)
	assert.Equal(t, map[int64]int64{1: 30, 2: 10}, plan.Watermarks)
	assert.Equal(t, []int64{1, 2}, plan.Channels)
	assert.Equal(t, "server", plan.Conf.Mode)
	assert.True(t, plan.Finished)
	assert.Equal(t, 1, plan.Runs)
}

func TestReadPlanFirstRunInfoWins(t *testing.T) {
	path := writeLog(t,
		`run_info,{"format_version":1,"conf":{"mode":"server","id":5}}`,
		`message,{"id":10,"channel":1}`,
		`run_finished,{"time":1}`,
		`run_info,{"format_version":1,"conf":{"mode":"channels","ids":[1]}}`,
		`message,{"id":20,"channel":1}`,
	)
	plan, err := ReadPlan(path)
	require.NoError(t, err)
	assert.Equal(t, "server", plan.Conf.Mode, "continuation runs keep the original scope")
	assert.Equal(t, 2, plan.Runs)
	assert.Equal(t, int64(20), plan.Watermarks[1])
	assert.False(t, plan.Finished, "second run never wrote run_finished")
}

func TestReadPlanRejectsMissingHeader(t *testing.T) {
	path := writeLog(t, `message,{"id":10,"channel":1}`)
	_, err := ReadPlan(path)
	assert.ErrorIs(t, err, ErrCorruptLog)
}

func TestReadPlanRejectsEmptyFile(t *testing.T) {
	path := writeLog(t)
	_, err := ReadPlan(path)
	assert.ErrorIs(t, err, ErrCorruptLog)
}

func TestReadPlanRejectsOldFormat(t *testing.T) {
	path := writeLog(t, `run_info,{"format_version":0}`)
	_, err := ReadPlan(path)
	assert.ErrorIs(t, err, ErrIncompatibleFormat)
}
