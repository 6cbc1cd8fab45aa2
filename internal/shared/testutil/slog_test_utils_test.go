package testutil

import (
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBufferedSlogHandler(t *testing.T) {
	t.Run("captures log records", func(t *testing.T) {
		logger, handler := NewTestLogger(t)

		logger.Info("test message", slog.String("key", "value"))
		logger.Error("error message", slog.Int("code", 500))

		records := handler.GetRecords()
		if len(records) != 2 {
			t.Errorf("Expected 2 records, got %d", len(records))
		}
		if !handler.ContainsMessage("test message") {
			t.Error("Expected to find 'test message'")
		}
		if !handler.ContainsAttr("key", "value") {
			t.Error("Expected to find attribute key=value")
		}
	})

	t.Run("filters by level", func(t *testing.T) {
		logger, handler := NewTestLogger(t)

		logger.Debug("debug msg")
		logger.Info("info msg")
		logger.Warn("warn msg")
		logger.Error("error msg")

		assert.Len(t, handler.GetRecordsByLevel(slog.LevelInfo), 1)
		assert.Len(t, handler.GetRecordsByLevel(slog.LevelError), 1)
		assert.Len(t, handler.GetRecordsByLevel(slog.LevelDebug), 1)
	})

	t.Run("derived loggers keep attributes and share records", func(t *testing.T) {
		logger, handler := NewTestLogger(t)

		logger.With(slog.String("component", "split_service")).Info("child")
		logger.Info("parent")

		records := handler.GetRecords()
		require.Len(t, records, 2)
		assert.Equal(t, "split_service", records[0].Attrs["component"])
		_, ok := records[1].Attrs["component"]
		assert.False(t, ok)
		assert.True(t, handler.ContainsAttr("component", "split_service"))
	})

	t.Run("clear functionality", func(t *testing.T) {
		logger, handler := NewTestLogger(t)

		logger.Info("message 1")
		logger.Info("message 2")
		assert.Equal(t, 2, handler.Count())

		handler.Clear()
		assert.Equal(t, 0, handler.Count())
	})
}

func TestWorkbookFixtures(t *testing.T) {
	data := Workbook(t, SampleRows())
	assert.Equal(t, 3, SheetRowCount(t, data))

	payload := WorkbookPayload(t, SampleRows())
	assert.Contains(t, payload, ";base64,")
	assert.Equal(t, Date(2024, time.March, 1), time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC))
}
