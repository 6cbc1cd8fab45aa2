package services

import (
	"context"
	"log/slog"

	"xlsxsplit/internal/infrastructure"
	"xlsxsplit/internal/splitter"
	"xlsxsplit/pkg/contracts/events"
)

// EventSink delivers one stream message to a client
type EventSink interface {
	Send(msg interface{}) error
}

// StageEventAdapter turns pipeline transitions into stream messages.
type StageEventAdapter struct {
	sink   EventSink
	logger *slog.Logger
}

// NewStageEventAdapter creates a new stage event adapter
func NewStageEventAdapter(sink EventSink, logger *slog.Logger) *StageEventAdapter {
	if logger == nil {
		logger = slog.Default()
	}
	return &StageEventAdapter{sink: sink, logger: logger}
}

// Observer returns a splitter.Observer that forwards every transition.
// Send failures are logged; the split itself keeps running.
func (a *StageEventAdapter) Observer() splitter.Observer {
	return func(ctx context.Context, ev splitter.Event) {
		msg := events.StageMessage{
			BaseMessage: events.NewBase(events.MessageTypeStage, infrastructure.GetTraceID(ctx)),
			Data: events.StageData{
				Stage: string(ev.Stage),
				Key:   string(ev.Key),
				Index: ev.Index,
				Total: ev.Total,
				Kind:  string(ev.Kind),
				Final: ev.Stage.IsTerminal(),
			},
		}
		if err := a.sink.Send(msg); err != nil {
			a.logger.WarnContext(ctx, "failed to send stage event",
				slog.String("stage", string(ev.Stage)),
				slog.String("error", err.Error()))
		}
	}
}

// SendResult sends the final message of a successful split.
func (a *StageEventAdapter) SendResult(ctx context.Context, res *splitter.Result) error {
	return a.sink.Send(events.ResultMessage{
		BaseMessage: events.NewBase(events.MessageTypeResult, infrastructure.GetTraceID(ctx)),
		Data: events.ResultData{
			ArchivePayload: res.ArchivePayload,
			FileCount:      res.FileCount,
			Entries:        res.Entries,
			RowsSkipped:    res.Stats.RowsSkipped,
		},
	})
}

// SendError sends the final message of a failed split.
func (a *StageEventAdapter) SendError(ctx context.Context, code string, err error) error {
	return a.sink.Send(events.ErrorMessage{
		BaseMessage: events.NewBase(events.MessageTypeError, infrastructure.GetTraceID(ctx)),
		Data: events.ErrorData{
			Code:    code,
			Kind:    string(splitter.KindOf(err)),
			Message: err.Error(),
		},
	})
}
