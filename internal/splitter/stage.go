package splitter

import "context"

// Stage is a state of a single split invocation. Before the first event
// an invocation is idle; that state is never reported.
type Stage string

const (
	StageDecoding  Stage = "decoding"
	StageParsing   Stage = "parsing"
	StageGrouping  Stage = "grouping"
	StageEncoding  Stage = "encoding"
	StageArchiving Stage = "archiving"
	StageDone      Stage = "done"
	StageFailed    Stage = "failed"
)

// IsTerminal reports whether no further transition can follow s.
func (s Stage) IsTerminal() bool {
	return s == StageDone || s == StageFailed
}

// Event describes one state transition.
type Event struct {
	Stage Stage `json:"stage"`

	// Set while encoding: the month being written and its position.
	Key   GroupKey `json:"key,omitempty"`
	Index int      `json:"index,omitempty"`
	Total int      `json:"total,omitempty"`

	// Set on StageFailed.
	Kind ErrorKind `json:"kind,omitempty"`
	Err  error     `json:"-"`
}

// Observer receives transitions synchronously, in order.
// Observers must not block for long; the pipeline waits on them.
type Observer func(ctx context.Context, ev Event)

type observers []Observer

func (o observers) emit(ctx context.Context, ev Event) {
	for _, fn := range o {
		if fn != nil {
			fn(ctx, ev)
		}
	}
}

func (o observers) fail(ctx context.Context, err error) error {
	o.emit(ctx, Event{Stage: StageFailed, Kind: KindOf(err), Err: err})
	return err
}
