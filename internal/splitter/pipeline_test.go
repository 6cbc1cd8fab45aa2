package splitter

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"
)

func xlsxPayload(t *testing.T, rows [][]any) string {
	t.Helper()
	return EncodePayload(MIMETypeXLSX, buildWorkbook(t, rows))
}

type recorder struct {
	mu     sync.Mutex
	events []Event
}

func (r *recorder) observe(_ context.Context, ev Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
}

func (r *recorder) stages() []Stage {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Stage, len(r.events))
	for i, ev := range r.events {
		out[i] = ev.Stage
	}
	return out
}

func TestSplit_ThreeRowScenario(t *testing.T) {
	payload := xlsxPayload(t, [][]any{
		{"sku", "dateColumn"},
		{"A", day(2024, time.January, 15)},
		{"B", day(2024, time.January, 20)},
		{"C", day(2024, time.February, 1)},
	})

	res, err := New().Split(context.Background(), Request{FilePayload: payload, DateColumn: "dateColumn"})
	require.NoError(t, err)

	assert.Equal(t, 2, res.FileCount)
	assert.Equal(t, []string{
		"correciones_SKU_2024-01-01.xlsx",
		"correciones_SKU_2024-02-01.xlsx",
	}, res.Entries)

	archive, err := Decode(res.ArchivePayload)
	require.NoError(t, err)
	assert.Equal(t, MIMETypeZip, archive.MIMEType)

	files := readZip(t, archive.Data)
	require.Len(t, files, 2)

	jan, err := Parse(files[0].Data)
	require.NoError(t, err)
	require.Len(t, jan.Rows, 2)
	assert.Equal(t, map[string]any{"sku": "A", "dateColumn": day(2024, time.January, 15)}, rowMap(jan.Rows[0]))
	assert.Equal(t, map[string]any{"sku": "B", "dateColumn": day(2024, time.January, 20)}, rowMap(jan.Rows[1]))

	feb, err := Parse(files[1].Data)
	require.NoError(t, err)
	require.Len(t, feb.Rows, 1)
	assert.Equal(t, map[string]any{"sku": "C", "dateColumn": day(2024, time.February, 1)}, rowMap(feb.Rows[0]))

	input, err := Decode(payload)
	require.NoError(t, err)

	assert.Equal(t, Stats{
		Sheet:        "Sheet1",
		InputBytes:   len(input.Data),
		RowsRead:     3,
		RowsGrouped:  3,
		RowsSkipped:  0,
		Files:        2,
		ArchiveBytes: len(archive.Data),
	}, res.Stats)
}

func TestSplit_EmptyDateOnlyRow(t *testing.T) {
	payload := xlsxPayload(t, [][]any{
		{"sku", "dateColumn"},
		{"A", ""},
	})

	res, err := New().Split(context.Background(), Request{FilePayload: payload, DateColumn: "dateColumn"})
	require.NoError(t, err)

	assert.Equal(t, 0, res.FileCount)
	assert.Empty(t, res.Entries)

	archive, err := Decode(res.ArchivePayload)
	require.NoError(t, err)
	assert.Empty(t, readZip(t, archive.Data))
	assert.Equal(t, 1, res.Stats.RowsSkipped)
}

func TestSplit_CountsMatchDatedRows(t *testing.T) {
	rows := [][]any{{"id", "Date", "note"}}
	withDate, months := 0, map[GroupKey]bool{}
	for i := 0; i < 60; i++ {
		if i%5 == 0 {
			rows = append(rows, []any{i, "not a date", "x"})
			continue
		}
		d := day(2023+i%2, time.Month(1+i%6), 1+i%27)
		rows = append(rows, []any{i, d, "y"})
		withDate++
		months[KeyOf(d)] = true
	}

	archive, err := New().SplitBytes(context.Background(), buildWorkbook(t, rows), "Date")
	require.NoError(t, err)

	assert.Equal(t, len(months), archive.FileCount())
	assert.Equal(t, 12, archive.Stats.RowsSkipped)

	total := 0
	names := map[string]bool{}
	for _, f := range readZip(t, archive.Data) {
		assert.Regexp(t, entryNamePattern, f.Name)
		assert.False(t, names[f.Name], "duplicate entry %s", f.Name)
		names[f.Name] = true

		table, err := Parse(f.Data)
		require.NoError(t, err)
		total += len(table.Rows)
	}
	assert.Equal(t, withDate, total)
}

func TestSplit_Errors(t *testing.T) {
	tests := []struct {
		name    string
		payload string
		kind    ErrorKind
		target  error
	}{
		{
			name:    "missing base64 marker",
			payload: "data:" + MIMETypeXLSX + ",UEsDBA==",
			kind:    KindDecode,
			target:  ErrDecode,
		},
		{
			name:    "not a spreadsheet",
			payload: EncodePayload(MIMETypeXLSX, []byte("just some text")),
			kind:    KindParse,
			target:  ErrParse,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := &recorder{}
			res, err := New().Split(context.Background(), Request{FilePayload: tt.payload, DateColumn: "date"}, rec.observe)
			require.Error(t, err)
			assert.Nil(t, res)
			assert.ErrorIs(t, err, tt.target)
			assert.Equal(t, tt.kind, KindOf(err))

			stages := rec.stages()
			require.NotEmpty(t, stages)
			assert.Equal(t, StageFailed, stages[len(stages)-1])
			assert.Equal(t, tt.kind, rec.events[len(rec.events)-1].Kind)
		})
	}
}

func TestSplit_ObserverSequence(t *testing.T) {
	payload := xlsxPayload(t, [][]any{
		{"d"},
		{day(2024, time.May, 1)},
		{day(2024, time.June, 1)},
	})

	rec := &recorder{}
	_, err := New(WithPrefix("p")).Split(context.Background(), Request{FilePayload: payload, DateColumn: "d"}, rec.observe)
	require.NoError(t, err)

	assert.Equal(t, []Stage{
		StageDecoding,
		StageParsing,
		StageGrouping,
		StageEncoding,
		StageEncoding,
		StageArchiving,
		StageDone,
	}, rec.stages())

	assert.Equal(t, GroupKey("2024-05"), rec.events[3].Key)
	assert.Equal(t, 1, rec.events[3].Index)
	assert.Equal(t, 2, rec.events[4].Total)
	assert.True(t, rec.events[len(rec.events)-1].Stage.IsTerminal())
}

func TestSplit_Prefix(t *testing.T) {
	payload := xlsxPayload(t, [][]any{{"d"}, {day(2024, time.May, 1)}})

	res, err := New(WithPrefix("orders")).Split(context.Background(), Request{FilePayload: payload, DateColumn: "d"})
	require.NoError(t, err)
	assert.Equal(t, []string{"orders_2024-05-01.xlsx"}, res.Entries)

	assert.Equal(t, DefaultPrefix, New(WithPrefix("")).Prefix())
}

func TestSplit_Concurrent(t *testing.T) {
	p := New()

	payloads := make([]string, 8)
	for i := range payloads {
		month := time.Month(1 + i%12)
		payloads[i] = xlsxPayload(t, [][]any{
			{"k", "when"},
			{"a", day(2024, month, 3)},
			{"b", day(2024, month, 9)},
		})
	}

	g, ctx := errgroup.WithContext(context.Background())
	for i, payload := range payloads {
		month := time.Month(1 + i%12)
		g.Go(func() error {
			res, err := p.Split(ctx, Request{FilePayload: payload, DateColumn: "when"})
			if err != nil {
				return err
			}
			want := EntryName(DefaultPrefix, KeyOf(day(2024, month, 1)))
			if res.FileCount != 1 || res.Entries[0] != want {
				return fmt.Errorf("got %v, want [%s]", res.Entries, want)
			}
			return nil
		})
	}
	require.NoError(t, g.Wait())
}
