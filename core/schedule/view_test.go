package schedule

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/cronograma/core/week"
)

func weight(w float64) *float64 { return &w }

func TestRowHeight(t *testing.T) {
	tests := []struct {
		lanes int
		want  int
	}{
		{lanes: 0, want: 110},
		{lanes: 2, want: 110},
		{lanes: 3, want: 118},
		{lanes: 5, want: 178},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, RowHeight(tt.lanes), "lanes=%d", tt.lanes)
	}
}

func TestEvent_Caption(t *testing.T) {
	assert.Equal(t, "Parcial", Event{Title: "Parcial"}.Caption())
	assert.Equal(t, "Parcial (20%)", Event{Title: "Parcial", WeightPercent: weight(20)}.Caption())
	assert.Equal(t, "TP (12.5%)", Event{Title: "TP", WeightPercent: weight(12.5)}.Caption())
}

func TestBuildWeek(t *testing.T) {
	monday := week.MustParse("2024-03-04")
	today := week.MustParse("2024-03-06")
	subjects := []Subject{
		{ID: "s1", Code: "ACE", OrderIndex: 1},
		{ID: "s2", Code: "ACO", OrderIndex: 2},
	}
	events := []Event{
		{ID: "long", SubjectID: "s1", Title: "TP", Type: TypeLecture, Date: monday, EndDate: monday.AddDays(6)},
		{ID: "mid", SubjectID: "s1", Title: "Parcial", Type: TypeGradedDelivery, Date: monday.AddDays(1), EndDate: monday.AddDays(3), WeightPercent: weight(20)},
		{ID: "cross", SubjectID: "s1", Title: "Lab", Type: TypeMeeting, Date: monday.AddDays(2), EndDate: monday.AddDays(5)},
		// started last week, ends on tuesday
		{ID: "prev", SubjectID: "s2", Title: "Informe", Type: TypeMeeting, Date: monday.AddDays(-3), EndDate: monday.AddDays(1)},
		// no end date
		{ID: "single", SubjectID: "s2", Title: "Charla", Type: TypeLecture, Date: monday.AddDays(4)},
		{ID: "orphan", SubjectID: "unknown", Title: "X", Type: TypeLecture, Date: monday},
		{ID: "next", SubjectID: "s2", Title: "Y", Type: TypeLecture, Date: monday.AddDays(7)},
	}

	view := BuildWeek(today, today, subjects, events)

	assert.True(t, view.Monday.Equal(monday))
	assert.True(t, view.Sunday.Equal(week.MustParse("2024-03-10")))
	assert.True(t, view.PrevWeek.Equal(week.MustParse("2024-02-26")))
	assert.True(t, view.NextWeek.Equal(week.MustParse("2024-03-11")))
	assert.Equal(t, week.FormatHeaderRange(monday), view.Label)

	require.Len(t, view.Days, 7)
	for i, day := range view.Days {
		assert.Equal(t, week.DayLabels[i], day.Label)
		assert.Equal(t, 4+i, day.DayNumber)
		assert.Equal(t, i == 2, day.IsToday, "day %d", i)
	}

	require.Len(t, view.Rows, 2)

	row := view.Rows[0]
	assert.Equal(t, "s1", row.Subject.ID)
	assert.Equal(t, 3, row.Lanes)
	assert.Equal(t, 118, row.Height)
	require.Len(t, row.Bars, 3)
	bars := make(map[string]Bar, len(row.Bars))
	for _, b := range row.Bars {
		bars[b.Event.ID] = b
	}
	assert.Equal(t, 0, bars["long"].Lane)
	assert.Equal(t, "1 / 8", bars["long"].GridColumn)
	assert.Equal(t, 12, bars["long"].Top)
	assert.Equal(t, "green", bars["long"].Color)

	assert.Equal(t, 1, bars["mid"].Lane)
	assert.Equal(t, "2 / 5", bars["mid"].GridColumn)
	assert.Equal(t, 42, bars["mid"].Top)
	assert.Equal(t, "red", bars["mid"].Color)
	assert.Equal(t, "Parcial (20%)", bars["mid"].Caption)

	assert.Equal(t, 2, bars["cross"].Lane)
	assert.Equal(t, 72, bars["cross"].Top)
	assert.Equal(t, "yellow", bars["cross"].Color)

	row = view.Rows[1]
	assert.Equal(t, 1, row.Lanes)
	assert.Equal(t, 110, row.Height)
	require.Len(t, row.Bars, 2)
	assert.Equal(t, "prev", row.Bars[0].Event.ID)
	assert.Equal(t, 0, row.Bars[0].Start)
	assert.Equal(t, 1, row.Bars[0].End)
	assert.Equal(t, "single", row.Bars[1].Event.ID)
	assert.Equal(t, "5 / 6", row.Bars[1].GridColumn)
	assert.Equal(t, 0, row.Bars[1].Lane)
}

func TestBuildWeek_noSubjects(t *testing.T) {
	today := week.MustParse("2024-03-10") // sunday
	view := BuildWeek(today, today, nil, nil)
	assert.True(t, view.Monday.Equal(week.MustParse("2024-03-04")))
	assert.True(t, view.Days[6].IsToday)
	assert.NotNil(t, view.Rows)
	assert.Empty(t, view.Rows)
}

func TestEventFilter_Match(t *testing.T) {
	monday := week.MustParse("2024-03-04")
	filter := EventFilter{From: monday, To: monday.AddDays(7)}

	tests := []struct {
		name string
		ev   Event
		want bool
	}{
		{name: "inside", ev: Event{Date: monday.AddDays(2)}, want: true},
		{name: "ends on monday", ev: Event{Date: monday.AddDays(-5), EndDate: monday}, want: true},
		{name: "ends before monday", ev: Event{Date: monday.AddDays(-5), EndDate: monday.AddDays(-1)}},
		{name: "starts next monday", ev: Event{Date: monday.AddDays(7)}},
		{name: "starts on sunday", ev: Event{Date: monday.AddDays(6), EndDate: monday.AddDays(9)}, want: true},
		{name: "spans the week", ev: Event{Date: monday.AddDays(-1), EndDate: monday.AddDays(8)}, want: true},
		{name: "no end before monday", ev: Event{Date: monday.AddDays(-1)}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, filter.Match(tt.ev))
		})
	}

	assert.False(t, EventFilter{SubjectID: "a"}.Match(Event{SubjectID: "b"}))
	assert.True(t, EventFilter{}.Match(Event{Date: monday}))
}
