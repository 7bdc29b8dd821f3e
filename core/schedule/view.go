package schedule

import (
	"fmt"

	"github.com/trezcool/cronograma/core/lane"
	"github.com/trezcool/cronograma/core/week"
)

// grid geometry, in pixels
const (
	LaneHeight    = 30
	BaseRowHeight = 110
	barTopOffset  = 12
	rowPadding    = 28
)

// WeekView is the rendered week grid: one column per day, one row per subject.
type WeekView struct {
	Monday   week.Date `json:"monday"`
	Sunday   week.Date `json:"sunday"`
	Label    string    `json:"label"`
	Today    week.Date `json:"today"`
	PrevWeek week.Date `json:"prev_week"`
	NextWeek week.Date `json:"next_week"`
	Days     []Day     `json:"days"`
	Rows     []Row     `json:"rows"`
}

type Day struct {
	Date      week.Date `json:"date"`
	Label     string    `json:"label"`
	DayNumber int       `json:"day_number"`
	Month     string    `json:"month"`
	IsToday   bool      `json:"is_today"`
}

type Row struct {
	Subject Subject `json:"subject"`
	Lanes   int     `json:"lanes"`
	Height  int     `json:"height"`
	Bars    []Bar   `json:"bars"`
}

// Bar is an event chip placed on the grid.
type Bar struct {
	Event Event `json:"event"`
	lane.Placement
	Top        int    `json:"top"`
	GridColumn string `json:"grid_column"`
	Color      string `json:"color"`
	Caption    string `json:"caption"`
}

// RowHeight returns the pixel height of a row holding lanes lanes.
func RowHeight(lanes int) int {
	if h := lanes*LaneHeight + rowPadding; h > BaseRowHeight {
		return h
	}
	return BaseRowHeight
}

// BuildWeek lays out events over the week holding anchor.
// Events of unknown subjects or outside the week are left out.
func BuildWeek(anchor, today week.Date, subjects []Subject, events []Event) WeekView {
	monday := week.StartOfWeek(anchor)
	view := WeekView{
		Monday:   monday,
		Sunday:   monday.AddDays(week.Days - 1),
		Label:    week.FormatHeaderRange(monday),
		Today:    today,
		PrevWeek: monday.AddDays(-week.Days),
		NextWeek: monday.AddDays(week.Days),
		Days:     make([]Day, 0, week.Days),
		Rows:     make([]Row, 0, len(subjects)),
	}
	for i := 0; i < week.Days; i++ {
		d := monday.AddDays(i)
		view.Days = append(view.Days, Day{
			Date:      d,
			Label:     week.DayLabels[i],
			DayNumber: d.Day(),
			Month:     week.MonthLabel(d),
			IsToday:   d.Equal(today),
		})
	}

	bySubject := make(map[string][]Event, len(subjects))
	for _, ev := range events {
		bySubject[ev.SubjectID] = append(bySubject[ev.SubjectID], ev)
	}
	for _, sbj := range subjects {
		view.Rows = append(view.Rows, buildRow(sbj, monday, bySubject[sbj.ID]))
	}
	return view
}

func buildRow(sbj Subject, monday week.Date, events []Event) Row {
	evByID := make(map[string]Event, len(events))
	intervals := make([]lane.Interval, 0, len(events))
	for _, ev := range events {
		first := week.DayIndex(ev.Date, monday)
		last := week.DayIndex(ev.End(), monday)
		if last < 0 || first > week.Days-1 {
			continue
		}
		intervals = append(intervals, lane.Span(ev.ID, lane.Clamp(first, 0, week.Days-1), lane.Clamp(last, 0, week.Days-1)))
		evByID[ev.ID] = ev
	}

	placements := lane.Assign(intervals)
	lanes := lane.Count(placements)
	row := Row{
		Subject: sbj,
		Lanes:   lanes,
		Height:  RowHeight(lanes),
		Bars:    make([]Bar, 0, len(placements)),
	}
	for _, p := range placements {
		ev := evByID[p.ID]
		row.Bars = append(row.Bars, Bar{
			Event:      ev,
			Placement:  p,
			Top:        barTopOffset + p.Lane*LaneHeight,
			GridColumn: fmt.Sprintf("%d / %d", p.Start+1, p.End+2),
			Color:      ev.Type.Color(),
			Caption:    ev.Caption(),
		})
	}
	return row
}
