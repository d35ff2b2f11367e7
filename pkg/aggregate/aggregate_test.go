package aggregate

import (
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/mesflow/mesflow/internal/model"
)

// 2024-03-04 is a Monday.
var monday = time.Date(2024, 3, 4, 9, 0, 0, 0, time.UTC)

func ev(project, element, unit string, lengthMm, rate model.Measure, start model.Instant) model.ProductionEvent {
	return model.ProductionEvent{
		ProjectID: project, ElementID: element, Unit: unit, TypeTag: "WELD",
		LengthMm: lengthMm, RateMetersPerHour: rate, Start: start,
	}
}

func day(n int) model.Instant {
	return model.At(monday.AddDate(0, 0, n))
}

func TestByProject_ExcludesNullRates(t *testing.T) {
	events := []model.ProductionEvent{
		ev("P1", "E1", "Weld", model.Some(1000), model.Invalid, day(0)),
		ev("P1", "E2", "Weld", model.Some(3000), model.Some(60), day(0)),
	}

	groups := ByProject(events)
	if len(groups) != 1 {
		t.Fatalf("groups = %d", len(groups))
	}
	g := groups[0]
	if g.MeanRate != model.Some(60) {
		t.Errorf("MeanRate = %+v, want 60", g.MeanRate)
	}
	if g.Meters != model.Some(4) {
		t.Errorf("Meters = %+v, want 4", g.Meters)
	}
	if g.Count != 2 || g.Elements != 2 || g.Rated != 1 {
		t.Errorf("counts = %+v", g)
	}
}

func TestGroup_AllNullIsInvalid(t *testing.T) {
	g := ByUnit([]model.ProductionEvent{ev("P", "E", "Saw", model.Invalid, model.Invalid, day(0))})[0]
	if g.MeanRate.Valid || g.Meters.Valid {
		t.Errorf("group without measures should be invalid, got %+v", g)
	}
}

func TestCalendarGroupings(t *testing.T) {
	events := []model.ProductionEvent{
		ev("P", "E1", "A", model.Some(1000), model.Some(10), day(6)),
		ev("P", "E2", "A", model.Some(1000), model.Some(20), day(0)),
		ev("P", "E3", "A", model.Some(1000), model.Some(30), day(1)),
		ev("P", "E4", "A", model.Some(1000), model.Some(40), model.Instant{}),
		ev("P", "E5", "A", model.Some(1000), model.Some(50), model.At(monday.AddDate(0, 1, 0))),
	}

	keys := func(gs []Group) []string {
		out := make([]string, len(gs))
		for i, g := range gs {
			out[i] = g.Key
		}
		return out
	}

	if diff := cmp.Diff([]string{"Monday", "Tuesday", "Thursday", "Sunday"}, keys(ByWeekday(events))); diff != "" {
		t.Errorf("ByWeekday mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"2024-03-04", "2024-03-05", "2024-03-10", "2024-04-04"}, keys(ByDay(events))); diff != "" {
		t.Errorf("ByDay mismatch (-want +got):\n%s", diff)
	}
	months := ByMonth(events)
	if diff := cmp.Diff([]string{"2024-03", "2024-04"}, keys(months)); diff != "" {
		t.Errorf("ByMonth mismatch (-want +got):\n%s", diff)
	}
	if months[0].Count != 3 || months[0].MeanRate != model.Some(20) {
		t.Errorf("March = %+v", months[0])
	}
}

func TestBy(t *testing.T) {
	events := []model.ProductionEvent{ev("P", "E", "U", model.Some(1), model.Invalid, day(0))}
	for _, d := range Dimensions {
		if len(By(d, events)) != 1 {
			t.Errorf("By(%s) returned no group", d)
		}
	}
	if By("color", events) != nil {
		t.Error("unknown dimension should return nil")
	}
}

func TestSummarize(t *testing.T) {
	events := []model.ProductionEvent{
		ev("P1", "E1", "Weld", model.Some(1500000), model.Some(60), day(2)),
		ev("P1", "E1", "Paint", model.Some(500000), model.Invalid, day(1)),
		ev("P2", "E2", "Paint", model.Invalid, model.Some(90), model.Instant{}),
		ev("P2", "E3", "Weld", model.Some(1000), model.Some(30), day(3)),
	}

	s := Summarize(events)
	if s.Events != 4 || s.Projects != 2 || s.Elements != 3 || s.Units != 2 {
		t.Errorf("counts = %+v", s)
	}
	if s.TotalMeters != model.Some(2001) {
		t.Errorf("TotalMeters = %+v", s.TotalMeters)
	}
	if km := s.TotalKm(); !km.Valid || km.Float64 != 2.001 {
		t.Errorf("TotalKm = %+v", km)
	}
	if s.MeanRate != model.Some(60) {
		t.Errorf("MeanRate = %+v", s.MeanRate)
	}
	if s.BusiestUnit != "Paint" {
		t.Errorf("BusiestUnit = %q, want tie broken to Paint", s.BusiestUnit)
	}
	if s.First != day(1) || s.Last != day(3) {
		t.Errorf("span = %v .. %v", s.First, s.Last)
	}
}

func TestSummarize_Empty(t *testing.T) {
	s := Summarize(nil)
	if s.TotalMeters.Valid || s.MeanRate.Valid || s.BusiestUnit != "" || s.First.Valid {
		t.Errorf("empty summary = %+v", s)
	}
}

func TestRankProjects(t *testing.T) {
	events := []model.ProductionEvent{
		ev("slow", "E1", "U", model.Some(1000), model.Some(20), day(0)),
		ev("fast", "E2", "U", model.Some(1000), model.Some(100), day(0)),
		ev("fast", "E3", "U", model.Some(1000), model.Invalid, day(0)),
		ev("mid", "E4", "U", model.Some(1000), model.Some(50), day(0)),
		ev("none", "E5", "U", model.Some(1000), model.Invalid, day(0)),
	}

	r := RankProjects(events)
	if r.Average != model.Some(170.0/3) {
		t.Errorf("Average = %+v", r.Average)
	}

	type row struct {
		Rank    int
		Project string
		Status  Status
	}
	var got []row
	for _, p := range r.Projects {
		got = append(got, row{p.Rank, p.Project, p.Status})
	}
	want := []row{
		{1, "fast", AboveAverage},
		{2, "mid", BelowAverage},
		{3, "slow", BelowAverage},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("ranking mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"none"}, r.Unrated); diff != "" {
		t.Errorf("Unrated mismatch (-want +got):\n%s", diff)
	}
	if len(r.Top(2)) != 2 || len(r.Top(0)) != 3 {
		t.Error("Top bounds")
	}
}
