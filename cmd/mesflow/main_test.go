package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/mesflow/mesflow/internal/model"
	"github.com/mesflow/mesflow/pkg/aggregate"
	mferrors "github.com/mesflow/mesflow/pkg/errors"
)

const export = "Job;Length;Rate (Server);Unit;Start (Server);Finish (Server)\n" +
	"WELD_P100_X_E1;1500;80;Weld;01-03-2024 09:00;01-03-2024 10:00\n" +
	"CUT_P100_X_E1;1500;60;Cut;01-03-2024 08:00;01-03-2024 08:30\n" +
	"PAINT_P100_X_E1;1500;200;Paint;01-03-2024 11:00;01-03-2024 12:00\n" +
	"CUT_P200_E2;2000;;Cut;02-03-2024 08:00;\n" +
	"CUT_P200_E3;0;50;Cut;02-03-2024 09:00;\n" +
	"short;row\n"

func writeExport(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "export.csv")
	if err := os.WriteFile(path, []byte(export), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

// execute runs the CLI with an empty environment and returns stdout.
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out, errOut bytes.Buffer
	a := newApp(&out, &errOut)
	a.lookupEnv = func(string) (string, bool) { return "", false }

	cmd := newRootCmd(a)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestAnalyze_JSON(t *testing.T) {
	out, err := execute(t, "analyze", "-i", writeExport(t), "--json")
	if err != nil {
		t.Fatalf("analyze: %v", err)
	}

	var got analysis
	if err := json.Unmarshal([]byte(out), &got); err != nil {
		t.Fatalf("decode: %v\n%s", err, out)
	}
	if got.Run.Stats.RowsRead != 6 || got.Run.Stats.Rejected != 1 || got.Run.Stats.RatesNulled != 1 {
		t.Errorf("stats = %+v", got.Run.Stats)
	}
	if got.Summary.Events != 4 || got.Summary.Projects != 2 {
		t.Errorf("summary = %+v", got.Summary)
	}
	if got.Summary.MeanRate != model.Some(70) {
		t.Errorf("MeanRate = %+v", got.Summary.MeanRate)
	}
}

func TestAnalyze_Text(t *testing.T) {
	out, err := execute(t, "analyze", "-i", writeExport(t))
	if err != nil {
		t.Fatalf("analyze: %v", err)
	}
	for _, want := range []string{"RUN", "RECORDS", "SUMMARY", "';'", "Rates nulled", "analysis complete"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestAggregate(t *testing.T) {
	path := writeExport(t)

	out, err := execute(t, "aggregate", "-i", path, "--by", "unit", "--json")
	if err != nil {
		t.Fatalf("aggregate: %v", err)
	}
	var groups []aggregate.Group
	if err := json.Unmarshal([]byte(out), &groups); err != nil {
		t.Fatalf("decode: %v", err)
	}
	keys := make([]string, len(groups))
	for i, g := range groups {
		keys[i] = g.Key
	}
	if diff := cmp.Diff([]string{"Cut", "Paint", "Weld"}, keys); diff != "" {
		t.Errorf("units mismatch (-want +got):\n%s", diff)
	}

	if _, err := execute(t, "aggregate", "-i", path, "--by", "shift"); err == nil {
		t.Error("expected error for unknown dimension")
	}
}

func TestRank_Top(t *testing.T) {
	out, err := execute(t, "rank", "-i", writeExport(t), "--top", "1", "--json")
	if err != nil {
		t.Fatalf("rank: %v", err)
	}
	var got aggregate.Ranking
	if err := json.Unmarshal([]byte(out), &got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(got.Projects) != 1 || got.Projects[0].Project != "P100" {
		t.Errorf("projects = %+v", got.Projects)
	}
	if diff := cmp.Diff([]string{"P200"}, got.Unrated); diff != "" {
		t.Errorf("unrated mismatch (-want +got):\n%s", diff)
	}
}

func TestRoute(t *testing.T) {
	path := writeExport(t)

	tests := []struct {
		name    string
		args    []string
		gap     bool
		skipped []string
	}{
		{"in order", []string{"--expect", "Cut,Weld,Paint"}, false, nil},
		{"skipped step", []string{"--expect", "Cut,Drill,Weld,Paint"}, false, []string{"Drill"}},
		{"out of order", []string{"--expect", "Weld,Cut,Paint"}, true, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			args := append([]string{"route", "-i", path, "--element", "E1", "--json"}, tt.args...)
			out, err := execute(t, args...)
			if err != nil {
				t.Fatalf("route: %v", err)
			}
			var got []routeReport
			if err := json.Unmarshal([]byte(out), &got); err != nil {
				t.Fatalf("decode: %v", err)
			}
			if len(got) != 1 {
				t.Fatalf("reports = %+v", got)
			}
			r := got[0]
			if r.Project != "P100" || r.LeadTime != "4h0m0s" {
				t.Errorf("report = %+v", r)
			}
			if diff := cmp.Diff([]string{"Cut", "Weld", "Paint"}, r.Units); diff != "" {
				t.Errorf("units mismatch (-want +got):\n%s", diff)
			}
			if r.Gap != tt.gap {
				t.Errorf("Gap = %v, want %v", r.Gap, tt.gap)
			}
			if diff := cmp.Diff(tt.skipped, r.Skipped); diff != "" {
				t.Errorf("skipped mismatch (-want +got):\n%s", diff)
			}
		})
	}

	if _, err := execute(t, "route", "-i", path, "--element", "nope"); err == nil {
		t.Error("expected error for unknown element")
	}
	if _, err := execute(t, "route", "-i", path); err == nil {
		t.Error("expected error without --element or --project")
	}
}

func TestInspect(t *testing.T) {
	out, err := execute(t, "inspect", "-i", writeExport(t), "--json")
	if err != nil {
		t.Fatalf("inspect: %v", err)
	}
	var got inspection
	if err := json.Unmarshal([]byte(out), &got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.Format != "csv" || got.Delimiter != ";" || got.Malformed != 1 || len(got.Missing) != 0 {
		t.Errorf("inspection = %+v", got)
	}
}

func TestFlow(t *testing.T) {
	out, err := execute(t, "flow", "-i", writeExport(t))
	if err != nil {
		t.Fatalf("flow: %v", err)
	}
	for _, want := range []string{"TRANSITIONS", "VARIANTS", "Cut → Weld → Paint"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestQuery_Text(t *testing.T) {
	out, err := execute(t, "query", "-i", writeExport(t),
		"SELECT unit, count(*) AS n, sum(rate_m_per_h) AS rate FROM events GROUP BY unit ORDER BY unit")
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	for _, want := range []string{"unit", "Cut", "Paint", "Weld", "NULL", "3 rows in"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestConfig_FlagOverrides(t *testing.T) {
	out, err := execute(t, "config", "--numeric-policy", "european", "--timezone", "Europe/Berlin")
	if err != nil {
		t.Fatalf("config: %v", err)
	}
	for _, want := range []string{"policy: european", "timezone: Europe/Berlin"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}

	_, err = execute(t, "config", "--date-order", "ymd")
	if !mferrors.IsCode(err, mferrors.CodeInvalidConfig) {
		t.Errorf("err = %v, want invalid config", err)
	}
}

func TestErrors(t *testing.T) {
	if _, err := execute(t, "analyze"); err == nil {
		t.Error("expected error without --input")
	}

	_, err := execute(t, "analyze", "-i", filepath.Join(t.TempDir(), "missing.csv"))
	if code := exitCode(err); code != 3 {
		t.Errorf("exitCode = %d for %v, want 3", code, err)
	}

	path := filepath.Join(t.TempDir(), "nojob.csv")
	if err := os.WriteFile(path, []byte("Unit;Length\nCut;100\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	_, err = execute(t, "analyze", "-i", path)
	if code := exitCode(err); code != 4 {
		t.Errorf("exitCode = %d for %v, want 4", code, err)
	}
}
