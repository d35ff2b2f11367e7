package ingest

import (
	"context"
	"testing"

	"github.com/xuri/excelize/v2"

	mferrors "github.com/mesflow/mesflow/pkg/errors"
)

const semicolonExport = "Job;Length;Rate (Server);Unit;Start (Server);Finish (Server)\n" +
	"WELD_P100_X_E42;1.234,5;80,5;Weld-1;2024-03-01 08:00;2024-03-01 09:00\n" +
	"SAW_P100_E43;900;60;Saw-2;2024-03-01 10:00;2024-03-01 10:30\n" +
	"broken;row\n" +
	"PAINT_P200_E1;500;45,25;Paint;2024-03-02 07:00;\n"

func TestDetectDelimiter(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want rune
	}{
		{"comma", "a,b,c\n1,2,3\n4,5,6\n", ','},
		{"semicolon with decimal commas", "a;b;c\n1,5;2,25;3\n4;5,1;6\n", ';'},
		{"tab", "a\tb\n1\t2\n", '\t'},
		{"quoted commas ignored", "a;b\n\"x,y,z\";2\n\"p\";3\n", ';'},
		{"single column", "Job\nA\nB\n", ','},
		{"no trailing newline", "a;b\n1;2", ';'},
	}

	for _, tt := range tests {
		if got := DetectDelimiter([]byte(tt.in)); got != tt.want {
			t.Errorf("%s: DetectDelimiter = %q, want %q", tt.name, got, tt.want)
		}
	}
}

func TestDecode_CSV(t *testing.T) {
	tbl, err := New().Decode(context.Background(), "export.csv", []byte(semicolonExport))
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}

	if tbl.Delimiter != ';' {
		t.Errorf("Delimiter = %q, want ';'", tbl.Delimiter)
	}
	if len(tbl.Records) != 3 {
		t.Fatalf("got %d records, want 3", len(tbl.Records))
	}
	if tbl.Malformed != 1 {
		t.Errorf("Malformed = %d, want 1", tbl.Malformed)
	}
	if len(tbl.Columns.Missing()) != 0 {
		t.Errorf("unexpected missing columns %v", tbl.Columns.Missing())
	}

	rec := tbl.Records[0]
	if v, _ := rec.Field(ColLength); v != "1.234,5" {
		t.Errorf("Length = %q", v)
	}
	if v, _ := rec.Get("Unit"); v != "Weld-1" {
		t.Errorf("Unit = %q", v)
	}
	if rec.Row != 2 {
		t.Errorf("Row = %d, want 2", rec.Row)
	}
	if tbl.Records[2].Row != 5 {
		t.Errorf("last Row = %d, want 5", tbl.Records[2].Row)
	}
	if m := tbl.Records[1].Map(); m["Job"] != "SAW_P100_E43" {
		t.Errorf("Map()[Job] = %q", m["Job"])
	}
}

func TestDecode_MissingJobIsFatal(t *testing.T) {
	_, err := New().Decode(context.Background(), "x.csv", []byte("Unit,Length\nA,1\n"))
	if !mferrors.IsCode(err, mferrors.CodeMissingColumn) {
		t.Fatalf("err = %v, want missing column", err)
	}
	if col, _ := mferrors.MissingColumnName(err); col != "Job" {
		t.Errorf("missing column = %q, want Job", col)
	}
}

func TestDecode_OptionalColumnsDegrade(t *testing.T) {
	tbl, err := New().Decode(context.Background(), "x.csv", []byte("job,unit\nA_P_E,U1\n"))
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if !tbl.Columns.Has(ColJob) || !tbl.Columns.Has(ColUnit) {
		t.Error("case-insensitive header match failed")
	}
	if tbl.Columns.Has(ColLength) || tbl.Columns.Has(ColRate) {
		t.Error("absent columns reported present")
	}
	if _, ok := tbl.Records[0].Field(ColRate); ok {
		t.Error("Field(ColRate) should report absence")
	}
}

func TestDecode_BOMAndForcedDelimiter(t *testing.T) {
	data := append([]byte{0xEF, 0xBB, 0xBF}, []byte("Job|Unit\nA_B_C|U\n")...)
	in := New()
	in.Delimiter = '|'

	tbl, err := in.Decode(context.Background(), "x.txt", data)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if tbl.Header[0] != "Job" {
		t.Errorf("Header[0] = %q, BOM not stripped", tbl.Header[0])
	}
	if len(tbl.Records) != 1 {
		t.Errorf("records = %d", len(tbl.Records))
	}
}

func TestDecode_Empty(t *testing.T) {
	_, err := New().Decode(context.Background(), "x.csv", nil)
	if !mferrors.IsCode(err, mferrors.CodeInvalidFormat) {
		t.Errorf("err = %v, want invalid format", err)
	}
}

func TestDecode_Canceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := New().Decode(ctx, "x.csv", []byte(semicolonExport))
	if !mferrors.IsCode(err, mferrors.CodeContextCanceled) {
		t.Errorf("err = %v, want canceled", err)
	}
}

func TestDecode_XLSX(t *testing.T) {
	f := excelize.NewFile()
	defer f.Close()
	sheet := f.GetSheetName(0)
	rows := [][]any{
		{"Job", "Length", "Rate (Server)", "Unit", "Start (Server)"},
		{"WELD_P1_E1", 1200.5, 75, "Weld-1", 45352.25},
		{"SAW_P1_E2", 800, nil, "Saw-1"},
		{},
		{"CUT_P1_E3", 10, 1, "Cut", 45352, "extra"},
	}
	for i, r := range rows {
		cell, _ := excelize.CoordinatesToCellName(1, i+1)
		if err := f.SetSheetRow(sheet, cell, &r); err != nil {
			t.Fatal(err)
		}
	}
	buf, err := f.WriteToBuffer()
	if err != nil {
		t.Fatal(err)
	}

	tbl, err := New().Decode(context.Background(), "export.xlsx", buf.Bytes())
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if tbl.Format != FormatXLSX {
		t.Errorf("Format = %v", tbl.Format)
	}
	if len(tbl.Records) != 2 {
		t.Fatalf("records = %d, want 2", len(tbl.Records))
	}
	if tbl.Malformed != 1 {
		t.Errorf("Malformed = %d, want 1", tbl.Malformed)
	}
	if v, _ := tbl.Records[0].Field(ColStart); v != "45352.25" {
		t.Errorf("Start = %q, want raw serial", v)
	}
	if v, ok := tbl.Records[1].Field(ColStart); !ok || v != "" {
		t.Errorf("padded Start = %q, %v", v, ok)
	}
}

func TestDetectFormat(t *testing.T) {
	if DetectFormat("-", []byte("PK\x03\x04rest")) != FormatXLSX {
		t.Error("zip magic not detected")
	}
	if DetectFormat("a.CSV", []byte("PK\x03\x04")) != FormatCSV {
		t.Error("extension should win")
	}
	if DetectFormat("-", []byte("Job,Unit")) != FormatCSV {
		t.Error("text should be csv")
	}
}
