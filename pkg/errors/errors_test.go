package errors

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
)

func TestMissingColumn(t *testing.T) {
	err := MissingColumn("Job", []string{"Unit", "Length"})

	if !IsCode(err, CodeMissingColumn) {
		t.Fatalf("IsCode(CodeMissingColumn) = false for %v", err)
	}
	col, ok := MissingColumnName(err)
	if !ok || col != "Job" {
		t.Errorf("MissingColumnName = %q, %v; want Job, true", col, ok)
	}
	if !strings.Contains(err.Error(), `"Job"`) {
		t.Errorf("message %q does not name the column", err.Error())
	}
}

func TestWrappedCodeSurvives(t *testing.T) {
	base := MissingColumn("Job", nil)
	wrapped := fmt.Errorf("ingest: %w", base)

	if GetCode(wrapped) != CodeMissingColumn {
		t.Errorf("GetCode = %s, want %s", GetCode(wrapped), CodeMissingColumn)
	}
	if !errors.Is(wrapped, New(CodeMissingColumn, "")) {
		t.Error("errors.Is should match on code")
	}
	if errors.Is(wrapped, New(CodeSource, "")) {
		t.Error("errors.Is matched a different code")
	}
}

func TestWrap(t *testing.T) {
	if Wrap(nil, CodeSource, "x") != nil {
		t.Error("Wrap(nil) should be nil")
	}

	err := Wrap(context.Canceled, CodeContextCanceled, "read canceled")
	if !errors.Is(err, context.Canceled) {
		t.Error("cause not reachable through Unwrap")
	}
}

func TestErrorContextIsOrdered(t *testing.T) {
	err := New(CodeInvalidFormat, "bad").WithContext("b", 2).WithContext("a", 1)
	want := "[E103] bad (a=1, b=2)"
	if err.Error() != want {
		t.Errorf("Error() = %q, want %q", err.Error(), want)
	}
}

func TestGetCodeUnknown(t *testing.T) {
	if GetCode(errors.New("plain")) != CodeUnknown {
		t.Error("plain errors should map to CodeUnknown")
	}
	if _, ok := MissingColumnName(errors.New("plain")); ok {
		t.Error("MissingColumnName matched a plain error")
	}
}
