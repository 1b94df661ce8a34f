package validator

import "testing"

type sample struct {
	SessionID string `validate:"required,max=128"`
	Page      int    `validate:"min=1"`
}

func TestFieldsFlattensErrors(t *testing.T) {
	v := New()

	err := v.Struct(sample{Page: 0})
	if err == nil {
		t.Fatal("expected validation error")
	}

	fields := Fields(err)
	if len(fields) != 2 {
		t.Fatalf("expected 2 field errors, got %d: %+v", len(fields), fields)
	}
	if fields[0].Field != "sessionID" || fields[0].Message != "failed on required" {
		t.Fatalf("unexpected first field error: %+v", fields[0])
	}
	if fields[1].Field != "page" || fields[1].Message != "failed on min=1" {
		t.Fatalf("unexpected second field error: %+v", fields[1])
	}
}

func TestFieldsIgnoresOtherErrors(t *testing.T) {
	if got := Fields(nil); got != nil {
		t.Fatalf("expected nil for nil error, got %+v", got)
	}
}
