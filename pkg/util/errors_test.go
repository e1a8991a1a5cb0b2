package util

import (
	"errors"
	"strings"
	"testing"
)

func TestValidationError_Single(t *testing.T) {
	err := NewValidationError("driver is required")

	if got := err.Error(); got != "validation failed: driver is required" {
		t.Errorf("Error() = %q", got)
	}
	if !errors.Is(err, ErrValidationFailed) {
		t.Error("ValidationError should unwrap to ErrValidationFailed")
	}
}

func TestValidationError_Multiple(t *testing.T) {
	err := NewValidationError("no management address", "no driver configured")

	msg := err.Error()
	if !strings.Contains(msg, "no management address") || !strings.Contains(msg, "no driver configured") {
		t.Errorf("Error() missing messages: %q", msg)
	}
}

func TestValidationBuilder(t *testing.T) {
	var v ValidationBuilder

	v.Add(true, "should not appear")
	v.Add(false, "address missing")
	v.AddErrorf("driver %q not registered", "ios")

	if !v.HasErrors() {
		t.Fatal("expected errors")
	}

	err := v.Build()
	if err == nil {
		t.Fatal("Build() returned nil")
	}
	msg := err.Error()
	if strings.Contains(msg, "should not appear") {
		t.Error("passing condition was recorded as error")
	}
	if !strings.Contains(msg, "address missing") || !strings.Contains(msg, `driver "ios" not registered`) {
		t.Errorf("Build() = %q", msg)
	}
}

func TestValidationBuilder_Empty(t *testing.T) {
	var v ValidationBuilder
	if v.HasErrors() {
		t.Error("empty builder should have no errors")
	}
	if err := v.Build(); err != nil {
		t.Errorf("Build() on empty builder = %v, want nil", err)
	}
}
