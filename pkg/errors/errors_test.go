package errors

import (
	stderrors "errors"
	"fmt"
	"testing"
)

func TestNew(t *testing.T) {
	err := New(ErrCodeMalformedClassFile, "bad magic 0x%08X", 0xDEADBEEF)

	if err.Code != ErrCodeMalformedClassFile {
		t.Errorf("Code = %q, want %q", err.Code, ErrCodeMalformedClassFile)
	}
	if err.Message != "bad magic 0xDEADBEEF" {
		t.Errorf("Message = %q", err.Message)
	}
	want := "MALFORMED_CLASS_FILE: bad magic 0xDEADBEEF"
	if err.Error() != want {
		t.Errorf("Error() = %q, want %q", err.Error(), want)
	}
}

func TestWrap(t *testing.T) {
	cause := stderrors.New("unexpected EOF")
	err := Wrap(ErrCodeInvalidArchive, cause, "open %s", "app.jar")

	if !stderrors.Is(err, cause) {
		t.Error("wrapped error should match cause via errors.Is")
	}
	if err.Unwrap() != cause {
		t.Error("Unwrap should return the cause")
	}
	want := "INVALID_ARCHIVE: open app.jar: unexpected EOF"
	if err.Error() != want {
		t.Errorf("Error() = %q, want %q", err.Error(), want)
	}
}

func TestIs(t *testing.T) {
	err := New(ErrCodeTruncatedClassFile, "read past end")

	if !Is(err, ErrCodeTruncatedClassFile) {
		t.Error("Is should match the error's own code")
	}
	if Is(err, ErrCodeInvalidArchive) {
		t.Error("Is should not match a different code")
	}
	if Is(stderrors.New("plain"), ErrCodeTruncatedClassFile) {
		t.Error("Is should not match plain errors")
	}

	// Code should be found through wrapping layers.
	wrapped := fmt.Errorf("archive entry: %w", err)
	if !Is(wrapped, ErrCodeTruncatedClassFile) {
		t.Error("Is should unwrap fmt.Errorf chains")
	}
}

func TestGetCode(t *testing.T) {
	if got := GetCode(New(ErrCodeAnalysisTimeout, "timed out")); got != ErrCodeAnalysisTimeout {
		t.Errorf("GetCode = %q, want %q", got, ErrCodeAnalysisTimeout)
	}
	if got := GetCode(stderrors.New("plain")); got != "" {
		t.Errorf("GetCode on plain error = %q, want empty", got)
	}
}

func TestUserMessage(t *testing.T) {
	err := New(ErrCodeInvalidPath, "no such file: app.jar")
	if got := UserMessage(err); got != "no such file: app.jar" {
		t.Errorf("UserMessage = %q", got)
	}
	plain := stderrors.New("plain message")
	if got := UserMessage(plain); got != "plain message" {
		t.Errorf("UserMessage on plain error = %q", got)
	}
}

func TestRunFatal(t *testing.T) {
	tests := []struct {
		code Code
		want bool
	}{
		{ErrCodeInvalidPath, true},
		{ErrCodeEmptyRootSet, true},
		{ErrCodeNoValidRoots, true},
		{ErrCodeMalformedClassFile, false},
		{ErrCodeInvalidArchive, false},
		{ErrCodeAnalysisTimeout, false},
	}
	for _, tt := range tests {
		if got := RunFatal(New(tt.code, "x")); got != tt.want {
			t.Errorf("RunFatal(%s) = %v, want %v", tt.code, got, tt.want)
		}
	}
	if RunFatal(stderrors.New("plain")) {
		t.Error("RunFatal on plain error should be false")
	}
}
