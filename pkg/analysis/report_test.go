package analysis

import (
	"testing"

	"github.com/dtg01100/jar2appimage/pkg/archive"
)

func TestReportJavaVersion(t *testing.T) {
	report := &Report{Archives: []*archive.Result{
		{Valid: true, MaxMajorVersion: 52},
		{Valid: true, MaxMajorVersion: 61},
		{MaxMajorVersion: 65}, // invalid archives don't count
	}}
	if v := report.JavaVersion(); v != "17" {
		t.Errorf("JavaVersion() = %q, want 17", v)
	}

	if v := (&Report{}).JavaVersion(); v != "" {
		t.Errorf("JavaVersion() on empty report = %q, want empty", v)
	}
}
