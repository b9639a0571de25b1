package console

import (
	"bytes"
	"strings"
	"testing"
)

func TestPrinter_Title(t *testing.T) {
	var buf bytes.Buffer
	NewPlainPrinter(&buf).Title("Checks")

	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	if len(lines) != 3 {
		t.Fatalf("Title() printed %d lines, want 3: %q", len(lines), buf.String())
	}
	if lines[0] != strings.Repeat("=", 6+16) || lines[2] != lines[0] {
		t.Errorf("unexpected separators: %q / %q", lines[0], lines[2])
	}
	if lines[1] != strings.Repeat(" ", 8)+"Checks" {
		t.Errorf("title line = %q", lines[1])
	}
}

func TestPrinter_Messages(t *testing.T) {
	var buf bytes.Buffer
	p := NewPlainPrinter(&buf)

	p.Info("info %d", 1)
	p.Error("error %s", "two")
	p.Alert("careful")
	p.Command("tutor config save --set %s=%s", "LMS_HOST", "lms.example.com")
	p.Plain("plain")

	out := buf.String()
	for _, want := range []string{
		"info 1\n",
		"error two\n",
		"⚠️  careful\n",
		"tutor config save --set LMS_HOST=lms.example.com\n",
		"plain\n",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestPrinter_StyledKeepsText(t *testing.T) {
	var buf bytes.Buffer
	NewPrinter(&buf).Error("something failed")
	if !strings.Contains(buf.String(), "something failed") {
		t.Errorf("styled output lost its text: %q", buf.String())
	}
}
