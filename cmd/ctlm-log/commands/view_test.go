package commands

import (
	"bytes"
	"strings"
	"testing"

	"github.com/ctlm-ground/ctlm-go/pkg/log"
)

func TestFormatPacketEvent(t *testing.T) {
	var buf bytes.Buffer
	formatEvent(&buf, testEvents()[0])
	output := buf.String()

	for _, want := range []string{
		"2026-01-28T10:15:32.123456Z",
		"[sess:sess-1]",
		"IN  IDENTIFY INST HEALTH",
		"Size: 3 bytes",
		"Data: 010064",
		"Received: 1",
	} {
		if !strings.Contains(output, want) {
			t.Errorf("expected %q in output:\n%s", want, output)
		}
	}
}

func TestFormatCommandEvent(t *testing.T) {
	var buf bytes.Buffer
	ev := testEvents()[1]
	ev.Command.Hazardous = true
	ev.Command.HazardousDescription = "Clears all counters"
	formatEvent(&buf, ev)
	output := buf.String()

	if !strings.Contains(output, "OUT COMMAND INST NOOP") {
		t.Errorf("expected command header, got:\n%s", output)
	}
	if !strings.Contains(output, `cmd("INST NOOP with COUNT 3")`) {
		t.Errorf("expected output string, got:\n%s", output)
	}
	if !strings.Contains(output, "Hazardous: Clears all counters") {
		t.Errorf("expected hazardous line, got:\n%s", output)
	}
}

func TestFormatLimitsEvent(t *testing.T) {
	var buf bytes.Buffer
	formatEvent(&buf, testEvents()[2])

	if !strings.Contains(buf.String(), "TEMP1: GREEN -> RED_HIGH (85.0) [DEFAULT]") {
		t.Errorf("unexpected limits output:\n%s", buf.String())
	}

	buf.Reset()
	formatEvent(&buf, log.Event{Item: "MODE", Limits: &log.LimitsEvent{OldState: "RED"}})
	if !strings.Contains(buf.String(), "MODE: RED -> NONE") {
		t.Errorf("unexpected disabled limits output:\n%s", buf.String())
	}
}

func TestFormatErrorEvent(t *testing.T) {
	var buf bytes.Buffer
	formatEvent(&buf, testEvents()[3])
	output := buf.String()

	if !strings.Contains(output, "Warning: buffer length less than defined length") {
		t.Errorf("expected warning line, got:\n%s", output)
	}
	if !strings.Contains(output, "Context: update") {
		t.Errorf("expected context line, got:\n%s", output)
	}
}

func TestParseFlags(t *testing.T) {
	if d, err := ParseDirectionFlag("OUT"); err != nil || d != log.DirectionOut {
		t.Errorf("ParseDirectionFlag(OUT) = %v, %v", d, err)
	}
	if _, err := ParseDirectionFlag("sideways"); err == nil {
		t.Error("expected error for invalid direction")
	}
	if c, err := ParseCategoryFlag("Limits"); err != nil || c != log.CategoryLimits {
		t.Errorf("ParseCategoryFlag(Limits) = %v, %v", c, err)
	}
	if _, err := ParseCategoryFlag("frame"); err == nil {
		t.Error("expected error for invalid category")
	}
}

func TestRunViewWithFilter(t *testing.T) {
	path := createTestLogFile(t, testEvents())

	cat := log.CategoryLimits
	var buf bytes.Buffer
	if err := RunView(path, ViewFilter{Category: &cat}, &buf); err != nil {
		t.Fatalf("RunView failed: %v", err)
	}
	output := buf.String()
	if strings.Count(output, "[sess:") != 1 {
		t.Errorf("expected one event, got:\n%s", output)
	}
	if !strings.Contains(output, "LIMITS") {
		t.Errorf("expected limits event, got:\n%s", output)
	}

	buf.Reset()
	if err := RunView(path, ViewFilter{Packet: "noop"}, &buf); err != nil {
		t.Fatalf("RunView failed: %v", err)
	}
	if strings.Count(buf.String(), "[sess:") != 1 || !strings.Contains(buf.String(), "NOOP") {
		t.Errorf("expected the NOOP event only, got:\n%s", buf.String())
	}
}
