// ABOUTME: Tests for metric row formatting: gauge clamping, limit display, and the
// ABOUTME: soft-limit warning marker.
package tui

import (
	"strings"
	"testing"

	"github.com/runboard/runboard/api"
)

func TestCPUGaugeClamped(t *testing.T) {
	if g := cpuGauge(-10); strings.Contains(g, "|") {
		t.Errorf("negative pct must render empty, got %q", g)
	}
	if g := cpuGauge(250); strings.Contains(g, " ") {
		t.Errorf("over-100 pct must render full, got %q", g)
	}
	if g := cpuGauge(50); strings.Count(g, "|") != cpuGaugeWidth/2 {
		t.Errorf("50%% must half-fill the gauge, got %q", g)
	}
}

func TestFormatSampleWithLimit(t *testing.T) {
	limit := 2048.0
	row := formatSample(api.MetricSample{
		Timestamp:  "2026-08-26T10:00:00Z",
		CPUPercent: 25,
		RAMMb:      1024,
		RAMLimitMb: &limit,
	})
	if !strings.Contains(row, "1024/2048 MB") {
		t.Errorf("expected ram/limit pair, got %q", row)
	}
	if strings.Contains(row, "!") {
		t.Errorf("no warning marker without soft limit breach, got %q", row)
	}
}

func TestFormatSampleSoftLimitMarker(t *testing.T) {
	row := formatSample(api.MetricSample{
		Timestamp:         "2026-08-26T10:00:00Z",
		CPUPercent:        95,
		RAMMb:             1900,
		SoftLimitExceeded: true,
	})
	if !strings.Contains(row, "!") {
		t.Errorf("expected soft limit marker, got %q", row)
	}
	if !strings.Contains(row, "1900 MB") {
		t.Errorf("expected bare ram when no limit reported, got %q", row)
	}
}

func TestMetricsPanelSnapshot(t *testing.T) {
	p := NewMetricsPanelModel()
	p.SetSize(80, 12)
	p.SetSamples([]api.MetricSample{
		{Timestamp: "2026-08-26T10:00:00Z", CPUPercent: 10, RAMMb: 100},
		{Timestamp: "2026-08-26T10:00:02Z", CPUPercent: 20, RAMMb: 200},
	})
	if p.Len() != 2 {
		t.Fatalf("expected 2 samples, got %d", p.Len())
	}
	if !strings.Contains(p.View(), "METRICS") {
		t.Errorf("panel title missing")
	}
}
