//go:build !windows

package volumeprobe

import "testing"

func TestProbeNonWindowsReturnsEmpty(t *testing.T) {
	volumes, err := Probe()
	if err != nil {
		t.Fatalf("Probe: %v", err)
	}
	if len(volumes) != 0 {
		t.Fatalf("expected no volumes on non-Windows host, got %d", len(volumes))
	}
}
