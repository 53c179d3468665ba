package affinity_test

import (
	"errors"
	"runtime"
	"testing"

	"github.com/momentics/mediabuf/affinity"
	"github.com/momentics/mediabuf/api"
)

func TestPinFirstAllowedCPU(t *testing.T) {
	cpus, err := affinity.Current()
	if errors.Is(err, api.ErrNotSupported) {
		t.Skip("affinity not supported on", runtime.GOOS)
	}
	if err != nil {
		t.Fatal(err)
	}
	if len(cpus) == 0 {
		t.Fatal("no CPUs in the current mask")
	}

	done := make(chan error, 1)
	go func() {
		if err := affinity.Pin(cpus[0]); err != nil {
			done <- err
			return
		}
		got, err := affinity.Current()
		if err == nil && (len(got) != 1 || got[0] != cpus[0]) {
			err = errors.New("mask not applied")
		}
		done <- err
	}()
	if err := <-done; err != nil {
		t.Fatal(err)
	}
}
