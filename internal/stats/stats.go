// Package stats serves the Go runtime viewer (heap, GC, goroutines) while
// the emulator runs.
package stats

import (
	"errors"
	"net/http"

	"github.com/go-echarts/statsview"
	"github.com/go-echarts/statsview/viewer"
)

const DefaultAddress = "localhost:12600"

const path = "/debug/statsview"

// URL is where the viewer for addr can be opened.
func URL(addr string) string { return "http://" + addr + path }

// Launch starts the viewer on addr in a new goroutine and returns a stop
// function. Serve errors other than a clean shutdown go to logf.
func Launch(addr string, logf func(format string, args ...any)) (stop func()) {
	if addr == "" {
		addr = DefaultAddress
	}
	viewer.SetConfiguration(viewer.WithAddr(addr))
	mgr := statsview.New()
	go func() {
		if err := mgr.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logf("statsview: %v", err)
		}
	}()
	logf("stats server available at %s", URL(addr))
	return mgr.Stop
}
