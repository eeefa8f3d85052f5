package service

import (
	"time"

	"github.com/Lumnic12/attend/internal/attend/types"
)

// Metrics receives pipeline events. The prometheus collector in
// internal/metrics implements it.
type Metrics interface {
	ScanProcessed(result types.ScanResult, elapsed time.Duration)
	ScanTimedOut()
	QueueDepth(n int)
	SinkFailed()
	SessionStarted()
	SessionMarked()
}

type nopMetrics struct{}

func (nopMetrics) ScanProcessed(types.ScanResult, time.Duration) {}
func (nopMetrics) ScanTimedOut()                                 {}
func (nopMetrics) QueueDepth(int)                                {}
func (nopMetrics) SinkFailed()                                   {}
func (nopMetrics) SessionStarted()                               {}
func (nopMetrics) SessionMarked()                                {}
