// Package metrics defines the instrumentation points of the filesystem
// service. The prometheus subpackage provides the real implementation;
// Noop keeps call sites unconditional when metrics are disabled.
package metrics

// Recorder receives operation-level measurements from the filesystem
// service.
type Recorder interface {
	// ObserveUpload records one finished upload of the given size.
	ObserveUpload(bytes int64)

	// ObserveDownload records one finished download of the given size.
	ObserveDownload(bytes int64)

	// ObserveDelete records one subtree delete with its per-node outcome
	// counts.
	ObserveDelete(deleted, skipped, failed int)
}

// Noop discards all measurements.
type Noop struct{}

// NewNoop returns a Recorder that discards all measurements.
func NewNoop() Noop {
	return Noop{}
}

func (Noop) ObserveUpload(int64)       {}
func (Noop) ObserveDownload(int64)     {}
func (Noop) ObserveDelete(int, int, int) {}
