package bridge

import "sync"

// StatusType tags an UpdateStatus.
type StatusType string

const (
	StatusTypeIdle         StatusType = "idle"
	StatusTypeChecking     StatusType = "checking"
	StatusTypeAvailable    StatusType = "available"
	StatusTypeNotAvailable StatusType = "not-available"
	StatusTypeDownloading  StatusType = "downloading"
	StatusTypeDownloaded   StatusType = "downloaded"
	StatusTypeError        StatusType = "error"
)

// UpdateStatus is the tagged variant pushed by the host while an update is
// checked, downloaded and installed. Only the fields of the active case are
// set.
type UpdateStatus struct {
	Type         StatusType `json:"type"`
	Version      string     `json:"version,omitempty"`      // available, downloaded
	ReleaseNotes string     `json:"releaseNotes,omitempty"` // available
	Progress     float64    `json:"progress,omitempty"`     // downloading, percent
	Message      string     `json:"message,omitempty"`      // error
}

func StatusIdle() UpdateStatus         { return UpdateStatus{Type: StatusTypeIdle} }
func StatusChecking() UpdateStatus     { return UpdateStatus{Type: StatusTypeChecking} }
func StatusNotAvailable() UpdateStatus { return UpdateStatus{Type: StatusTypeNotAvailable} }

func StatusAvailable(version, notes string) UpdateStatus {
	return UpdateStatus{Type: StatusTypeAvailable, Version: version, ReleaseNotes: notes}
}

func StatusDownloading(percent float64) UpdateStatus {
	return UpdateStatus{Type: StatusTypeDownloading, Progress: percent}
}

func StatusDownloaded(version string) UpdateStatus {
	return UpdateStatus{Type: StatusTypeDownloaded, Version: version}
}

func StatusError(message string) UpdateStatus {
	return UpdateStatus{Type: StatusTypeError, Message: message}
}

// CanTransition reports whether the host may push to after from.
//
//	idle ─► checking ─► available ─► downloading ─► downloaded ─► idle
//	            ├─► not-available
//	            └─► downloaded (the latest release is already downloaded)
//
// Any state may move to checking (a new check) or error.
func CanTransition(from, to StatusType) bool {
	if to == StatusTypeChecking || to == StatusTypeError {
		return true
	}
	switch from {
	case StatusTypeChecking:
		return to == StatusTypeAvailable || to == StatusTypeNotAvailable || to == StatusTypeDownloaded
	case StatusTypeAvailable:
		return to == StatusTypeDownloading
	case StatusTypeDownloading:
		return to == StatusTypeDownloading || to == StatusTypeDownloaded
	case StatusTypeDownloaded:
		return to == StatusTypeIdle
	}
	return false
}

// StatusTracker holds the latest observed update status, nothing more.
type StatusTracker struct {
	mu     sync.RWMutex
	status UpdateStatus
}

// NewStatusTracker starts in the idle state.
func NewStatusTracker() *StatusTracker {
	return &StatusTracker{status: StatusIdle()}
}

// Observe records s as the latest status. It has the listener signature so
// it can be passed straight to SubscribeUpdateStatus.
func (t *StatusTracker) Observe(s UpdateStatus) {
	t.mu.Lock()
	t.status = s
	t.mu.Unlock()
}

// Status returns the latest status.
func (t *StatusTracker) Status() UpdateStatus {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.status
}

// Fail records err as an error status when a check or download call fails.
// It returns err unchanged.
func (t *StatusTracker) Fail(err error, fallback string) error {
	if err == nil {
		return nil
	}
	msg := err.Error()
	if msg == "" {
		msg = fallback
	}
	t.Observe(StatusError(msg))
	return err
}

func (t *StatusTracker) IsUpdateAvailable() bool { return t.Status().Type == StatusTypeAvailable }
func (t *StatusTracker) IsDownloading() bool     { return t.Status().Type == StatusTypeDownloading }
func (t *StatusTracker) IsReadyToInstall() bool  { return t.Status().Type == StatusTypeDownloaded }
