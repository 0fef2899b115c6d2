package bridge

import (
	"context"
	"fmt"
)

// AppInfo describes the running application.
type AppInfo struct {
	Name     string `json:"name"`
	Version  string `json:"version"`
	Platform string `json:"platform"`
}

// PathName is a named system location understood by GetPath.
type PathName string

const (
	PathHome      PathName = "home"
	PathAppData   PathName = "appData"
	PathUserData  PathName = "userData"
	PathDocuments PathName = "documents"
	PathDownloads PathName = "downloads"
	PathDesktop   PathName = "desktop"
)

// Valid reports whether p is one of the known locations.
func (p PathName) Valid() bool {
	switch p {
	case PathHome, PathAppData, PathUserData, PathDocuments, PathDownloads, PathDesktop:
		return true
	}
	return false
}

// ParsePathName validates a location name.
func ParsePathName(s string) (PathName, error) {
	p := PathName(s)
	if !p.Valid() {
		return "", fmt.Errorf("bridge: unknown path name %q", s)
	}
	return p, nil
}

// FileFilter restricts a file dialog to a set of extensions (without dots).
type FileFilter struct {
	Name       string   `json:"name"`
	Extensions []string `json:"extensions"`
}

// OpenDialogOptions configures OpenFileDialog.
type OpenDialogOptions struct {
	Filters []FileFilter `json:"filters,omitempty"`
}

// SaveDialogOptions configures SaveFileDialog.
type SaveDialogOptions struct {
	DefaultPath string       `json:"defaultPath,omitempty"`
	Filters     []FileFilter `json:"filters,omitempty"`
}

// Host is the native host endpoint: the desktop shell's privileged process.
// Window controls and InstallUpdate are fire-and-forget on the wire; their
// error return only reports a local failure to send.
type Host interface {
	ReadFile(ctx context.Context, path string) (string, error)
	WriteFile(ctx context.Context, path, content string) error
	FileExists(ctx context.Context, path string) (bool, error)
	AppInfo(ctx context.Context) (AppInfo, error)
	GetPath(ctx context.Context, name PathName) (string, error)
	Minimize(ctx context.Context) error
	Maximize(ctx context.Context) error
	Close(ctx context.Context) error
	OpenFileDialog(ctx context.Context, opts *OpenDialogOptions) (*string, error)
	SaveFileDialog(ctx context.Context, opts *SaveDialogOptions) (*string, error)
	CheckForUpdates(ctx context.Context) error
	DownloadUpdate(ctx context.Context) error
	InstallUpdate(ctx context.Context) error
	// SubscribeUpdateStatus registers push on the host's status channel and
	// returns a function that removes the registration.
	SubscribeUpdateStatus(push func(UpdateStatus)) (cancel func())
}

// FilePicker is the browser-side degraded file chooser used by
// OpenFileDialog when no desktop host exists. It returns nil when the user
// picks nothing.
type FilePicker func(ctx context.Context, accept []string) (*string, error)

// AcceptList flattens dialog filters to ".ext" entries, the way a browser
// file input's accept attribute expects them.
func AcceptList(filters []FileFilter) []string {
	var out []string
	for _, f := range filters {
		for _, ext := range f.Extensions {
			out = append(out, "."+ext)
		}
	}
	return out
}
