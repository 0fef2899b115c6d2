package bridge

import (
	"fmt"
	"os"
	"strings"
)

// Environment is the execution context a bridge call is dispatched in.
type Environment int

const (
	// EnvHeadless means no UI host context exists (CLI tools, servers, tests).
	EnvHeadless Environment = iota
	// EnvBrowser means UI code runs without the desktop shell.
	EnvBrowser
	// EnvDesktopHost means UI code runs inside the desktop shell.
	EnvDesktopHost
)

func (e Environment) String() string {
	switch e {
	case EnvDesktopHost:
		return "desktop-host"
	case EnvBrowser:
		return "browser"
	default:
		return "headless"
	}
}

// ParseEnvironment parses an environment name. The legacy names "electron",
// "desktop" and "server" are accepted as aliases.
func ParseEnvironment(s string) (Environment, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "desktop-host", "desktop", "electron":
		return EnvDesktopHost, nil
	case "browser", "web":
		return EnvBrowser, nil
	case "headless", "server":
		return EnvHeadless, nil
	}
	return EnvHeadless, fmt.Errorf("bridge: unknown environment %q", s)
}

// Detector classifies the current execution context. Implementations must be
// free of side effects; the bridge calls Detect on every dispatch.
type Detector interface {
	Detect() Environment
}

// DetectorFunc adapts a function to the Detector interface.
type DetectorFunc func() Environment

func (f DetectorFunc) Detect() Environment { return f() }

// Static returns a detector that always reports env.
func Static(env Environment) Detector {
	return DetectorFunc(func() Environment { return env })
}

// Ambient is a snapshot of the host context.
type Ambient struct {
	UIContext  bool // a UI host context exists
	HostMarker bool // sentinel injected only by the desktop shell
}

// Environment classifies the snapshot. Without a UI context nothing else
// matters; the marker is only meaningful inside one.
func (a Ambient) Environment() Environment {
	if !a.UIContext {
		return EnvHeadless
	}
	if a.HostMarker {
		return EnvDesktopHost
	}
	return EnvBrowser
}

// Environment variables read by EnvDetector.
const (
	UIContextVar  = "TURBO_UI"
	HostMarkerVar = "TURBO_DESKTOP_HOST"
)

// EnvDetector reads the ambient from process environment variables on every
// call. The desktop shell sets both variables; a browser-facing process only
// sets TURBO_UI.
type EnvDetector struct{}

func (EnvDetector) Detect() Environment {
	return ReadAmbient().Environment()
}

// ReadAmbient snapshots the ambient from the process environment.
func ReadAmbient() Ambient {
	return Ambient{
		UIContext:  truthy(os.Getenv(UIContextVar)),
		HostMarker: truthy(os.Getenv(HostMarkerVar)),
	}
}

func truthy(s string) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "0", "false", "no", "off":
		return false
	}
	return true
}
