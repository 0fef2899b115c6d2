package bridge

import "fmt"

// Capability identifies one cross-environment operation.
type Capability int

const (
	CapReadFile Capability = iota
	CapWriteFile
	CapFileExists
	CapGetAppInfo
	CapGetPath
	CapMinimize
	CapMaximize
	CapClose
	CapOpenFileDialog
	CapSaveFileDialog
	CapCheckForUpdates
	CapDownloadUpdate
	CapInstallUpdate
	CapUpdateStatus

	numCapabilities
)

// CallMode describes how a capability travels over the host channel.
type CallMode int

const (
	// Invoke is request/response: the host returns a value or an error.
	Invoke CallMode = iota
	// Send is fire-and-forget: no acknowledgment.
	Send
	// Push is a standing subscription the host pushes events into.
	Push
)

// BrowserPolicy says what a capability does when no desktop host exists.
type BrowserPolicy int

const (
	// PolicyRemote calls the HTTP service.
	PolicyRemote BrowserPolicy = iota
	// PolicySynthesize returns a locally built default.
	PolicySynthesize
	// PolicyDegrade uses a partial browser equivalent.
	PolicyDegrade
	// PolicyNoOp does nothing and reports success.
	PolicyNoOp
	// PolicyReject fails with ErrUnsupported.
	PolicyReject
)

// CapabilityDescriptor is the static description of a capability.
type CapabilityDescriptor struct {
	Capability Capability
	Channel    string
	Mode       CallMode
	Browser    BrowserPolicy
}

var descriptors = [numCapabilities]CapabilityDescriptor{
	CapReadFile:        {CapReadFile, "fs:readFile", Invoke, PolicyRemote},
	CapWriteFile:       {CapWriteFile, "fs:writeFile", Invoke, PolicyRemote},
	CapFileExists:      {CapFileExists, "fs:exists", Invoke, PolicyRemote},
	CapGetAppInfo:      {CapGetAppInfo, "app:getInfo", Invoke, PolicySynthesize},
	CapGetPath:         {CapGetPath, "app:getPath", Invoke, PolicyReject},
	CapMinimize:        {CapMinimize, "window:minimize", Send, PolicyNoOp},
	CapMaximize:        {CapMaximize, "window:maximize", Send, PolicyNoOp},
	CapClose:           {CapClose, "window:close", Send, PolicyDegrade},
	CapOpenFileDialog:  {CapOpenFileDialog, "dialog:openFile", Invoke, PolicyDegrade},
	CapSaveFileDialog:  {CapSaveFileDialog, "dialog:saveFile", Invoke, PolicyDegrade},
	CapCheckForUpdates: {CapCheckForUpdates, "update:check", Invoke, PolicyReject},
	CapDownloadUpdate:  {CapDownloadUpdate, "update:download", Invoke, PolicyReject},
	CapInstallUpdate:   {CapInstallUpdate, "update:install", Send, PolicyReject},
	CapUpdateStatus:    {CapUpdateStatus, "update:status", Push, PolicyNoOp},
}

var byChannel = func() map[string]Capability {
	m := make(map[string]Capability, numCapabilities)
	for _, d := range descriptors {
		m[d.Channel] = d.Capability
	}
	return m
}()

// Capabilities returns every capability in declaration order.
func Capabilities() []Capability {
	caps := make([]Capability, 0, numCapabilities)
	for c := Capability(0); c < numCapabilities; c++ {
		caps = append(caps, c)
	}
	return caps
}

// Valid reports whether c is one of the declared capabilities.
func (c Capability) Valid() bool { return c >= 0 && c < numCapabilities }

// Descriptor returns the static descriptor for c.
func (c Capability) Descriptor() CapabilityDescriptor {
	if !c.Valid() {
		return CapabilityDescriptor{Capability: c}
	}
	return descriptors[c]
}

// Channel returns the host channel name, e.g. "fs:readFile".
func (c Capability) Channel() string { return c.Descriptor().Channel }

func (c Capability) String() string {
	if !c.Valid() {
		return fmt.Sprintf("capability(%d)", int(c))
	}
	return descriptors[c].Channel
}

// ParseChannel maps a host channel name back to its capability.
func ParseChannel(name string) (Capability, error) {
	c, ok := byChannel[name]
	if !ok {
		return -1, fmt.Errorf("bridge: unknown channel %q", name)
	}
	return c, nil
}

// Route is the transport a capability resolves to in a given environment.
type Route int

const (
	RouteHost Route = iota
	RouteRemote
	RouteSynthesize
	RouteDegrade
	RouteNoOp
	RouteUnsupported
	RouteUnavailable
)

func (r Route) String() string {
	switch r {
	case RouteHost:
		return "host"
	case RouteRemote:
		return "remote"
	case RouteSynthesize:
		return "synthesize"
	case RouteDegrade:
		return "degrade"
	case RouteNoOp:
		return "no-op"
	case RouteUnsupported:
		return "unsupported"
	default:
		return "unavailable"
	}
}

// Resolve picks the route for c in env. It is a pure function of its
// arguments and is the only place dispatch decisions are made.
func Resolve(c Capability, env Environment) Route {
	if !c.Valid() {
		return RouteUnavailable
	}
	d := descriptors[c]
	switch env {
	case EnvDesktopHost:
		return RouteHost
	case EnvBrowser:
		switch d.Browser {
		case PolicyRemote:
			return RouteRemote
		case PolicySynthesize:
			return RouteSynthesize
		case PolicyDegrade:
			return RouteDegrade
		case PolicyNoOp:
			return RouteNoOp
		default:
			return RouteUnsupported
		}
	default:
		// Only app-info style queries have a meaning without a UI host.
		switch c {
		case CapGetAppInfo:
			return RouteSynthesize
		case CapUpdateStatus:
			return RouteNoOp
		}
		return RouteUnavailable
	}
}
