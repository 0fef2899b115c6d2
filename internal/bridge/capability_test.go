package bridge

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAmbientEnvironment(t *testing.T) {
	tests := []struct {
		ambient Ambient
		want    Environment
	}{
		{Ambient{}, EnvHeadless},
		{Ambient{HostMarker: true}, EnvHeadless},
		{Ambient{UIContext: true}, EnvBrowser},
		{Ambient{UIContext: true, HostMarker: true}, EnvDesktopHost},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, tt.ambient.Environment(), "%+v", tt.ambient)
	}
}

func TestParseEnvironment(t *testing.T) {
	for in, want := range map[string]Environment{
		"desktop-host": EnvDesktopHost,
		"electron":     EnvDesktopHost,
		" Browser ":    EnvBrowser,
		"server":       EnvHeadless,
		"headless":     EnvHeadless,
	} {
		got, err := ParseEnvironment(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}
	_, err := ParseEnvironment("tv")
	assert.Error(t, err)
}

func TestChannelsRoundTrip(t *testing.T) {
	seen := map[string]bool{}
	for _, c := range Capabilities() {
		ch := c.Channel()
		require.NotEmpty(t, ch)
		assert.False(t, seen[ch], "duplicate channel %s", ch)
		seen[ch] = true

		back, err := ParseChannel(ch)
		require.NoError(t, err)
		assert.Equal(t, c, back)
	}
	assert.Len(t, seen, 14)

	_, err := ParseChannel("fs:delete")
	assert.Error(t, err)
}

func TestResolveTable(t *testing.T) {
	browser := map[Capability]Route{
		CapReadFile:        RouteRemote,
		CapWriteFile:       RouteRemote,
		CapFileExists:      RouteRemote,
		CapGetAppInfo:      RouteSynthesize,
		CapGetPath:         RouteUnsupported,
		CapMinimize:        RouteNoOp,
		CapMaximize:        RouteNoOp,
		CapClose:           RouteDegrade,
		CapOpenFileDialog:  RouteDegrade,
		CapSaveFileDialog:  RouteDegrade,
		CapCheckForUpdates: RouteUnsupported,
		CapDownloadUpdate:  RouteUnsupported,
		CapInstallUpdate:   RouteUnsupported,
		CapUpdateStatus:    RouteNoOp,
	}
	for _, c := range Capabilities() {
		assert.Equal(t, RouteHost, Resolve(c, EnvDesktopHost), c.String())
		assert.Equal(t, browser[c], Resolve(c, EnvBrowser), c.String())

		want := RouteUnavailable
		switch c {
		case CapGetAppInfo:
			want = RouteSynthesize
		case CapUpdateStatus:
			want = RouteNoOp
		}
		assert.Equal(t, want, Resolve(c, EnvHeadless), c.String())

		// Same inputs, same answer.
		assert.Equal(t, Resolve(c, EnvBrowser), Resolve(c, EnvBrowser))
	}
	assert.Equal(t, RouteUnavailable, Resolve(Capability(99), EnvDesktopHost))
}

func TestCallModes(t *testing.T) {
	assert.Equal(t, Send, CapMinimize.Descriptor().Mode)
	assert.Equal(t, Send, CapInstallUpdate.Descriptor().Mode)
	assert.Equal(t, Push, CapUpdateStatus.Descriptor().Mode)
	assert.Equal(t, Invoke, CapReadFile.Descriptor().Mode)
}

func TestErrorIs(t *testing.T) {
	err := remoteFailed(CapReadFile, &RemoteError{Status: 500, Message: "boom"})
	assert.ErrorIs(t, err, ErrRemoteCallFailed)
	assert.NotErrorIs(t, err, ErrHostCallFailed)
	assert.Equal(t, KindRemoteCallFailed, KindOf(err))
	assert.Equal(t, "bridge: fs:readFile remote call failed (HTTP 500): boom", err.Error())

	wrapped := errors.Join(errors.New("context"), unsupported(CapGetPath, EnvBrowser))
	assert.ErrorIs(t, wrapped, ErrUnsupported)
	assert.Equal(t, KindUnsupported, KindOf(wrapped))
	assert.Zero(t, KindOf(errors.New("plain")))
}

func TestUpdateStatusJSON(t *testing.T) {
	data, err := json.Marshal(StatusAvailable("1.2.0", "fixes"))
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"available","version":"1.2.0","releaseNotes":"fixes"}`, string(data))

	data, err = json.Marshal(StatusDownloading(42.5))
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"downloading","progress":42.5}`, string(data))
}

func TestCanTransition(t *testing.T) {
	assert.True(t, CanTransition(StatusTypeIdle, StatusTypeChecking))
	assert.True(t, CanTransition(StatusTypeChecking, StatusTypeAvailable))
	assert.True(t, CanTransition(StatusTypeChecking, StatusTypeNotAvailable))
	assert.True(t, CanTransition(StatusTypeAvailable, StatusTypeDownloading))
	assert.True(t, CanTransition(StatusTypeDownloading, StatusTypeDownloading))
	assert.True(t, CanTransition(StatusTypeDownloading, StatusTypeDownloaded))
	assert.True(t, CanTransition(StatusTypeDownloaded, StatusTypeIdle))
	assert.True(t, CanTransition(StatusTypeDownloading, StatusTypeError))

	assert.False(t, CanTransition(StatusTypeIdle, StatusTypeDownloaded))
	assert.False(t, CanTransition(StatusTypeNotAvailable, StatusTypeDownloading))
	assert.True(t, CanTransition(StatusTypeChecking, StatusTypeDownloaded), "re-check of a downloaded release")
	assert.False(t, CanTransition(StatusTypeNotAvailable, StatusTypeDownloaded))
}

func TestStatusTracker(t *testing.T) {
	tr := NewStatusTracker()
	assert.Equal(t, StatusTypeIdle, tr.Status().Type)

	tr.Observe(StatusAvailable("2.0.0", ""))
	assert.True(t, tr.IsUpdateAvailable())

	tr.Observe(StatusDownloading(50))
	assert.True(t, tr.IsDownloading())
	assert.False(t, tr.IsUpdateAvailable())

	tr.Observe(StatusDownloaded("2.0.0"))
	assert.True(t, tr.IsReadyToInstall())

	err := tr.Fail(errors.New("network down"), "Download failed")
	assert.EqualError(t, err, "network down")
	assert.Equal(t, StatusError("network down"), tr.Status())

	assert.NoError(t, tr.Fail(nil, "unused"))
}

func TestPathNames(t *testing.T) {
	p, err := ParsePathName("userData")
	require.NoError(t, err)
	assert.Equal(t, PathUserData, p)

	_, err = ParsePathName("temp")
	assert.Error(t, err)
}
