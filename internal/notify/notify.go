// Package notify shows native OS notifications, used by the desktop to
// announce updates while the window is in the background.
package notify

import (
	"fmt"
	"os/exec"
	"runtime"
	"strings"
)

// Notifier sends notifications through the platform's command line tool.
type Notifier struct {
	appID string
	goos  string
	run   func(name string, args ...string) error
}

// New creates a notifier that names appID as the sender where the platform
// supports it.
func New(appID string) *Notifier {
	return &Notifier{
		appID: appID,
		goos:  runtime.GOOS,
		run: func(name string, args ...string) error {
			return exec.Command(name, args...).Run()
		},
	}
}

// Send displays a notification. It returns an error when the platform has
// no notification tool or the tool fails.
func (n *Notifier) Send(title, body string) error {
	name, args, ok := command(n.goos, n.appID, sanitize(title), sanitize(body))
	if !ok {
		return fmt.Errorf("notify: not supported on %s", n.goos)
	}
	if err := n.run(name, args...); err != nil {
		return fmt.Errorf("notify: %s: %w", name, err)
	}
	return nil
}

// command builds the notification command for goos.
func command(goos, appID, title, body string) (string, []string, bool) {
	switch goos {
	case "darwin":
		script := fmt.Sprintf(`display notification %q with title %q`, body, title)
		return "osascript", []string{"-e", script}, true

	case "linux":
		return "notify-send", []string{"--app-name=" + appID, title, body}, true

	case "windows":
		// PowerShell toast notification
		ps := fmt.Sprintf(`
[Windows.UI.Notifications.ToastNotificationManager, Windows.UI.Notifications, ContentType = WindowsRuntime] > $null
$template = [Windows.UI.Notifications.ToastNotificationManager]::GetTemplateContent([Windows.UI.Notifications.ToastTemplateType]::ToastText02)
$textNodes = $template.GetElementsByTagName('text')
$textNodes.Item(0).AppendChild($template.CreateTextNode('%s')) > $null
$textNodes.Item(1).AppendChild($template.CreateTextNode('%s')) > $null
$toast = [Windows.UI.Notifications.ToastNotification]::new($template)
[Windows.UI.Notifications.ToastNotificationManager]::CreateToastNotifier('%s').Show($toast)
`, title, body, appID)
		return "powershell", []string{"-NoProfile", "-NonInteractive", "-Command", ps}, true
	}
	return "", nil, false
}

// sanitize strips characters that break the PowerShell and AppleScript
// quoting and truncates long text.
func sanitize(s string) string {
	s = strings.ReplaceAll(s, "'", "’")
	s = strings.ReplaceAll(s, "\\", "")
	if len(s) > 256 {
		s = s[:256] + "..."
	}
	return s
}
