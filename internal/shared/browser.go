package shared

import (
	"fmt"
	"net/url"
	"os/exec"
	"runtime"
	"strings"
)

var getRuntime = func() string { return runtime.GOOS }

// Platform is a destination for sharing a transcript link.
type Platform string

const (
	PlatformWhatsApp  Platform = "whatsapp"
	PlatformFacebook  Platform = "facebook"
	PlatformMessenger Platform = "messenger"
)

// Platforms lists the supported share destinations.
var Platforms = []Platform{PlatformWhatsApp, PlatformFacebook, PlatformMessenger}

// ShareURL builds the platform share link for link. WhatsApp receives the
// title and summary as message text; the others only take the link.
func ShareURL(p Platform, link, title, summary string) (string, error) {
	switch Platform(strings.ToLower(string(p))) {
	case PlatformWhatsApp:
		text := strings.Join([]string{title, summary, link}, "\n")
		return "https://wa.me/?text=" + url.QueryEscape(text), nil
	case PlatformFacebook:
		return "https://www.facebook.com/sharer/sharer.php?u=" + url.QueryEscape(link), nil
	case PlatformMessenger:
		return "https://m.me/?link=" + url.QueryEscape(link), nil
	default:
		return "", fmt.Errorf("%w: unknown share platform %q", ErrInvalidArgument, p)
	}
}

// OpenBrowser opens the default system browser to the specified URL.
//
// Supports macOS, Linux, and Windows platforms.
func OpenBrowser(target string) error {
	var cmd *exec.Cmd
	rt := getRuntime()
	switch rt {
	case "darwin":
		cmd = exec.Command("open", target)
	case "linux":
		cmd = exec.Command("xdg-open", target)
	case "windows":
		cmd = exec.Command("rundll32", "url.dll,FileProtocolHandler", target)
	default:
		return fmt.Errorf("unsupported platform: %s", rt)
	}

	if err := cmd.Start(); err != nil {
		return fmt.Errorf("failed to open browser: %w", err)
	}

	return nil
}
