package shared

import (
	"fmt"
	"os"
	"os/exec"
	"runtime"
	"strings"
)

var getRuntime = func() string { return runtime.GOOS }

// browserCommand picks the launcher for url. $BROWSER wins over the platform default.
func browserCommand(url string) ([]string, error) {
	if b := strings.Fields(os.Getenv("BROWSER")); len(b) > 0 {
		return append(b, url), nil
	}

	switch rt := getRuntime(); rt {
	case "darwin":
		return []string{"open", url}, nil
	case "linux", "freebsd", "openbsd":
		return []string{"xdg-open", url}, nil
	case "windows":
		return []string{"rundll32", "url.dll,FileProtocolHandler", url}, nil
	default:
		return nil, fmt.Errorf("unsupported platform: %s", rt)
	}
}

// OpenBrowser starts the user's browser on url without waiting for it to exit.
//
// Used for the Spotify authorization page; callers print the URL when this fails.
func OpenBrowser(url string) error {
	argv, err := browserCommand(url)
	if err != nil {
		return err
	}
	if err := exec.Command(argv[0], argv[1:]...).Start(); err != nil {
		return fmt.Errorf("failed to open browser: %w", err)
	}
	return nil
}
