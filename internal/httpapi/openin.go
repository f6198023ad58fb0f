package httpapi

import (
	"fmt"
	"os/exec"
	"runtime"
)

// openInFileManager reveals path in the host OS's file manager.
func openInFileManager(path string) error {
	var cmd *exec.Cmd
	switch runtime.GOOS {
	case "darwin":
		cmd = exec.Command("open", "-R", path)
	case "windows":
		cmd = exec.Command("explorer", "/select,", path)
	default:
		cmd = exec.Command("xdg-open", path)
	}
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("httpapi: open file manager: %w", err)
	}
	return nil
}
