package logging

import (
	"os"
	"path/filepath"
)

// DefaultLogDir returns the default log directory (~/.corpusctl/logs/).
// Falls back to the temp directory if the home directory is unavailable.
func DefaultLogDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(os.TempDir(), ".corpusctl", "logs")
	}
	return filepath.Join(home, ".corpusctl", "logs")
}

// DefaultLogPath returns the default log file path.
func DefaultLogPath() string {
	return filepath.Join(DefaultLogDir(), "corpusctl.log")
}
