package tts

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

var (
	logPath    = "logs/tts.log"
	logEnabled = false
	mu         sync.RWMutex
)

// SetLogPath configures the path for the TTS history file.
func SetLogPath(path string) {
	mu.Lock()
	defer mu.Unlock()
	logPath = path
}

// SetEnabled toggles the TTS history file.
func SetEnabled(enabled bool) {
	mu.Lock()
	defer mu.Unlock()
	logEnabled = enabled
}

// Log appends one backend request (text and outcome) to the history file.
// Shared by all providers so every engine is debugged the same way.
func Log(provider, text string, status int, err error) {
	mu.RLock()
	path, enabled := logPath, logEnabled
	mu.RUnlock()
	if !enabled {
		return
	}

	_ = os.MkdirAll(filepath.Dir(path), 0o755)

	f, fileErr := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if fileErr != nil {
		return
	}
	defer f.Close()

	timestamp := time.Now().Format("2006-01-02 15:04:05")
	statusStr := fmt.Sprintf("%d", status)
	if err != nil {
		statusStr = fmt.Sprintf("ERROR(%v)", err)
	}

	// Format: [TIMESTAMP] [PROVIDER] STATUS: <code> | TEXT: <text>
	entry := fmt.Sprintf("[%s] [%s] STATUS: %s\nTEXT:\n%s\n--------------------------------------------------\n",
		timestamp, provider, statusStr, text)

	_, _ = f.WriteString(entry)
}
