// Package watchdog writes a one-line outcome log per review so operators can
// tail pipeline health without reading structured logs.
package watchdog

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// Writer appends outcome lines to a per-project file.
type Writer struct {
	dir string

	mu sync.Mutex
}

// New creates a Writer that stores files under dir.
func New(dir string) *Writer {
	return &Writer{dir: dir}
}

// Record appends one outcome line to <dir>/<project>.log. The ticket link is
// empty when the pull request carried no ticket.
func (w *Writer) Record(success bool, project, ticketLink, prURL string) error {
	status := "ERROR"
	if success {
		status = "SUCCESS"
	}
	if ticketLink == "" {
		ticketLink = "-"
	}
	line := fmt.Sprintf("%s - %s - %s - %s\n",
		time.Now().Format("2006-01-02 15:04:05"), status, ticketLink, prURL)

	w.mu.Lock()
	defer w.mu.Unlock()

	if err := os.MkdirAll(w.dir, 0755); err != nil {
		return fmt.Errorf("create watchdog dir: %w", err)
	}
	path := filepath.Join(w.dir, project+".log")
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("open watchdog log: %w", err)
	}
	defer f.Close()

	if _, err := f.WriteString(line); err != nil {
		return fmt.Errorf("write watchdog line: %w", err)
	}
	return nil
}
