package services

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"unity-upload-backend/internal/clock"
)

const voiceLogTrimmedMarker = "[log trimmed due to size limit]"

// VoiceLog is the append-only voice moderation log. Once the file grows past
// maxBytes it is truncated to a single marker line.
type VoiceLog struct {
	path     string
	maxBytes int64
	clock    clock.Clock

	mu sync.Mutex
}

func NewVoiceLog(path string, maxBytes int64, c clock.Clock) (*VoiceLog, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("create voice log directory: %w", err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return nil, fmt.Errorf("open voice log: %w", err)
	}
	f.Close()
	if c == nil {
		c = clock.System
	}
	return &VoiceLog{path: path, maxBytes: maxBytes, clock: c}, nil
}

func (v *VoiceLog) Append(name, reason, playfabID string) (string, error) {
	name = oneLine(name, "Unknown")
	reason = oneLine(reason, "No reason")
	playfabID = oneLine(playfabID, "N/A")
	entry := fmt.Sprintf("[%s] %s (%s): %s", v.clock.Now().Format(time.RFC3339), name, playfabID, reason)

	v.mu.Lock()
	defer v.mu.Unlock()

	if err := v.trimLocked(); err != nil {
		return "", err
	}

	f, err := os.OpenFile(v.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return "", fmt.Errorf("open voice log: %w", err)
	}
	defer f.Close()
	if _, err := f.WriteString(entry + "\n"); err != nil {
		return "", fmt.Errorf("append voice log: %w", err)
	}
	return entry, nil
}

func (v *VoiceLog) Trim() error {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.trimLocked()
}

func (v *VoiceLog) trimLocked() error {
	fi, err := os.Stat(v.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("stat voice log: %w", err)
	}
	if v.maxBytes <= 0 || fi.Size() <= v.maxBytes {
		return nil
	}
	return os.WriteFile(v.path, []byte(voiceLogTrimmedMarker+"\n"), 0644)
}

// Lines returns all entries, oldest first.
func (v *VoiceLog) Lines() ([]string, error) {
	v.mu.Lock()
	defer v.mu.Unlock()

	f, err := os.Open(v.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("open voice log: %w", err)
	}
	defer f.Close()

	var lines []string
	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 0, 64*1024), 1<<20)
	for sc.Scan() {
		if line := strings.TrimSpace(sc.Text()); line != "" {
			lines = append(lines, line)
		}
	}
	return lines, sc.Err()
}

// Recent returns up to limit entries, newest first.
func (v *VoiceLog) Recent(limit int) ([]string, error) {
	lines, err := v.Lines()
	if err != nil {
		return nil, err
	}
	if limit > 0 && len(lines) > limit {
		lines = lines[len(lines)-limit:]
	}
	out := make([]string, len(lines))
	for i, line := range lines {
		out[len(lines)-1-i] = line
	}
	return out, nil
}

func oneLine(s, fallback string) string {
	s = strings.TrimSpace(strings.NewReplacer("\r", " ", "\n", " ").Replace(s))
	if s == "" {
		return fallback
	}
	return s
}
