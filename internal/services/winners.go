package services

import (
	"errors"
	"math/rand/v2"
	"sync"
	"time"

	"unity-upload-backend/internal/clock"
)

var ErrNoUploads = errors.New("no uploads to pick from")

type WinnerPick struct {
	Winners  []UploadInfo `json:"winners"`
	PickedAt time.Time    `json:"picked_at"`
}

// WinnerPicker draws a uniform sample of distinct uploads and remembers the
// last draw until it is reset.
type WinnerPicker struct {
	uploads *UploadStore
	clock   clock.Clock
	rand    func(n int) []int

	mu   sync.Mutex
	last *WinnerPick
}

func NewWinnerPicker(uploads *UploadStore, c clock.Clock) *WinnerPicker {
	if c == nil {
		c = clock.System
	}
	return &WinnerPicker{uploads: uploads, clock: c, rand: rand.Perm}
}

// Pick clamps count into [1, number of uploads].
func (w *WinnerPicker) Pick(count int) (WinnerPick, error) {
	files, err := w.uploads.List()
	if err != nil {
		return WinnerPick{}, err
	}
	if len(files) == 0 {
		return WinnerPick{}, ErrNoUploads
	}
	if count < 1 {
		count = 1
	}
	if count > len(files) {
		count = len(files)
	}

	order := w.rand(len(files))
	winners := make([]UploadInfo, 0, count)
	for _, i := range order[:count] {
		winners = append(winners, files[i])
	}

	pick := WinnerPick{Winners: winners, PickedAt: w.clock.Now()}
	w.mu.Lock()
	w.last = &pick
	w.mu.Unlock()
	return pick, nil
}

func (w *WinnerPicker) Last() (WinnerPick, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.last == nil {
		return WinnerPick{}, false
	}
	return *w.last, true
}

func (w *WinnerPicker) Reset() {
	w.mu.Lock()
	w.last = nil
	w.mu.Unlock()
}
