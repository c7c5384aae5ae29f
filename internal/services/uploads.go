package services

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"unity-upload-backend/internal/clock"
)

const metaSuffix = ".meta"

var (
	ErrInvalidFilename = errors.New("invalid filename")
	ErrQuotaExceeded   = errors.New("upload quota exceeded")
	ErrUploadNotFound  = errors.New("upload not found")
)

type UploadInfo struct {
	Filename string `json:"filename"`
	Uploader string `json:"uploader"`
	SizeKB   int64  `json:"size_kb"`
	URL      string `json:"url"`
}

type UploadUsage struct {
	Files       int     `json:"files"`
	UsedBytes   int64   `json:"used_bytes"`
	QuotaBytes  int64   `json:"quota_bytes"`
	UsedPercent float64 `json:"used_percent"`
}

// UploadStore keeps uploaded map files in one flat directory. The uploader
// name lives in a "<file>.meta" sidecar.
type UploadStore struct {
	dir       string
	quota     int64
	extension string
	urlPrefix string
	clock     clock.Clock

	mu sync.Mutex
}

func NewUploadStore(dir string, quota int64, extension string, c clock.Clock) (*UploadStore, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create upload directory: %w", err)
	}
	if c == nil {
		c = clock.System
	}
	return &UploadStore{
		dir:       dir,
		quota:     quota,
		extension: strings.ToLower(extension),
		urlPrefix: "/files/",
		clock:     c,
	}, nil
}

func (u *UploadStore) Dir() string {
	return u.dir
}

// Save stores r under "<unix millis>-<original name>".
func (u *UploadStore) Save(originalName, uploader string, r io.Reader) (UploadInfo, error) {
	base := filepath.Base(strings.ReplaceAll(originalName, "\\", "/"))
	if !validName(base) || strings.ToLower(filepath.Ext(base)) != u.extension {
		return UploadInfo{}, fmt.Errorf("%w: %q", ErrInvalidFilename, originalName)
	}
	uploader = strings.TrimSpace(uploader)
	if uploader == "" {
		uploader = "Unknown"
	}

	u.mu.Lock()
	defer u.mu.Unlock()

	_, used, err := u.scan()
	if err != nil {
		return UploadInfo{}, err
	}
	remaining := u.quota - used
	if u.quota > 0 && remaining <= 0 {
		return UploadInfo{}, ErrQuotaExceeded
	}

	name := fmt.Sprintf("%d-%s", u.clock.Now().UnixMilli(), base)
	tmp, err := os.CreateTemp(u.dir, ".upload-*")
	if err != nil {
		return UploadInfo{}, fmt.Errorf("create upload: %w", err)
	}
	defer os.Remove(tmp.Name())

	src := r
	if u.quota > 0 {
		src = io.LimitReader(r, remaining+1)
	}
	n, err := io.Copy(tmp, src)
	closeErr := tmp.Close()
	if err != nil {
		return UploadInfo{}, fmt.Errorf("write upload: %w", err)
	}
	if closeErr != nil {
		return UploadInfo{}, fmt.Errorf("write upload: %w", closeErr)
	}
	if u.quota > 0 && n > remaining {
		return UploadInfo{}, ErrQuotaExceeded
	}

	target := filepath.Join(u.dir, name)
	if err := os.WriteFile(target+metaSuffix, []byte(uploader), 0644); err != nil {
		return UploadInfo{}, fmt.Errorf("write upload metadata: %w", err)
	}
	if err := os.Rename(tmp.Name(), target); err != nil {
		os.Remove(target + metaSuffix)
		return UploadInfo{}, fmt.Errorf("store upload: %w", err)
	}

	return u.info(name, uploader, n), nil
}

func (u *UploadStore) List() ([]UploadInfo, error) {
	u.mu.Lock()
	defer u.mu.Unlock()

	files, _, err := u.scan()
	return files, err
}

func (u *UploadStore) Usage() (UploadUsage, error) {
	u.mu.Lock()
	defer u.mu.Unlock()

	files, used, err := u.scan()
	if err != nil {
		return UploadUsage{}, err
	}
	usage := UploadUsage{Files: len(files), UsedBytes: used, QuotaBytes: u.quota}
	if u.quota > 0 {
		usage.UsedPercent = float64(used) / float64(u.quota) * 100
	}
	return usage, nil
}

func (u *UploadStore) Delete(name string) error {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.deleteLocked(name)
}

// DeleteMany removes every listed upload it can and returns how many went.
func (u *UploadStore) DeleteMany(names []string) (int, error) {
	u.mu.Lock()
	defer u.mu.Unlock()

	deleted := 0
	var errs []error
	for _, name := range names {
		if err := u.deleteLocked(name); err != nil {
			errs = append(errs, err)
			continue
		}
		deleted++
	}
	return deleted, errors.Join(errs...)
}

func (u *UploadStore) deleteLocked(name string) error {
	if !validName(name) || strings.HasSuffix(name, metaSuffix) {
		return fmt.Errorf("%w: %q", ErrInvalidFilename, name)
	}
	path := filepath.Join(u.dir, name)
	if err := os.Remove(path); err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("%w: %s", ErrUploadNotFound, name)
		}
		return err
	}
	if err := os.Remove(path + metaSuffix); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

func (u *UploadStore) scan() ([]UploadInfo, int64, error) {
	entries, err := os.ReadDir(u.dir)
	if err != nil {
		return nil, 0, fmt.Errorf("read upload directory: %w", err)
	}

	var (
		files []UploadInfo
		used  int64
	)
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || strings.HasPrefix(name, ".") || strings.ToLower(filepath.Ext(name)) != u.extension {
			continue
		}
		fi, err := e.Info()
		if err != nil {
			continue
		}
		uploader := "Unknown"
		if meta, err := os.ReadFile(filepath.Join(u.dir, name+metaSuffix)); err == nil && len(meta) > 0 {
			uploader = string(meta)
		}
		files = append(files, u.info(name, uploader, fi.Size()))
		used += fi.Size()
	}

	sort.Slice(files, func(i, j int) bool { return files[i].Filename < files[j].Filename })
	return files, used, nil
}

func (u *UploadStore) info(name, uploader string, size int64) UploadInfo {
	return UploadInfo{
		Filename: name,
		Uploader: uploader,
		SizeKB:   (size + 512) / 1024,
		URL:      u.urlPrefix + name,
	}
}

func validName(name string) bool {
	return name != "" && name != "." && name != ".." &&
		!strings.HasPrefix(name, ".") &&
		!strings.ContainsAny(name, "/\\\x00") &&
		filepath.Base(name) == name
}
