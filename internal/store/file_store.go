package store

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"unity-upload-backend/internal/models"

	"gopkg.in/yaml.v3"
)

// fileRecord is the on-disk shape of a ban. Kept separate from the gorm model
// so column tags never leak into the file format.
type fileRecord struct {
	PlayerID  string `json:"playerId" yaml:"playerId"`
	Reason    string `json:"reason" yaml:"reason"`
	ExpiresAt string `json:"expiresAt" yaml:"expiresAt"`
}

// FileStore keeps the collection in a single JSON (or YAML, by extension)
// document and replaces it with write-to-temp plus rename.
type FileStore struct {
	path string
	yaml bool
}

func NewFileStore(path string) (*FileStore, error) {
	if path == "" {
		return nil, fmt.Errorf("ban store path is empty")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("create ban store directory: %w", err)
	}
	ext := strings.ToLower(filepath.Ext(path))
	return &FileStore{path: path, yaml: ext == ".yaml" || ext == ".yml"}, nil
}

func (fs *FileStore) Path() string {
	return fs.path
}

func (fs *FileStore) Load() ([]models.BanRecord, error) {
	data, err := os.ReadFile(fs.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read ban store: %w", err)
	}
	if len(strings.TrimSpace(string(data))) == 0 {
		return nil, nil
	}

	var raw []fileRecord
	if fs.yaml {
		err = yaml.Unmarshal(data, &raw)
	} else {
		err = json.Unmarshal(data, &raw)
	}
	if err != nil {
		return nil, &CorruptStoreError{Source: fs.path, Err: err}
	}

	records := make([]models.BanRecord, 0, len(raw))
	for i, r := range raw {
		if r.PlayerID == "" {
			return nil, &CorruptStoreError{Source: fs.path, Err: fmt.Errorf("record %d has no playerId", i)}
		}
		expiresAt, err := parseTime(r.ExpiresAt)
		if err != nil {
			return nil, &CorruptStoreError{Source: fs.path, Err: fmt.Errorf("record %d: %w", i, err)}
		}
		records = append(records, models.BanRecord{PlayerID: r.PlayerID, Reason: r.Reason, ExpiresAt: expiresAt})
	}
	return records, nil
}

func (fs *FileStore) Save(records []models.BanRecord) error {
	raw := make([]fileRecord, 0, len(records))
	for _, r := range records {
		raw = append(raw, fileRecord{
			PlayerID:  r.PlayerID,
			Reason:    r.Reason,
			ExpiresAt: r.ExpiresAt.UTC().Format(timeLayout),
		})
	}

	var (
		out []byte
		err error
	)
	if fs.yaml {
		out, err = yaml.Marshal(raw)
	} else {
		out, err = json.MarshalIndent(raw, "", "  ")
	}
	if err != nil {
		return fmt.Errorf("encode ban store: %w", err)
	}

	return writeAtomic(fs.path, out)
}

func writeAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()
	committed := false
	defer func() {
		if !committed {
			os.Remove(tmpName)
		}
	}()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("sync temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Chmod(tmpName, 0644); err != nil {
		return fmt.Errorf("chmod temp file: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("replace ban store: %w", err)
	}
	committed = true
	return nil
}
