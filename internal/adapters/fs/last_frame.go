package fs

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/bft-labs/dcf77rx/internal/domain"
	"github.com/bft-labs/dcf77rx/internal/ports"
)

const lastFrameFileName = "last_frame.json"

// LastFrameFile is a FrameSink that keeps the most recent frame in a JSON
// file. Tools can read it to check the receiver without subscribing to
// anything.
type LastFrameFile struct {
	dir string
}

var _ ports.FrameSink = (*LastFrameFile)(nil)

// NewLastFrameFile stores the file in dir.
func NewLastFrameFile(dir string) *LastFrameFile {
	return &LastFrameFile{dir: dir}
}

// Publish replaces the file atomically (write to temp file, then rename).
func (r *LastFrameFile) Publish(ctx context.Context, frame domain.DecodedFrame) error {
	if err := os.MkdirAll(r.dir, 0o700); err != nil {
		return err
	}

	path := r.Path()
	tmp := path + ".tmp"

	data, err := json.MarshalIndent(frame.ToMeta(), "", "  ")
	if err != nil {
		return err
	}
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}

// Load returns the stored frame. ok is false when nothing was stored yet.
func (r *LastFrameFile) Load(ctx context.Context) (meta domain.FrameMeta, ok bool, err error) {
	data, err := os.ReadFile(r.Path())
	if err != nil {
		if os.IsNotExist(err) {
			return domain.FrameMeta{}, false, nil
		}
		return domain.FrameMeta{}, false, err
	}
	if err := json.Unmarshal(data, &meta); err != nil {
		return domain.FrameMeta{}, false, err
	}
	return meta, true, nil
}

// Close is a no-op; every Publish leaves a complete file behind.
func (r *LastFrameFile) Close() error { return nil }

// Path returns the full path to the file.
func (r *LastFrameFile) Path() string {
	return filepath.Join(r.dir, lastFrameFileName)
}
