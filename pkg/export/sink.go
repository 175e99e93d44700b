package export

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"sync"

	"github.com/matzehuels/templatestudio/pkg/errors"
)

// Sink receives the encoded PNG of a finished export.
type Sink interface {
	Deliver(ctx context.Context, filename string, data []byte) error
}

// FileSink writes exports into a directory. The file is written to a
// temporary name and renamed into place, so readers never see a partial
// PNG, and the temporary file is removed whatever happens.
type FileSink struct {
	// Dir is the output directory, created when missing. Empty means the
	// working directory.
	Dir string
}

// Path returns where filename is written.
func (s FileSink) Path(filename string) string {
	return filepath.Join(s.dir(), filename)
}

func (s FileSink) dir() string {
	if s.Dir == "" {
		return "."
	}
	return s.Dir
}

// Deliver implements [Sink].
func (s FileSink) Deliver(ctx context.Context, filename string, data []byte) error {
	if err := errors.ValidateFilename(filename); err != nil {
		return err
	}
	if err := os.MkdirAll(s.dir(), 0o755); err != nil {
		return errors.Wrap(errors.ErrCodeDelivery, err, "create output directory")
	}

	tmp, err := os.CreateTemp(s.dir(), "."+filename+".*.tmp")
	if err != nil {
		return errors.Wrap(errors.ErrCodeDelivery, err, "create temp file")
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return errors.Wrap(errors.ErrCodeDelivery, err, "write %s", filename)
	}
	if err := tmp.Close(); err != nil {
		return errors.Wrap(errors.ErrCodeDelivery, err, "write %s", filename)
	}
	if err := ctx.Err(); err != nil {
		return errors.Wrap(errors.ErrCodeDelivery, err, "deliver %s", filename)
	}
	if err := os.Rename(tmp.Name(), s.Path(filename)); err != nil {
		return errors.Wrap(errors.ErrCodeDelivery, err, "save %s", filename)
	}
	return nil
}

// HTTPSink answers an HTTP request with the export as a download.
type HTTPSink struct {
	W http.ResponseWriter
}

// Deliver implements [Sink].
func (s HTTPSink) Deliver(_ context.Context, filename string, data []byte) error {
	h := s.W.Header()
	h.Set("Content-Type", "image/png")
	h.Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	h.Set("Content-Length", strconv.Itoa(len(data)))
	s.W.WriteHeader(http.StatusOK)
	if _, err := s.W.Write(data); err != nil {
		return errors.Wrap(errors.ErrCodeDelivery, err, "send %s", filename)
	}
	return nil
}

// MemorySink keeps the last delivered export in memory.
type MemorySink struct {
	mu       sync.Mutex
	filename string
	data     []byte
}

// Deliver implements [Sink].
func (s *MemorySink) Deliver(_ context.Context, filename string, data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.filename = filename
	s.data = append([]byte(nil), data...)
	return nil
}

// Last returns the last delivered file name and bytes.
func (s *MemorySink) Last() (string, []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.filename, s.data
}
