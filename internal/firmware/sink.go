package firmware

import (
	"bytes"
	"compress/gzip"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/vitaminmoo/gyverhub/internal/config"
	"github.com/vitaminmoo/gyverhub/internal/transfer"
)

var gzipMagic = []byte{0x1f, 0x8b}

// ErrEmptyImage is returned when an update finishes without any data
var ErrEmptyImage = errors.New("empty image")

// FileUpdater stages firmware images in a directory for whatever applies
// them after the reboot. An image is written to a temp file and only
// renamed into place once it is complete.
type FileUpdater struct {
	Dir string
	// Validate checks flash images for a well-formed ESP32 app header
	Validate bool
}

// Begin implements transfer.Updater
func (u *FileUpdater) Begin(t transfer.Target) (transfer.Sink, error) {
	if err := os.MkdirAll(u.Dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create image directory: %w", err)
	}
	name := FlashImage
	if t == transfer.TargetFS {
		name = FSImage
	}
	f, err := os.CreateTemp(u.Dir, name+".*.tmp")
	if err != nil {
		return nil, fmt.Errorf("failed to create temp file: %w", err)
	}
	return &fileSink{
		f:        f,
		dest:     filepath.Join(u.Dir, name),
		target:   t,
		validate: u.Validate && t == transfer.TargetFlash,
	}, nil
}

// Path is where a committed image for t ends up
func (u *FileUpdater) Path(t transfer.Target) string {
	if t == transfer.TargetFS {
		return filepath.Join(u.Dir, FSImage)
	}
	return filepath.Join(u.Dir, FlashImage)
}

type fileSink struct {
	f        *os.File
	dest     string
	target   transfer.Target
	validate bool
	n        int64
}

func (s *fileSink) Write(p []byte) (int, error) {
	n, err := s.f.Write(p)
	s.n += int64(n)
	return n, err
}

// Commit unpacks a gzip image if needed, validates it and moves it into place
func (s *fileSink) Commit() error {
	tmp := s.f.Name()
	if err := s.f.Close(); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("failed to close image: %w", err)
	}
	if s.n == 0 {
		os.Remove(tmp)
		return ErrEmptyImage
	}

	if zipped, err := isGzip(tmp); err != nil {
		os.Remove(tmp)
		return err
	} else if zipped {
		if err := gunzipInPlace(tmp); err != nil {
			os.Remove(tmp)
			return fmt.Errorf("failed to unpack image: %w", err)
		}
	}

	if s.validate {
		img, err := ParseESP32Image(tmp)
		if err != nil {
			os.Remove(tmp)
			return err
		}
		config.Debugf("flash image: %d segments, entry 0x%08x", len(img.Segments), img.Header.EntryAddr)
	}

	if err := os.Rename(tmp, s.dest); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("failed to finalize image: %w", err)
	}
	config.Log.Infof("staged %s image %s (%d bytes)", s.target, s.dest, s.n)
	return nil
}

func (s *fileSink) Abort() {
	tmp := s.f.Name()
	s.f.Close()
	os.Remove(tmp)
}

func isGzip(path string) (bool, error) {
	f, err := os.Open(path)
	if err != nil {
		return false, err
	}
	defer f.Close()
	head := make([]byte, 2)
	if _, err := io.ReadFull(f, head); err != nil {
		if errors.Is(err, io.ErrUnexpectedEOF) {
			return false, nil
		}
		return false, err
	}
	return bytes.Equal(head, gzipMagic), nil
}

func gunzipInPlace(path string) error {
	in, err := os.Open(path)
	if err != nil {
		return err
	}
	defer in.Close()
	zr, err := gzip.NewReader(in)
	if err != nil {
		return err
	}
	defer zr.Close()

	out, err := os.Create(path + ".raw")
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, zr); err != nil {
		out.Close()
		os.Remove(out.Name())
		return err
	}
	if err := out.Close(); err != nil {
		os.Remove(out.Name())
		return err
	}
	return os.Rename(out.Name(), path)
}
