package recorder

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"os/exec"
	"sync"

	"github.com/dmitrijs2005/mindwell/internal/common"
)

// Device is an audio input.
type Device interface {
	Open(ctx context.Context) (Stream, error)
}

// Stream is an open device.
type Stream interface {
	io.Reader
	// Stop asks the source to finish. Read returns io.EOF once the
	// remaining data is drained.
	Stop() error
	// Close releases the source. It may be called after Stop.
	Close() error
}

// CommandDevice captures audio from a program writing to stdout.
type CommandDevice struct {
	Path string
	Args []string
}

func (d *CommandDevice) Open(ctx context.Context) (Stream, error) {
	if d.Path == "" {
		return nil, fmt.Errorf("%w: no capture command configured", common.ErrPermission)
	}

	cmd := exec.CommandContext(ctx, d.Path, d.Args...)
	out, err := cmd.StdoutPipe()
	if err != nil {
		return nil, err
	}
	if err := cmd.Start(); err != nil {
		if errors.Is(err, exec.ErrNotFound) || errors.Is(err, fs.ErrNotExist) || errors.Is(err, fs.ErrPermission) {
			return nil, fmt.Errorf("%w: %v", common.ErrPermission, err)
		}
		return nil, err
	}
	return &commandStream{cmd: cmd, out: out}, nil
}

type commandStream struct {
	cmd  *exec.Cmd
	out  io.ReadCloser
	once sync.Once
}

func (s *commandStream) Read(p []byte) (int, error) {
	return s.out.Read(p)
}

// Stop interrupts the program so it can flush its container trailer.
func (s *commandStream) Stop() error {
	err := s.cmd.Process.Signal(os.Interrupt)
	if err == nil || errors.Is(err, os.ErrProcessDone) {
		return nil
	}
	return s.cmd.Process.Kill()
}

func (s *commandStream) Close() error {
	s.once.Do(func() {
		_ = s.cmd.Process.Kill()
		// the exit status of an interrupted capture is not interesting
		_ = s.cmd.Wait()
	})
	return nil
}

// FileDevice replays an existing audio file.
type FileDevice struct {
	Path string
}

func (d *FileDevice) Open(_ context.Context) (Stream, error) {
	f, err := os.Open(d.Path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) || errors.Is(err, fs.ErrPermission) {
			return nil, fmt.Errorf("%w: %v", common.ErrPermission, err)
		}
		return nil, err
	}
	return &fileStream{f: f}, nil
}

type fileStream struct {
	f *os.File
}

func (s *fileStream) Read(p []byte) (int, error) { return s.f.Read(p) }
func (s *fileStream) Stop() error                { return nil }
func (s *fileStream) Close() error               { return s.f.Close() }
