// Package tty opens a host terminal device as a raw byte stream.
package tty

import (
	"github.com/golang/glog"
	tty "github.com/mattn/go-tty"
)

// Port is a host TTY in raw mode.
type Port struct {
	t       *tty.TTY
	restore func() error
}

// Open opens the device at path and switches it to raw mode.
func Open(path string) (*Port, error) {
	t, err := tty.OpenDevice(path)
	if err != nil {
		return nil, err
	}
	restore, err := t.Raw()
	if err != nil {
		t.Close()
		return nil, err
	}
	glog.Infof("tty: %s opened", path)
	return &Port{t: t, restore: restore}, nil
}

// Read implements io.Reader.
func (p *Port) Read(b []byte) (int, error) {
	return p.t.Input().Read(b)
}

// Write implements io.Writer.
func (p *Port) Write(b []byte) (int, error) {
	return p.t.Output().Write(b)
}

// Close restores the terminal mode and closes the device.
func (p *Port) Close() error {
	if err := p.restore(); err != nil {
		glog.Warningf("tty: restore: %v", err)
	}
	return p.t.Close()
}
