// Package stream frames packets over a byte stream.
package stream

import (
	"encoding/binary"
	"fmt"
	"io"
)

// MaxPacketSize limits the size accepted by ReadPacket.
const MaxPacketSize = 1 << 16

// ReadWriter implements link.PacketReadWriter.
// Each packet is prefixed by 4-byte (little-endian) length.
type ReadWriter struct {
	io.ReadWriter
}

// New creates a ReadWriter with io.ReadWriter.
func New(s io.ReadWriter) *ReadWriter {
	return &ReadWriter{s}
}

// ReadPacket implements link.PacketReader.
func (p *ReadWriter) ReadPacket() ([]byte, error) {
	var size uint32
	if err := binary.Read(p, binary.LittleEndian, &size); err != nil {
		return nil, err
	}
	if size > MaxPacketSize {
		return nil, fmt.Errorf("packet size %d exceeds %d", size, MaxPacketSize)
	}
	pkt := make([]byte, size)
	_, err := io.ReadFull(p, pkt)
	return pkt, err
}

// WritePacket implements link.PacketWriter.
func (p *ReadWriter) WritePacket(pkt []byte) error {
	buf := make([]byte, 4+len(pkt))
	binary.LittleEndian.PutUint32(buf, uint32(len(pkt)))
	copy(buf[4:], pkt)
	_, err := p.Write(buf)
	return err
}

// Close closes the underlying stream if it's a Closer.
func (p *ReadWriter) Close() error {
	if closer, ok := p.ReadWriter.(io.Closer); ok {
		return closer.Close()
	}
	return nil
}
