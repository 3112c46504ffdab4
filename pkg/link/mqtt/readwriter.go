package mqtt

import (
	"context"
	"io"
)

// ReadWriter implements link.PacketReadWriter over two topics.
type ReadWriter struct {
	Queue    *Queue
	SubTopic string
	PubTopic string

	packetCh chan []byte
	doneCh   chan struct{}
}

// NewPacketReadWriter creates the ReadWriter.
func NewPacketReadWriter(q *Queue) *ReadWriter {
	return &ReadWriter{Queue: q, packetCh: make(chan []byte, 16), doneCh: make(chan struct{})}
}

// WithTopics specifies the topics.
func (p *ReadWriter) WithTopics(sub, pub string) *ReadWriter {
	p.SubTopic, p.PubTopic = sub, pub
	return p
}

// ForDevice uses the topic convention of a bridged device:
// SubTopic = id/tx, bytes to transmit on the device port
// PubTopic = id/rx, bytes received by the device port
func (p *ReadWriter) ForDevice(id string) *ReadWriter {
	return p.WithTopics(id+"/tx", id+"/rx")
}

// ForHost uses the reverse convention of ForDevice.
func (p *ReadWriter) ForHost(id string) *ReadWriter {
	return p.WithTopics(id+"/rx", id+"/tx")
}

// ReadPacket implements link.PacketReader.
func (p *ReadWriter) ReadPacket() ([]byte, error) {
	select {
	case pkt := <-p.packetCh:
		return pkt, nil
	case <-p.doneCh:
		return nil, io.EOF
	}
}

// WritePacket implements link.PacketWriter.
func (p *ReadWriter) WritePacket(pkt []byte) error {
	token := p.Queue.Pub(p.PubTopic, pkt)
	token.Wait()
	return token.Error()
}

// Run implements Runnable.
func (p *ReadWriter) Run(ctx context.Context) error {
	token := p.Queue.Sub(p.SubTopic, p.handleMsg)
	token.Wait()
	if err := token.Error(); err != nil {
		return err
	}
	defer close(p.doneCh)
	defer p.Queue.Unsub(p.SubTopic)
	<-ctx.Done()
	return ctx.Err()
}

func (p *ReadWriter) handleMsg(_ string, payload []byte) {
	select {
	case p.packetCh <- payload:
	case <-p.doneCh:
	}
}
