// Package websocket carries packets as websocket binary messages.
package websocket

import (
	"net/http"

	"golang.org/x/net/websocket"
)

// ReadWriter implements link.PacketReadWriter.
type ReadWriter websocket.Conn

// New wraps websocket.Conn.
func New(conn *websocket.Conn) *ReadWriter {
	return (*ReadWriter)(conn)
}

// Dial connects to a websocket server.
func Dial(url, origin string) (*ReadWriter, error) {
	conn, err := websocket.Dial(url, "", origin)
	if err != nil {
		return nil, err
	}
	return New(conn), nil
}

// Handler accepts websocket connections and passes each to fn.
// The connection is closed when fn returns.
func Handler(fn func(*ReadWriter)) http.Handler {
	return websocket.Handler(func(conn *websocket.Conn) {
		fn(New(conn))
	})
}

// ReadPacket implements link.PacketReader.
func (p *ReadWriter) ReadPacket() (pkt []byte, err error) {
	err = websocket.Message.Receive((*websocket.Conn)(p), &pkt)
	return
}

// WritePacket implements link.PacketWriter.
func (p *ReadWriter) WritePacket(pkt []byte) error {
	return websocket.Message.Send((*websocket.Conn)(p), pkt)
}

// Close closes the connection.
func (p *ReadWriter) Close() error {
	return (*websocket.Conn)(p).Close()
}
