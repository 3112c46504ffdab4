package env

import (
	"fmt"
	"io"
	"net"
	"net/url"

	"github.com/golang/glog"

	"github.com/robotalks/genlink/pkg/link"
	"github.com/robotalks/genlink/pkg/link/mqtt"
	"github.com/robotalks/genlink/pkg/link/stream"
	"github.com/robotalks/genlink/pkg/link/tty"
	"github.com/robotalks/genlink/pkg/link/websocket"
)

// Link is a connected bridge transport.
type Link struct {
	Conn link.PacketReadWriter
	URL  string

	closer io.Closer
}

// DialLink connects the transport selected by LinkURL.
func (c *Config) DialLink() (*Link, error) {
	u, err := url.Parse(c.LinkURL)
	if err != nil {
		return nil, fmt.Errorf("invalid link URL %q: %w", c.LinkURL, err)
	}
	l := &Link{URL: c.LinkURL}
	switch u.Scheme {
	case "mqtt":
		q, err := mqtt.NewQueueFromURL(c.LinkURL)
		if err != nil {
			return nil, err
		}
		if err = q.Connect(); err != nil {
			return nil, err
		}
		l.Conn, l.closer = mqtt.NewPacketReadWriter(q).ForDevice(c.DeviceID), q
	case "ws", "wss":
		origin := "http://" + u.Host
		if u.Scheme == "wss" {
			origin = "https://" + u.Host
		}
		conn, err := websocket.Dial(c.LinkURL, origin)
		if err != nil {
			return nil, err
		}
		l.Conn, l.closer = conn, conn
	case "tcp":
		conn, err := net.Dial("tcp", u.Host)
		if err != nil {
			return nil, err
		}
		rw := stream.New(conn)
		l.Conn, l.closer = rw, rw
	case "tty":
		port, err := tty.Open(u.Path)
		if err != nil {
			return nil, err
		}
		rw := stream.New(port)
		l.Conn, l.closer = rw, rw
	default:
		return nil, fmt.Errorf("unsupported link scheme %q", u.Scheme)
	}
	glog.Infof("link: connected %s", c.LinkURL)
	return l, nil
}

// Close disconnects the transport.
func (l *Link) Close() error {
	if l.closer == nil {
		return nil
	}
	return l.closer.Close()
}
