// Package zmqreq is the production bridge transport: a ZeroMQ REQ socket
// speaking to the EA's REP socket.
package zmqreq

import (
	"context"

	"github.com/go-zeromq/zmq4"
)

type Socket struct {
	sock zmq4.Socket
}

// Dial connects a REQ socket to address. The socket carries no send or
// receive deadline: a reply that never arrives blocks the caller forever,
// which is the documented contract of the bridge.
func Dial(address string) (*Socket, error) {
	sock := zmq4.NewReq(context.Background())
	if err := sock.Dial(address); err != nil {
		_ = sock.Close()
		return nil, err
	}
	return &Socket{sock: sock}, nil
}

func (s *Socket) Send(msg string) error {
	return s.sock.Send(zmq4.NewMsgString(msg))
}

func (s *Socket) Recv() (string, error) {
	msg, err := s.sock.Recv()
	if err != nil {
		return "", err
	}
	return string(msg.Bytes()), nil
}

func (s *Socket) Close() error {
	return s.sock.Close()
}
