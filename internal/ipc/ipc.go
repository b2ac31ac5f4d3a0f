package ipc

import (
	"encoding/json"
	"fmt"
	"net"
	"os"
)

// ControlMessage is a single command sent over the control socket.
type ControlMessage struct {
	Cmd string `json:"cmd"`
}

// Reply is the server's answer to a ControlMessage.
type Reply struct {
	OK      bool   `json:"ok"`
	Message string `json:"message,omitempty"`
}

// Server accepts control messages on a unix socket, one per connection.
type Server struct {
	ln net.Listener
}

func StartServer(path string, handler func(ControlMessage) Reply) (*Server, error) {
	os.Remove(path)

	ln, err := net.Listen("unix", path)
	if err != nil {
		return nil, fmt.Errorf("listen: %w", err)
	}

	go func() {
		for {
			conn, err := ln.Accept()
			if err != nil {
				return
			}
			go handleConn(conn, handler)
		}
	}()

	return &Server{ln: ln}, nil
}

func (s *Server) Close() error {
	return s.ln.Close()
}

func handleConn(conn net.Conn, handler func(ControlMessage) Reply) {
	defer conn.Close()

	var msg ControlMessage
	if err := json.NewDecoder(conn).Decode(&msg); err != nil {
		return
	}
	json.NewEncoder(conn).Encode(handler(msg))
}

// Send connects to the control socket, sends one command and waits for
// the reply.
func Send(path, cmd string) (Reply, error) {
	conn, err := net.Dial("unix", path)
	if err != nil {
		return Reply{}, err
	}
	defer conn.Close()

	if err := json.NewEncoder(conn).Encode(ControlMessage{Cmd: cmd}); err != nil {
		return Reply{}, err
	}

	var reply Reply
	if err := json.NewDecoder(conn).Decode(&reply); err != nil {
		return Reply{}, fmt.Errorf("read reply: %w", err)
	}
	return reply, nil
}
