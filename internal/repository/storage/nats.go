package storage

import (
	"fmt"

	"github.com/nats-io/nats.go"
)

// NewNats - connects to the nats server at url, using token when it is set.
func NewNats(url, token string) (*nats.Conn, error) {
	opts := []nats.Option{
		nats.Name("tictactoe-online"),
	}

	if token != "" {
		opts = append(opts, nats.Token(token))
	}

	conn, err := nats.Connect(url, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	return conn, nil
}
