package storage

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/nats-io/nats-server/v2/server"
	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
)

// Conn bundles a NATS connection with its optional embedded server so the
// caller has one thing to shut down.
type Conn struct {
	nc       *nats.Conn
	embedded *server.Server

	// JS is the JetStream context for KV access.
	JS jetstream.JetStream
}

// Connect connects to an external NATS server when url is non-empty,
// otherwise starts an embedded server on a random port.
func Connect(url string, logger *slog.Logger) (*Conn, error) {
	if logger == nil {
		logger = slog.Default()
	}

	c := &Conn{}

	if url != "" {
		logger.Debug("Connecting to NATS", "url", url)
		nc, err := nats.Connect(url)
		if err != nil {
			return nil, fmt.Errorf("connect to NATS: %w", err)
		}
		c.nc = nc
	} else {
		opts := &server.Options{
			Port:      -1, // Random available port
			JetStream: true,
			NoLog:     true,
			NoSigs:    true,
		}

		ns, err := server.NewServer(opts)
		if err != nil {
			return nil, fmt.Errorf("create embedded NATS server: %w", err)
		}

		go ns.Start()

		if !ns.ReadyForConnections(5 * time.Second) {
			ns.Shutdown()
			return nil, fmt.Errorf("embedded NATS server failed to start")
		}
		c.embedded = ns

		nc, err := nats.Connect(ns.ClientURL())
		if err != nil {
			ns.Shutdown()
			return nil, fmt.Errorf("connect to embedded NATS: %w", err)
		}
		c.nc = nc
		logger.Debug("Embedded NATS server started", "url", ns.ClientURL())
	}

	js, err := jetstream.New(c.nc)
	if err != nil {
		c.Close()
		return nil, fmt.Errorf("create JetStream context: %w", err)
	}
	c.JS = js

	return c, nil
}

// Close drains the connection and stops the embedded server, if any.
func (c *Conn) Close() {
	if c.nc != nil {
		c.nc.Close()
	}
	if c.embedded != nil {
		c.embedded.Shutdown()
	}
}
