package interfaces

import "context"

// Transport is one byte-stream link to the collector. Receive must never
// block indefinitely: when no data is available it returns (0, err) where the
// error satisfies the transport package's would-block classification.
type Transport interface {
	Connect(ctx context.Context) error
	Send(p []byte) (int, error)
	Receive(p []byte) (int, error)
	Close() error
}
