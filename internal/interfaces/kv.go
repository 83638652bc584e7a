package interfaces

// KV is a durable string key-value store. Get returns ("", false, nil) when
// the key does not exist.
type KV interface {
	Get(key string) (string, bool, error)
	Set(key, value string) error
	Close() error
}
