// Package codec serializes materialized FAST messages into downstream
// formats. A Registry maps format names to codecs so tools can choose the
// output encoding at runtime.
package codec

import (
	"fastcodec/pkg/fast/message"
)

// Codec marshals one decoded message. Implementations should be
// deterministic so repeated runs over the same feed diff cleanly.
type Codec interface {
	Name() string
	ContentType() string
	Marshal(m *message.Message) ([]byte, error)
}

// Registry maps format names to codecs.
type Registry struct{ byName map[string]Codec }

// NewRegistry constructs a registry preloaded with the built-in codecs that
// need no initialization: JSON and Protobuf. CBOR is added explicitly via
// Register(CBOR()).
func NewRegistry() *Registry {
	r := &Registry{byName: make(map[string]Codec)}
	r.Register(JSON())
	r.Register(Proto())
	return r
}

// Register adds a codec.
func (r *Registry) Register(c Codec) { r.byName[c.Name()] = c }

// Get returns a codec by format name, or nil.
func (r *Registry) Get(name string) Codec { return r.byName[name] }
