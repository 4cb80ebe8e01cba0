package masterdata

import (
	"encoding/json"

	"google.golang.org/grpc/encoding"
)

// jsonCodecName is registered with grpc-go's pluggable codec registry so
// the master-data channel pool can exchange plain Go structs over gRPC
// without generated protobuf message types. Concretely it is selected per
// call via grpc.CallContentSubtype.
const jsonCodecName = "json"

func init() {
	encoding.RegisterCodec(jsonCodec{})
}

// jsonCodec implements encoding.Codec by delegating to encoding/json. It
// works with any exported Go struct, which is the point: the gRPC
// transport (framing, multiplexing, deadlines, pooling) is real, but the
// wire message shape is ordinary JSON rather than a compiled .proto schema.
type jsonCodec struct{}

func (jsonCodec) Marshal(v any) ([]byte, error) {
	return json.Marshal(v)
}

func (jsonCodec) Unmarshal(data []byte, v any) error {
	return json.Unmarshal(data, v)
}

func (jsonCodec) Name() string {
	return jsonCodecName
}
