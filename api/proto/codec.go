package proto

import (
	"encoding/json"
	"fmt"

	"google.golang.org/grpc/encoding"
)

// CodecName is registered with both the server (grpc.ForceServerCodec)
// and the client (grpc.ForceCodec) so every RPC on NexusService is
// carried as JSON instead of the protobuf wire format — there is no
// protoc-generated marshaler for these hand-written message types.
const CodecName = "nexus-json"

// Codec implements google.golang.org/grpc/encoding.Codec over
// encoding/json. Registered globally via encoding.RegisterCodec so
// grpc.ForceServerCodec(Codec{}) / grpc.ForceCodec(Codec{}) can select
// it by name.
type Codec struct{}

func (Codec) Marshal(v interface{}) ([]byte, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("nexus-json marshal: %w", err)
	}
	return data, nil
}

func (Codec) Unmarshal(data []byte, v interface{}) error {
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("nexus-json unmarshal: %w", err)
	}
	return nil
}

func (Codec) Name() string { return CodecName }

func init() {
	encoding.RegisterCodec(Codec{})
}
