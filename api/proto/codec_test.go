package proto

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCodecRoundTripsMessage(t *testing.T) {
	c := Codec{}
	in := &CreateServerRequest{
		Server: ServerConfig{
			UUID:        "abc-123",
			DockerImage: "alpine:3",
			MemoryLimitMB: 512,
		},
		InstallScript: "echo hi",
	}

	data, err := c.Marshal(in)
	require.NoError(t, err)

	out := new(CreateServerRequest)
	require.NoError(t, c.Unmarshal(data, out))
	assert.Equal(t, in.Server.UUID, out.Server.UUID)
	assert.Equal(t, in.Server.MemoryLimitMB, out.Server.MemoryLimitMB)
	assert.Equal(t, in.InstallScript, out.InstallScript)
}

func TestCodecName(t *testing.T) {
	assert.Equal(t, "nexus-json", Codec{}.Name())
}
