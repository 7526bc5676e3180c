package types

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWorkloadSpecUnmarshalAcceptsAliases(t *testing.T) {
	raw := `{
		"uuid": "11111111-1111-1111-1111-111111111111",
		"dockerImage": "alpine:3",
		"startupCommand": "/bin/sh -c \"sleep 3600\"",
		"memoryLimit": 134217728,
		"cpuLimit": 1000000000,
		"portMappings": [{"host_port": 25565, "container_port": 25565}],
		"volumePath": "/ignored"
	}`

	var spec WorkloadSpec
	require.NoError(t, json.Unmarshal([]byte(raw), &spec))

	assert.Equal(t, "alpine:3", spec.Image)
	assert.Equal(t, int64(134217728), spec.MemoryLimitBytes)
	assert.Equal(t, int64(1000000000), spec.CPULimitNanoCPUs)
	assert.Len(t, spec.PortMappings, 1)
	assert.Equal(t, 25565, spec.PortMappings[0].HostPort)
}

func TestWorkloadSpecUnmarshalPrefersCanonicalNames(t *testing.T) {
	raw := `{"uuid":"u","image":"canonical","dockerImage":"alias"}`
	var spec WorkloadSpec
	require.NoError(t, json.Unmarshal([]byte(raw), &spec))
	assert.Equal(t, "canonical", spec.Image)
}

func TestContainerNameIsCanonical(t *testing.T) {
	assert.Equal(t, "nexus-abc", ContainerName("abc"))
	assert.Equal(t, "nexus-install-abc", InstallContainerName("abc"))
}

func TestStateFromRuntimeIsTotal(t *testing.T) {
	cases := map[string]ServerState{
		"running":    StateRunning,
		"created":    StateStarting,
		"restarting": StateStarting,
		"paused":     StateOffline,
		"exited":     StateOffline,
		"dead":       StateOffline,
		"removing":   StateOffline,
		"garbage":    StateUnknown,
		"":           StateUnknown,
	}
	for raw, want := range cases {
		assert.Equal(t, want, StateFromRuntime(raw), "raw=%q", raw)
	}
}

func TestParsePowerAction(t *testing.T) {
	for _, ok := range []string{"start", "stop", "restart", "kill", "Start"} {
		_, valid := ParsePowerAction(ok)
		assert.True(t, valid, ok)
	}
	_, valid := ParsePowerAction("pause")
	assert.False(t, valid)
}

func TestStartupArgsTokenizes(t *testing.T) {
	spec := WorkloadSpec{StartupCommand: "/bin/sh -c sleep"}
	assert.Equal(t, []string{"/bin/sh", "-c", "sleep"}, spec.StartupArgs())

	empty := WorkloadSpec{}
	assert.Nil(t, empty.StartupArgs())
}
