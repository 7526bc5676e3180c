package stats

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCPUPercentSingleCPU(t *testing.T) {
	r := RawSample{
		CPUTotalUsage:     200,
		PreCPUTotalUsage:  100,
		SystemCPUUsage:    2000,
		PreSystemCPUUsage: 1000,
		PerCPUUsageLen:    0,
	}
	assert.InDelta(t, 10.0, CPUPercent(r), 0.0001)
}

func TestCPUPercentScalesByCPUCount(t *testing.T) {
	r := RawSample{
		CPUTotalUsage:     200,
		PreCPUTotalUsage:  100,
		SystemCPUUsage:    2000,
		PreSystemCPUUsage: 1000,
		PerCPUUsageLen:    4,
	}
	assert.InDelta(t, 40.0, CPUPercent(r), 0.0001)
}

func TestCPUPercentFirstSampleIsZero(t *testing.T) {
	r := RawSample{
		CPUTotalUsage:     100,
		PreCPUTotalUsage:  0,
		SystemCPUUsage:    0,
		PreSystemCPUUsage: 0,
	}
	assert.Equal(t, 0.0, CPUPercent(r))
}

func TestCPUPercentNeverNegative(t *testing.T) {
	r := RawSample{
		CPUTotalUsage:     50,
		PreCPUTotalUsage:  100,
		SystemCPUUsage:    2000,
		PreSystemCPUUsage: 1000,
	}
	assert.Equal(t, 0.0, CPUPercent(r))
}

func TestNormalizeCarriesFieldsThrough(t *testing.T) {
	r := RawSample{
		MemoryUsageBytes: 1024,
		MemoryLimitBytes: 2048,
		NetRxBytes:       10,
		NetTxBytes:       20,
	}
	sample := Normalize(r, 4096)
	assert.EqualValues(t, 1024, sample.MemoryBytes)
	assert.EqualValues(t, 2048, sample.MemoryLimitBytes)
	assert.EqualValues(t, 10, sample.NetRxBytes)
	assert.EqualValues(t, 20, sample.NetTxBytes)
	assert.EqualValues(t, 4096, sample.DiskBytes)
	assert.False(t, sample.Timestamp.IsZero())
}

func TestDirSizeSumsRegularFiles(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.txt"), make([]byte, 100), 0o644))
	require.NoError(t, os.Mkdir(filepath.Join(dir, "sub"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "sub", "b.txt"), make([]byte, 50), 0o644))

	assert.EqualValues(t, 150, DirSize(dir))
}

func TestDirSizeMissingDirIsZero(t *testing.T) {
	assert.EqualValues(t, 0, DirSize(filepath.Join(t.TempDir(), "missing")))
}
