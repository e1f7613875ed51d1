package resource

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseCPUMask(t *testing.T) {
	ids, err := ParseCPUMask("0,1,4")
	assert.NoError(t, err)
	assert.Equal(t, []int{0, 1, 4}, ids)

	ids, err = ParseCPUMask(Unbound)
	assert.NoError(t, err)
	assert.Nil(t, ids)

	_, err = ParseCPUMask("0,x")
	assert.Error(t, err)
}

func TestBindGPUsSetsThreeVars(t *testing.T) {
	for _, v := range []string{EnvBindedGPUs, EnvCUDAVisible, EnvGPUDeviceOrdinal} {
		os.Unsetenv(v)
	}
	BindGPUs("0,1")
	assert.Equal(t, "0,1", os.Getenv(EnvBindedGPUs))
	assert.Equal(t, "0,1", os.Getenv(EnvCUDAVisible))
	assert.Equal(t, "0,1", os.Getenv(EnvGPUDeviceOrdinal))
}

func TestBindGPUsUnboundIsNoop(t *testing.T) {
	for _, v := range []string{EnvBindedGPUs, EnvCUDAVisible, EnvGPUDeviceOrdinal} {
		os.Unsetenv(v)
	}
	BindGPUs(Unbound)
	_, ok := os.LookupEnv(EnvBindedGPUs)
	assert.False(t, ok)
}

func TestCleanEnvironmentRespectsSentinel(t *testing.T) {
	os.Setenv(EnvBindedCPUs, "0,1")
	os.Setenv("PRESERVE_ME", "1")
	os.Setenv(EnvHostnames, "host1")

	CleanEnvironment(Unbound, Unbound)

	_, cpuSet := os.LookupEnv(EnvBindedCPUs)
	assert.True(t, cpuSet, "cpu env must be left untouched when mask was the unbound sentinel")
	_, hostSet := os.LookupEnv(EnvHostnames)
	assert.False(t, hostSet, "hostnames must always be unset")

	os.Unsetenv(EnvBindedCPUs)
	os.Unsetenv("PRESERVE_ME")
}

func TestCleanEnvironmentUnsetsBoundVars(t *testing.T) {
	os.Setenv(EnvBindedCPUs, "0,1")
	os.Setenv(EnvBindedGPUs, "0")
	os.Setenv(EnvCUDAVisible, "0")
	os.Setenv(EnvGPUDeviceOrdinal, "0")

	CleanEnvironment("0,1", "0")

	for _, v := range []string{EnvBindedCPUs, EnvBindedGPUs, EnvCUDAVisible, EnvGPUDeviceOrdinal, EnvHostnames} {
		_, ok := os.LookupEnv(v)
		assert.False(t, ok, "%s must be unset", v)
	}
}
