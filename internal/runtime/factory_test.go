package runtime

import (
	"testing"
)

func TestNewRuntimeFromConfig_Memory(t *testing.T) {
	rt, err := NewRuntimeFromConfig(RuntimeTypeMemory, "127.0.0.1:8080", 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, ok := rt.(*MemoryRuntime); !ok {
		t.Error("expected MemoryRuntime type")
	}
}

func TestNewRuntimeFromConfig_MemoryInvalidEndpoint(t *testing.T) {
	if _, err := NewRuntimeFromConfig(RuntimeTypeMemory, "bad", 0); err == nil {
		t.Error("expected error for endpoint without port")
	}
}

func TestNewRuntimeFromConfig_Docker(t *testing.T) {
	// client.New does not contact the daemon, only the environment is parsed.
	_, err := NewRuntimeFromConfig(RuntimeTypeDocker, "", 0)
	if err != nil {
		if err.Error() == "unknown runtime type: docker (supported: docker, memory)" {
			t.Error("docker should be a recognized runtime type")
		}
		t.Logf("Docker runtime error (may be expected if DOCKER_HOST is invalid): %v", err)
	}
}

func TestNewRuntimeFromConfig_EmptyString(t *testing.T) {
	_, err := NewRuntimeFromConfig("", "", 0)
	if err != nil && err.Error() == "unknown runtime type:  (supported: docker, memory)" {
		t.Error("empty string should default to docker")
	}
}

func TestNewRuntimeFromConfig_UnknownType(t *testing.T) {
	_, err := NewRuntimeFromConfig("unknown-runtime", "", 0)
	if err == nil {
		t.Error("expected error for unknown runtime type")
	}
}
