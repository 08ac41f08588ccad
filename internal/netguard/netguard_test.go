package netguard

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHostMatch(t *testing.T) {
	tests := []struct {
		url  string
		want bool
	}{
		{"http://localhost:11434/v1", true},
		{"http://LOCALHOST:8080", true},
		{"http://127.0.0.1:1234/v1", true},
		{"http://0.0.0.0:8000", true},
		{"https://api.example.com/v1", false},
		{"http://192.168.1.10:11434", false},
		{"http://[::1]:11434", false},
		{"not a url with localhost inside", true},
	}

	c := HostMatch{}
	for _, tt := range tests {
		t.Run(tt.url, func(t *testing.T) {
			assert.Equal(t, tt.want, c.IsLoopback(tt.url))
		})
	}
}

func TestStrict(t *testing.T) {
	tests := []struct {
		url  string
		want bool
	}{
		{"http://localhost:11434/v1", true},
		{"http://ollama.localhost", true},
		{"http://127.0.0.5:8080", true},
		{"http://[::1]:11434", true},
		{"http://10.0.0.3/v1", true},
		{"http://192.168.1.10:11434", true},
		{"http://169.254.169.254/latest", true},
		{"http://0.0.0.0:8000", true},
		{"https://api.example.com/v1", false},
		{"https://8.8.8.8", false},
		// names are not resolved
		{"http://localhost-proxy.example.com", false},
	}

	c := Strict{}
	for _, tt := range tests {
		t.Run(tt.url, func(t *testing.T) {
			assert.Equal(t, tt.want, c.IsLoopback(tt.url))
		})
	}
}

func TestNewClassifier(t *testing.T) {
	assert.IsType(t, Strict{}, NewClassifier("STRICT"))
	assert.IsType(t, HostMatch{}, NewClassifier("host"))
	assert.IsType(t, HostMatch{}, NewClassifier(""))
}

func TestCloudDetector(t *testing.T) {
	env := map[string]string{}
	d := NewCloudDetector(nil, ModeAuto)
	d.lookup = func(k string) (string, bool) {
		v, ok := env[k]
		return v, ok
	}

	assert.False(t, d.IsCloud())

	// presence is enough, even with an empty value
	env["DYNO"] = ""
	assert.True(t, d.IsCloud())

	delete(env, "DYNO")
	assert.False(t, d.IsCloud(), "environment is re-read on every call")

	d.Mode = ModeCloud
	assert.True(t, d.IsCloud())

	env["RENDER"] = "true"
	d.Mode = ModeLocal
	assert.False(t, d.IsCloud())
}

func TestCloudDetector_ProcessEnv(t *testing.T) {
	d := NewCloudDetector([]string{"CHAT_ROUTER_TEST_CLOUD"}, "")
	assert.False(t, d.IsCloud())

	t.Setenv("CHAT_ROUTER_TEST_CLOUD", "1")
	assert.True(t, d.IsCloud())
}
