package security

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidate_Schemes(t *testing.T) {
	v := NewOriginValidator(false)

	assert.NoError(t, v.Validate("https://media.example.com/object"))
	assert.NoError(t, v.Validate("http://media.example.com/object"))

	assert.Error(t, v.Validate("file:///etc/passwd"))
	assert.Error(t, v.Validate("ftp://media.example.com/object"))
	assert.Error(t, v.Validate("gopher://media.example.com/object"))
	assert.Error(t, v.Validate("https://"))
}

func TestValidate_BlockedHosts(t *testing.T) {
	v := NewOriginValidator(false)

	blocked := []string{
		"http://localhost/x",
		"http://LOCALHOST/x",
		"http://127.0.0.1/x",
		"http://127.0.0.1:8080/x",
		"http://[::1]/x",
		"http://0.0.0.0/x",
		"http://10.0.0.5/x",
		"http://192.168.1.1/x",
		"http://172.16.0.1/x",
		"http://169.254.169.254/latest/meta-data",
	}
	for _, raw := range blocked {
		assert.Error(t, v.Validate(raw), raw)
	}
}

func TestValidate_PublicIPAllowed(t *testing.T) {
	v := NewOriginValidator(false)
	assert.NoError(t, v.Validate("http://93.184.216.34/object"))
}

func TestValidate_AllowPrivateBypassesHostChecks(t *testing.T) {
	v := NewOriginValidator(true)

	assert.NoError(t, v.Validate("http://127.0.0.1:9000/object"))
	assert.NoError(t, v.Validate("http://10.0.0.5/object"))

	// Scheme checks still apply
	assert.Error(t, v.Validate("file:///etc/passwd"))
}
