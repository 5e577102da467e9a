package firebase

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDevTokenVerifier(t *testing.T) {
	v := NewDevTokenVerifier()

	uid, err := v.VerifyToken(context.Background(), "dev:alice")
	require.NoError(t, err)
	assert.Equal(t, "alice", uid)

	for _, token := range []string{"", "alice", "dev:", "dev:  "} {
		_, err := v.VerifyToken(context.Background(), token)
		assert.Error(t, err, token)
	}
}
