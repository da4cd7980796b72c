package contexthelpers_test

import (
	"net/http/httptest"
	"testing"

	"github.com/myrjola/saferroad/internal/contexthelpers"
	"github.com/stretchr/testify/require"
)

func TestRequestValues(t *testing.T) {
	r := httptest.NewRequest("GET", "/", nil)
	require.Empty(t, contexthelpers.CSRFToken(r.Context()))
	require.Empty(t, contexthelpers.CSPNonce(r.Context()))

	r = contexthelpers.SetCSRFToken(r, "token")
	r = contexthelpers.SetCSPNonce(r, "nonce")
	require.Equal(t, "token", contexthelpers.CSRFToken(r.Context()))
	require.Equal(t, "nonce", contexthelpers.CSPNonce(r.Context()))
}
