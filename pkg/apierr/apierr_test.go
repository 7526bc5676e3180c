package apierr

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"google.golang.org/grpc/codes"
)

func TestHTTPStatusMapping(t *testing.T) {
	cases := map[*Error]int{
		Runtime("x", nil):       http.StatusInternalServerError,
		IO("x", nil):            http.StatusInternalServerError,
		PathTraversal("x"):      http.StatusForbidden,
		NotFound("x"):           http.StatusNotFound,
		PayloadTooLarge("x"):    http.StatusRequestEntityTooLarge,
		Config("x"):             http.StatusInternalServerError,
		Auth("x"):               http.StatusUnauthorized,
	}
	for err, want := range cases {
		assert.Equal(t, want, HTTPStatusFor(err))
	}
}

func TestGRPCCodeMapping(t *testing.T) {
	assert.Equal(t, codes.NotFound, GRPCCodeFor(NotFound("missing")))
	assert.Equal(t, codes.InvalidArgument, GRPCCodeFor(PathTraversal("escaped")))
	assert.Equal(t, codes.Unauthenticated, GRPCCodeFor(Auth("bad token")))
}

func TestErrorWrapsCause(t *testing.T) {
	cause := errors.New("boom")
	err := Runtime("create failed", cause)
	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "boom")
}

func TestHTTPStatusForUnknownErrorDefaultsInternal(t *testing.T) {
	assert.Equal(t, http.StatusInternalServerError, HTTPStatusFor(fmt.Errorf("plain")))
}
