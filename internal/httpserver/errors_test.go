package httpserver

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestStatusErrorTable(t *testing.T) {
	cases := []struct {
		err  *statusError
		code int
	}{
		{errBadRequest, http.StatusBadRequest},
		{errForbidden, http.StatusForbidden},
		{errNotFound, http.StatusNotFound},
		{errNotImplemented, http.StatusNotImplemented},
		{errQueueFull, http.StatusServiceUnavailable},
		{errInternal, http.StatusInternalServerError},
	}
	for _, c := range cases {
		require.Equal(t, c.code, c.err.status)
		require.NotEmpty(t, c.err.Error())
	}
}
