package wsrpc

import (
	"fmt"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestClientServerRoundTrip(t *testing.T) {
	handle := func(req Request) ([]byte, error) {
		if req.Scheme != "SSE1" {
			return nil, fmt.Errorf("unknown scheme %q", req.Scheme)
		}
		return append([]byte("echo:"), req.Token...), nil
	}
	srv := NewServer(handle, nil)
	ts := httptest.NewServer(srv)
	defer ts.Close()

	url := "ws" + strings.TrimPrefix(ts.URL, "http")
	client, err := Dial(url)
	require.NoError(t, err)
	defer client.Close()

	result, err := client.Search("SSE1", "db1", []byte("token-bytes"))
	require.NoError(t, err)
	require.Equal(t, []byte("echo:token-bytes"), result)
}

func TestClientServerPropagatesHandlerError(t *testing.T) {
	handle := func(req Request) ([]byte, error) {
		return nil, fmt.Errorf("no such edb %q", req.EDB)
	}
	srv := NewServer(handle, nil)
	ts := httptest.NewServer(srv)
	defer ts.Close()

	url := "ws" + strings.TrimPrefix(ts.URL, "http")
	client, err := Dial(url)
	require.NoError(t, err)
	defer client.Close()

	_, err = client.Search("SSE1", "missing", []byte("tok"))
	require.Error(t, err)
}

func TestClientMultipleRequestsOnOneConnection(t *testing.T) {
	handle := func(req Request) ([]byte, error) {
		return []byte(req.EDB), nil
	}
	srv := NewServer(handle, nil)
	ts := httptest.NewServer(srv)
	defer ts.Close()

	url := "ws" + strings.TrimPrefix(ts.URL, "http")
	client, err := Dial(url)
	require.NoError(t, err)
	defer client.Close()

	for _, edb := range []string{"a", "b", "c"} {
		result, err := client.Search("SSE1", edb, nil)
		require.NoError(t, err)
		require.Equal(t, []byte(edb), result)
	}
}
