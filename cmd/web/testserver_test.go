package main

import (
	"context"
	"io"
	"testing"

	"github.com/myrjola/saferroad/internal/e2etest"
	"github.com/stretchr/testify/require"
)

func testLookupEnv(datasetPath string) func(string) (string, bool) {
	return func(key string) (string, bool) {
		switch key {
		case "SAFERROAD_ADDR":
			return "localhost:0", true
		case "SAFERROAD_DATASET_PATH":
			return datasetPath, true
		default:
			return "", false
		}
	}
}

// startTestServer runs the server on a random port with the dataset at datasetPath. It stops when the test ends.
func startTestServer(t *testing.T, datasetPath string) *e2etest.Server {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	server, err := e2etest.StartServer(ctx, io.Discard, testLookupEnv(datasetPath), run)
	require.NoError(t, err)
	return server
}
