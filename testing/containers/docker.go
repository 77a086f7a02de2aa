//go:build integration

// Package containers starts throwaway store instances for integration tests.
package containers

import (
	"context"

	"github.com/testcontainers/testcontainers-go"
)

// dockerReachable reports whether a Docker daemon answers. Integration tests skip otherwise.
func dockerReachable(ctx context.Context) bool {
	provider, err := testcontainers.NewDockerProvider()
	if err != nil {
		return false
	}
	defer provider.Close()

	_, err = provider.DaemonHost(ctx)
	return err == nil
}
