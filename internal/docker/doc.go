// Package docker provides Docker Engine API wrappers and the compose
// tool invocations used by build and validation steps.
//
// This package handles:
//   - Docker client initialization with automatic socket detection
//     (Linux, macOS, Windows)
//   - Image builds via the docker CLI, with post-build tag verification
//     through the SDK
//   - Compose operations via the "docker compose" plugin: config
//     (parse and normalize) and build
//
// The package uses github.com/docker/docker/client as the underlying
// Docker SDK, with version negotiation enabled for broad compatibility.
// Build and compose operations shell out to the docker CLI instead: the
// CLI accepts the same flags pipeline authors already know, and the
// compose plugin has no SDK equivalent.
package docker
