// Package registry fetches OCI image metadata from container registries.
// The launcher uses it to verify registry-defined images and log their
// digest before pulling; failures here are advisory, the pull decides.
package registry

import (
	"context"
	"errors"
	"time"
)

// Sentinel errors for registry operations.
var (
	// ErrImageNotFound is returned when the requested image does not exist.
	ErrImageNotFound = errors.New("image not found")

	// ErrUnauthorized is returned when authentication fails.
	ErrUnauthorized = errors.New("unauthorized")

	// ErrInvalidRef is returned when the image reference is malformed.
	ErrInvalidRef = errors.New("invalid image reference")
)

// ImageMetadata contains OCI image metadata fetched from a registry.
type ImageMetadata struct {
	// Digest is the image's content-addressable digest ("sha256:...").
	Digest string

	// Labels from the image config.
	Labels map[string]string

	// Created is when the image was created.
	Created time.Time

	// Architecture is the CPU architecture ("amd64", "arm64").
	Architecture string

	// OS is the operating system ("linux").
	OS string
}

// BasicAuth is a username/password credential for one registry host.
type BasicAuth struct {
	Username string
	Password string
}

// CredentialSource looks up stored credentials for a registry host.
// Lookup returns (nil, nil) when no credential is stored.
type CredentialSource interface {
	Lookup(host string) (*BasicAuth, error)
}

// ClientConfig configures the registry client.
type ClientConfig struct {
	// Insecure allows HTTP (non-TLS) connections to registries.
	Insecure bool

	// Credentials, when set, is consulted before the ambient docker
	// keychain.
	Credentials CredentialSource
}

// Client fetches image metadata from OCI registries.
type Client interface {
	// GetMetadata fetches metadata for an image reference. The reference
	// can be a tag ("ghcr.io/foo/bar:latest") or a digest
	// ("ghcr.io/foo/bar@sha256:...").
	GetMetadata(ctx context.Context, ref string) (*ImageMetadata, error)
}
