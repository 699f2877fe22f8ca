package registry

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net/http"
	"runtime"

	"github.com/google/go-containerregistry/pkg/authn"
	"github.com/google/go-containerregistry/pkg/name"
	v1 "github.com/google/go-containerregistry/pkg/v1"
	"github.com/google/go-containerregistry/pkg/v1/remote"
	"github.com/google/go-containerregistry/pkg/v1/remote/transport"
)

// client implements Client using go-containerregistry.
type client struct {
	config ClientConfig
}

// NewClient creates a registry client with the given configuration.
func NewClient(cfg ClientConfig) Client {
	return &client{config: cfg}
}

// GetMetadata fetches metadata for an image reference.
func (c *client) GetMetadata(ctx context.Context, ref string) (*ImageMetadata, error) {
	var nameOpts []name.Option
	if c.config.Insecure {
		nameOpts = append(nameOpts, name.Insecure)
	}

	parsedRef, err := name.ParseReference(ref, nameOpts...)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrInvalidRef, err)
	}

	auth, err := c.authFor(parsedRef)
	if err != nil {
		return nil, err
	}

	opts := []remote.Option{
		auth,
		remote.WithContext(ctx),
		// Pin the current platform so multi-arch images resolve to one
		// config.
		remote.WithPlatform(v1.Platform{
			Architecture: runtime.GOARCH,
			OS:           "linux",
		}),
	}

	if c.config.Insecure {
		// Clone http.DefaultTransport to preserve proxy and timeout
		// settings.
		var insecureTransport *http.Transport
		if defaultTransport, ok := http.DefaultTransport.(*http.Transport); ok {
			insecureTransport = defaultTransport.Clone()
		} else {
			insecureTransport = &http.Transport{}
		}
		insecureTransport.TLSClientConfig = &tls.Config{InsecureSkipVerify: true} //nolint:gosec // intentional for insecure mode
		opts = append(opts, remote.WithTransport(insecureTransport))
	}

	img, err := remote.Image(parsedRef, opts...)
	if err != nil {
		return nil, c.mapError(err)
	}

	digest, err := img.Digest()
	if err != nil {
		return nil, fmt.Errorf("get image digest: %w", err)
	}

	configFile, err := img.ConfigFile()
	if err != nil {
		return nil, fmt.Errorf("get image config: %w", err)
	}

	metadata := &ImageMetadata{
		Digest:       digest.String(),
		Labels:       configFile.Config.Labels,
		Architecture: configFile.Architecture,
		OS:           configFile.OS,
	}
	if !configFile.Created.IsZero() {
		metadata.Created = configFile.Created.Time
	}
	return metadata, nil
}

// authFor selects stored credentials for the reference's registry when
// available, otherwise the ambient docker keychain.
func (c *client) authFor(ref name.Reference) (remote.Option, error) {
	if c.config.Credentials != nil {
		creds, err := c.config.Credentials.Lookup(ref.Context().RegistryStr())
		if err != nil {
			return nil, fmt.Errorf("look up registry credentials: %w", err)
		}
		if creds != nil {
			return remote.WithAuth(&authn.Basic{
				Username: creds.Username,
				Password: creds.Password,
			}), nil
		}
	}
	return remote.WithAuthFromKeychain(authn.DefaultKeychain), nil
}

// mapError converts go-containerregistry errors to sentinel errors.
func (c *client) mapError(err error) error {
	var transportErr *transport.Error
	if errors.As(err, &transportErr) {
		for _, diagnostic := range transportErr.Errors {
			switch diagnostic.Code {
			case transport.UnauthorizedErrorCode:
				return fmt.Errorf("%w: %s", ErrUnauthorized, err)
			case transport.ManifestUnknownErrorCode, transport.NameUnknownErrorCode:
				return fmt.Errorf("%w: %s", ErrImageNotFound, err)
			}
		}
		switch transportErr.StatusCode {
		case http.StatusUnauthorized, http.StatusForbidden:
			return fmt.Errorf("%w: %s", ErrUnauthorized, err)
		case http.StatusNotFound:
			return fmt.Errorf("%w: %s", ErrImageNotFound, err)
		}
	}
	return fmt.Errorf("registry error: %w", err)
}
