package main

import (
	"context"
	"fmt"
	"path"
	"strings"
	"time"

	"dagger/aide/internal/dagger"
)

// bucket holds the S3-compatible bucket the release archives are synced to.
type bucket struct {
	endpoint        *dagger.Secret
	name            *dagger.Secret
	accessKeyId     *dagger.Secret
	secretAccessKey *dagger.Secret
}

// Package builds aide for the engine's platform and returns a directory with
// aide_<version>_<os>_<arch>.tar.gz and its SHA256SUMS file.
func (a *Aide) Package(
	ctx context.Context,

	// Version string of the release (e.g., "v1.0.0" or "nightly")
	version string,

	// Git commit SHA of the release
	commit string,
) (*dagger.Directory, error) {
	platform, err := dag.DefaultPlatform(ctx)
	if err != nil {
		return nil, fmt.Errorf("resolving engine platform: %w", err)
	}
	archive := fmt.Sprintf("aide_%s_%s.tar.gz", version, strings.ReplaceAll(string(platform), "/", "_"))

	packaged := dag.Container().
		From("debian:bookworm-slim").
		WithDirectory("/build", a.BuildRelease(ctx, version, commit)).
		WithWorkdir("/dist").
		WithExec([]string{"tar", "-czf", archive, "-C", "/build/linux", "aide"}).
		WithExec([]string{"sh", "-c", "sha256sum " + archive + " > SHA256SUMS"})

	return packaged.Directory("/dist"), nil
}

// sync mirrors artifacts to aide/<channel>/ in the bucket.
func (a *Aide) sync(ctx context.Context, artifacts *dagger.Directory, channel string, b bucket) error {
	name, err := b.name.Plaintext(ctx)
	if err != nil {
		return fmt.Errorf("reading bucket name: %w", err)
	}
	endpoint, err := b.endpoint.Plaintext(ctx)
	if err != nil {
		return fmt.Errorf("reading bucket endpoint: %w", err)
	}

	_, err = dag.Container().
		From("amazon/aws-cli:latest").
		WithSecretVariable("AWS_ACCESS_KEY_ID", b.accessKeyId).
		WithSecretVariable("AWS_SECRET_ACCESS_KEY", b.secretAccessKey).
		WithEnvVariable("AWS_DEFAULT_REGION", "auto").
		WithDirectory("/dist", artifacts).
		WithExec([]string{
			"aws", "s3", "sync", "/dist",
			"s3://" + path.Join(name, "aide", channel),
			"--endpoint-url", endpoint,
			"--delete",
		}).
		Sync(ctx)
	if err != nil {
		return fmt.Errorf("syncing %s artifacts: %w", channel, err)
	}
	return nil
}

// Release packages a tagged version and publishes it under its version and
// under "latest".
func (a *Aide) Release(
	ctx context.Context,

	// Release tag (e.g., "v1.0.0")
	version string,

	// Git commit SHA
	commit string,

	// Bucket endpoint URL
	endpoint *dagger.Secret,

	// Bucket name
	bucketName *dagger.Secret,

	// Bucket access key ID
	accessKeyId *dagger.Secret,

	// Bucket secret access key
	secretAccessKey *dagger.Secret,
) (*dagger.Directory, error) {
	if !strings.HasPrefix(version, "v") {
		return nil, fmt.Errorf("release version %q must start with 'v'", version)
	}

	artifacts, err := a.Package(ctx, version, commit)
	if err != nil {
		return nil, err
	}

	b := bucket{endpoint: endpoint, name: bucketName, accessKeyId: accessKeyId, secretAccessKey: secretAccessKey}
	for _, channel := range []string{version, "latest"} {
		if err := a.sync(ctx, artifacts, channel, b); err != nil {
			return artifacts, err
		}
	}
	return artifacts, nil
}

// Nightly packages the current commit and publishes it under
// nightly/<yyyy-mm-dd>.
func (a *Aide) Nightly(
	ctx context.Context,

	// Git commit SHA
	commit string,

	// Bucket endpoint URL
	endpoint *dagger.Secret,

	// Bucket name
	bucketName *dagger.Secret,

	// Bucket access key ID
	accessKeyId *dagger.Secret,

	// Bucket secret access key
	secretAccessKey *dagger.Secret,
) (*dagger.Directory, error) {
	artifacts, err := a.Package(ctx, "nightly", commit)
	if err != nil {
		return nil, err
	}

	b := bucket{endpoint: endpoint, name: bucketName, accessKeyId: accessKeyId, secretAccessKey: secretAccessKey}
	channel := path.Join("nightly", time.Now().UTC().Format(time.DateOnly))
	return artifacts, a.sync(ctx, artifacts, channel, b)
}
