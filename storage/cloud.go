package storage

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/janelia-flyem/mosaic/mosaic"

	"gocloud.dev/blob"
	"gocloud.dev/blob/fileblob"
	"gocloud.dev/blob/gcsblob"
	_ "gocloud.dev/blob/memblob"
	_ "gocloud.dev/blob/s3blob"
	"gocloud.dev/gcerrors"
	"gocloud.dev/gcp"
)

// IsBucketRef returns true if the reference names a bucket rather than a local path.
func IsBucketRef(ref string) bool {
	return strings.Contains(ref, "://")
}

// splitRef splits "<bucket>/<prefix>" into its parts.  The prefix, if any, ends in a slash.
func splitRef(ref string) (bucketName, prefix string) {
	parts := strings.SplitN(ref, "/", 2)
	bucketName = parts[0]
	if len(parts) == 2 && parts[1] != "" {
		prefix = strings.TrimSuffix(parts[1], "/") + "/"
	}
	return
}

// OpenBucket returns a blob.Bucket for the given reference.
// The reference should be of the form:
//
//	/some/local/directory or file:///some/local/directory
//	mem://
//	gs://<bucketname>[/<prefix>]
//	s3://<bucketname>[/<prefix>]
//	vast://<endpoint>/<bucketname>
//
// Local directories must already exist.
func OpenBucket(ctx context.Context, ref string) (bucket *blob.Bucket, err error) {
	switch {
	case !IsBucketRef(ref) || strings.HasPrefix(ref, "file://"):
		dir := strings.TrimPrefix(ref, "file://")
		if dir, err = filepath.Abs(dir); err != nil {
			return nil, err
		}
		bucket, err = fileblob.OpenBucket(dir, nil)
		if err != nil {
			mosaic.Errorf("Can't open directory %q as bucket: %v\n", dir, err)
			return nil, err
		}

	case strings.HasPrefix(ref, "mem://"):
		bucket, err = blob.OpenBucket(ctx, "mem://")
		if err != nil {
			return nil, err
		}

	case strings.HasPrefix(ref, "s3://"):
		// Credentials come from the usual AWS configuration and AWS_REGION must be set.
		name, prefix := splitRef(strings.TrimPrefix(ref, "s3://"))
		bucket, err = blob.OpenBucket(ctx, "s3://"+name)
		if err != nil {
			mosaic.Errorf("Can't open bucket reference @ %q: %v\n", ref, err)
			return nil, err
		}
		if prefix != "" {
			bucket = blob.PrefixedBucket(bucket, prefix)
		}

	case strings.HasPrefix(ref, "vast://"):
		// S3-compatible storage at a custom endpoint.  AWS_REGION must be set but is
		// ignored, and AWS_SHARED_CREDENTIALS_FILE should hold the access keys.
		parts := strings.SplitN(strings.TrimPrefix(ref, "vast://"), "/", 2)
		if len(parts) != 2 || parts[1] == "" {
			return nil, mosaic.NewConfigError("vast ref must be of form 'vast://<endpoint>/<bucket>', got %q", ref)
		}
		url := fmt.Sprintf("s3://%s?endpoint=%s&s3ForcePathStyle=true", parts[1], parts[0])
		bucket, err = blob.OpenBucket(ctx, url)
		if err != nil {
			mosaic.Errorf("Can't open bucket reference @ %q: %v\n", ref, err)
			return nil, err
		}

	case strings.HasPrefix(ref, "gs://"):
		// See https://cloud.google.com/docs/authentication/production for the
		// ways default credentials are found.
		creds, err := gcp.DefaultCredentials(ctx)
		if err != nil {
			return nil, err
		}
		client, err := gcp.NewHTTPClient(gcp.DefaultTransport(), gcp.CredentialsTokenSource(creds))
		if err != nil {
			return nil, err
		}
		name, prefix := splitRef(strings.TrimPrefix(ref, "gs://"))
		bucket, err = gcsblob.OpenBucket(ctx, client, name, nil)
		if err != nil {
			mosaic.Errorf("Can't open bucket reference @ %q: %v\n", ref, err)
			return nil, err
		}
		if prefix != "" {
			bucket = blob.PrefixedBucket(bucket, prefix)
		}

	default:
		return nil, mosaic.NewConfigError("unsupported bucket reference %q", ref)
	}
	return bucket, nil
}

// isNotFound returns true if a blob error means the object does not exist.
func isNotFound(err error) bool {
	return gcerrors.Code(err) == gcerrors.NotFound
}
