package echelle

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"cloud.google.com/go/storage"
	"github.com/carbocation/pfx"
)

// IsGoogleStoragePath reports whether path looks like gs://bucket/object.
func IsGoogleStoragePath(path string) bool {
	return strings.HasPrefix(path, "gs://")
}

// splitGSPath returns the bucket and object name of a gs:// path.
func splitGSPath(path string) (bucket, object string, err error) {
	pathParts := strings.SplitN(strings.TrimPrefix(path, "gs://"), "/", 2)
	if len(pathParts) != 2 || pathParts[0] == "" || pathParts[1] == "" {
		return "", "", fmt.Errorf("Tried to split your google storage path into 2 parts, but got %d: %v", len(pathParts), pathParts)
	}

	return pathParts[0], pathParts[1], nil
}

// MaybeOpenFromGoogleStorage opens a gs:// path with client, or a local path
// otherwise (~ is expanded). Errors from opening a local file are returned
// unmodified.
func MaybeOpenFromGoogleStorage(path string, client *storage.Client) (io.ReadCloser, error) {
	if IsGoogleStoragePath(path) {
		if client == nil {
			return nil, fmt.Errorf("%s: a Google Storage client is required to read gs:// paths", path)
		}

		bucketName, pathName, err := splitGSPath(path)
		if err != nil {
			return nil, err
		}

		rdr, err := client.Bucket(bucketName).Object(pathName).NewReader(context.Background())
		if err != nil {
			return nil, pfx.Err(fmt.Errorf("%s: %s", path, err))
		}

		return rdr, nil
	}

	local, err := ExpandHome(path)
	if err != nil {
		return nil, err
	}

	f, err := os.Open(local)
	if err != nil {
		return nil, err
	}

	return f, nil
}

// Output is a destination that is either kept with Close or discarded with
// Abort. Only one of the two should be called.
type Output interface {
	io.WriteCloser
	Abort() error
}

// gsOutput commits the object on Close. Abort cancels the upload so the
// existing object, if any, is left as it was.
type gsOutput struct {
	*storage.Writer
	cancel context.CancelFunc
}

func (o *gsOutput) Close() error {
	defer o.cancel()
	return o.Writer.Close()
}

func (o *gsOutput) Abort() error {
	o.cancel()

	// Close after cancel reports the cancellation and does not commit.
	o.Writer.Close()

	return nil
}

// localOutput removes the partial file on Abort.
type localOutput struct {
	*os.File
}

func (o *localOutput) Abort() error {
	o.File.Close()
	return os.Remove(o.File.Name())
}

// MaybeCreateInGoogleStorage returns a writer for a gs:// path with client, or
// creates (truncating) a local file otherwise. An existing object or file is
// replaced when Close succeeds. Abort discards the output: a gs:// object is
// never committed, and a local file is removed.
func MaybeCreateInGoogleStorage(path string, client *storage.Client) (Output, error) {
	if IsGoogleStoragePath(path) {
		if client == nil {
			return nil, fmt.Errorf("%s: a Google Storage client is required to write gs:// paths", path)
		}

		bucketName, pathName, err := splitGSPath(path)
		if err != nil {
			return nil, err
		}

		ctx, cancel := context.WithCancel(context.Background())
		w := client.Bucket(bucketName).Object(pathName).NewWriter(ctx)
		w.ContentType = "application/fits"

		return &gsOutput{Writer: w, cancel: cancel}, nil
	}

	local, err := ExpandHome(path)
	if err != nil {
		return nil, err
	}

	f, err := os.Create(local)
	if err != nil {
		return nil, err
	}

	return &localOutput{File: f}, nil
}
