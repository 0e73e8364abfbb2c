package modelstore

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
)

// ErrUnsupportedURI is returned for a scheme no store handles
var ErrUnsupportedURI = errors.New("unsupported model URI")

const (
	SchemeFile = "file"
	SchemeS3   = "s3"
)

// Location is a parsed artifact URI
type Location struct {
	Scheme string
	// Path is the filesystem path for file locations
	Path   string
	Bucket string
	Key    string
}

// ParseURI accepts file:///path, s3://bucket/key or a bare filesystem path
func ParseURI(uri string) (Location, error) {
	uri = strings.TrimSpace(uri)
	if uri == "" {
		return Location{}, fmt.Errorf("%w: empty", ErrUnsupportedURI)
	}
	if !strings.Contains(uri, "://") {
		return Location{Scheme: SchemeFile, Path: uri}, nil
	}

	u, err := url.Parse(uri)
	if err != nil {
		return Location{}, fmt.Errorf("%w: %v", ErrUnsupportedURI, err)
	}

	switch strings.ToLower(u.Scheme) {
	case SchemeFile:
		path := u.Path
		if u.Host != "" && u.Host != "localhost" {
			// file://relative/path
			path = u.Host + u.Path
		}
		if path == "" {
			return Location{}, fmt.Errorf("%w: %q has no path", ErrUnsupportedURI, uri)
		}
		return Location{Scheme: SchemeFile, Path: path}, nil
	case SchemeS3:
		key := strings.TrimPrefix(u.Path, "/")
		if u.Host == "" || key == "" {
			return Location{}, fmt.Errorf("%w: %q needs a bucket and a key", ErrUnsupportedURI, uri)
		}
		return Location{Scheme: SchemeS3, Bucket: u.Host, Key: key}, nil
	default:
		return Location{}, fmt.Errorf("%w: scheme %q", ErrUnsupportedURI, u.Scheme)
	}
}

func (l Location) String() string {
	if l.Scheme == SchemeS3 {
		return "s3://" + l.Bucket + "/" + l.Key
	}
	return l.Path
}
