// Package source resolves document locations into readable local files.
// Local paths are used in place; gs://bucket/object URIs are downloaded
// to a temporary file that is removed by the returned cleanup.
package source

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"slices"
	"sort"
	"strings"
	"sync"

	"cloud.google.com/go/storage"
	"google.golang.org/api/iterator"
)

const gcsScheme = "gs://"

// DefaultExtensions are the document types picked up when expanding
// directories and bucket prefixes.
var DefaultExtensions = []string{".pdf", ".txt", ".md", ".markdown"}

var (
	ErrNotFound  = errors.New("document not found")
	ErrDirectory = errors.New("path is a directory")
	ErrBadURI    = errors.New("malformed gs:// URI")
)

// Resolver implements ports.SourceResolver for local files and GCS objects.
type Resolver struct {
	mu         sync.Mutex
	client     *storage.Client
	extensions []string
	logger     *slog.Logger
}

// NewResolver creates a Resolver. The storage client is created on the
// first gs:// path so purely local runs need no credentials.
func NewResolver(logger *slog.Logger) *Resolver {
	if logger == nil {
		logger = slog.Default()
	}
	return &Resolver{extensions: DefaultExtensions, logger: logger}
}

// Resolve implements ports.SourceResolver.
func (r *Resolver) Resolve(ctx context.Context, p string) (string, func(), error) {
	if IsGCS(p) {
		return r.download(ctx, p)
	}

	info, err := os.Stat(p)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", nil, fmt.Errorf("%w: %s", ErrNotFound, p)
		}
		return "", nil, fmt.Errorf("stat %s: %w", p, err)
	}
	if info.IsDir() {
		return "", nil, fmt.Errorf("%w: %s", ErrDirectory, p)
	}
	return p, func() {}, nil
}

// Expand turns directories and gs:// prefixes ending in "/" into the sorted
// list of supported documents they contain. Other paths pass through.
func (r *Resolver) Expand(ctx context.Context, paths []string) ([]string, error) {
	var out []string
	for _, p := range paths {
		switch {
		case IsGCS(p) && strings.HasSuffix(p, "/"):
			found, err := r.listPrefix(ctx, p)
			if err != nil {
				return nil, err
			}
			out = append(out, found...)
		case !IsGCS(p) && isDir(p):
			found, err := r.walk(p)
			if err != nil {
				return nil, err
			}
			out = append(out, found...)
		default:
			out = append(out, p)
		}
	}
	return out, nil
}

// Supported reports whether a path has one of the resolver's extensions.
func (r *Resolver) Supported(p string) bool {
	return slices.Contains(r.extensions, strings.ToLower(path.Ext(p)))
}

// Close releases the storage client, if one was created.
func (r *Resolver) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.client == nil {
		return nil
	}
	err := r.client.Close()
	r.client = nil
	return err
}

// IsGCS reports whether p is a gs:// URI.
func IsGCS(p string) bool {
	return strings.HasPrefix(p, gcsScheme)
}

// ParseGCS splits gs://bucket/object into its parts. object may be empty.
func ParseGCS(uri string) (bucket, object string, err error) {
	if !IsGCS(uri) {
		return "", "", fmt.Errorf("%w: %s", ErrBadURI, uri)
	}
	rest := strings.TrimPrefix(uri, gcsScheme)
	bucket, object, _ = strings.Cut(rest, "/")
	if bucket == "" {
		return "", "", fmt.Errorf("%w: %s", ErrBadURI, uri)
	}
	return bucket, object, nil
}

func (r *Resolver) storageClient(ctx context.Context) (*storage.Client, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.client != nil {
		return r.client, nil
	}
	client, err := storage.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("creating storage client: %w", err)
	}
	r.client = client
	return client, nil
}

func (r *Resolver) download(ctx context.Context, uri string) (string, func(), error) {
	bucket, object, err := ParseGCS(uri)
	if err != nil {
		return "", nil, err
	}
	if object == "" || strings.HasSuffix(object, "/") {
		return "", nil, fmt.Errorf("%w: %s", ErrDirectory, uri)
	}

	client, err := r.storageClient(ctx)
	if err != nil {
		return "", nil, err
	}

	reader, err := client.Bucket(bucket).Object(object).NewReader(ctx)
	if err != nil {
		if errors.Is(err, storage.ErrObjectNotExist) {
			return "", nil, fmt.Errorf("%w: %s", ErrNotFound, uri)
		}
		return "", nil, fmt.Errorf("opening %s: %w", uri, err)
	}
	defer reader.Close()

	tmp, err := os.CreateTemp("", "agentic-rag-*"+path.Ext(object))
	if err != nil {
		return "", nil, fmt.Errorf("creating temp file: %w", err)
	}
	cleanup := func() { os.Remove(tmp.Name()) }

	n, err := io.Copy(tmp, reader)
	if closeErr := tmp.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		cleanup()
		return "", nil, fmt.Errorf("downloading %s: %w", uri, err)
	}

	r.logger.Debug("downloaded object", "uri", uri, "bytes", n, "local", tmp.Name())
	return tmp.Name(), cleanup, nil
}

func (r *Resolver) listPrefix(ctx context.Context, uri string) ([]string, error) {
	bucket, prefix, err := ParseGCS(uri)
	if err != nil {
		return nil, err
	}
	client, err := r.storageClient(ctx)
	if err != nil {
		return nil, err
	}

	it := client.Bucket(bucket).Objects(ctx, &storage.Query{Prefix: prefix})
	var names []string
	for {
		attrs, err := it.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("listing %s: %w", uri, err)
		}
		if r.Supported(attrs.Name) {
			names = append(names, gcsScheme+bucket+"/"+attrs.Name)
		}
	}
	sort.Strings(names)
	r.logger.Info("expanded bucket prefix", "uri", uri, "documents", len(names))
	return names, nil
}

func (r *Resolver) walk(dir string) ([]string, error) {
	var files []string
	err := filepath.WalkDir(dir, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() && r.Supported(p) {
			files = append(files, p)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walking %s: %w", dir, err)
	}
	sort.Strings(files)
	return files, nil
}

func isDir(p string) bool {
	info, err := os.Stat(p)
	return err == nil && info.IsDir()
}
