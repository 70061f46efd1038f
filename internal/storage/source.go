package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"
)

// Downloader fetches one object by key.
type Downloader interface {
	Download(ctx context.Context, key, password string) ([]byte, *FileMetadata, error)
}

// ErrRefNotAllowed reports a source ref the Fetcher is not permitted to load.
var ErrRefNotAllowed = errors.New("source ref not allowed")

// Fetcher loads source documents referenced by s3://bucket/key,
// http(s):// URLs, file:// URLs or plain filesystem paths.
//
// The zero value only loads s3 refs. Local and web refs must be enabled
// explicitly with AllowFiles and AllowHTTP.
type Fetcher struct {
	HTTP     *http.Client
	Password string // opens encrypted S3 objects
	MaxBytes int64  // 0 means unlimited
	// OpenBucket returns a Downloader for bucket; defaults to NewS3Client.
	OpenBucket func(ctx context.Context, bucket string) (Downloader, error)

	AllowHTTP  bool
	AllowFiles bool
	// FileRoot confines local refs to one directory tree. Relative refs
	// resolve against it. Empty means any path when AllowFiles is set.
	FileRoot string
}

// Fetched is a loaded source document.
type Fetched struct {
	Data []byte
	Name string
}

// Fetch loads ref. An optional #fragment is ignored.
func (f *Fetcher) Fetch(ctx context.Context, ref string) (Fetched, error) {
	if i := strings.Index(ref, "#"); i >= 0 {
		ref = ref[:i]
	}
	switch {
	case strings.HasPrefix(ref, "s3://"):
		return f.fetchS3(ctx, ref)
	case strings.HasPrefix(ref, "http://") || strings.HasPrefix(ref, "https://"):
		if !f.AllowHTTP {
			return Fetched{}, fmt.Errorf("%w: http sources are disabled", ErrRefNotAllowed)
		}
		return f.fetchHTTP(ctx, ref)
	case strings.HasPrefix(ref, "file://"):
		return f.fetchFile(strings.TrimPrefix(ref, "file://"))
	case ref == "":
		return Fetched{}, fmt.Errorf("empty source ref")
	default:
		return f.fetchFile(ref)
	}
}

// ParseS3URL splits s3://bucket/key.
func ParseS3URL(ref string) (bucket, key string, err error) {
	p := strings.TrimPrefix(ref, "s3://")
	slash := strings.Index(p, "/")
	if slash <= 0 || slash == len(p)-1 {
		return "", "", fmt.Errorf("invalid s3 url: %s", ref)
	}
	return p[:slash], p[slash+1:], nil
}

func (f *Fetcher) fetchS3(ctx context.Context, ref string) (Fetched, error) {
	bucket, key, err := ParseS3URL(ref)
	if err != nil {
		return Fetched{}, err
	}
	open := f.OpenBucket
	if open == nil {
		open = func(ctx context.Context, bucket string) (Downloader, error) { return NewS3Client(ctx, bucket) }
	}
	dl, err := open(ctx, bucket)
	if err != nil {
		return Fetched{}, err
	}
	data, meta, err := dl.Download(ctx, key, f.Password)
	if err != nil {
		return Fetched{}, err
	}
	if err := f.checkSize(int64(len(data))); err != nil {
		return Fetched{}, err
	}
	name := path.Base(key)
	if meta != nil && meta.OriginalName != "" {
		name = meta.OriginalName
	}
	return Fetched{Data: data, Name: name}, nil
}

func (f *Fetcher) fetchHTTP(ctx context.Context, ref string) (Fetched, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, ref, nil)
	if err != nil {
		return Fetched{}, err
	}
	cli := f.HTTP
	if cli == nil {
		cli = http.DefaultClient
	}
	resp, err := cli.Do(req)
	if err != nil {
		return Fetched{}, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return Fetched{}, fmt.Errorf("fetch %s: http %d", ref, resp.StatusCode)
	}
	data, err := f.read(resp.Body)
	if err != nil {
		return Fetched{}, err
	}
	name := "document.pdf"
	if u, err := url.Parse(ref); err == nil {
		if b := path.Base(u.Path); b != "/" && b != "." {
			name = b
		}
	}
	return Fetched{Data: data, Name: name}, nil
}

func (f *Fetcher) fetchFile(p string) (Fetched, error) {
	if !f.AllowFiles {
		return Fetched{}, fmt.Errorf("%w: local file sources are disabled", ErrRefNotAllowed)
	}
	name := filepath.Base(p)
	p, err := f.confine(p)
	if err != nil {
		return Fetched{}, err
	}
	fh, err := os.Open(p)
	if err != nil {
		return Fetched{}, err
	}
	defer fh.Close()
	data, err := f.read(fh)
	if err != nil {
		return Fetched{}, err
	}
	return Fetched{Data: data, Name: name}, nil
}

// confine resolves p, following symlinks, and rejects it when it lies
// outside FileRoot.
func (f *Fetcher) confine(p string) (string, error) {
	if f.FileRoot == "" {
		return p, nil
	}
	root, err := filepath.Abs(f.FileRoot)
	if err != nil {
		return "", err
	}
	if root, err = filepath.EvalSymlinks(root); err != nil {
		return "", fmt.Errorf("file root: %w", err)
	}
	if !filepath.IsAbs(p) {
		p = filepath.Join(root, p)
	}
	resolved, err := filepath.EvalSymlinks(filepath.Clean(p))
	if err != nil {
		return "", err
	}
	rel, err := filepath.Rel(root, resolved)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("%w: %s is outside %s", ErrRefNotAllowed, p, f.FileRoot)
	}
	return resolved, nil
}

func (f *Fetcher) read(r io.Reader) ([]byte, error) {
	if f.MaxBytes <= 0 {
		return io.ReadAll(r)
	}
	data, err := io.ReadAll(io.LimitReader(r, f.MaxBytes+1))
	if err != nil {
		return nil, err
	}
	if err := f.checkSize(int64(len(data))); err != nil {
		return nil, err
	}
	return data, nil
}

func (f *Fetcher) checkSize(n int64) error {
	if f.MaxBytes > 0 && n > f.MaxBytes {
		return fmt.Errorf("source exceeds %d bytes", f.MaxBytes)
	}
	return nil
}
