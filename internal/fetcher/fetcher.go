// Package fetcher pulls drawing files into the local uploads directory from
// HTTP and FTP sources. It handles zipped drawing sets, register manifests
// (CSV or XLSX), and legacy-encoded text notes, and records every imported
// file as a document.
package fetcher

import (
	"context"
	"io"
)

// Fetcher downloads remote drawing files.
type Fetcher interface {
	// Download fetches the URL and returns the response body.
	Download(ctx context.Context, url string) (io.ReadCloser, error)

	// DownloadToFile fetches the URL and writes it to the given path. Returns bytes written.
	DownloadToFile(ctx context.Context, url string, path string) (int64, error)
}

// ConditionalFetcher is implemented by fetchers that can skip unchanged
// files. FTP servers rarely expose validators, so only HTTP implements it.
type ConditionalFetcher interface {
	Fetcher

	// HeadETag performs a HEAD request and returns the ETag header value.
	HeadETag(ctx context.Context, url string) (string, error)

	// DownloadIfChanged fetches the URL only if the ETag has changed.
	// Returns (body, newETag, changed, error). If not changed, body is nil and changed is false.
	DownloadIfChanged(ctx context.Context, url string, etag string) (io.ReadCloser, string, bool, error)
}
