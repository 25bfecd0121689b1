// Package data ingests the training table from a remote or local CSV.
package data

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/TungPhamDuy/azmlproject3/pkg/common"
	"github.com/schollz/progressbar/v3"
)

// DefaultURL is the bank-marketing training file.
const DefaultURL = "https://automlsamplenotebookdata.blob.core.windows.net/automl-sample-notebook-data/bankmarketing_train.csv"

// Fetcher downloads delimited files over HTTP.
type Fetcher struct {
	Client   *http.Client
	Retry    common.RetryOptions
	Progress io.Writer // nil disables the progress bar
}

// NewFetcher creates a fetcher with the given per-request timeout and attempt count.
func NewFetcher(timeout time.Duration, attempts int) *Fetcher {
	return &Fetcher{
		Client:   &http.Client{Timeout: timeout},
		Retry:    common.RetryOptions{MaxAttempts: attempts, InitialDelay: 500 * time.Millisecond},
		Progress: os.Stderr,
	}
}

// Fetch loads the table at location. http(s) URLs are downloaded; file:// URLs
// and plain paths are read from disk.
func (f *Fetcher) Fetch(ctx context.Context, location string) (*Frame, error) {
	if !strings.HasPrefix(location, "http://") && !strings.HasPrefix(location, "https://") {
		return LoadFile(strings.TrimPrefix(location, "file://"))
	}

	var body []byte
	err := common.WithRetry(ctx, func() error {
		b, err := f.download(ctx, location)
		if err != nil {
			return err
		}
		body = b
		return nil
	}, f.Retry)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", common.ErrDownload, err)
	}

	slog.Debug("Dataset downloaded", "url", location, "bytes", len(body))
	return ReadCSV(bytes.NewReader(body))
}

func (f *Fetcher) download(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, common.Permanent(fmt.Errorf("failed to build request: %w", err))
	}

	client := f.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, common.Permanent(ctx.Err())
		}
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		err := fmt.Errorf("unexpected status %s", resp.Status)
		if resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests {
			return nil, err
		}
		return nil, common.Permanent(err)
	}

	var buf bytes.Buffer
	var dst io.Writer = &buf
	if f.Progress != nil {
		bar := progressbar.NewOptions64(resp.ContentLength,
			progressbar.OptionSetWriter(f.Progress),
			progressbar.OptionSetDescription("Downloading dataset"),
			progressbar.OptionShowBytes(true),
			progressbar.OptionClearOnFinish(),
		)
		defer func() { _ = bar.Finish() }()
		dst = io.MultiWriter(&buf, bar)
	}

	if _, err := io.Copy(dst, resp.Body); err != nil {
		return nil, fmt.Errorf("failed to read body: %w", err)
	}
	return buf.Bytes(), nil
}
