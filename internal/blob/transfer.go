package blob

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
)

// Transferrer moves blob bodies over presigned URLs.
type Transferrer interface {
	Upload(ctx context.Context, url string, data []byte) error
	Download(ctx context.Context, url string) ([]byte, error)
}

// HTTPTransferrer is the default Transferrer over a plain HTTP client.
type HTTPTransferrer struct {
	Client *http.Client
}

func (t *HTTPTransferrer) client() *http.Client {
	if t.Client != nil {
		return t.Client
	}
	return http.DefaultClient
}

// Upload PUTs data to a presigned URL.
func (t *HTTPTransferrer) Upload(ctx context.Context, url string, data []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, url, bytes.NewReader(data))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/octet-stream")

	resp, err := t.client().Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("upload failed: %s; body: %s", resp.Status, string(b))
	}
	return nil
}

// Download GETs a blob body from a presigned URL.
func (t *HTTPTransferrer) Download(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}

	resp, err := t.client().Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("download failed: %s; body: %s", resp.Status, string(b))
	}
	return io.ReadAll(resp.Body)
}
