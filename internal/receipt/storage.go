package receipt

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"time"
)

// uploadTimeout bounds the object-storage call; an upload that hangs is
// treated as a failure and retried by the job queue.
const uploadTimeout = 30 * time.Second

// HTTPStorage uploads artifacts with a PUT to {base}/{name} and serves
// them back from the same URL.
type HTTPStorage struct {
	BaseURL string
	Client  *http.Client
}

func NewHTTPStorage(baseURL string) *HTTPStorage {
	return &HTTPStorage{
		BaseURL: strings.TrimRight(baseURL, "/"),
		Client:  &http.Client{Timeout: uploadTimeout},
	}
}

func (s *HTTPStorage) Upload(ctx context.Context, name string, data []byte) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, uploadTimeout)
	defer cancel()

	url := s.BaseURL + "/" + name
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, url, bytes.NewReader(data))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "text/html; charset=utf-8")

	resp, err := s.Client.Do(req)
	if err != nil {
		return "", fmt.Errorf("upload %s: %w", name, err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("upload %s: status %d", name, resp.StatusCode)
	}
	return url, nil
}

// LogNotifier is the default Notifier: it only logs. Real delivery
// (email with the artifact attached, realtime push) plugs in here.
type LogNotifier struct{}

func (LogNotifier) ReceiptReady(ctx context.Context, email, url string) error {
	log.Printf("📨 receipt ready for %s: %s", email, url)
	return nil
}
