package stream

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"

	"github.com/dhowden/tag"

	"github.com/tejashwikalptaru/melodia/internal/domain"
)

// MaxSourceBytes caps how much of one audio resource is buffered.
const MaxSourceBytes = 64 << 20

// fetch reads the whole audio resource into memory. http(s) URLs are
// downloaded, file:// URLs and bare paths are read from disk.
func fetch(ctx context.Context, client *http.Client, source string) ([]byte, error) {
	if source == "" {
		return nil, domain.NewAudioEngineError("load", source, "empty source", domain.ErrUnsupportedFormat)
	}

	u, err := url.Parse(source)
	if err == nil && (u.Scheme == "http" || u.Scheme == "https") {
		return download(ctx, client, source)
	}

	path := source
	if err == nil && u.Scheme == "file" {
		path = u.Path
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, domain.NewAudioEngineError("load", source, "failed to open file", err)
	}
	defer func() { _ = f.Close() }()

	data, err := io.ReadAll(io.LimitReader(f, MaxSourceBytes))
	if err != nil {
		return nil, domain.NewAudioEngineError("load", source, "failed to read file", err)
	}
	return data, nil
}

func download(ctx context.Context, client *http.Client, source string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, source, nil)
	if err != nil {
		return nil, domain.NewAudioEngineError("load", source, "invalid url", err)
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, domain.NewAudioEngineError("load", source, "download failed", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, domain.NewAudioEngineError("load", source, fmt.Sprintf("download returned status %d", resp.StatusCode), nil)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, MaxSourceBytes))
	if err != nil {
		return nil, domain.NewAudioEngineError("load", source, "download interrupted", err)
	}
	return data, nil
}

// readMetadata extracts embedded tags. Untagged streams yield zero metadata.
func readMetadata(data []byte) domain.StreamMetadata {
	m, err := tag.ReadFrom(bytes.NewReader(data))
	if err != nil || m == nil {
		return domain.StreamMetadata{}
	}

	meta := domain.StreamMetadata{
		Title:  strings.TrimSpace(m.Title()),
		Artist: strings.TrimSpace(m.Artist()),
		Album:  strings.TrimSpace(m.Album()),
	}
	if pic := m.Picture(); pic != nil {
		meta.Artwork = pic.Data
		meta.MIMEType = pic.MIMEType
	}
	return meta
}

// nopCloser lets the decoder own an in-memory reader.
type nopCloser struct {
	*bytes.Reader
}

func (nopCloser) Close() error { return nil }
