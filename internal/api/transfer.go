package api

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strings"

	"github.com/vitaminmoo/gyverhub/internal/config"
	"github.com/vitaminmoo/gyverhub/internal/firmware"
	"github.com/vitaminmoo/gyverhub/internal/protocol"
)

// DefaultUploadChunk is used when the device does not advertise max_upl
const DefaultUploadChunk = 200

// Fetch downloads path through fetch and fetch_chunk, writing to w.
// The session is stopped on any error.
func (c *Client) Fetch(ctx context.Context, path string, w io.Writer, progress firmware.ProgressCallback) (int64, error) {
	if _, err := c.expect(ctx, "fetch", path, protocol.TypeFetchStart); err != nil {
		return 0, fmt.Errorf("failed to start fetch: %w", err)
	}

	var written int64
	for {
		f, err := c.expect(ctx, "fetch_chunk", "", protocol.TypeFetchChunk)
		if err != nil {
			c.stopFetch(ctx)
			return written, fmt.Errorf("failed to fetch chunk: %w", err)
		}
		var chunk struct {
			Chunk  int    `json:"chunk"`
			Amount int    `json:"amount"`
			Data   string `json:"data"`
		}
		if err := decodeFrame(f, &chunk); err != nil {
			c.stopFetch(ctx)
			return written, fmt.Errorf("failed to parse chunk: %w", err)
		}
		data, err := base64.StdEncoding.DecodeString(chunk.Data)
		if err != nil {
			c.stopFetch(ctx)
			return written, fmt.Errorf("failed to decode chunk %d: %w", chunk.Chunk, err)
		}
		n, err := w.Write(data)
		written += int64(n)
		if err != nil {
			c.stopFetch(ctx)
			return written, err
		}
		config.Debugf("Fetched chunk %d/%d (%d bytes)", chunk.Chunk+1, chunk.Amount, len(data))
		if progress != nil {
			progress(int64(chunk.Chunk+1), int64(chunk.Amount), "fetch")
		}
		if chunk.Chunk+1 >= chunk.Amount {
			return written, nil
		}
	}
}

func (c *Client) stopFetch(ctx context.Context) {
	// fetch_stop has no answer
	_, _ = c.Raw(ctx, c.Path("fetch_stop", "", "", false))
}

// rawChunk converts the advertised base64 chunk size into source bytes
func rawChunk(maxUpload int) int {
	if maxUpload <= 0 {
		maxUpload = DefaultUploadChunk
	}
	n := maxUpload / 4 * 3
	if n < 3 {
		n = 3
	}
	return n
}

// Upload stores data at path through upload and upload_chunk. maxUpload is
// the max_upl value from discover.
func (c *Client) Upload(ctx context.Context, path string, data []byte, maxUpload int, progress firmware.ProgressCallback) error {
	if _, err := c.expect(ctx, "upload", path, protocol.TypeUploadStart); err != nil {
		return fmt.Errorf("failed to start upload: %w", err)
	}
	return c.sendChunks(ctx, "upload_chunk", data, maxUpload, progress,
		protocol.TypeUploadChunk, protocol.TypeUploadEnd)
}

// OTA sends a firmware image for target ("flash" or "fs") through ota and
// ota_chunk
func (c *Client) OTA(ctx context.Context, target string, image []byte, maxUpload int, progress firmware.ProgressCallback) error {
	if _, err := c.expect(ctx, "ota", target, protocol.TypeOTAStart); err != nil {
		return fmt.Errorf("failed to start update: %w", err)
	}
	return c.sendChunks(ctx, "ota_chunk", image, maxUpload, progress,
		protocol.TypeOTAChunk, protocol.TypeOTAEnd)
}

func (c *Client) sendChunks(ctx context.Context, verb string, data []byte, maxUpload int, progress firmware.ProgressCallback, nextType, endType string) error {
	size := rawChunk(maxUpload)
	total := int64(len(data))
	sent := int64(0)
	for {
		n := min(size, len(data))
		marker := "next"
		if n == len(data) {
			marker = "last"
		}
		value := base64.StdEncoding.EncodeToString(data[:n])
		want := nextType
		if marker == "last" {
			want = endType
		}
		if _, err := c.expectValue(ctx, verb, marker, value, want); err != nil {
			return fmt.Errorf("chunk at offset %d failed: %w", sent, err)
		}
		data = data[n:]
		sent += int64(n)
		if progress != nil {
			progress(sent, total, strings.TrimSuffix(verb, "_chunk"))
		}
		if marker == "last" {
			return nil
		}
	}
}

// ----- direct HTTP endpoints -----

func (c *Client) endpoint(path string, q url.Values) string {
	q.Set("client_id", c.clientID)
	return c.base + path + "?" + q.Encode()
}

func (c *Client) do(req *http.Request) (*http.Response, error) {
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		resp.Body.Close()
		return nil, fmt.Errorf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	return resp, nil
}

// FetchHTTP downloads path in one request
func (c *Client) FetchHTTP(ctx context.Context, path string, w io.Writer) (int64, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint("/hub/fetch", url.Values{"path": {path}}), nil)
	if err != nil {
		return 0, err
	}
	resp, err := c.do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()
	return io.Copy(w, resp.Body)
}

func (c *Client) postFile(ctx context.Context, u, field, name string, data []byte) error {
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile(field, name)
	if err != nil {
		return err
	}
	if _, err := part.Write(data); err != nil {
		return err
	}
	if err := mw.Close(); err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u, &body)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	resp, err := c.do(req)
	if err != nil {
		return err
	}
	resp.Body.Close()
	return nil
}

// UploadHTTP stores data at path in one multipart request
func (c *Client) UploadHTTP(ctx context.Context, path string, data []byte) error {
	name := path[strings.LastIndex(path, "/")+1:]
	return c.postFile(ctx, c.endpoint("/hub/upload", url.Values{"path": {path}}), "upload", name, data)
}

// OTAHTTP sends a whole firmware image in one multipart request
func (c *Client) OTAHTTP(ctx context.Context, target string, image []byte) error {
	return c.postFile(ctx, c.endpoint("/hub/ota", url.Values{"type": {target}}), "firmware", target+".bin", image)
}
