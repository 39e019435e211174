package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/imroc/req"
	"github.com/klauspost/compress/gzip"
	"github.com/tidwall/gjson"
)

// APIError non-2xx response of the upload API
type APIError struct {
	StatusCode int
	Code       int
	Message    string
	Kind       string // restart, retry, fix_request or internal
	Missing    int
}

func (e *APIError) Error() string {
	return fmt.Sprintf("upload api %d (code %d, kind %s): %s", e.StatusCode, e.Code, e.Kind, e.Message)
}

// Retryable reports whether resending missing chunks or calling again can succeed
func (e *APIError) Retryable() bool {
	return e.Kind == "retry"
}

// FileInfo published file record
type FileInfo struct {
	ID          int64     `json:"id"`
	FileName    string    `json:"fileName"`
	StorageKey  string    `json:"storageKey"`
	FileSize    int64     `json:"fileSize"`
	ContentType string    `json:"contentType"`
	Bucket      string    `json:"bucket"`
	Category    string    `json:"category"`
	Owner       string    `json:"owner"`
	FileHash    string    `json:"fileHash"`
	Status      string    `json:"status"`
	CreatedAt   time.Time `json:"createdAt"`
}

// InitRequest body of POST /uploads
type InitRequest struct {
	FileName    string `json:"fileName"`
	TotalSize   int64  `json:"totalSize"`
	TotalChunks int    `json:"totalChunks"`
	Category    string `json:"category,omitempty"`
	Owner       string `json:"owner,omitempty"`
	FileHash    string `json:"fileHash,omitempty"`
}

// InitResponse either a fast-path file or a session to upload into
type InitResponse struct {
	FastPath           bool      `json:"fastPath"`
	SessionId          string    `json:"sessionId"`
	StorageKey         string    `json:"storageKey"`
	TotalChunks        int       `json:"totalChunks"`
	SuggestedChunkSize int64     `json:"suggestedChunkSize"`
	ExpiresAt          time.Time `json:"expiresAt"`
	File               *FileInfo `json:"file"`
}

// Progress received chunks of a session
type Progress struct {
	SessionId      string    `json:"sessionId"`
	State          string    `json:"state"`
	TotalChunks    int       `json:"totalChunks"`
	ReceivedCount  int       `json:"receivedCount"`
	ReceivedChunks []int     `json:"receivedChunks"`
	ReceivedBytes  int64     `json:"receivedBytes"`
	TotalSize      int64     `json:"totalSize"`
	ExpiresAt      time.Time `json:"expiresAt"`
}

// Client thin wrapper over the upload HTTP API
type Client struct {
	baseURL string
	r       *req.Req
	gzip    bool
}

// NewClient baseURL includes the API prefix, e.g. http://localhost:7282/api/v1
func NewClient(baseURL string, timeout time.Duration, gzipChunks bool) *Client {
	r := req.New()
	if timeout > 0 {
		r.SetTimeout(timeout)
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		r:       r,
		gzip:    gzipChunks,
	}
}

// decode checks the status and unmarshals the data field into out
func decode(resp *req.Resp, out interface{}) error {
	body, err := resp.ToBytes()
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}
	status := resp.Response().StatusCode

	if status != http.StatusOK {
		apiErr := &APIError{
			StatusCode: status,
			Code:       int(gjson.GetBytes(body, "code").Int()),
			Message:    gjson.GetBytes(body, "message").String(),
			Kind:       gjson.GetBytes(body, "data.kind").String(),
			Missing:    int(gjson.GetBytes(body, "data.missing").Int()),
		}
		if apiErr.Message == "" {
			apiErr.Message = http.StatusText(status)
		}
		return apiErr
	}

	if out == nil {
		return nil
	}
	data := gjson.GetBytes(body, "data")
	if !data.Exists() {
		return fmt.Errorf("response has no data field")
	}
	if err := json.Unmarshal([]byte(data.Raw), out); err != nil {
		return fmt.Errorf("failed to decode response data: %w", err)
	}
	return nil
}

// Init opens a session or takes the dedup fast path
func (c *Client) Init(ctx context.Context, in InitRequest) (*InitResponse, error) {
	resp, err := c.r.Post(c.baseURL+"/uploads", req.BodyJSON(&in), ctx)
	if err != nil {
		return nil, fmt.Errorf("init upload: %w", err)
	}
	var out InitResponse
	if err := decode(resp, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// UploadChunk sends one chunk, gzip-compressed when the client is configured to
func (c *Client) UploadChunk(ctx context.Context, sessionId string, chunkNumber int, data []byte) error {
	header := req.Header{"Content-Type": "application/octet-stream"}
	body := data
	if c.gzip {
		var buf bytes.Buffer
		zw := gzip.NewWriter(&buf)
		if _, err := zw.Write(data); err != nil {
			return fmt.Errorf("failed to compress chunk %d: %w", chunkNumber, err)
		}
		if err := zw.Close(); err != nil {
			return fmt.Errorf("failed to compress chunk %d: %w", chunkNumber, err)
		}
		body = buf.Bytes()
		header["Content-Encoding"] = "gzip"
	}

	url := fmt.Sprintf("%s/uploads/%s/chunks/%d", c.baseURL, sessionId, chunkNumber)
	resp, err := c.r.Put(url, header, body, ctx)
	if err != nil {
		return fmt.Errorf("upload chunk %d: %w", chunkNumber, err)
	}
	return decode(resp, nil)
}

// Complete merges and publishes the upload
func (c *Client) Complete(ctx context.Context, sessionId string) (*FileInfo, error) {
	resp, err := c.r.Post(c.baseURL+"/uploads/"+sessionId+"/complete", ctx)
	if err != nil {
		return nil, fmt.Errorf("complete upload: %w", err)
	}
	var out FileInfo
	if err := decode(resp, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Progress received chunks of a session
func (c *Client) Progress(ctx context.Context, sessionId string) (*Progress, error) {
	resp, err := c.r.Get(c.baseURL+"/uploads/"+sessionId, ctx)
	if err != nil {
		return nil, fmt.Errorf("get progress: %w", err)
	}
	var out Progress
	if err := decode(resp, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Abort discards a session
func (c *Client) Abort(ctx context.Context, sessionId string) error {
	resp, err := c.r.Delete(c.baseURL+"/uploads/"+sessionId, ctx)
	if err != nil {
		return fmt.Errorf("abort upload: %w", err)
	}
	return decode(resp, nil)
}

// File published record by id
func (c *Client) File(ctx context.Context, id int64) (*FileInfo, error) {
	resp, err := c.r.Get(fmt.Sprintf("%s/files/%d", c.baseURL, id), ctx)
	if err != nil {
		return nil, fmt.Errorf("get file: %w", err)
	}
	var out FileInfo
	if err := decode(resp, &out); err != nil {
		return nil, err
	}
	return &out, nil
}
