// Package parse implements the client for the hosted document-parsing service.
// A single blocking Parse call uploads the document with a parsing instruction,
// waits for the job to finish, and returns the collated markdown output.
package parse

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"
)

const (
	// DefaultBaseURL points at the hosted LlamaParse cloud API.
	DefaultBaseURL = "https://api.cloud.llamaindex.ai"

	// DefaultParseMode is the agentic parsing mode used for translation work.
	DefaultParseMode = "parse_document_with_agent"

	// DefaultResultType asks the service for markdown output.
	DefaultResultType = "markdown"

	defaultHTTPTimeout  = 60 * time.Second
	defaultPollInterval = 2 * time.Second
	defaultPollTimeout  = 10 * time.Minute
)

// Client talks to the document-parsing service. One Parse call maps to one
// upload, a poll loop until the job settles, and one result fetch.
type Client struct {
	// BaseURL can be overridden to point at a test server.
	BaseURL string

	// ParseMode and ResultType are sent verbatim with every upload.
	ParseMode  string
	ResultType string

	// PollInterval and PollTimeout bound the wait for job completion.
	PollInterval time.Duration
	PollTimeout  time.Duration

	apiKey     string
	httpClient *http.Client
}

// NewClient creates a parsing client. The credential is required up front:
// a missing key is a configuration error, not something to discover on the
// first request.
func NewClient(apiKey string) (*Client, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("parse: API key not provided")
	}
	return &Client{
		BaseURL:      DefaultBaseURL,
		ParseMode:    DefaultParseMode,
		ResultType:   DefaultResultType,
		PollInterval: defaultPollInterval,
		PollTimeout:  defaultPollTimeout,
		apiKey:       apiKey,
		httpClient: &http.Client{
			Timeout: defaultHTTPTimeout,
		},
	}, nil
}

// jobResponse is the envelope returned by the upload and status endpoints.
type jobResponse struct {
	ID     string `json:"id"`
	Status string `json:"status"`
	Error  string `json:"error_message,omitempty"`
}

// resultResponse carries the ordered document segments of a finished job.
type resultResponse struct {
	Documents []documentSegment `json:"documents"`
}

type documentSegment struct {
	Text string `json:"text"`
}

// Parse submits the file at path with the given instruction and blocks until
// the service returns the parsed document. The instruction is sent both as
// the formatting directive and as the user prompt, matching how the service
// treats translation requests. Any failure is logged with the file path and
// returned to the caller unchanged; there is no retry and no partial result.
func (c *Client) Parse(ctx context.Context, path string, instruction string) (string, error) {
	md, err := c.parse(ctx, path, instruction)
	if err != nil {
		log.Printf("[Parse] error parsing document %s: %v", path, err)
		return "", err
	}
	log.Printf("[Parse] successfully parsed document: %s", path)
	return md, nil
}

func (c *Client) parse(ctx context.Context, path string, instruction string) (string, error) {
	job, err := c.upload(ctx, path, instruction)
	if err != nil {
		return "", err
	}

	if err := c.waitForJob(ctx, job); err != nil {
		return "", err
	}

	segments, err := c.fetchResult(ctx, job)
	if err != nil {
		return "", err
	}

	return Collate(segments), nil
}

// upload sends the document and parsing parameters as a multipart form.
func (c *Client) upload(ctx context.Context, path string, instruction string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("opening document: %w", err)
	}
	defer f.Close()

	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)

	part, err := writer.CreateFormFile("file", filepath.Base(path))
	if err != nil {
		return "", fmt.Errorf("building upload form: %w", err)
	}
	if _, err := io.Copy(part, f); err != nil {
		return "", fmt.Errorf("reading document: %w", err)
	}

	fields := map[string]string{
		"result_type":                         c.ResultType,
		"parse_mode":                          c.ParseMode,
		"complemental_formatting_instruction": instruction,
		"user_prompt":                         instruction,
	}
	for name, value := range fields {
		if err := writer.WriteField(name, value); err != nil {
			return "", fmt.Errorf("building upload form: %w", err)
		}
	}
	if err := writer.Close(); err != nil {
		return "", fmt.Errorf("building upload form: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.BaseURL+"/api/v1/parsing/upload", body)
	if err != nil {
		return "", fmt.Errorf("creating upload request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	var job jobResponse
	if err := c.doJSON(req, &job); err != nil {
		return "", fmt.Errorf("uploading document: %w", err)
	}
	if job.ID == "" {
		return "", fmt.Errorf("uploading document: service returned no job id")
	}

	return job.ID, nil
}

// waitForJob polls the job status until the service reports SUCCESS.
// The poll loop is internal plumbing of the service's job API; from the
// caller's point of view Parse is still one blocking call.
func (c *Client) waitForJob(ctx context.Context, jobID string) error {
	// Fall back to the defaults when the caller left the poll settings
	// unset; time.NewTicker panics on a non-positive interval.
	interval := c.PollInterval
	if interval <= 0 {
		interval = defaultPollInterval
	}
	timeout := c.PollTimeout
	if timeout <= 0 {
		timeout = defaultPollTimeout
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	deadline := time.NewTimer(timeout)
	defer deadline.Stop()

	for {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet,
			c.BaseURL+"/api/v1/parsing/job/"+jobID, nil)
		if err != nil {
			return fmt.Errorf("creating status request: %w", err)
		}
		req.Header.Set("Authorization", "Bearer "+c.apiKey)

		var job jobResponse
		if err := c.doJSON(req, &job); err != nil {
			return fmt.Errorf("checking job %s: %w", jobID, err)
		}

		switch strings.ToUpper(job.Status) {
		case "SUCCESS":
			return nil
		case "ERROR", "CANCELED":
			if job.Error != "" {
				return fmt.Errorf("job %s failed: %s", jobID, job.Error)
			}
			return fmt.Errorf("job %s failed with status %s", jobID, job.Status)
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-deadline.C:
			return fmt.Errorf("job %s did not finish within %v", jobID, timeout)
		case <-ticker.C:
		}
	}
}

// fetchResult retrieves the ordered document segments of a finished job.
func (c *Client) fetchResult(ctx context.Context, jobID string) ([]string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		c.BaseURL+"/api/v1/parsing/job/"+jobID+"/result/json", nil)
	if err != nil {
		return nil, fmt.Errorf("creating result request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	var result resultResponse
	if err := c.doJSON(req, &result); err != nil {
		return nil, fmt.Errorf("fetching result for job %s: %w", jobID, err)
	}

	texts := make([]string, 0, len(result.Documents))
	for _, doc := range result.Documents {
		texts = append(texts, doc.Text)
	}
	return texts, nil
}

// doJSON executes the request and decodes a JSON body into out. Non-2xx
// responses become errors carrying the service's response text.
func (c *Client) doJSON(req *http.Request, out interface{}) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("reading response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("service returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(raw)))
	}

	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}
	return nil
}

// Collate joins ordered document segments into one markdown string with a
// blank line between consecutive segments. No separator is introduced for a
// single segment, and zero segments collate to the empty string.
func Collate(segments []string) string {
	return strings.Join(segments, "\n\n")
}
