package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"strconv"
	"strings"
	"time"

	"socialgrid/internal/models"
	"socialgrid/internal/quiz"
	"socialgrid/internal/submission"
)

// APIError is a non-2xx response from the API.
type APIError struct {
	Status  int
	Message string
	Code    string
	Details string
}

func (e *APIError) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("%s: %s", e.Message, e.Details)
	}
	return e.Message
}

// Client is a thin HTTP client for the socialgrid API.
type Client struct {
	baseURL string
	http    *http.Client
}

// New returns a client for baseURL. A nil httpClient uses a 30s timeout client.
func New(baseURL string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	return &Client{baseURL: strings.TrimRight(baseURL, "/"), http: httpClient}
}

// CreatePostResponse mirrors the server's upload response.
type CreatePostResponse struct {
	Message string       `json:"message"`
	Post    *models.Post `json:"post"`
}

// Submit uploads sub as multipart form data (file, twitterUrl, userId).
func (c *Client) Submit(ctx context.Context, sub *submission.Submission) (*CreatePostResponse, error) {
	var body bytes.Buffer
	writer := multipart.NewWriter(&body)

	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename=%q`, sub.FileName))
	h.Set("Content-Type", sub.MIMEType)
	part, err := writer.CreatePart(h)
	if err != nil {
		return nil, err
	}
	if _, err := part.Write(sub.Image); err != nil {
		return nil, err
	}
	if err := writer.WriteField("twitterUrl", sub.TwitterURL); err != nil {
		return nil, err
	}
	if err := writer.WriteField("userId", sub.UserID); err != nil {
		return nil, err
	}
	if err := writer.Close(); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/posts", &body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	var out CreatePostResponse
	if err := c.do(req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Feed fetches every post with the feed totals.
func (c *Client) Feed(ctx context.Context) (*models.Feed, error) {
	var out models.Feed
	if err := c.get(ctx, "/api/posts", &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Quota fetches the remaining post quota for userID.
func (c *Client) Quota(ctx context.Context, userID string) (*models.Quota, error) {
	var out models.Quota
	if err := c.get(ctx, "/api/users/"+url.PathEscape(userID)+"/quota", &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Quiz fetches one page of quiz questions.
func (c *Client) Quiz(ctx context.Context, page int) (*quiz.Page, error) {
	var out quiz.Page
	if err := c.get(ctx, "/api/quiz?page="+strconv.Itoa(page), &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Answer submits an answer for question id.
func (c *Client) Answer(ctx context.Context, id, answer int) (*quiz.Result, error) {
	payload, err := json.Marshal(map[string]int{"answer": answer})
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		fmt.Sprintf("%s/api/quiz/%d/answer", c.baseURL, id), bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	var out quiz.Result
	if err := c.do(req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) get(ctx context.Context, path string, dest any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return err
	}
	return c.do(req, dest)
}

func (c *Client) do(req *http.Request, dest any) error {
	req.Header.Set("Accept", "application/json")
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", req.Method, req.URL.Path, err)
	}
	defer func() { _ = resp.Body.Close() }()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := &APIError{Status: resp.StatusCode}
		var body models.ErrorResponse
		if json.Unmarshal(raw, &body) == nil && body.Error != "" {
			apiErr.Message = body.Error
			apiErr.Code = body.Code
			apiErr.Details = body.Details
		} else {
			apiErr.Message = http.StatusText(resp.StatusCode)
		}
		return apiErr
	}

	if err := json.Unmarshal(raw, dest); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
