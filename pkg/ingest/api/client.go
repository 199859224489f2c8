// Package api implements the metadata delivery client: token authentication,
// per-batch metadata sends, and the ordered post-processing calls that close
// out an ingestion run.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/tracebloc/ingestor/pkg/ingest/core/config"
	"github.com/tracebloc/ingestor/pkg/ingest/core/model"
	"github.com/tracebloc/ingestor/pkg/ingest/retry"
	"github.com/tracebloc/ingestor/pkg/ingest/support/exception"
	"github.com/tracebloc/ingestor/pkg/ingest/support/logger"
)

// retryableStatuses are the HTTP statuses worth another attempt.
var retryableStatuses = map[int]bool{
	http.StatusInternalServerError: true,
	http.StatusBadGateway:          true,
	http.StatusServiceUnavailable:  true,
	http.StatusGatewayTimeout:      true,
}

// Client talks to the remote metadata API. The auth token is obtained once at
// construction and reused for the lifetime of the client. When the configured
// environment is "local" every call short-circuits to success without
// touching the network.
type Client struct {
	baseURL    string
	token      string
	local      bool
	httpClient *http.Client
	policy     retry.Policy
}

// NewClient builds a Client and authenticates against the remote API unless
// the environment is "local".
func NewClient(cfg config.APIConfig, policy retry.Policy) (*Client, error) {
	c := &Client{
		baseURL: strings.TrimRight(cfg.Endpoint, "/"),
		local:   strings.EqualFold(cfg.Environment, "local"),
		httpClient: &http.Client{
			Timeout: time.Duration(cfg.TimeoutSeconds) * time.Second,
		},
		policy: policy,
	}

	if c.local {
		c.token = "mock_token"
		logger.Infof("Skipping API authentication for local mode")
		return c, nil
	}

	token, err := c.authenticate(context.Background(), cfg.Username, cfg.Password)
	if err != nil {
		return nil, err
	}
	c.token = token
	logger.Infof("API authentication successful")
	return c, nil
}

// authenticate exchanges credentials for a token.
func (c *Client) authenticate(ctx context.Context, username, password string) (string, error) {
	body := map[string]string{"username": username, "password": password}

	var resp struct {
		Token string `json:"token"`
	}
	if err := c.doJSON(ctx, http.MethodPost, "/api-token-auth/", nil, body, &resp); err != nil {
		return "", exception.New("api", "authentication failed", err, false, false)
	}
	if resp.Token == "" {
		return "", exception.Newf("api", "authentication response carried no token")
	}
	return resp.Token, nil
}

// batchEntry is the per-record payload of a batch send.
type batchEntry struct {
	DataID     string `json:"data_id"`
	DataIntent string `json:"data_intent"`
	Label      string `json:"label"`
	IsSample   bool   `json:"is_sample"`
	IngestorID string `json:"ingestor_id"`
}

// SendBatch pushes the metadata of one persisted batch to the remote API.
func (c *Client) SendBatch(ctx context.Context, tableName string, batch []model.Record) error {
	if c.local {
		logger.Infof("Mock: would send %d records to API", len(batch))
		return nil
	}

	payload := make([]batchEntry, 0, len(batch))
	for _, rec := range batch {
		intent := rec[model.FieldDataIntent]
		if intent == "" {
			intent = string(model.IntentTrain)
		}
		payload = append(payload, batchEntry{
			DataID:     rec[model.FieldDataID],
			DataIntent: intent,
			Label:      rec[model.FieldLabel],
			IsSample:   false,
			IngestorID: rec[model.FieldIngestorID],
		})
	}

	path := fmt.Sprintf("/global_meta/%s/", tableName)
	if err := c.doJSON(ctx, http.MethodPost, path, nil, payload, nil); err != nil {
		return exception.New("api", fmt.Sprintf("failed to send batch of %d records", len(batch)), err, false, true)
	}
	return nil
}

// SendGenerateEdgeLabelMeta asks the API to derive edge label metadata for
// the ingested table. First step of the post-processing chain.
func (c *Client) SendGenerateEdgeLabelMeta(ctx context.Context, tableName, ingestorID string, intent model.Intent) error {
	if c.local {
		logger.Infof("Mock: would generate edge labels for %s", tableName)
		return nil
	}

	query := url.Values{}
	query.Set("table_name", tableName)
	query.Set("ingestor_id", ingestorID)
	query.Set("data_intent", string(intent))

	if err := c.doJSON(ctx, http.MethodGet, "/global_meta/generate-edge-labels-meta/", query, nil, nil); err != nil {
		return exception.New("api", "failed to generate edge label metadata", err, false, true)
	}
	logger.Infof("Generated edge label metadata for '%s'", tableName)
	return nil
}

// SendGlobalMeta registers the table schema and additional metadata with the
// remote API. Second step of the post-processing chain.
func (c *Client) SendGlobalMeta(ctx context.Context, tableName string, schema model.Schema, metaData map[string]interface{}) error {
	if c.local {
		logger.Infof("Mock: would send schema for %s", tableName)
		return nil
	}

	body := map[string]interface{}{
		"table_name": tableName,
		"schema":     schema,
		"meta_data":  metaData,
	}
	if err := c.doJSON(ctx, http.MethodPost, "/global_meta/global_metadata/", nil, body, nil); err != nil {
		return exception.New("api", "failed to send global metadata", err, false, true)
	}
	logger.Infof("Registered schema for '%s'", tableName)
	return nil
}

// PrepareDataset triggers server-side dataset preparation. Third step of the
// post-processing chain.
func (c *Client) PrepareDataset(ctx context.Context, category model.TaskCategory, ingestorID, dataFormat string, intent model.Intent) error {
	if c.local {
		logger.Infof("Mock: would prepare dataset for %s", category)
		return nil
	}
	if !category.IsValid() {
		return exception.Newf("api", "invalid task category: %s", category)
	}

	query := url.Values{}
	query.Set("category", string(category))
	query.Set("ingestor_id", ingestorID)
	query.Set("data_format", dataFormat)
	query.Set("data_intent", string(intent))

	if err := c.doJSON(ctx, http.MethodGet, "/global_meta/prepare/", query, nil, nil); err != nil {
		return exception.New("api", "failed to prepare dataset", err, false, true)
	}
	logger.Infof("Prepared dataset for category '%s'", category)
	return nil
}

// CreateDataset creates the dataset record. Final step of the
// post-processing chain. When title is empty one is derived from the
// category and ingestor id. Feature modification is only allowed for tabular
// classification datasets.
func (c *Client) CreateDataset(ctx context.Context, title string, category model.TaskCategory, ingestorID string) (map[string]interface{}, error) {
	if c.local {
		logger.Infof("Mock: would create dataset for %s", category)
		return map[string]interface{}{"id": "mock_dataset_id", "title": "Mock Dataset"}, nil
	}

	if title == "" {
		title = fmt.Sprintf("%s_%s", category, ingestorID)
	}
	body := map[string]interface{}{
		"title":                      title,
		"allow_feature_modification": category == model.TabularClassification,
	}

	var resp map[string]interface{}
	if err := c.doJSON(ctx, http.MethodPost, "/dataset/", nil, body, &resp); err != nil {
		return nil, exception.New("api", "failed to create dataset", err, false, true)
	}
	logger.Infof("Created dataset '%s'", title)
	return resp, nil
}

// doJSON performs one JSON request with retry on transient failure, decoding
// the response into out when out is non-nil.
func (c *Client) doJSON(ctx context.Context, method, path string, query url.Values, body, out interface{}) error {
	var payload []byte
	if body != nil {
		var err error
		payload, err = json.Marshal(body)
		if err != nil {
			return exception.New("api", "failed to encode request body", err, false, false)
		}
	}

	endpoint := c.baseURL + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	return c.policy.Do(ctx, method+" "+path, exception.IsTemporary, func() error {
		var reader io.Reader
		if payload != nil {
			reader = bytes.NewReader(payload)
		}
		req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
		if err != nil {
			return exception.New("api", "failed to build request", err, false, false)
		}
		if c.token != "" {
			req.Header.Set("Authorization", "TOKEN "+c.token)
		}
		if payload != nil {
			req.Header.Set("Content-Type", "application/json")
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return exception.New("api", fmt.Sprintf("request to %s failed", path), err, false, true)
		}
		defer resp.Body.Close()

		if resp.StatusCode >= 400 {
			text, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
			return exception.New("api",
				fmt.Sprintf("HTTP %d from %s: %s", resp.StatusCode, path, strings.TrimSpace(string(text))),
				nil, false, retryableStatuses[resp.StatusCode])
		}

		if out != nil {
			if err := json.NewDecoder(resp.Body).Decode(out); err != nil && err != io.EOF {
				return exception.New("api", "failed to decode response body", err, false, false)
			}
		}
		return nil
	})
}
