package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tracebloc/ingestor/pkg/ingest/core/config"
	"github.com/tracebloc/ingestor/pkg/ingest/core/model"
	"github.com/tracebloc/ingestor/pkg/ingest/retry"
)

func testPolicy() retry.Policy {
	return retry.NewPolicy(config.RetryConfig{
		MaxAttempts:     3,
		InitialInterval: 1,
		MaxInterval:     5,
		Factor:          2.0,
	})
}

func newTestClient(t *testing.T, handler http.Handler) (*Client, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	client, err := NewClient(config.APIConfig{
		Endpoint:       srv.URL,
		Username:       "user",
		Password:       "pass",
		TimeoutSeconds: 5,
		Environment:    "test",
	}, testPolicy())
	require.NoError(t, err)
	return client, srv
}

// authThen wraps a handler with the token-auth endpoint.
func authThen(next http.HandlerFunc) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/api-token-auth/", func(w http.ResponseWriter, r *http.Request) {
		var creds map[string]string
		if err := json.NewDecoder(r.Body).Decode(&creds); err != nil || creds["username"] == "" {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		json.NewEncoder(w).Encode(map[string]string{"token": "tok-123"})
	})
	if next != nil {
		mux.HandleFunc("/", next)
	}
	return mux
}

func TestNewClient_Authenticates(t *testing.T) {
	client, _ := newTestClient(t, authThen(nil))
	assert.Equal(t, "tok-123", client.token)
}

func TestNewClient_AuthFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	_, err := NewClient(config.APIConfig{
		Endpoint:       srv.URL,
		TimeoutSeconds: 5,
		Environment:    "test",
	}, testPolicy())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "authentication failed")
}

func TestNewClient_LocalModeSkipsAuth(t *testing.T) {
	client, err := NewClient(config.APIConfig{
		Endpoint:    "http://unreachable.invalid",
		Environment: "local",
	}, testPolicy())
	require.NoError(t, err)
	assert.True(t, client.local)

	// Every call short-circuits without touching the network.
	ctx := context.Background()
	assert.NoError(t, client.SendBatch(ctx, "pets", []model.Record{{"data_id": "a"}}))
	assert.NoError(t, client.SendGenerateEdgeLabelMeta(ctx, "pets", "ing-1", model.IntentTrain))
	assert.NoError(t, client.SendGlobalMeta(ctx, "pets", model.Schema{}, nil))
	assert.NoError(t, client.PrepareDataset(ctx, model.TabularClassification, "ing-1", "csv", model.IntentTrain))
	resp, err := client.CreateDataset(ctx, "", model.TabularClassification, "ing-1")
	require.NoError(t, err)
	assert.NotEmpty(t, resp)
}

func TestSendBatch_PayloadAndAuthHeader(t *testing.T) {
	var gotAuth string
	var gotPayload []map[string]interface{}

	client, _ := newTestClient(t, authThen(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/global_meta/pets/" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		gotAuth = r.Header.Get("Authorization")
		json.NewDecoder(r.Body).Decode(&gotPayload)
		w.WriteHeader(http.StatusOK)
	}))

	batch := []model.Record{{
		model.FieldDataID:     "a",
		model.FieldDataIntent: "train",
		model.FieldLabel:      "cat",
		model.FieldIngestorID: "ing-1",
	}}
	err := client.SendBatch(context.Background(), "pets", batch)
	require.NoError(t, err)

	assert.Equal(t, "TOKEN tok-123", gotAuth)
	require.Len(t, gotPayload, 1)
	assert.Equal(t, "a", gotPayload[0]["data_id"])
	assert.Equal(t, "train", gotPayload[0]["data_intent"])
	assert.Equal(t, "cat", gotPayload[0]["label"])
	assert.Equal(t, false, gotPayload[0]["is_sample"])
	assert.Equal(t, "ing-1", gotPayload[0]["ingestor_id"])
}

func TestDoJSON_RetriesOn5xx(t *testing.T) {
	var calls int32

	client, _ := newTestClient(t, authThen(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))

	err := client.SendGenerateEdgeLabelMeta(context.Background(), "pets", "ing-1", model.IntentTrain)
	require.NoError(t, err)
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
}

func TestDoJSON_RetryBudgetIsBounded(t *testing.T) {
	var calls int32

	client, _ := newTestClient(t, authThen(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusBadGateway)
	}))

	err := client.PrepareDataset(context.Background(), model.TabularClassification, "ing-1", "csv", model.IntentTrain)
	require.Error(t, err)
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls), "attempts must stop at the configured maximum")
}

func TestDoJSON_NoRetryOn4xx(t *testing.T) {
	var calls int32

	client, _ := newTestClient(t, authThen(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusUnprocessableEntity)
	}))

	err := client.SendGlobalMeta(context.Background(), "pets", model.Schema{"name": "VARCHAR(255)"}, nil)
	require.Error(t, err)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestCreateDataset_TitleAndFeatureModification(t *testing.T) {
	var gotBody map[string]interface{}

	client, _ := newTestClient(t, authThen(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/dataset/" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		json.NewDecoder(r.Body).Decode(&gotBody)
		json.NewEncoder(w).Encode(map[string]string{"id": "ds-1"})
	}))

	resp, err := client.CreateDataset(context.Background(), "", model.TabularClassification, "ing-1")
	require.NoError(t, err)
	assert.Equal(t, "ds-1", resp["id"])
	assert.Equal(t, "tabular_classification_ing-1", gotBody["title"])
	assert.Equal(t, true, gotBody["allow_feature_modification"])

	_, err = client.CreateDataset(context.Background(), "my-set", model.ImageClassification, "ing-1")
	require.NoError(t, err)
	assert.Equal(t, "my-set", gotBody["title"])
	assert.Equal(t, false, gotBody["allow_feature_modification"])
}

func TestPrepareDataset_RejectsInvalidCategory(t *testing.T) {
	client, _ := newTestClient(t, authThen(nil))

	err := client.PrepareDataset(context.Background(), "sorting", "ing-1", "csv", model.IntentTrain)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid task category")
}
