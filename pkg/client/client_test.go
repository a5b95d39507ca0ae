package client

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVerify(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/v1/verify", r.URL.Path)
		assert.Equal(t, "rp_key_test", r.Header.Get("X-API-Key"))

		var req VerifyRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "CBE", req.BankCode)

		json.NewEncoder(w).Encode(VerifyResult{
			Verified: true,
			Receipt: &Receipt{
				SenderName:        "John Doe",
				ReferenceNo:       "FT24123ABCDE",
				TransferredAmount: "500.00 ETB",
			},
		})
	}))
	defer srv.Close()

	c := New(srv.URL, "rp_key_test")
	result, err := c.Verify(context.Background(), VerifyRequest{
		BankCode:        "CBE",
		Reference:       "FT24123ABCDE",
		ReceiverAccount: "1000000004532",
	})
	require.NoError(t, err)

	assert.True(t, result.Verified)
	require.NotNil(t, result.Receipt)
	assert.Equal(t, "John Doe", result.Receipt.SenderName)
	assert.Nil(t, result.Failure)
}

func TestVerify_Failure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(VerifyResult{
			Failure: &Failure{
				Stage:     "fetch",
				Kind:      "NOT_YET_AVAILABLE",
				Message:   "receipt not yet available",
				Retryable: true,
			},
		})
	}))
	defer srv.Close()

	c := New(srv.URL, "")
	result, err := c.Verify(context.Background(), VerifyRequest{
		BankCode:        "CBE",
		Reference:       "FT24123ABCDE",
		ReceiverAccount: "1000000004532",
	})
	require.NoError(t, err)

	assert.False(t, result.Verified)
	require.NotNil(t, result.Failure)
	assert.Equal(t, "NOT_YET_AVAILABLE", result.Failure.Kind)
	assert.True(t, result.Failure.Retryable)
}

func TestListBanks(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/banks", r.URL.Path)
		json.NewEncoder(w).Encode(map[string]any{
			"banks": []Bank{
				{Code: "CBE", DisplayName: "Commercial Bank of Ethiopia"},
				{Code: "DASHEN", DisplayName: "Dashen Bank"},
			},
		})
	}))
	defer srv.Close()

	c := New(srv.URL, "")
	banks, err := c.ListBanks(context.Background())
	require.NoError(t, err)
	require.Len(t, banks, 2)
	assert.Equal(t, "CBE", banks[0].Code)
}

func TestListAttempts(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/attempts", r.URL.Path)
		assert.Equal(t, "10", r.URL.Query().Get("limit"))
		json.NewEncoder(w).Encode(map[string]any{
			"attempts": []Attempt{{ID: "a1", BankCode: "CBE", Verified: true}},
		})
	}))
	defer srv.Close()

	c := New(srv.URL, "rp_key_test")
	attempts, err := c.ListAttempts(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, attempts, 1)
	assert.Equal(t, "a1", attempts[0].ID)
}

func TestAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		json.NewEncoder(w).Encode(map[string]any{
			"error": map[string]any{"code": "UNAUTHORIZED", "message": "API key required"},
		})
	}))
	defer srv.Close()

	c := New(srv.URL, "")
	_, err := c.ListAttempts(context.Background(), 0)
	require.Error(t, err)

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusUnauthorized, apiErr.StatusCode)
	assert.Equal(t, "UNAUTHORIZED", apiErr.Code)
}

func TestAPIError_UnstructuredBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		w.Write([]byte("upstream exploded"))
	}))
	defer srv.Close()

	c := New(srv.URL, "")
	_, err := c.ListBanks(context.Background())
	require.Error(t, err)

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, "UNKNOWN", apiErr.Code)
	assert.Contains(t, apiErr.Message, "upstream exploded")
}

func TestWithHTTPClient(t *testing.T) {
	custom := &http.Client{}
	c := New("http://localhost:8080", "", WithHTTPClient(custom))
	assert.Same(t, custom, c.httpClient)
}
