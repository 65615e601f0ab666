package transport

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/angelmondragon/packtrack/pkg/config"
	pkgerrors "github.com/angelmondragon/packtrack/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(req *http.Request) (*http.Response, error) {
	return f(req)
}

func jsonResponse(status int, body string) *http.Response {
	return &http.Response{
		StatusCode: status,
		Status:     http.StatusText(status),
		Header:     http.Header{"Content-Type": []string{"application/json; charset=utf-8"}},
		Body:       io.NopCloser(strings.NewReader(body)),
	}
}

func newTestClient(t *testing.T, rt roundTripFunc, opts ...Option) *Client {
	t.Helper()
	opts = append([]Option{WithHTTPClient(&http.Client{Transport: rt})}, opts...)
	client, err := New(config.APIConfig{
		BaseURL: "http://packtrack.test/",
		Headers: map[string]string{"Accept": "application/json"},
	}, opts...)
	require.NoError(t, err)
	return client
}

func TestRequestUnwrapsSuccessfulEnvelope(t *testing.T) {
	var captured *http.Request
	client := newTestClient(t, func(req *http.Request) (*http.Response, error) {
		captured = req
		return jsonResponse(http.StatusOK, `{"isSuccessful":true,"data":{"id":"p-1"},"errors":[],"errorMessage":null}`), nil
	})

	payload, err := client.Request(context.Background(), "/Package/p-1", RequestOptions{})
	require.NoError(t, err)
	assert.Equal(t, PayloadJSON, payload.Kind)
	assert.JSONEq(t, `{"id":"p-1"}`, string(payload.Bytes()))

	assert.Equal(t, "http://packtrack.test/api/v1/Package/p-1", captured.URL.String())
	assert.Equal(t, http.MethodGet, captured.Method)
	assert.Equal(t, "application/json", captured.Header.Get("Accept"))
	assert.NotEmpty(t, captured.Header.Get("X-Request-ID"))
	assert.Empty(t, captured.Header.Get("Content-Type"), "bodyless requests carry no content type")
}

func TestRequestNullDataResolvesToNull(t *testing.T) {
	client := newTestClient(t, func(*http.Request) (*http.Response, error) {
		return jsonResponse(http.StatusOK, `{"isSuccessful":true,"data":null,"errors":[],"errorMessage":null}`), nil
	})

	payload, err := client.Request(context.Background(), "/Package", RequestOptions{})
	require.NoError(t, err)
	assert.Equal(t, "null", string(payload.Bytes()))
}

func TestRequestUnsuccessfulEnvelopeRaisesAPIError(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		message string
	}{
		{"error message wins", `{"isSuccessful":false,"data":null,"errors":["a","b"],"errorMessage":"tracking number taken"}`, "tracking number taken"},
		{"joined errors", `{"isSuccessful":false,"data":null,"errors":["a","b"],"errorMessage":null}`, "a, b"},
		{"fallback", `{"isSuccessful":false,"data":null,"errors":[],"errorMessage":null}`, "Unknown error"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := newTestClient(t, func(*http.Request) (*http.Response, error) {
				return jsonResponse(http.StatusOK, tt.body), nil
			})

			_, err := client.Request(context.Background(), "/Package", RequestOptions{})
			var apiErr *APIError
			require.ErrorAs(t, err, &apiErr)
			assert.Equal(t, tt.message, apiErr.Error())
			assert.Equal(t, http.StatusOK, apiErr.HTTPStatus())
			assert.Equal(t, pkgerrors.CodeAPI, pkgerrors.Classify(err, "getPackages").Code)
		})
	}
}

func TestRequestNon2xxUsesBodyOrDefaultMessage(t *testing.T) {
	client := newTestClient(t, func(req *http.Request) (*http.Response, error) {
		if strings.HasSuffix(req.URL.Path, "/missing") {
			return &http.Response{
				StatusCode: http.StatusNotFound,
				Status:     "404 Not Found",
				Header:     http.Header{},
				Body:       io.NopCloser(strings.NewReader("")),
			}, nil
		}
		return &http.Response{
			StatusCode: http.StatusConflict,
			Status:     "409 Conflict",
			Header:     http.Header{},
			Body:       io.NopCloser(strings.NewReader("duplicate tracking number")),
		}, nil
	})

	_, err := client.Request(context.Background(), "/Package/missing", RequestOptions{})
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, "HTTP 404: Not Found", apiErr.Message)
	assert.Equal(t, "Not Found", apiErr.StatusText())
	assert.Equal(t, pkgerrors.CodeNotFound, pkgerrors.Classify(err, "getPackage(missing)").Code)

	_, err = client.Request(context.Background(), "/Package", RequestOptions{Method: http.MethodPost, Body: map[string]string{}})
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, "duplicate tracking number", apiErr.Message)
	assert.Equal(t, []string{"duplicate tracking number"}, apiErr.ErrorList())
	assert.Equal(t, pkgerrors.CodeConflict, pkgerrors.Classify(err, "createPackage").Code)
}

func TestRequestEmptyAndTextResponses(t *testing.T) {
	client := newTestClient(t, func(req *http.Request) (*http.Response, error) {
		switch req.URL.Path {
		case "/api/v1/empty":
			return &http.Response{StatusCode: http.StatusNoContent, Header: http.Header{}, Body: io.NopCloser(strings.NewReader(""))}, nil
		case "/api/v1/zero":
			return &http.Response{
				StatusCode: http.StatusOK,
				Header:     http.Header{"Content-Type": []string{"application/json"}, "Content-Length": []string{"0"}},
				Body:       io.NopCloser(strings.NewReader("")),
			}, nil
		}
		return &http.Response{
			StatusCode: http.StatusOK,
			Header:     http.Header{"Content-Type": []string{"text/plain"}},
			Body:       io.NopCloser(strings.NewReader("pong")),
		}, nil
	})

	payload, err := client.Request(context.Background(), "/empty", RequestOptions{})
	require.NoError(t, err)
	assert.Equal(t, PayloadEmpty, payload.Kind)
	assert.Equal(t, "{}", string(payload.Bytes()))

	payload, err = client.Request(context.Background(), "/zero", RequestOptions{})
	require.NoError(t, err)
	assert.Equal(t, PayloadEmpty, payload.Kind)

	payload, err = client.Request(context.Background(), "/ping", RequestOptions{})
	require.NoError(t, err)
	assert.Equal(t, PayloadText, payload.Kind)
	assert.Equal(t, "pong", payload.Text)
}

func TestRequestMalformedEnvelopeIsUnexpected(t *testing.T) {
	client := newTestClient(t, func(*http.Request) (*http.Response, error) {
		return jsonResponse(http.StatusOK, `{"isSuccessful":`), nil
	})

	_, err := client.Request(context.Background(), "/Package", RequestOptions{})
	var unexpected *UnexpectedError
	require.ErrorAs(t, err, &unexpected)
	assert.Equal(t, pkgerrors.CodeUnknown, pkgerrors.Classify(err, "getPackages").Code)
}

func TestRequestOversizedBodyIsUnexpected(t *testing.T) {
	oversized := strings.Repeat("a", int(responseBodyReadLimit)+1)
	client := newTestClient(t, func(*http.Request) (*http.Response, error) {
		return &http.Response{
			StatusCode: http.StatusOK,
			Header:     http.Header{"Content-Type": []string{"text/plain"}},
			Body:       io.NopCloser(strings.NewReader(oversized)),
		}, nil
	})

	payload, err := client.Request(context.Background(), "/export", RequestOptions{})
	assert.Nil(t, payload)
	var unexpected *UnexpectedError
	require.ErrorAs(t, err, &unexpected)
	assert.ErrorIs(t, err, ErrResponseTooLarge)
	assert.Equal(t, pkgerrors.CodeUnknown, pkgerrors.Classify(err, "getPackages").Code)
}

func TestRequestBodyAtLimitIsKept(t *testing.T) {
	body := strings.Repeat("a", int(responseBodyReadLimit))
	client := newTestClient(t, func(*http.Request) (*http.Response, error) {
		return &http.Response{
			StatusCode: http.StatusOK,
			Header:     http.Header{"Content-Type": []string{"text/plain"}},
			Body:       io.NopCloser(strings.NewReader(body)),
		}, nil
	})

	payload, err := client.Request(context.Background(), "/export", RequestOptions{})
	require.NoError(t, err)
	assert.Len(t, payload.Text, int(responseBodyReadLimit))
}

func TestRequestConnectionFailureIsNetworkClass(t *testing.T) {
	client := newTestClient(t, func(*http.Request) (*http.Response, error) {
		return nil, errors.New("dial tcp: connection refused")
	})

	_, err := client.Request(context.Background(), "/Package", RequestOptions{})
	var netErr *NetworkError
	require.ErrorAs(t, err, &netErr)
	assert.False(t, netErr.Timeout)

	classified := pkgerrors.Classify(err, "getPackages")
	assert.Equal(t, pkgerrors.CodeNetwork, classified.Code)
	assert.Equal(t, 0, classified.HTTPStatusCode())
}

func TestRequestHeadersMergeAndAuth(t *testing.T) {
	var captured http.Header
	var capturedBody string
	client := newTestClient(t, func(req *http.Request) (*http.Response, error) {
		captured = req.Header.Clone()
		if req.Body != nil {
			raw, _ := io.ReadAll(req.Body)
			capturedBody = string(raw)
		}
		return jsonResponse(http.StatusOK, `{"isSuccessful":true,"data":{},"errors":[],"errorMessage":null}`), nil
	})

	require.NoError(t, client.SetAuthToken("opaque-token"))
	client.UpdateHeaders(map[string]string{"x-tenant": "acme"})

	_, err := client.Request(context.Background(), "/Sender", RequestOptions{
		Method:  http.MethodPost,
		Headers: map[string]string{"Accept": "text/plain", "X-Request-ID": "req-1"},
		Body:    map[string]string{"name": "Ada"},
	})
	require.NoError(t, err)
	assert.Equal(t, "Bearer opaque-token", captured.Get("Authorization"))
	assert.Equal(t, "acme", captured.Get("X-Tenant"))
	assert.Equal(t, "text/plain", captured.Get("Accept"), "per-request headers win")
	assert.Equal(t, "req-1", captured.Get("X-Request-ID"))
	assert.Equal(t, "application/json", captured.Get("Content-Type"))
	assert.JSONEq(t, `{"name":"Ada"}`, capturedBody)

	client.RemoveAuthToken()
	_, err = client.Request(context.Background(), "/Package", RequestOptions{})
	require.NoError(t, err)
	assert.Empty(t, captured.Get("Authorization"))
	_, ok := client.Headers()["Authorization"]
	assert.False(t, ok)

	assert.Error(t, client.SetAuthToken("  "))
}

func TestHeadersReturnsCopy(t *testing.T) {
	client := newTestClient(t, func(*http.Request) (*http.Response, error) {
		return jsonResponse(http.StatusOK, `{"isSuccessful":true,"data":null,"errors":[],"errorMessage":null}`), nil
	})
	headers := client.Headers()
	headers["Accept"] = "text/html"
	assert.Equal(t, "application/json", client.Headers()["Accept"])
}

func TestRequestTimeoutIsNetworkClass(t *testing.T) {
	release := make(chan struct{})
	var once sync.Once
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-release:
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"isSuccessful":true,"data":{"late":true},"errors":[],"errorMessage":null}`))
	}))
	defer server.Close()
	defer once.Do(func() { close(release) })

	client, err := New(config.APIConfig{BaseURL: server.URL, Timeout: 50 * time.Millisecond})
	require.NoError(t, err)

	started := time.Now()
	payload, err := client.Request(context.Background(), "/Package", RequestOptions{})
	elapsed := time.Since(started)

	require.Error(t, err)
	assert.Nil(t, payload)
	var netErr *NetworkError
	require.ErrorAs(t, err, &netErr)
	assert.True(t, netErr.Timeout)
	assert.Less(t, elapsed, 2*time.Second)

	classified := pkgerrors.Classify(err, "getPackages")
	assert.Equal(t, pkgerrors.CodeNetwork, classified.Code)
	assert.Equal(t, "Request timed out", classified.Message)
}

func TestNewRequiresBaseURL(t *testing.T) {
	_, err := New(config.APIConfig{})
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeConfig))
}
