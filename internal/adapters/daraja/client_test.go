package daraja

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prive-wellness/payments-service/internal/core/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeDaraja struct {
	tokenCalls atomic.Int64
	pushCalls  atomic.Int64

	pushStatus int
	pushBody   any
	queryBody  any
}

func (f *fakeDaraja) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /oauth/v1/generate", func(w http.ResponseWriter, r *http.Request) {
		f.tokenCalls.Add(1)
		user, pass, ok := r.BasicAuth()
		if !ok || user != "test-key" || pass != "test-secret" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		json.NewEncoder(w).Encode(map[string]string{
			"access_token": "test-token",
			"expires_in":   "3599",
		})
	})
	mux.HandleFunc("POST /mpesa/stkpush/v1/processrequest", func(w http.ResponseWriter, r *http.Request) {
		f.pushCalls.Add(1)
		if r.Header.Get("Authorization") != "Bearer test-token" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		status := f.pushStatus
		if status == 0 {
			status = http.StatusOK
		}
		w.WriteHeader(status)
		json.NewEncoder(w).Encode(f.pushBody)
	})
	mux.HandleFunc("POST /mpesa/stkpushquery/v1/query", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(f.queryBody)
	})
	return mux
}

func newTestClient(baseURL string) *Client {
	return &Client{
		baseURL:     baseURL,
		shortcode:   "174379",
		passkey:     "test-passkey",
		consumerKey: "test-key",
		consumerSec: "test-secret",
		callbackURL: "https://example.com/api/payments/callback",
		httpClient:  &http.Client{Timeout: 5 * time.Second},
		now:         time.Now,
	}
}

func TestClient_STKPush_Success(t *testing.T) {
	fake := &fakeDaraja{
		pushBody: map[string]string{
			"MerchantRequestID":   "29115-34620561-1",
			"CheckoutRequestID":   "ws_CO_191220231020363925",
			"ResponseCode":        "0",
			"ResponseDescription": "Success. Request accepted for processing",
			"CustomerMessage":     "Success. Request accepted for processing",
		},
	}
	srv := httptest.NewServer(fake.handler())
	defer srv.Close()

	client := newTestClient(srv.URL)
	result, err := client.STKPush(context.Background(), domain.STKPushRequest{
		Phone:            "254712345678",
		Amount:           1000,
		AccountReference: "booking-1",
		Description:      "Massage booking",
	})

	require.NoError(t, err)
	assert.Equal(t, "ws_CO_191220231020363925", result.CheckoutRequestID)
	assert.Equal(t, "29115-34620561-1", result.MerchantRequestID)
}

func TestClient_STKPush_GatewayErrorBody(t *testing.T) {
	fake := &fakeDaraja{
		pushStatus: http.StatusBadRequest,
		pushBody: map[string]string{
			"requestId":    "1234",
			"errorCode":    "400.002.02",
			"errorMessage": "Bad Request - Invalid PhoneNumber",
		},
	}
	srv := httptest.NewServer(fake.handler())
	defer srv.Close()

	client := newTestClient(srv.URL)
	_, err := client.STKPush(context.Background(), domain.STKPushRequest{Phone: "badphone", Amount: 1000})

	require.Error(t, err)
	assert.True(t, domain.IsErrorCode(err, domain.ErrCodeGatewayRequest))
	assert.Contains(t, err.Error(), "Invalid PhoneNumber")
}

func TestClient_STKPush_NonZeroResponseCode(t *testing.T) {
	fake := &fakeDaraja{
		pushBody: map[string]string{
			"ResponseCode":        "1",
			"ResponseDescription": "Failed to initiate",
		},
	}
	srv := httptest.NewServer(fake.handler())
	defer srv.Close()

	client := newTestClient(srv.URL)
	_, err := client.STKPush(context.Background(), domain.STKPushRequest{Phone: "254712345678", Amount: 1000})

	assert.True(t, domain.IsErrorCode(err, domain.ErrCodeGatewayRequest))
}

func TestClient_TokenIsCached(t *testing.T) {
	fake := &fakeDaraja{
		pushBody: map[string]string{
			"MerchantRequestID": "m-1",
			"CheckoutRequestID": "ws_CO_1",
			"ResponseCode":      "0",
		},
	}
	srv := httptest.NewServer(fake.handler())
	defer srv.Close()

	client := newTestClient(srv.URL)
	for i := 0; i < 3; i++ {
		_, err := client.STKPush(context.Background(), domain.STKPushRequest{Phone: "254712345678", Amount: 1000})
		require.NoError(t, err)
	}

	assert.Equal(t, int64(1), fake.tokenCalls.Load(), "token should be fetched once and cached")
	assert.Equal(t, int64(3), fake.pushCalls.Load())
}

func TestClient_TokenRefreshNearExpiry(t *testing.T) {
	fake := &fakeDaraja{
		pushBody: map[string]string{
			"MerchantRequestID": "m-1",
			"CheckoutRequestID": "ws_CO_1",
			"ResponseCode":      "0",
		},
	}
	srv := httptest.NewServer(fake.handler())
	defer srv.Close()

	client := newTestClient(srv.URL)
	current := time.Now()
	client.now = func() time.Time { return current }

	_, err := client.STKPush(context.Background(), domain.STKPushRequest{Phone: "254712345678", Amount: 1000})
	require.NoError(t, err)
	require.Equal(t, int64(1), fake.tokenCalls.Load())

	// Within a minute of expiry the client must fetch a fresh token.
	current = current.Add(3560 * time.Second)
	_, err = client.STKPush(context.Background(), domain.STKPushRequest{Phone: "254712345678", Amount: 1000})
	require.NoError(t, err)
	assert.Equal(t, int64(2), fake.tokenCalls.Load())
}

func TestClient_Password(t *testing.T) {
	client := newTestClient("http://unused")
	got := client.password("20260830101500")

	want := base64.StdEncoding.EncodeToString([]byte("174379" + "test-passkey" + "20260830101500"))
	assert.Equal(t, want, got)
}

func TestClient_STKQuery(t *testing.T) {
	fake := &fakeDaraja{
		queryBody: map[string]string{
			"ResponseCode":      "0",
			"CheckoutRequestID": "ws_CO_191220231020363925",
			"ResultCode":        "1032",
			"ResultDesc":        "Request cancelled by user",
		},
	}
	srv := httptest.NewServer(fake.handler())
	defer srv.Close()

	client := newTestClient(srv.URL)
	result, err := client.STKQuery(context.Background(), "ws_CO_191220231020363925")

	require.NoError(t, err)
	assert.Equal(t, 1032, result.ResultCode)
	assert.Equal(t, "Request cancelled by user", result.ResultDesc)
}
