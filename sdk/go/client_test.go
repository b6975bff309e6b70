package ringlinesdk

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPlaceCallEnvelope(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req CallRequest
		_ = json.NewDecoder(r.Body).Decode(&req)
		w.Header().Set("Content-Type", "application/json")
		if req.RecipientName == "B" {
			w.WriteHeader(http.StatusBadRequest)
			_, _ = w.Write([]byte(`{"success":false,"message":"Recipient name must be at least 2 characters."}`))
			return
		}
		assert.Equal(t, "/api/call", r.URL.Path)
		assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
		_, _ = w.Write([]byte(`{"success":true,"message":"Call initiated successfully. Call SID: CA1","callSid":"CA1"}`))
	}))
	defer srv.Close()

	c := New(srv.URL + "/api/")
	c.BearerToken = "tok"
	ctx := context.Background()

	out, err := c.PlaceCall(ctx, CallRequest{CallerName: "Al", RecipientName: "Bob", RecipientNumber: "+15551234567", Objective: "Say hi"})
	require.NoError(t, err)
	assert.True(t, out.Success)
	assert.Equal(t, "CA1", out.CallSID)

	out, err = c.PlaceCall(ctx, CallRequest{RecipientName: "B"})
	require.NoError(t, err)
	assert.False(t, out.Success)
	assert.Equal(t, "Recipient name must be at least 2 characters.", out.Message)
}

func TestPlaceCallWithoutEnvelope(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		_, _ = w.Write([]byte("upstream down"))
	}))
	defer srv.Close()

	_, err := New(srv.URL).PlaceCall(context.Background(), CallRequest{})
	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusBadGateway, apiErr.StatusCode)
}

func TestPlaceCallTransportFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	url := srv.URL
	srv.Close()

	_, err := New(url).PlaceCall(context.Background(), CallRequest{})
	require.Error(t, err)
}

func TestEventsPageAndDevLogin(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Path {
		case "/auth/dev/login":
			_, _ = w.Write([]byte(`{"token":"minted"}`))
		case "/events":
			assert.Equal(t, "call.accepted", r.URL.Query().Get("type"))
			assert.Equal(t, "2", r.URL.Query().Get("limit"))
			assert.Equal(t, "Bearer minted", r.Header.Get("Authorization"))
			_, _ = w.Write([]byte(`{"items":[{"id":4,"type":"call.accepted","request_id":"r1","payload":{}}],"next_cursor":"4"}`))
		case "/events/4":
			_, _ = w.Write([]byte(`{"id":4,"type":"call.accepted","request_id":"r1","payload":{"call_sid":"CA1"}}`))
		case "/health":
			_, _ = w.Write([]byte(`{"status":"ok"}`))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer srv.Close()

	c := New(srv.URL)
	ctx := context.Background()
	status, err := c.Health(ctx)
	require.NoError(t, err)
	assert.Equal(t, "ok", status)

	tok, err := c.DevLogin(ctx, "me")
	require.NoError(t, err)
	assert.Equal(t, "minted", tok)

	page, err := c.EventsPage(ctx, EventQuery{Type: "call.accepted", Limit: 2})
	require.NoError(t, err)
	require.Len(t, page.Items, 1)
	assert.Equal(t, "r1", page.Items[0].RequestID)
	assert.Equal(t, "4", page.NextCursor)

	evt, err := c.Event(ctx, 4)
	require.NoError(t, err)
	assert.Equal(t, "CA1", evt.Payload["call_sid"])

	_, err = c.Event(ctx, 5)
	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusNotFound, apiErr.StatusCode)
}
