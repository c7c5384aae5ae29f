package services

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPlayFabClient_UnbanUsers(t *testing.T) {
	var gotKey string
	var gotBody map[string][]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/Admin/UnbanUsers", r.URL.Path)
		gotKey = r.Header.Get("X-SecretKey")
		json.NewDecoder(r.Body).Decode(&gotBody)
		if gotBody["PlayFabIds"][0] == "bad" {
			w.WriteHeader(http.StatusBadRequest)
			w.Write([]byte(`{"code":400,"status":"BadRequest","error":"InvalidParams","errorCode":1000,"errorMessage":"Invalid input parameters"}`))
			return
		}
		w.Write([]byte(`{"code":200,"status":"OK","data":{"BanData":[]}}`))
	}))
	defer srv.Close()

	p := NewPlayFabClient("TITLE", "s3cret", 5*time.Second)
	p.baseURL = srv.URL

	require.NoError(t, p.UnbanUsers(context.Background(), "PF1"))
	assert.Equal(t, "s3cret", gotKey)
	assert.Equal(t, []string{"PF1"}, gotBody["PlayFabIds"])

	err := p.UnbanUsers(context.Background(), "bad")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Invalid input parameters")
	assert.Contains(t, err.Error(), "1000")
}

func TestPlayFabClient_RevokeHook(t *testing.T) {
	calls := make(chan string, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body map[string][]string
		json.NewDecoder(r.Body).Decode(&body)
		calls <- body["PlayFabIds"][0]
		w.Write([]byte(`{"code":200}`))
	}))
	defer srv.Close()

	p := NewPlayFabClient("TITLE", "key", 5*time.Second)
	p.baseURL = srv.URL

	r, _, _ := newTestRegistry(t)
	r.OnRevoke(p.RevokeHook())

	_, err := r.Ban("PF9", "cheating", 10)
	require.NoError(t, err)
	require.NoError(t, r.Revoke(context.Background(), "PF9"))

	select {
	case id := <-calls:
		assert.Equal(t, "PF9", id)
	case <-time.After(2 * time.Second):
		t.Fatal("PlayFab was not called")
	}
}
