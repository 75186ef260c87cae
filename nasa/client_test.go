package nasa

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestFetchAPOD(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/planetary/apod" || r.URL.Query().Get("api_key") != "k&y" {
			http.Error(w, "bad request", http.StatusBadRequest)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"date":"2026-03-14","title":"Pi","explanation":"round","url":"https://x/a.jpg","hdurl":"https://x/a_hd.jpg","media_type":"image"}`))
	}))
	defer srv.Close()

	data, err := NewClient(srv.URL+"/", "k&y", time.Second).FetchAPOD(context.Background())
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if data.Date != "2026-03-14" || !data.IsImage() || data.ImageSource() != "https://x/a_hd.jpg" {
		t.Errorf("data = %+v", data)
	}
}

func TestFetchAPODFailures(t *testing.T) {
	cases := map[string]http.HandlerFunc{
		"server error": func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "boom", http.StatusInternalServerError)
		},
		"rate limited": func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusTooManyRequests)
		},
		"bad json": func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`{"date":`))
		},
		"no date": func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`{"title":"x"}`))
		},
		"slow": func(w http.ResponseWriter, r *http.Request) {
			time.Sleep(200 * time.Millisecond)
			w.Write([]byte(`{"date":"2026-03-14"}`))
		},
	}
	for name, h := range cases {
		srv := httptest.NewServer(h)
		_, err := NewClient(srv.URL, "key", 50*time.Millisecond).FetchAPOD(context.Background())
		if err == nil {
			t.Errorf("%s: no error", name)
		}
		srv.Close()
	}
}

func TestFetchAPODNeedsKey(t *testing.T) {
	_, err := NewClient("", "", 0).FetchAPOD(context.Background())
	if !errors.Is(err, ErrNoAPIKey) {
		t.Fatalf("err = %v, want ErrNoAPIKey", err)
	}
}
