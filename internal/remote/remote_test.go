package remote

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestFetchTodosDecodesCollection(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[{"userId":1,"id":1,"title":"delectus aut autem","completed":false},null,{"userId":2,"id":21,"title":"suscipit","completed":true}]`))
	}))
	defer server.Close()

	todos, err := NewClient(server.URL, time.Second).FetchTodos(context.Background())
	if err != nil {
		t.Fatalf("fetch todos: %v", err)
	}
	if len(todos) != 3 {
		t.Fatalf("expected 3 entries, got %d", len(todos))
	}
	if todos[1] != nil {
		t.Fatalf("expected null entry to stay nil")
	}
	if todos[2].UserID != 2 || todos[2].ID != 21 || !todos[2].Completed {
		t.Fatalf("unexpected todo %+v", todos[2])
	}
}

func TestFetchTodosReportsStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	_, err := NewClient(server.URL, time.Second).FetchTodos(context.Background())
	var statusErr *StatusError
	if !errors.As(err, &statusErr) {
		t.Fatalf("expected StatusError, got %v", err)
	}
	if statusErr.StatusCode != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", statusErr.StatusCode)
	}
}

func TestFetchTodosEmptyBodies(t *testing.T) {
	for _, body := range []string{"", "null", "[]"} {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(body))
		}))

		todos, err := NewClient(server.URL, time.Second).FetchTodos(context.Background())
		server.Close()
		if err != nil {
			t.Fatalf("body %q: %v", body, err)
		}
		if len(todos) != 0 {
			t.Fatalf("body %q: expected no todos, got %d", body, len(todos))
		}
	}
}
