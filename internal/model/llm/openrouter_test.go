package llm

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) (*OpenRouterClient, *httptest.Server) {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	client, err := NewOpenRouterClient(OpenRouterConfig{
		Model:   "test/model",
		APIKey:  "test-key",
		BaseURL: server.URL,
		Referer: "https://jidhr.example.org",
		Title:   "Jidhr",
	})
	if err != nil {
		t.Fatalf("create client: %v", err)
	}
	return client, server
}

func TestChatReturnsTrimmedContent(t *testing.T) {
	var gotAuth, gotReferer, gotTitle string
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotReferer = r.Header.Get("HTTP-Referer")
		gotTitle = r.Header.Get("X-Title")
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"choices":[{"message":{"content":"  hello from the model \n"}}]}`))
	})

	reply, err := client.ChatWithContext(context.Background(), []Message{
		{Role: "system", Content: "You are helpful."},
		{Role: "user", Content: "hi"},
	}, GenerateOptions{MaxTokens: 100})
	if err != nil {
		t.Fatalf("chat failed: %v", err)
	}
	if reply != "hello from the model" {
		t.Fatalf("reply = %q", reply)
	}
	if gotAuth != "Bearer test-key" {
		t.Fatalf("authorization header = %q", gotAuth)
	}
	if gotReferer != "https://jidhr.example.org" || gotTitle != "Jidhr" {
		t.Fatalf("attribution headers = %q / %q", gotReferer, gotTitle)
	}
}

func TestChatServerErrorIsUnavailable(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "overloaded", http.StatusServiceUnavailable)
	})

	_, err := client.Chat([]Message{{Role: "user", Content: "hi"}}, GenerateOptions{})
	if !errors.Is(err, ErrUnavailable) {
		t.Fatalf("error = %v, want ErrUnavailable", err)
	}
}

func TestChatMalformedResponseIsUnavailable(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("not json"))
	})

	_, err := client.Chat([]Message{{Role: "user", Content: "hi"}}, GenerateOptions{})
	if !errors.Is(err, ErrUnavailable) {
		t.Fatalf("error = %v, want ErrUnavailable", err)
	}
}

func TestChatEmptyChoicesIsUnavailable(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"choices":[]}`))
	})

	_, err := client.Chat([]Message{{Role: "user", Content: "hi"}}, GenerateOptions{})
	if !errors.Is(err, ErrUnavailable) {
		t.Fatalf("error = %v, want ErrUnavailable", err)
	}
}

func TestRateLimitedClientDelegates(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"choices":[{"message":{"content":"ok"}}]}`))
	})
	limited := NewRateLimitedClient(client, NewRateLimiter(LimitConfig{RequestsPerMinute: 600, MaxConcurrent: 2}))

	reply, err := limited.Chat([]Message{{Role: "user", Content: "hi"}}, GenerateOptions{})
	if err != nil {
		t.Fatalf("chat failed: %v", err)
	}
	if reply != "ok" {
		t.Fatalf("reply = %q", reply)
	}
	if limited.Provider() != "openrouter" || limited.Model() != "test/model" {
		t.Fatalf("provider/model = %q/%q", limited.Provider(), limited.Model())
	}
}
