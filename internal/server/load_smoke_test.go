//go:build load

package server

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"slices"
	"sync"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
)

type loadResult struct {
	statusCode int
	duration   time.Duration
	err        error
}

func runConcurrent(total, concurrency int, fn func(i int) loadResult) []loadResult {
	results := make([]loadResult, total)
	var wg sync.WaitGroup
	sem := make(chan struct{}, concurrency)

	for i := range total {
		wg.Add(1)
		sem <- struct{}{}
		go func(idx int) {
			defer wg.Done()
			defer func() { <-sem }()
			results[idx] = fn(idx)
		}(i)
	}
	wg.Wait()
	return results
}

func summarize(results []loadResult, ok int) (failures int, p95, longest time.Duration) {
	durations := make([]time.Duration, 0, len(results))
	for _, r := range results {
		durations = append(durations, r.duration)
		if r.err != nil || r.statusCode != ok {
			failures++
		}
	}
	if len(durations) == 0 {
		return failures, 0, 0
	}
	slices.Sort(durations)
	return failures, durations[int(float64(len(durations)-1)*0.95)], durations[len(durations)-1]
}

func timedRequest(app *fiber.App, method, path, token string, body any) loadResult {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	start := time.Now()
	resp, err := app.Test(req, -1)
	if err != nil {
		return loadResult{err: err, duration: time.Since(start)}
	}
	defer func() { _ = resp.Body.Close() }()
	return loadResult{statusCode: resp.StatusCode, duration: time.Since(start)}
}

func TestLoadScenarios(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping load tests in short mode")
	}

	ts := newTestServer(t, serverOpts{})
	_, mainToken := ts.signup("load_main")

	t.Run("Login", func(t *testing.T) {
		body := fiber.Map{"email": "load_main@example.com", "password": testPassword}
		results := runConcurrent(30, 10, func(int) loadResult {
			return timedRequest(ts.app, http.MethodPost, "/api/auth/login", "", body)
		})
		failures, p95, longest := summarize(results, http.StatusOK)
		t.Logf("login load: requests=%d failures=%d p95=%s max=%s", len(results), failures, p95, longest)
		if failures > 0 {
			t.Fatalf("login load had %d failures", failures)
		}
	})

	t.Run("FeedRead", func(t *testing.T) {
		results := runConcurrent(40, 10, func(int) loadResult {
			return timedRequest(ts.app, http.MethodGet, "/api/posts?limit=20", mainToken, nil)
		})
		failures, p95, longest := summarize(results, http.StatusOK)
		t.Logf("feed load: requests=%d failures=%d p95=%s max=%s", len(results), failures, p95, longest)
		if failures > 0 {
			t.Fatalf("feed load had %d failures", failures)
		}
	})

	t.Run("GroupSend", func(t *testing.T) {
		const senders = 20
		tokens := make([]string, 0, senders)
		ids := make([]uint, 0, senders)
		for i := range senders {
			id, token := ts.signup(fmt.Sprintf("load_chat_%d", i))
			ids = append(ids, id)
			tokens = append(tokens, token)
		}

		status, raw := ts.do(http.MethodPost, "/api/messages/group/create", mainToken,
			fiber.Map{"group_name": "load-chat-room", "member_ids": ids})
		if status != http.StatusCreated {
			t.Fatalf("create group expected 201 got %d: %s", status, raw)
		}
		var created struct {
			ConversationID uint `json:"conversation_id"`
		}
		ts.decode(raw, &created)

		results := runConcurrent(senders, 10, func(i int) loadResult {
			return timedRequest(ts.app, http.MethodPost, "/api/messages", tokens[i], fiber.Map{
				"conversation_id": created.ConversationID,
				"content":         fmt.Sprintf("load message %d", i),
			})
		})
		failures, p95, longest := summarize(results, http.StatusCreated)
		t.Logf("group send load: requests=%d failures=%d p95=%s max=%s", len(results), failures, p95, longest)
		if failures > 0 {
			t.Fatalf("group send load had %d failures", failures)
		}
	})
}
