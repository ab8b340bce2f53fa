// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestGlobalRateLimiter(t *testing.T) {
	rl := NewGlobalRateLimiter(1, 2)
	handler := rl.Middleware()(http.HandlerFunc(
		func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
		}))

	serve := func(ip string) int {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("X-Real-IP", ip)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		return rec.Code
	}

	// Burst of 2, then throttled.
	for i := 0; i < 2; i++ {
		if code := serve("10.0.0.1"); code != http.StatusOK {
			t.Fatalf("request %d: status = %d, want %d", i+1, code, http.StatusOK)
		}
	}
	if code := serve("10.0.0.1"); code != http.StatusTooManyRequests {
		t.Errorf("status = %d, want %d after burst exhausted", code, http.StatusTooManyRequests)
	}

	// A different client is unaffected.
	if code := serve("10.0.0.2"); code != http.StatusOK {
		t.Errorf("second IP: status = %d, want %d", code, http.StatusOK)
	}
}

func TestLimiterCacheClearIfExceeds(t *testing.T) {
	lc := newLimiterCache[string](1, 1)
	lc.get("a")
	lc.get("b")

	if lc.clearIfExceeds(5) {
		t.Error("cache cleared below the size limit")
	}
	if !lc.clearIfExceeds(1) {
		t.Error("cache not cleared above the size limit")
	}
	if len(lc.limiters) != 0 {
		t.Errorf("cache size = %d after clear, want 0", len(lc.limiters))
	}
}
