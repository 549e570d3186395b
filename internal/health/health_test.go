package health

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
)

type fixedSize int

func (n fixedSize) Len() int { return int(n) }

func readyz(t *testing.T, h *Handler) (int, result) {
	t.Helper()
	req := httptest.NewRequest("GET", "/readyz", nil)
	rec := httptest.NewRecorder()
	h.Readyz(rec, req)

	var body result
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode JSON: %v", err)
	}
	return rec.Code, body
}

func TestHealthz_AlwaysReturns200(t *testing.T) {
	h := New(CorpusChecker(func() Sizer { return nil }, 1))

	req := httptest.NewRequest("GET", "/healthz", nil)
	rec := httptest.NewRecorder()
	h.Healthz(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusOK)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/json; charset=utf-8" {
		t.Errorf("Content-Type = %q, want application/json", ct)
	}
}

func TestCorpusChecker_TracksReloads(t *testing.T) {
	var current atomic.Pointer[fixedSize]
	h := New(CorpusChecker(func() Sizer {
		if p := current.Load(); p != nil {
			return *p
		}
		return nil
	}, 1))

	code, body := readyz(t, h)
	if code != http.StatusServiceUnavailable {
		t.Errorf("before load: status = %d, want %d", code, http.StatusServiceUnavailable)
	}
	if body.Checks["corpus"] != "fail: "+ErrNotLoaded.Error() {
		t.Errorf("before load: corpus check = %q", body.Checks["corpus"])
	}

	empty := fixedSize(0)
	current.Store(&empty)
	code, body = readyz(t, h)
	if code != http.StatusServiceUnavailable {
		t.Errorf("empty corpus: status = %d, want %d", code, http.StatusServiceUnavailable)
	}
	if body.Checks["corpus"] != "fail: corpus holds 0 utterances, need 1" {
		t.Errorf("empty corpus: corpus check = %q", body.Checks["corpus"])
	}

	loaded := fixedSize(12)
	current.Store(&loaded)
	code, body = readyz(t, h)
	if code != http.StatusOK || body.Status != "ok" {
		t.Errorf("loaded: status = %d %q, want 200 ok", code, body.Status)
	}
}

func TestReadyz_MixedCheckers(t *testing.T) {
	h := New(
		CorpusChecker(func() Sizer { return fixedSize(3) }, 1),
		Checker{Name: "labels", Check: func(_ context.Context) error {
			return errors.New("label directory missing")
		}},
	)

	code, body := readyz(t, h)
	if code != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want %d", code, http.StatusServiceUnavailable)
	}
	if body.Status != "fail" {
		t.Errorf("status = %q, want %q", body.Status, "fail")
	}
	if body.Checks["corpus"] != "ok" {
		t.Errorf("corpus check = %q, want %q", body.Checks["corpus"], "ok")
	}
	if body.Checks["labels"] != "fail: label directory missing" {
		t.Errorf("labels check = %q", body.Checks["labels"])
	}
}

func TestReadyz_NoCheckers(t *testing.T) {
	code, body := readyz(t, New())
	if code != http.StatusOK || body.Status != "ok" {
		t.Errorf("status = %d %q, want 200 ok", code, body.Status)
	}
}

func TestRegister_RoutesWork(t *testing.T) {
	h := New(CorpusChecker(func() Sizer { return fixedSize(1) }, 1))

	mux := http.NewServeMux()
	h.Register(mux)

	tests := []struct {
		path       string
		wantStatus int
	}{
		{"/healthz", http.StatusOK},
		{"/readyz", http.StatusOK},
	}

	for _, tc := range tests {
		t.Run(tc.path, func(t *testing.T) {
			req := httptest.NewRequest("GET", tc.path, nil)
			rec := httptest.NewRecorder()
			mux.ServeHTTP(rec, req)

			if rec.Code != tc.wantStatus {
				t.Errorf("status = %d, want %d", rec.Code, tc.wantStatus)
			}
		})
	}
}

func TestReadyz_RespectsContextCancellation(t *testing.T) {
	h := New(
		Checker{Name: "slow", Check: func(ctx context.Context) error {
			<-ctx.Done()
			return ctx.Err()
		}},
	)

	ctx, cancel := context.WithCancel(context.Background())
	cancel() // cancel immediately

	req := httptest.NewRequest("GET", "/readyz", nil).WithContext(ctx)
	rec := httptest.NewRecorder()
	h.Readyz(rec, req)

	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusServiceUnavailable)
	}
}
