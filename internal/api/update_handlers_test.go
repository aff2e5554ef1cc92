package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/weplace/weplace/internal/oracle"
	"github.com/weplace/weplace/internal/update"
)

func postUpdate(t *testing.T, router http.Handler, id, body string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/places/"+id+"/update", strings.NewReader(body))
	router.ServeHTTP(rec, req)
	return rec
}

func TestUpdatePlace_Accepted(t *testing.T) {
	repo := seedPlaces(t)
	router := newTestRouter(t, repo, acceptAllValidator{})

	rec := postUpdate(t, router, "bean", `{"phone":"01865 123456"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
	}

	var body UpdateResponse
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Status != update.StatusAccepted {
		t.Fatalf("status = %s", body.Status)
	}
	if body.Staleness == nil || body.Relevance == nil {
		t.Fatal("accepted update missing payout breakdown")
	}
	// Seed record has no timestamp: fully stale, fixed relevance 0.5.
	if body.Compensation != 5.0 {
		t.Errorf("compensation = %f, want 5.0", body.Compensation)
	}
	if body.Reason != "ok" {
		t.Errorf("reason = %q, want validator note", body.Reason)
	}

	stored, err := repo.GetByID(context.Background(), "bean")
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if stored.Phone != "01865 123456" {
		t.Errorf("phone = %s", stored.Phone)
	}
	if stored.LastUpdated == nil || time.Since(*stored.LastUpdated) > time.Minute {
		t.Errorf("LastUpdated = %v", stored.LastUpdated)
	}
}

func TestUpdatePlace_Rejected(t *testing.T) {
	repo := seedPlaces(t)
	router := newTestRouter(t, repo, rejectAllValidator{reason: "inconsistent with category"})

	rec := postUpdate(t, router, "bean", `{"name":"Totally A Bank"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
	}

	var body UpdateResponse
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Status != update.StatusRejected {
		t.Fatalf("status = %s", body.Status)
	}
	if body.Reason != "inconsistent with category" {
		t.Errorf("reason = %q", body.Reason)
	}
	if body.Compensation != 0 {
		t.Errorf("rejected update paid %f", body.Compensation)
	}

	stored, _ := repo.GetByID(context.Background(), "bean")
	if stored.Name != "The Missing Bean" {
		t.Errorf("rejected update applied: %s", stored.Name)
	}
}

func TestUpdatePlace_ResponseShape(t *testing.T) {
	tests := []struct {
		name        string
		validator   oracle.Validator
		wantKeys    []string
		missingKeys []string
	}{
		{
			name:      "accepted carries full breakdown and note",
			validator: acceptAllValidator{},
			wantKeys:  []string{"status", "message", "compensation", "staleness", "relevance", "reason"},
		},
		{
			name:        "rejected carries zero compensation, no breakdown",
			validator:   rejectAllValidator{reason: "nope"},
			wantKeys:    []string{"status", "message", "compensation", "reason"},
			missingKeys: []string{"staleness", "relevance"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router := newTestRouter(t, seedPlaces(t), tt.validator)
			rec := postUpdate(t, router, "bean", `{"phone":"01865 999999"}`)
			if rec.Code != http.StatusOK {
				t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
			}

			var raw map[string]json.RawMessage
			if err := json.NewDecoder(rec.Body).Decode(&raw); err != nil {
				t.Fatalf("decode: %v", err)
			}
			for _, key := range tt.wantKeys {
				if _, ok := raw[key]; !ok {
					t.Errorf("response missing %q key", key)
				}
			}
			for _, key := range tt.missingKeys {
				if _, ok := raw[key]; ok {
					t.Errorf("response has unexpected %q key", key)
				}
			}
		})
	}
}

func TestUpdatePlace_Errors(t *testing.T) {
	router := newTestRouter(t, seedPlaces(t), acceptAllValidator{})

	tests := []struct {
		name       string
		id         string
		body       string
		wantStatus int
		wantCode   string
	}{
		{"not found", "missing", `{"name":"x"}`, http.StatusNotFound, ErrCodeNotFound},
		{"invalid json", "bean", `{`, http.StatusBadRequest, ErrCodeBadRequest},
		{"empty object", "bean", `{}`, http.StatusBadRequest, ErrCodeValidation},
		{"protected field", "bean", `{"lat":"0"}`, http.StatusBadRequest, ErrCodeProtectedField},
		{"unknown field", "bean", `{"wifi":"free"}`, http.StatusBadRequest, ErrCodeUnknownField},
		{"non-string value", "bean", `{"name":42}`, http.StatusBadRequest, ErrCodeBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := postUpdate(t, router, tt.id, tt.body)
			if rec.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d: %s", rec.Code, tt.wantStatus, rec.Body.String())
			}
			if body := decodeError(t, rec); body.Error.Code != tt.wantCode {
				t.Errorf("code = %s, want %s", body.Error.Code, tt.wantCode)
			}
		})
	}
}
