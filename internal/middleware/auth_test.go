package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/bryanwahyu/diagnoflow/internal/domain/staff"
)

func authedRequest(key, actorID, role string) *http.Request {
	req := httptest.NewRequest(http.MethodGet, "/v1/dashboard", nil)
	if key != "" {
		req.Header.Set("Authorization", "Bearer "+key)
	}
	if actorID != "" {
		req.Header.Set(HeaderActorID, actorID)
	}
	if role != "" {
		req.Header.Set(HeaderActorRole, role)
	}
	return req
}

func TestAPIKeyAuth(t *testing.T) {
	keys := map[string]string{"web": "secret-key"}
	var gotActor staff.Actor
	var called bool
	h := APIKeyAuth(keys)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
		gotActor, _ = GetActorFromContext(r.Context())
	}))

	cases := []struct {
		name       string
		req        *http.Request
		wantStatus int
	}{
		{"valid", authedRequest("secret-key", "tech-1", "lab_technician"), http.StatusOK},
		{"missing key", authedRequest("", "tech-1", "lab_technician"), http.StatusUnauthorized},
		{"wrong key", authedRequest("nope", "tech-1", "lab_technician"), http.StatusUnauthorized},
		{"missing actor", authedRequest("secret-key", "", "lab_technician"), http.StatusUnauthorized},
		{"unknown role", authedRequest("secret-key", "tech-1", "superuser"), http.StatusUnauthorized},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			called = false
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, c.req)
			if rec.Code != c.wantStatus {
				t.Fatalf("status = %d, want %d", rec.Code, c.wantStatus)
			}
			if c.wantStatus == http.StatusOK && !called {
				t.Fatal("handler not reached")
			}
			if c.wantStatus != http.StatusOK && called {
				t.Fatal("handler reached on rejected request")
			}
		})
	}

	if gotActor.ID != "tech-1" || gotActor.Role != staff.RoleLabTechnician {
		t.Errorf("actor = %+v", gotActor)
	}
}

func TestAPIKeyAuthSkipsHealth(t *testing.T) {
	h := APIKeyAuth(map[string]string{"web": "k"})(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("health check should bypass auth, got %d", rec.Code)
	}
}

func TestValidateDecision(t *testing.T) {
	for _, ok := range []string{"approve", "reject"} {
		if err := ValidateDecision(ok); err != nil {
			t.Errorf("ValidateDecision(%q) = %v", ok, err)
		}
	}
	for _, bad := range []string{"", "approved", "maybe"} {
		if err := ValidateDecision(bad); err == nil {
			t.Errorf("ValidateDecision(%q) = nil, want error", bad)
		}
	}
}

func TestValidateDisease(t *testing.T) {
	if err := ValidateDisease("Malaria"); err != nil {
		t.Errorf("disease names are case-insensitive: %v", err)
	}
	if err := ValidateDisease("dengue"); err == nil {
		t.Error("want error for unsupported disease")
	}
}
