package testutil

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/BTreeMap/DietCoach/internal/store"
)

// mockTestingT records failures instead of failing the enclosing test.
type mockTestingT struct {
	failed   bool
	errorMsg string
}

func (m *mockTestingT) Helper() {}

func (m *mockTestingT) Errorf(format string, args ...interface{}) {
	m.failed = true
	m.errorMsg = fmt.Sprintf(format, args...)
}

func (m *mockTestingT) Fatalf(format string, args ...interface{}) {
	m.Errorf(format, args...)
}

func TestNewTestServer(t *testing.T) {
	srv := NewTestServer(store.NewInMemoryStore(), nil)
	if srv == nil {
		t.Fatal("NewTestServer returned nil")
	}
	rr := Serve(srv, CreateHTTPRequest(t, http.MethodGet, "/healthz", nil))
	AssertHTTPStatus(t, http.StatusOK, rr.Code, "healthz")
}

func TestAssertHTTPStatus(t *testing.T) {
	tests := []struct {
		name       string
		expected   int
		actual     int
		shouldFail bool
	}{
		{"matching status codes", 200, 200, false},
		{"different status codes", 200, 404, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockT := &mockTestingT{}
			AssertHTTPStatus(mockT, tt.expected, tt.actual, "test context")
			if mockT.failed != tt.shouldFail {
				t.Errorf("failed = %v, want %v (%s)", mockT.failed, tt.shouldFail, mockT.errorMsg)
			}
		})
	}
}

func TestAssertJSONResponse(t *testing.T) {
	tests := []struct {
		name           string
		jsonBody       string
		expectedStatus string
		shouldFail     bool
	}{
		{"matching status", `{"status":"ok","result":1}`, "ok", false},
		{"different status", `{"status":"error"}`, "ok", true},
		{"missing status", `{"result":1}`, "ok", true},
		{"invalid json", `not json`, "ok", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := httptest.NewRecorder()
			rr.Body.WriteString(tt.jsonBody)
			mockT := &mockTestingT{}
			AssertJSONResponse(mockT, rr, tt.expectedStatus)
			if mockT.failed != tt.shouldFail {
				t.Errorf("failed = %v, want %v (%s)", mockT.failed, tt.shouldFail, mockT.errorMsg)
			}
		})
	}
}

func TestCreateHTTPRequest(t *testing.T) {
	req := CreateHTTPRequest(t, http.MethodPost, "/x", map[string]string{"key": "value"})
	if req.Method != http.MethodPost || req.URL.Path != "/x" {
		t.Errorf("unexpected request %s %s", req.Method, req.URL.Path)
	}
	if got := req.Header.Get("Content-Type"); got != "application/json" {
		t.Errorf("Content-Type = %q", got)
	}

	auth := AuthorizedRequest(t, http.MethodGet, "/y", nil)
	if got := auth.Header.Get("Authorization"); !strings.HasSuffix(got, AdminToken) {
		t.Errorf("Authorization = %q", got)
	}
}

func TestSeedTestData(t *testing.T) {
	st := store.NewInMemoryStore()
	ids := SeedTestData(t, st, 42, 3, 7)
	if len(ids) != 2 {
		t.Fatalf("expected 2 plan ids, got %v", ids)
	}

	profile, err := st.GetProfile(42)
	if err != nil || profile == nil {
		t.Fatalf("profile not seeded: %v", err)
	}
	plans, err := st.ListPlans(42, 10)
	if err != nil {
		t.Fatalf("ListPlans: %v", err)
	}
	if len(plans) != 2 || plans[0].DurationDays != 7 {
		t.Errorf("unexpected plans %+v", plans)
	}
}

func TestMustJSONRoundTrip(t *testing.T) {
	data := MustMarshalJSON(t, map[string]interface{}{"key": "value", "number": 123})
	var target map[string]interface{}
	MustUnmarshalJSON(t, data, &target)
	if target["key"] != "value" {
		t.Errorf("Expected key to be 'value', got %v", target["key"])
	}
	if target["number"].(float64) != 123 {
		t.Errorf("Expected number to be 123, got %v", target["number"])
	}

	mockT := &mockTestingT{}
	MustUnmarshalJSON(mockT, []byte("{"), &target)
	if !mockT.failed {
		t.Error("expected failure on malformed JSON")
	}
}
