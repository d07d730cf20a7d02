// Package testutil provides common test utilities and helpers for DietCoach tests.
package testutil

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"time"

	"github.com/BTreeMap/DietCoach/internal/api"
	"github.com/BTreeMap/DietCoach/internal/models"
	"github.com/BTreeMap/DietCoach/internal/store"
)

// T is the subset of *testing.T the helpers need.
type T interface {
	Helper()
	Errorf(format string, args ...interface{})
	Fatalf(format string, args ...interface{})
}

// AdminToken is the bearer token NewTestServer configures.
const AdminToken = "test-admin-token"

// NewTestServer creates a test API server over st with the admin endpoints
// enabled. Extra options are applied after the defaults.
func NewTestServer(st store.Store, updates api.UpdateHandler, opts ...api.Option) *api.Server {
	opts = append([]api.Option{api.WithAdminToken(AdminToken)}, opts...)
	return api.NewServer(st, updates, nil, opts...)
}

// Serve runs req against srv and returns the recorded response.
func Serve(srv *api.Server, req *http.Request) *httptest.ResponseRecorder {
	rr := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rr, req)
	return rr
}

// AssertHTTPStatus checks the HTTP status code and fails the test if it doesn't match.
func AssertHTTPStatus(t T, expected, actual int, context string) {
	t.Helper()
	if actual != expected {
		t.Errorf("%s: expected status %d, got %d", context, expected, actual)
	}
}

// AssertJSONResponse decodes JSON response and validates the status field.
func AssertJSONResponse(t T, rr *httptest.ResponseRecorder, expectedStatus string) map[string]interface{} {
	t.Helper()
	var response map[string]interface{}
	if err := json.NewDecoder(rr.Body).Decode(&response); err != nil {
		t.Fatalf("failed to decode JSON response: %v", err)
		return nil
	}

	if status, ok := response["status"].(string); ok {
		if status != expectedStatus {
			t.Errorf("expected status '%s', got '%s'", expectedStatus, status)
		}
	} else {
		t.Errorf("response missing or invalid 'status' field")
	}

	return response
}

// CreateHTTPRequest creates an HTTP request with optional JSON body for testing.
func CreateHTTPRequest(t T, method, url string, body interface{}) *http.Request {
	t.Helper()
	reqBody := bytes.NewBuffer(nil)
	if body != nil {
		reqBody = bytes.NewBuffer(MustMarshalJSON(t, body))
	}

	req, err := http.NewRequest(method, url, reqBody)
	if err != nil {
		t.Fatalf("failed to create HTTP request: %v", err)
		return nil
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return req
}

// AuthorizedRequest is CreateHTTPRequest with the test admin token attached.
func AuthorizedRequest(t T, method, url string, body interface{}) *http.Request {
	t.Helper()
	req := CreateHTTPRequest(t, method, url, body)
	if req != nil {
		req.Header.Set("Authorization", "Bearer "+AdminToken)
	}
	return req
}

// SampleProfile returns a valid profile for userID.
func SampleProfile(userID int64) models.AthleteProfile {
	return models.AthleteProfile{
		UserID:    userID,
		Username:  "athlete",
		FirstName: "Test",
		SportType: "бег",
		Gender:    models.GenderMale,
		Age:       25,
		Weight:    70,
		Height:    180,
		Goal:      "набор массы",
	}
}

// SamplePlan returns a plan with the given number of single-meal days.
func SamplePlan(userID int64, days int) models.MealPlan {
	plan := models.MealPlan{
		PlanType:      "test_plan",
		TotalCalories: 2500,
		ProteinGrams:  150,
		CarbsGrams:    300,
		FatGrams:      80,
		GeneratedFor:  &models.GeneratedFor{UserID: userID, GeneratedAt: time.Now()},
	}
	for i := 1; i <= days; i++ {
		plan.Days = append(plan.Days, models.Day{
			DayNumber: i,
			Meals:     []models.Meal{{MealType: models.MealBreakfast, Time: "08:00"}},
		})
	}
	return plan
}

// SeedTestData stores a profile for userID and plans of the given lengths,
// returning the plan ids in insertion order.
func SeedTestData(t T, st store.Store, userID int64, planDays ...int) []int64 {
	t.Helper()
	if _, err := st.CreateProfile(SampleProfile(userID)); err != nil {
		t.Fatalf("failed to seed profile: %v", err)
		return nil
	}
	ids := make([]int64, 0, len(planDays))
	for _, days := range planDays {
		id, err := st.SavePlan(userID, SamplePlan(userID, days))
		if err != nil {
			t.Fatalf("failed to seed plan: %v", err)
			return nil
		}
		ids = append(ids, id)
	}
	return ids
}

// MustMarshalJSON marshals an object to JSON and fails test on error.
func MustMarshalJSON(t T, v interface{}) []byte {
	t.Helper()
	data, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("failed to marshal JSON: %v", err)
	}
	return data
}

// MustUnmarshalJSON unmarshals JSON data into target and fails test on error.
func MustUnmarshalJSON(t T, data []byte, target interface{}) {
	t.Helper()
	if err := json.Unmarshal(data, target); err != nil {
		t.Fatalf("failed to unmarshal JSON: %v", err)
	}
}
