package main

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/myrjola/pelocoach/internal/e2etest"
	"github.com/myrjola/pelocoach/internal/testhelpers"
)

const (
	stubUsername = "member@example.com"
	stubPassword = "hunter2"
)

// newPlatformStub fakes the fitness platform API endpoints the app calls.
func newPlatformStub(t *testing.T) *httptest.Server {
	t.Helper()

	mux := http.NewServeMux()
	mux.HandleFunc("POST /auth/login", func(w http.ResponseWriter, r *http.Request) {
		var creds struct {
			UsernameOrEmail string `json:"username_or_email"`
			Password        string `json:"password"`
		}
		if err := json.NewDecoder(r.Body).Decode(&creds); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		if creds.UsernameOrEmail != stubUsername || creds.Password != stubPassword {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		http.SetCookie(w, &http.Cookie{Name: "peloton_session_id", Value: "stub-token"})
		_ = json.NewEncoder(w).Encode(map[string]string{
			"user_id":    "stub-user",
			"session_id": "stub-token",
		})
	})
	mux.HandleFunc("GET /api/instructor", func(w http.ResponseWriter, _ *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{"data": []any{}, "page_count": 1})
	})
	mux.HandleFunc("GET /api/v2/ride/archived", func(w http.ResponseWriter, _ *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{"data": []any{}})
	})
	mux.HandleFunc("GET /api/user/{userID}/workouts", func(w http.ResponseWriter, _ *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{"data": []any{}})
	})
	mux.HandleFunc("POST /graphql", func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			OperationName string `json:"operationName"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		result := map[string]any{"__typename": "StackResponseSuccess", "userStack": map[string]any{
			"stackedClassList": []any{},
		}}
		_ = json.NewEncoder(w).Encode(map[string]any{"data": map[string]any{
			"addClassToStack": result,
			"modifyStack":     result,
			"viewUserStack":   result,
		}})
	})

	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return server
}

// testLookupEnv builds the environment for a test server backed by the given
// platform stub.
func testLookupEnv(platformURL string) func(string) (string, bool) {
	return func(key string) (string, bool) {
		switch key {
		case "PELOCOACH_SQLITE_URL":
			return ":memory:", true
		case "PELOCOACH_ADDR":
			return "localhost:0", true
		case "PELOCOACH_PLATFORM_API_URL":
			return platformURL, true
		case "PELOCOACH_PLATFORM_GRAPHQL_URL":
			return platformURL + "/graphql", true
		case "OPENAI_API_KEY":
			return "test-key", true
		default:
			return "", false
		}
	}
}

// startTestServer starts the app against a fresh platform stub and in-memory
// database.
func startTestServer(t *testing.T) *e2etest.Server {
	t.Helper()
	stub := newPlatformStub(t)
	server, err := e2etest.StartServer(t, testhelpers.NewWriter(t), testLookupEnv(stub.URL), run)
	if err != nil {
		t.Fatalf("Failed to start server: %v", err)
	}
	return server
}
