package platform_test

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/myrjola/pelocoach/internal/errors"
	"github.com/myrjola/pelocoach/internal/platform"
)

type graphqlRequest struct {
	OperationName string         `json:"operationName"`
	Variables     map[string]any `json:"variables"`
}

func stackServer(t *testing.T, respond func(graphqlRequest) string) *platform.Client {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("POST /graphql", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Peloton-Platform") != "web" {
			http.Error(w, "missing platform header", http.StatusBadRequest)
			return
		}
		var req graphqlRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		_, _ = w.Write([]byte(respond(req)))
	})
	return newClient(t, mux)
}

func TestAddToStack(t *testing.T) {
	t.Parallel()

	sess := platform.Session{UserID: "user-1", Token: "tok"}

	t.Run("success", func(t *testing.T) {
		t.Parallel()
		client := stackServer(t, func(req graphqlRequest) string {
			input, _ := req.Variables["input"].(map[string]any)
			if input["pelotonClassId"] != "jt-123" {
				t.Errorf("pelotonClassId = %v, want jt-123", input["pelotonClassId"])
			}
			return `{"data":{"addClassToStack":{"__typename":"StackResponseSuccess","numClasses":1}}}`
		})
		if err := client.AddToStack(t.Context(), sess, "jt-123"); err != nil {
			t.Fatalf("AddToStack() unexpected error: %v", err)
		}
	})

	t.Run("rejected inside 200 response", func(t *testing.T) {
		t.Parallel()
		client := stackServer(t, func(graphqlRequest) string {
			return `{"data":{"addClassToStack":{"__typename":"StackError"}}}`
		})
		if err := client.AddToStack(t.Context(), sess, "jt-123"); !errors.Is(err, platform.ErrPlatform) {
			t.Fatalf("AddToStack() error = %v, want ErrPlatform", err)
		}
	})

	t.Run("graphql errors field", func(t *testing.T) {
		t.Parallel()
		client := stackServer(t, func(graphqlRequest) string {
			return `{"errors":[{"message":"boom"}]}`
		})
		if err := client.AddToStack(t.Context(), sess, "jt-123"); !errors.Is(err, platform.ErrPlatform) {
			t.Fatalf("AddToStack() error = %v, want ErrPlatform", err)
		}
	})
}

func TestClearStack(t *testing.T) {
	t.Parallel()

	client := stackServer(t, func(req graphqlRequest) string {
		if req.OperationName != "ModifyStack" {
			t.Errorf("operationName = %q, want ModifyStack", req.OperationName)
		}
		return `{"data":{"modifyStack":{"__typename":"StackResponseSuccess","numClasses":0}}}`
	})
	if err := client.ClearStack(t.Context(), platform.Session{Token: "tok"}); err != nil {
		t.Fatalf("ClearStack() unexpected error: %v", err)
	}
}

func TestViewStack(t *testing.T) {
	t.Parallel()

	client := stackServer(t, func(graphqlRequest) string {
		return `{"data":{"viewUserStack":{"__typename":"StackResponseSuccess","userStack":{
			"stackedClassList":[
				{"pelotonClass":{"joinToken":"jt-1","title":"30 min Ride"}},
				{"pelotonClass":{"joinToken":"jt-2","title":"15 min Core"}}
			]}}}}`
	})

	entries, err := client.ViewStack(t.Context(), platform.Session{Token: "tok"})
	if err != nil {
		t.Fatalf("ViewStack() unexpected error: %v", err)
	}
	if len(entries) != 2 || entries[0].JoinToken != "jt-1" || entries[1].Title != "15 min Core" {
		t.Fatalf("ViewStack() = %+v, want two ordered entries", entries)
	}
}
