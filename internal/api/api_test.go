package api_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"slices"
	"strings"
	"testing"

	"github.com/emicklei/go-restful/v3"
	"github.com/povarna/generative-ai-agents/uni-guard/internal/api"
	"github.com/povarna/generative-ai-agents/uni-guard/internal/api/middleware"
	"github.com/povarna/generative-ai-agents/uni-guard/internal/guardrails"
	"github.com/povarna/generative-ai-agents/uni-guard/internal/metrics"
	"github.com/povarna/generative-ai-agents/uni-guard/internal/models"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
)

const testSVNR = "1237010180"

type fakeAsker struct {
	response models.FinalResponse
	queries  []models.Query
}

func (f *fakeAsker) Handle(ctx context.Context, query models.Query) models.FinalResponse {
	f.queries = append(f.queries, query)
	return f.response
}

func setupTestAPI(t *testing.T, asker api.Asker, limiter *middleware.RateLimiter) *restful.Container {
	t.Helper()

	rules, err := guardrails.DefaultRuleSet()
	if err != nil {
		t.Fatalf("failed to load rules: %v", err)
	}
	logger := zerolog.Nop()

	reg := prometheus.NewRegistry()
	metrics.NewRecorder(reg)

	handler := api.NewHandler(asker, guardrails.NewInputEngine(rules), limiter, 2000, &logger)
	container := restful.NewContainer()
	container.Filter(middleware.RecoverPanic)
	api.RegisterRoutes(container, handler)
	api.RegisterOpenAPI(container)
	api.RegisterMetrics(container, reg)
	return container
}

func post(t *testing.T, container *restful.Container, path string, body any) *httptest.ResponseRecorder {
	t.Helper()

	data, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("failed to marshal request: %v", err)
	}
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(data))
	req.Header.Set("Content-Type", "application/json")

	recorder := httptest.NewRecorder()
	container.ServeHTTP(recorder, req)
	return recorder
}

func TestAPI_Health(t *testing.T) {
	container := setupTestAPI(t, &fakeAsker{}, nil)

	recorder := httptest.NewRecorder()
	container.ServeHTTP(recorder, httptest.NewRequest(http.MethodGet, "/api/v1/health", nil))

	if recorder.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", recorder.Code)
	}
	var response api.HealthResponse
	if err := json.Unmarshal(recorder.Body.Bytes(), &response); err != nil {
		t.Fatalf("failed to parse response: %v", err)
	}
	if response.Status != "ok" || response.RuleSetVersion == "" {
		t.Errorf("unexpected health response: %+v", response)
	}
}

func TestAPI_Ask(t *testing.T) {
	asker := &fakeAsker{response: models.FinalResponse{
		RequestID:   "req-1",
		Text:        "Databases is taught by Anna Berger.",
		Disposition: models.DispositionAllowed,
		Citations:   []models.RecordRef{{EntityType: models.EntityCourse, ID: "301"}},
		State:       models.StateDelivered,
	}}
	container := setupTestAPI(t, asker, nil)

	recorder := post(t, container, "/api/v1/ask", api.AskRequest{Query: "Who teaches Databases?", SessionID: "s-1"})

	if recorder.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", recorder.Code, recorder.Body.String())
	}
	var response models.FinalResponse
	if err := json.Unmarshal(recorder.Body.Bytes(), &response); err != nil {
		t.Fatalf("failed to parse response: %v", err)
	}
	if response.RequestID != "req-1" || len(response.Citations) != 1 {
		t.Errorf("unexpected response: %+v", response)
	}
	if len(asker.queries) != 1 || asker.queries[0].SessionID != "s-1" {
		t.Errorf("query not forwarded: %+v", asker.queries)
	}
	if strings.Contains(recorder.Body.String(), "state") || strings.Contains(recorder.Body.String(), "reasons") {
		t.Errorf("internal fields leaked to the client: %s", recorder.Body.String())
	}
}

func TestAPI_Ask_Status(t *testing.T) {
	tests := []struct {
		name        string
		disposition models.Disposition
		retryable   bool
		want        int
	}{
		{"redacted", models.DispositionRedacted, false, http.StatusOK},
		{"blocked", models.DispositionBlocked, false, http.StatusOK},
		{"unavailable", models.DispositionUnavailable, true, http.StatusServiceUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			asker := &fakeAsker{response: models.FinalResponse{Disposition: tt.disposition, Retryable: tt.retryable}}
			recorder := post(t, setupTestAPI(t, asker, nil), "/api/v1/ask", api.AskRequest{Query: "Who teaches Databases?"})

			if recorder.Code != tt.want {
				t.Errorf("status = %d, want %d", recorder.Code, tt.want)
			}
			if tt.retryable && recorder.Header().Get("Retry-After") == "" {
				t.Error("retryable response should carry Retry-After")
			}
		})
	}
}

func TestAPI_Ask_BadRequest(t *testing.T) {
	container := setupTestAPI(t, &fakeAsker{}, nil)

	tests := []struct {
		name string
		body any
	}{
		{"empty query", api.AskRequest{}},
		{"too long", api.AskRequest{Query: strings.Repeat("a", 2001)}},
		{"long session", api.AskRequest{Query: "hi there", SessionID: strings.Repeat("s", 200)}},
		{"not an object", []string{"x"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			recorder := post(t, container, "/api/v1/ask", tt.body)
			if recorder.Code != http.StatusBadRequest {
				t.Errorf("status = %d, want 400", recorder.Code)
			}
			var body middleware.ErrorResponse
			if err := json.Unmarshal(recorder.Body.Bytes(), &body); err != nil {
				t.Fatalf("error body is not JSON: %v", err)
			}
		})
	}
}

func TestAPI_Ask_RateLimited(t *testing.T) {
	asker := &fakeAsker{response: models.FinalResponse{Disposition: models.DispositionAllowed}}
	container := setupTestAPI(t, asker, middleware.NewRateLimiter(0.001, 2))

	var codes []int
	for i := 0; i < 3; i++ {
		codes = append(codes, post(t, container, "/api/v1/ask", api.AskRequest{Query: "Who teaches Databases?", SessionID: "s-1"}).Code)
	}
	if !slices.Equal(codes, []int{200, 200, 429}) {
		t.Errorf("status codes = %v, want [200 200 429]", codes)
	}
	if len(asker.queries) != 2 {
		t.Errorf("limited request reached the pipeline")
	}

	other := post(t, container, "/api/v1/ask", api.AskRequest{Query: "Who teaches Databases?", SessionID: "s-2"})
	if other.Code != http.StatusOK {
		t.Errorf("other session limited: %d", other.Code)
	}
}

func TestAPI_CheckInput(t *testing.T) {
	container := setupTestAPI(t, &fakeAsker{}, nil)

	tests := []struct {
		name    string
		query   string
		verdict string
		reason  models.ReasonCode
	}{
		{"benign", "Who teaches Databases?", "ALLOW", ""},
		{"identifier", "Whose number is " + testSVNR + "?", "BLOCK", models.ReasonRegulatedIDPresent},
		{"injection", "'; DROP TABLE students; --", "BLOCK", models.ReasonInjectionSuspected},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			recorder := post(t, container, "/api/v1/guardrails/input", api.InputCheckRequest{Query: tt.query})
			if recorder.Code != http.StatusOK {
				t.Fatalf("status = %d, want 200", recorder.Code)
			}
			if strings.Contains(recorder.Body.String(), testSVNR) {
				t.Fatal("response quotes the identifier")
			}

			var response api.InputCheckResponse
			if err := json.Unmarshal(recorder.Body.Bytes(), &response); err != nil {
				t.Fatalf("failed to parse response: %v", err)
			}
			if response.Verdict != tt.verdict {
				t.Errorf("verdict = %s, want %s", response.Verdict, tt.verdict)
			}
			if tt.reason != "" && !slices.Contains(response.Reasons, tt.reason) {
				t.Errorf("reasons %v missing %s", response.Reasons, tt.reason)
			}
		})
	}
}

func TestAPI_OpenAPIAndMetrics(t *testing.T) {
	container := setupTestAPI(t, &fakeAsker{}, nil)

	for _, path := range []string{"/api/v1/openapi.json", "/metrics"} {
		recorder := httptest.NewRecorder()
		container.ServeHTTP(recorder, httptest.NewRequest(http.MethodGet, path, nil))
		if recorder.Code != http.StatusOK {
			t.Errorf("%s: status = %d, want 200", path, recorder.Code)
		}
	}
}
