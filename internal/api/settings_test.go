package api

import (
	"errors"
	"net/http"
	"testing"

	"txtforge/internal/models"
	"txtforge/internal/openrouter"
)

func TestAISettingsEmptyAndMasked(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, request{method: http.MethodGet, path: "/api/ai-settings", admin: true})
	expectStatus(t, rec, http.StatusOK)
	empty := decode[map[string]any](t, rec)
	if empty["openrouterApiKey"] != nil {
		t.Errorf("openrouterApiKey = %v, want null", empty["openrouterApiKey"])
	}
	if m, ok := empty["models"].([]any); !ok || len(m) != 0 {
		t.Errorf("models = %v, want []", empty["models"])
	}

	rec = env.do(t, request{method: http.MethodPut, path: "/api/ai-settings/api-key", admin: true, body: apiKeyRequest{APIKey: "sk-or-v1-abcdef1234"}})
	expectStatus(t, rec, http.StatusOK)
	if got := decode[map[string]any](t, rec); got["maskedKey"] != "...1234" {
		t.Errorf("maskedKey = %v", got["maskedKey"])
	}

	rec = env.do(t, request{method: http.MethodGet, path: "/api/ai-settings", admin: true})
	expectStatus(t, rec, http.StatusOK)
	if got := decode[map[string]any](t, rec); got["openrouterApiKey"] != "...1234" {
		t.Errorf("openrouterApiKey = %v, want ...1234", got["openrouterApiKey"])
	}
}

func TestSetAPIKeyValidation(t *testing.T) {
	tests := []struct {
		name      string
		valid     bool
		err       error
		want      int
		wantSaved bool
	}{
		{"accepted", true, nil, http.StatusOK, true},
		{"rejected", false, nil, http.StatusBadRequest, false},
		{"upstream down", false, errors.New("dial tcp: refused"), http.StatusBadGateway, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t)
			env.models.keyValid, env.models.validateErr = tt.valid, tt.err

			rec := env.do(t, request{
				method: http.MethodPut,
				path:   "/api/ai-settings/api-key?validate=true",
				admin:  true,
				body:   apiKeyRequest{APIKey: "sk-test"},
			})
			expectStatus(t, rec, tt.want)

			saved := env.settings.settings != nil && env.settings.settings.OpenRouterAPIKey == "sk-test"
			if saved != tt.wantSaved {
				t.Errorf("key saved = %v, want %v", saved, tt.wantSaved)
			}
		})
	}
}

func TestSetAPIKeyRequiresKey(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, request{method: http.MethodPut, path: "/api/ai-settings/api-key", admin: true, body: apiKeyRequest{}})
	expectStatus(t, rec, http.StatusBadRequest)
}

func TestModelsCRUD(t *testing.T) {
	env := newTestEnv(t)
	add := request{
		method: http.MethodPost,
		path:   "/api/ai-settings/models",
		admin:  true,
		body:   addModelRequest{Name: "GPT-4o mini", ModelID: "openai/gpt-4o-mini"},
	}

	rec := env.do(t, add)
	expectStatus(t, rec, http.StatusNotFound)

	env.settings.settings = &models.AISettings{ID: 1}

	rec = env.do(t, add)
	expectStatus(t, rec, http.StatusCreated)
	model := decode[models.AIModel](t, rec)
	if model.ModelID != "openai/gpt-4o-mini" || model.ID == 0 {
		t.Errorf("model = %+v", model)
	}

	rec = env.do(t, add)
	expectStatus(t, rec, http.StatusConflict)

	rec = env.do(t, request{method: http.MethodPost, path: "/api/ai-settings/models", admin: true, body: addModelRequest{Name: "x"}})
	expectStatus(t, rec, http.StatusBadRequest)

	rec = env.do(t, request{method: http.MethodDelete, path: "/api/ai-settings/models/1", admin: true})
	expectStatus(t, rec, http.StatusNoContent)

	rec = env.do(t, request{method: http.MethodDelete, path: "/api/ai-settings/models/1", admin: true})
	expectStatus(t, rec, http.StatusNotFound)
}

func TestTestModel(t *testing.T) {
	withKey := &models.AISettings{
		ID:               1,
		OpenRouterAPIKey: "sk-test",
		Models:           []models.AIModel{{ID: 1, Name: "Mini", ModelID: "openai/gpt-4o-mini"}},
	}

	tests := []struct {
		name        string
		settings    *models.AISettings
		body        testModelRequest
		completeErr error
		want        int
		wantSuccess bool
	}{
		{"no settings", nil, testModelRequest{ModelID: "openai/gpt-4o-mini", Prompt: "hi"}, nil, http.StatusBadRequest, false},
		{"unknown model", withKey, testModelRequest{ModelID: "x/unknown", Prompt: "hi"}, nil, http.StatusNotFound, false},
		{"empty prompt", withKey, testModelRequest{ModelID: "openai/gpt-4o-mini"}, nil, http.StatusBadRequest, false},
		{"upstream failure", withKey, testModelRequest{ModelID: "openai/gpt-4o-mini", Prompt: "hi"},
			&openrouter.APIError{StatusCode: 402, Body: "no credits"}, http.StatusBadGateway, false},
		{"success", withKey, testModelRequest{ModelID: "openai/gpt-4o-mini", Prompt: "hi"}, nil, http.StatusOK, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t)
			env.settings.settings = tt.settings
			env.models.completion = "hello"
			env.models.completeErr = tt.completeErr

			rec := env.do(t, request{method: http.MethodPost, path: "/api/ai-settings/models/test", admin: true, body: tt.body})
			expectStatus(t, rec, tt.want)

			got := decode[testModelResponse](t, rec)
			if got.Success != tt.wantSuccess {
				t.Errorf("success = %v, want %v", got.Success, tt.wantSuccess)
			}
			if tt.wantSuccess && (got.Response != "hello" || env.models.gotPrompt != "hi") {
				t.Errorf("response = %q prompt sent = %q", got.Response, env.models.gotPrompt)
			}
		})
	}
}

func TestAvailableModels(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, request{method: http.MethodGet, path: "/api/ai-settings/models/available", admin: true})
	expectStatus(t, rec, http.StatusBadRequest)

	env.settings.settings = &models.AISettings{ID: 1, OpenRouterAPIKey: "sk-test"}
	env.models.catalogue = []openrouter.Model{{ID: "openai/gpt-4o-mini", Name: "GPT-4o mini"}}

	rec = env.do(t, request{method: http.MethodGet, path: "/api/ai-settings/models/available", admin: true})
	expectStatus(t, rec, http.StatusOK)
	got := decode[[]openrouter.Model](t, rec)
	if len(got) != 1 || got[0].ID != "openai/gpt-4o-mini" {
		t.Errorf("catalogue = %+v", got)
	}
}

func TestCodeInjection(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, request{method: http.MethodGet, path: "/api/code-injection/public"})
	expectStatus(t, rec, http.StatusOK)
	if got := decode[map[string]string](t, rec); got["headerCode"] != "" {
		t.Errorf("headerCode = %q, want empty", got["headerCode"])
	}

	rec = env.do(t, request{method: http.MethodPost, path: "/api/code-injection", body: codeInjectionRequest{HeaderCode: "<script></script>"}})
	expectStatus(t, rec, http.StatusUnauthorized)

	rec = env.do(t, request{method: http.MethodPost, path: "/api/code-injection", admin: true, body: codeInjectionRequest{HeaderCode: "<script></script>"}})
	expectStatus(t, rec, http.StatusOK)

	rec = env.do(t, request{method: http.MethodGet, path: "/api/code-injection/public"})
	expectStatus(t, rec, http.StatusOK)
	if got := decode[map[string]string](t, rec); got["headerCode"] != "<script></script>" {
		t.Errorf("headerCode = %q", got["headerCode"])
	}

	rec = env.do(t, request{method: http.MethodGet, path: "/api/code-injection", admin: true})
	expectStatus(t, rec, http.StatusOK)
	if got := decode[models.CodeInjection](t, rec); got.HeaderCode != "<script></script>" {
		t.Errorf("admin headerCode = %q", got.HeaderCode)
	}
}
