// internal/services/llm_service_test.go
package services

import (
	"context"
	"testing"

	"github.com/litelis/FrameForge/internal/models"
)

func TestSanitizeLLMJSONResponse(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want string
	}{
		{"plain json untouched", `{"a":1}`, `{"a":1}`},
		{"markdown fence", "```json\n{\"a\":1}\n```", `{"a":1}`},
		{"bare fence", "```\n{\"a\":1}\n```", `{"a":1}`},
		{"surrounding whitespace", "  {\"a\":1}  \n", `{"a":1}`},
		{"byte order mark", "\uFEFF{\"a\":1}", `{"a":1}`},
		{"non-breaking space", "{\"a\": 1}", `{"a": 1}`},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := SanitizeLLMJSONResponse(tc.in); got != tc.want {
				t.Errorf("SanitizeLLMJSONResponse(%q) = %q, want %q", tc.in, got, tc.want)
			}
		})
	}
}

func TestEmptyLLMServiceNotReady(t *testing.T) {
	svc := NewEmptyLLMService()

	if svc.IsReady() {
		t.Error("service without provider must not report ready")
	}
	if state := svc.GetReadyState(); state == "ready" {
		t.Errorf("ready state = %q", state)
	}

	if _, err := svc.CreateCompletion(context.Background(), "system", "prompt"); err == nil {
		t.Error("completion without provider should fail")
	}
}

func TestQuestionsFallBackWithoutProvider(t *testing.T) {
	svc := NewQuestionService(NewEmptyLLMService())

	questions := svc.GenerateDynamicQuestions(context.Background(),
		"edit my vacation footage", nil, nil, models.AnswerSet{})

	catalog := svc.GenerateQuestions("edit my vacation footage", models.AnswerSet{})
	if len(questions) != len(catalog) {
		t.Errorf("unready provider should fall back to the catalog: got %d questions, catalog has %d",
			len(questions), len(catalog))
	}
}

func TestPlanFallsBackWithoutProvider(t *testing.T) {
	planner := NewPlannerService(NewEmptyLLMService())
	inputs := planInputsForTest(planAnswers())

	plan, err := planner.GeneratePlanWithLLM(context.Background(), inputs)
	if err != nil {
		t.Fatalf("fallback planning failed: %v", err)
	}

	deterministic, err := planner.GeneratePlan(inputs)
	if err != nil {
		t.Fatalf("deterministic planning failed: %v", err)
	}
	if plan.Title != deterministic.Title || len(plan.Scenes) != len(deterministic.Scenes) {
		t.Error("unready provider must yield the deterministic plan")
	}
}

func TestUpdateProviderRejectsUnknown(t *testing.T) {
	svc := NewEmptyLLMService()

	if err := svc.UpdateProvider("definitely-not-registered", nil); err == nil {
		t.Error("unknown provider should be rejected")
	}
	if svc.IsReady() {
		t.Error("failed update must not mark the service ready")
	}
}
