// internal/api/handlers_test.go
package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/litelis/FrameForge/internal/config"
	"github.com/litelis/FrameForge/internal/services"
	"github.com/litelis/FrameForge/internal/storage"
)

func newTestRouter(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	if err := config.InitConfig(t.TempDir()); err != nil {
		t.Fatalf("config init: %v", err)
	}

	store, err := storage.NewFileStorage(t.TempDir())
	if err != nil {
		t.Fatalf("storage init: %v", err)
	}

	llm := services.NewEmptyLLMService()
	sessions := services.NewSessionService(
		store,
		services.NewRefinerService(),
		services.NewQuestionService(llm),
		services.NewNarrativeService(),
		services.NewPlannerService(llm),
		services.NewNotifierService(),
	)

	handler := NewHandler(
		sessions,
		services.NewMediaService(nil, nil),
		services.NewProgressService(),
		services.NewNotifierService(),
		services.NewConfigService(),
		llm,
		store,
	)

	router := gin.New()
	router.GET("/health", handler.HealthCheck)

	apiGroup := router.Group("/api")
	{
		apiGroup.POST("/upload", handler.UploadVideo)
		apiGroup.POST("/webhook/config", handler.ConfigureWebhook)
		apiGroup.POST("/phase1/refine", handler.Phase1Refine)
		apiGroup.POST("/phase1/approve", handler.Phase1Approve)
		apiGroup.POST("/phase2/questions", handler.Phase2Questions)
		apiGroup.POST("/phase2/answer", handler.Phase2Answer)
		apiGroup.POST("/phase3/analyze", handler.Phase3Analyze)
		apiGroup.POST("/phase4/plan", handler.Phase4Plan)
		apiGroup.POST("/transcription", handler.StartTranscription)
		apiGroup.POST("/visual-analysis", handler.StartVisualAnalysis)
		apiGroup.GET("/sessions/:id", handler.GetSession)
		apiGroup.GET("/plans/:id/export", handler.ExportPlan)
		apiGroup.GET("/settings/llm", handler.GetLLMStatus)
	}

	return router
}

func postJSON(t *testing.T, router *gin.Engine, path string, body map[string]interface{}) *httptest.ResponseRecorder {
	t.Helper()
	payload, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("marshaling request: %v", err)
	}
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func decodeResponse(t *testing.T, w *httptest.ResponseRecorder) APIResponse {
	t.Helper()
	var resp APIResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decoding response %q: %v", w.Body.String(), err)
	}
	return resp
}

func dataMap(t *testing.T, resp APIResponse) map[string]interface{} {
	t.Helper()
	data, ok := resp.Data.(map[string]interface{})
	if !ok {
		t.Fatalf("response data is not an object: %#v", resp.Data)
	}
	return data
}

func uploadVideo(t *testing.T, router *gin.Engine, sessionID, filename string) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	if sessionID != "" {
		writer.WriteField("session_id", sessionID)
	}
	part, err := writer.CreateFormFile("file", filename)
	if err != nil {
		t.Fatalf("creating form file: %v", err)
	}
	part.Write([]byte("fake video bytes"))
	writer.Close()

	req := httptest.NewRequest(http.MethodPost, "/api/upload", &buf)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestUploadVideo(t *testing.T) {
	router := newTestRouter(t)

	w := uploadVideo(t, router, "", "holiday.mp4")
	if w.Code != http.StatusOK {
		t.Fatalf("upload status = %d, body %s", w.Code, w.Body.String())
	}

	resp := decodeResponse(t, w)
	data := dataMap(t, resp)
	if data["session_id"] == "" {
		t.Error("upload should mint a session id")
	}
	if data["next_phase"] != "phase1_prompt_refinement" {
		t.Errorf("next_phase = %v", data["next_phase"])
	}
}

func TestUploadRejectsUnknownExtension(t *testing.T) {
	router := newTestRouter(t)

	w := uploadVideo(t, router, "", "notes.txt")
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", w.Code)
	}
	resp := decodeResponse(t, w)
	if resp.Error == nil || resp.Error.Code != ErrorFileInvalid {
		t.Errorf("error = %+v, want code %s", resp.Error, ErrorFileInvalid)
	}
}

func TestPhase2BeforeApprovalRejected(t *testing.T) {
	router := newTestRouter(t)

	w := postJSON(t, router, "/api/phase1/refine", map[string]interface{}{
		"session_id":      "gate-test",
		"original_prompt": "please make a video of my vacation",
	})
	if w.Code != http.StatusOK {
		t.Fatalf("refine status = %d", w.Code)
	}

	w = postJSON(t, router, "/api/phase2/questions", map[string]interface{}{
		"session_id": "gate-test",
	})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", w.Code)
	}
	resp := decodeResponse(t, w)
	if resp.Error == nil || resp.Error.Code != ErrorPhasePrecondition {
		t.Errorf("error = %+v, want code %s", resp.Error, ErrorPhasePrecondition)
	}
}

func TestTranscriptionRequiresVideo(t *testing.T) {
	router := newTestRouter(t)

	postJSON(t, router, "/api/phase1/refine", map[string]interface{}{
		"session_id":      "no-video",
		"original_prompt": "edit my clips",
	})

	w := postJSON(t, router, "/api/transcription", map[string]interface{}{
		"session_id": "no-video",
	})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", w.Code)
	}
	resp := decodeResponse(t, w)
	if resp.Error == nil || resp.Error.Code != ErrorNoVideoUploaded {
		t.Errorf("error = %+v, want code %s", resp.Error, ErrorNoVideoUploaded)
	}
}

func TestGetUnknownSessionReturns404(t *testing.T) {
	router := newTestRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/api/sessions/nope", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", w.Code)
	}
	resp := decodeResponse(t, w)
	if resp.Error == nil || resp.Error.Code != ErrorSessionNotFound {
		t.Errorf("error = %+v, want code %s", resp.Error, ErrorSessionNotFound)
	}
}

func TestFullEditingWorkflow(t *testing.T) {
	router := newTestRouter(t)

	// Upload raw footage.
	w := uploadVideo(t, router, "", "vacation.mp4")
	if w.Code != http.StatusOK {
		t.Fatalf("upload failed: %s", w.Body.String())
	}
	sessionID := dataMap(t, decodeResponse(t, w))["session_id"].(string)

	// Transcription and visual analysis collaborators (stub implementations).
	w = postJSON(t, router, "/api/transcription", map[string]interface{}{"session_id": sessionID})
	if w.Code != http.StatusOK {
		t.Fatalf("transcription failed: %s", w.Body.String())
	}
	if lang := dataMap(t, decodeResponse(t, w))["language"]; lang != "es" {
		t.Errorf("stub transcript language = %v, want es", lang)
	}

	w = postJSON(t, router, "/api/visual-analysis", map[string]interface{}{"session_id": sessionID})
	if w.Code != http.StatusOK {
		t.Fatalf("visual analysis failed: %s", w.Body.String())
	}

	// Phase 1: refine and approve.
	w = postJSON(t, router, "/api/phase1/refine", map[string]interface{}{
		"session_id":      sessionID,
		"original_prompt": "please make a video of my vacation that is good",
	})
	if w.Code != http.StatusOK {
		t.Fatalf("refine failed: %s", w.Body.String())
	}
	refineData := dataMap(t, decodeResponse(t, w))
	if refineData["user_action_required"] != "revise" {
		t.Errorf("vague prompt should request revision, got %v", refineData["user_action_required"])
	}

	w = postJSON(t, router, "/api/phase1/approve", map[string]interface{}{
		"session_id": sessionID,
		"approved":   true,
	})
	if w.Code != http.StatusOK {
		t.Fatalf("approve failed: %s", w.Body.String())
	}
	if next := dataMap(t, decodeResponse(t, w))["next_phase"]; next != "phase2_intelligent_questioning" {
		t.Errorf("next_phase = %v", next)
	}

	// Phase 2: generate questions and answer them all.
	w = postJSON(t, router, "/api/phase2/questions", map[string]interface{}{"session_id": sessionID})
	if w.Code != http.StatusOK {
		t.Fatalf("questions failed: %s", w.Body.String())
	}
	questions, ok := dataMap(t, decodeResponse(t, w))["questions"].([]interface{})
	if !ok || len(questions) == 0 {
		t.Fatal("expected a non-empty question list")
	}

	canned := map[string]interface{}{
		"editing_rhythm":    "Medium (balanced, standard pacing)",
		"source_material":   []string{"Mobile phone footage"},
		"voice_over_needed": "No voice-over needed",
		"subtitles_enabled": "No subtitles needed",
	}
	var lastAnswer map[string]interface{}
	for _, q := range questions {
		question := q.(map[string]interface{})
		id := question["id"].(string)
		answer, found := canned[id]
		if !found {
			answer = "default answer"
		}
		w = postJSON(t, router, "/api/phase2/answer", map[string]interface{}{
			"session_id":  sessionID,
			"question_id": id,
			"answer":      answer,
		})
		if w.Code != http.StatusOK {
			t.Fatalf("answer %s failed: %s", id, w.Body.String())
		}
		lastAnswer = dataMap(t, decodeResponse(t, w))
	}
	if lastAnswer["can_proceed"] != true {
		t.Error("all questions answered, can_proceed should be true")
	}

	// Phase 3: narrative reasoning returns only the summary.
	w = postJSON(t, router, "/api/phase3/analyze", map[string]interface{}{"session_id": sessionID})
	if w.Code != http.StatusOK {
		t.Fatalf("analyze failed: %s", w.Body.String())
	}
	analyzeData := dataMap(t, decodeResponse(t, w))
	summary, ok := analyzeData["narrative_summary"].(map[string]interface{})
	if !ok || summary["arc"] == "" {
		t.Fatalf("narrative summary missing arc: %v", analyzeData)
	}
	if summary["arc"] != "montage" {
		t.Errorf("vacation prompt should resolve to the montage arc, got %v", summary["arc"])
	}
	if _, leaked := summary["emotional_progression"]; leaked {
		t.Error("full analysis must not cross the API boundary")
	}

	// Phase 4: scene plan.
	w = postJSON(t, router, "/api/phase4/plan", map[string]interface{}{"session_id": sessionID})
	if w.Code != http.StatusOK {
		t.Fatalf("plan failed: %s", w.Body.String())
	}
	plan, ok := dataMap(t, decodeResponse(t, w))["scene_plan"].(map[string]interface{})
	if !ok {
		t.Fatal("scene_plan missing from response")
	}
	if plan["format"] != "16:9" {
		t.Errorf("default format = %v, want 16:9", plan["format"])
	}
	scenes, ok := plan["scenes"].([]interface{})
	if !ok || len(scenes) < 3 || len(scenes) > 8 {
		t.Fatalf("scene count outside [3,8]: %d", len(scenes))
	}
	firstScene := scenes[0].(map[string]interface{})
	if firstScene["transition"] != "cut" {
		t.Errorf("hook transition = %v, want cut", firstScene["transition"])
	}

	// Export the stored plan.
	req := httptest.NewRequest(http.MethodGet, fmt.Sprintf("/api/plans/%s/export", sessionID), nil)
	export := httptest.NewRecorder()
	router.ServeHTTP(export, req)
	if export.Code != http.StatusOK {
		t.Fatalf("export failed: %s", export.Body.String())
	}
	if ct := export.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("export content type = %q", ct)
	}
	var exported map[string]interface{}
	if err := json.Unmarshal(export.Body.Bytes(), &exported); err != nil {
		t.Fatalf("export payload is not JSON: %v", err)
	}
	if exported["title"] == "" {
		t.Error("exported plan must carry a title")
	}

	// Session summary reflects the finished pipeline.
	req = httptest.NewRequest(http.MethodGet, "/api/sessions/"+sessionID, nil)
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("session summary failed: %s", w.Body.String())
	}
	summaryData := dataMap(t, decodeResponse(t, w))
	if summaryData["phase"] != "plan_ready" {
		t.Errorf("phase = %v, want plan_ready", summaryData["phase"])
	}
	if summaryData["has_plan"] != true || summaryData["has_video"] != true {
		t.Errorf("summary flags wrong: %v", summaryData)
	}
}

func TestConfigureWebhookValidation(t *testing.T) {
	router := newTestRouter(t)

	w := postJSON(t, router, "/api/webhook/config", map[string]interface{}{
		"session_id": "hook-test",
		"config": map[string]interface{}{
			"webhook_url": "not-a-url",
			"enabled":     true,
		},
	})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", w.Code)
	}

	w = postJSON(t, router, "/api/webhook/config", map[string]interface{}{
		"session_id": "hook-test",
		"config": map[string]interface{}{
			"webhook_url": "https://example.com/hook",
			"enabled":     true,
		},
	})
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", w.Code, w.Body.String())
	}
}

func TestHealthCheck(t *testing.T) {
	router := newTestRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	data := dataMap(t, decodeResponse(t, w))
	if data["status"] != "ok" {
		t.Errorf("status field = %v", data["status"])
	}
}
