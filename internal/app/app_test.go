// internal/app/app_test.go
package app

import (
	"context"
	"os"
	"syscall"
	"testing"
	"time"

	"github.com/litelis/FrameForge/internal/config"
	"github.com/litelis/FrameForge/internal/di"
)

func setupTest(t *testing.T) string {
	t.Helper()
	instance = nil
	di.GetContainer().Clear()
	return t.TempDir()
}

func cleanupTest() {
	instance = nil
	di.GetContainer().Clear()
}

type mockServer struct {
	ShutdownCalled bool
}

func (m *mockServer) ListenAndServe() error {
	return nil
}

func (m *mockServer) Shutdown(ctx context.Context) error {
	m.ShutdownCalled = true
	return nil
}

func TestGetApp(t *testing.T) {
	setupTest(t)
	defer cleanupTest()

	app1 := GetApp()
	if app1 == nil {
		t.Fatal("GetApp should return a non-nil instance")
	}
	if app2 := GetApp(); app1 != app2 {
		t.Fatal("GetApp should return the same instance on every call")
	}
	if app1.stopChan == nil {
		t.Fatal("stopChan should be initialized")
	}
}

func TestInitServices(t *testing.T) {
	tempDir := setupTest(t)
	defer cleanupTest()

	if err := config.InitConfig(tempDir); err != nil {
		t.Fatalf("config init failed: %v", err)
	}

	if err := InitServices(); err != nil {
		t.Fatalf("InitServices failed: %v", err)
	}

	container := di.GetContainer()
	for _, name := range []string{
		"storage", "llm", "config", "notifier", "progress",
		"media", "refiner", "questions", "narrative", "planner", "session",
	} {
		if !container.Has(name) {
			t.Errorf("service %q should be registered", name)
		}
	}
}

func TestRunShutsDownOnSignal(t *testing.T) {
	setupTest(t)
	defer cleanupTest()

	mockSrv := &mockServer{}
	testApp := &App{
		config:   &config.AppConfig{Port: "8081"},
		server:   mockSrv,
		stopChan: make(chan os.Signal, 1),
	}
	instance = testApp

	go func() {
		time.Sleep(100 * time.Millisecond)
		testApp.stopChan <- syscall.SIGTERM
	}()

	if err := Run(); err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if !mockSrv.ShutdownCalled {
		t.Error("server.Shutdown should have been called")
	}
}

func TestGetConfig(t *testing.T) {
	setupTest(t)
	defer cleanupTest()

	testConfig := &config.AppConfig{Port: "9000", DebugMode: true}
	testApp := &App{config: testConfig}
	instance = testApp

	if cfg := testApp.GetConfig(); cfg != testConfig {
		t.Error("GetConfig should return the application's configuration")
	}
	if !IsDebugMode() {
		t.Error("IsDebugMode should reflect the loaded configuration")
	}
}

func TestIsDebugModeWithoutInstance(t *testing.T) {
	setupTest(t)
	defer cleanupTest()

	if IsDebugMode() {
		t.Error("IsDebugMode should be false before initialization")
	}
}
