package metrics

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func resetHealth(critical ...string) {
	if critical == nil {
		critical = []string{"core", "events"}
	}
	healthChecker = &HealthChecker{
		components: make(map[string]ComponentHealth),
		critical:   critical,
		startTime:  time.Now(),
	}
}

func TestRegisterComponent(t *testing.T) {
	resetHealth()

	RegisterComponent("scheduler", true, "running")

	comp := healthChecker.components["scheduler"]
	if !comp.Healthy {
		t.Error("component should be healthy")
	}
	if comp.Message != "running" {
		t.Errorf("expected message 'running', got '%s'", comp.Message)
	}
}

func TestUpdateComponent(t *testing.T) {
	resetHealth()

	RegisterComponent("store", true, "ok")
	UpdateComponent("store", false, "write failed")

	comp := healthChecker.components["store"]
	if comp.Healthy {
		t.Error("component should be unhealthy after update")
	}
	if comp.Message != "write failed" {
		t.Errorf("expected message 'write failed', got '%s'", comp.Message)
	}
}

func TestGetHealth(t *testing.T) {
	resetHealth()
	healthChecker.version = "1.0.0"

	RegisterComponent("core", true, "")
	RegisterComponent("events", true, "")

	health := GetHealth()
	if health.Status != "healthy" {
		t.Errorf("expected status 'healthy', got '%s'", health.Status)
	}
	if health.Version != "1.0.0" {
		t.Errorf("expected version '1.0.0', got '%s'", health.Version)
	}

	UpdateComponent("events", false, "broker stopped")
	health = GetHealth()
	if health.Status != "unhealthy" {
		t.Errorf("expected status 'unhealthy', got '%s'", health.Status)
	}
	if health.Components["events"] != "unhealthy: broker stopped" {
		t.Errorf("unexpected events status: %s", health.Components["events"])
	}
}

func TestGetReadiness(t *testing.T) {
	resetHealth("core", "events", "store")

	RegisterComponent("core", true, "")
	RegisterComponent("events", true, "")

	readiness := GetReadiness()
	if readiness.Status != "not_ready" {
		t.Errorf("expected status 'not_ready' while store is missing, got '%s'", readiness.Status)
	}
	if readiness.Message == "" {
		t.Error("expected message explaining why not ready")
	}

	RegisterComponent("store", true, "")
	readiness = GetReadiness()
	if readiness.Status != "ready" {
		t.Errorf("expected status 'ready', got '%s'", readiness.Status)
	}

	UpdateComponent("core", false, "shutting down")
	readiness = GetReadiness()
	if readiness.Status != "not_ready" {
		t.Errorf("expected status 'not_ready', got '%s'", readiness.Status)
	}
}

func TestSetCriticalComponents(t *testing.T) {
	resetHealth()
	SetCriticalComponents("core")

	RegisterComponent("core", true, "")
	// events is not critical anymore, so its absence does not gate
	// readiness.
	readiness := GetReadiness()
	if readiness.Status != "ready" {
		t.Errorf("expected status 'ready', got '%s'", readiness.Status)
	}
}

func TestHealthHandler(t *testing.T) {
	resetHealth()
	RegisterComponent("core", true, "")

	w := httptest.NewRecorder()
	HealthHandler()(w, httptest.NewRequest("GET", "/health", nil))

	if w.Code != http.StatusOK {
		t.Errorf("expected status 200, got %d", w.Code)
	}
	var health HealthStatus
	if err := json.NewDecoder(w.Body).Decode(&health); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if health.Status != "healthy" {
		t.Errorf("expected healthy status, got %s", health.Status)
	}

	UpdateComponent("core", false, "broken")
	w = httptest.NewRecorder()
	HealthHandler()(w, httptest.NewRequest("GET", "/health", nil))
	if w.Code != http.StatusServiceUnavailable {
		t.Errorf("expected status 503, got %d", w.Code)
	}
}

func TestReadyHandler(t *testing.T) {
	resetHealth("core")

	w := httptest.NewRecorder()
	ReadyHandler()(w, httptest.NewRequest("GET", "/ready", nil))
	if w.Code != http.StatusServiceUnavailable {
		t.Errorf("expected status 503 before registration, got %d", w.Code)
	}

	RegisterComponent("core", true, "")
	w = httptest.NewRecorder()
	ReadyHandler()(w, httptest.NewRequest("GET", "/ready", nil))
	if w.Code != http.StatusOK {
		t.Errorf("expected status 200, got %d", w.Code)
	}
}

func TestLivenessHandler(t *testing.T) {
	resetHealth()

	w := httptest.NewRecorder()
	LivenessHandler()(w, httptest.NewRequest("GET", "/live", nil))

	if w.Code != http.StatusOK {
		t.Errorf("expected status 200, got %d", w.Code)
	}
	var response map[string]string
	if err := json.NewDecoder(w.Body).Decode(&response); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if response["status"] != "alive" {
		t.Errorf("expected status 'alive', got '%s'", response["status"])
	}
	if response["uptime"] == "" {
		t.Error("uptime should not be empty")
	}
}
