package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"rex/internal/config"
	"rex/internal/logging"
)

type stubProbe struct {
	health ComponentHealth
}

func (p stubProbe) Check(context.Context) ComponentHealth { return p.health }

func newTestServer(t *testing.T, runner WorkflowRunner) (*Server, *TaskStore, string) {
	t.Helper()
	logDir := t.TempDir()
	cfg := &config.Config{
		ClaudePath: "/usr/local/bin/claude",
		Host:       "127.0.0.1",
		Port:       8001,
	}
	store := NewTaskStore(0)
	coordinator := NewCoordinator(runner, store, logDir, logging.Nop())
	health := NewHealthChecker()
	srv := New(cfg, coordinator, store, health, logDir, logging.Nop())
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_ = srv.Stop(ctx)
	})
	return srv, store, logDir
}

func postJSONRPC(t *testing.T, handler http.Handler, body string) map[string]any {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("POST / status = %d, body: %s", w.Code, w.Body.String())
	}
	var resp map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	return resp
}

func rpcError(t *testing.T, resp map[string]any) (code float64, message string) {
	t.Helper()
	errObj, ok := resp["error"].(map[string]any)
	if !ok {
		t.Fatalf("Expected error in response: %v", resp)
	}
	code, _ = errObj["code"].(float64)
	message, _ = errObj["message"].(string)
	return code, message
}

func rpcResult(t *testing.T, resp map[string]any) map[string]any {
	t.Helper()
	result, ok := resp["result"].(map[string]any)
	if !ok {
		t.Fatalf("Expected result in response: %v", resp)
	}
	return result
}

func artifactText(t *testing.T, result map[string]any) string {
	t.Helper()
	artifacts, _ := result["artifacts"].([]any)
	if len(artifacts) != 1 {
		t.Fatalf("Expected one artifact: %v", result)
	}
	parts, _ := artifacts[0].(map[string]any)["parts"].([]any)
	if len(parts) != 1 {
		t.Fatalf("Expected one part: %v", artifacts)
	}
	text, _ := parts[0].(map[string]any)["text"].(string)
	return text
}

func TestServer_AgentCard(t *testing.T) {
	srv, _, _ := newTestServer(t, &stubRunner{answer: "a"})

	for _, path := range []string{"/.well-known/agent.json", "/.well-known/agent-card.json"} {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		w := httptest.NewRecorder()
		srv.Handler().ServeHTTP(w, req)

		if w.Code != http.StatusOK {
			t.Fatalf("GET %s status = %d", path, w.Code)
		}
		var card map[string]any
		if err := json.Unmarshal(w.Body.Bytes(), &card); err != nil {
			t.Fatalf("Failed to decode card: %v", err)
		}
		if card["name"] != "repo_expert" {
			t.Errorf("card name = %v", card["name"])
		}
		if card["protocolVersion"] != "0.3.0" {
			t.Errorf("protocolVersion = %v", card["protocolVersion"])
		}
		skills, _ := card["skills"].([]any)
		if len(skills) != 1 {
			t.Fatalf("Expected one skill: %v", card)
		}
	}
}

func TestServer_JSONRPCParseError(t *testing.T) {
	srv, _, _ := newTestServer(t, &stubRunner{answer: "a"})

	resp := postJSONRPC(t, srv.Handler(), "{not json")
	code, _ := rpcError(t, resp)
	if code != -32700 {
		t.Errorf("Expected -32700, got %v", code)
	}
}

func TestServer_JSONRPCMethodNotFound(t *testing.T) {
	srv, _, _ := newTestServer(t, &stubRunner{answer: "a"})

	resp := postJSONRPC(t, srv.Handler(), `{"jsonrpc":"2.0","id":"1","method":"tasks/get","params":{}}`)
	code, message := rpcError(t, resp)
	if code != -32601 {
		t.Errorf("Expected -32601, got %v", code)
	}
	if message != "Method not found: tasks/get" {
		t.Errorf("Unexpected message: %q", message)
	}
	if resp["id"] != "1" {
		t.Errorf("Expected id echoed back, got %v", resp["id"])
	}
}

func TestServer_JSONRPCNoText(t *testing.T) {
	srv, _, _ := newTestServer(t, &stubRunner{answer: "a"})

	body := `{"jsonrpc":"2.0","id":"2","method":"message/send","params":{"message":{"parts":[{"kind":"data"}]}}}`
	resp := postJSONRPC(t, srv.Handler(), body)
	code, message := rpcError(t, resp)
	if code != -32602 {
		t.Errorf("Expected -32602, got %v", code)
	}
	if message != "No text in message" {
		t.Errorf("Unexpected message: %q", message)
	}
}

func TestServer_JSONRPCMissingRepoPath(t *testing.T) {
	srv, _, _ := newTestServer(t, &stubRunner{answer: "a"})

	body := `{"jsonrpc":"2.0","id":"3","method":"message/send","params":{"message":{"parts":[{"kind":"text","text":"What does this do?"}]}}}`
	resp := postJSONRPC(t, srv.Handler(), body)

	result := rpcResult(t, resp)
	status, _ := result["status"].(map[string]any)
	if status["state"] != "failed" {
		t.Errorf("Expected failed state, got %v", status)
	}
	if got := artifactText(t, result); !strings.Contains(got, "repo_path: /path/to/repo") {
		t.Errorf("Expected guidance text, got %q", got)
	}
}

func TestServer_JSONRPCSuccess(t *testing.T) {
	runner := &stubRunner{answer: "It serves A2A requests."}
	srv, store, _ := newTestServer(t, runner)

	body := `{"jsonrpc":"2.0","id":"4","method":"message/send","params":{"message":{"parts":[{"kind":"text","text":"What does this do? repo_path: /src/repo"}]}}}`
	resp := postJSONRPC(t, srv.Handler(), body)

	result := rpcResult(t, resp)
	if result["kind"] != "task" {
		t.Errorf("kind = %v", result["kind"])
	}
	status, _ := result["status"].(map[string]any)
	if status["state"] != "completed" {
		t.Errorf("Expected completed state, got %v", status)
	}
	if status["timestamp"] == "" {
		t.Error("Expected a timestamp on completion")
	}
	if got := artifactText(t, result); got != "It serves A2A requests." {
		t.Errorf("artifact text = %q", got)
	}

	taskID, _ := result["id"].(string)
	if len(taskID) != 8 {
		t.Errorf("Expected 8-char task ID, got %q", taskID)
	}
	if runner.last.Query != "What does this do?" || runner.last.RepoPath != "/src/repo" {
		t.Errorf("Unexpected run request: %+v", runner.last)
	}

	task, err := store.Get(taskID)
	if err != nil {
		t.Fatalf("Task not recorded: %v", err)
	}
	if task.Status != TaskStatusCompleted {
		t.Errorf("Task status = %s", task.Status)
	}
}

func TestServer_TasksAPI(t *testing.T) {
	srv, store, _ := newTestServer(t, &stubRunner{answer: "a"})
	store.Create("abc12345", "What is this?", "/src/repo")
	_ = store.SetCompleted("abc12345", "an answer", false)

	req := httptest.NewRequest(http.MethodGet, "/api/tasks", nil)
	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("GET /api/tasks status = %d", w.Code)
	}
	var listResp struct {
		Success bool `json:"success"`
		Data    struct {
			Tasks []Task `json:"tasks"`
			Total int    `json:"total"`
		} `json:"data"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &listResp); err != nil {
		t.Fatalf("Failed to decode list: %v", err)
	}
	if !listResp.Success || listResp.Data.Total != 1 || len(listResp.Data.Tasks) != 1 {
		t.Fatalf("Unexpected list response: %+v", listResp)
	}

	req = httptest.NewRequest(http.MethodGet, "/api/tasks/abc12345", nil)
	w = httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("GET /api/tasks/abc12345 status = %d", w.Code)
	}

	req = httptest.NewRequest(http.MethodGet, "/api/tasks/missing1", nil)
	w = httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, req)
	if w.Code != http.StatusNotFound {
		t.Fatalf("GET missing task status = %d", w.Code)
	}
}

func TestServer_Healthz(t *testing.T) {
	srv, _, _ := newTestServer(t, &stubRunner{answer: "a"})
	srv.health.RegisterProbe(stubProbe{health: ComponentHealth{Name: "ok_probe", Status: HealthStatusReady}})

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("Healthy /healthz status = %d", w.Code)
	}

	srv.health.RegisterProbe(stubProbe{health: ComponentHealth{Name: "bad_probe", Status: HealthStatusNotReady, Message: "binary missing"}})

	w = httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if w.Code != http.StatusServiceUnavailable {
		t.Fatalf("Degraded /healthz status = %d", w.Code)
	}
	var health healthResponse
	if err := json.Unmarshal(w.Body.Bytes(), &health); err != nil {
		t.Fatalf("Failed to decode health: %v", err)
	}
	if health.Status != "degraded" {
		t.Errorf("health status = %s", health.Status)
	}
	if len(health.Components) != 2 {
		t.Errorf("Expected 2 components, got %d", len(health.Components))
	}
}

func TestServer_Metrics(t *testing.T) {
	srv, _, _ := newTestServer(t, &stubRunner{answer: "a"})

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("GET /metrics status = %d", w.Code)
	}
}

func TestServer_TaskLogStream(t *testing.T) {
	srv, store, logDir := newTestServer(t, &stubRunner{answer: "a"})
	store.Create("tasklog1", "q", "/r")
	_ = store.SetCompleted("tasklog1", "done", false)

	sinkLine := `{"type":"result","result":"done"}` + "\n"
	if err := os.WriteFile(filepath.Join(logDir, "tasklog1_claude.log"), []byte(sinkLine), 0o644); err != nil {
		t.Fatal(err)
	}

	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()

	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws/tasks/tasklog1/logs"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("Failed to dial websocket: %v", err)
	}
	defer conn.Close()

	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))

	var sawLog, sawEOF bool
	for !sawEOF {
		var frame wsMessage
		if err := conn.ReadJSON(&frame); err != nil {
			t.Fatalf("Failed to read frame: %v", err)
		}
		switch frame.Type {
		case "log":
			if frame.Text == "done" {
				sawLog = true
			}
		case "eof":
			sawEOF = true
		}
	}
	if !sawLog {
		t.Error("Expected a log frame with the result text")
	}
}

func TestServer_TaskLogStreamUnknownTask(t *testing.T) {
	srv, _, _ := newTestServer(t, &stubRunner{answer: "a"})

	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()

	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws/tasks/missing1/logs"
	if _, _, err := websocket.DefaultDialer.Dial(wsURL, nil); err == nil {
		t.Fatal("Expected handshake failure for unknown task")
	}
}

