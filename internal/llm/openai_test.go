package llm

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/JianJiangKCL/HooRii/internal/model"
)

func completionResponse(content string) string {
	buf, _ := json.Marshal(map[string]any{
		"choices": []map[string]any{
			{"message": map[string]string{"role": "assistant", "content": content}},
		},
	})
	return string(buf)
}

func TestOpenAIAnalyzeIntent(t *testing.T) {
	var gotAuth string
	var gotBody map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		json.NewDecoder(r.Body).Decode(&gotBody)
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(completionResponse(`{"involves_hardware":true,"device_ref":"lights","command_name":"turn_on","confidence":0.95,"reply":"On it."}`)))
	}))
	defer srv.Close()

	c := NewOpenAIClient(OpenAIConfig{APIURL: srv.URL, APIKey: "sk-test", Model: "test-model"})
	out, err := c.AnalyzeIntent(context.Background(), IntentRequest{
		UserInput:      "turn on the lights",
		CatalogSummary: "dimmable_light: turn_on, turn_off",
	})
	if err != nil {
		t.Fatal(err)
	}
	if !out.Intent.InvolvesHardware || out.Intent.DeviceRef != "lights" {
		t.Errorf("intent wrong: %+v", out.Intent)
	}
	if gotAuth != "Bearer sk-test" {
		t.Errorf("auth header = %q", gotAuth)
	}
	if gotBody["model"] != "test-model" {
		t.Errorf("model = %v", gotBody["model"])
	}
	msgs, _ := gotBody["messages"].([]any)
	if len(msgs) != 2 {
		t.Fatalf("messages = %d, want system+user", len(msgs))
	}
	user, _ := msgs[1].(map[string]any)
	if content, _ := user["content"].(string); !strings.Contains(content, "turn on the lights") ||
		!strings.Contains(content, "dimmable_light") {
		t.Errorf("user message missing input or catalog: %q", content)
	}
}

func TestOpenAIGenerateReply(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(completionResponse("  The lamp is on now.\n")))
	}))
	defer srv.Close()

	c := NewOpenAIClient(OpenAIConfig{APIURL: srv.URL})
	reply, err := c.GenerateReply(context.Background(), ReplyRequest{
		UserInput: "turn on the lamp",
		Control:   &model.ControlOutput{Command: "turn_on", DeviceName: "Lamp", DeviceType: "dimmable_light"},
	})
	if err != nil {
		t.Fatal(err)
	}
	if reply != "The lamp is on now." {
		t.Errorf("reply = %q", reply)
	}
}

func TestOpenAIErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model overloaded", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	c := NewOpenAIClient(OpenAIConfig{APIURL: srv.URL})
	if _, err := c.AnalyzeIntent(context.Background(), IntentRequest{UserInput: "hi"}); err == nil {
		t.Fatal("expected error on HTTP 503")
	}
}

func TestOpenAIHonorsContext(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Drain the body so the server notices the client disconnect and
		// cancels the request context; otherwise Close hangs forever.
		io.Copy(io.Discard, r.Body)
		<-r.Context().Done()
	}))
	defer srv.Close()

	c := NewOpenAIClient(OpenAIConfig{APIURL: srv.URL})
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()
	if _, err := c.AnalyzeIntent(ctx, IntentRequest{UserInput: "hi"}); err == nil {
		t.Fatal("expected context deadline error")
	}
}

func TestOpenAIEmptyChoices(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"choices":[]}`))
	}))
	defer srv.Close()

	c := NewOpenAIClient(OpenAIConfig{APIURL: srv.URL})
	if _, err := c.GenerateReply(context.Background(), ReplyRequest{UserInput: "hi"}); err == nil {
		t.Fatal("expected error on empty choices")
	}
}
