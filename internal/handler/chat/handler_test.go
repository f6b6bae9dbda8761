package chat

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"

	"github.com/piskoqo/backend/internal/model/chat"
	chatService "github.com/piskoqo/backend/internal/service/chat"
)

type fakeService struct {
	reply     chatService.Reply
	replyErr  error
	turns     []chat.Turn
	deleted   int64
	deleteErr error
	delay     time.Duration

	gotUserID  string
	gotMessage string
}

func (f *fakeService) Reply(_ context.Context, userID, message string) (chatService.Reply, error) {
	if f.delay > 0 {
		time.Sleep(f.delay)
	}
	f.gotUserID = userID
	f.gotMessage = message
	return f.reply, f.replyErr
}

func (f *fakeService) History(_ context.Context, userID string) ([]chat.Turn, error) {
	f.gotUserID = userID
	return f.turns, nil
}

func (f *fakeService) DeleteHistory(_ context.Context, userID string) (int64, error) {
	f.gotUserID = userID
	return f.deleted, f.deleteErr
}

func setupRouter(svc *fakeService) *chi.Mux {
	r := chi.NewRouter()
	New(svc).RegisterRoutes(r)
	NewWebSocketHandler(svc, "*").RegisterWebSocketRoutes(r)
	return r
}

func do(t *testing.T, r http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, req)
	return resp
}

func decode(t *testing.T, resp *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	if err := json.Unmarshal(resp.Body.Bytes(), &out); err != nil {
		t.Fatalf("invalid json %q: %v", resp.Body.String(), err)
	}
	return out
}

func TestChatReturnsReplyEnvelope(t *testing.T) {
	svc := &fakeService{reply: chatService.Reply{
		Reply: "Aku di sini.",
		Meta:  chatService.Meta{App: "piskoqo", Mode: "reflective", Emotion: 0},
	}}
	resp := do(t, setupRouter(svc), http.MethodPost, "/chat", `{"user_id":"u1","message":"halo"}`)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.Code)
	}
	body := decode(t, resp)
	if body["reply"] != "Aku di sini." {
		t.Fatalf("unexpected reply: %v", body["reply"])
	}
	meta := body["meta"].(map[string]any)
	if meta["app"] != "piskoqo" || meta["mode"] != "reflective" || meta["emotion"] != 0.0 {
		t.Fatalf("unexpected meta: %v", meta)
	}
	if svc.gotUserID != "u1" || svc.gotMessage != "halo" {
		t.Fatalf("service got user=%q message=%q", svc.gotUserID, svc.gotMessage)
	}
}

func TestChatFailureReturnsFallback(t *testing.T) {
	svc := &fakeService{replyErr: errors.New("provider down")}
	resp := do(t, setupRouter(svc), http.MethodPost, "/chat", `{"message":"halo"}`)

	if resp.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", resp.Code)
	}
	body := decode(t, resp)
	if len(body) != 1 || body["reply"] != FallbackReply {
		t.Fatalf("unexpected fallback body: %v", body)
	}
}

func TestChatInvalidBodyReturnsFallback(t *testing.T) {
	resp := do(t, setupRouter(&fakeService{}), http.MethodPost, "/chat", `not json`)

	if resp.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", resp.Code)
	}
	if decode(t, resp)["reply"] != FallbackReply {
		t.Fatal("expected fallback reply")
	}
}

func TestDeleteReportsRows(t *testing.T) {
	svc := &fakeService{deleted: 5}
	resp := do(t, setupRouter(svc), http.MethodPost, "/chat/delete", `{"user_id":"u1"}`)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.Code)
	}
	body := decode(t, resp)
	if body["ok"] != true || body["deleted_rows"] != 5.0 {
		t.Fatalf("unexpected body: %v", body)
	}
}

func TestDeleteZeroRowsStillReportsCount(t *testing.T) {
	resp := do(t, setupRouter(&fakeService{}), http.MethodPost, "/chat/delete", `{"user_id":"u1"}`)

	body := decode(t, resp)
	if body["deleted_rows"] != 0.0 {
		t.Fatalf("expected deleted_rows 0, got %v", body)
	}
}

func TestDeleteMissingUser(t *testing.T) {
	resp := do(t, setupRouter(&fakeService{}), http.MethodPost, "/chat/delete", `{}`)

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.Code)
	}
	body := decode(t, resp)
	if len(body) != 1 || body["ok"] != false {
		t.Fatalf("unexpected body: %v", body)
	}
}

func TestDeleteStoreError(t *testing.T) {
	svc := &fakeService{deleteErr: errors.New("connection refused")}
	resp := do(t, setupRouter(svc), http.MethodPost, "/chat/delete", `{"user_id":"u1"}`)

	if resp.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", resp.Code)
	}
	body := decode(t, resp)
	if body["ok"] != false || body["error"] != "connection refused" {
		t.Fatalf("unexpected body: %v", body)
	}
}

func TestDeleteInvalidBody(t *testing.T) {
	resp := do(t, setupRouter(&fakeService{}), http.MethodPost, "/chat/delete", `{`)

	if resp.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", resp.Code)
	}
}

func TestHistory(t *testing.T) {
	svc := &fakeService{turns: []chat.Turn{
		{ID: "1", UserID: "u1", Sender: chat.SenderUser, Message: "halo"},
		{ID: "2", UserID: "u1", Sender: chat.SenderBot, Message: "hai"},
	}}
	resp := do(t, setupRouter(svc), http.MethodGet, "/chat/history?user_id=u1", "")

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.Code)
	}
	var body historyResponse
	if err := json.Unmarshal(resp.Body.Bytes(), &body); err != nil {
		t.Fatal(err)
	}
	if len(body.Turns) != 2 || body.Turns[0].Message != "halo" {
		t.Fatalf("unexpected turns: %+v", body.Turns)
	}
}

func TestHistoryRequiresUser(t *testing.T) {
	resp := do(t, setupRouter(&fakeService{}), http.MethodGet, "/chat/history", "")
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.Code)
	}
}

func TestWebSocketReply(t *testing.T) {
	svc := &fakeService{reply: chatService.Reply{Reply: "Aku dengar.", Meta: chatService.Meta{App: "piskoqo", Mode: "supportive"}}}
	srv := httptest.NewServer(setupRouter(svc))
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/chat/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial failed: %v", err)
	}
	defer conn.Close()

	if err := conn.WriteJSON(chatRequest{UserID: "u1", Message: "halo"}); err != nil {
		t.Fatal(err)
	}

	conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	var msg struct {
		Type string            `json:"type"`
		Data chatService.Reply `json:"data"`
	}
	if err := conn.ReadJSON(&msg); err != nil {
		t.Fatalf("read failed: %v", err)
	}
	if msg.Type != "reply" || msg.Data.Reply != "Aku dengar." || msg.Data.Meta.Mode != "supportive" {
		t.Fatalf("unexpected message: %+v", msg)
	}
}

func TestWebSocketError(t *testing.T) {
	svc := &fakeService{replyErr: errors.New("boom")}
	srv := httptest.NewServer(setupRouter(svc))
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/chat/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial failed: %v", err)
	}
	defer conn.Close()

	if err := conn.WriteJSON(chatRequest{Message: "halo"}); err != nil {
		t.Fatal(err)
	}

	conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	var msg struct {
		Type string           `json:"type"`
		Data fallbackResponse `json:"data"`
	}
	if err := conn.ReadJSON(&msg); err != nil {
		t.Fatalf("read failed: %v", err)
	}
	if msg.Type != "error" || msg.Data.Reply != FallbackReply {
		t.Fatalf("unexpected message: %+v", msg)
	}
}

func TestWebSocketDeliversReplySlowerThanReadTimeout(t *testing.T) {
	svc := &fakeService{
		reply: chatService.Reply{Reply: "Maaf lama.", Meta: chatService.Meta{App: "piskoqo", Mode: "reflective"}},
		delay: 300 * time.Millisecond,
	}
	ws := NewWebSocketHandler(svc, "*")
	ws.readTimeout = 100 * time.Millisecond

	r := chi.NewRouter()
	ws.RegisterWebSocketRoutes(r)
	srv := httptest.NewServer(r)
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/chat/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial failed: %v", err)
	}
	defer conn.Close()

	if err := conn.WriteJSON(chatRequest{UserID: "u1", Message: "halo"}); err != nil {
		t.Fatal(err)
	}

	conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	var msg struct {
		Type string            `json:"type"`
		Data chatService.Reply `json:"data"`
	}
	if err := conn.ReadJSON(&msg); err != nil {
		t.Fatalf("reply was not delivered: %v", err)
	}
	if msg.Type != "reply" || msg.Data.Reply != "Maaf lama." {
		t.Fatalf("unexpected message: %+v", msg)
	}
}
