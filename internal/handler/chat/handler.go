package chat

import (
	"context"
	"errors"
	"log"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/piskoqo/backend/internal/model/chat"
	chatService "github.com/piskoqo/backend/internal/service/chat"
	"github.com/piskoqo/backend/pkg/utils"
)

// FallbackReply is returned whenever the pipeline cannot produce an answer.
const FallbackReply = "Ada kendala sistem. Coba lagi ya."

// Service is the part of the chat pipeline the handlers depend on.
type Service interface {
	Reply(ctx context.Context, userID, message string) (chatService.Reply, error)
	History(ctx context.Context, userID string) ([]chat.Turn, error)
	DeleteHistory(ctx context.Context, userID string) (int64, error)
}

// Handler 聊天服务的HTTP处理器
type Handler struct {
	chatSvc Service
}

// New 创建聊天处理器
func New(chatSvc Service) *Handler {
	return &Handler{chatSvc: chatSvc}
}

// RegisterRoutes 注册聊天相关的路由
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post("/chat", h.handleChat)
	r.Post("/chat/delete", h.handleDelete)
	r.Get("/chat/history", h.handleHistory)
}

type chatRequest struct {
	UserID  string `json:"user_id"`
	Message string `json:"message"`
}

type fallbackResponse struct {
	Reply string `json:"reply"`
}

type deleteResponse struct {
	OK          bool   `json:"ok"`
	DeletedRows *int64 `json:"deleted_rows,omitempty"`
	Error       string `json:"error,omitempty"`
}

type historyResponse struct {
	UserID string      `json:"user_id"`
	Turns  []chat.Turn `json:"turns"`
}

// handleChat 生成回复；任何失败都返回统一的兜底文案
func (h *Handler) handleChat(w http.ResponseWriter, r *http.Request) {
	var payload chatRequest
	if err := utils.DecodeJSON(r, &payload); err != nil {
		log.Printf("[chat] invalid request: %v", err)
		utils.RespondJSON(w, http.StatusInternalServerError, fallbackResponse{Reply: FallbackReply})
		return
	}

	reply, err := h.chatSvc.Reply(r.Context(), payload.UserID, payload.Message)
	if err != nil {
		log.Printf("[chat] reply failed user=%s: %v", payload.UserID, err)
		utils.RespondJSON(w, http.StatusInternalServerError, fallbackResponse{Reply: FallbackReply})
		return
	}

	utils.RespondJSON(w, http.StatusOK, reply)
}

// handleDelete 删除用户的全部聊天记录
func (h *Handler) handleDelete(w http.ResponseWriter, r *http.Request) {
	var payload chatRequest
	if err := utils.DecodeJSON(r, &payload); err != nil {
		utils.RespondJSON(w, http.StatusInternalServerError, deleteResponse{OK: false})
		return
	}

	if payload.UserID == "" {
		utils.RespondJSON(w, http.StatusBadRequest, deleteResponse{OK: false})
		return
	}

	deleted, err := h.chatSvc.DeleteHistory(r.Context(), payload.UserID)
	if err != nil {
		if errors.Is(err, chatService.ErrUserIDRequired) {
			utils.RespondJSON(w, http.StatusBadRequest, deleteResponse{OK: false})
			return
		}
		log.Printf("[chat] delete failed user=%s: %v", payload.UserID, err)
		utils.RespondJSON(w, http.StatusInternalServerError, deleteResponse{OK: false, Error: err.Error()})
		return
	}

	utils.RespondJSON(w, http.StatusOK, deleteResponse{OK: true, DeletedRows: &deleted})
}

// handleHistory 返回最近的聊天记录（按时间正序）
func (h *Handler) handleHistory(w http.ResponseWriter, r *http.Request) {
	userID := strings.TrimSpace(r.URL.Query().Get("user_id"))
	if userID == "" {
		utils.RespondError(w, http.StatusBadRequest, "user_id is required")
		return
	}

	turns, err := h.chatSvc.History(r.Context(), userID)
	if err != nil {
		log.Printf("[chat] history failed user=%s: %v", userID, err)
		utils.RespondError(w, http.StatusInternalServerError, "failed to load history")
		return
	}

	utils.RespondJSON(w, http.StatusOK, historyResponse{UserID: userID, Turns: turns})
}
