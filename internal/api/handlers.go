package api

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"gwi.com/botchat/internal/auth"
	"gwi.com/botchat/internal/core"
	"gwi.com/botchat/internal/store"
)

type APIHandler struct {
	chat     *core.ChatService
	accounts *core.AccountService
	sessions *auth.SessionManager
}

func NewAPIHandler(chat *core.ChatService, accounts *core.AccountService, sessions *auth.SessionManager) *APIHandler {
	return &APIHandler{chat: chat, accounts: accounts, sessions: sessions}
}

// idParam reads a positive integer path parameter.
func idParam(r *http.Request, name string) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

type conversationData struct {
	Conversation store.ConversationJSON `json:"conversation"`
	Messages     []store.MessageJSON    `json:"messages"`
}

type postMessageData struct {
	Conversation store.ConversationJSON `json:"conversation"`
	Message      store.MessageJSON      `json:"message"`
}

func (h *APIHandler) GetConversationHandler(w http.ResponseWriter, r *http.Request) {
	conversationID, ok := idParam(r, "id")
	if !ok {
		writeFail(w, r, http.StatusBadRequest, "Invalid conversation id.")
		return
	}

	conv, messages, err := h.chat.Get(r.Context(), currentUser(r).ID, conversationID)
	if err != nil {
		if errors.Is(err, core.ErrNotFound) {
			writeFail(w, r, http.StatusNotFound, "Conversation not found.")
			return
		}
		writeInternal(w, r, "get conversation", err)
		return
	}

	data := conversationData{Conversation: conv.JSON(), Messages: make([]store.MessageJSON, 0, len(messages))}
	for _, m := range messages {
		data.Messages = append(data.Messages, m.JSON())
	}
	writeOK(w, r, "Conversation retrieved successfully.", data)
}

func (h *APIHandler) PostMessageHandler(w http.ResponseWriter, r *http.Request) {
	conversationID, ok := idParam(r, "id")
	if !ok {
		writeFail(w, r, http.StatusBadRequest, "Invalid conversation id.")
		return
	}

	// The turn is completed and stored even if the client goes away mid-request.
	ctx := context.WithoutCancel(r.Context())
	conv, reply, err := h.chat.PostMessage(ctx, currentUser(r).ID, conversationID, r.FormValue("message"))
	if err != nil {
		switch {
		case errors.Is(err, core.ErrInvalidInput):
			writeFail(w, r, http.StatusBadRequest, "Message is required.")
		case errors.Is(err, core.ErrNotFound):
			writeFail(w, r, http.StatusNotFound, "Conversation not found.")
		default:
			writeInternal(w, r, "post message", err)
		}
		return
	}
	writeOK(w, r, "Message sent successfully.", postMessageData{Conversation: conv.JSON(), Message: reply.JSON()})
}

func (h *APIHandler) FeedbackHandler(w http.ResponseWriter, r *http.Request) {
	messageID, ok := idParam(r, "id")
	if !ok {
		writeFail(w, r, http.StatusBadRequest, "Invalid message id.")
		return
	}

	msg, err := h.chat.RecordFeedback(r.Context(), currentUser(r).ID, messageID, r.FormValue("feedback"))
	if err != nil {
		switch {
		case errors.Is(err, core.ErrInvalidInput):
			writeFail(w, r, http.StatusBadRequest, "Feedback must be a whole number from 1 to 5.")
		case errors.Is(err, core.ErrNotFound):
			writeFail(w, r, http.StatusBadRequest, "Message not found.")
		default:
			writeInternal(w, r, "record feedback", err)
		}
		return
	}
	writeOK(w, r, "Feedback recorded successfully.", msg.JSON())
}

func (h *APIHandler) AddConversationHandler(w http.ResponseWriter, r *http.Request) {
	_, _, err := h.chat.AddConversation(r.Context(), currentUser(r).ID,
		r.FormValue("bot_name"), r.FormValue("bot_description"), r.FormValue("bot_prompt"))
	if err != nil && !errors.Is(err, core.ErrInvalidInput) {
		writeInternal(w, r, "add conversation", err)
		return
	}
	http.Redirect(w, r, "/dashboard", http.StatusSeeOther)
}

func (h *APIHandler) ClearConversationHandler(w http.ResponseWriter, r *http.Request) {
	conversationID, ok := idParam(r, "id")
	if !ok {
		writeFail(w, r, http.StatusBadRequest, "Invalid conversation id.")
		return
	}

	if err := h.chat.Clear(r.Context(), currentUser(r).ID, conversationID); err != nil {
		if errors.Is(err, core.ErrNotFound) {
			writeFail(w, r, http.StatusNotFound, "Conversation not found.")
			return
		}
		writeInternal(w, r, "clear conversation", err)
		return
	}
	writeOK(w, r, "Conversation cleared successfully.", nil)
}

func (h *APIHandler) SaveConversationHandler(w http.ResponseWriter, r *http.Request) {
	conversationID, ok := idParam(r, "id")
	if !ok {
		writeFail(w, r, http.StatusBadRequest, "Invalid conversation id.")
		return
	}

	file, err := h.chat.Export(r.Context(), currentUser(r).ID, conversationID)
	if err != nil {
		switch {
		case errors.Is(err, core.ErrEmptyConversation):
			writeFail(w, r, http.StatusBadRequest, "Conversation is empty.")
		case errors.Is(err, core.ErrNotFound):
			writeFail(w, r, http.StatusNotFound, "Conversation not found.")
		default:
			writeInternal(w, r, "export conversation", err)
		}
		return
	}

	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", file.Name))
	http.ServeContent(w, r, file.Name, file.ModTime, bytes.NewReader(file.Data))
}

func (h *APIHandler) DashboardHandler(w http.ResponseWriter, r *http.Request) {
	dash, err := h.chat.Dashboard(r.Context(), currentUser(r).ID)
	if err != nil {
		writeInternal(w, r, "load dashboard", err)
		return
	}

	summaries := make([]store.ConversationSummaryJSON, 0, len(dash.Conversations))
	for _, s := range dash.Conversations {
		summaries = append(summaries, s.JSON())
	}
	renderPage(w, r, http.StatusOK, "dashboard.html", dashboardPage{
		DisplayName:   dash.DisplayName,
		Fullname:      dash.User.Fullname,
		Model:         dash.Model,
		Conversations: summaries,
	})
}

func (h *APIHandler) NotFoundPage(w http.ResponseWriter, r *http.Request) {
	renderPage(w, r, http.StatusNotFound, "404.html", nil)
}
