package main

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/myrjola/pelocoach/internal/chat"
)

type chatConversationTemplateData struct {
	BaseTemplateData
	Conversation chat.Conversation
	Messages     []chat.Message
}

// chatConversationGET shows one conversation's transcript.
func (app *application) chatConversationGET(w http.ResponseWriter, r *http.Request) {
	conversationID, ok := app.parseConversationIDParam(w, r)
	if !ok {
		return
	}

	conversation, err := app.chatService.Conversation(r.Context(), conversationID)
	if errors.Is(err, chat.ErrNotFound) {
		app.notFound(w, r)
		return
	}
	if err != nil {
		app.serverError(w, r, err)
		return
	}

	messages, err := app.chatService.Messages(r.Context(), conversationID)
	if err != nil {
		app.serverError(w, r, err)
		return
	}

	data := chatConversationTemplateData{
		BaseTemplateData: newBaseTemplateData(r),
		Conversation:     conversation,
		Messages:         messages,
	}

	app.render(w, r, http.StatusOK, "chat", data)
}

// chatMessagePOST runs one conversational turn. POST /chat starts a new
// conversation; POST /chat/{conversationID} continues an existing one.
func (app *application) chatMessagePOST(w http.ResponseWriter, r *http.Request) {
	conversationID := 0
	if r.PathValue("conversationID") != "" {
		var ok bool
		if conversationID, ok = app.parseConversationIDParam(w, r); !ok {
			return
		}
	}

	if err := r.ParseForm(); err != nil {
		app.serverError(w, r, fmt.Errorf("parse form: %w", err))
		return
	}
	content := r.PostForm.Get("content")
	if content == "" {
		http.Error(w, "message content not provided", http.StatusBadRequest)
		return
	}

	reply, err := app.trainerService.Respond(r.Context(), app.platformSession(r), conversationID, content)
	if errors.Is(err, chat.ErrNotFound) {
		app.notFound(w, r)
		return
	}
	if err != nil {
		app.serverError(w, r, err)
		return
	}

	// Follow POST-Redirect-GET pattern - redirect to conversation view
	redirect(w, r, fmt.Sprintf("/chat/%d", reply.ConversationID))
}

// parseConversationIDParam parses the "conversationID" path parameter.
// On failure, sends HTTP 404 response automatically.
func (app *application) parseConversationIDParam(w http.ResponseWriter, r *http.Request) (int, bool) {
	conversationID, err := strconv.Atoi(r.PathValue("conversationID"))
	if err != nil {
		app.notFound(w, r)
		return 0, false
	}
	return conversationID, true
}
