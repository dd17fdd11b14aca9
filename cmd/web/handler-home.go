package main

import (
	"net/http"

	"github.com/myrjola/pelocoach/internal/chat"
)

type homeTemplateData struct {
	BaseTemplateData
	Conversations []chat.Conversation
}

// home shows the login form for anonymous visitors and the conversation list
// for authenticated members.
func (app *application) home(w http.ResponseWriter, r *http.Request) {
	data := homeTemplateData{
		BaseTemplateData: newBaseTemplateData(r),
		Conversations:    nil,
	}

	if data.Authenticated {
		conversations, err := app.chatService.Conversations(r.Context())
		if err != nil {
			app.serverError(w, r, err)
			return
		}
		data.Conversations = conversations
	}

	app.render(w, r, http.StatusOK, "home", data)
}
