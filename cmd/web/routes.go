package main

import (
	"net/http"
)

func (app *application) routes() *http.ServeMux {
	mux := http.NewServeMux()

	var (
		shared = func(next http.Handler) http.Handler {
			return app.logAndTraceRequest(secureHeaders(app.crossOriginProtection(
				commonContext(app.timeout(next)))))
		}
		session = func(next http.Handler) http.Handler {
			return app.recoverPanic(noCache(app.sessionManager.LoadAndSave(
				app.authenticate(shared(next)))))
		}
		mustSession = func(next http.Handler) http.Handler {
			return session(app.mustAuthenticate(next))
		}
	)

	mux.Handle("POST /api/login", session(http.HandlerFunc(app.loginPOST)))
	mux.Handle("POST /api/logout", session(http.HandlerFunc(app.logoutPOST)))
	mux.Handle("GET /api/healthy", session(http.HandlerFunc(app.healthy)))

	mux.Handle("GET /chat/{conversationID}", mustSession(http.HandlerFunc(app.chatConversationGET)))
	mux.Handle("POST /chat", mustSession(http.HandlerFunc(app.chatMessagePOST)))
	mux.Handle("POST /chat/{conversationID}", mustSession(http.HandlerFunc(app.chatMessagePOST)))

	mux.Handle("POST /workouts/generate", mustSession(http.HandlerFunc(app.generateWorkoutPOST)))
	mux.Handle("POST /workouts/queue", mustSession(http.HandlerFunc(app.queueWorkoutPOST)))

	mux.Handle("GET /stack", mustSession(http.HandlerFunc(app.stackGET)))
	mux.Handle("POST /stack/clear", mustSession(http.HandlerFunc(app.stackClearPOST)))

	mux.Handle("GET /preferences", mustSession(http.HandlerFunc(app.preferencesGET)))
	mux.Handle("POST /preferences", mustSession(http.HandlerFunc(app.preferencesPOST)))

	mux.Handle("GET /goals", mustSession(http.HandlerFunc(app.goalsGET)))
	mux.Handle("POST /goals", mustSession(http.HandlerFunc(app.goalSavePOST)))
	mux.Handle("POST /goals/{name}/delete", mustSession(http.HandlerFunc(app.goalDeletePOST)))

	// Home route (most specific)
	mux.Handle("GET /{$}", session(http.HandlerFunc(app.home)))

	mux.Handle("/", session(http.HandlerFunc(app.notFound)))

	return mux
}
