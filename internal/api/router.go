package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/starford/journal/internal/auth"
	"github.com/starford/journal/internal/session"
)

// EventStream serves a user's live event stream.
type EventStream interface {
	ServeUser(w http.ResponseWriter, r *http.Request, user string)
}

// Deps are the collaborators of the API.
type Deps struct {
	Auth        *auth.Service
	Sessions    *session.Manager
	Events      EventStream
	CORSOrigins []string
}

// NewRouter creates a chi router with all API routes mounted. Everything
// except sign-up, sign-in and the palette requires an authenticated user.
func NewRouter(d Deps) chi.Router {
	h := NewHandler(d.Auth, d.Sessions)

	r := chi.NewRouter()
	r.Use(CORSMiddleware(d.CORSOrigins))

	r.Post("/auth/signup", h.SignUp)
	r.Post("/auth/signin", h.SignIn)
	r.Get("/palette", h.Palette)

	r.Group(func(r chi.Router) {
		r.Use(AuthMiddleware(d.Auth, d.Sessions))

		r.Post("/auth/signout", h.SignOut)
		r.Get("/me", h.Me)

		// Notes.
		r.Get("/notes", h.ListNotes)
		r.Post("/notes", h.CreateNote)
		r.Post("/notes/close", h.CloseNote)
		r.Post("/notes/retry", h.RetryPending)
		r.Get("/notes/{id}", h.GetNote)
		r.Put("/notes/{id}", h.SaveNote)
		r.Delete("/notes/{id}", h.DeleteNote)
		r.Post("/notes/{id}/select", h.SelectNote)
		r.Post("/notes/{id}/edit", h.StartEditing)
		r.Post("/notes/{id}/cancel", h.CancelEdit)

		// View state.
		r.Get("/state", h.State)
		r.Put("/filter", h.SetFilter)
		r.Get("/tags", h.Tags)

		// Folders.
		r.Get("/folders", h.ListFolders)
		r.Post("/folders", h.AddFolder)
		r.Delete("/folders/{id}", h.DeleteFolder)

		if d.Events != nil {
			r.Get("/events", func(w http.ResponseWriter, r *http.Request) {
				d.Events.ServeUser(w, r, userFrom(r.Context()).ID)
			})
		}
	})

	return r
}
