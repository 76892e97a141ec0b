package api

import (
	"errors"
	"net/http"
	"slices"

	"github.com/go-chi/chi/v5"

	"github.com/starford/journal/internal/apperr"
	"github.com/starford/journal/internal/auth"
	"github.com/starford/journal/internal/models"
	"github.com/starford/journal/internal/notestore"
	"github.com/starford/journal/internal/session"
)

// Handler holds API route handlers.
type Handler struct {
	auth     *auth.Service
	sessions *session.Manager
}

// NewHandler creates a new Handler.
func NewHandler(a *auth.Service, sessions *session.Manager) *Handler {
	return &Handler{auth: a, sessions: sessions}
}

func (h *Handler) detail(s *notestore.Store, n models.Note) NoteDetail {
	return NoteDetail{
		Note:    n,
		Folder:  s.FolderOf(n),
		Pending: slices.Contains(s.Pending(), n.ID),
	}
}

// SignUp handles POST /api/auth/signup.
//
//	@Summary		Create an account and sign in
//	@Tags			auth
//	@Accept			json
//	@Produce		json
//	@Param			body	body		CredentialsRequest	true	"Credentials"
//	@Success		201		{object}	auth.Session
//	@Failure		409		{object}	errResponse
//	@Failure		422		{object}	errResponse
//	@Router			/auth/signup [post]
func (h *Handler) SignUp(w http.ResponseWriter, r *http.Request) {
	var req CredentialsRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	sess, err := h.auth.SignUp(r.Context(), req.Email, req.Password)
	if err != nil {
		writeError(w, r, "sign up", err)
		return
	}
	writeJSON(w, http.StatusCreated, sess)
}

// SignIn handles POST /api/auth/signin.
//
//	@Summary		Sign in with e-mail and password
//	@Tags			auth
//	@Accept			json
//	@Produce		json
//	@Param			body	body		CredentialsRequest	true	"Credentials"
//	@Success		200		{object}	auth.Session
//	@Failure		401		{object}	errResponse
//	@Router			/auth/signin [post]
func (h *Handler) SignIn(w http.ResponseWriter, r *http.Request) {
	var req CredentialsRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	sess, err := h.auth.SignIn(r.Context(), req.Email, req.Password)
	if err != nil {
		writeError(w, r, "sign in", err)
		return
	}
	writeJSON(w, http.StatusOK, sess)
}

// SignOut handles POST /api/auth/signout. The user's store is cleared and
// their event streams closed.
//
//	@Summary		Sign out
//	@Tags			auth
//	@Success		204
//	@Security		BearerAuth
//	@Router			/auth/signout [post]
func (h *Handler) SignOut(w http.ResponseWriter, r *http.Request) {
	if h.auth.Mode() == auth.ModeDisabled {
		h.sessions.Close(userFrom(r.Context()))
		w.WriteHeader(http.StatusNoContent)
		return
	}
	if err := h.auth.SignOut(tokenFrom(r.Context())); err != nil {
		writeError(w, r, "sign out", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Me handles GET /api/me.
func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, userFrom(r.Context()))
}

// ListNotes handles GET /api/notes. Any of q, folder and tag present in the
// query replace the corresponding filter before the view is returned.
//
//	@Summary		List the notes passing the current filters
//	@Tags			notes
//	@Produce		json
//	@Param			q		query		string	false	"Search text"
//	@Param			folder	query		string	false	"Folder id or all"
//	@Param			tag		query		[]string	false	"Selected tags"
//	@Success		200		{object}	NoteListResponse
//	@Security		BearerAuth
//	@Router			/notes [get]
func (h *Handler) ListNotes(w http.ResponseWriter, r *http.Request) {
	s := storeFrom(r.Context())
	q := r.URL.Query()
	if q.Has("q") {
		s.SetSearch(q.Get("q"))
	}
	if q.Has("folder") {
		if err := s.SelectFolder(q.Get("folder")); err != nil {
			writeError(w, r, "list notes", err)
			return
		}
	}
	if q.Has("tag") {
		s.SetSelectedTags(q["tag"])
	}
	notes := s.Visible()
	writeJSON(w, http.StatusOK, NoteListResponse{Notes: notes, Total: len(notes)})
}

// CreateNote handles POST /api/notes. The draft is local until first saved.
//
//	@Summary		Create a draft note in the selected folder
//	@Tags			notes
//	@Produce		json
//	@Success		201		{object}	NoteDetail
//	@Failure		409		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/notes [post]
func (h *Handler) CreateNote(w http.ResponseWriter, r *http.Request) {
	s := storeFrom(r.Context())
	n, err := s.CreateNote(r.Context())
	if err != nil {
		writeError(w, r, "create note", err)
		return
	}
	writeJSON(w, http.StatusCreated, h.detail(s, n))
}

// GetNote handles GET /api/notes/{id}.
//
//	@Summary		Get a single note with its folder
//	@Tags			notes
//	@Produce		json
//	@Param			id	path		string	true	"Note id"
//	@Success		200	{object}	NoteDetail
//	@Failure		404	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/notes/{id} [get]
func (h *Handler) GetNote(w http.ResponseWriter, r *http.Request) {
	s := storeFrom(r.Context())
	n, ok := s.Note(chi.URLParam(r, "id"))
	if !ok {
		writeJSON(w, http.StatusNotFound, errorBody("not found"))
		return
	}
	writeJSON(w, http.StatusOK, h.detail(s, n))
}

// SaveNote handles PUT /api/notes/{id}. When the backend fails the edits are
// kept and queued; the response is 502 with the note marked pending.
//
//	@Summary		Save a note
//	@Tags			notes
//	@Accept			json
//	@Produce		json
//	@Param			id		path		string			true	"Note id"
//	@Param			body	body		SaveNoteRequest	true	"Changed fields"
//	@Success		200		{object}	NoteDetail
//	@Failure		404		{object}	errResponse
//	@Failure		422		{object}	errResponse
//	@Failure		502		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/notes/{id} [put]
func (h *Handler) SaveNote(w http.ResponseWriter, r *http.Request) {
	var req SaveNoteRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	s := storeFrom(r.Context())
	cur, ok := s.Note(chi.URLParam(r, "id"))
	if !ok {
		writeJSON(w, http.StatusNotFound, errorBody("not found"))
		return
	}
	saved, err := s.SaveNote(r.Context(), req.applyTo(cur))
	if err != nil {
		writeError(w, r, "save note", err)
		return
	}
	writeJSON(w, http.StatusOK, h.detail(s, saved))
}

// DeleteNote handles DELETE /api/notes/{id}.
//
//	@Summary		Delete a note
//	@Tags			notes
//	@Param			id	path	string	true	"Note id"
//	@Success		204
//	@Failure		404	{object}	errResponse
//	@Failure		502	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/notes/{id} [delete]
func (h *Handler) DeleteNote(w http.ResponseWriter, r *http.Request) {
	if err := storeFrom(r.Context()).DeleteNote(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeError(w, r, "delete note", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// SelectNote handles POST /api/notes/{id}/select.
func (h *Handler) SelectNote(w http.ResponseWriter, r *http.Request) {
	s := storeFrom(r.Context())
	if err := s.SelectNote(chi.URLParam(r, "id")); err != nil {
		writeError(w, r, "select note", err)
		return
	}
	writeJSON(w, http.StatusOK, s.Snapshot())
}

// StartEditing handles POST /api/notes/{id}/edit.
func (h *Handler) StartEditing(w http.ResponseWriter, r *http.Request) {
	s := storeFrom(r.Context())
	if err := s.StartEditing(chi.URLParam(r, "id")); err != nil {
		writeError(w, r, "edit note", err)
		return
	}
	writeJSON(w, http.StatusOK, s.Snapshot())
}

// CancelEdit handles POST /api/notes/{id}/cancel.
func (h *Handler) CancelEdit(w http.ResponseWriter, r *http.Request) {
	s := storeFrom(r.Context())
	if err := s.CancelEdit(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeError(w, r, "cancel edit", err)
		return
	}
	writeJSON(w, http.StatusOK, s.Snapshot())
}

// CloseNote handles POST /api/notes/close.
func (h *Handler) CloseNote(w http.ResponseWriter, r *http.Request) {
	s := storeFrom(r.Context())
	s.CloseNote()
	writeJSON(w, http.StatusOK, s.Snapshot())
}

// RetryPending handles POST /api/notes/retry.
//
//	@Summary		Replay the saves that previously failed
//	@Tags			notes
//	@Produce		json
//	@Success		200	{object}	notestore.View
//	@Failure		502	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/notes/retry [post]
func (h *Handler) RetryPending(w http.ResponseWriter, r *http.Request) {
	s := storeFrom(r.Context())
	if err := s.RetryPending(r.Context()); err != nil {
		writeError(w, r, "retry pending", err)
		return
	}
	writeJSON(w, http.StatusOK, s.Snapshot())
}

// State handles GET /api/state.
func (h *Handler) State(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, storeFrom(r.Context()).Snapshot())
}

// SetFilter handles PUT /api/filter.
//
//	@Summary		Change the search, folder and tag filters
//	@Tags			view
//	@Accept			json
//	@Produce		json
//	@Param			body	body		FilterRequest	true	"Filters to change"
//	@Success		200		{object}	NoteListResponse
//	@Failure		404		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/filter [put]
func (h *Handler) SetFilter(w http.ResponseWriter, r *http.Request) {
	var req FilterRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	s := storeFrom(r.Context())
	if req.FolderID != nil {
		if err := s.SelectFolder(*req.FolderID); err != nil {
			writeError(w, r, "set filter", err)
			return
		}
	}
	if req.Search != nil {
		s.SetSearch(*req.Search)
	}
	if req.Tags != nil {
		s.SetSelectedTags(*req.Tags)
	}
	notes := s.Visible()
	writeJSON(w, http.StatusOK, NoteListResponse{Notes: notes, Total: len(notes)})
}

// Tags handles GET /api/tags.
func (h *Handler) Tags(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, TagListResponse{Tags: storeFrom(r.Context()).Tags()})
}

// ListFolders handles GET /api/folders.
func (h *Handler) ListFolders(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, FolderListResponse{Folders: storeFrom(r.Context()).Folders()})
}

// AddFolder handles POST /api/folders.
//
//	@Summary		Create a folder
//	@Tags			folders
//	@Accept			json
//	@Produce		json
//	@Param			body	body		AddFolderRequest	true	"Folder to create"
//	@Success		201		{object}	models.Folder
//	@Failure		422		{object}	errResponse
//	@Failure		502		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/folders [post]
func (h *Handler) AddFolder(w http.ResponseWriter, r *http.Request) {
	var req AddFolderRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	f, err := storeFrom(r.Context()).AddFolder(r.Context(), req.Name, req.Color)
	if err != nil {
		writeError(w, r, "add folder", err)
		return
	}
	writeJSON(w, http.StatusCreated, f)
}

// DeleteFolder handles DELETE /api/folders/{id}. Notes of the folder move to
// the fallback folder first.
//
//	@Summary		Delete a folder
//	@Tags			folders
//	@Param			id	path	string	true	"Folder id"
//	@Success		204
//	@Failure		404	{object}	errResponse
//	@Failure		409	{object}	errResponse
//	@Failure		502	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/folders/{id} [delete]
func (h *Handler) DeleteFolder(w http.ResponseWriter, r *http.Request) {
	err := storeFrom(r.Context()).DeleteFolder(r.Context(), chi.URLParam(r, "id"))
	if errors.Is(err, apperr.ErrNoFallbackFolder) {
		writeJSON(w, http.StatusConflict, errorBody("folder still holds notes and no fallback folder exists"))
		return
	}
	if err != nil {
		writeError(w, r, "delete folder", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Palette handles GET /api/palette.
func (h *Handler) Palette(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, PaletteResponse{Colors: models.Palette(), Default: models.DefaultColor})
}
