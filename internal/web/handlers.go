package web

import (
	"errors"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"strings"

	"github.com/avelkin/zametki/internal/auth"
	"github.com/avelkin/zametki/internal/errs"
	"github.com/avelkin/zametki/internal/notes"
	"github.com/avelkin/zametki/internal/obs"
	"github.com/avelkin/zametki/internal/ratelimit"
)

// Handler serves the HTML UI: the public landing page, the authenticated
// notes pages, and the login/signup flow.
type Handler struct {
	renderer     *Renderer
	notes        *notes.Service
	users        *auth.UserService
	sessions     *auth.SessionService
	loginLimiter *ratelimit.Limiter
	log          *slog.Logger
}

// NewHandler creates the web handler.
func NewHandler(renderer *Renderer, noteService *notes.Service, users *auth.UserService, sessions *auth.SessionService, loginLimiter *ratelimit.Limiter) *Handler {
	return &Handler{
		renderer:     renderer,
		notes:        noteService,
		users:        users,
		sessions:     sessions,
		loginLimiter: loginLimiter,
		log:          obs.Pkg("web"),
	}
}

// RegisterRoutes registers all UI routes on the mux. Pages that operate on
// notes sit behind the redirecting auth middleware; everything else resolves
// the user opportunistically so templates can show login state.
func (h *Handler) RegisterRoutes(mux *http.ServeMux, mw *auth.Middleware) {
	mux.Handle("GET /{$}", mw.OptionalAuth(http.HandlerFunc(h.Home)))

	mux.Handle("GET /notes/", mw.RequireAuthWithRedirect(http.HandlerFunc(h.List)))
	mux.Handle("GET /add/", mw.RequireAuthWithRedirect(http.HandlerFunc(h.AddForm)))
	mux.Handle("POST /add/", mw.RequireAuthWithRedirect(http.HandlerFunc(h.AddSubmit)))
	mux.Handle("GET /note/{slug}/", mw.RequireAuthWithRedirect(http.HandlerFunc(h.Detail)))
	mux.Handle("GET /edit/{slug}/", mw.RequireAuthWithRedirect(http.HandlerFunc(h.EditForm)))
	mux.Handle("POST /edit/{slug}/", mw.RequireAuthWithRedirect(http.HandlerFunc(h.EditSubmit)))
	mux.Handle("GET /delete/{slug}/", mw.RequireAuthWithRedirect(http.HandlerFunc(h.DeleteForm)))
	mux.Handle("POST /delete/{slug}/", mw.RequireAuthWithRedirect(http.HandlerFunc(h.DeleteSubmit)))
	mux.Handle("GET /done/", mw.RequireAuthWithRedirect(http.HandlerFunc(h.Done)))

	mux.Handle("GET "+auth.LoginPath, mw.OptionalAuth(http.HandlerFunc(h.LoginForm)))
	mux.HandleFunc("POST "+auth.LoginPath, h.LoginSubmit)
	mux.Handle("GET /auth/signup", mw.OptionalAuth(http.HandlerFunc(h.SignupForm)))
	mux.HandleFunc("POST /auth/signup", h.SignupSubmit)
	mux.HandleFunc("POST /auth/logout", h.Logout)
}

// pageData is embedded by every template payload.
type pageData struct {
	Title string
	User  *auth.User
}

type listData struct {
	pageData
	Notes []notes.Note
}

type detailData struct {
	pageData
	Note *notes.Note
}

// formData carries the note form state through validation failures so the
// user's input survives a re-render.
type formData struct {
	pageData
	Action     string
	Editing    bool
	FormTitle  string
	FormText   string
	FormSlug   string
	TitleError string
	SlugError  string
}

type authFormData struct {
	pageData
	Next     string
	Username string
	Error    string
}

// Home renders the landing page. Available to anonymous visitors.
func (h *Handler) Home(w http.ResponseWriter, r *http.Request) {
	data := pageData{Title: "Zametki", User: auth.GetUser(r.Context())}
	h.render(w, r, "home.html", data)
}

// List shows the actor's notes, oldest first.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	user := auth.GetUser(r.Context())
	owned, err := h.notes.ListForActor(r.Context(), user)
	if err != nil {
		h.serviceError(w, r, err)
		return
	}

	data := listData{
		pageData: pageData{Title: "My Notes", User: user},
		Notes:    owned,
	}
	h.render(w, r, "notes/list.html", data)
}

// Detail shows a single note the actor owns.
func (h *Handler) Detail(w http.ResponseWriter, r *http.Request) {
	user := auth.GetUser(r.Context())
	note, err := h.notes.GetBySlugForActor(r.Context(), user, r.PathValue("slug"))
	if err != nil {
		h.serviceError(w, r, err)
		return
	}

	data := detailData{
		pageData: pageData{Title: note.Title, User: user},
		Note:     note,
	}
	h.render(w, r, "notes/detail.html", data)
}

// AddForm renders an empty note form.
func (h *Handler) AddForm(w http.ResponseWriter, r *http.Request) {
	data := formData{
		pageData: pageData{Title: "New Note", User: auth.GetUser(r.Context())},
		Action:   "/add/",
	}
	h.render(w, r, "notes/form.html", data)
}

// AddSubmit creates a note. A slug conflict or missing title re-renders the
// form with the user's input intact and nothing written; success redirects to
// the done page.
func (h *Handler) AddSubmit(w http.ResponseWriter, r *http.Request) {
	user := auth.GetUser(r.Context())
	if err := r.ParseForm(); err != nil {
		h.renderer.RenderError(w, http.StatusBadRequest, "invalid form data")
		return
	}

	params := notes.CreateParams{
		Title: strings.TrimSpace(r.PostFormValue("title")),
		Text:  r.PostFormValue("text"),
		Slug:  strings.TrimSpace(r.PostFormValue("slug")),
	}

	_, err := h.notes.Create(r.Context(), user, params)
	if err != nil {
		data := formData{
			pageData:  pageData{Title: "New Note", User: user},
			Action:    "/add/",
			FormTitle: params.Title,
			FormText:  params.Text,
			FormSlug:  params.Slug,
		}
		if h.fillFormError(&data, err) {
			h.render(w, r, "notes/form.html", data)
			return
		}
		h.serviceError(w, r, err)
		return
	}

	http.Redirect(w, r, "/done/", http.StatusFound)
}

// EditForm renders the form pre-filled with the note's current values.
func (h *Handler) EditForm(w http.ResponseWriter, r *http.Request) {
	user := auth.GetUser(r.Context())
	note, err := h.notes.GetBySlugForActor(r.Context(), user, r.PathValue("slug"))
	if err != nil {
		h.serviceError(w, r, err)
		return
	}

	data := formData{
		pageData:  pageData{Title: "Edit Note", User: user},
		Action:    "/edit/" + url.PathEscape(note.Slug) + "/",
		Editing:   true,
		FormTitle: note.Title,
		FormText:  note.Text,
		FormSlug:  note.Slug,
	}
	h.render(w, r, "notes/form.html", data)
}

// EditSubmit updates a note the actor owns. Validation failures re-render
// the form at the original slug's URL; success redirects to the done page.
func (h *Handler) EditSubmit(w http.ResponseWriter, r *http.Request) {
	user := auth.GetUser(r.Context())
	note, err := h.notes.GetBySlugForActor(r.Context(), user, r.PathValue("slug"))
	if err != nil {
		h.serviceError(w, r, err)
		return
	}
	if err := r.ParseForm(); err != nil {
		h.renderer.RenderError(w, http.StatusBadRequest, "invalid form data")
		return
	}

	params := notes.EditParams{
		Title: strings.TrimSpace(r.PostFormValue("title")),
		Text:  r.PostFormValue("text"),
		Slug:  strings.TrimSpace(r.PostFormValue("slug")),
	}

	if _, err := h.notes.Edit(r.Context(), user, note.ID, params); err != nil {
		data := formData{
			pageData:  pageData{Title: "Edit Note", User: user},
			Action:    "/edit/" + url.PathEscape(note.Slug) + "/",
			Editing:   true,
			FormTitle: params.Title,
			FormText:  params.Text,
			FormSlug:  params.Slug,
		}
		if h.fillFormError(&data, err) {
			h.render(w, r, "notes/form.html", data)
			return
		}
		h.serviceError(w, r, err)
		return
	}

	http.Redirect(w, r, "/done/", http.StatusFound)
}

// DeleteForm renders the delete confirmation page.
func (h *Handler) DeleteForm(w http.ResponseWriter, r *http.Request) {
	user := auth.GetUser(r.Context())
	note, err := h.notes.GetBySlugForActor(r.Context(), user, r.PathValue("slug"))
	if err != nil {
		h.serviceError(w, r, err)
		return
	}

	data := detailData{
		pageData: pageData{Title: "Delete Note", User: user},
		Note:     note,
	}
	h.render(w, r, "notes/delete.html", data)
}

// DeleteSubmit removes a note the actor owns and redirects to the done page.
func (h *Handler) DeleteSubmit(w http.ResponseWriter, r *http.Request) {
	user := auth.GetUser(r.Context())
	note, err := h.notes.GetBySlugForActor(r.Context(), user, r.PathValue("slug"))
	if err != nil {
		h.serviceError(w, r, err)
		return
	}

	if err := h.notes.Delete(r.Context(), user, note.ID); err != nil {
		h.serviceError(w, r, err)
		return
	}

	http.Redirect(w, r, "/done/", http.StatusFound)
}

// Done renders the post-mutation success page.
func (h *Handler) Done(w http.ResponseWriter, r *http.Request) {
	data := pageData{Title: "Done", User: auth.GetUser(r.Context())}
	h.render(w, r, "notes/done.html", data)
}

// LoginForm renders the login page. Already-authenticated users are sent to
// their notes.
func (h *Handler) LoginForm(w http.ResponseWriter, r *http.Request) {
	if auth.IsAuthenticated(r.Context()) {
		http.Redirect(w, r, "/notes/", http.StatusFound)
		return
	}

	data := authFormData{
		pageData: pageData{Title: "Log In"},
		Next:     sanitizeNext(r.URL.Query().Get("next")),
	}
	h.render(w, r, "auth/login.html", data)
}

// LoginSubmit authenticates the user, creates a session, and follows the
// next parameter back to the originally requested page. Attempts are rate
// limited per client address.
func (h *Handler) LoginSubmit(w http.ResponseWriter, r *http.Request) {
	if !h.loginLimiter.Allow(clientIP(r)) {
		h.renderer.RenderError(w, http.StatusTooManyRequests, "too many login attempts, try again later")
		return
	}
	if err := r.ParseForm(); err != nil {
		h.renderer.RenderError(w, http.StatusBadRequest, "invalid form data")
		return
	}

	username := r.PostFormValue("username")
	password := r.PostFormValue("password")
	next := sanitizeNext(r.PostFormValue("next"))

	user, err := h.users.Authenticate(r.Context(), username, password)
	if err != nil {
		if !errors.Is(err, auth.ErrInvalidCredentials) {
			h.log.Error("authenticate failed", "error", err)
		}
		data := authFormData{
			pageData: pageData{Title: "Log In"},
			Next:     next,
			Username: username,
			Error:    "Invalid username or password.",
		}
		h.render(w, r, "auth/login.html", data)
		return
	}

	if err := h.startSession(w, r, user.ID); err != nil {
		h.log.Error("create session failed", "error", err)
		h.renderer.RenderError(w, http.StatusInternalServerError, "could not log in")
		return
	}

	if next == "" {
		next = "/notes/"
	}
	http.Redirect(w, r, next, http.StatusFound)
}

// SignupForm renders the registration page.
func (h *Handler) SignupForm(w http.ResponseWriter, r *http.Request) {
	if auth.IsAuthenticated(r.Context()) {
		http.Redirect(w, r, "/notes/", http.StatusFound)
		return
	}

	data := authFormData{pageData: pageData{Title: "Sign Up"}}
	h.render(w, r, "auth/signup.html", data)
}

// SignupSubmit registers a new account and logs it in immediately.
func (h *Handler) SignupSubmit(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		h.renderer.RenderError(w, http.StatusBadRequest, "invalid form data")
		return
	}

	username := r.PostFormValue("username")
	password := r.PostFormValue("password")

	user, err := h.users.Register(r.Context(), username, password)
	if err != nil {
		msg := "Could not create account."
		switch {
		case errors.Is(err, auth.ErrUsernameTaken):
			msg = "That username is already taken."
		case errors.Is(err, auth.ErrWeakPassword):
			msg = "Password must be at least 8 characters."
		default:
			h.log.Error("register failed", "error", err)
		}
		data := authFormData{
			pageData: pageData{Title: "Sign Up"},
			Username: username,
			Error:    msg,
		}
		h.render(w, r, "auth/signup.html", data)
		return
	}

	if err := h.startSession(w, r, user.ID); err != nil {
		h.log.Error("create session failed", "error", err)
		h.renderer.RenderError(w, http.StatusInternalServerError, "could not log in")
		return
	}

	http.Redirect(w, r, "/notes/", http.StatusFound)
}

// Logout deletes the session and clears the cookie.
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	if sessionID, err := auth.GetFromRequest(r); err == nil {
		if err := h.sessions.Delete(r.Context(), sessionID); err != nil {
			h.log.Error("delete session failed", "error", err)
		}
	}
	h.sessions.ClearCookie(w)
	http.Redirect(w, r, "/", http.StatusFound)
}

func (h *Handler) startSession(w http.ResponseWriter, r *http.Request, userID int64) error {
	sessionID, err := h.sessions.Create(r.Context(), userID)
	if err != nil {
		return err
	}
	h.sessions.SetCookie(w, sessionID)
	return nil
}

// fillFormError maps a validation failure onto the form and reports whether
// it did. Conflicts and invalid input re-render with status 200; anything
// else is left for serviceError.
func (h *Handler) fillFormError(data *formData, err error) bool {
	switch errs.CodeOf(err) {
	case errs.Conflict:
		data.SlugError = errs.MessageOf(err)
		return true
	case errs.InvalidArgument:
		data.TitleError = errs.MessageOf(err)
		return true
	}
	return false
}

// serviceError translates a service failure into an HTTP response:
// unauthenticated actors are redirected to login, a missing or foreign note
// is a plain 404, everything else maps through the error code's status.
func (h *Handler) serviceError(w http.ResponseWriter, r *http.Request, err error) {
	switch errs.CodeOf(err) {
	case errs.Unauthenticated:
		http.Redirect(w, r, auth.LoginRedirectURL(r), http.StatusFound)
	case errs.NotFound:
		h.renderer.RenderError(w, http.StatusNotFound, errs.MessageOf(err))
	default:
		h.log.Error("request failed", "path", r.URL.Path, "error", err)
		h.renderer.RenderError(w, errs.HTTPStatus(errs.CodeOf(err)), errs.MessageOf(err))
	}
}

func (h *Handler) render(w http.ResponseWriter, r *http.Request, name string, data interface{}) {
	if err := h.renderer.Render(w, name, data); err != nil {
		h.log.Error("render failed", "template", name, "error", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
	}
}

// sanitizeNext keeps redirect targets on this site. Only rooted paths pass;
// anything that could leave the origin (absolute URLs, protocol-relative
// paths) is dropped.
func sanitizeNext(next string) string {
	if next == "" || !strings.HasPrefix(next, "/") || strings.HasPrefix(next, "//") {
		return ""
	}
	return next
}

func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
