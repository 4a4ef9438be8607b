package api

import (
	"errors"
	"log/slog"
	"net/http"

	"gwi.com/botchat/internal/core"
	"gwi.com/botchat/internal/logger"
)

func (h *APIHandler) LoginPage(w http.ResponseWriter, r *http.Request) {
	page := authPage{Mode: "login"}
	if r.URL.Query().Get("created") == "1" {
		page.Message = "Account created. Please log in."
	}
	renderPage(w, r, http.StatusOK, "login.html", page)
}

func (h *APIHandler) SignupPage(w http.ResponseWriter, r *http.Request) {
	renderPage(w, r, http.StatusOK, "login.html", authPage{Mode: "signup"})
}

func (h *APIHandler) LoginHandler(w http.ResponseWriter, r *http.Request) {
	email := r.FormValue("email")
	user, err := h.accounts.Login(r.Context(), email, r.FormValue("password"))
	if err != nil {
		page := authPage{Mode: "login", Error: true, Email: email, Message: "Invalid email or password."}
		status := http.StatusOK
		if !errors.Is(err, core.ErrInvalidCredentials) {
			logger.FromContext(r.Context()).Error("login failed", slog.Any("error", err))
			page.Message = "Something went wrong. Please try again."
			status = http.StatusInternalServerError
		}
		renderPage(w, r, status, "login.html", page)
		return
	}

	token, err := h.sessions.Issue(user.ID)
	if err != nil {
		logger.FromContext(r.Context()).Error("failed to issue session", slog.Any("error", err))
		renderPage(w, r, http.StatusInternalServerError, "login.html",
			authPage{Mode: "login", Error: true, Email: email, Message: "Something went wrong. Please try again."})
		return
	}
	h.sessions.SetCookie(w, token)
	http.Redirect(w, r, "/dashboard", http.StatusSeeOther)
}

func (h *APIHandler) SignupHandler(w http.ResponseWriter, r *http.Request) {
	email := r.FormValue("email")
	_, err := h.accounts.Signup(r.Context(), email, r.FormValue("password"), r.FormValue("confirm_password"))
	if err != nil {
		page := authPage{Mode: "signup", Error: true, Email: email}
		status := http.StatusOK
		switch {
		case errors.Is(err, core.ErrInvalidInput):
			page.Message = "Email and password are required."
		case errors.Is(err, core.ErrPasswordMismatch):
			page.Message = "Passwords must match."
		case errors.Is(err, core.ErrDuplicateEmail):
			page.Message = "Email already registered."
		default:
			logger.FromContext(r.Context()).Error("signup failed", slog.Any("error", err))
			page.Message = "Something went wrong. Please try again."
			status = http.StatusInternalServerError
		}
		renderPage(w, r, status, "login.html", page)
		return
	}
	http.Redirect(w, r, "/login?created=1", http.StatusSeeOther)
}

func (h *APIHandler) LogoutHandler(w http.ResponseWriter, r *http.Request) {
	h.sessions.ClearCookie(w)
	renderPage(w, r, http.StatusOK, "login.html", authPage{Mode: "login", Message: "Logged out"})
}

// UpdateUserHandler answers with the bare user object rather than the usual envelope.
func (h *APIHandler) UpdateUserHandler(w http.ResponseWriter, r *http.Request) {
	user, err := h.accounts.UpdateFullname(r.Context(), currentUser(r).ID, r.FormValue("fullname"))
	if err != nil {
		if errors.Is(err, core.ErrInvalidInput) {
			writeFail(w, r, http.StatusBadRequest, "Full name is required.")
			return
		}
		writeInternal(w, r, "update user", err)
		return
	}
	writeJSON(w, r, http.StatusOK, user.JSON())
}
