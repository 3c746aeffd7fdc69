package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/nikhil/rosters/internal/forms"
	"github.com/nikhil/rosters/internal/middleware"
	services "github.com/nikhil/rosters/internal/service/auth"
)

type AuthHandler struct {
	*Responder
	Service       *services.AuthService
	secureCookies bool
}

// NewAuthHandler creates a new instance of AuthHandler
func NewAuthHandler(service *services.AuthService, secureCookies bool, resp *Responder) *AuthHandler {
	return &AuthHandler{Responder: resp, Service: service, secureCookies: secureCookies}
}

type loginPage struct {
	Email string
	Next  string
}

// Signup handles GET and POST /auth/signup
func (h *AuthHandler) Signup(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		h.render(w, r, http.StatusOK, "signup", "Sign up", &forms.SignupForm{})
		return
	}

	form := &forms.SignupForm{
		Email:    r.PostFormValue("email"),
		Nickname: r.PostFormValue("nickname"),
		Password: r.PostFormValue("password"),
	}
	user, err := h.Service.Signup(r.Context(), form)
	var errs forms.Errors
	if errors.As(err, &errs) {
		form.Password = ""
		h.renderInvalid(w, r, "signup", "Sign up", errs, form)
		return
	}
	if err != nil {
		h.fail(w, r, err)
		return
	}

	token, err := h.Service.GenerateJWT(user.Email, user.ID)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.setSession(w, token)
	h.redirect(w, r, "/teams/")
}

// Login handles GET and POST /auth/login
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		h.render(w, r, http.StatusOK, "login", "Log in", loginPage{Next: r.URL.Query().Get("next")})
		return
	}

	form := &forms.LoginForm{
		Email:    r.PostFormValue("email"),
		Password: r.PostFormValue("password"),
	}
	page := loginPage{Email: form.Email, Next: r.PostFormValue("next")}

	token, _, err := h.Service.Login(r.Context(), form)
	var errs forms.Errors
	switch {
	case errors.As(err, &errs):
		h.renderInvalid(w, r, "login", "Log in", errs, page)
		return
	case errors.Is(err, services.ErrInvalidCredentials):
		h.renderInvalid(w, r, "login", "Log in", forms.Errors{"__all__": "Invalid email or password."}, page)
		return
	case err != nil:
		h.fail(w, r, err)
		return
	}

	h.setSession(w, token)
	h.redirect(w, r, safeNext(page.Next))
}

// Logout handles POST /auth/logout
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, &http.Cookie{
		Name:     middleware.SessionCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.secureCookies,
		SameSite: http.SameSiteLaxMode,
	})
	h.redirect(w, r, "/teams/")
}

func (h *AuthHandler) setSession(w http.ResponseWriter, token string) {
	http.SetCookie(w, &http.Cookie{
		Name:     middleware.SessionCookie,
		Value:    token,
		Path:     "/",
		MaxAge:   int(h.Service.TTL().Seconds()),
		HttpOnly: true,
		Secure:   h.secureCookies,
		SameSite: http.SameSiteLaxMode,
	})
}

// safeNext only follows local paths.
func safeNext(next string) string {
	if !strings.HasPrefix(next, "/") || strings.HasPrefix(next, "//") || strings.HasPrefix(next, "/\\") {
		return "/teams/"
	}
	return next
}
