package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/Ftffxu/ephemeral-chatty/internal/auth"
	"github.com/Ftffxu/ephemeral-chatty/internal/middleware"
)

type AuthHandler struct {
	Auth *auth.Store
}

type registerRequest struct {
	Email    string `json:"email"`
	Username string `json:"username"`
	Password string `json:"password"`
}

type verifyRequest struct {
	Email string `json:"email"`
	OTP   string `json:"otp"`
}

type emailRequest struct {
	Email string `json:"email"`
}

type credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if req.Email == "" || req.Username == "" || req.Password == "" {
		http.Error(w, "email, username and password are required", http.StatusBadRequest)
		return
	}

	masked, err := h.Auth.StartRegistration(req.Email, req.Username, req.Password)
	if err != nil {
		if errors.Is(err, auth.ErrEmailTaken) {
			http.Error(w, err.Error(), http.StatusConflict)
			return
		}
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	json.NewEncoder(w).Encode(map[string]string{"maskedEmail": masked})
}

func (h *AuthHandler) Verify(w http.ResponseWriter, r *http.Request) {
	var req verifyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	user, err := h.Auth.VerifyOTP(req.Email, req.OTP)
	if err != nil {
		switch {
		case errors.Is(err, auth.ErrNoPendingRegistration):
			http.Error(w, err.Error(), http.StatusNotFound)
		case errors.Is(err, auth.ErrOTPExpired), errors.Is(err, auth.ErrOTPInvalid):
			http.Error(w, err.Error(), http.StatusBadRequest)
		default:
			http.Error(w, err.Error(), http.StatusInternalServerError)
		}
		return
	}

	setSessionCookies(w, user.ID, user.Username)
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(user)
}

func (h *AuthHandler) Resend(w http.ResponseWriter, r *http.Request) {
	var req emailRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	masked, err := h.Auth.ResendOTP(req.Email)
	if err != nil {
		if errors.Is(err, auth.ErrNoPendingRegistration) {
			http.Error(w, err.Error(), http.StatusNotFound)
			return
		}
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	json.NewEncoder(w).Encode(map[string]string{"maskedEmail": masked})
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var creds credentials
	if err := json.NewDecoder(r.Body).Decode(&creds); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	user, err := h.Auth.Login(creds.Email, creds.Password)
	if err != nil {
		if errors.Is(err, auth.ErrInvalidCredentials) {
			http.Error(w, err.Error(), http.StatusUnauthorized)
			return
		}
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	setSessionCookies(w, user.ID, user.Username)
	json.NewEncoder(w).Encode(user)
}

func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	if err := h.Auth.Logout(); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	http.SetCookie(w, &http.Cookie{Name: "user_id", Value: "", Path: "/", MaxAge: -1})
	http.SetCookie(w, &http.Cookie{Name: "username", Value: "", Path: "/", MaxAge: -1})
	w.WriteHeader(http.StatusNoContent)
}

// Me returns the authenticated caller's account.
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	user, err := h.Auth.UserByID(middleware.UserID(r))
	if err != nil {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}
	json.NewEncoder(w).Encode(user)
}

// FindUser resolves a shareable unique id to a user.
func (h *AuthHandler) FindUser(w http.ResponseWriter, r *http.Request) {
	uniqueID := mux.Vars(r)["uniqueId"]

	user, err := h.Auth.FindUserByUniqueID(uniqueID)
	if err != nil {
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	}
	json.NewEncoder(w).Encode(user)
}

func setSessionCookies(w http.ResponseWriter, userID, username string) {
	http.SetCookie(w, &http.Cookie{
		Name:  "user_id",
		Value: auth.SignCookie(userID),
		Path:  "/",
	})
	// Username cookie for frontend convenience; not used for auth.
	http.SetCookie(w, &http.Cookie{
		Name:  "username",
		Value: username,
		Path:  "/",
	})
}
