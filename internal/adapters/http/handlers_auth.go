package web

import (
	"errors"
	"log/slog"
	"net/http"

	"groomdesk/internal/adapters/api"
	"groomdesk/internal/adapters/http/middleware"
	"groomdesk/internal/application/orchestrators"
)

// handleLogin handles GET (form) and POST (authenticate) for /login
func handleLogin(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		if _, ok := middleware.GetSessionFromContext(r.Context()); ok {
			http.Redirect(w, r, "/calendar", http.StatusSeeOther)
			return
		}
		renderTemplate(w, r, "login.html", map[string]any{
			"Registered": r.URL.Query().Get("registered") == "1",
		})
	case http.MethodPost:
		if err := r.ParseForm(); err != nil {
			http.Error(w, "Invalid form submission", http.StatusBadRequest)
			return
		}
		input := orchestrators.LoginInput{
			Email:    r.FormValue("email"),
			Password: r.FormValue("password"),
		}
		result, err := orchestrators.ExecuteLogin(r.Context(), input, orchestrators.LoginDeps{
			Remote: deps.API,
			Users:  deps.Local,
			Now:    timeNow,
		})
		if err != nil {
			status, msg := http.StatusUnauthorized, orchestrators.ErrInvalidCredentials.Error()
			if !errors.Is(err, orchestrators.ErrInvalidCredentials) {
				status, msg = http.StatusBadGateway, api.UserMessage(err)
			}
			renderTemplateStatus(w, r, status, "login.html", map[string]any{
				"Error": msg,
				"Email": input.Email,
			})
			return
		}

		token, err := sessions.Create(middleware.Session{
			UserID:    result.User.ID,
			Email:     result.User.Email,
			Name:      result.User.Name,
			ShopName:  result.User.ShopName,
			Role:      result.User.Role,
			APIToken:  result.Token,
			ExpiresAt: result.ExpiresAt,
		})
		if err != nil {
			internalError(w, err)
			return
		}
		middleware.SetSessionCookie(w, token)
		http.Redirect(w, r, "/calendar", http.StatusSeeOther)
	default:
		methodNotAllowed(w, http.MethodGet, http.MethodPost)
	}
}

// handleLogout handles POST /logout
func handleLogout(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, http.MethodPost)
		return
	}
	if cookie, err := r.Cookie(middleware.SessionCookieName); err == nil {
		sessions.Delete(cookie.Value)
		calendars.Remove(cookie.Value)
	}
	middleware.ClearSessionCookie(w)
	http.Redirect(w, r, "/login", http.StatusSeeOther)
}

// handleRegister handles GET (form) and POST (create account) for /register
func handleRegister(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		renderTemplate(w, r, "register.html", nil)
	case http.MethodPost:
		if err := r.ParseForm(); err != nil {
			http.Error(w, "Invalid form submission", http.StatusBadRequest)
			return
		}
		input := orchestrators.RegisterAccountInput{
			Email:           r.FormValue("email"),
			Password:        r.FormValue("password"),
			ConfirmPassword: r.FormValue("confirmPassword"),
			Name:            r.FormValue("name"),
			ShopName:        r.FormValue("shopName"),
			Phone:           r.FormValue("phone"),
		}
		acct, err := orchestrators.ExecuteRegisterAccount(r.Context(), input, orchestrators.RegisterAccountDeps{
			Users:      deps.Local,
			Remote:     deps.API,
			GenerateID: generateID,
			Now:        timeNow,
		})
		if err != nil {
			data := map[string]any{"Input": input}
			status := http.StatusBadGateway
			var verr *orchestrators.ValidationError
			switch {
			case errors.As(err, &verr):
				status = http.StatusUnprocessableEntity
				data["Fields"] = verr.Fields
				data["Error"] = "please correct the highlighted fields"
			case errors.Is(err, orchestrators.ErrEmailTaken):
				status = http.StatusConflict
				data["Error"] = err.Error()
			default:
				data["Error"] = api.UserMessage(err)
			}
			renderTemplateStatus(w, r, status, "register.html", data)
			return
		}
		slog.Info("account_registered", "user_id", acct.ID, "role", acct.Role)
		http.Redirect(w, r, "/login?registered=1", http.StatusSeeOther)
	default:
		methodNotAllowed(w, http.MethodGet, http.MethodPost)
	}
}
