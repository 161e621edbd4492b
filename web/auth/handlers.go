package auth

import (
	"database/sql"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/huandu/go-sqlbuilder"
	"github.com/m-mizutani/goerr/v2"
	"github.com/xcono/parkrest/apperr"
	"github.com/xcono/parkrest/store"
	"github.com/xcono/parkrest/web/response"
)

// Handler serves the register and login endpoints. It reads the users
// table directly because the password hash never travels through the
// entity services.
type Handler struct {
	exec   *store.Executor
	flavor sqlbuilder.Flavor
	issuer *TokenIssuer
}

func NewHandler(exec *store.Executor, flavor sqlbuilder.Flavor, issuer *TokenIssuer) *Handler {
	return &Handler{exec: exec, flavor: flavor, issuer: issuer}
}

type credentials struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type account struct {
	ID    int64  `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
	Role  string `json:"role"`
}

// Register creates a user account and returns it with a fresh token.
func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		response.WriteMethodNotAllowed(w, r.Method)
		return
	}

	var creds credentials
	if err := json.NewDecoder(r.Body).Decode(&creds); err != nil {
		response.WriteError(w, apperr.Validation("invalid request body"))
		return
	}
	creds.Email = strings.TrimSpace(strings.ToLower(creds.Email))
	if creds.Name == "" || creds.Email == "" || creds.Password == "" {
		response.WriteError(w, apperr.Validation("name, email and password are required"))
		return
	}

	hashed, err := HashPassword(creds.Password)
	if err != nil {
		response.WriteError(w, err)
		return
	}

	ib := sqlbuilder.NewInsertBuilder()
	ib.InsertInto("users")
	ib.Cols("name", "email", "password", "role")
	ib.Values(creds.Name, creds.Email, hashed, "user")

	query, args := ib.BuildWithFlavor(h.flavor)
	var id int64
	if h.flavor == sqlbuilder.PostgreSQL {
		// lib/pq has no LastInsertId; the key comes back via RETURNING.
		err = h.exec.QueryRow(r.Context(), query+" RETURNING id", args...).Scan(&id)
	} else {
		var result sql.Result
		result, err = h.exec.Exec(r.Context(), query, args...)
		if err == nil {
			id, err = result.LastInsertId()
		}
	}
	if err != nil {
		// A duplicate email surfaces as a unique violation.
		response.WriteError(w, apperr.Validation("user already exists",
			goerr.V("email", creds.Email)))
		return
	}

	user := account{ID: id, Name: creds.Name, Email: creds.Email, Role: "user"}
	token, err := h.issuer.Issue(user.ID, user.Role)
	if err != nil {
		response.WriteError(w, err)
		return
	}
	response.WriteJSON(w, http.StatusCreated, map[string]any{"user": user, "token": token})
}

// Login checks the credentials and returns the account with a fresh
// token. Unknown emails and wrong passwords fail identically.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		response.WriteMethodNotAllowed(w, r.Method)
		return
	}

	var creds credentials
	if err := json.NewDecoder(r.Body).Decode(&creds); err != nil {
		response.WriteError(w, apperr.Validation("invalid request body"))
		return
	}
	creds.Email = strings.TrimSpace(strings.ToLower(creds.Email))

	sb := sqlbuilder.NewSelectBuilder()
	sb.Select("id", "name", "email", "password", "role").From("users")
	sb.Where(sb.EQ("email", creds.Email))

	query, args := sb.BuildWithFlavor(h.flavor)
	var (
		user   account
		hashed string
	)
	err := h.exec.QueryRow(r.Context(), query, args...).
		Scan(&user.ID, &user.Name, &user.Email, &hashed, &user.Role)
	if errors.Is(err, sql.ErrNoRows) {
		response.WriteError(w, apperr.Unauthorized("invalid credentials"))
		return
	}
	if err != nil {
		response.WriteError(w, goerr.Wrap(err, "failed to load user"))
		return
	}

	if !CheckPassword(hashed, creds.Password) {
		response.WriteError(w, apperr.Unauthorized("invalid credentials"))
		return
	}

	token, err := h.issuer.Issue(user.ID, user.Role)
	if err != nil {
		response.WriteError(w, err)
		return
	}
	response.WriteJSON(w, http.StatusOK, map[string]any{"user": user, "token": token})
}
