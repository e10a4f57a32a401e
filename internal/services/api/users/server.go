package users

import (
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/NordCoder/Stockpulse/internal/domain"
	"github.com/NordCoder/Stockpulse/internal/domain/user"
	"github.com/NordCoder/Stockpulse/internal/services/api/auth"
	"github.com/NordCoder/Stockpulse/internal/services/api/httpx"
)

type Server struct {
	uc    *Usecase
	auth  *auth.Usecase
	guard *auth.Guard
	log   *zap.Logger
}

type Opts struct {
	Logger *zap.Logger
}

func NewServer(uc *Usecase, authUC *auth.Usecase, guard *auth.Guard, o Opts) *Server {
	log := o.Logger
	if log == nil {
		log = zap.NewNop()
	}
	return &Server{uc: uc, auth: authUC, guard: guard, log: log.With(zap.String("component", "users.http"))}
}

// Routes mounts /users behind the guard middleware.
func (s *Server) Routes(r *mux.Router) {
	api := r.PathPrefix("/users").Subrouter()
	api.Use(s.guard.Middleware)

	api.HandleFunc("", s.List).Methods(http.MethodGet)
	api.HandleFunc("/revoke_sessions", s.RevokeOwnSessions).Methods(http.MethodPost)
	api.HandleFunc("/{user_id}", s.Get).Methods(http.MethodGet)
	api.HandleFunc("/{user_id}", s.Update).Methods(http.MethodPut)
	api.HandleFunc("/{user_id}", s.Delete).Methods(http.MethodDelete)
	api.HandleFunc("/{user_id}/revoke_sessions", s.RevokeSessions).Methods(http.MethodPost)
	api.HandleFunc("/{user_id}/role", s.Promote).Methods(http.MethodPut)
}

type updateResponse struct {
	Message  string `json:"message"`
	UserID   string `json:"user_id"`
	FullName string `json:"full_name"`
	Email    string `json:"email"`
}

type deleteResponse struct {
	Message   string    `json:"message"`
	UserID    string    `json:"user_id"`
	Email     string    `json:"email"`
	FullName  string    `json:"full_name"`
	DeletedAt time.Time `json:"deleted_at"`
}

func (s *Server) List(w http.ResponseWriter, r *http.Request) {
	if err := auth.AdminRequired(principal(r)); err != nil {
		httpx.Error(w, r, s.log, err)
		return
	}
	list, err := s.uc.ListStandard(r.Context())
	if err != nil {
		httpx.Error(w, r, s.log, err)
		return
	}
	httpx.JSON(w, http.StatusOK, list)
}

func (s *Server) Get(w http.ResponseWriter, r *http.Request) {
	id, err := s.target(r)
	if err != nil {
		httpx.Error(w, r, s.log, err)
		return
	}
	u, err := s.uc.Get(r.Context(), id)
	if err != nil {
		httpx.Error(w, r, s.log, err)
		return
	}
	httpx.JSON(w, http.StatusOK, u)
}

func (s *Server) Update(w http.ResponseWriter, r *http.Request) {
	id, err := s.target(r)
	if err != nil {
		httpx.Error(w, r, s.log, err)
		return
	}
	var in UpdateInput
	if err := httpx.Decode(r, &in); err != nil {
		httpx.Error(w, r, s.log, err)
		return
	}
	u, err := s.uc.UpdateProfile(r.Context(), id, in)
	if err != nil {
		httpx.Error(w, r, s.log, err)
		return
	}
	httpx.JSON(w, http.StatusOK, updateResponse{
		Message:  "User updated",
		UserID:   u.ID,
		FullName: u.FullName,
		Email:    u.Email,
	})
}

func (s *Server) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := s.target(r)
	if err != nil {
		httpx.Error(w, r, s.log, err)
		return
	}
	receipt, err := s.auth.DeleteIdentity(r.Context(), id)
	if err != nil {
		httpx.Error(w, r, s.log, err)
		return
	}
	httpx.JSON(w, http.StatusOK, deleteResponse{
		Message:   "User deleted successfully",
		UserID:    receipt.UserID,
		Email:     receipt.Email,
		FullName:  receipt.FullName,
		DeletedAt: receipt.DeletedAt,
	})
}

func (s *Server) RevokeOwnSessions(w http.ResponseWriter, r *http.Request) {
	p := principal(r)
	if p == nil {
		httpx.Error(w, r, s.log, domain.ErrUnauthorized)
		return
	}
	if err := s.auth.RevokeAllSessions(r.Context(), p.ID); err != nil {
		httpx.Error(w, r, s.log, err)
		return
	}
	httpx.JSON(w, http.StatusOK, httpx.Message{Message: "All sessions have been revoked. You must log in again."})
}

func (s *Server) RevokeSessions(w http.ResponseWriter, r *http.Request) {
	if err := auth.AdminRequired(principal(r)); err != nil {
		httpx.Error(w, r, s.log, err)
		return
	}
	u, err := s.uc.Get(r.Context(), mux.Vars(r)["user_id"])
	if err != nil {
		httpx.Error(w, r, s.log, err)
		return
	}
	if err := s.auth.RevokeAllSessions(r.Context(), u.ID); err != nil {
		httpx.Error(w, r, s.log, err)
		return
	}
	httpx.JSON(w, http.StatusOK, httpx.Message{Message: "All sessions have been revoked."})
}

func (s *Server) Promote(w http.ResponseWriter, r *http.Request) {
	if err := auth.AdminRequired(principal(r)); err != nil {
		httpx.Error(w, r, s.log, err)
		return
	}
	u, err := s.uc.Get(r.Context(), mux.Vars(r)["user_id"])
	if err != nil {
		httpx.Error(w, r, s.log, err)
		return
	}
	promoted, err := s.auth.PromoteRole(r.Context(), u.ID)
	if err != nil {
		httpx.Error(w, r, s.log, err)
		return
	}
	httpx.JSON(w, http.StatusOK, promoted)
}

// target applies owner-or-admin to the {user_id} path value and returns the id
// to act on. Non-admins can only ever address themselves.
func (s *Server) target(r *http.Request) (string, error) {
	p := principal(r)
	ref := mux.Vars(r)["user_id"]
	if err := auth.OwnerOrAdmin(ref, p); err != nil {
		return "", err
	}
	if p.Role != user.RoleAdmin {
		return p.ID, nil
	}
	u, err := s.uc.Get(r.Context(), ref)
	if err != nil {
		return "", err
	}
	return u.ID, nil
}

// principal is nil only when a route was mounted without the guard; policy checks then refuse.
func principal(r *http.Request) *user.Identity {
	p, _ := auth.PrincipalFromCtx(r.Context())
	return p
}
