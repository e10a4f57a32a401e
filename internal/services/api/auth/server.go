package auth

import (
	"net/http"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/NordCoder/Stockpulse/internal/obs"
	"github.com/NordCoder/Stockpulse/internal/services/api/httpx"
)

type Server struct {
	uc  *Usecase
	log *zap.Logger
}

type Opts struct {
	Logger *zap.Logger
}

func NewServer(uc *Usecase, o Opts) *Server {
	log := o.Logger
	if log == nil {
		log = zap.NewNop()
	}
	return &Server{uc: uc, log: log.With(zap.String("component", "auth.http"))}
}

func (s *Server) Routes(r *mux.Router) {
	r.HandleFunc("/auth/register", s.Register).Methods(http.MethodPost)
	r.HandleFunc("/auth/login", s.Login).Methods(http.MethodPost)
	r.HandleFunc("/auth/refresh", s.Refresh).Methods(http.MethodPost)
	r.HandleFunc("/auth/logout", s.Logout).Methods(http.MethodPost)
}

type registerResponse struct {
	Message string `json:"message"`
	UserID  string `json:"user_id"`
	Email   string `json:"email"`
	Role    string `json:"role"`
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type userRef struct {
	ID       string `json:"id"`
	Username string `json:"username"`
}

type loginResponse struct {
	Message      string  `json:"message"`
	AccessToken  string  `json:"access_token"`
	RefreshToken string  `json:"refresh_token"`
	TokenType    string  `json:"token_type"`
	User         userRef `json:"user"`
}

type refreshResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	TokenType    string `json:"token_type"`
}

func (s *Server) Register(w http.ResponseWriter, r *http.Request) {
	var in RegisterInput
	if err := httpx.Decode(r, &in); err != nil {
		httpx.Error(w, r, s.log, err)
		return
	}
	obs.WithTrace(r.Context(), s.log).Info("auth.register", zap.String("username", in.Username))

	u, err := s.uc.Register(r.Context(), in)
	if err != nil {
		httpx.Error(w, r, s.log, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, registerResponse{
		Message: "User registered",
		UserID:  u.ID,
		Email:   u.Email,
		Role:    string(u.Role),
	})
}

func (s *Server) Login(w http.ResponseWriter, r *http.Request) {
	var in loginRequest
	if err := httpx.Decode(r, &in); err != nil {
		httpx.Error(w, r, s.log, err)
		return
	}
	obs.WithTrace(r.Context(), s.log).Info("auth.login", zap.String("username", in.Username))

	res, err := s.uc.Login(r.Context(), in.Username, in.Password)
	if err != nil {
		httpx.Error(w, r, s.log, err)
		return
	}
	httpx.JSON(w, http.StatusOK, loginResponse{
		Message:      "Login successful",
		AccessToken:  res.Tokens.AccessToken,
		RefreshToken: res.Tokens.RefreshToken,
		TokenType:    "Bearer",
		User:         userRef{ID: res.User.ID, Username: res.User.Username},
	})
}

func (s *Server) Refresh(w http.ResponseWriter, r *http.Request) {
	token, err := BearerToken(r.Header.Get("Authorization"))
	if err != nil {
		httpx.Error(w, r, s.log, err)
		return
	}
	pair, err := s.uc.Refresh(r.Context(), token)
	if err != nil {
		httpx.Error(w, r, s.log, err)
		return
	}
	httpx.JSON(w, http.StatusOK, refreshResponse{
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
		TokenType:    "Bearer",
	})
}

func (s *Server) Logout(w http.ResponseWriter, r *http.Request) {
	token, err := BearerToken(r.Header.Get("Authorization"))
	if err != nil {
		httpx.Error(w, r, s.log, err)
		return
	}
	if err := s.uc.Logout(r.Context(), token); err != nil {
		httpx.Error(w, r, s.log, err)
		return
	}
	httpx.JSON(w, http.StatusOK, httpx.Message{Message: "Logout successful"})
}
