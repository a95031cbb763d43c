package api

import (
	"errors"
	"net/http"
	"net/url"
	"resumotube/m/v2/app/auth"
	"resumotube/m/v2/app/db/mongo"
	"resumotube/m/v2/app/models"
	"strings"

	log "github.com/sirupsen/logrus"
	"github.com/valyala/fasthttp"
)

type credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type tokenResponse struct {
	Token string `json:"token"`
}

func (s *Server) GoogleAuthURL(ctx *fasthttp.RequestCtx) {
	writeJSON(ctx, http.StatusOK, map[string]string{"url": s.OAuth.AuthURL("")})
}

// GoogleCallback signs the Google user in, creating the account on first login.
func (s *Server) GoogleCallback(ctx *fasthttp.RequestCtx) {
	code := string(ctx.QueryArgs().Peek("code"))
	if code == "" {
		log.Error("GoogleCallback: missing authorization code")
		writeError(ctx, http.StatusBadRequest, "Authorization code is required")
		return
	}
	c, cancel := s.requestContext(ctx)
	defer cancel()

	googleUser, err := s.OAuth.Exchange(c, code)
	if err != nil {
		log.WithError(err).Error("GoogleCallback: failed to exchange code")
		s.redirectLoginFailed(ctx)
		return
	}
	if googleUser.Email == "" {
		log.Error("GoogleCallback: email not found in Google response")
		writeError(ctx, http.StatusBadRequest, "Email not found")
		return
	}

	user, err := s.DB.GetUserByEmail(c, googleUser.Email)
	if errors.Is(err, mongo.ErrNotFound) {
		log.Infof("GoogleCallback: creating new user %s", googleUser.Email)
		user = &models.MongoUser{
			Email:              googleUser.Email,
			Name:               googleUser.Name,
			GoogleID:           googleUser.ID,
			CreatedAt:          s.Now(),
			Tier:               models.BasicSubscriptionName,
			SubscriptionStatus: models.SubscriptionStatusUnpaid,
		}
		err = s.DB.CreateUser(c, user)
	}
	if err != nil {
		log.WithError(err).Errorf("GoogleCallback: failed to sign in %s", googleUser.Email)
		s.redirectLoginFailed(ctx)
		return
	}

	token, err := auth.GenerateToken(s.JWTSecret, user.ID.Hex(), user.Email, auth.SESSION_TTL)
	if err != nil {
		log.WithError(err).Error("GoogleCallback: failed to issue token")
		s.redirectLoginFailed(ctx)
		return
	}
	ctx.Redirect(s.FrontendURL+"/auth-callback.html?token="+url.QueryEscape(token), http.StatusFound)
}

func (s *Server) redirectLoginFailed(ctx *fasthttp.RequestCtx) {
	ctx.Redirect(s.FrontendURL+"/login.html?error="+url.QueryEscape("Authentication failed"), http.StatusFound)
}

func (s *Server) Register(ctx *fasthttp.RequestCtx) {
	var req credentials
	if !readJSON(ctx, &req) {
		return
	}
	req.Email = strings.TrimSpace(req.Email)
	if req.Email == "" || req.Password == "" {
		writeError(ctx, http.StatusBadRequest, "Email and password are required")
		return
	}
	c, cancel := s.requestContext(ctx)
	defer cancel()
	log.Infof("Register: attempting user registration for %s", req.Email)

	_, err := s.DB.GetUserByEmail(c, req.Email)
	if err == nil {
		log.Warnf("Register: user %s already exists", req.Email)
		writeError(ctx, http.StatusBadRequest, "User already exists")
		return
	}
	if !errors.Is(err, mongo.ErrNotFound) {
		log.WithError(err).Error("Register: failed to look up user")
		writeError(ctx, http.StatusInternalServerError, "Registration failed")
		return
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		log.WithError(err).Error("Register: failed to hash password")
		writeError(ctx, http.StatusInternalServerError, "Registration failed")
		return
	}
	user := &models.MongoUser{
		Email:              req.Email,
		Password:           hash,
		CreatedAt:          s.Now(),
		Tier:               models.BasicSubscriptionName,
		SubscriptionStatus: models.SubscriptionStatusUnpaid,
	}
	if err := s.DB.CreateUser(c, user); err != nil {
		log.WithError(err).Error("Register: failed to create user")
		writeError(ctx, http.StatusInternalServerError, "Registration failed")
		return
	}
	token, err := auth.GenerateToken(s.JWTSecret, user.ID.Hex(), user.Email, auth.SESSION_TTL)
	if err != nil {
		log.WithError(err).Error("Register: failed to issue token")
		writeError(ctx, http.StatusInternalServerError, "Registration failed")
		return
	}
	log.Infof("Register: user %s registered with id %s", user.Email, user.ID.Hex())

	if err := s.Email.SendWelcome(c, user.Email, user.DisplayName()); err != nil {
		log.WithError(err).Errorf("Register: failed to send welcome email to %s", user.Email)
	}
	writeJSON(ctx, http.StatusCreated, tokenResponse{Token: token})
}

func (s *Server) Login(ctx *fasthttp.RequestCtx) {
	var req credentials
	if !readJSON(ctx, &req) {
		return
	}
	c, cancel := s.requestContext(ctx)
	defer cancel()

	user, err := s.DB.GetUserByEmail(c, strings.TrimSpace(req.Email))
	if errors.Is(err, mongo.ErrNotFound) {
		log.Warnf("Login: user %s not found", req.Email)
		writeError(ctx, http.StatusUnauthorized, "Invalid credentials")
		return
	}
	if err != nil {
		log.WithError(err).Error("Login: failed to look up user")
		writeError(ctx, http.StatusInternalServerError, "Login failed")
		return
	}
	if user.Password == "" {
		writeError(ctx, http.StatusUnauthorized, "Please use Google login")
		return
	}
	if !auth.CheckPassword(user.Password, req.Password) {
		log.Warnf("Login: invalid password for %s", user.Email)
		writeError(ctx, http.StatusUnauthorized, "Invalid credentials")
		return
	}

	token, err := auth.GenerateToken(s.JWTSecret, user.ID.Hex(), user.Email, auth.SESSION_TTL)
	if err != nil {
		log.WithError(err).Error("Login: failed to issue token")
		writeError(ctx, http.StatusInternalServerError, "Login failed")
		return
	}
	writeJSON(ctx, http.StatusOK, tokenResponse{Token: token})
}

// ForgotPassword stores a one hour reset token on the user and emails the reset link.
func (s *Server) ForgotPassword(ctx *fasthttp.RequestCtx) {
	var req struct {
		Email string `json:"email"`
	}
	if !readJSON(ctx, &req) {
		return
	}
	c, cancel := s.requestContext(ctx)
	defer cancel()

	user, err := s.DB.GetUserByEmail(c, strings.TrimSpace(req.Email))
	if errors.Is(err, mongo.ErrNotFound) {
		writeError(ctx, http.StatusNotFound, "Usuário não encontrado")
		return
	}
	if err != nil {
		log.WithError(err).Error("ForgotPassword: failed to look up user")
		writeError(ctx, http.StatusInternalServerError, "Erro ao enviar email de redefinição")
		return
	}

	token, err := auth.GenerateToken(s.JWTSecret, user.ID.Hex(), user.Email, auth.RESET_TOKEN_TTL)
	if err == nil {
		err = s.DB.SetUserResetToken(c, user.ID, token, s.Now().Add(auth.RESET_TOKEN_TTL))
	}
	if err == nil {
		err = s.Email.SendPasswordReset(c, user.Email, token)
	}
	if err != nil {
		log.WithError(err).Errorf("ForgotPassword: failed to send reset email to %s", user.Email)
		writeError(ctx, http.StatusInternalServerError, "Erro ao enviar email de redefinição")
		return
	}
	writeMessage(ctx, "Email de redefinição de senha enviado")
}

func (s *Server) ResetPassword(ctx *fasthttp.RequestCtx) {
	var req struct {
		Token    string `json:"token"`
		Password string `json:"password"`
	}
	if !readJSON(ctx, &req) {
		return
	}
	if req.Password == "" {
		writeError(ctx, http.StatusBadRequest, "Password is required")
		return
	}
	claims, err := auth.ParseToken(s.JWTSecret, req.Token)
	if err != nil {
		writeError(ctx, http.StatusBadRequest, "Token inválido ou expirado")
		return
	}
	c, cancel := s.requestContext(ctx)
	defer cancel()

	user, err := s.DB.GetUserByResetToken(c, claims.UserID, req.Token)
	if errors.Is(err, mongo.ErrNotFound) {
		writeError(ctx, http.StatusBadRequest, "Token inválido ou expirado")
		return
	}
	if err != nil {
		log.WithError(err).Error("ResetPassword: failed to look up user")
		writeError(ctx, http.StatusInternalServerError, "Erro ao redefinir senha")
		return
	}

	hash, err := auth.HashPassword(req.Password)
	if err == nil {
		err = s.DB.UpdateUserPassword(c, user.ID, hash)
	}
	if err != nil {
		log.WithError(err).Errorf("ResetPassword: failed to update password of %s", user.Email)
		writeError(ctx, http.StatusInternalServerError, "Erro ao redefinir senha")
		return
	}
	writeMessage(ctx, "Senha atualizada com sucesso")
}
