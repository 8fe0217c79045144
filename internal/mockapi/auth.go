package mockapi

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/MrEthical07/consoleauth/console"
	"github.com/MrEthical07/consoleauth/internal"
	"github.com/MrEthical07/consoleauth/internal/rate"
	"github.com/MrEthical07/consoleauth/middleware"
	"github.com/MrEthical07/consoleauth/password"
	"github.com/MrEthical07/consoleauth/session"
)

type loginBody struct {
	Account  string `json:"account"`
	Password string `json:"password"`
}

type tokenData struct {
	AccessToken string `json:"accessToken"`
}

func (s *Server) login(w http.ResponseWriter, r *http.Request) {
	s.faults.loginCalls.Add(1)

	var in loginBody
	if !decodeBody(w, r, &in) {
		return
	}
	in.Account = strings.TrimSpace(in.Account)
	if in.Account == "" || in.Password == "" {
		middleware.WriteError(w, http.StatusBadRequest, "account and password are required")
		return
	}

	ctx := r.Context()
	ip := clientIP(r)
	if err := s.limiter.CheckLogin(ctx, in.Account, ip); err != nil {
		if errors.Is(err, rate.ErrRateLimited) {
			middleware.WriteError(w, http.StatusTooManyRequests, "too many login attempts, try again later")
			return
		}
		s.unavailable(w, "login limiter", err)
		return
	}

	user, err := s.dir.UserByAccount(ctx, in.Account)
	if err != nil && !errors.Is(err, ErrNotFound) {
		s.writeStoreError(w, r, err)
		return
	}
	ok := false
	if err == nil {
		ok, err = s.hasher.Verify(in.Password, user.PasswordHash)
		if err != nil {
			s.logger.Warn("stored hash unreadable", "account", in.Account, "error", err)
			ok = false
		}
	}
	if !ok {
		if err := s.limiter.RecordLoginFailure(ctx, in.Account, ip); err != nil {
			s.logger.Warn("record login failure", "error", err)
		}
		middleware.WriteError(w, http.StatusUnauthorized, "invalid account or password")
		return
	}
	if user.Status != "1" {
		middleware.WriteError(w, http.StatusForbidden, "account disabled")
		return
	}
	if err := s.limiter.ResetLogin(ctx, in.Account, ip); err != nil {
		s.logger.Warn("reset login limiter", "error", err)
	}
	s.upgradeHash(r, user, in.Password)

	roles, err := s.dir.RoleKeys(ctx, user.RolePublicIDs)
	if err != nil {
		s.writeStoreError(w, r, err)
		return
	}

	sid, err := internal.NewSessionID()
	if err != nil {
		s.unavailable(w, "session id", err)
		return
	}
	refresh, err := internal.NewRefreshToken(sid)
	if err != nil {
		s.unavailable(w, "refresh token", err)
		return
	}
	now := s.now()
	sess := &session.Session{
		SessionID:   sid.String(),
		UserID:      user.PublicID,
		Account:     user.Account,
		Roles:       roles,
		RefreshHash: refresh.Hash(),
		CreatedAt:   now.Unix(),
		ExpiresAt:   now.Add(s.cfg.SessionTTL).Unix(),
	}
	if err := s.sessions.Save(ctx, sess); err != nil {
		s.unavailable(w, "save session", err)
		return
	}

	access, err := s.tokens.CreateAccess(user.PublicID, sess.SessionID, user.Account, roles)
	if err != nil {
		s.unavailable(w, "issue access token", err)
		return
	}

	s.logger.Info("login", "account", user.Account, "session", sess.SessionID)
	s.setRefreshCookie(w, refresh.Encode())
	middleware.WriteData(w, s.cfg.LoginStatus, tokenData{AccessToken: access})
}

// upgradeHash re-hashes a password stored with weaker parameters. Failures
// are logged; the login itself has already succeeded.
func (s *Server) upgradeHash(r *http.Request, user userRecord, plain string) {
	stale, err := s.hasher.NeedsRehash(user.PasswordHash)
	if err != nil || !stale {
		return
	}
	hash, err := s.hasher.Hash(plain)
	if err == nil {
		err = s.dir.SetPassword(r.Context(), user.PublicID, hash)
	}
	if err != nil {
		s.logger.Warn("password rehash", "account", user.Account, "error", err)
	}
}

func (s *Server) refresh(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	fail, err := s.faults.enterRefresh(ctx)
	if err != nil {
		return
	}
	if fail {
		middleware.WriteError(w, http.StatusUnauthorized, "refresh rejected (injected)")
		return
	}

	cookie, err := r.Cookie(s.cfg.CookieName)
	if err != nil || cookie.Value == "" {
		middleware.WriteError(w, http.StatusUnauthorized, "missing refresh token")
		return
	}
	presented, err := internal.ParseRefreshToken(cookie.Value)
	if err != nil {
		s.clearRefreshCookie(w)
		middleware.WriteError(w, http.StatusUnauthorized, "invalid refresh token")
		return
	}
	sid := presented.SessionID.String()

	if err := s.limiter.AllowRefresh(ctx, sid); err != nil {
		if errors.Is(err, rate.ErrRateLimited) {
			middleware.WriteError(w, http.StatusTooManyRequests, "too many refresh attempts")
			return
		}
		s.unavailable(w, "refresh limiter", err)
		return
	}

	next, err := internal.NewRefreshToken(presented.SessionID)
	if err != nil {
		s.unavailable(w, "refresh token", err)
		return
	}
	sess, err := s.sessions.RotateRefreshHash(ctx, sid, presented.Hash(), next.Hash())
	switch {
	case err == nil:
	case errors.Is(err, session.ErrRefreshHashMismatch):
		s.logger.Warn("refresh token reuse, session revoked", "session", sid)
		s.clearRefreshCookie(w)
		middleware.WriteError(w, http.StatusUnauthorized, "refresh token reused, please log in again")
		return
	case errors.Is(err, session.ErrRefreshSessionNotFound),
		errors.Is(err, session.ErrRefreshSessionExpired),
		errors.Is(err, session.ErrRefreshSessionCorrupt):
		s.clearRefreshCookie(w)
		middleware.WriteError(w, http.StatusUnauthorized, "session expired")
		return
	default:
		s.unavailable(w, "rotate session", err)
		return
	}

	user, err := s.dir.UserByID(ctx, sess.UserID)
	if err != nil || user.Status != "1" {
		_ = s.sessions.Delete(ctx, sid)
		s.clearRefreshCookie(w)
		middleware.WriteError(w, http.StatusUnauthorized, "account unavailable")
		return
	}
	roles, err := s.dir.RoleKeys(ctx, user.RolePublicIDs)
	if err != nil {
		s.writeStoreError(w, r, err)
		return
	}

	access, err := s.tokens.CreateAccess(user.PublicID, sid, user.Account, roles)
	if err != nil {
		s.unavailable(w, "issue access token", err)
		return
	}
	s.setRefreshCookie(w, next.Encode())
	middleware.WriteData(w, http.StatusOK, tokenData{AccessToken: access})
}

// logout revokes the session named by the refresh cookie, or by the bearer
// token when the cookie is gone. It always succeeds.
func (s *Server) logout(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	sid := ""
	if c, err := r.Cookie(s.cfg.CookieName); err == nil {
		if t, err := internal.ParseRefreshToken(c.Value); err == nil {
			sid = t.SessionID.String()
		}
	}
	if sid == "" {
		if h := r.Header.Get("Authorization"); strings.HasPrefix(h, "Bearer ") {
			if claims, err := s.tokens.ParseAccess(strings.TrimPrefix(h, "Bearer ")); err == nil {
				sid = claims.SID
			}
		}
	}
	if sid != "" {
		if err := s.sessions.Delete(ctx, sid); err != nil {
			s.logger.Warn("logout", "session", sid, "error", err)
		}
	}
	s.clearRefreshCookie(w)
	middleware.WriteData(w, http.StatusOK, nil)
}

func (s *Server) register(w http.ResponseWriter, r *http.Request) {
	var in console.RegisterInput
	if !decodeBody(w, r, &in) {
		return
	}
	in.Account = strings.TrimSpace(in.Account)
	if in.Account == "" {
		writeBusiness(w, http.StatusBadRequest, "account is required")
		return
	}
	if err := password.CheckPolicy(in.Password); err != nil {
		writeBusiness(w, http.StatusBadRequest, err.Error())
		return
	}

	ctx := r.Context()
	var roleIDs []string
	roles, err := s.dir.ListRoles(ctx)
	if err != nil {
		s.writeStoreError(w, r, err)
		return
	}
	for _, role := range roles {
		if role.RoleKey == s.cfg.DefaultRole {
			roleIDs = append(roleIDs, role.PublicID)
		}
	}

	hash, err := s.hasher.Hash(in.Password)
	if err != nil {
		s.unavailable(w, "hash password", err)
		return
	}
	name := in.Name
	if name == "" {
		name = in.Account
	}
	_, err = s.dir.CreateUser(ctx, console.User{
		Account:       in.Account,
		Name:          name,
		Email:         in.Email,
		Sex:           in.Sex,
		RolePublicIDs: roleIDs,
	}, hash)
	if err != nil {
		s.writeStoreError(w, r, err)
		return
	}
	s.logger.Info("register", "account", in.Account)
	middleware.WriteData(w, http.StatusOK, nil)
}

func (s *Server) unavailable(w http.ResponseWriter, op string, err error) {
	s.logger.Error(op, "error", err)
	middleware.WriteError(w, http.StatusServiceUnavailable, "service unavailable")
}

/*
====================================
COOKIES
*/

func (s *Server) setRefreshCookie(w http.ResponseWriter, value string) {
	http.SetCookie(w, &http.Cookie{
		Name:     s.cfg.CookieName,
		Value:    value,
		Path:     "/",
		MaxAge:   int(s.cfg.SessionTTL / time.Second),
		HttpOnly: true,
		Secure:   s.cfg.SecureCookie,
		SameSite: http.SameSiteLaxMode,
	})
}

func (s *Server) clearRefreshCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     s.cfg.CookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   s.cfg.SecureCookie,
		SameSite: http.SameSiteLaxMode,
	})
}
