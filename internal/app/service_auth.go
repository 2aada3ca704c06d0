package app

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"

	"treeplant/api/internal/auth"
	"treeplant/api/internal/authpw"
	"treeplant/api/internal/rbac"
	"treeplant/api/internal/session"
	"treeplant/api/internal/store"
	"treeplant/api/internal/util"
)

type Session struct {
	Token        string
	RefreshToken string
	ResidentID   int64
	Email        string
	Role         rbac.Role
	JTI          string
	ExpiresAt    time.Time
}

func (s Session) IsOrganizationMember() bool {
	return s.Role == rbac.RoleOrganizer
}

type LoginResult struct {
	Session              Session
	Resident             store.Resident
	IsOrganizationMember bool
}

func (s *Service) Register(ctx context.Context, req authpw.RegisterRequest) (int64, error) {
	return s.passwords.Register(ctx, req)
}

func (s *Service) Login(ctx context.Context, email, password string) (LoginResult, error) {
	resident, err := s.passwords.Login(ctx, email, password)
	if err != nil {
		return LoginResult{}, err
	}
	sess, err := s.issueSession(ctx, resident)
	if err != nil {
		return LoginResult{}, err
	}
	return LoginResult{Session: sess, Resident: resident, IsOrganizationMember: resident.IsOrganizationMember}, nil
}

// Refresh rotates a refresh token. The resident is reloaded so role changes
// since the last login take effect.
func (s *Service) Refresh(ctx context.Context, refreshToken string) (Session, error) {
	if s.deps.Sessions == nil || strings.TrimSpace(refreshToken) == "" {
		return Session{}, auth.ErrInvalidToken
	}
	tokenHash := auth.HashToken(refreshToken)
	stored, err := s.deps.Sessions.ConsumeRefreshSession(ctx, tokenHash)
	if err != nil {
		if errors.Is(err, session.ErrSessionNotFound) {
			return Session{}, auth.ErrInvalidToken
		}
		return Session{}, err
	}
	resident, err := s.store.GetResidentByID(ctx, stored.ResidentID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return Session{}, auth.ErrInvalidToken
		}
		return Session{}, err
	}
	return s.issueSession(ctx, resident)
}

func (s *Service) issueSession(ctx context.Context, resident store.Resident) (Session, error) {
	now := s.now()
	expiresAt := now.Add(s.cfg.AccessTTL)
	jti := util.NewID("jti")
	role := rbac.For(resident.IsVolunteer, resident.IsOrganizationMember)

	token, err := auth.IssueToken([]byte(s.cfg.JWTSecret), auth.Claims{
		ResidentID: resident.ID,
		Email:      resident.Email,
		Role:       string(role),
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        jti,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	})
	if err != nil {
		return Session{}, err
	}

	sess := Session{
		Token:      token,
		ResidentID: resident.ID,
		Email:      resident.Email,
		Role:       role,
		JTI:        jti,
		ExpiresAt:  expiresAt,
	}
	if s.deps.Sessions == nil {
		return sess, nil
	}

	refresh := util.NewID("rft") + util.NewID("")
	err = s.deps.Sessions.SaveRefreshSession(ctx, auth.HashToken(refresh), session.Session{
		ResidentID: resident.ID,
		Email:      resident.Email,
		Role:       string(role),
		CreatedAt:  now,
	}, now.Add(s.cfg.RefreshTTL))
	if err != nil {
		return Session{}, err
	}
	sess.RefreshToken = refresh
	return sess, nil
}

// SessionFromToken validates an access token. The role is recomputed from
// the stored resident so a promotion or demotion applies immediately.
func (s *Service) SessionFromToken(ctx context.Context, token string) (Session, error) {
	claims, err := auth.ParseToken([]byte(s.cfg.JWTSecret), token)
	if err != nil {
		return Session{}, err
	}
	resident, err := s.store.GetResidentByID(ctx, claims.ResidentID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return Session{}, auth.ErrInvalidToken
		}
		return Session{}, err
	}

	sess := Session{
		Token:      token,
		ResidentID: resident.ID,
		Email:      resident.Email,
		Role:       rbac.For(resident.IsVolunteer, resident.IsOrganizationMember),
		JTI:        claims.ID,
	}
	if claims.ExpiresAt != nil {
		sess.ExpiresAt = claims.ExpiresAt.Time
	}
	return sess, nil
}

// Logout revokes one refresh token, or every refresh token of the resident
// when all is set.
func (s *Service) Logout(ctx context.Context, sess Session, refreshToken string, all bool) error {
	if s.deps.Sessions == nil {
		return nil
	}
	if all && sess.ResidentID > 0 {
		if err := s.deps.Sessions.RevokeResidentSessions(ctx, sess.ResidentID); err != nil {
			s.logger.Warn("revoke resident sessions", zap.Int64("resident_id", sess.ResidentID), zap.Error(err))
		}
		return nil
	}
	if refreshToken != "" {
		if err := s.deps.Sessions.RevokeRefreshSession(ctx, auth.HashToken(refreshToken)); err != nil {
			s.logger.Warn("revoke refresh session", zap.Error(err))
		}
	}
	return nil
}

func (s *Service) Can(role rbac.Role, action rbac.Action) bool {
	return rbac.Can(role, action)
}

// authorizeResident lets residents act on their own records only.
// Organization members may act for anyone.
func authorizeResident(sess Session, residentID int64) error {
	if sess.IsOrganizationMember() || sess.ResidentID == residentID {
		return nil
	}
	return errForbidden
}

func (s *Service) IsOrganizationMember(ctx context.Context, sess Session, residentID int64) (bool, error) {
	if err := requirePositive("user_id", residentID); err != nil {
		return false, err
	}
	if err := authorizeResident(sess, residentID); err != nil {
		return false, err
	}
	return s.store.IsOrganizationMember(ctx, residentID)
}

func parseID(field, raw string) (int64, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, validationError(field, "is required")
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, validationError(field, "must be a positive integer")
	}
	if err := requirePositive(field, id); err != nil {
		return 0, err
	}
	return id, nil
}

var errUnauthorized = domainError(http.StatusUnauthorized, "UNAUTHORIZED", "Unauthorized", nil)
