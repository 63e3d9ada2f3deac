package service

import (
	"context"
	"fmt"
	"time"

	"tablepos/internal/config"
	"tablepos/internal/dto"
	"tablepos/internal/model"
	"tablepos/internal/repository"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

const bcryptCost = 12

type AuthService interface {
	Login(ctx context.Context, req dto.LoginRequest) (*dto.LoginResponse, error)
	Refresh(ctx context.Context, refreshToken string) (*dto.LoginResponse, error)
	CreateStaff(ctx context.Context, sess Session, req dto.CreateStaffRequest) (*dto.StaffResponse, error)
	ListStaff(ctx context.Context, sess Session, includeInactive bool) ([]dto.StaffResponse, error)
	UpdateStaff(ctx context.Context, sess Session, id uuid.UUID, req dto.UpdateStaffRequest) (*dto.StaffResponse, error)
	DeactivateStaff(ctx context.Context, sess Session, id uuid.UUID) error
}

type authService struct {
	repo repository.StaffRepository
	cfg  *config.Config
}

func NewAuthService(repo repository.StaffRepository, cfg *config.Config) AuthService {
	return &authService{repo: repo, cfg: cfg}
}

func mapStaff(s *model.Staff) dto.StaffResponse {
	return dto.StaffResponse{
		ID:           s.ID.String(),
		RestaurantID: s.RestaurantID.String(),
		Username:     s.Username,
		Name:         s.Name,
		Email:        s.Email,
		Role:         s.Role,
		Active:       s.Active,
	}
}

func (s *authService) Login(ctx context.Context, req dto.LoginRequest) (*dto.LoginResponse, error) {
	user, err := s.repo.FindByUsername(ctx, req.Username)
	if err != nil || !user.Active {
		return nil, ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		return nil, ErrInvalidCredentials
	}
	return s.issue(user)
}

func (s *authService) Refresh(ctx context.Context, refreshToken string) (*dto.LoginResponse, error) {
	token, err := jwt.Parse(refreshToken, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return []byte(s.cfg.JWTSecret), nil
	})
	if err != nil || !token.Valid {
		return nil, fmt.Errorf("%w: refresh token invalid or expired", ErrInvalidCredentials)
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, ErrInvalidCredentials
	}
	if typ, _ := claims["typ"].(string); typ != "refresh" {
		return nil, fmt.Errorf("%w: not a refresh token", ErrInvalidCredentials)
	}
	userIDStr, _ := claims["user_id"].(string)
	uid, err := uuid.Parse(userIDStr)
	if err != nil {
		return nil, ErrInvalidCredentials
	}

	user, err := s.repo.FindByID(ctx, uid)
	if err != nil || !user.Active {
		return nil, ErrInvalidCredentials
	}
	return s.issue(user)
}

func (s *authService) issue(user *model.Staff) (*dto.LoginResponse, error) {
	accessToken, err := s.generateToken(user, "access", time.Duration(s.cfg.JWTExpirationHours)*time.Hour)
	if err != nil {
		return nil, err
	}
	refreshToken, err := s.generateToken(user, "refresh", time.Duration(s.cfg.JWTRefreshHours)*time.Hour)
	if err != nil {
		return nil, err
	}
	return &dto.LoginResponse{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		TokenType:    "bearer",
		ExpiresIn:    s.cfg.JWTExpirationHours * 3600,
		User:         mapStaff(user),
	}, nil
}

func (s *authService) CreateStaff(ctx context.Context, sess Session, req dto.CreateStaffRequest) (*dto.StaffResponse, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcryptCost)
	if err != nil {
		return nil, err
	}
	user := &model.Staff{
		RestaurantID: sess.RestaurantID,
		Username:     req.Username,
		Name:         req.Name,
		Email:        req.Email,
		PasswordHash: string(hash),
		Role:         req.Role,
		Active:       true,
	}
	if err := s.repo.Create(ctx, user); err != nil {
		return nil, err
	}
	resp := mapStaff(user)
	return &resp, nil
}

func (s *authService) ListStaff(ctx context.Context, sess Session, includeInactive bool) ([]dto.StaffResponse, error) {
	users, err := s.repo.List(ctx, sess.RestaurantID, includeInactive)
	if err != nil {
		return nil, err
	}
	resp := make([]dto.StaffResponse, len(users))
	for i := range users {
		resp[i] = mapStaff(&users[i])
	}
	return resp, nil
}

func (s *authService) findOwn(ctx context.Context, sess Session, id uuid.UUID) (*model.Staff, error) {
	user, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if isNotFound(err) {
			return nil, ErrStaffNotFound
		}
		return nil, err
	}
	if user.RestaurantID != sess.RestaurantID {
		return nil, ErrStaffNotFound
	}
	return user, nil
}

func (s *authService) UpdateStaff(ctx context.Context, sess Session, id uuid.UUID, req dto.UpdateStaffRequest) (*dto.StaffResponse, error) {
	user, err := s.findOwn(ctx, sess, id)
	if err != nil {
		return nil, err
	}
	if req.Name != "" {
		user.Name = req.Name
	}
	if req.Email != nil {
		user.Email = req.Email
	}
	if req.Role != "" {
		user.Role = req.Role
	}
	if req.Active != nil {
		user.Active = *req.Active
	}
	if req.Password != "" {
		hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcryptCost)
		if err != nil {
			return nil, err
		}
		user.PasswordHash = string(hash)
	}
	if err := s.repo.Update(ctx, user); err != nil {
		return nil, err
	}
	resp := mapStaff(user)
	return &resp, nil
}

func (s *authService) DeactivateStaff(ctx context.Context, sess Session, id uuid.UUID) error {
	if id == sess.UserID {
		return ErrSelfDeactivate
	}
	if _, err := s.findOwn(ctx, sess, id); err != nil {
		return err
	}
	return s.repo.SoftDelete(ctx, sess.RestaurantID, id)
}

func (s *authService) generateToken(user *model.Staff, typ string, duration time.Duration) (string, error) {
	claims := jwt.MapClaims{
		"user_id":       user.ID.String(),
		"username":      user.Username,
		"name":          user.Name,
		"role":          user.Role,
		"restaurant_id": user.RestaurantID.String(),
		"typ":           typ,
		"exp":           time.Now().Add(duration).Unix(),
		"iat":           time.Now().Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(s.cfg.JWTSecret))
}
