package service

import (
	"fmt"
	"strings"

	"github.com/google/uuid"

	apperrors "github.com/techjoejoe/Engagesuite-sub001/internal/pkg/errors"
	"github.com/techjoejoe/Engagesuite-sub001/pkg/auth"
)

// Ограничение длины отображаемого имени
const maxNicknameLen = 30

// GuestIdentity - выданная гостевая идентичность
type GuestIdentity struct {
	ParticipantID string `json:"participant_id"`
	Nickname      string `json:"nickname"`
	Role          string `json:"role"`
	Token         string `json:"token"`
}

// IdentityService выдает гостевые идентичности: участник входит в игру
// по нику, без регистрации. Идентичность - подписанный JWT с ролью.
type IdentityService struct {
	jwtService *auth.JWTService
}

// NewIdentityService создает новый сервис идентичности
func NewIdentityService(jwtService *auth.JWTService) *IdentityService {
	return &IdentityService{jwtService: jwtService}
}

// IssueGuest выдает новую гостевую идентичность с указанной ролью
func (s *IdentityService) IssueGuest(nickname, role string) (*GuestIdentity, error) {
	nickname = strings.TrimSpace(nickname)
	if nickname == "" {
		return nil, fmt.Errorf("%w: nickname is required", apperrors.ErrValidation)
	}
	if len([]rune(nickname)) > maxNicknameLen {
		return nil, fmt.Errorf("%w: nickname is limited to %d characters", apperrors.ErrValidation, maxNicknameLen)
	}
	if role == "" {
		role = auth.RoleParticipant
	}
	if role != auth.RoleHost && role != auth.RoleParticipant {
		return nil, fmt.Errorf("%w: unknown role %q", apperrors.ErrValidation, role)
	}

	participantID := uuid.NewString()
	token, err := s.jwtService.GenerateToken(participantID, nickname, role)
	if err != nil {
		return nil, fmt.Errorf("failed to issue identity: %w", err)
	}

	return &GuestIdentity{
		ParticipantID: participantID,
		Nickname:      nickname,
		Role:          role,
		Token:         token,
	}, nil
}

// Verify проверяет токен и возвращает claims
func (s *IdentityService) Verify(token string) (*auth.JWTCustomClaims, error) {
	claims, err := s.jwtService.ParseToken(token)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", apperrors.ErrUnauthorized, err)
	}
	return claims, nil
}
