package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"video_transcode_service/internal/member/domain"
	"video_transcode_service/internal/member/repository"
	"video_transcode_service/pkg/database"
	"video_transcode_service/pkg/encrypt"
	errprocess "video_transcode_service/pkg/err"
	"video_transcode_service/pkg/logger"
	"video_transcode_service/pkg/token"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// MemberUseCase 這裡封裝了對外提供的應用服務
type MemberUseCase interface {
	Register(ctx context.Context, username, password string) (*domain.Member, error)
	FindMember(ctx context.Context, param *domain.MemberQuery) (*domain.Member, error)
	Login(ctx context.Context, username, password string) (string, error)
	Logout(ctx context.Context, token string) error
	ValidateSession(ctx context.Context, memberID, token string) error
}

type memberUseCase struct {
	memberRepo   repository.MemberRepository
	sessionTTL   time.Duration
	redisRepo    database.RedisRepository[domain.MemberSession]
	hashPassword func(string) (string, error)
}

// 讓測試可以固定時間
var timeNow = time.Now

// NewMemberUseCase 建立一個新的 MemberUseCase
func NewMemberUseCase(memberRepo repository.MemberRepository,
	sessionTTL time.Duration,
	redisRepo database.RedisRepository[domain.MemberSession],
	hashPassword func(string) (string, error),
) MemberUseCase {
	if hashPassword == nil {
		hashPassword = encrypt.HashPassword
	}
	return &memberUseCase{
		memberRepo:   memberRepo,
		sessionTTL:   sessionTTL,
		redisRepo:    redisRepo,
		hashPassword: hashPassword,
	}
}

// Register 建立會員, username 不可重複
func (m *memberUseCase) Register(ctx context.Context, username, password string) (*domain.Member, error) {
	if err := domain.ValidateUsername(username); err != nil {
		return nil, err
	}
	if err := encrypt.ValidatePasswordStrength(password); err != nil {
		return nil, err
	}

	// 檢查 username 是否已存在
	if _, err := m.memberRepo.FindByMember(ctx, &domain.MemberQuery{Username: &username}); err == nil {
		return nil, domain.ErrUsernameTaken
	} else if !errors.Is(err, domain.ErrMemberNotFound) {
		return nil, errprocess.Set(fmt.Sprintf("member[%s] 查詢會員失敗 : %v", username, err))
	}

	pw, err := m.hashPassword(password)
	if err != nil {
		return nil, err
	}

	member := &domain.Member{
		MemberID: uuid.New().String(),
		Username: username,
		Password: pw,
		Status:   domain.MemberStatusOffLine,
	}
	if err := m.memberRepo.CreateUser(ctx, member); err != nil {
		return nil, err
	}

	logger.Log.Info("member registered", zap.String("member_id", member.MemberID), zap.String("username", username))
	return member, nil
}

// FindMember 依條件尋找使用者
func (m *memberUseCase) FindMember(ctx context.Context, param *domain.MemberQuery) (*domain.Member, error) {
	return m.memberRepo.FindByMember(ctx, param)
}

// Login 驗證密碼, 簽發 token 並寫入 redis session
func (m *memberUseCase) Login(ctx context.Context, username, password string) (string, error) {
	member, err := m.memberRepo.FindByMember(ctx, &domain.MemberQuery{Username: &username})
	if err != nil {
		logger.Log.Warn("login unknown username", zap.String("username", username))
		return "", domain.ErrInvalidCredentials
	}

	if err = member.IsPasswordMatch(password); err != nil {
		logger.Log.Warn("login password mismatch", zap.String("username", username))
		return "", domain.ErrInvalidCredentials
	}
	if member.Status == domain.MemberStatusBan {
		return "", domain.ErrMemberBanned
	}

	t, err := token.GenerateJWTWrapper(member.MemberID, string(token.RoleMember))
	if err != nil {
		return "", errprocess.Set(fmt.Sprintf("member[%s] 產生 token 失敗 : %v", member.MemberID, err))
	}

	now := timeNow()
	session := domain.MemberSession{
		Token:        t,
		MemberID:     member.MemberID,
		CreatedAt:    now,
		LastActivity: now,
		ExpiredAt:    now.Add(m.sessionTTL),
	}
	if err := m.redisRepo.Set(ctx, member.MemberID, session, m.sessionTTL); err != nil {
		return "", errprocess.Set(fmt.Sprintf("member[%s] 寫入 session 失敗 : %v", member.MemberID, err))
	}

	member.Status = domain.MemberStatusOnLine
	if err := m.memberRepo.UpdateMemberStatus(ctx, member); err != nil {
		return "", err
	}
	return t, nil
}

// Logout 刪除 session 並將會員設為離線
func (m *memberUseCase) Logout(ctx context.Context, t string) error {
	tokenInfo, err := token.ParseJWTWrapper(t)
	if err != nil {
		logger.Log.Error("Logout err :", zap.String("err", err.Error()))
		return err
	}
	logger.Log.Debug("logout", zap.String("member_id", tokenInfo.MemberID))

	if err := m.redisRepo.Del(ctx, tokenInfo.MemberID); err != nil {
		return errprocess.Set(fmt.Sprintf("member[%s] 刪除 session 失敗 : %v", tokenInfo.MemberID, err))
	}

	return m.memberRepo.UpdateMemberStatus(ctx, &domain.Member{
		MemberID: tokenInfo.MemberID,
		Status:   domain.MemberStatusOffLine,
	})
}

// ValidateSession the token must be the live session of memberID. Used by the JWT middleware.
func (m *memberUseCase) ValidateSession(ctx context.Context, memberID, t string) error {
	session, err := m.redisRepo.Get(ctx, memberID)
	if err != nil {
		if errors.Is(err, database.ErrCacheMiss) {
			return domain.ErrSessionNotFound
		}
		return err
	}
	if session.Token != t || session.IsExpired(timeNow()) {
		return domain.ErrSessionNotFound
	}
	return nil
}
