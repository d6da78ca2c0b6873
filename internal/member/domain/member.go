package domain

import (
	"errors"
	"regexp"
	"time"

	"video_transcode_service/pkg/encrypt"
)

// MemberStatus 用來表示使用者狀態
type MemberStatus int

// 状态: 0=offline, 1=online, 2=ban
const (
	// MemberStatusOffLine 使用者離線
	MemberStatusOffLine MemberStatus = iota
	// MemberStatusOnLine 使用者在線
	MemberStatusOnLine
	// MemberStatusBan 使用者被封鎖
	MemberStatusBan
)

// Member errors
var (
	ErrUsernameTaken      = errors.New("username already exists")
	ErrMemberNotFound     = errors.New("member not found")
	ErrInvalidCredentials = errors.New("invalid username or password")
	ErrInvalidUsername    = errors.New("username must be 3-32 letters, digits, '_', '-' or '.'")
	ErrMemberBanned       = errors.New("member is banned")
	ErrSessionNotFound    = errors.New("session not found")
)

var usernamePattern = regexp.MustCompile(`^[a-zA-Z0-9_.-]{3,32}$`)

// Member 用來表示使用者
type Member struct {
	ID       int64
	MemberID string
	Username string
	Password string
	Status   MemberStatus
}

// MemberSession 用來表示使用者的 Session, 存在 redis
type MemberSession struct {
	Token        string    `json:"Token"`
	MemberID     string    `json:"MemberID"`
	CreatedAt    time.Time `json:"CreatedAt"`
	LastActivity time.Time `json:"LastActivity"`
	ExpiredAt    time.Time `json:"ExpiredAt"`
}

// ValidateUsername check username format
func ValidateUsername(username string) error {
	if !usernamePattern.MatchString(username) {
		return ErrInvalidUsername
	}
	return nil
}

// IsPasswordMatch 密碼驗證
func (m *Member) IsPasswordMatch(inputPwd string) error {
	return encrypt.CheckPassword(m.Password, inputPwd)
}

// IsExpired 檢查 Session 是否已過期
func (s *MemberSession) IsExpired(now time.Time) bool {
	return now.After(s.ExpiredAt)
}

// MemberQuery join conditions are used to query members
type MemberQuery struct {
	ID       *int64  `db:"id"`
	MemberID *string `db:"member_id"`
	Username *string `db:"username"`
}
