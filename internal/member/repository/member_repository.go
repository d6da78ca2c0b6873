package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"video_transcode_service/internal/member/domain"
)

const memberSchema = `
CREATE TABLE IF NOT EXISTS member (
	id         BIGSERIAL PRIMARY KEY,
	member_id  TEXT NOT NULL UNIQUE,
	username   TEXT NOT NULL UNIQUE,
	password   TEXT NOT NULL,
	status     INT NOT NULL DEFAULT 0,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now()
)`

// MemberRepository definition get Member info
type MemberRepository interface {
	Migrate(ctx context.Context) error
	CreateUser(ctx context.Context, user *domain.Member) error
	UpdateMemberStatus(ctx context.Context, user *domain.Member) error
	FindByMember(ctx context.Context, memberQuery *domain.MemberQuery) (*domain.Member, error)
}

type memberRepository struct {
	db *pgxpool.Pool
}

// NewMemberRepository create a MemberRepository
func NewMemberRepository(db *pgxpool.Pool) MemberRepository {
	return &memberRepository{db: db}
}

// Migrate 建立 member 資料表, videos 透過 member.id 關聯
func (r *memberRepository) Migrate(ctx context.Context) error {
	_, err := r.db.Exec(ctx, memberSchema)
	return err
}

func (r *memberRepository) CreateUser(ctx context.Context, member *domain.Member) error {
	return r.db.QueryRow(ctx,
		"INSERT INTO member(member_id, username, password, status) VALUES ($1, $2, $3, $4) RETURNING id",
		member.MemberID, member.Username, member.Password, member.Status,
	).Scan(&member.ID)
}

func (r *memberRepository) UpdateMemberStatus(ctx context.Context, member *domain.Member) error {
	_, err := r.db.Exec(ctx, "UPDATE member SET status = $1 WHERE member_id = $2", member.Status, member.MemberID)
	return err
}

func (r *memberRepository) FindByMember(ctx context.Context, memberQuery *domain.MemberQuery) (*domain.Member, error) {
	queryStr, params := buildMemberQuery(memberQuery)

	row := r.db.QueryRow(ctx, queryStr, params...)
	var member domain.Member
	err := row.Scan(&member.ID, &member.MemberID, &member.Username, &member.Password, &member.Status)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrMemberNotFound
		}
		return nil, err
	}
	return &member, nil
}

func buildMemberQuery(memberQuery *domain.MemberQuery) (string, []interface{}) {
	queryStr := "SELECT id, member_id, username, password, status FROM member WHERE 1=1"
	params := []interface{}{}
	paramCount := 1

	if memberQuery.Username != nil {
		queryStr += fmt.Sprintf(" AND username = $%d", paramCount)
		params = append(params, *memberQuery.Username)
		paramCount++
	}
	if memberQuery.MemberID != nil {
		queryStr += fmt.Sprintf(" AND member_id = $%d", paramCount)
		params = append(params, *memberQuery.MemberID)
		paramCount++
	}
	if memberQuery.ID != nil {
		queryStr += fmt.Sprintf(" AND id = $%d", paramCount)
		params = append(params, *memberQuery.ID)
	}
	return queryStr, params
}
