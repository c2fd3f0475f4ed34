package postgres

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/lib/pq"

	"invitegate/internal/domain"
)

type invitationRepository struct {
	DB *sql.DB
}

func NewInvitationRepository(db *sql.DB) domain.InvitationRepository {
	return &invitationRepository{DB: db}
}

func (r *invitationRepository) Create(ctx context.Context, inv *domain.Invitation) error {
	query := `
		INSERT INTO invitations (email, role, token, status, created_at, created_by)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id
	`
	return r.DB.QueryRowContext(ctx, query, inv.Email, inv.Role, inv.Token, inv.Status, inv.CreatedAt, inv.CreatedBy).
		Scan(&inv.ID)
}

func (r *invitationRepository) GetByToken(ctx context.Context, token string) (*domain.Invitation, error) {
	query := `
		SELECT id, email, role, token, status, created_at, created_by, accepted_at
		FROM invitations
		WHERE token = $1
	`
	inv := &domain.Invitation{}
	var acceptedAt sql.NullTime
	err := r.DB.QueryRowContext(ctx, query, token).
		Scan(&inv.ID, &inv.Email, &inv.Role, &inv.Token, &inv.Status, &inv.CreatedAt, &inv.CreatedBy, &acceptedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrInvitationNotFound
		}
		return nil, err
	}
	if acceptedAt.Valid {
		t := acceptedAt.Time
		inv.AcceptedAt = &t
	}
	return inv, nil
}

func (r *invitationRepository) List(ctx context.Context) ([]*domain.Invitation, error) {
	query := `
		SELECT id, email, role, token, status, created_at, created_by, accepted_at
		FROM invitations
		ORDER BY created_at DESC
	`
	rows, err := r.DB.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	invs := []*domain.Invitation{}
	for rows.Next() {
		inv := &domain.Invitation{}
		var acceptedAt sql.NullTime
		if err := rows.Scan(&inv.ID, &inv.Email, &inv.Role, &inv.Token, &inv.Status, &inv.CreatedAt, &inv.CreatedBy, &acceptedAt); err != nil {
			return nil, err
		}
		if acceptedAt.Valid {
			t := acceptedAt.Time
			inv.AcceptedAt = &t
		}
		invs = append(invs, inv)
	}
	return invs, rows.Err()
}

type invitationRedeemer struct {
	DB *sql.DB
}

// NewInvitationRedeemer returns a domain.InvitationRedeemer that performs the
// status flip and the user insert in a single transaction. The status update
// is conditional on the invitation still being pending, so concurrent
// redemptions of the same token cannot both succeed.
func NewInvitationRedeemer(db *sql.DB) domain.InvitationRedeemer {
	return &invitationRedeemer{DB: db}
}

func (r *invitationRedeemer) Redeem(ctx context.Context, invitationID string, acceptedAt time.Time, user *domain.User) error {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `
		UPDATE invitations
		SET status = $1, accepted_at = $2
		WHERE id = $3 AND status = $4
	`, domain.InvitationAccepted, acceptedAt, invitationID, domain.InvitationPending)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return domain.ErrInvitationUsed
	}

	err = tx.QueryRowContext(ctx, `
		INSERT INTO users (email, name, role, password_hash, salt, avatar_url, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id
	`, user.Email, user.Name, user.Role, user.PasswordHash, user.Salt, user.AvatarURL, user.CreatedAt).Scan(&user.ID)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
			return domain.ErrDuplicateEmail
		}
		return err
	}

	return tx.Commit()
}
