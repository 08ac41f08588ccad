package sqlstore

import (
	"context"

	"github.com/nulzo/chat-router/internal/store/model"
)

type credentialRepo struct {
	db DB
}

func (r *credentialRepo) Get(ctx context.Context, userID, provider string) (*model.Credential, error) {
	var cred model.Credential
	query := r.db.Rebind(`SELECT * FROM credentials WHERE user_id = ? AND provider = ?`)
	if err := r.db.GetContext(ctx, &cred, query, userID, provider); err != nil {
		return nil, translateError(err)
	}
	return &cred, nil
}

func (r *credentialRepo) Upsert(ctx context.Context, cred *model.Credential) error {
	query := `
	INSERT INTO credentials (user_id, provider, encrypted_key, key_prefix, created_at, updated_at)
	VALUES (:user_id, :provider, :encrypted_key, :key_prefix, :created_at, :updated_at)
	ON CONFLICT (user_id, provider) DO UPDATE SET
		encrypted_key = excluded.encrypted_key,
		key_prefix = excluded.key_prefix,
		updated_at = excluded.updated_at`
	_, err := r.db.NamedExecContext(ctx, query, cred)
	return translateError(err)
}

func (r *credentialRepo) Delete(ctx context.Context, userID, provider string) error {
	query := r.db.Rebind(`DELETE FROM credentials WHERE user_id = ? AND provider = ?`)
	res, err := r.db.ExecContext(ctx, query, userID, provider)
	if err != nil {
		return translateError(err)
	}
	return requireAffected(res)
}

func (r *credentialRepo) ListByUser(ctx context.Context, userID string) ([]model.Credential, error) {
	creds := []model.Credential{}
	query := r.db.Rebind(`SELECT * FROM credentials WHERE user_id = ? ORDER BY provider`)
	err := r.db.SelectContext(ctx, &creds, query, userID)
	return creds, translateError(err)
}
