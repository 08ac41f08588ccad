package sqlstore

import (
	"context"

	"github.com/nulzo/chat-router/internal/store/model"
)

type integrationRepo struct {
	db DB
}

func (r *integrationRepo) GetByID(ctx context.Context, userID, id string) (*model.Integration, error) {
	var integ model.Integration
	query := r.db.Rebind(`SELECT * FROM integrations WHERE user_id = ? AND id = ?`)
	if err := r.db.GetContext(ctx, &integ, query, userID, id); err != nil {
		return nil, translateError(err)
	}
	return &integ, nil
}

func (r *integrationRepo) GetByProviderID(ctx context.Context, userID, providerID string) (*model.Integration, error) {
	var integ model.Integration
	query := r.db.Rebind(`SELECT * FROM integrations WHERE user_id = ? AND provider_id = ?`)
	if err := r.db.GetContext(ctx, &integ, query, userID, providerID); err != nil {
		return nil, translateError(err)
	}
	return &integ, nil
}

func (r *integrationRepo) Create(ctx context.Context, integ *model.Integration) error {
	query := `
	INSERT INTO integrations (
		id, user_id, name, provider_id, base_url, api_shape, fallbacks_enc, is_active, created_at, updated_at
	) VALUES (
		:id, :user_id, :name, :provider_id, :base_url, :api_shape, :fallbacks_enc, :is_active, :created_at, :updated_at
	)`
	_, err := r.db.NamedExecContext(ctx, query, integ)
	return translateError(err)
}

func (r *integrationRepo) Update(ctx context.Context, integ *model.Integration) error {
	query := `
	UPDATE integrations SET
		name = :name,
		provider_id = :provider_id,
		base_url = :base_url,
		api_shape = :api_shape,
		fallbacks_enc = :fallbacks_enc,
		is_active = :is_active,
		updated_at = :updated_at
	WHERE id = :id AND user_id = :user_id`
	res, err := r.db.NamedExecContext(ctx, query, integ)
	if err != nil {
		return translateError(err)
	}
	return requireAffected(res)
}

func (r *integrationRepo) Delete(ctx context.Context, userID, id string) error {
	query := r.db.Rebind(`DELETE FROM integrations WHERE user_id = ? AND id = ?`)
	res, err := r.db.ExecContext(ctx, query, userID, id)
	if err != nil {
		return translateError(err)
	}
	return requireAffected(res)
}

func (r *integrationRepo) ListByUser(ctx context.Context, userID string) ([]model.Integration, error) {
	integs := []model.Integration{}
	query := r.db.Rebind(`SELECT * FROM integrations WHERE user_id = ? ORDER BY created_at, name`)
	err := r.db.SelectContext(ctx, &integs, query, userID)
	return integs, translateError(err)
}
