package sqlstore

import (
	"context"

	"github.com/nulzo/chat-router/internal/store/model"
)

type routeRepo struct {
	db DB
}

func (r *routeRepo) Log(ctx context.Context, logs ...*model.RouteLog) error {
	query := `
	INSERT INTO route_logs (
		id, user_id, provider_id, model, resolved_model,
		outcome, attempts, latency_ms, error_message, created_at
	) VALUES (
		:id, :user_id, :provider_id, :model, :resolved_model,
		:outcome, :attempts, :latency_ms, :error_message, :created_at
	)`
	for _, l := range logs {
		if _, err := r.db.NamedExecContext(ctx, query, l); err != nil {
			return translateError(err)
		}
	}
	return nil
}

func (r *routeRepo) GetRecent(ctx context.Context, userID string, limit int) ([]model.RouteLog, error) {
	logs := []model.RouteLog{}
	query := r.db.Rebind(`SELECT * FROM route_logs WHERE user_id = ? ORDER BY created_at DESC LIMIT ?`)
	err := r.db.SelectContext(ctx, &logs, query, userID, limit)
	return logs, translateError(err)
}

func (r *routeRepo) GetStats(ctx context.Context, userID string) ([]model.RouteStats, error) {
	stats := []model.RouteStats{}
	query := r.db.Rebind(`
		SELECT
			provider_id,
			outcome,
			COUNT(*) AS total_requests,
			AVG(latency_ms) AS avg_latency
		FROM route_logs
		WHERE user_id = ?
		GROUP BY provider_id, outcome
		ORDER BY provider_id, outcome`)
	err := r.db.SelectContext(ctx, &stats, query, userID)
	return stats, translateError(err)
}
