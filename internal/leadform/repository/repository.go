package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"skaleclub_backend/platform/apperr"
)

const (
	leadNotFoundMessage   = "lead not found"
	configNotFoundMessage = "lead form config not stored"
	leadClosedMessage     = "lead is closed and no longer accepts form progress"
)

// legacyScoreColumns maps breakdown keys onto their named form_leads columns.
// Keys not listed here live only in score_breakdown.
var legacyScoreColumns = []struct {
	Key    string
	Column string
}{
	{"scoreLocalizacao", "score_localizacao"},
	{"scoreTipoNegocio", "score_tipo_negocio"},
	{"scoreTempoNegocio", "score_tempo_negocio"},
	{"scoreExperiencia", "score_experiencia"},
	{"scoreOrcamento", "score_orcamento"},
	{"scoreDesafio", "score_desafio"},
	{"scoreDisponibilidade", "score_disponibilidade"},
}

const leadColumns = `id, session_id, answers, nome, email, telefone, score_total, score_breakdown,
	classification, status, form_completed, notification_sent, created_at, updated_at, completed_at`

const getFormConfigQuery = `
	SELECT value, updated_by, updated_at
	FROM lead_form_settings
	WHERE key = $1`

const saveFormConfigQuery = `
	INSERT INTO lead_form_settings (key, value, updated_by, updated_at)
	VALUES ($1, $2, $3, now())
	ON CONFLICT (key) DO UPDATE SET
		value = EXCLUDED.value,
		updated_by = EXCLUDED.updated_by,
		updated_at = now()
	RETURNING value, updated_by, updated_at`

const upsertLeadQuery = `
	INSERT INTO form_leads (
		id, session_id, answers, nome, email, telefone, score_total,
		score_localizacao, score_tipo_negocio, score_tempo_negocio, score_experiencia,
		score_orcamento, score_desafio, score_disponibilidade,
		score_breakdown, classification, form_completed, completed_at
	)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17,
		CASE WHEN $17 THEN now() END)
	ON CONFLICT (session_id) DO UPDATE SET
		answers = form_leads.answers || EXCLUDED.answers,
		nome = COALESCE(EXCLUDED.nome, form_leads.nome),
		email = COALESCE(EXCLUDED.email, form_leads.email),
		telefone = COALESCE(EXCLUDED.telefone, form_leads.telefone),
		score_total = EXCLUDED.score_total,
		score_localizacao = EXCLUDED.score_localizacao,
		score_tipo_negocio = EXCLUDED.score_tipo_negocio,
		score_tempo_negocio = EXCLUDED.score_tempo_negocio,
		score_experiencia = EXCLUDED.score_experiencia,
		score_orcamento = EXCLUDED.score_orcamento,
		score_desafio = EXCLUDED.score_desafio,
		score_disponibilidade = EXCLUDED.score_disponibilidade,
		score_breakdown = EXCLUDED.score_breakdown,
		classification = EXCLUDED.classification,
		form_completed = form_leads.form_completed OR EXCLUDED.form_completed,
		completed_at = COALESCE(form_leads.completed_at, EXCLUDED.completed_at),
		updated_at = now()
	WHERE form_leads.status NOT IN ('converted', 'lost')
	RETURNING ` + leadColumns + `, (xmax = 0) AS created`

const claimHotNotificationQuery = `
	UPDATE form_leads
	SET notification_sent = true, updated_at = now()
	WHERE id = $1 AND notification_sent = false`

const releaseHotNotificationQuery = `
	UPDATE form_leads
	SET notification_sent = false, updated_at = now()
	WHERE id = $1 AND notification_sent = true`

const getLeadBySessionQuery = `
	SELECT ` + leadColumns + `
	FROM form_leads
	WHERE session_id = $1`

const leadFilter = `
	WHERE ($1::text IS NULL OR classification = $1)
		AND ($2::boolean IS NULL OR form_completed = $2)
		AND ($3::text IS NULL OR nome ILIKE $3 OR email ILIKE $3 OR session_id = $4)`

const countLeadsQuery = `SELECT COUNT(*) FROM form_leads` + leadFilter

const listLeadsQuery = `
	SELECT ` + leadColumns + `
	FROM form_leads` + leadFilter + `
	ORDER BY created_at DESC, id
	LIMIT $5 OFFSET $6`

const updateLeadStatusQuery = `
	UPDATE form_leads
	SET status = $2, updated_at = now()
	WHERE session_id = $1
	RETURNING ` + leadColumns

// Repo implements Repository with PostgreSQL.
type Repo struct {
	pool *pgxpool.Pool
}

// New creates a new lead form repository.
func New(pool *pgxpool.Pool) *Repo {
	return &Repo{pool: pool}
}

// Compile-time check that Repo implements Repository.
var _ Repository = (*Repo)(nil)

// GetFormConfig loads the stored configuration document.
func (r *Repo) GetFormConfig(ctx context.Context) (StoredConfig, error) {
	var sc StoredConfig
	err := r.pool.QueryRow(ctx, getFormConfigQuery, FormConfigKey).Scan(&sc.Raw, &sc.UpdatedBy, &sc.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return StoredConfig{}, apperr.NotFound(configNotFoundMessage)
		}
		return StoredConfig{}, fmt.Errorf("get lead form config: %w", err)
	}
	return sc, nil
}

// SaveFormConfig stores raw as the configuration document.
func (r *Repo) SaveFormConfig(ctx context.Context, raw []byte, updatedBy *uuid.UUID) (StoredConfig, error) {
	var sc StoredConfig
	err := r.pool.QueryRow(ctx, saveFormConfigQuery, FormConfigKey, raw, updatedBy).Scan(&sc.Raw, &sc.UpdatedBy, &sc.UpdatedAt)
	if err != nil {
		return StoredConfig{}, fmt.Errorf("save lead form config: %w", err)
	}
	return sc, nil
}

// GetLeadBySession loads the lead for a form session.
func (r *Repo) GetLeadBySession(ctx context.Context, sessionID string) (Lead, error) {
	lead, err := scanLead(r.pool.QueryRow(ctx, getLeadBySessionQuery, sessionID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Lead{}, apperr.NotFound(leadNotFoundMessage)
		}
		return Lead{}, fmt.Errorf("get lead by session: %w", err)
	}
	return lead, nil
}

// UpsertLead inserts the session's lead or updates the existing row. Stored
// answers are merged with the submitted ones. Closed leads are rejected.
func (r *Repo) UpsertLead(ctx context.Context, p LeadUpsert) (UpsertResult, error) {
	answers, err := json.Marshal(nonNilAnswers(p.Answers))
	if err != nil {
		return UpsertResult{}, fmt.Errorf("encode lead answers: %w", err)
	}
	breakdown, err := json.Marshal(nonNilBreakdown(p.ScoreBreakdown))
	if err != nil {
		return UpsertResult{}, fmt.Errorf("encode score breakdown: %w", err)
	}

	id := p.ID
	if id == uuid.Nil {
		id = uuid.New()
	}

	args := []interface{}{id, p.SessionID, answers, p.Name, p.Email, p.Phone, p.ScoreTotal}
	args = append(args, legacyScoreArgs(p.ScoreBreakdown)...)
	args = append(args, breakdown, p.Classification, p.Completed)

	var res UpsertResult
	res.Lead, err = scanLead(r.pool.QueryRow(ctx, upsertLeadQuery, args...), &res.Created)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return UpsertResult{}, apperr.Conflict(leadClosedMessage)
		}
		return UpsertResult{}, fmt.Errorf("upsert lead: %w", err)
	}
	return res, nil
}

// ClaimHotNotification flips notification_sent once. It returns true only
// for the caller that performed the flip.
func (r *Repo) ClaimHotNotification(ctx context.Context, leadID uuid.UUID) (bool, error) {
	tag, err := r.pool.Exec(ctx, claimHotNotificationQuery, leadID)
	if err != nil {
		return false, fmt.Errorf("claim hot notification: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

// ReleaseHotNotification clears a claim whose alert was never delivered so
// the next HOT submission of the lead claims it again.
func (r *Repo) ReleaseHotNotification(ctx context.Context, leadID uuid.UUID) error {
	if _, err := r.pool.Exec(ctx, releaseHotNotificationQuery, leadID); err != nil {
		return fmt.Errorf("release hot notification: %w", err)
	}
	return nil
}

// ListLeads returns a page of leads, newest first, and the total match count.
func (r *Repo) ListLeads(ctx context.Context, p ListParams) ([]Lead, int, error) {
	var searchParam interface{}
	if p.Search != "" {
		searchParam = "%" + p.Search + "%"
	}
	var classificationParam interface{}
	if p.Classification != nil {
		classificationParam = *p.Classification
	}
	var completedParam interface{}
	if p.Completed != nil {
		completedParam = *p.Completed
	}

	args := []interface{}{classificationParam, completedParam, searchParam, p.Search}

	var total int
	if err := r.pool.QueryRow(ctx, countLeadsQuery, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count leads: %w", err)
	}

	rows, err := r.pool.Query(ctx, listLeadsQuery, append(args, p.Limit, p.Offset)...)
	if err != nil {
		return nil, 0, fmt.Errorf("list leads: %w", err)
	}
	defer rows.Close()

	leads := make([]Lead, 0)
	for rows.Next() {
		lead, err := scanLead(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scan lead: %w", err)
		}
		leads = append(leads, lead)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate leads: %w", err)
	}

	return leads, total, nil
}

// UpdateLeadStatus sets the workflow status of a session's lead.
func (r *Repo) UpdateLeadStatus(ctx context.Context, sessionID, status string) (Lead, error) {
	lead, err := scanLead(r.pool.QueryRow(ctx, updateLeadStatusQuery, sessionID, status))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Lead{}, apperr.NotFound(leadNotFoundMessage)
		}
		return Lead{}, fmt.Errorf("update lead status: %w", err)
	}
	return lead, nil
}

// scanLead reads leadColumns, plus any extra trailing destinations.
func scanLead(row pgx.Row, extra ...interface{}) (Lead, error) {
	var (
		l         Lead
		answers   []byte
		breakdown []byte
	)
	dest := []interface{}{
		&l.ID, &l.SessionID, &answers, &l.Name, &l.Email, &l.Phone, &l.ScoreTotal, &breakdown,
		&l.Classification, &l.Status, &l.FormCompleted, &l.NotificationSent,
		&l.CreatedAt, &l.UpdatedAt, &l.CompletedAt,
	}
	if err := row.Scan(append(dest, extra...)...); err != nil {
		return Lead{}, err
	}

	l.Answers = map[string]string{}
	if len(answers) > 0 {
		if err := json.Unmarshal(answers, &l.Answers); err != nil {
			return Lead{}, fmt.Errorf("decode lead answers: %w", err)
		}
	}
	l.ScoreBreakdown = map[string]int{}
	if len(breakdown) > 0 {
		if err := json.Unmarshal(breakdown, &l.ScoreBreakdown); err != nil {
			return Lead{}, fmt.Errorf("decode score breakdown: %w", err)
		}
	}
	return l, nil
}

func legacyScoreArgs(breakdown map[string]int) []interface{} {
	out := make([]interface{}, len(legacyScoreColumns))
	for i, col := range legacyScoreColumns {
		out[i] = breakdown[col.Key]
	}
	return out
}

func nonNilAnswers(m map[string]string) map[string]string {
	if m == nil {
		return map[string]string{}
	}
	return m
}

func nonNilBreakdown(m map[string]int) map[string]int {
	if m == nil {
		return map[string]int{}
	}
	return m
}
