// Package webhook provides the ad-campaign capture bounded context. It
// authenticates provider callbacks by API key, dedups provider lead IDs and
// runs inbound payloads through qualification before allocation.
package webhook

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var (
	// ErrAPIKeyNotFound is returned when no active key matches a hash.
	ErrAPIKeyNotFound = errors.New("webhook API key not found")
	// ErrCampaignNotMapped is returned when a campaign has no batch mapping.
	ErrCampaignNotMapped = errors.New("campaign is not mapped to a batch")
)

// APIKey is a provider credential. Only the sha256 hash is stored; the
// plaintext is shown once at creation.
type APIKey struct {
	ID             uuid.UUID
	Name           string
	KeyHash        string
	KeyPrefix      string
	AllowedDomains []string
	IsActive       bool
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// Repository provides data access for API keys, provider-lead dedup markers
// and campaign→batch mappings.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a new webhook repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// GenerateAPIKey creates a new random key, returning the plaintext (shown
// once), its hash and a display prefix.
func GenerateAPIKey() (plaintext, hash, prefix string, err error) {
	bytes := make([]byte, 32)
	if _, err := rand.Read(bytes); err != nil {
		return "", "", "", err
	}
	plaintext = "whk_" + hex.EncodeToString(bytes)
	hash = HashKey(plaintext)
	prefix = plaintext[:12]
	return plaintext, hash, prefix, nil
}

// HashKey hashes a plaintext API key for lookup.
func HashKey(plaintext string) string {
	h := sha256.Sum256([]byte(plaintext))
	return hex.EncodeToString(h[:])
}

// CreateKey stores a new API key record.
func (r *Repository) CreateKey(ctx context.Context, name, keyHash, keyPrefix string, allowedDomains []string) (APIKey, error) {
	var key APIKey
	err := r.pool.QueryRow(ctx, `
		INSERT INTO webhook_api_keys (name, key_hash, key_prefix, allowed_domains)
		VALUES ($1, $2, $3, $4)
		RETURNING id, name, key_hash, key_prefix, allowed_domains, is_active, created_at, updated_at
	`, name, keyHash, keyPrefix, allowedDomains).Scan(
		&key.ID, &key.Name, &key.KeyHash, &key.KeyPrefix,
		&key.AllowedDomains, &key.IsActive, &key.CreatedAt, &key.UpdatedAt,
	)
	return key, err
}

// GetKeyByHash retrieves an active API key by its hash.
func (r *Repository) GetKeyByHash(ctx context.Context, keyHash string) (APIKey, error) {
	var key APIKey
	err := r.pool.QueryRow(ctx, `
		SELECT id, name, key_hash, key_prefix, allowed_domains, is_active, created_at, updated_at
		FROM webhook_api_keys
		WHERE key_hash = $1 AND is_active = true
	`, keyHash).Scan(
		&key.ID, &key.Name, &key.KeyHash, &key.KeyPrefix,
		&key.AllowedDomains, &key.IsActive, &key.CreatedAt, &key.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return APIKey{}, ErrAPIKeyNotFound
	}
	return key, err
}

// AdLeadSeen reports whether a provider lead ID was already processed.
func (r *Repository) AdLeadSeen(ctx context.Context, provider, providerLeadID string) (bool, error) {
	var seen bool
	err := r.pool.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM ad_lead_ids WHERE provider = $1 AND provider_lead_id = $2
		)
	`, provider, providerLeadID).Scan(&seen)
	return seen, err
}

// MarkAdLeadSeen records a provider lead ID and reports whether it was new.
// Stored only after the lead is created, so a failed callback stays
// retryable; providers retry deliveries and the marker makes the retry a
// no-op.
func (r *Repository) MarkAdLeadSeen(ctx context.Context, provider, providerLeadID string) (bool, error) {
	tag, err := r.pool.Exec(ctx, `
		INSERT INTO ad_lead_ids (provider, provider_lead_id)
		VALUES ($1, $2)
		ON CONFLICT (provider, provider_lead_id) DO NOTHING
	`, provider, providerLeadID)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

// BatchIDForCampaign resolves the customer batch an ad campaign feeds.
func (r *Repository) BatchIDForCampaign(ctx context.Context, provider, campaignID string) (uuid.UUID, error) {
	var batchID uuid.UUID
	err := r.pool.QueryRow(ctx, `
		SELECT batch_id FROM campaign_mappings
		WHERE provider = $1 AND campaign_id = $2
	`, provider, campaignID).Scan(&batchID)
	if errors.Is(err, pgx.ErrNoRows) {
		return uuid.Nil, ErrCampaignNotMapped
	}
	return batchID, err
}

// UpsertCampaignMapping creates or replaces one campaign→batch mapping.
func (r *Repository) UpsertCampaignMapping(ctx context.Context, provider, campaignID string, batchID uuid.UUID) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO campaign_mappings (provider, campaign_id, batch_id)
		VALUES ($1, $2, $3)
		ON CONFLICT (provider, campaign_id) DO UPDATE SET batch_id = EXCLUDED.batch_id
	`, provider, campaignID, batchID)
	return err
}
