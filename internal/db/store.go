package db

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"foxie/internal/domain"
)

var ErrProfileNotFound = errors.New("pet profile not found")

type Store struct {
	pool *pgxpool.Pool
}

func New(ctx context.Context, dsn string) (*Store, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, err
	}
	return &Store{pool: pool}, nil
}

func (s *Store) Close() {
	s.pool.Close()
}

func (s *Store) Migrate(ctx context.Context) error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS pet_profiles (
			pet_id TEXT PRIMARY KEY,
			user_id TEXT NOT NULL,
			name TEXT NOT NULL,
			traits JSONB NOT NULL DEFAULT '{"playfulness":0.5,"tiredness":0.3,"curiosity":0.6,"sociability":0.5}'::jsonb,
			needs JSONB NOT NULL DEFAULT '{}'::jsonb,
			emotion JSONB NOT NULL DEFAULT '{}'::jsonb,
			behavior TEXT NOT NULL DEFAULT 'idle',
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			UNIQUE (user_id, name)
		);`,
		`CREATE TABLE IF NOT EXISTS memory_records (
			id BIGSERIAL PRIMARY KEY,
			pet_id TEXT NOT NULL REFERENCES pet_profiles(pet_id) ON DELETE CASCADE,
			record_type TEXT NOT NULL,
			detail TEXT NOT NULL DEFAULT '',
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);`,
		`CREATE INDEX IF NOT EXISTS idx_memory_records_pet_created ON memory_records(pet_id, created_at);`,
		`CREATE TABLE IF NOT EXISTS transcripts (
			id BIGSERIAL PRIMARY KEY,
			pet_id TEXT NOT NULL,
			terminal_id TEXT NOT NULL DEFAULT '',
			text TEXT NOT NULL,
			command_type TEXT NOT NULL DEFAULT '',
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);`,
		`CREATE INDEX IF NOT EXISTS idx_transcripts_pet_created ON transcripts(pet_id, created_at);`,
	}

	for _, q := range queries {
		if _, err := s.pool.Exec(ctx, q); err != nil {
			return err
		}
	}
	return nil
}

// LoadOrCreateProfile returns the pet for (userID, name), creating one with
// the given defaults when it does not exist yet.
func (s *Store) LoadOrCreateProfile(ctx context.Context, userID, name string, defaults domain.PetProfile) (domain.PetProfile, error) {
	p, err := s.getProfile(ctx, userID, name)
	if err == nil {
		return p, nil
	}
	if !errors.Is(err, ErrProfileNotFound) {
		return domain.PetProfile{}, err
	}

	petID := "pet_" + strings.ReplaceAll(uuid.NewString(), "-", "")
	traitsJSON, err := json.Marshal(defaults.Traits)
	if err != nil {
		return domain.PetProfile{}, err
	}
	needsJSON, err := json.Marshal(defaults.Needs)
	if err != nil {
		return domain.PetProfile{}, err
	}
	emotionJSON, err := json.Marshal(defaults.Emotion)
	if err != nil {
		return domain.PetProfile{}, err
	}
	behavior := defaults.Behavior
	if behavior == "" {
		behavior = domain.BehaviorIdle
	}

	_, err = s.pool.Exec(ctx, `
		INSERT INTO pet_profiles(pet_id, user_id, name, traits, needs, emotion, behavior)
		VALUES ($1, $2, $3, $4::jsonb, $5::jsonb, $6::jsonb, $7)
		ON CONFLICT (user_id, name) DO NOTHING
	`, petID, userID, name, string(traitsJSON), string(needsJSON), string(emotionJSON), string(behavior))
	if err != nil {
		return domain.PetProfile{}, err
	}

	return s.getProfile(ctx, userID, name)
}

func (s *Store) getProfile(ctx context.Context, userID, name string) (domain.PetProfile, error) {
	var out domain.PetProfile
	var traitsRaw, needsRaw, emotionRaw []byte
	var behavior string
	var createdAt, updatedAt time.Time
	err := s.pool.QueryRow(ctx, `
		SELECT pet_id, user_id, name, traits, needs, emotion, behavior, created_at, updated_at
		FROM pet_profiles
		WHERE user_id=$1 AND name=$2
	`, userID, name).Scan(
		&out.PetID,
		&out.UserID,
		&out.Name,
		&traitsRaw,
		&needsRaw,
		&emotionRaw,
		&behavior,
		&createdAt,
		&updatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.PetProfile{}, ErrProfileNotFound
	}
	if err != nil {
		return domain.PetProfile{}, err
	}
	if err := json.Unmarshal(traitsRaw, &out.Traits); err != nil {
		return domain.PetProfile{}, err
	}
	if err := json.Unmarshal(needsRaw, &out.Needs); err != nil {
		return domain.PetProfile{}, err
	}
	if err := json.Unmarshal(emotionRaw, &out.Emotion); err != nil {
		return domain.PetProfile{}, err
	}
	out.Behavior = domain.BehaviorState(behavior)
	out.CreatedAt = createdAt.UTC().Format(time.RFC3339Nano)
	out.UpdatedAt = updatedAt.UTC().Format(time.RFC3339Nano)
	return out, nil
}

// SaveProfileState persists the mutable simulation state for a pet.
func (s *Store) SaveProfileState(ctx context.Context, petID string, traits domain.PersonalityTraits, needs domain.Needs, emotion domain.EmotionStats, behavior domain.BehaviorState) error {
	traitsJSON, err := json.Marshal(traits)
	if err != nil {
		return err
	}
	needsJSON, err := json.Marshal(needs)
	if err != nil {
		return err
	}
	emotionJSON, err := json.Marshal(emotion)
	if err != nil {
		return err
	}
	tag, err := s.pool.Exec(ctx, `
		UPDATE pet_profiles
		SET traits=$2::jsonb, needs=$3::jsonb, emotion=$4::jsonb, behavior=$5, updated_at=NOW()
		WHERE pet_id=$1
	`, petID, string(traitsJSON), string(needsJSON), string(emotionJSON), string(behavior))
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrProfileNotFound
	}
	return nil
}

func (s *Store) AppendMemoryRecord(ctx context.Context, petID string, rec domain.MemoryRecord) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO memory_records(pet_id, record_type, detail, created_at)
		VALUES ($1, $2, $3, $4)
	`, petID, rec.Type, rec.Detail, rec.Timestamp)
	return err
}

func (s *Store) AppendTranscript(ctx context.Context, petID, terminalID, text string, cmd domain.CommandType) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO transcripts(pet_id, terminal_id, text, command_type)
		VALUES ($1, $2, $3, $4)
	`, petID, terminalID, text, string(cmd))
	return err
}

// RecentMemoryRecords returns up to limit records, oldest first.
func (s *Store) RecentMemoryRecords(ctx context.Context, petID string, limit int) ([]domain.MemoryRecord, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.pool.Query(ctx, `
		SELECT record_type, detail, created_at
		FROM (
			SELECT record_type, detail, created_at
			FROM memory_records
			WHERE pet_id=$1
			ORDER BY created_at DESC
			LIMIT $2
		) t
		ORDER BY created_at ASC
	`, petID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]domain.MemoryRecord, 0, limit)
	for rows.Next() {
		var rec domain.MemoryRecord
		if err := rows.Scan(&rec.Type, &rec.Detail, &rec.Timestamp); err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}
