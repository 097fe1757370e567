package store

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// Postgres is the production Store backed by a pgx connection pool.
type Postgres struct {
	pool *pgxpool.Pool
}

var _ Store = (*Postgres)(nil)

func NewPostgres(ctx context.Context, databaseURL string) (*Postgres, error) {
	poolCfg, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse database url: %w", err)
	}
	poolCfg.MaxConns = 10
	poolCfg.MinConns = 1
	poolCfg.MaxConnLifetime = 30 * time.Minute
	poolCfg.MaxConnIdleTime = 5 * time.Minute
	poolCfg.HealthCheckPeriod = 30 * time.Second
	poolCfg.ConnConfig.ConnectTimeout = 5 * time.Second

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("connect: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping: %w", err)
	}
	if err := migrate(pool); err != nil {
		pool.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return &Postgres{pool: pool}, nil
}

func migrate(pool *pgxpool.Pool) error {
	goose.SetBaseFS(migrationsFS)
	if err := goose.SetDialect("postgres"); err != nil {
		return err
	}
	db := stdlib.OpenDBFromPool(pool)
	defer db.Close()
	return goose.Up(db, "migrations")
}

func (p *Postgres) Close() {
	p.pool.Close()
}

func (p *Postgres) EnsureUser(ctx context.Context, id, tier string) (User, error) {
	if tier == "" {
		tier = TierFree
	}
	const query = `
		INSERT INTO users (id, tier)
		VALUES ($1, $2)
		ON CONFLICT (id) DO UPDATE SET tier = EXCLUDED.tier
		RETURNING id, tier, about_me, voice_trial_used, created_at
	`
	var u User
	err := p.pool.QueryRow(ctx, query, id, tier).Scan(&u.ID, &u.Tier, &u.AboutMe, &u.VoiceTrialUsed, &u.CreatedAt)
	if err != nil {
		return User{}, err
	}
	return u, nil
}

func (p *Postgres) GetUser(ctx context.Context, id string) (User, error) {
	const query = `
		SELECT id, tier, about_me, voice_trial_used, created_at
		FROM users WHERE id = $1
	`
	var u User
	err := p.pool.QueryRow(ctx, query, id).Scan(&u.ID, &u.Tier, &u.AboutMe, &u.VoiceTrialUsed, &u.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return User{}, ErrNotFound
	}
	if err != nil {
		return User{}, err
	}
	return u, nil
}

func (p *Postgres) SetAboutMe(ctx context.Context, id, aboutMe string) error {
	tag, err := p.pool.Exec(ctx, `UPDATE users SET about_me = $2 WHERE id = $1`, id, aboutMe)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (p *Postgres) VoiceTrialUsed(ctx context.Context, userID string) (bool, error) {
	var used bool
	err := p.pool.QueryRow(ctx, `SELECT voice_trial_used FROM users WHERE id = $1`, userID).Scan(&used)
	if errors.Is(err, pgx.ErrNoRows) {
		return false, ErrNotFound
	}
	if err != nil {
		return false, err
	}
	return used, nil
}

func (p *Postgres) MarkVoiceTrialUsed(ctx context.Context, userID string) error {
	tag, err := p.pool.Exec(ctx, `UPDATE users SET voice_trial_used = TRUE WHERE id = $1`, userID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (p *Postgres) VoiceMinutesForMonth(ctx context.Context, userID, monthKey string) (float64, error) {
	var minutes float64
	err := p.pool.QueryRow(ctx,
		`SELECT minutes FROM voice_usage WHERE user_id = $1 AND month = $2`,
		userID, monthKey).Scan(&minutes)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return minutes, nil
}

func (p *Postgres) AddVoiceMinutes(ctx context.Context, userID, monthKey string, minutes float64) error {
	const query = `
		INSERT INTO voice_usage (user_id, month, minutes)
		VALUES ($1, $2, $3)
		ON CONFLICT (user_id, month) DO UPDATE SET minutes = voice_usage.minutes + EXCLUDED.minutes
	`
	_, err := p.pool.Exec(ctx, query, userID, monthKey, minutes)
	return err
}

func (p *Postgres) MessagesSentOnDay(ctx context.Context, userID, dayKey string) (int, error) {
	var count int
	err := p.pool.QueryRow(ctx,
		`SELECT count FROM daily_messages WHERE user_id = $1 AND day = $2`,
		userID, dayKey).Scan(&count)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return count, nil
}

func (p *Postgres) IncrMessagesSentOnDay(ctx context.Context, userID, dayKey string) error {
	const query = `
		INSERT INTO daily_messages (user_id, day, count)
		VALUES ($1, $2, 1)
		ON CONFLICT (user_id, day) DO UPDATE SET count = daily_messages.count + 1
	`
	_, err := p.pool.Exec(ctx, query, userID, dayKey)
	return err
}

func (p *Postgres) CreateConversation(ctx context.Context, conv Conversation) error {
	const query = `
		INSERT INTO conversations (id, user_id, coach_id, title, message_count, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	_, err := p.pool.Exec(ctx, query,
		conv.ID, conv.UserID, conv.CoachID, conv.Title, conv.MessageCount, conv.CreatedAt, conv.UpdatedAt)
	return err
}

func (p *Postgres) GetConversation(ctx context.Context, userID, id string) (Conversation, error) {
	const query = `
		SELECT id, user_id, coach_id, title, message_count, created_at, updated_at
		FROM conversations WHERE id = $1 AND user_id = $2
	`
	var conv Conversation
	err := p.pool.QueryRow(ctx, query, id, userID).Scan(
		&conv.ID, &conv.UserID, &conv.CoachID, &conv.Title, &conv.MessageCount, &conv.CreatedAt, &conv.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Conversation{}, ErrNotFound
	}
	if err != nil {
		return Conversation{}, err
	}
	return conv, nil
}

func (p *Postgres) ListConversations(ctx context.Context, userID string) ([]Conversation, error) {
	const query = `
		SELECT id, user_id, coach_id, title, message_count, created_at, updated_at
		FROM conversations
		WHERE user_id = $1
		ORDER BY updated_at DESC
	`
	rows, err := p.pool.Query(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]Conversation, 0)
	for rows.Next() {
		var conv Conversation
		if err := rows.Scan(&conv.ID, &conv.UserID, &conv.CoachID, &conv.Title, &conv.MessageCount, &conv.CreatedAt, &conv.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, conv)
	}
	return out, rows.Err()
}

func (p *Postgres) DeleteConversation(ctx context.Context, userID, id string) error {
	tag, err := p.pool.Exec(ctx, `DELETE FROM conversations WHERE id = $1 AND user_id = $2`, id, userID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (p *Postgres) SetConversationTitle(ctx context.Context, id, title string) error {
	tag, err := p.pool.Exec(ctx, `UPDATE conversations SET title = $2 WHERE id = $1`, id, title)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (p *Postgres) TouchConversation(ctx context.Context, id string, addedMessages int, at time.Time) error {
	const query = `
		UPDATE conversations
		SET message_count = message_count + $2, updated_at = $3
		WHERE id = $1
	`
	tag, err := p.pool.Exec(ctx, query, id, addedMessages, at)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (p *Postgres) AppendMessages(ctx context.Context, conversationID string, msgs []Message) error {
	if len(msgs) == 0 {
		return nil
	}
	batch := &pgx.Batch{}
	const query = `
		INSERT INTO messages (id, conversation_id, role, content, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`
	for _, msg := range msgs {
		batch.Queue(query, msg.ID, conversationID, msg.Role, msg.Content, msg.CreatedAt)
	}
	return p.pool.SendBatch(ctx, batch).Close()
}

func (p *Postgres) ListMessages(ctx context.Context, conversationID string) ([]Message, error) {
	const query = `
		SELECT id, conversation_id, role, content, created_at
		FROM messages
		WHERE conversation_id = $1
		ORDER BY created_at ASC
	`
	rows, err := p.pool.Query(ctx, query, conversationID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]Message, 0)
	for rows.Next() {
		var msg Message
		if err := rows.Scan(&msg.ID, &msg.ConversationID, &msg.Role, &msg.Content, &msg.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, msg)
	}
	return out, rows.Err()
}

func (p *Postgres) CreateCoach(ctx context.Context, c Coach) error {
	const query = `
		INSERT INTO coaches (id, owner_id, name, style, topics, share_code, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	_, err := p.pool.Exec(ctx, query, c.ID, c.OwnerID, c.Name, c.Style, c.Topics, c.ShareCode, c.CreatedAt)
	return err
}

func (p *Postgres) GetCoach(ctx context.Context, id string) (Coach, error) {
	const query = `
		SELECT id, owner_id, name, style, topics, share_code, created_at
		FROM coaches WHERE id = $1
	`
	var c Coach
	err := p.pool.QueryRow(ctx, query, id).Scan(&c.ID, &c.OwnerID, &c.Name, &c.Style, &c.Topics, &c.ShareCode, &c.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Coach{}, ErrNotFound
	}
	if err != nil {
		return Coach{}, err
	}
	return c, nil
}

func (p *Postgres) GetCoachByShareCode(ctx context.Context, code string) (Coach, error) {
	const query = `
		SELECT id, owner_id, name, style, topics, share_code, created_at
		FROM coaches WHERE share_code = $1
	`
	var c Coach
	err := p.pool.QueryRow(ctx, query, code).Scan(&c.ID, &c.OwnerID, &c.Name, &c.Style, &c.Topics, &c.ShareCode, &c.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Coach{}, ErrNotFound
	}
	if err != nil {
		return Coach{}, err
	}
	return c, nil
}

func (p *Postgres) ListCoachesByOwner(ctx context.Context, ownerID string) ([]Coach, error) {
	const query = `
		SELECT id, owner_id, name, style, topics, share_code, created_at
		FROM coaches WHERE owner_id = $1 ORDER BY created_at ASC
	`
	return p.queryCoaches(ctx, query, ownerID)
}

func (p *Postgres) AddCoachToLibrary(ctx context.Context, userID, coachID string) error {
	const query = `
		INSERT INTO coach_library (user_id, coach_id)
		VALUES ($1, $2)
		ON CONFLICT (user_id, coach_id) DO NOTHING
	`
	_, err := p.pool.Exec(ctx, query, userID, coachID)
	return err
}

func (p *Postgres) ListLibrary(ctx context.Context, userID string) ([]Coach, error) {
	const query = `
		SELECT c.id, c.owner_id, c.name, c.style, c.topics, c.share_code, c.created_at
		FROM coach_library l
		JOIN coaches c ON c.id = l.coach_id
		WHERE l.user_id = $1
		ORDER BY l.added_at ASC
	`
	return p.queryCoaches(ctx, query, userID)
}

func (p *Postgres) queryCoaches(ctx context.Context, query string, args ...any) ([]Coach, error) {
	rows, err := p.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]Coach, 0)
	for rows.Next() {
		var c Coach
		if err := rows.Scan(&c.ID, &c.OwnerID, &c.Name, &c.Style, &c.Topics, &c.ShareCode, &c.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}
