package database

import (
	"context"
	"fmt"

	"checkin-app/internal/models"
	"checkin-app/pkg/logger"

	"github.com/jackc/pgx/v5/pgxpool"
)

type PostgresDB struct {
	pool *pgxpool.Pool
}

func NewPostgresDB(databaseURL string) (*PostgresDB, error) {
	pool, err := pgxpool.New(context.Background(), databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// Test connection
	if err := pool.Ping(context.Background()); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	logger.Info("Connected to database successfully")
	return &PostgresDB{pool: pool}, nil
}

func (db *PostgresDB) Close() error {
	db.pool.Close()
	return nil
}

// GetOrCreateUserByUsername resolves a username to a persistent user id,
// creating the user on first sight. Identity is resolved once per
// connection, so the upsert keeps reconnects idempotent.
func (db *PostgresDB) GetOrCreateUserByUsername(ctx context.Context, username string) (*models.User, error) {
	query := `
		INSERT INTO users (username, created_at) VALUES ($1, NOW())
		ON CONFLICT (username) DO UPDATE SET username = EXCLUDED.username
		RETURNING id, username, created_at`

	user := &models.User{}
	err := db.pool.QueryRow(ctx, query, username).Scan(
		&user.ID, &user.Username, &user.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve user %q: %w", username, err)
	}

	return user, nil
}

func (db *PostgresDB) GetUserByID(ctx context.Context, id int) (*models.User, error) {
	query := `SELECT id, username, created_at FROM users WHERE id = $1`

	user := &models.User{}
	err := db.pool.QueryRow(ctx, query, id).Scan(
		&user.ID, &user.Username, &user.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	return user, nil
}
