package storage

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
)

const schemaSQL = `CREATE TABLE IF NOT EXISTS chat (
	id SERIAL PRIMARY KEY,
	chat_id TEXT UNIQUE NOT NULL
)`

type postgresStore struct {
	pool *pgxpool.Pool
	log  zerolog.Logger
}

func openPostgres(ctx context.Context, dsn string, log zerolog.Logger) (Store, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse database url: %w", err)
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("create connection pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if _, err := pool.Exec(ctx, schemaSQL); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ensure schema: %w", err)
	}

	log.Info().Str("driver", "postgres").Msg("store opened")
	return &postgresStore{pool: pool, log: log}, nil
}

func (s *postgresStore) Add(ctx context.Context, chatID string) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO chat (chat_id) VALUES ($1) ON CONFLICT (chat_id) DO NOTHING`, chatID)
	if err != nil {
		return fmt.Errorf("insert subscriber: %w", err)
	}
	return nil
}

func (s *postgresStore) Remove(ctx context.Context, chatID string) error {
	_, err := s.pool.Exec(ctx, `DELETE FROM chat WHERE chat_id = $1`, chatID)
	if err != nil {
		return fmt.Errorf("delete subscriber: %w", err)
	}
	return nil
}

func (s *postgresStore) ListAll(ctx context.Context) ([]string, error) {
	rows, err := s.pool.Query(ctx, `SELECT chat_id FROM chat`)
	if err != nil {
		return nil, fmt.Errorf("select subscribers: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan subscriber: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("read subscribers: %w", err)
	}
	return ids, nil
}

func (s *postgresStore) Close() error {
	s.pool.Close()
	return nil
}
