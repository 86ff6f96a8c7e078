package google

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	log "github.com/sirupsen/logrus"
)

var ErrInvalidState = errors.New("unknown or expired oauth state")

// StateRepository keeps the nonce of a started Google login until its callback arrives.
type StateRepository interface {
	Save(ctx context.Context, nonce uuid.UUID, finalUrl string) error
	// Consume removes the nonce and returns the url the login started from.
	Consume(ctx context.Context, nonce uuid.UUID, notBefore time.Time) (string, error)
}

type StateRepositoryImpl struct {
	db *pgxpool.Pool
}

func NewStateRepo(db *pgxpool.Pool) *StateRepositoryImpl {
	return &StateRepositoryImpl{db: db}
}

func (r *StateRepositoryImpl) Save(ctx context.Context, nonce uuid.UUID, finalUrl string) error {
	_, err := r.db.Exec(ctx, `INSERT INTO google_auth_state (nonce, final_url) VALUES ($1, $2)`, nonce, finalUrl)
	if err != nil {
		log.Errorf("failed to store Google auth nonce: %v", err)
	}
	return err
}

func (r *StateRepositoryImpl) Consume(ctx context.Context, nonce uuid.UUID, notBefore time.Time) (string, error) {
	var finalUrl string
	err := r.db.QueryRow(ctx,
		`DELETE FROM google_auth_state WHERE nonce = $1 AND created_at >= $2 RETURNING final_url`, nonce, notBefore,
	).Scan(&finalUrl)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", ErrInvalidState
	} else if err != nil {
		log.Errorf("failed to consume Google auth nonce: %v", err)
		return "", err
	}
	return finalUrl, nil
}
