package user

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	log "github.com/sirupsen/logrus"
)

var ErrUserNotFound = errors.New("user not found")

type Repo interface {
	GetUser(ctx context.Context, id int) (User, error)
	GetUserByLogin(ctx context.Context, login string) (User, error)
	GetAllUsers(ctx context.Context) ([]User, error)
}

type UserRepoImpl struct {
	db *pgxpool.Pool
}

func NewUserRepo(db *pgxpool.Pool) *UserRepoImpl {
	return &UserRepoImpl{db: db}
}

const userColumns = `id, login, firstname, lastname, admin, status, created_on, hashed_password`

func scanUser(row pgx.Row) (User, error) {
	var user User
	err := row.Scan(
		&user.Id,
		&user.Login,
		&user.Firstname,
		&user.Lastname,
		&user.Admin,
		&user.Status,
		&user.CreatedOn,
		&user.HashedPassword,
	)
	return user, err
}

func (u *UserRepoImpl) GetUser(ctx context.Context, id int) (User, error) {
	user, err := scanUser(u.db.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		log.Debugf("user with id %d not found", id)
		return User{}, ErrUserNotFound
	} else if err != nil {
		log.Errorf("failed to get user: %v", err)
		return User{}, err
	}
	return user, nil
}

func (u *UserRepoImpl) GetUserByLogin(ctx context.Context, login string) (User, error) {
	user, err := scanUser(u.db.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE lower(login) = lower($1)`, login))
	if errors.Is(err, pgx.ErrNoRows) {
		log.Debugf("user with login %s not found", login)
		return User{}, ErrUserNotFound
	} else if err != nil {
		log.Errorf("failed to get user by login: %v", err)
		return User{}, err
	}
	return user, nil
}

func (u *UserRepoImpl) GetAllUsers(ctx context.Context) ([]User, error) {
	rows, err := u.db.Query(ctx, `SELECT `+userColumns+` FROM users ORDER BY firstname, lastname`)
	if err != nil {
		log.Errorf("failed to get users: %v", err)
		return nil, err
	}
	defer rows.Close()

	var users []User
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, user)
	}
	return users, rows.Err()
}
