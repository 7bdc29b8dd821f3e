// Package boiledrepos implements the user repository on the sqlboiler query builder.
package boiledrepos

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"
	"github.com/volatiletech/sqlboiler/v4/drivers"
	"github.com/volatiletech/sqlboiler/v4/queries"
	"github.com/volatiletech/sqlboiler/v4/queries/qm"

	"github.com/trezcool/cronograma/core"
	"github.com/trezcool/cronograma/core/user"
)

var dialect = drivers.Dialect{
	LQ:                   '"',
	RQ:                   '"',
	UseIndexPlaceholders: true,
	UseDefaultKeyword:    true,
}

const userTable = `"user"`

var userColumns = []string{
	"id", "name", "username", "email", "is_active", "is_admin",
	"password_hash", "created_at", "updated_at", "last_login",
}

type userRow struct {
	ID           string      `boil:"id"`
	Name         string      `boil:"name"`
	Username     null.String `boil:"username"`
	Email        null.String `boil:"email"`
	IsActive     bool        `boil:"is_active"`
	IsAdmin      bool        `boil:"is_admin"`
	PasswordHash []byte      `boil:"password_hash"`
	CreatedAt    time.Time   `boil:"created_at"`
	UpdatedAt    time.Time   `boil:"updated_at"`
	LastLogin    null.Time   `boil:"last_login"`
}

type userRepository struct {
	exec core.DBExecutor
}

var _ user.Repository = (*userRepository)(nil) // interface compliance check

func NewUserRepository(exec core.DBExecutor) user.Repository {
	return &userRepository{exec: exec}
}

func (repo userRepository) boil(usr user.User) userRow {
	return userRow{
		ID:           usr.ID,
		Name:         usr.Name,
		Username:     null.NewString(usr.Username, usr.Username != ""),
		Email:        null.NewString(usr.Email, usr.Email != ""),
		IsActive:     usr.IsActive,
		IsAdmin:      usr.IsAdmin,
		PasswordHash: usr.PasswordHash,
		CreatedAt:    usr.CreatedAt.UTC(),
		UpdatedAt:    usr.UpdatedAt.UTC(),
		LastLogin:    null.NewTime(usr.LastLogin.UTC(), !usr.LastLogin.IsZero()),
	}
}

func (repo userRepository) unboil(row userRow) user.User {
	return user.User{
		ID:           row.ID,
		Name:         row.Name,
		Username:     row.Username.String,
		Email:        row.Email.String,
		IsActive:     row.IsActive,
		IsAdmin:      row.IsAdmin,
		PasswordHash: row.PasswordHash,
		CreatedAt:    row.CreatedAt.UTC(),
		UpdatedAt:    row.UpdatedAt.UTC(),
		LastLogin:    row.LastLogin.Time.UTC(),
	}
}

// newQuery returns a SELECT on the user table built from mods.
func (repo userRepository) newQuery(mods ...qm.QueryMod) *queries.Query {
	q := &queries.Query{}
	queries.SetDialect(q, &dialect)
	qm.Apply(q, append([]qm.QueryMod{qm.Select(userColumns...), qm.From(userTable)}, mods...)...)
	return q
}

// trapNoRowsErr maps psql "no rows" err to user.ErrNotFound
func (repo userRepository) trapNoRowsErr(err error, msg string) error {
	if errors.Cause(err) == sql.ErrNoRows {
		return user.ErrNotFound
	}
	return errors.Wrap(err, msg)
}

func (repo userRepository) CheckUsernameUniqueness(ctx context.Context, username, email string, excludedUsers ...user.User) error {
	var (
		conds []string
		args  []interface{}
	)
	if username != "" {
		conds = append(conds, "username = ?")
		args = append(args, username)
	}
	if email != "" {
		conds = append(conds, "email = ?")
		args = append(args, email)
	}
	if len(conds) == 0 {
		return nil
	}

	mods := []qm.QueryMod{qm.Where("("+strings.Join(conds, " OR ")+")", args...)}
	if len(excludedUsers) > 0 {
		ids := make([]interface{}, 0, len(excludedUsers))
		for _, u := range excludedUsers {
			ids = append(ids, u.ID)
		}
		mods = append(mods, qm.WhereNotIn("id NOT IN ?", ids...))
	}

	var rows []userRow
	if err := repo.newQuery(mods...).Bind(ctx, repo.exec, &rows); err != nil {
		return errors.Wrap(err, "checking user uniqueness")
	}
	for _, row := range rows {
		if username != "" && row.Username.String == username {
			return user.ErrUsernameExists
		}
	}
	if len(rows) > 0 {
		return user.ErrEmailExists
	}
	return nil
}

func (repo userRepository) CreateUser(ctx context.Context, usr user.User) (user.User, error) {
	row := repo.boil(usr)
	row.ID = uuid.New().String()

	var created userRow
	err := queries.Raw(
		`INSERT INTO "user" (`+strings.Join(userColumns, ", ")+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING `+strings.Join(userColumns, ", "),
		row.ID, row.Name, row.Username, row.Email, row.IsActive, row.IsAdmin,
		row.PasswordHash, row.CreatedAt, row.UpdatedAt, row.LastLogin,
	).Bind(ctx, repo.exec, &created)
	if err != nil {
		return user.User{}, errors.Wrap(err, "inserting user")
	}
	return repo.unboil(created), nil
}

func (repo userRepository) QueryUsers(ctx context.Context, filter *user.QueryFilter, ordering []core.DBOrdering) ([]user.User, error) {
	var mods []qm.QueryMod

	if filter != nil {
		// users with Name, Username or Email matching the search keyword
		if filter.Search != "" {
			val := "%" + filter.Search + "%"
			mods = append(mods, qm.Where("(name ILIKE ? OR username ILIKE ? OR email ILIKE ?)", val, val, val))
		}
		if filter.IsActive != nil {
			mods = append(mods, qm.Where("is_active = ?", *filter.IsActive))
		}
		if filter.IsAdmin != nil {
			mods = append(mods, qm.Where("is_admin = ?", *filter.IsAdmin))
		}
		if !filter.CreatedFrom.IsZero() {
			mods = append(mods, qm.Where("created_at >= ?", filter.CreatedFrom.Time))
		}
		if !filter.CreatedTo.IsZero() {
			mods = append(mods, qm.Where("created_at < ?", filter.CreatedTo.AddDays(1).Time))
		}
	}

	if len(ordering) > 0 {
		orderList := make([]string, 0, len(ordering))
		for _, ord := range ordering {
			orderList = append(orderList, ord.String())
		}
		mods = append(mods, qm.OrderBy(strings.Join(orderList, ", ")))
	}

	var rows []userRow
	if err := repo.newQuery(mods...).Bind(ctx, repo.exec, &rows); err != nil {
		return nil, errors.Wrap(err, "querying users")
	}
	users := make([]user.User, 0, len(rows))
	for _, row := range rows {
		users = append(users, repo.unboil(row))
	}
	return users, nil
}

func (repo userRepository) GetUser(ctx context.Context, filter user.GetFilter) (user.User, error) {
	var mod qm.QueryMod
	switch {
	case filter.ID != "":
		if _, err := uuid.Parse(filter.ID); err != nil {
			return user.User{}, user.ErrNotFound
		}
		mod = qm.Where("id = ?", filter.ID)
	case filter.Email != "":
		mod = qm.Where("email = ?", filter.Email)
	case filter.UsernameOrEmail != "":
		mod = qm.Where("(username = ? OR email = ?)", filter.UsernameOrEmail, filter.UsernameOrEmail)
	default:
		return user.User{}, user.ErrNotFound
	}

	var row userRow
	if err := repo.newQuery(mod, qm.Limit(1)).Bind(ctx, repo.exec, &row); err != nil {
		return user.User{}, repo.trapNoRowsErr(err, "finding user")
	}
	return repo.unboil(row), nil
}

func (repo userRepository) UpdateUser(ctx context.Context, usr user.User) (user.User, error) {
	row := repo.boil(usr)

	var updated userRow
	err := queries.Raw(
		`UPDATE "user" SET name = $2, username = $3, email = $4, is_active = $5, is_admin = $6,
			password_hash = $7, updated_at = $8, last_login = $9
		WHERE id = $1
		RETURNING `+strings.Join(userColumns, ", "),
		row.ID, row.Name, row.Username, row.Email, row.IsActive, row.IsAdmin,
		row.PasswordHash, row.UpdatedAt, row.LastLogin,
	).Bind(ctx, repo.exec, &updated)
	if err != nil {
		return user.User{}, repo.trapNoRowsErr(err, "updating user")
	}
	return repo.unboil(updated), nil
}

func (repo userRepository) DeleteUsersByID(ctx context.Context, ids ...string) (int, error) {
	args := make([]interface{}, 0, len(ids))
	for _, id := range ids {
		if _, err := uuid.Parse(id); err == nil {
			args = append(args, id)
		}
	}
	if len(args) == 0 {
		return 0, nil
	}

	q := &queries.Query{}
	queries.SetDialect(q, &dialect)
	qm.Apply(q, qm.From(userTable), qm.WhereIn("id IN ?", args...))
	queries.SetDelete(q)

	res, err := q.ExecContext(ctx, repo.exec)
	if err != nil {
		return 0, errors.Wrap(err, "deleting users")
	}
	cnt, err := res.RowsAffected()
	if err != nil {
		return 0, errors.Wrap(err, "deleting users")
	}
	return int(cnt), nil
}
