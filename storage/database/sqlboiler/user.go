package boiledrepos

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"
	"github.com/volatiletech/sqlboiler/v4/queries"
	"github.com/volatiletech/sqlboiler/v4/queries/qm"

	"github.com/trezcool/jukwaa/core"
	"github.com/trezcool/jukwaa/core/user"
	"github.com/trezcool/jukwaa/storage/database/sqlboiler/models"
)

var userColumns = []string{
	"id", "username", "email", "password_hash", "bio", "is_active", "is_superuser", "created_at", "updated_at", "last_login",
}

// orderable maps user.OrderingFields to their columns.
var orderable = map[string]string{
	"username":   "username",
	"email":      "email",
	"created_at": "created_at",
	"last_login": "last_login",
	"is_active":  "is_active",
}

type userRepository struct {
	db core.DB
}

var _ user.Repository = (*userRepository)(nil) // interface compliance check

func NewUserRepository(db core.DB) user.Repository {
	return &userRepository{db: db}
}

func (repo *userRepository) boil(usr user.User) *models.User {
	return &models.User{
		ID:           usr.ID,
		Username:     usr.Username,
		Email:        usr.Email,
		PasswordHash: usr.PasswordHash,
		Bio:          usr.Bio,
		IsActive:     usr.IsActive,
		IsSuperuser:  usr.IsSuperuser,
		CreatedAt:    usr.CreatedAt.UTC(),
		UpdatedAt:    usr.UpdatedAt.UTC(),
		LastLogin:    null.TimeFromPtr(usr.LastLogin),
	}
}

func (repo *userRepository) unboil(u *models.User, groups []core.Group) user.User {
	usr := user.User{
		ID:           u.ID,
		Username:     u.Username,
		Email:        u.Email,
		Bio:          u.Bio,
		IsActive:     u.IsActive,
		IsSuperuser:  u.IsSuperuser,
		Groups:       groups,
		PasswordHash: u.PasswordHash,
		CreatedAt:    u.CreatedAt.UTC(),
		UpdatedAt:    u.UpdatedAt.UTC(),
	}
	if u.LastLogin.Valid {
		t := u.LastLogin.Time.UTC()
		usr.LastLogin = &t
	}
	if usr.Groups == nil {
		usr.Groups = []core.Group{}
	}
	return usr
}

// groupsOf loads the groups of the given users, each ordered by name.
func (repo *userRepository) groupsOf(ctx context.Context, exec core.DBExecutor, userIDs ...string) (map[string][]core.Group, error) {
	byUser := make(map[string][]core.Group, len(userIDs))
	if len(userIDs) == 0 {
		return byUser, nil
	}

	var rows []models.UserGroup
	err := models.NewQuery(
		qm.Select("ug.user_id", "ug.group_id", "g.name AS group_name"),
		qm.From(models.TableNames.UserGroup+" ug"),
		qm.InnerJoin(models.Quote(models.TableNames.Group)+" g ON g.id = ug.group_id"),
		qm.WhereIn("ug.user_id IN ?", models.Args(userIDs)...),
		qm.OrderBy("g.name"),
	).Bind(ctx, exec, &rows)
	if err != nil {
		return nil, errors.Wrap(err, "loading user groups")
	}
	for _, r := range rows {
		byUser[r.UserID] = append(byUser[r.UserID], core.Group{ID: r.GroupID, Name: r.GroupName})
	}
	return byUser, nil
}

func (repo *userRepository) load(ctx context.Context, exec core.DBExecutor, u *models.User) (user.User, error) {
	groups, err := repo.groupsOf(ctx, exec, u.ID)
	if err != nil {
		return user.User{}, err
	}
	return repo.unboil(u, groups[u.ID]), nil
}

func (repo *userRepository) CheckUniqueness(ctx context.Context, username, email, excludedID string) error {
	check := func(col, val string, exists error) error {
		if val == "" {
			return nil
		}
		mods := []qm.QueryMod{qm.From(models.Quote(models.TableNames.User)), qm.Where(col+" = ?", val)}
		if validID(excludedID) {
			mods = append(mods, qm.Where("id <> ?", excludedID))
		}
		n, err := models.Count(ctx, repo.db, mods...)
		if err != nil {
			return errors.Wrap(err, "checking user uniqueness")
		}
		if n > 0 {
			return exists
		}
		return nil
	}

	if err := check("username", username, user.ErrUsernameExists); err != nil {
		return err
	}
	return check("email", email, user.ErrEmailExists)
}

func (repo *userRepository) trapUniqueErr(err error, msg string) error {
	if code, constraint, ok := pqConstraint(err); ok {
		switch {
		case code == pqUniqueViolation && constraint == "user_username_key":
			return user.ErrUsernameExists
		case code == pqUniqueViolation && constraint == "user_email_key":
			return user.ErrEmailExists
		case code == pqForeignKeyViolation:
			return user.ErrGroupNotFound
		}
	}
	return errors.Wrap(err, msg)
}

func (repo *userRepository) CreateUser(ctx context.Context, usr user.User) (user.User, error) {
	if usr.ID == "" {
		usr.ID = uuid.New().String()
	}
	for _, g := range usr.Groups {
		if !validID(g.ID) {
			return user.User{}, user.ErrGroupNotFound
		}
	}
	u := repo.boil(usr)

	var created user.User
	err := core.RunInTx(ctx, repo.db, func(tx core.DBTransactor) error {
		err := models.Insert(ctx, tx, models.TableNames.User, userColumns,
			u.ID, u.Username, u.Email, u.PasswordHash, u.Bio, u.IsActive, u.IsSuperuser, u.CreatedAt, u.UpdatedAt, u.LastLogin)
		if err != nil {
			return repo.trapUniqueErr(err, "inserting user")
		}
		for _, g := range usr.Groups {
			err = models.Insert(ctx, tx, models.TableNames.UserGroup, []string{"user_id", "group_id"}, u.ID, g.ID)
			if err != nil {
				return repo.trapUniqueErr(err, "inserting user group")
			}
		}
		created, err = repo.load(ctx, tx, u)
		return err
	})
	return created, err
}

func (repo *userRepository) GetUser(ctx context.Context, filter user.GetFilter) (user.User, error) {
	mods := []qm.QueryMod{qm.Select("*"), qm.From(models.Quote(models.TableNames.User))}
	switch {
	case filter.ID != "":
		if !validID(filter.ID) {
			return user.User{}, user.ErrNotFound
		}
		mods = append(mods, qm.Where("id = ?", filter.ID))
	case filter.Username != "":
		mods = append(mods, qm.Where("username = ?", filter.Username))
	case filter.Email != "":
		mods = append(mods, qm.Where("email = ?", filter.Email))
	case filter.UsernameOrEmail != "":
		mods = append(mods, qm.Where("username = ? OR email = ?", filter.UsernameOrEmail, filter.UsernameOrEmail))
	default:
		return user.User{}, user.ErrNotFound
	}

	u := new(models.User)
	if err := models.NewQuery(append(mods, qm.Limit(1))...).Bind(ctx, repo.db, u); err != nil {
		return user.User{}, trapNoRowsErr(err, user.ErrNotFound, "selecting user")
	}
	return repo.load(ctx, repo.db, u)
}

func (repo *userRepository) QueryUsers(ctx context.Context, filter *user.QueryFilter, ordering []core.DBOrdering) ([]user.User, error) {
	mods := []qm.QueryMod{qm.Select("*"), qm.From(models.Quote(models.TableNames.User))}

	if filter != nil {
		if filter.Search != "" {
			val := "%" + filter.Search + "%"
			mods = append(mods, qm.Expr(qm.Where("username ILIKE ? OR email ILIKE ?", val, val)))
		}
		if filter.IsActive != nil {
			mods = append(mods, qm.Where("is_active = ?", *filter.IsActive))
		}
		if filter.Group != "" {
			mods = append(mods, qm.Where(
				fmt.Sprintf(
					"id IN (SELECT ug.user_id FROM %s ug INNER JOIN %s g ON g.id = ug.group_id WHERE g.name = ?)",
					models.TableNames.UserGroup, models.Quote(models.TableNames.Group)),
				filter.Group))
		}
	}

	orderBy := make([]string, 0, len(ordering)+1)
	for _, ord := range ordering {
		if col, ok := orderable[ord.Field]; ok {
			orderBy = append(orderBy, core.DBOrdering{Field: col, Ascending: ord.Ascending}.String())
		}
	}
	if len(orderBy) == 0 {
		orderBy = append(orderBy, "username ASC")
	}
	mods = append(mods, qm.OrderBy(strings.Join(orderBy, ", ")))

	var rows []*models.User
	if err := models.NewQuery(mods...).Bind(ctx, repo.db, &rows); err != nil {
		return nil, errors.Wrap(err, "selecting users")
	}

	ids := make([]string, 0, len(rows))
	for _, u := range rows {
		ids = append(ids, u.ID)
	}
	groups, err := repo.groupsOf(ctx, repo.db, ids...)
	if err != nil {
		return nil, err
	}
	users := make([]user.User, 0, len(rows))
	for _, u := range rows {
		users = append(users, repo.unboil(u, groups[u.ID]))
	}
	return users, nil
}

func (repo *userRepository) UpdateUser(ctx context.Context, usr user.User) (user.User, error) {
	if !validID(usr.ID) {
		return user.User{}, user.ErrNotFound
	}
	u := repo.boil(usr)
	cols := []string{"username", "email", "bio", "is_active", "is_superuser", "updated_at", "last_login"}
	vals := []interface{}{u.Username, u.Email, u.Bio, u.IsActive, u.IsSuperuser, u.UpdatedAt, u.LastLogin}
	if usr.PasswordHash != nil {
		cols = append(cols, "password_hash")
		vals = append(vals, u.PasswordHash)
	}

	n, err := models.Update(ctx, repo.db, models.TableNames.User, u.ID, cols, vals...)
	if err != nil {
		return user.User{}, repo.trapUniqueErr(err, "updating user")
	}
	if n == 0 {
		return user.User{}, user.ErrNotFound
	}
	return repo.GetUser(ctx, user.GetFilter{ID: u.ID})
}

// DeleteUser relies on the schema cascades: memberships and allow-list entries go, authored rows are kept with a NULL author.
func (repo *userRepository) DeleteUser(ctx context.Context, id string) error {
	if !validID(id) {
		return user.ErrNotFound
	}
	res, err := queries.Raw(`DELETE FROM "user" WHERE id = $1`, id).ExecContext(ctx, repo.db)
	if err != nil {
		return errors.Wrap(err, "deleting user")
	}
	n, err := res.RowsAffected()
	if err != nil {
		return errors.Wrap(err, "counting deleted users")
	}
	if n == 0 {
		return user.ErrNotFound
	}
	return nil
}

func (repo *userRepository) CreateGroup(ctx context.Context, group core.Group) (core.Group, error) {
	if group.ID == "" {
		group.ID = uuid.New().String()
	}
	err := models.Insert(ctx, repo.db, models.TableNames.Group, []string{"id", "name"}, group.ID, group.Name)
	if err != nil {
		if code, constraint, ok := pqConstraint(err); ok && code == pqUniqueViolation && constraint == "group_name_key" {
			return core.Group{}, user.ErrGroupExists
		}
		return core.Group{}, errors.Wrap(err, "inserting group")
	}
	return group, nil
}

func (repo *userRepository) GetGroup(ctx context.Context, id string) (core.Group, error) {
	if !validID(id) {
		return core.Group{}, user.ErrGroupNotFound
	}
	var g models.Group
	err := models.NewQuery(
		qm.Select("id", "name"),
		qm.From(models.Quote(models.TableNames.Group)),
		qm.Where("id = ?", id),
	).Bind(ctx, repo.db, &g)
	if err != nil {
		return core.Group{}, trapNoRowsErr(err, user.ErrGroupNotFound, "selecting group")
	}
	return core.Group{ID: g.ID, Name: g.Name}, nil
}

func (repo *userRepository) ListGroups(ctx context.Context) ([]core.Group, error) {
	var rows []models.Group
	err := models.NewQuery(
		qm.Select("id", "name"),
		qm.From(models.Quote(models.TableNames.Group)),
		qm.OrderBy("name"),
	).Bind(ctx, repo.db, &rows)
	if err != nil {
		return nil, errors.Wrap(err, "selecting groups")
	}
	groups := make([]core.Group, 0, len(rows))
	for _, g := range rows {
		groups = append(groups, core.Group{ID: g.ID, Name: g.Name})
	}
	return groups, nil
}

func (repo *userRepository) AddUserToGroup(ctx context.Context, userID, groupID string) error {
	if !validID(userID) {
		return user.ErrNotFound
	}
	if !validID(groupID) {
		return user.ErrGroupNotFound
	}
	_, err := queries.Raw(
		`INSERT INTO user_group (user_id, group_id) VALUES ($1, $2) ON CONFLICT DO NOTHING`, userID, groupID,
	).ExecContext(ctx, repo.db)
	if err != nil {
		if code, constraint, ok := pqConstraint(err); ok && code == pqForeignKeyViolation {
			if strings.HasPrefix(constraint, "user_group_user_id") {
				return user.ErrNotFound
			}
			return user.ErrGroupNotFound
		}
		return errors.Wrap(err, "inserting user group")
	}
	return nil
}

func (repo *userRepository) RemoveUserFromGroup(ctx context.Context, userID, groupID string) error {
	if !validID(userID) || !validID(groupID) {
		return nil
	}
	_, err := queries.Raw(
		`DELETE FROM user_group WHERE user_id = $1 AND group_id = $2`, userID, groupID,
	).ExecContext(ctx, repo.db)
	return errors.Wrap(err, "deleting user group")
}

func (repo *userRepository) UserGroups(ctx context.Context, userID string) ([]core.Group, error) {
	if !validID(userID) {
		return []core.Group{}, nil
	}
	groups, err := repo.groupsOf(ctx, repo.db, userID)
	if err != nil {
		return nil, err
	}
	if groups[userID] == nil {
		return []core.Group{}, nil
	}
	return groups[userID], nil
}
