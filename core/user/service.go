package user

import (
	"context"

	"github.com/pkg/errors"

	"github.com/trezcool/jukwaa/core"
)

var (
	// errors
	ErrNotFound           = errors.New("user not found")
	ErrGroupNotFound      = errors.New("group not found")
	ErrEmailExists        = errors.New("a user with this email already exists")
	ErrUsernameExists     = errors.New("a user with this username already exists")
	ErrGroupExists        = errors.New("a group with this name already exists")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrAccountDeactivated = errors.New("account deactivated")
	ErrGroupRestricted    = errors.New("this group cannot be joined on registration")
	errWrongPassword      = errors.New("wrong password")
)

type (
	Repository interface {
		// CheckUniqueness returns ErrUsernameExists or ErrEmailExists, ignoring the user excludedID.
		CheckUniqueness(ctx context.Context, username, email, excludedID string) error
		// CreateUser inserts usr along with its group memberships.
		CreateUser(ctx context.Context, usr User) (User, error)
		GetUser(ctx context.Context, filter GetFilter) (User, error)
		QueryUsers(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering) ([]User, error)
		UpdateUser(ctx context.Context, usr User) (User, error)
		// DeleteUser removes the user; authored content and votes are kept with their author cleared.
		DeleteUser(ctx context.Context, id string) error

		CreateGroup(ctx context.Context, group core.Group) (core.Group, error)
		GetGroup(ctx context.Context, id string) (core.Group, error)
		ListGroups(ctx context.Context) ([]core.Group, error)
		AddUserToGroup(ctx context.Context, userID, groupID string) error
		RemoveUserFromGroup(ctx context.Context, userID, groupID string) error
		UserGroups(ctx context.Context, userID string) ([]core.Group, error)
	}

	// ContentPurger deletes a user along with everything they authored or voted, in one go.
	ContentPurger interface {
		PurgeUser(ctx context.Context, userID string) error
	}

	Service struct {
		repo   Repository
		purger ContentPurger
		conf   *core.Config
	}
)

var _ core.GroupMembership = (*Service)(nil)

func NewService(repo Repository, purger ContentPurger, conf *core.Config) *Service {
	return &Service{repo: repo, purger: purger, conf: conf}
}

func (svc *Service) checkUniqueness(ctx context.Context, uname, email, exclID string) error {
	if err := svc.repo.CheckUniqueness(ctx, uname, email, exclID); err != nil {
		var field string
		switch errors.Cause(err) {
		case ErrUsernameExists:
			field = "username"
		case ErrEmailExists:
			field = "email"
		default:
			return errors.Wrap(err, "checking user uniqueness")
		}
		return core.NewFieldValidationError(field, errors.Cause(err))
	}
	return nil
}

// Register creates an active user. nu must have been validated.
// The moderator group cannot be picked here: it is granted through AddToGroup only.
func (svc *Service) Register(ctx context.Context, nu NewUser) (User, error) {
	if err := svc.checkUniqueness(ctx, nu.Username, nu.Email, ""); err != nil {
		return User{}, err
	}

	now := core.NowFunc()
	usr := User{
		Username:    nu.Username,
		Email:       nu.Email,
		IsActive:    true,
		IsSuperuser: nu.IsSuperuser,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if nu.GroupID != "" {
		grp, err := svc.repo.GetGroup(ctx, nu.GroupID)
		if err != nil {
			if errors.Cause(err) == ErrGroupNotFound {
				return User{}, core.NewFieldValidationError("group_id", err)
			}
			return User{}, errors.Wrap(err, "finding group")
		}
		if grp.Name == svc.conf.Forum.ModeratorGroup {
			return User{}, core.NewFieldValidationError("group_id", ErrGroupRestricted)
		}
		usr.Groups = []core.Group{grp}
	}
	if err := usr.SetPassword(nu.Password); err != nil {
		return User{}, errors.Wrap(err, "hashing password")
	}

	usr, err := svc.repo.CreateUser(ctx, usr)
	return usr, errors.Wrap(err, "creating user")
}

// Authenticate checks the credentials of an active user and records the login.
func (svc *Service) Authenticate(ctx context.Context, login, pwd string) (User, error) {
	usr, err := svc.GetByUsernameOrEmail(ctx, login)
	if err != nil {
		if errors.Cause(err) == ErrNotFound {
			return User{}, ErrInvalidCredentials
		}
		return User{}, errors.Wrap(err, "finding user by username or email")
	}
	if err = usr.CheckPassword(pwd); err != nil {
		return User{}, ErrInvalidCredentials
	}
	if !usr.IsActive {
		return User{}, ErrAccountDeactivated
	}

	now := core.NowFunc()
	usr.LastLogin = &now
	usr, err = svc.repo.UpdateUser(ctx, usr)
	return usr, errors.Wrap(err, "setting last login")
}

func (svc *Service) GetByID(ctx context.Context, id string) (User, error) {
	return svc.repo.GetUser(ctx, GetFilter{ID: id})
}

func (svc *Service) GetByUsernameOrEmail(ctx context.Context, login string) (User, error) {
	return svc.repo.GetUser(ctx, GetFilter{UsernameOrEmail: core.CleanString(login, true /* lower */)})
}

func (svc *Service) Query(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering) ([]User, error) {
	return svc.repo.QueryUsers(ctx, filter, ordering)
}

// Identity resolves the caller identity of an active user, groups included.
func (svc *Service) Identity(ctx context.Context, id string) (core.Identity, error) {
	usr, err := svc.GetByID(ctx, id)
	if err != nil {
		return core.Anonymous, err
	}
	if !usr.IsActive {
		return core.Anonymous, ErrAccountDeactivated
	}
	return usr.Identity(), nil
}

// UpdateProfile applies the set fields of up. up must have been validated.
func (svc *Service) UpdateProfile(ctx context.Context, id string, up UpdateProfile) (User, error) {
	usr, err := svc.GetByID(ctx, id)
	if err != nil {
		return User{}, err
	}
	if up.Email != nil && *up.Email != "" && *up.Email != usr.Email {
		if err = svc.checkUniqueness(ctx, "", *up.Email, usr.ID); err != nil {
			return User{}, err
		}
		usr.Email = *up.Email
	}
	if up.Bio != nil {
		usr.Bio = *up.Bio
	}
	usr.UpdatedAt = core.NowFunc()

	usr, err = svc.repo.UpdateUser(ctx, usr)
	return usr, errors.Wrap(err, "updating user")
}

// SetPassword replaces the password of usr, bypassing the password policy.
func (svc *Service) SetPassword(ctx context.Context, usr User, pwd string) (User, error) {
	if err := usr.SetPassword(pwd); err != nil {
		return User{}, errors.Wrap(err, "hashing password")
	}
	usr.UpdatedAt = core.NowFunc()
	usr, err := svc.repo.UpdateUser(ctx, usr)
	return usr, errors.Wrap(err, "updating user")
}

// Save updates or creates usr as is. Used by admin tooling.
func (svc *Service) Save(ctx context.Context, usr User) (User, error) {
	usr.UpdatedAt = core.NowFunc()
	if usr.ID == "" {
		usr.CreatedAt = usr.UpdatedAt
		return svc.repo.CreateUser(ctx, usr)
	}
	return svc.repo.UpdateUser(ctx, usr)
}

// DeleteAccount deletes the user after checking their password.
// With purge set, their topics, replies and votes are deleted in the same unit of work.
func (svc *Service) DeleteAccount(ctx context.Context, id string, da DeleteAccount) error {
	usr, err := svc.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if err = usr.CheckPassword(da.Password); err != nil {
		return core.NewFieldValidationError("password", errWrongPassword)
	}
	if da.Purge && svc.purger != nil {
		return errors.Wrap(svc.purger.PurgeUser(ctx, usr.ID), "purging user")
	}
	return errors.Wrap(svc.repo.DeleteUser(ctx, usr.ID), "deleting user")
}

func (svc *Service) CreateGroup(ctx context.Context, ng NewGroup) (core.Group, error) {
	grp, err := svc.repo.CreateGroup(ctx, core.Group{Name: ng.Name})
	if err != nil {
		if errors.Cause(err) == ErrGroupExists {
			return core.Group{}, core.NewFieldValidationError("name", ErrGroupExists)
		}
		return core.Group{}, errors.Wrap(err, "creating group")
	}
	return grp, nil
}

func (svc *Service) ListGroups(ctx context.Context) ([]core.Group, error) {
	return svc.repo.ListGroups(ctx)
}

// GroupByName finds a group by its exact name.
func (svc *Service) GroupByName(ctx context.Context, name string) (core.Group, error) {
	groups, err := svc.repo.ListGroups(ctx)
	if err != nil {
		return core.Group{}, errors.Wrap(err, "listing groups")
	}
	for _, g := range groups {
		if g.Name == name {
			return g, nil
		}
	}
	return core.Group{}, ErrGroupNotFound
}

func (svc *Service) AddToGroup(ctx context.Context, userID, groupID string) error {
	if _, err := svc.repo.GetGroup(ctx, groupID); err != nil {
		return err
	}
	if _, err := svc.GetByID(ctx, userID); err != nil {
		return err
	}
	return svc.repo.AddUserToGroup(ctx, userID, groupID)
}

func (svc *Service) RemoveFromGroup(ctx context.Context, userID, groupID string) error {
	return svc.repo.RemoveUserFromGroup(ctx, userID, groupID)
}

func (svc *Service) UserGroups(ctx context.Context, userID string) ([]core.Group, error) {
	return svc.repo.UserGroups(ctx, userID)
}
