package user

import (
	"time"

	"github.com/go-playground/validator/v10"
	"golang.org/x/crypto/bcrypt"

	"github.com/trezcool/jukwaa/core"
)

type User struct {
	ID           string       `json:"id"`
	Username     string       `json:"username"`
	Email        string       `json:"email"`
	Bio          string       `json:"bio"`
	IsActive     bool         `json:"is_active"`
	IsSuperuser  bool         `json:"is_superuser"`
	Groups       []core.Group `json:"groups"`
	PasswordHash []byte       `json:"-"`
	CreatedAt    time.Time    `json:"created_at"` // UTC
	UpdatedAt    time.Time    `json:"updated_at"` // UTC
	LastLogin    *time.Time   `json:"last_login"` // UTC
}

func (u *User) SetPassword(pwd string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(pwd), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	u.PasswordHash = hash
	return nil
}

func (u *User) CheckPassword(pwd string) error {
	return bcrypt.CompareHashAndPassword(u.PasswordHash, []byte(pwd))
}

// Identity returns the caller identity of u, as consumed by the access policies.
func (u User) Identity() core.Identity {
	return core.Identity{
		ID:          u.ID,
		Username:    u.Username,
		Email:       u.Email,
		IsSuperuser: u.IsSuperuser,
		Groups:      u.Groups,
	}
}

func (u User) InGroup(name string) bool {
	return u.Identity().InGroup(name)
}

// NewUser contains information needed to register a new User.
type NewUser struct {
	Username        string `json:"username" validate:"required,min=3,max=150,alphanum_"`
	Email           string `json:"email" validate:"required,email"`
	Password        string `json:"password" validate:"required"`
	PasswordConfirm string `json:"password_confirm" validate:"required,eqfield=Password"`
	GroupID         string `json:"group_id" validate:"omitempty,uuid"`
	IsSuperuser     bool   `json:"-"`
}

func (nu *NewUser) Validate(validate *validator.Validate) error {
	nu.Username = core.CleanString(nu.Username, true /* lower */)
	nu.Email = core.CleanString(nu.Email, true /* lower */)
	nu.GroupID = core.CleanString(nu.GroupID)
	return validate.Struct(nu)
}

// UpdateProfile defines what a User may change on their own profile.
type UpdateProfile struct {
	Email *string `json:"email" validate:"omitempty,email"`
	Bio   *string `json:"bio" validate:"omitempty,max=2000"`
}

func (up *UpdateProfile) Validate(validate *validator.Validate) error {
	if up.Email != nil {
		email := core.CleanString(*up.Email, true /* lower */)
		up.Email = &email
	}
	if up.Bio != nil {
		bio := core.CleanString(*up.Bio)
		up.Bio = &bio
	}
	return validate.Struct(up)
}

// ChangePassword is used to set a new password on an existing User.
type ChangePassword struct {
	Password        string `json:"password" validate:"required"`
	PasswordConfirm string `json:"password_confirm" validate:"required,eqfield=Password"`

	// user attributes, checked for similarity
	Username string `json:"-"`
	Email    string `json:"-"`
}

func (cp *ChangePassword) Validate(validate *validator.Validate) error {
	return validate.Struct(cp)
}

type DeleteAccount struct {
	Password string `json:"password" validate:"required"`
	// Purge deletes the user's topics, replies and votes instead of anonymizing them.
	Purge bool `json:"purge"`
}

type GetFilter struct {
	ID              string
	Username        string
	Email           string
	UsernameOrEmail string
}

type QueryFilter struct {
	Search   string `query:"search"`
	IsActive *bool  `query:"is_active"`
	Group    string `query:"group"`
}

func (qf *QueryFilter) IsEmpty() bool {
	return qf.Search == "" && qf.IsActive == nil && qf.Group == ""
}

func (qf *QueryFilter) Clean() {
	qf.Search = core.CleanString(qf.Search)
	qf.Group = core.CleanString(qf.Group)
}

// OrderingFields lists the fields users can be ordered by.
var OrderingFields = []string{"username", "email", "created_at", "last_login", "is_active"}

type NewGroup struct {
	Name string `json:"name" validate:"required,max=150,notblank"`
}

func (ng *NewGroup) Validate(validate *validator.Validate) error {
	ng.Name = core.CleanString(ng.Name)
	return validate.Struct(ng)
}
