package dummydb

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/trezcool/jukwaa/core"
	"github.com/trezcool/jukwaa/core/user"
)

type userRepository struct {
	db *DB
}

var _ user.Repository = (*userRepository)(nil) // interface compliance check

func NewUserRepository(db *DB) user.Repository {
	return &userRepository{db: db}
}

// load returns a copy of usr with its groups, ordered by name.
func (repo *userRepository) load(usr *user.User) user.User {
	u := *usr
	u.Groups = repo.groupsOf(usr.ID)
	return u
}

func (repo *userRepository) groupsOf(userID string) []core.Group {
	groups := make([]core.Group, 0, len(repo.db.memberships[userID]))
	for gid := range repo.db.memberships[userID] {
		groups = append(groups, repo.db.groups[gid])
	}
	sort.Slice(groups, func(i, j int) bool { return groups[i].Name < groups[j].Name })
	return groups
}

func (repo *userRepository) CheckUniqueness(_ context.Context, username, email, excludedID string) error {
	repo.db.RLock()
	defer repo.db.RUnlock()

	for _, usr := range repo.db.users {
		if usr.ID == excludedID {
			continue
		}
		if username != "" && usr.Username == username {
			return user.ErrUsernameExists
		}
		if email != "" && usr.Email == email {
			return user.ErrEmailExists
		}
	}
	return nil
}

func (repo *userRepository) CreateUser(_ context.Context, usr user.User) (user.User, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	for _, g := range usr.Groups {
		if _, ok := repo.db.groups[g.ID]; !ok {
			return user.User{}, user.ErrGroupNotFound
		}
	}
	if usr.ID == "" {
		usr.ID = uuid.New().String()
	}
	members := make(map[string]struct{}, len(usr.Groups))
	for _, g := range usr.Groups {
		members[g.ID] = struct{}{}
	}
	repo.db.memberships[usr.ID] = members

	stored := usr
	stored.Groups = nil
	repo.db.users[usr.ID] = &stored
	return repo.load(&stored), nil
}

func (repo *userRepository) GetUser(_ context.Context, filter user.GetFilter) (user.User, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if filter.ID != "" {
		if usr, ok := repo.db.users[filter.ID]; ok {
			return repo.load(usr), nil
		}
		return user.User{}, user.ErrNotFound
	}
	for _, usr := range repo.db.users {
		switch {
		case filter.Username != "" && usr.Username == filter.Username,
			filter.Email != "" && usr.Email == filter.Email,
			filter.UsernameOrEmail != "" && (usr.Username == filter.UsernameOrEmail || usr.Email == filter.UsernameOrEmail):
			return repo.load(usr), nil
		}
	}
	return user.User{}, user.ErrNotFound
}

func (repo *userRepository) QueryUsers(_ context.Context, filter *user.QueryFilter, ordering []core.DBOrdering) ([]user.User, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	users := make([]user.User, 0, len(repo.db.users))
	for _, usr := range repo.db.users {
		u := repo.load(usr)
		if filter != nil && !matches(u, filter) {
			continue
		}
		users = append(users, u)
	}

	if len(ordering) == 0 {
		ordering = []core.DBOrdering{{Field: "username", Ascending: true}}
	}
	sort.SliceStable(users, func(i, j int) bool {
		for _, ord := range ordering {
			c := compareUsers(users[i], users[j], ord.Field)
			if c == 0 {
				continue
			}
			if ord.Ascending {
				return c < 0
			}
			return c > 0
		}
		return false
	})
	return users, nil
}

func matches(u user.User, filter *user.QueryFilter) bool {
	if filter.Search != "" {
		search := strings.ToLower(filter.Search)
		if !strings.Contains(u.Username, search) && !strings.Contains(u.Email, search) {
			return false
		}
	}
	if filter.IsActive != nil && u.IsActive != *filter.IsActive {
		return false
	}
	if filter.Group != "" && !u.InGroup(filter.Group) {
		return false
	}
	return true
}

func compareUsers(a, b user.User, field string) int {
	switch field {
	case "username":
		return strings.Compare(a.Username, b.Username)
	case "email":
		return strings.Compare(a.Email, b.Email)
	case "created_at":
		return compareTimes(a.CreatedAt, b.CreatedAt)
	case "last_login":
		var ta, tb time.Time
		if a.LastLogin != nil {
			ta = *a.LastLogin
		}
		if b.LastLogin != nil {
			tb = *b.LastLogin
		}
		return compareTimes(ta, tb)
	case "is_active":
		switch {
		case a.IsActive == b.IsActive:
			return 0
		case b.IsActive:
			return -1
		}
		return 1
	}
	return 0
}

func compareTimes(a, b time.Time) int {
	switch {
	case a.Before(b):
		return -1
	case a.After(b):
		return 1
	}
	return 0
}

func (repo *userRepository) UpdateUser(_ context.Context, usr user.User) (user.User, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	orig, ok := repo.db.users[usr.ID]
	if !ok {
		return user.User{}, user.ErrNotFound
	}
	stored := usr
	stored.Groups = nil
	stored.CreatedAt = orig.CreatedAt
	if stored.PasswordHash == nil {
		stored.PasswordHash = orig.PasswordHash
	}
	repo.db.users[usr.ID] = &stored
	return repo.load(&stored), nil
}

func (repo *userRepository) DeleteUser(_ context.Context, id string) error {
	repo.db.Lock()
	defer repo.db.Unlock()

	if !repo.db.deleteUser(id) {
		return user.ErrNotFound
	}
	return nil
}

// deleteUser removes the user, clearing its references. The caller holds the lock.
func (db *DB) deleteUser(id string) bool {
	if _, ok := db.users[id]; !ok {
		return false
	}
	delete(db.users, id)
	delete(db.memberships, id)

	// ON DELETE CASCADE / SET NULL
	for _, c := range db.classes {
		c.AllowedUserIDs = removeString(c.AllowedUserIDs, id)
	}
	for _, t := range db.topics {
		if t.AuthorID == id {
			t.AuthorID = ""
		}
	}
	for _, r := range db.replies {
		if r.AuthorID == id {
			r.AuthorID = ""
		}
	}
	for _, v := range db.votes {
		if v.VoterID == id {
			v.VoterID = ""
		}
	}
	for _, p := range db.posts {
		if p.AuthorID == id {
			p.AuthorID = ""
		}
	}
	return true
}

func (repo *userRepository) CreateGroup(_ context.Context, group core.Group) (core.Group, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	for _, g := range repo.db.groups {
		if g.Name == group.Name {
			return core.Group{}, user.ErrGroupExists
		}
	}
	if group.ID == "" {
		group.ID = uuid.New().String()
	}
	repo.db.groups[group.ID] = group
	return group, nil
}

func (repo *userRepository) GetGroup(_ context.Context, id string) (core.Group, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if g, ok := repo.db.groups[id]; ok {
		return g, nil
	}
	return core.Group{}, user.ErrGroupNotFound
}

func (repo *userRepository) ListGroups(_ context.Context) ([]core.Group, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	groups := make([]core.Group, 0, len(repo.db.groups))
	for _, g := range repo.db.groups {
		groups = append(groups, g)
	}
	sort.Slice(groups, func(i, j int) bool { return groups[i].Name < groups[j].Name })
	return groups, nil
}

func (repo *userRepository) AddUserToGroup(_ context.Context, userID, groupID string) error {
	repo.db.Lock()
	defer repo.db.Unlock()

	if _, ok := repo.db.users[userID]; !ok {
		return user.ErrNotFound
	}
	if _, ok := repo.db.groups[groupID]; !ok {
		return user.ErrGroupNotFound
	}
	if repo.db.memberships[userID] == nil {
		repo.db.memberships[userID] = make(map[string]struct{})
	}
	repo.db.memberships[userID][groupID] = struct{}{}
	return nil
}

func (repo *userRepository) RemoveUserFromGroup(_ context.Context, userID, groupID string) error {
	repo.db.Lock()
	defer repo.db.Unlock()
	delete(repo.db.memberships[userID], groupID)
	return nil
}

func (repo *userRepository) UserGroups(_ context.Context, userID string) ([]core.Group, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()
	return repo.groupsOf(userID), nil
}
