package core

import "context"

type Group struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Identity is the caller of an operation, as established by the identity provider.
// The zero value is the anonymous caller.
type Identity struct {
	ID          string
	Username    string
	Email       string
	IsSuperuser bool
	Groups      []Group
}

var Anonymous = Identity{}

func (id Identity) IsAnonymous() bool { return id.ID == "" }

func (id Identity) GroupIDs() []string {
	ids := make([]string, 0, len(id.Groups))
	for _, g := range id.Groups {
		ids = append(ids, g.ID)
	}
	return ids
}

func (id Identity) InGroup(name string) bool {
	for _, g := range id.Groups {
		if g.Name == name {
			return true
		}
	}
	return false
}

// GroupMembership resolves the groups a user belongs to.
type GroupMembership interface {
	UserGroups(ctx context.Context, userID string) ([]Group, error)
}
