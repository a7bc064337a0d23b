package forum

import "github.com/trezcool/jukwaa/core"

// CanAccess reports whether identity may view, and act within, class.
// Public classes are open to everyone, anonymous callers included.
// Private classes are open to the users and group members they list, and nobody else.
func CanAccess(identity core.Identity, class Class) bool {
	if class.IsPublic {
		return true
	}
	if identity.IsAnonymous() {
		return false
	}
	for _, uid := range class.AllowedUserIDs {
		if uid == identity.ID {
			return true
		}
	}
	if len(class.AllowedGroupIDs) == 0 {
		return false
	}
	allowed := make(map[string]struct{}, len(class.AllowedGroupIDs))
	for _, gid := range class.AllowedGroupIDs {
		allowed[gid] = struct{}{}
	}
	for _, gid := range identity.GroupIDs() {
		if _, ok := allowed[gid]; ok {
			return true
		}
	}
	return false
}

// IsAdministrator reports whether identity is a superuser or a member of the moderator group.
func IsAdministrator(identity core.Identity, moderatorGroup string) bool {
	if identity.IsAnonymous() {
		return false
	}
	return identity.IsSuperuser || (moderatorGroup != "" && identity.InGroup(moderatorGroup))
}

// IsAuthor reports whether identity authored content attributed to authorID.
// Content whose author was deleted has no author left.
func IsAuthor(identity core.Identity, authorID string) bool {
	return !identity.IsAnonymous() && authorID != "" && identity.ID == authorID
}
