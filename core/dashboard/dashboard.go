// Package dashboard aggregates forum and membership counts for administrators.
package dashboard

import (
	"context"

	"github.com/pkg/errors"

	"github.com/trezcool/jukwaa/core"
	"github.com/trezcool/jukwaa/core/forum"
)

type (
	ClassStats struct {
		ClassID       string `json:"class_id" db:"class_id"`
		Name          string `json:"name" db:"name"`
		SubCategories int    `json:"subcategories" db:"subcategories"`
		Topics        int    `json:"topics" db:"topics"`
		Replies       int    `json:"replies" db:"replies"`
		Votes         int    `json:"votes" db:"votes"`
	}

	GroupStats struct {
		Name    string `json:"name" db:"name"`
		Members int    `json:"members" db:"members"`
	}

	Overview struct {
		Users   int          `json:"users"`
		Groups  []GroupStats `json:"groups"`
		Classes []ClassStats `json:"classes"`
	}

	Repository interface {
		CountUsers(ctx context.Context) (int, error)
		// CountGroupMembers returns the member count of each named group; unknown groups count 0.
		CountGroupMembers(ctx context.Context, names []string) ([]GroupStats, error)
		// ClassStats returns the per-class counts, ordered by class name.
		ClassStats(ctx context.Context) ([]ClassStats, error)
	}

	Service struct {
		repo   Repository
		groups []string
		modGrp string
	}
)

func NewService(repo Repository, conf *core.Config) *Service {
	svc := &Service{repo: repo}
	if conf != nil {
		svc.groups = conf.Forum.DashboardGroups
		svc.modGrp = conf.Forum.ModeratorGroup
	}
	return svc
}

func (svc *Service) Overview(ctx context.Context, identity core.Identity) (Overview, error) {
	if !forum.IsAdministrator(identity, svc.modGrp) {
		return Overview{}, forum.ErrUnauthorized
	}

	var (
		ov  Overview
		err error
	)
	if ov.Users, err = svc.repo.CountUsers(ctx); err != nil {
		return Overview{}, errors.Wrap(err, "counting users")
	}
	if ov.Groups, err = svc.repo.CountGroupMembers(ctx, svc.groups); err != nil {
		return Overview{}, errors.Wrap(err, "counting group members")
	}
	if ov.Classes, err = svc.repo.ClassStats(ctx); err != nil {
		return Overview{}, errors.Wrap(err, "computing class stats")
	}
	return ov, nil
}
