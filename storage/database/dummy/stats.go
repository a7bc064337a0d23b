package dummydb

import (
	"context"
	"sort"

	"github.com/trezcool/jukwaa/core/dashboard"
	"github.com/trezcool/jukwaa/core/forum"
)

type auditor struct {
	db *DB
}

var _ forum.Auditor = (*auditor)(nil)

func NewAuditor(db *DB) forum.Auditor {
	return &auditor{db: db}
}

func (a *auditor) FindVoteDrift(_ context.Context) ([]forum.VoteDrift, error) {
	a.db.RLock()
	defer a.db.RUnlock()

	actual := make(map[string]int, len(a.db.replies))
	for _, v := range a.db.votes {
		actual[v.ReplyID]++
	}
	drifts := make([]forum.VoteDrift, 0)
	for id, r := range a.db.replies {
		if r.VoteCount != actual[id] {
			drifts = append(drifts, forum.VoteDrift{ReplyID: id, Cached: r.VoteCount, Actual: actual[id]})
		}
	}
	sort.Slice(drifts, func(i, j int) bool { return drifts[i].ReplyID < drifts[j].ReplyID })
	return drifts, nil
}

func (a *auditor) RepairVoteCounts(_ context.Context, replyIDs []string) (int, error) {
	a.db.Lock()
	defer a.db.Unlock()

	n := 0
	for _, id := range replyIDs {
		r, ok := a.db.replies[id]
		if !ok {
			continue
		}
		if actual := a.db.countVotes(id); r.VoteCount != actual {
			r.VoteCount = actual
			n++
		}
	}
	return n, nil
}

type statsRepository struct {
	db *DB
}

var _ dashboard.Repository = (*statsRepository)(nil)

func NewStatsRepository(db *DB) dashboard.Repository {
	return &statsRepository{db: db}
}

func (repo *statsRepository) CountUsers(_ context.Context) (int, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()
	return len(repo.db.users), nil
}

func (repo *statsRepository) CountGroupMembers(_ context.Context, names []string) ([]dashboard.GroupStats, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	stats := make([]dashboard.GroupStats, 0, len(names))
	for _, name := range names {
		gs := dashboard.GroupStats{Name: name}
		for _, groups := range repo.db.memberships {
			for gid := range groups {
				if repo.db.groups[gid].Name == name {
					gs.Members++
				}
			}
		}
		stats = append(stats, gs)
	}
	return stats, nil
}

func (repo *statsRepository) ClassStats(_ context.Context) ([]dashboard.ClassStats, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	byClass := make(map[string]*dashboard.ClassStats, len(repo.db.classes))
	stats := make([]dashboard.ClassStats, 0, len(repo.db.classes))
	for id, c := range repo.db.classes {
		byClass[id] = &dashboard.ClassStats{ClassID: id, Name: c.Name}
	}
	subClass := make(map[string]string, len(repo.db.subs))
	for id, s := range repo.db.subs {
		subClass[id] = s.ClassID
		byClass[s.ClassID].SubCategories++
	}
	topicClass := make(map[string]string, len(repo.db.topics))
	for id, t := range repo.db.topics {
		topicClass[id] = subClass[t.SubCategoryID]
		byClass[topicClass[id]].Topics++
	}
	replyClass := make(map[string]string, len(repo.db.replies))
	for id, r := range repo.db.replies {
		replyClass[id] = topicClass[r.TopicID]
		byClass[replyClass[id]].Replies++
	}
	for _, v := range repo.db.votes {
		byClass[replyClass[v.ReplyID]].Votes++
	}

	for _, cs := range byClass {
		stats = append(stats, *cs)
	}
	sort.Slice(stats, func(i, j int) bool {
		if stats[i].Name != stats[j].Name {
			return stats[i].Name < stats[j].Name
		}
		return stats[i].ClassID < stats[j].ClassID
	})
	return stats, nil
}
