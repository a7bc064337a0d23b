// Package dummydb is an in-memory storage backend, used in tests and local development.
package dummydb

import (
	"sync"

	"github.com/trezcool/jukwaa/core"
	"github.com/trezcool/jukwaa/core/blog"
	"github.com/trezcool/jukwaa/core/forum"
	"github.com/trezcool/jukwaa/core/user"
)

// Seeded groups, as created by the migrations.
var seedGroups = []core.Group{
	{ID: "7c9e6679-7425-40de-944b-e07fc1f90ae7", Name: "Moderators"},
	{ID: "0b6c9ad1-1b3b-4c39-9d2e-6a4f5f6c1a01", Name: "Alumni"},
	{ID: "5d1a2f8e-3c4b-4e7a-8f9d-0a1b2c3d4e5f", Name: "Visitors"},
}

// DB holds every table behind a single lock, so that multi-table operations are atomic.
type DB struct {
	sync.RWMutex

	users       map[string]*user.User
	groups      map[string]core.Group
	memberships map[string]map[string]struct{} // {user_id: {group_id}}

	classes map[string]*forum.Class
	subs    map[string]*forum.SubCategory
	tags    map[string]*forum.Tag
	topics  map[string]*forum.Topic
	replies map[string]*forum.Reply
	votes   map[string]*forum.Vote
	posts   map[string]*blog.Post
}

func Open() (*DB, error) {
	db := &DB{
		users:       make(map[string]*user.User),
		groups:      make(map[string]core.Group),
		memberships: make(map[string]map[string]struct{}),
		classes:     make(map[string]*forum.Class),
		subs:        make(map[string]*forum.SubCategory),
		tags:        make(map[string]*forum.Tag),
		topics:      make(map[string]*forum.Topic),
		replies:     make(map[string]*forum.Reply),
		votes:       make(map[string]*forum.Vote),
		posts:       make(map[string]*blog.Post),
	}
	for _, g := range seedGroups {
		db.groups[g.ID] = g
	}
	return db, nil
}

// SetReplyVoteCount overwrites the cached counter of a reply, bypassing the vote ledger.
func (db *DB) SetReplyVoteCount(replyID string, count int) bool {
	db.Lock()
	defer db.Unlock()
	r, ok := db.replies[replyID]
	if ok {
		r.VoteCount = count
	}
	return ok
}

// CountVotes returns the number of vote rows referencing a reply.
func (db *DB) CountVotes(replyID string) int {
	db.RLock()
	defer db.RUnlock()
	return db.countVotes(replyID)
}

func (db *DB) countVotes(replyID string) int {
	n := 0
	for _, v := range db.votes {
		if v.ReplyID == replyID {
			n++
		}
	}
	return n
}

func copyStrings(ss []string) []string {
	out := make([]string, len(ss))
	copy(out, ss)
	return out
}

func removeString(ss []string, s string) []string {
	out := ss[:0]
	for _, v := range ss {
		if v != s {
			out = append(out, v)
		}
	}
	return out
}
