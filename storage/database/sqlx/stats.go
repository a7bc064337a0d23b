package sqlxrepos

import (
	"context"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/pkg/errors"

	"github.com/trezcool/jukwaa/core/dashboard"
)

type statsRepository struct {
	db *sqlx.DB
}

var _ dashboard.Repository = (*statsRepository)(nil) // interface compliance check

func NewStatsRepository(db *sqlx.DB) dashboard.Repository {
	return &statsRepository{db: db}
}

func (repo *statsRepository) CountUsers(ctx context.Context) (int, error) {
	var n int
	err := repo.db.GetContext(ctx, &n, `SELECT COUNT(*) FROM "user"`)
	return n, errors.Wrap(err, "counting users")
}

// CountGroupMembers keeps the order of names.
func (repo *statsRepository) CountGroupMembers(ctx context.Context, names []string) ([]dashboard.GroupStats, error) {
	stats := make([]dashboard.GroupStats, 0, len(names))
	if len(names) == 0 {
		return stats, nil
	}
	err := repo.db.SelectContext(ctx, &stats, `
		SELECT n.name, COUNT(ug.user_id) AS members
		FROM UNNEST($1::text[]) WITH ORDINALITY AS n(name, pos)
		LEFT JOIN "group" g ON g.name = n.name
		LEFT JOIN user_group ug ON ug.group_id = g.id
		GROUP BY n.name, n.pos
		ORDER BY n.pos`, pq.Array(names))
	if err != nil {
		return nil, errors.Wrap(err, "counting group members")
	}
	return stats, nil
}

const classStatsQuery = `
SELECT
	c.id AS class_id,
	c.name,
	(SELECT COUNT(*) FROM subcategory s WHERE s.class_id = c.id) AS subcategories,
	(SELECT COUNT(*) FROM topic t
		INNER JOIN subcategory s ON s.id = t.subcategory_id
		WHERE s.class_id = c.id) AS topics,
	(SELECT COUNT(*) FROM reply r
		INNER JOIN topic t ON t.id = r.topic_id
		INNER JOIN subcategory s ON s.id = t.subcategory_id
		WHERE s.class_id = c.id) AS replies,
	(SELECT COUNT(*) FROM vote v
		INNER JOIN reply r ON r.id = v.reply_id
		INNER JOIN topic t ON t.id = r.topic_id
		INNER JOIN subcategory s ON s.id = t.subcategory_id
		WHERE s.class_id = c.id) AS votes
FROM class c
ORDER BY c.name, c.id`

func (repo *statsRepository) ClassStats(ctx context.Context) ([]dashboard.ClassStats, error) {
	stats := make([]dashboard.ClassStats, 0)
	if err := repo.db.SelectContext(ctx, &stats, classStatsQuery); err != nil {
		return nil, errors.Wrap(err, "computing class stats")
	}
	return stats, nil
}
