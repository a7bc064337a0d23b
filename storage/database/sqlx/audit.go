package sqlxrepos

import (
	"context"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/trezcool/jukwaa/core/forum"
)

type auditor struct {
	db *sqlx.DB
}

var _ forum.Auditor = (*auditor)(nil) // interface compliance check

func NewAuditor(db *sqlx.DB) forum.Auditor {
	return &auditor{db: db}
}

const driftQuery = `
SELECT r.id AS reply_id, r.vote_count AS cached, COUNT(v.id) AS actual
FROM reply r
LEFT JOIN vote v ON v.reply_id = r.id
GROUP BY r.id, r.vote_count
HAVING r.vote_count <> COUNT(v.id)
ORDER BY r.id`

func (a *auditor) FindVoteDrift(ctx context.Context) ([]forum.VoteDrift, error) {
	drifts := make([]forum.VoteDrift, 0)
	if err := a.db.SelectContext(ctx, &drifts, driftQuery); err != nil {
		return nil, errors.Wrap(err, "finding vote drift")
	}
	return drifts, nil
}

// RepairVoteCounts recounts the given replies in a single statement, leaving the accurate ones untouched.
func (a *auditor) RepairVoteCounts(ctx context.Context, replyIDs []string) (int, error) {
	if len(replyIDs) == 0 {
		return 0, nil
	}
	query, args, err := sqlx.In(`
		UPDATE reply r SET vote_count = c.actual
		FROM (
			SELECT r2.id, COUNT(v.id) AS actual
			FROM reply r2 LEFT JOIN vote v ON v.reply_id = r2.id
			WHERE r2.id IN (?)
			GROUP BY r2.id
		) c
		WHERE r.id = c.id AND r.vote_count <> c.actual`, replyIDs)
	if err != nil {
		return 0, errors.Wrap(err, "building repair query")
	}
	res, err := a.db.ExecContext(ctx, a.db.Rebind(query), args...)
	if err != nil {
		return 0, errors.Wrap(err, "repairing vote counts")
	}
	n, err := res.RowsAffected()
	return int(n), errors.Wrap(err, "repairing vote counts")
}
