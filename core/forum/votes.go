package forum

import (
	"context"
	"fmt"

	"github.com/pkg/errors"

	"github.com/trezcool/jukwaa/core"
)

// ToggleVote adds the vote of identity on a reply, or removes it if it was already there.
// Lost races on the vote uniqueness are retried up to the configured number of attempts.
func (svc *Service) ToggleVote(ctx context.Context, identity core.Identity, replyID string) (VoteResult, error) {
	if identity.IsAnonymous() {
		return VoteResult{}, ErrUnauthorized
	}
	if _, err := svc.accessibleReply(ctx, identity, replyID); err != nil {
		return VoteResult{}, err
	}

	for attempt := 1; attempt <= svc.conf.VoteMaxRetries; attempt++ {
		if err := ctx.Err(); err != nil {
			return VoteResult{}, err
		}
		res, err := svc.repo.ToggleVote(ctx, identity.ID, replyID)
		if err == nil {
			svc.recorder.VoteToggled(res.State)
			return res, nil
		}
		if errors.Cause(err) != ErrConflict {
			return VoteResult{}, errors.Wrap(err, "toggling vote")
		}
		svc.recorder.VoteConflict()
	}

	svc.recorder.VoteRetriesExhausted()
	return VoteResult{}, ErrTransient
}

// ReconcileVotes lists the replies whose counter drifted from their votes and, if repair is set, fixes them.
func (svc *Service) ReconcileVotes(ctx context.Context, repair bool) ([]VoteDrift, error) {
	if svc.auditor == nil {
		return nil, errors.New("no vote auditor configured")
	}
	drifts, err := svc.auditor.FindVoteDrift(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "finding vote drift")
	}
	if len(drifts) == 0 || !repair {
		return drifts, nil
	}

	ids := make([]string, 0, len(drifts))
	for _, d := range drifts {
		ids = append(ids, d.ReplyID)
	}
	n, err := svc.auditor.RepairVoteCounts(ctx, ids)
	if err != nil {
		return drifts, errors.Wrap(err, "repairing vote counts")
	}
	if svc.logger != nil {
		svc.logger.Warn(fmt.Sprintf("repaired %d drifted vote counters", n), map[string]interface{}{"drifts": drifts})
	}
	return drifts, nil
}

// AuditVotes is ReconcileVotes for an administrator.
func (svc *Service) AuditVotes(ctx context.Context, identity core.Identity, repair bool) ([]VoteDrift, error) {
	if !svc.IsAdministrator(identity) {
		return nil, ErrUnauthorized
	}
	return svc.ReconcileVotes(ctx, repair)
}
