package forum

import (
	"context"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"

	"github.com/trezcool/jukwaa/core"
)

var (
	// errors
	ErrUnauthorized = errors.New("permission denied")
	ErrNotFound     = errors.New("not found")
	// ErrConflict is returned by repositories when a vote races with another one for the same voter and reply.
	ErrConflict = errors.New("conflicting vote")
	// ErrTransient is returned when a vote kept conflicting after all retries.
	ErrTransient    = errors.New("vote could not be recorded, please retry")
	ErrTagExists    = errors.New("a tag with this name already exists")
	ErrUnknownUser  = errors.New("unknown user")
	ErrUnknownGroup = errors.New("unknown group")
	ErrUnknownTag   = errors.New("unknown tag")
)

type (
	TopicFilter struct {
		SubCategoryID string
		TagID         string
		// ClassIDs restricts topics to those classes when not nil.
		ClassIDs []string
	}

	// Contact is what notifications need to know about a user.
	Contact struct {
		Username string
		Email    string
	}

	Repository interface {
		QueryClasses(ctx context.Context) ([]Class, error)
		GetClass(ctx context.Context, id string) (Class, error)
		// CreateClass and UpdateClass return ErrUnknownUser or ErrUnknownGroup for dangling allow-list ids.
		CreateClass(ctx context.Context, class Class) (Class, error)
		UpdateClass(ctx context.Context, class Class) (Class, error)
		DeleteClass(ctx context.Context, id string) (DeleteSummary, error)

		QuerySubCategories(ctx context.Context, classID string) ([]SubCategory, error)
		GetSubCategory(ctx context.Context, id string) (SubCategory, error)
		CreateSubCategory(ctx context.Context, sub SubCategory) (SubCategory, error)
		UpdateSubCategory(ctx context.Context, sub SubCategory) (SubCategory, error)
		DeleteSubCategory(ctx context.Context, id string) (DeleteSummary, error)

		QueryTags(ctx context.Context) ([]Tag, error)
		GetTag(ctx context.Context, id string) (Tag, error)
		// CreateTag and UpdateTag return ErrTagExists when the name is taken, case-insensitively.
		CreateTag(ctx context.Context, tag Tag) (Tag, error)
		UpdateTag(ctx context.Context, tag Tag) (Tag, error)
		DeleteTag(ctx context.Context, id string) (DeleteSummary, error)
		TopicTags(ctx context.Context, topicID string) ([]Tag, error)
		SubCategoryTags(ctx context.Context, subCategoryID string) ([]Tag, error)

		// QueryTopics returns the matching topics, newest first.
		QueryTopics(ctx context.Context, filter TopicFilter) ([]Topic, error)
		GetTopic(ctx context.Context, id string) (Topic, error)
		// CreateTopic and UpdateTopic return ErrUnknownTag for dangling tag ids.
		CreateTopic(ctx context.Context, topic Topic) (Topic, error)
		UpdateTopic(ctx context.Context, topic Topic) (Topic, error)
		DeleteTopic(ctx context.Context, id string) (DeleteSummary, error)

		// QueryReplies returns the replies of a topic by vote count then recency, both descending.
		QueryReplies(ctx context.Context, topicID string) ([]Reply, error)
		GetReply(ctx context.Context, id string) (Reply, error)
		CreateReply(ctx context.Context, reply Reply) (Reply, error)
		UpdateReply(ctx context.Context, reply Reply) (Reply, error)
		DeleteReply(ctx context.Context, id string) (DeleteSummary, error)

		// ToggleVote atomically removes the vote of voterID on replyID if there is one, or adds it,
		// keeping the reply counter in step. It returns ErrConflict if it lost a race on the vote uniqueness.
		ToggleVote(ctx context.Context, voterID, replyID string) (VoteResult, error)

		// PurgeUser deletes the votes, replies and topics of a user and then the user itself,
		// all or nothing, keeping counters in step. It returns ErrUnknownUser for a missing user.
		PurgeUser(ctx context.Context, userID string) (DeleteSummary, error)
		UserContact(ctx context.Context, userID string) (Contact, error)
	}

	// Auditor compares reply counters with the votes they cache.
	Auditor interface {
		FindVoteDrift(ctx context.Context) ([]VoteDrift, error)
		// RepairVoteCounts resets the counters of replyIDs to their number of votes.
		RepairVoteCounts(ctx context.Context, replyIDs []string) (int, error)
	}

	// Recorder is notified of vote ledger events.
	Recorder interface {
		VoteToggled(state string)
		VoteConflict()
		VoteRetriesExhausted()
	}

	Deps struct {
		Repo     Repository
		Auditor  Auditor
		Mailer   core.EmailService
		Logger   core.Logger
		Recorder Recorder
		Validate *validator.Validate
		Conf     *core.Config
	}

	Service struct {
		repo     Repository
		auditor  Auditor
		mailer   core.EmailService
		logger   core.Logger
		recorder Recorder
		validate *validator.Validate
		conf     core.ForumConfig
	}
)

func NewService(deps Deps) *Service {
	svc := &Service{
		repo:     deps.Repo,
		auditor:  deps.Auditor,
		mailer:   deps.Mailer,
		logger:   deps.Logger,
		recorder: deps.Recorder,
		validate: deps.Validate,
	}
	if deps.Conf != nil {
		svc.conf = deps.Conf.Forum
	}
	if svc.recorder == nil {
		svc.recorder = nopRecorder{}
	}
	if svc.validate == nil {
		svc.validate = core.NewValidator(core.NewTranslator())
	}
	if svc.conf.VoteMaxRetries < 1 {
		svc.conf.VoteMaxRetries = 1
	}
	return svc
}

func (svc *Service) IsAdministrator(identity core.Identity) bool {
	return IsAdministrator(identity, svc.conf.ModeratorGroup)
}

func (svc *Service) logError(msg string, err error, identity core.Identity) {
	if svc.logger != nil {
		svc.logger.Error(msg, err, identity)
	}
}

func (svc *Service) logInfo(msg string, args ...interface{}) {
	if svc.logger != nil {
		svc.logger.Info(msg, args...)
	}
}

// accessibleClass loads a class the identity can access.
func (svc *Service) accessibleClass(ctx context.Context, identity core.Identity, id string) (Class, error) {
	class, err := svc.repo.GetClass(ctx, id)
	if err != nil {
		return Class{}, err
	}
	if !CanAccess(identity, class) {
		return Class{}, ErrUnauthorized
	}
	return class, nil
}

func (svc *Service) accessibleSubCategory(ctx context.Context, identity core.Identity, id string) (SubCategory, Class, error) {
	sub, err := svc.repo.GetSubCategory(ctx, id)
	if err != nil {
		return SubCategory{}, Class{}, err
	}
	class, err := svc.accessibleClass(ctx, identity, sub.ClassID)
	if err != nil {
		return SubCategory{}, Class{}, err
	}
	return sub, class, nil
}

func (svc *Service) accessibleTopic(ctx context.Context, identity core.Identity, id string) (Topic, error) {
	topic, err := svc.repo.GetTopic(ctx, id)
	if err != nil {
		return Topic{}, err
	}
	if _, _, err = svc.accessibleSubCategory(ctx, identity, topic.SubCategoryID); err != nil {
		return Topic{}, err
	}
	return topic, nil
}

func (svc *Service) accessibleReply(ctx context.Context, identity core.Identity, id string) (Reply, error) {
	reply, err := svc.repo.GetReply(ctx, id)
	if err != nil {
		return Reply{}, err
	}
	if _, err = svc.accessibleTopic(ctx, identity, reply.TopicID); err != nil {
		return Reply{}, err
	}
	return reply, nil
}

// accessibleClassIDs lists the ids of all the classes the identity can access.
func (svc *Service) accessibleClassIDs(ctx context.Context, identity core.Identity) ([]string, error) {
	classes, err := svc.ListClasses(ctx, identity)
	if err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(classes))
	for _, c := range classes {
		ids = append(ids, c.ID)
	}
	return ids, nil
}

type nopRecorder struct{}

func (nopRecorder) VoteToggled(string)    {}
func (nopRecorder) VoteConflict()         {}
func (nopRecorder) VoteRetriesExhausted() {}
