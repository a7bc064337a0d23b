package forum

import (
	"context"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/trezcool/jukwaa/core"
)

// EvaluateAccess reports whether identity can access the class classID.
func (svc *Service) EvaluateAccess(ctx context.Context, identity core.Identity, classID string) (bool, error) {
	class, err := svc.repo.GetClass(ctx, classID)
	if err != nil {
		return false, err
	}
	return CanAccess(identity, class), nil
}

// ListClasses returns the classes identity can access, ordered by name.
func (svc *Service) ListClasses(ctx context.Context, identity core.Identity) ([]Class, error) {
	classes, err := svc.repo.QueryClasses(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "querying classes")
	}
	visible := make([]Class, 0, len(classes))
	for _, c := range classes {
		if CanAccess(identity, c) {
			visible = append(visible, c)
		}
	}
	return visible, nil
}

func (svc *Service) GetClass(ctx context.Context, identity core.Identity, id string) (Class, error) {
	return svc.accessibleClass(ctx, identity, id)
}

func (svc *Service) CreateClass(ctx context.Context, identity core.Identity, p ClassPayload) (Class, error) {
	if !svc.IsAdministrator(identity) {
		return Class{}, ErrUnauthorized
	}
	if err := p.Validate(svc.validate); err != nil {
		return Class{}, err
	}

	class, err := svc.repo.CreateClass(ctx, Class{
		ID:              uuid.New().String(),
		Name:            p.Name,
		Description:     p.Description,
		IsPublic:        p.isPublic(true),
		AllowedUserIDs:  p.AllowedUserIDs,
		AllowedGroupIDs: p.AllowedGroupIDs,
		CreatedAt:       core.NowFunc(),
	})
	if err != nil {
		return Class{}, trapAllowListErr(err, "creating class")
	}
	return class, nil
}

func (svc *Service) UpdateClass(ctx context.Context, identity core.Identity, id string, p ClassPayload) (Class, error) {
	class, err := svc.adminClass(ctx, identity, id)
	if err != nil {
		return Class{}, err
	}
	if err = p.Validate(svc.validate); err != nil {
		return Class{}, err
	}

	class.Name = p.Name
	class.Description = p.Description
	class.IsPublic = p.isPublic(class.IsPublic)
	class.AllowedUserIDs = p.AllowedUserIDs
	class.AllowedGroupIDs = p.AllowedGroupIDs
	if class, err = svc.repo.UpdateClass(ctx, class); err != nil {
		return Class{}, trapAllowListErr(err, "updating class")
	}
	return class, nil
}

// DeleteClass deletes a class along with its subcategories, topics, replies and votes.
func (svc *Service) DeleteClass(ctx context.Context, identity core.Identity, id string) (DeleteSummary, error) {
	if _, err := svc.adminClass(ctx, identity, id); err != nil {
		return DeleteSummary{}, err
	}
	sum, err := svc.repo.DeleteClass(ctx, id)
	if err != nil {
		return DeleteSummary{}, errors.Wrap(err, "deleting class")
	}
	svc.logInfo("class deleted", map[string]interface{}{"class_id": id, "summary": sum}, identity)
	return sum, nil
}

// adminClass loads a class the identity can both administer and access.
func (svc *Service) adminClass(ctx context.Context, identity core.Identity, id string) (Class, error) {
	class, err := svc.repo.GetClass(ctx, id)
	if err != nil {
		return Class{}, err
	}
	if !svc.IsAdministrator(identity) || !CanAccess(identity, class) {
		return Class{}, ErrUnauthorized
	}
	return class, nil
}

func (svc *Service) ListSubCategories(ctx context.Context, identity core.Identity, classID string) ([]SubCategory, error) {
	if _, err := svc.accessibleClass(ctx, identity, classID); err != nil {
		return nil, err
	}
	subs, err := svc.repo.QuerySubCategories(ctx, classID)
	return subs, errors.Wrap(err, "querying subcategories")
}

func (svc *Service) GetSubCategory(ctx context.Context, identity core.Identity, id string) (SubCategory, error) {
	sub, _, err := svc.accessibleSubCategory(ctx, identity, id)
	return sub, err
}

func (svc *Service) CreateSubCategory(ctx context.Context, identity core.Identity, classID string, p SubCategoryPayload) (SubCategory, error) {
	if _, err := svc.adminClass(ctx, identity, classID); err != nil {
		return SubCategory{}, err
	}
	if err := p.Validate(svc.validate); err != nil {
		return SubCategory{}, err
	}

	sub, err := svc.repo.CreateSubCategory(ctx, SubCategory{
		ID:          uuid.New().String(),
		ClassID:     classID,
		Name:        p.Name,
		Description: p.Description,
		CreatedAt:   core.NowFunc(),
	})
	return sub, errors.Wrap(err, "creating subcategory")
}

func (svc *Service) UpdateSubCategory(ctx context.Context, identity core.Identity, id string, p SubCategoryPayload) (SubCategory, error) {
	sub, err := svc.adminSubCategory(ctx, identity, id)
	if err != nil {
		return SubCategory{}, err
	}
	if err = p.Validate(svc.validate); err != nil {
		return SubCategory{}, err
	}

	sub.Name = p.Name
	sub.Description = p.Description
	sub, err = svc.repo.UpdateSubCategory(ctx, sub)
	return sub, errors.Wrap(err, "updating subcategory")
}

// DeleteSubCategory deletes a subcategory along with its topics, replies and votes.
func (svc *Service) DeleteSubCategory(ctx context.Context, identity core.Identity, id string) (DeleteSummary, error) {
	if _, err := svc.adminSubCategory(ctx, identity, id); err != nil {
		return DeleteSummary{}, err
	}
	sum, err := svc.repo.DeleteSubCategory(ctx, id)
	return sum, errors.Wrap(err, "deleting subcategory")
}

func (svc *Service) adminSubCategory(ctx context.Context, identity core.Identity, id string) (SubCategory, error) {
	sub, err := svc.repo.GetSubCategory(ctx, id)
	if err != nil {
		return SubCategory{}, err
	}
	if _, err = svc.adminClass(ctx, identity, sub.ClassID); err != nil {
		return SubCategory{}, err
	}
	return sub, nil
}

func (svc *Service) ListTags(ctx context.Context) ([]Tag, error) {
	tags, err := svc.repo.QueryTags(ctx)
	return tags, errors.Wrap(err, "querying tags")
}

func (svc *Service) GetTag(ctx context.Context, id string) (Tag, error) {
	return svc.repo.GetTag(ctx, id)
}

func (svc *Service) CreateTag(ctx context.Context, identity core.Identity, p TagPayload) (Tag, error) {
	if !svc.IsAdministrator(identity) {
		return Tag{}, ErrUnauthorized
	}
	if err := p.Validate(svc.validate); err != nil {
		return Tag{}, err
	}

	tag, err := svc.repo.CreateTag(ctx, Tag{ID: uuid.New().String(), Name: p.Name})
	if err != nil {
		return Tag{}, trapTagErr(err, "creating tag")
	}
	return tag, nil
}

func (svc *Service) UpdateTag(ctx context.Context, identity core.Identity, id string, p TagPayload) (Tag, error) {
	tag, err := svc.repo.GetTag(ctx, id)
	if err != nil {
		return Tag{}, err
	}
	if !svc.IsAdministrator(identity) {
		return Tag{}, ErrUnauthorized
	}
	if err = p.Validate(svc.validate); err != nil {
		return Tag{}, err
	}

	tag.Name = p.Name
	if tag, err = svc.repo.UpdateTag(ctx, tag); err != nil {
		return Tag{}, trapTagErr(err, "updating tag")
	}
	return tag, nil
}

// DeleteTag deletes a tag and detaches it from its topics, which are kept.
func (svc *Service) DeleteTag(ctx context.Context, identity core.Identity, id string) (DeleteSummary, error) {
	if _, err := svc.repo.GetTag(ctx, id); err != nil {
		return DeleteSummary{}, err
	}
	if !svc.IsAdministrator(identity) {
		return DeleteSummary{}, ErrUnauthorized
	}
	sum, err := svc.repo.DeleteTag(ctx, id)
	return sum, errors.Wrap(err, "deleting tag")
}

func trapAllowListErr(err error, msg string) error {
	switch errors.Cause(err) {
	case ErrUnknownUser:
		return core.NewFieldValidationError("allowed_user_ids", ErrUnknownUser)
	case ErrUnknownGroup:
		return core.NewFieldValidationError("allowed_group_ids", ErrUnknownGroup)
	}
	return errors.Wrap(err, msg)
}

func trapTagErr(err error, msg string) error {
	if errors.Cause(err) == ErrTagExists {
		return core.NewFieldValidationError("name", ErrTagExists)
	}
	return errors.Wrap(err, msg)
}
