package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/portalautarca/portal/internal/apperr"
	"github.com/portalautarca/portal/internal/model"
	"github.com/portalautarca/portal/internal/palette"
	"github.com/portalautarca/portal/internal/repository"
	"github.com/portalautarca/portal/internal/validation"
)

// DuplicateTagError is returned when a tag name is taken. It carries the
// existing tag so clients can reuse it.
type DuplicateTagError struct {
	Tag *model.Tag
}

func (e *DuplicateTagError) Error() string {
	return repository.ErrDuplicateTag.Error()
}

func (e *DuplicateTagError) Unwrap() error {
	return repository.ErrDuplicateTag
}

type CreateParishInput struct {
	Name        string  `json:"name" validate:"required,max=200"`
	Code        string  `json:"code" validate:"max=50"`
	Type        string  `json:"type" validate:"omitempty,oneof=parish autarchy"`
	Description *string `json:"description"`
}

type CreateTagInput struct {
	Name  string `json:"name" validate:"required,max=100"`
	Color string `json:"color"`
}

type CatalogService struct {
	parishRepository repository.ParishRepository
	tagRepository    repository.TagRepository
}

func NewCatalogService(parishRepository repository.ParishRepository, tagRepository repository.TagRepository) *CatalogService {
	return &CatalogService{
		parishRepository: parishRepository,
		tagRepository:    tagRepository,
	}
}

func (s *CatalogService) ListParishes(ctx context.Context) ([]*model.Parish, error) {
	return s.parishRepository.List(ctx)
}

func (s *CatalogService) ParishByID(ctx context.Context, id int64) (*model.Parish, error) {
	return s.parishRepository.ByID(ctx, id)
}

func (s *CatalogService) ParishByCode(ctx context.Context, code string) (*model.Parish, error) {
	return s.parishRepository.ByCode(ctx, strings.TrimSpace(code))
}

func (s *CatalogService) CreateParish(ctx context.Context, in CreateParishInput) (*model.Parish, error) {
	in.Name = strings.TrimSpace(in.Name)
	in.Code = strings.TrimSpace(in.Code)
	in.Type = strings.TrimSpace(in.Type)

	err := validation.Struct(in)
	if err != nil {
		return nil, err
	}

	if in.Code == "" {
		in.Code = validation.Slugify(in.Name, 50)
		if in.Code == "" {
			return nil, apperr.Validation("code could not be derived from the name")
		}
	}
	if in.Type == "" {
		in.Type = model.ParishTypeParish
	}
	if in.Description != nil {
		desc := strings.TrimSpace(*in.Description)
		in.Description = &desc
		if desc == "" {
			in.Description = nil
		}
	}

	parish := &model.Parish{
		Name:        in.Name,
		Code:        in.Code,
		Type:        in.Type,
		Description: in.Description,
		CreatedAt:   time.Now().UTC(),
	}

	err = s.parishRepository.Create(ctx, parish)
	if err != nil {
		return nil, err
	}

	slog.InfoContext(ctx, "parish created", "parish_id", parish.ID, "code", parish.Code)
	return parish, nil
}

// DeleteParish refuses to remove a parish that initiatives or users still
// point at.
func (s *CatalogService) DeleteParish(ctx context.Context, id int64) error {
	_, err := s.parishRepository.ByID(ctx, id)
	if err != nil {
		return err
	}

	count, err := s.parishRepository.CountInitiatives(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to count initiatives: %w", err)
	}
	if count > 0 {
		return apperr.Conflict("parish has %d initiatives and cannot be deleted", count)
	}

	return s.parishRepository.Delete(ctx, id)
}

func (s *CatalogService) ListTags(ctx context.Context) ([]*model.Tag, error) {
	tags, err := s.tagRepository.List(ctx)
	if err != nil {
		return nil, err
	}
	DecorateTags(tags)
	return tags, nil
}

func (s *CatalogService) CreateTag(ctx context.Context, in CreateTagInput) (*model.Tag, error) {
	in.Name = strings.TrimSpace(in.Name)
	in.Color = strings.TrimSpace(in.Color)

	err := validation.Struct(in)
	if err != nil {
		return nil, err
	}

	if in.Color == "" {
		in.Color = palette.Default().Hex
	}
	if !palette.Valid(in.Color) {
		return nil, apperr.Validation("invalid color %q", in.Color)
	}

	existing, err := s.tagRepository.ByName(ctx, in.Name)
	if err == nil {
		DecorateTags([]*model.Tag{existing})
		return nil, &DuplicateTagError{Tag: existing}
	}
	if !errors.Is(err, repository.ErrTagNotFound) {
		return nil, err
	}

	tag := &model.Tag{
		Name:      in.Name,
		Color:     in.Color,
		CreatedAt: time.Now().UTC(),
	}

	err = s.tagRepository.Create(ctx, tag)
	if errors.Is(err, repository.ErrDuplicateTag) {
		// Lost a race with a concurrent insert
		existing, lookupErr := s.tagRepository.ByName(ctx, in.Name)
		if lookupErr != nil {
			return nil, err
		}
		DecorateTags([]*model.Tag{existing})
		return nil, &DuplicateTagError{Tag: existing}
	}
	if err != nil {
		return nil, err
	}

	DecorateTags([]*model.Tag{tag})
	return tag, nil
}

// ResolveTagNames maps names to tag ids. Unknown names are skipped.
func (s *CatalogService) ResolveTagNames(ctx context.Context, names []string) ([]int64, error) {
	ids := make([]int64, 0, len(names))
	for _, name := range names {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}

		tag, err := s.tagRepository.ByName(ctx, name)
		if errors.Is(err, repository.ErrTagNotFound) {
			slog.DebugContext(ctx, "ignoring unknown tag", "name", name)
			continue
		}
		if err != nil {
			return nil, err
		}
		ids = append(ids, tag.ID)
	}
	return ids, nil
}

// DecorateTags fills the presentation fields of tags.
func DecorateTags(tags []*model.Tag) {
	caser := cases.Title(language.Portuguese)
	for _, t := range tags {
		t.Label = caser.String(t.Name)
		t.Classes = palette.Classes(t.Color, palette.Badge)
	}
}
