package shortlink

import (
	"context"
	"errors"
	"strings"

	gonanoid "github.com/matoous/go-nanoid/v2"
	"gorm.io/gorm"

	"foodgram-backend/domain"
	"foodgram-backend/pkg/recipe"
)

const codeLength = 8

type (
	ShortLinkService interface {
		GetOrCreate(ctx context.Context, recipeID string) (domain.ShortLinkResponse, error)
		Resolve(ctx context.Context, code string) (string, error)
	}

	shortLinkService struct {
		store            Store
		recipeRepository recipe.RecipeRepository
		baseURL          string
	}
)

func NewShortLinkService(store Store, recipeRepository recipe.RecipeRepository, baseURL string) ShortLinkService {
	return &shortLinkService{
		store:            store,
		recipeRepository: recipeRepository,
		baseURL:          strings.TrimRight(baseURL, "/"),
	}
}

// GetOrCreate returns the stable short link for a recipe, minting a code on
// first request. Repeated calls for the same recipe yield the same link.
func (s *shortLinkService) GetOrCreate(ctx context.Context, recipeID string) (domain.ShortLinkResponse, error) {
	if _, err := s.recipeRepository.GetRecipeByID(ctx, recipeID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.ShortLinkResponse{}, domain.ErrRecipeNotFound
		}
		return domain.ShortLinkResponse{}, err
	}

	code, err := s.store.GetCode(ctx, recipeID)
	if errors.Is(err, ErrNotFound) {
		code, err = gonanoid.New(codeLength)
		if err != nil {
			return domain.ShortLinkResponse{}, err
		}
		if err := s.store.Set(ctx, code, recipeID); err != nil {
			return domain.ShortLinkResponse{}, err
		}
	} else if err != nil {
		return domain.ShortLinkResponse{}, err
	}

	return domain.ShortLinkResponse{
		ShortLink: s.baseURL + "/s/" + code,
	}, nil
}

func (s *shortLinkService) Resolve(ctx context.Context, code string) (string, error) {
	recipeID, err := s.store.GetRecipeID(ctx, code)
	if errors.Is(err, ErrNotFound) {
		return "", domain.ErrShortLinkNotFound
	}
	return recipeID, err
}
