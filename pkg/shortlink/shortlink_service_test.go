package shortlink

import (
	"context"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"foodgram-backend/domain"
	"foodgram-backend/entities"
	"foodgram-backend/pkg/recipe"
)

type memoryStore struct {
	byCode   map[string]string
	byRecipe map[string]string
}

func newMemoryStore() *memoryStore {
	return &memoryStore{byCode: map[string]string{}, byRecipe: map[string]string{}}
}

func (s *memoryStore) GetRecipeID(_ context.Context, code string) (string, error) {
	id, ok := s.byCode[code]
	if !ok {
		return "", ErrNotFound
	}
	return id, nil
}

func (s *memoryStore) GetCode(_ context.Context, recipeID string) (string, error) {
	code, ok := s.byRecipe[recipeID]
	if !ok {
		return "", ErrNotFound
	}
	return code, nil
}

func (s *memoryStore) Set(_ context.Context, code, recipeID string) error {
	s.byCode[code] = recipeID
	s.byRecipe[recipeID] = code
	return nil
}

// stubRecipeRepo only answers GetRecipeByID; the embedded interface covers
// the methods the short-link service never touches.
type stubRecipeRepo struct {
	recipe.RecipeRepository
	known map[string]bool
}

func (s *stubRecipeRepo) GetRecipeByID(_ context.Context, id string) (*entities.Recipe, error) {
	if !s.known[id] {
		return nil, gorm.ErrRecordNotFound
	}
	return &entities.Recipe{ID: uuid.MustParse(id)}, nil
}

func TestGetOrCreateIsStable(t *testing.T) {
	ctx := context.Background()
	recipeID := uuid.New().String()
	store := newMemoryStore()
	service := NewShortLinkService(store, &stubRecipeRepo{known: map[string]bool{recipeID: true}}, "https://foodgram.example/")

	first, err := service.GetOrCreate(ctx, recipeID)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(first.ShortLink, "https://foodgram.example/s/"))

	second, err := service.GetOrCreate(ctx, recipeID)
	require.NoError(t, err)
	assert.Equal(t, first.ShortLink, second.ShortLink)
}

func TestGetOrCreateUnknownRecipe(t *testing.T) {
	service := NewShortLinkService(newMemoryStore(), &stubRecipeRepo{known: map[string]bool{}}, "https://foodgram.example")

	_, err := service.GetOrCreate(context.Background(), uuid.New().String())
	assert.ErrorIs(t, err, domain.ErrRecipeNotFound)
}

func TestResolve(t *testing.T) {
	ctx := context.Background()
	recipeID := uuid.New().String()
	store := newMemoryStore()
	service := NewShortLinkService(store, &stubRecipeRepo{known: map[string]bool{recipeID: true}}, "https://foodgram.example")

	link, err := service.GetOrCreate(ctx, recipeID)
	require.NoError(t, err)
	code := link.ShortLink[strings.LastIndex(link.ShortLink, "/")+1:]

	resolved, err := service.Resolve(ctx, code)
	require.NoError(t, err)
	assert.Equal(t, recipeID, resolved)

	_, err = service.Resolve(ctx, "missing1")
	assert.ErrorIs(t, err, domain.ErrShortLinkNotFound)
}
