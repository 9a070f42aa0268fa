package ingredient

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"foodgram-backend/domain"
	"foodgram-backend/entities"
	"foodgram-backend/pkg/logger"
)

func TestMain(m *testing.M) {
	logger.Init("test", false)
	os.Exit(m.Run())
}

type fakeIngredientRepo struct {
	ingredients []*entities.Ingredient
}

func (f *fakeIngredientRepo) GetIngredients(_ context.Context, namePrefix string) ([]*entities.Ingredient, error) {
	var result []*entities.Ingredient
	for _, ing := range f.ingredients {
		if namePrefix == "" || strings.HasPrefix(strings.ToLower(ing.Name), strings.ToLower(namePrefix)) {
			result = append(result, ing)
		}
	}
	return result, nil
}

func (f *fakeIngredientRepo) GetIngredientByID(_ context.Context, id string) (*entities.Ingredient, error) {
	for _, ing := range f.ingredients {
		if ing.ID.String() == id {
			return ing, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeIngredientRepo) GetIngredientsByIDs(_ context.Context, ids []string) ([]*entities.Ingredient, error) {
	var result []*entities.Ingredient
	for _, id := range ids {
		for _, ing := range f.ingredients {
			if ing.ID.String() == id {
				result = append(result, ing)
			}
		}
	}
	return result, nil
}

func (f *fakeIngredientRepo) GetExistingPairs(_ context.Context) (map[[2]string]bool, error) {
	pairs := map[[2]string]bool{}
	for _, ing := range f.ingredients {
		pairs[[2]string{ing.Name, ing.MeasurementUnit}] = true
	}
	return pairs, nil
}

func (f *fakeIngredientRepo) CreateIngredients(_ context.Context, ingredients []*entities.Ingredient) error {
	f.ingredients = append(f.ingredients, ingredients...)
	return nil
}

func TestSearchIngredients(t *testing.T) {
	ctx := context.Background()
	repo := &fakeIngredientRepo{ingredients: []*entities.Ingredient{
		{ID: uuid.New(), Name: "salt", MeasurementUnit: "g"},
		{ID: uuid.New(), Name: "salmon", MeasurementUnit: "g"},
		{ID: uuid.New(), Name: "pepper", MeasurementUnit: "g"},
	}}
	service := NewIngredientService(repo)

	res, err := service.SearchIngredients(ctx, "sal")
	require.NoError(t, err)
	assert.Len(t, res, 2)

	res, err = service.SearchIngredients(ctx, "")
	require.NoError(t, err)
	assert.Len(t, res, 3)
}

func TestGetIngredientByID(t *testing.T) {
	ctx := context.Background()
	salt := &entities.Ingredient{ID: uuid.New(), Name: "salt", MeasurementUnit: "g"}
	service := NewIngredientService(&fakeIngredientRepo{ingredients: []*entities.Ingredient{salt}})

	res, err := service.GetIngredientByID(ctx, salt.ID.String())
	require.NoError(t, err)
	assert.Equal(t, "salt", res.Name)

	_, err = service.GetIngredientByID(ctx, uuid.New().String())
	assert.ErrorIs(t, err, domain.ErrIngredientNotFound)
}

func TestSeedFromFile(t *testing.T) {
	ctx := context.Background()
	repo := &fakeIngredientRepo{ingredients: []*entities.Ingredient{
		{ID: uuid.New(), Name: "salt", MeasurementUnit: "g"},
	}}
	service := NewIngredientService(repo)

	seed := `[
		{"name": "salt", "measurement_unit": "g"},
		{"name": "salt", "measurement_unit": "pinch"},
		{"name": "sugar", "measurement_unit": "g"},
		{"name": "sugar", "measurement_unit": "g"}
	]`
	path := filepath.Join(t.TempDir(), "ingredients.json")
	require.NoError(t, os.WriteFile(path, []byte(seed), 0o644))

	added, err := service.SeedFromFile(ctx, path)
	require.NoError(t, err)

	// "salt g" already exists and the duplicated "sugar g" entry collapses
	assert.Equal(t, 2, added)
	assert.Len(t, repo.ingredients, 3)
}

func TestSeedFromFileMissing(t *testing.T) {
	service := NewIngredientService(&fakeIngredientRepo{})
	_, err := service.SeedFromFile(context.Background(), filepath.Join(t.TempDir(), "nope.json"))
	assert.Error(t, err)
}
