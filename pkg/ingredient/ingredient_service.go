package ingredient

import (
	"context"
	"encoding/json"
	"errors"
	"os"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"foodgram-backend/domain"
	"foodgram-backend/entities"
	"foodgram-backend/pkg/logger"
)

type (
	IngredientService interface {
		SearchIngredients(ctx context.Context, namePrefix string) ([]domain.IngredientResponse, error)
		GetIngredientByID(ctx context.Context, id string) (domain.IngredientResponse, error)
		SeedFromFile(ctx context.Context, path string) (int, error)
	}

	ingredientService struct {
		ingredientRepository IngredientRepository
	}

	seedEntry struct {
		Name            string `json:"name"`
		MeasurementUnit string `json:"measurement_unit"`
	}
)

func NewIngredientService(ingredientRepository IngredientRepository) IngredientService {
	return &ingredientService{ingredientRepository: ingredientRepository}
}

func (s *ingredientService) SearchIngredients(ctx context.Context, namePrefix string) ([]domain.IngredientResponse, error) {
	ingredients, err := s.ingredientRepository.GetIngredients(ctx, namePrefix)
	if err != nil {
		return nil, err
	}

	result := make([]domain.IngredientResponse, 0, len(ingredients))
	for _, ing := range ingredients {
		result = append(result, domain.IngredientResponse{
			ID:              ing.ID.String(),
			Name:            ing.Name,
			MeasurementUnit: ing.MeasurementUnit,
		})
	}
	return result, nil
}

func (s *ingredientService) GetIngredientByID(ctx context.Context, id string) (domain.IngredientResponse, error) {
	ingredient, err := s.ingredientRepository.GetIngredientByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.IngredientResponse{}, domain.ErrIngredientNotFound
		}
		return domain.IngredientResponse{}, err
	}

	return domain.IngredientResponse{
		ID:              ingredient.ID.String(),
		Name:            ingredient.Name,
		MeasurementUnit: ingredient.MeasurementUnit,
	}, nil
}

// SeedFromFile imports catalog entries from a JSON file, skipping
// (name, unit) pairs that already exist. Returns the number of new rows.
func (s *ingredientService) SeedFromFile(ctx context.Context, path string) (int, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return 0, err
	}

	var entries []seedEntry
	if err := json.Unmarshal(raw, &entries); err != nil {
		return 0, err
	}

	existing, err := s.ingredientRepository.GetExistingPairs(ctx)
	if err != nil {
		return 0, err
	}

	var toCreate []*entities.Ingredient
	for _, entry := range entries {
		key := [2]string{entry.Name, entry.MeasurementUnit}
		if existing[key] {
			continue
		}
		existing[key] = true
		toCreate = append(toCreate, &entities.Ingredient{
			ID:              uuid.New(),
			Name:            entry.Name,
			MeasurementUnit: entry.MeasurementUnit,
		})
	}

	if err := s.ingredientRepository.CreateIngredients(ctx, toCreate); err != nil {
		return 0, err
	}

	logger.Info().Int("added", len(toCreate)).Str("file", path).Msg("ingredient catalog seeded")
	return len(toCreate), nil
}
