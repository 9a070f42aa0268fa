package seed

import (
	"context"

	"gorm.io/gorm"

	"foodgram-backend/pkg/ingredient"
)

// Ingredients imports the catalog from a JSON file, skipping (name, unit)
// pairs that already exist. Returns the number of rows added.
func Ingredients(ctx context.Context, db *gorm.DB, path string) (int, error) {
	service := ingredient.NewIngredientService(ingredient.NewIngredientRepository(db))
	return service.SeedFromFile(ctx, path)
}
