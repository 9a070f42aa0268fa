package shoppinglist

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"foodgram-backend/domain"
	"foodgram-backend/entities"
)

type (
	ShoppingListRepository interface {
		GetCartIngredients(ctx context.Context, userID uuid.UUID) ([]domain.ShoppingListItem, error)
		GetCartRecipes(ctx context.Context, userID uuid.UUID) ([]*entities.Recipe, error)
	}

	shoppingListRepository struct {
		db *gorm.DB
	}
)

func NewShoppingListRepository(db *gorm.DB) ShoppingListRepository {
	return &shoppingListRepository{db: db}
}

// GetCartIngredients sums line amounts across every recipe in the cart,
// grouped by (name, unit) so the same ingredient from different recipes
// collapses into one row.
func (r *shoppingListRepository) GetCartIngredients(ctx context.Context, userID uuid.UUID) ([]domain.ShoppingListItem, error) {
	var items []domain.ShoppingListItem
	if err := r.db.WithContext(ctx).
		Model(&entities.ShoppingCartItem{}).
		Select("ingredients.name AS name, ingredients.measurement_unit AS measurement_unit, SUM(recipe_ingredients.amount) AS total").
		Joins("JOIN recipe_ingredients ON recipe_ingredients.recipe_id = shopping_cart_items.recipe_id").
		Joins("JOIN ingredients ON ingredients.id = recipe_ingredients.ingredient_id").
		Where("shopping_cart_items.user_id = ?", userID).
		Group("ingredients.name, ingredients.measurement_unit").
		Order("LOWER(ingredients.name) asc").
		Scan(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func (r *shoppingListRepository) GetCartRecipes(ctx context.Context, userID uuid.UUID) ([]*entities.Recipe, error) {
	var recipes []*entities.Recipe
	if err := r.db.WithContext(ctx).
		Preload("Author").
		Joins("JOIN shopping_cart_items ON shopping_cart_items.recipe_id = recipes.id").
		Where("shopping_cart_items.user_id = ?", userID).
		Order("recipes.name asc").
		Find(&recipes).Error; err != nil {
		return nil, err
	}
	return recipes, nil
}
