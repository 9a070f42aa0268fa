package shoppinglist

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"foodgram-backend/domain"
)

type (
	ShoppingListService interface {
		GetShoppingList(ctx context.Context, userID string) (domain.ShoppingListResponse, error)
		RenderText(list domain.ShoppingListResponse, now time.Time) string
	}

	shoppingListService struct {
		shoppingListRepository ShoppingListRepository
	}
)

func NewShoppingListService(shoppingListRepository ShoppingListRepository) ShoppingListService {
	return &shoppingListService{shoppingListRepository: shoppingListRepository}
}

func (s *shoppingListService) GetShoppingList(ctx context.Context, userID string) (domain.ShoppingListResponse, error) {
	userUUID, err := uuid.Parse(userID)
	if err != nil {
		return domain.ShoppingListResponse{}, domain.ErrParseUUID
	}

	items, err := s.shoppingListRepository.GetCartIngredients(ctx, userUUID)
	if err != nil {
		return domain.ShoppingListResponse{}, err
	}

	recipes, err := s.shoppingListRepository.GetCartRecipes(ctx, userUUID)
	if err != nil {
		return domain.ShoppingListResponse{}, err
	}

	listRecipes := make([]domain.ShoppingListRecipe, 0, len(recipes))
	for _, recipe := range recipes {
		entry := domain.ShoppingListRecipe{
			ID:   recipe.ID.String(),
			Name: recipe.Name,
		}
		if recipe.Author != nil {
			entry.AuthorName = strings.TrimSpace(recipe.Author.FirstName + " " + recipe.Author.LastName)
			if entry.AuthorName == "" {
				entry.AuthorName = recipe.Author.Username
			}
		}
		listRecipes = append(listRecipes, entry)
	}

	if items == nil {
		items = []domain.ShoppingListItem{}
	}
	return domain.ShoppingListResponse{
		Items:   items,
		Recipes: listRecipes,
	}, nil
}

// RenderText formats the aggregated list as a plain-text download with a
// dated header, numbered ingredient rows and the recipes it was built from.
func (s *shoppingListService) RenderText(list domain.ShoppingListResponse, now time.Time) string {
	var b strings.Builder

	b.WriteString("Shopping list (")
	b.WriteString(now.Format("02.01.2006"))
	b.WriteString(")\n\n")

	for i, item := range list.Items {
		fmt.Fprintf(&b, "%d. %s (%s): %d\n", i+1, item.Name, item.MeasurementUnit, item.Total)
	}

	if len(list.Recipes) > 0 {
		b.WriteString("\nFor recipes:\n")
		for _, recipe := range list.Recipes {
			if recipe.AuthorName != "" {
				fmt.Fprintf(&b, "- %s (author: %s)\n", recipe.Name, recipe.AuthorName)
			} else {
				fmt.Fprintf(&b, "- %s\n", recipe.Name)
			}
		}
	}

	return b.String()
}
