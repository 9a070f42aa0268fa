package domain

import (
	"errors"
	"time"
)

var (
	MessageSuccessGetRecipes    = "success get recipes"
	MessageSuccessGetRecipe     = "success get recipe detail"
	MessageSuccessSaveRecipe    = "recipe saved successfully"
	MessageSuccessUpdateRecipe  = "recipe updated successfully"
	MessageSuccessDeleteRecipe  = "recipe deleted successfully"
	MessageSuccessAddFavorite   = "recipe added to favorites"
	MessageSuccessDropFavorite  = "recipe removed from favorites"
	MessageSuccessAddToCart     = "recipe added to shopping cart"
	MessageSuccessDropFromCart  = "recipe removed from shopping cart"
	MessageSuccessGetShortLink  = "success get short link"
	MessageFailedGetRecipes     = "failed to get recipes"
	MessageFailedGetRecipe      = "failed to get recipe detail"
	MessageFailedSaveRecipe     = "failed to save recipe"
	MessageFailedUpdateRecipe   = "failed to update recipe"
	MessageFailedDeleteRecipe   = "failed to delete recipe"
	MessageFailedFavorite       = "failed to update favorites"
	MessageFailedShoppingCart   = "failed to update shopping cart"
	MessageFailedGetShortLink   = "failed to get short link"
	MessageFailedResolveShort   = "failed to resolve short link"

	ErrRecipeNotFound      = errors.New("recipe not found")
	ErrDuplicateRecipeName = errors.New("author already has a recipe with this name")
	ErrNoIngredients       = errors.New("recipe needs at least one ingredient")
	ErrDuplicateIngredient = errors.New("ingredients must not repeat within a recipe")
	ErrInvalidAmount       = errors.New("ingredient amount must be a positive integer")
	ErrInvalidCookingTime  = errors.New("cooking time must be a positive integer")
	ErrInvalidImage        = errors.New("invalid image payload")
	ErrAlreadyFavorited    = errors.New("recipe is already in favorites")
	ErrNotFavorited        = errors.New("recipe is not in favorites")
	ErrAlreadyInCart       = errors.New("recipe is already in the shopping cart")
	ErrNotInCart           = errors.New("recipe is not in the shopping cart")
	ErrShortLinkNotFound   = errors.New("short link not found")
)

type (
	IngredientLineRequest struct {
		IngredientID string `json:"id" validate:"required,uuid"`
		Amount       int    `json:"amount" validate:"required,min=1"`
	}

	CreateRecipeRequest struct {
		Name        string                  `json:"name" validate:"required,max=256"`
		Text        string                  `json:"text" validate:"required"`
		CookingTime int                     `json:"cooking_time" validate:"required,min=1"`
		Image       string                  `json:"image" validate:"required"` // base64 data URI
		Ingredients []IngredientLineRequest `json:"ingredients" validate:"required,dive"`
		TagIDs      []string                `json:"tags,omitempty" validate:"omitempty,dive,uuid"`
	}

	// UpdateRecipeRequest is a patch: nil fields keep their current value.
	// When Ingredients is present the whole line-item set is replaced.
	UpdateRecipeRequest struct {
		Name        *string                 `json:"name,omitempty" validate:"omitempty,max=256"`
		Text        *string                 `json:"text,omitempty"`
		CookingTime *int                    `json:"cooking_time,omitempty" validate:"omitempty,min=1"`
		Image       *string                 `json:"image,omitempty"`
		Ingredients []IngredientLineRequest `json:"ingredients,omitempty" validate:"omitempty,dive"`
		TagIDs      []string                `json:"tags,omitempty" validate:"omitempty,dive,uuid"`
	}

	// RecipeFilter narrows listings. ViewerID is empty for anonymous
	// callers; favorite/cart filters combined with an empty ViewerID
	// yield an empty page, never an error.
	RecipeFilter struct {
		AuthorID         string
		TagSlugs         []string
		IsFavorited      bool
		IsInShoppingCart bool
		ViewerID         string
	}

	IngredientLineResponse struct {
		ID              string `json:"id"`
		Name            string `json:"name"`
		MeasurementUnit string `json:"measurement_unit"`
		Amount          int    `json:"amount"`
	}

	RecipeResponse struct {
		ID               string                   `json:"id"`
		Author           UserResponse             `json:"author"`
		Name             string                   `json:"name"`
		Image            string                   `json:"image,omitempty"`
		Text             string                   `json:"text"`
		CookingTime      int                      `json:"cooking_time"`
		Ingredients      []IngredientLineResponse `json:"ingredients"`
		Tags             []TagResponse            `json:"tags,omitempty"`
		IsFavorited      bool                     `json:"is_favorited"`
		IsInShoppingCart bool                     `json:"is_in_shopping_cart"`
		CreatedAt        time.Time                `json:"created_at"`
	}

	ShortRecipeResponse struct {
		ID          string `json:"id"`
		Name        string `json:"name"`
		Image       string `json:"image,omitempty"`
		CookingTime int    `json:"cooking_time"`
	}

	RecipeListResponse struct {
		Recipes    []RecipeResponse `json:"recipes"`
		Pagination Pagination       `json:"pagination"`
	}

	ShortLinkResponse struct {
		ShortLink string `json:"short-link"`
	}
)
