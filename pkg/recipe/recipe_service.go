package recipe

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"foodgram-backend/domain"
	"foodgram-backend/entities"
	"foodgram-backend/internal/utils"
	"foodgram-backend/internal/utils/storage"
	"foodgram-backend/pkg/ingredient"
	"foodgram-backend/pkg/logger"
	"foodgram-backend/pkg/user"
)

type (
	RecipeService interface {
		CreateRecipe(ctx context.Context, req domain.CreateRecipeRequest, authorID string) (domain.RecipeResponse, error)
		GetRecipe(ctx context.Context, recipeID, viewerID string) (domain.RecipeResponse, error)
		GetRecipes(ctx context.Context, filter domain.RecipeFilter, page, limit int) (domain.RecipeListResponse, error)
		UpdateRecipe(ctx context.Context, recipeID string, req domain.UpdateRecipeRequest, callerID string) (domain.RecipeResponse, error)
		DeleteRecipe(ctx context.Context, recipeID, callerID string) error

		AddFavorite(ctx context.Context, recipeID, userID string) (domain.ShortRecipeResponse, error)
		RemoveFavorite(ctx context.Context, recipeID, userID string) error
		AddToCart(ctx context.Context, recipeID, userID string) (domain.ShortRecipeResponse, error)
		RemoveFromCart(ctx context.Context, recipeID, userID string) error

		GetTags(ctx context.Context) ([]domain.TagResponse, error)
		GetTagByID(ctx context.Context, id string) (domain.TagResponse, error)
	}

	recipeService struct {
		recipeRepository     RecipeRepository
		ingredientRepository ingredient.IngredientRepository
		userRepository       user.UserRepository
		s3                   storage.AwsS3
	}
)

func NewRecipeService(
	recipeRepository RecipeRepository,
	ingredientRepository ingredient.IngredientRepository,
	userRepository user.UserRepository,
	s3 storage.AwsS3,
) RecipeService {
	return &recipeService{
		recipeRepository:     recipeRepository,
		ingredientRepository: ingredientRepository,
		userRepository:       userRepository,
		s3:                   s3,
	}
}

// validateLines enforces the line-item rules shared by create and update:
// at least one line, no repeated ingredient, positive amounts, and every
// referenced ingredient present in the catalog.
func (s *recipeService) validateLines(ctx context.Context, lines []domain.IngredientLineRequest) ([]uuid.UUID, error) {
	if len(lines) == 0 {
		return nil, domain.ErrNoIngredients
	}

	seen := make(map[string]bool, len(lines))
	ids := make([]string, 0, len(lines))
	parsed := make([]uuid.UUID, 0, len(lines))
	for _, line := range lines {
		if seen[line.IngredientID] {
			return nil, domain.ErrDuplicateIngredient
		}
		seen[line.IngredientID] = true
		if line.Amount < 1 {
			return nil, domain.ErrInvalidAmount
		}
		id, err := uuid.Parse(line.IngredientID)
		if err != nil {
			return nil, domain.ErrParseUUID
		}
		ids = append(ids, line.IngredientID)
		parsed = append(parsed, id)
	}

	ingredients, err := s.ingredientRepository.GetIngredientsByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	if len(ingredients) != len(ids) {
		return nil, domain.ErrIngredientNotFound
	}
	return parsed, nil
}

func (s *recipeService) resolveTags(ctx context.Context, tagIDs []string) ([]*entities.Tag, error) {
	if len(tagIDs) == 0 {
		return nil, nil
	}
	tags, err := s.recipeRepository.GetTagsByIDs(ctx, tagIDs)
	if err != nil {
		return nil, err
	}
	if len(tags) != len(tagIDs) {
		return nil, domain.ErrTagNotFound
	}
	return tags, nil
}

func (s *recipeService) uploadImage(payload string) (string, error) {
	raw, _, err := utils.DecodeBase64Image(payload)
	if err != nil {
		return "", domain.ErrInvalidImage
	}
	normalized, contentType, err := utils.NormalizeImage(raw)
	if err != nil {
		return "", domain.ErrInvalidImage
	}

	fileName := uuid.New().String() + ".jpg"
	objectKey, err := s.s3.UploadBytes(fileName, normalized, "recipes", contentType, storage.AllowImage...)
	if err != nil {
		return "", err
	}
	return s.s3.GetPublicLinkKey(objectKey), nil
}

func (s *recipeService) CreateRecipe(ctx context.Context, req domain.CreateRecipeRequest, authorID string) (domain.RecipeResponse, error) {
	authorUUID, err := uuid.Parse(authorID)
	if err != nil {
		return domain.RecipeResponse{}, domain.ErrParseUUID
	}

	if req.CookingTime < 1 {
		return domain.RecipeResponse{}, domain.ErrInvalidCookingTime
	}

	ingredientIDs, err := s.validateLines(ctx, req.Ingredients)
	if err != nil {
		return domain.RecipeResponse{}, err
	}

	tags, err := s.resolveTags(ctx, req.TagIDs)
	if err != nil {
		return domain.RecipeResponse{}, err
	}

	exists, err := s.recipeRepository.ExistsByAuthorAndName(ctx, authorUUID, req.Name, uuid.Nil)
	if err != nil {
		return domain.RecipeResponse{}, err
	}
	if exists {
		return domain.RecipeResponse{}, domain.ErrDuplicateRecipeName
	}

	imageURL, err := s.uploadImage(req.Image)
	if err != nil {
		return domain.RecipeResponse{}, err
	}

	recipeID := uuid.New()
	lines := make([]*entities.RecipeIngredient, 0, len(req.Ingredients))
	for i, line := range req.Ingredients {
		lines = append(lines, &entities.RecipeIngredient{
			ID:           uuid.New(),
			RecipeID:     recipeID,
			IngredientID: ingredientIDs[i],
			Amount:       line.Amount,
		})
	}

	recipe := &entities.Recipe{
		ID:          recipeID,
		AuthorID:    authorUUID,
		Name:        req.Name,
		ImageURL:    imageURL,
		Text:        req.Text,
		CookingTime: req.CookingTime,
		Ingredients: lines,
		Tags:        tags,
	}

	if err := s.recipeRepository.CreateRecipe(ctx, recipe); err != nil {
		_ = s.s3.DeleteFile(s.s3.GetObjectKeyFromLink(imageURL))
		// unique (author_id, name) backstop for concurrent creates
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return domain.RecipeResponse{}, domain.ErrDuplicateRecipeName
		}
		return domain.RecipeResponse{}, err
	}

	logger.Info().
		Str("recipe_id", recipeID.String()).
		Str("author_id", authorID).
		Msg("recipe created")

	return s.GetRecipe(ctx, recipeID.String(), authorID)
}

func (s *recipeService) GetRecipe(ctx context.Context, recipeID, viewerID string) (domain.RecipeResponse, error) {
	recipe, err := s.recipeRepository.GetRecipeByID(ctx, recipeID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.RecipeResponse{}, domain.ErrRecipeNotFound
		}
		return domain.RecipeResponse{}, err
	}

	responses, err := s.projectRecipes(ctx, []*entities.Recipe{recipe}, viewerID)
	if err != nil {
		return domain.RecipeResponse{}, err
	}
	return responses[0], nil
}

func (s *recipeService) GetRecipes(ctx context.Context, filter domain.RecipeFilter, page, limit int) (domain.RecipeListResponse, error) {
	// Favorite and cart filters are per-viewer; for an anonymous caller
	// the result is an empty page without touching the relation tables.
	if filter.ViewerID == "" && (filter.IsFavorited || filter.IsInShoppingCart) {
		return domain.RecipeListResponse{
			Recipes:    []domain.RecipeResponse{},
			Pagination: domain.NewPagination(page, limit, 0),
		}, nil
	}

	recipes, count, err := s.recipeRepository.GetRecipes(ctx, filter, page, limit)
	if err != nil {
		return domain.RecipeListResponse{}, err
	}

	responses, err := s.projectRecipes(ctx, recipes, filter.ViewerID)
	if err != nil {
		return domain.RecipeListResponse{}, err
	}

	return domain.RecipeListResponse{
		Recipes:    responses,
		Pagination: domain.NewPagination(page, limit, count),
	}, nil
}

func (s *recipeService) UpdateRecipe(ctx context.Context, recipeID string, req domain.UpdateRecipeRequest, callerID string) (domain.RecipeResponse, error) {
	recipe, err := s.recipeRepository.GetRecipeByID(ctx, recipeID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.RecipeResponse{}, domain.ErrRecipeNotFound
		}
		return domain.RecipeResponse{}, err
	}

	if recipe.AuthorID.String() != callerID {
		return domain.RecipeResponse{}, domain.ErrForbidden
	}

	if req.Name != nil && *req.Name != recipe.Name {
		exists, err := s.recipeRepository.ExistsByAuthorAndName(ctx, recipe.AuthorID, *req.Name, recipe.ID)
		if err != nil {
			return domain.RecipeResponse{}, err
		}
		if exists {
			return domain.RecipeResponse{}, domain.ErrDuplicateRecipeName
		}
		recipe.Name = *req.Name
	}
	if req.Text != nil {
		recipe.Text = *req.Text
	}
	if req.CookingTime != nil {
		if *req.CookingTime < 1 {
			return domain.RecipeResponse{}, domain.ErrInvalidCookingTime
		}
		recipe.CookingTime = *req.CookingTime
	}

	replaceLines := req.Ingredients != nil
	var lines []*entities.RecipeIngredient
	if replaceLines {
		ingredientIDs, err := s.validateLines(ctx, req.Ingredients)
		if err != nil {
			return domain.RecipeResponse{}, err
		}
		for i, line := range req.Ingredients {
			lines = append(lines, &entities.RecipeIngredient{
				ID:           uuid.New(),
				RecipeID:     recipe.ID,
				IngredientID: ingredientIDs[i],
				Amount:       line.Amount,
			})
		}
	}

	replaceTags := req.TagIDs != nil
	var tags []*entities.Tag
	if replaceTags {
		tags, err = s.resolveTags(ctx, req.TagIDs)
		if err != nil {
			return domain.RecipeResponse{}, err
		}
	}

	oldImage := ""
	if req.Image != nil {
		imageURL, err := s.uploadImage(*req.Image)
		if err != nil {
			return domain.RecipeResponse{}, err
		}
		oldImage = recipe.ImageURL
		recipe.ImageURL = imageURL
	}

	if err := s.recipeRepository.UpdateRecipe(ctx, recipe, lines, replaceLines, tags, replaceTags); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return domain.RecipeResponse{}, domain.ErrDuplicateRecipeName
		}
		return domain.RecipeResponse{}, err
	}

	if oldImage != "" {
		_ = s.s3.DeleteFile(s.s3.GetObjectKeyFromLink(oldImage))
	}

	return s.GetRecipe(ctx, recipeID, callerID)
}

func (s *recipeService) DeleteRecipe(ctx context.Context, recipeID, callerID string) error {
	recipe, err := s.recipeRepository.GetRecipeByID(ctx, recipeID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.ErrRecipeNotFound
		}
		return err
	}

	if recipe.AuthorID.String() != callerID {
		return domain.ErrForbidden
	}

	if err := s.recipeRepository.DeleteRecipe(ctx, recipe.ID); err != nil {
		return err
	}

	if recipe.ImageURL != "" {
		_ = s.s3.DeleteFile(s.s3.GetObjectKeyFromLink(recipe.ImageURL))
	}

	logger.Info().
		Str("recipe_id", recipeID).
		Str("author_id", callerID).
		Msg("recipe deleted")
	return nil
}

func (s *recipeService) AddFavorite(ctx context.Context, recipeID, userID string) (domain.ShortRecipeResponse, error) {
	return s.addRelation(ctx, recipeID, userID, s.recipeRepository.AddFavorite, domain.ErrAlreadyFavorited)
}

func (s *recipeService) RemoveFavorite(ctx context.Context, recipeID, userID string) error {
	return s.removeRelation(ctx, recipeID, userID, s.recipeRepository.RemoveFavorite, domain.ErrNotFavorited)
}

func (s *recipeService) AddToCart(ctx context.Context, recipeID, userID string) (domain.ShortRecipeResponse, error) {
	return s.addRelation(ctx, recipeID, userID, s.recipeRepository.AddCartItem, domain.ErrAlreadyInCart)
}

func (s *recipeService) RemoveFromCart(ctx context.Context, recipeID, userID string) error {
	return s.removeRelation(ctx, recipeID, userID, s.recipeRepository.RemoveCartItem, domain.ErrNotInCart)
}

// addRelation adds a (user, recipe) pair for favorites or the shopping
// cart. Adding a pair that already exists is a visible conflict, not a
// silent no-op.
func (s *recipeService) addRelation(
	ctx context.Context,
	recipeID, userID string,
	add func(context.Context, uuid.UUID, uuid.UUID) error,
	conflict error,
) (domain.ShortRecipeResponse, error) {
	userUUID, err := uuid.Parse(userID)
	if err != nil {
		return domain.ShortRecipeResponse{}, domain.ErrParseUUID
	}

	recipe, err := s.recipeRepository.GetRecipeByID(ctx, recipeID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.ShortRecipeResponse{}, domain.ErrRecipeNotFound
		}
		return domain.ShortRecipeResponse{}, err
	}

	if err := add(ctx, userUUID, recipe.ID); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return domain.ShortRecipeResponse{}, conflict
		}
		return domain.ShortRecipeResponse{}, err
	}

	return domain.ShortRecipeResponse{
		ID:          recipe.ID.String(),
		Name:        recipe.Name,
		Image:       recipe.ImageURL,
		CookingTime: recipe.CookingTime,
	}, nil
}

func (s *recipeService) removeRelation(
	ctx context.Context,
	recipeID, userID string,
	remove func(context.Context, uuid.UUID, uuid.UUID) (int64, error),
	missing error,
) error {
	userUUID, err := uuid.Parse(userID)
	if err != nil {
		return domain.ErrParseUUID
	}

	recipe, err := s.recipeRepository.GetRecipeByID(ctx, recipeID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.ErrRecipeNotFound
		}
		return err
	}

	deleted, err := remove(ctx, userUUID, recipe.ID)
	if err != nil {
		return err
	}
	if deleted == 0 {
		return missing
	}
	return nil
}

func (s *recipeService) GetTags(ctx context.Context) ([]domain.TagResponse, error) {
	tags, err := s.recipeRepository.GetTags(ctx)
	if err != nil {
		return nil, err
	}

	result := make([]domain.TagResponse, 0, len(tags))
	for _, tag := range tags {
		result = append(result, toTagResponse(tag))
	}
	return result, nil
}

func (s *recipeService) GetTagByID(ctx context.Context, id string) (domain.TagResponse, error) {
	tag, err := s.recipeRepository.GetTagByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.TagResponse{}, domain.ErrTagNotFound
		}
		return domain.TagResponse{}, err
	}
	return toTagResponse(tag), nil
}

// projectRecipes computes the viewer-relative flags for a batch of recipes.
// Anonymous viewers short-circuit to false without touching the relation
// tables; authenticated viewers cost three set lookups for the whole page.
func (s *recipeService) projectRecipes(ctx context.Context, recipes []*entities.Recipe, viewerID string) ([]domain.RecipeResponse, error) {
	favorited := map[uuid.UUID]bool{}
	inCart := map[uuid.UUID]bool{}
	subscribed := map[uuid.UUID]bool{}

	if viewerID != "" && len(recipes) > 0 {
		viewerUUID, err := uuid.Parse(viewerID)
		if err != nil {
			return nil, domain.ErrParseUUID
		}

		recipeIDs := make([]uuid.UUID, 0, len(recipes))
		authorIDs := make([]uuid.UUID, 0, len(recipes))
		seenAuthors := map[uuid.UUID]bool{}
		for _, recipe := range recipes {
			recipeIDs = append(recipeIDs, recipe.ID)
			if !seenAuthors[recipe.AuthorID] {
				seenAuthors[recipe.AuthorID] = true
				authorIDs = append(authorIDs, recipe.AuthorID)
			}
		}

		if favorited, err = s.recipeRepository.GetFavoritedIDs(ctx, viewerUUID, recipeIDs); err != nil {
			return nil, err
		}
		if inCart, err = s.recipeRepository.GetCartIDs(ctx, viewerUUID, recipeIDs); err != nil {
			return nil, err
		}
		if subscribed, err = s.userRepository.GetSubscribedAuthorIDs(ctx, viewerUUID, authorIDs); err != nil {
			return nil, err
		}
	}

	responses := make([]domain.RecipeResponse, 0, len(recipes))
	for _, recipe := range recipes {
		lines := make([]domain.IngredientLineResponse, 0, len(recipe.Ingredients))
		for _, line := range recipe.Ingredients {
			response := domain.IngredientLineResponse{
				ID:     line.IngredientID.String(),
				Amount: line.Amount,
			}
			if line.Ingredient != nil {
				response.Name = line.Ingredient.Name
				response.MeasurementUnit = line.Ingredient.MeasurementUnit
			}
			lines = append(lines, response)
		}

		tags := make([]domain.TagResponse, 0, len(recipe.Tags))
		for _, tag := range recipe.Tags {
			tags = append(tags, toTagResponse(tag))
		}

		author := domain.UserResponse{ID: recipe.AuthorID.String()}
		if recipe.Author != nil {
			author = domain.UserResponse{
				ID:           recipe.Author.ID.String(),
				Email:        recipe.Author.Email,
				Username:     recipe.Author.Username,
				FirstName:    recipe.Author.FirstName,
				LastName:     recipe.Author.LastName,
				Avatar:       recipe.Author.AvatarURL,
				IsSubscribed: subscribed[recipe.AuthorID],
			}
		}

		responses = append(responses, domain.RecipeResponse{
			ID:               recipe.ID.String(),
			Author:           author,
			Name:             recipe.Name,
			Image:            recipe.ImageURL,
			Text:             recipe.Text,
			CookingTime:      recipe.CookingTime,
			Ingredients:      lines,
			Tags:             tags,
			IsFavorited:      favorited[recipe.ID],
			IsInShoppingCart: inCart[recipe.ID],
			CreatedAt:        recipe.CreatedAt,
		})
	}
	return responses, nil
}

func toTagResponse(tag *entities.Tag) domain.TagResponse {
	return domain.TagResponse{
		ID:    tag.ID.String(),
		Name:  tag.Name,
		Color: tag.Color,
		Slug:  tag.Slug,
	}
}
