package recipe

import (
	"bytes"
	"context"
	"encoding/base64"
	"image"
	"image/png"
	"os"
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

type fakeRecipeRepo struct {
	recipes   map[uuid.UUID]*entities.Recipe
	favorites map[[2]uuid.UUID]bool
	cart      map[[2]uuid.UUID]bool
	tags      map[uuid.UUID]*entities.Tag

	// stands in for the Ingredients.Ingredient preload
	catalog map[uuid.UUID]*entities.Ingredient
}

func newFakeRecipeRepo(catalog map[uuid.UUID]*entities.Ingredient) *fakeRecipeRepo {
	return &fakeRecipeRepo{
		recipes:   map[uuid.UUID]*entities.Recipe{},
		favorites: map[[2]uuid.UUID]bool{},
		cart:      map[[2]uuid.UUID]bool{},
		tags:      map[uuid.UUID]*entities.Tag{},
		catalog:   catalog,
	}
}

func (f *fakeRecipeRepo) CreateRecipe(_ context.Context, recipe *entities.Recipe) error {
	for _, existing := range f.recipes {
		if existing.AuthorID == recipe.AuthorID && existing.Name == recipe.Name {
			return gorm.ErrDuplicatedKey
		}
	}
	f.recipes[recipe.ID] = recipe
	return nil
}

func (f *fakeRecipeRepo) GetRecipeByID(_ context.Context, id string) (*entities.Recipe, error) {
	parsed, err := uuid.Parse(id)
	if err != nil {
		return nil, gorm.ErrRecordNotFound
	}
	recipe, ok := f.recipes[parsed]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	for _, line := range recipe.Ingredients {
		if line.Ingredient == nil {
			line.Ingredient = f.catalog[line.IngredientID]
		}
	}
	return recipe, nil
}

func (f *fakeRecipeRepo) ExistsByAuthorAndName(_ context.Context, authorID uuid.UUID, name string, excludeID uuid.UUID) (bool, error) {
	for _, recipe := range f.recipes {
		if recipe.AuthorID == authorID && recipe.Name == name && recipe.ID != excludeID {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeRecipeRepo) UpdateRecipe(_ context.Context, recipe *entities.Recipe, lines []*entities.RecipeIngredient, replaceLines bool, tags []*entities.Tag, replaceTags bool) error {
	if replaceLines {
		recipe.Ingredients = lines
	}
	if replaceTags {
		recipe.Tags = tags
	}
	f.recipes[recipe.ID] = recipe
	return nil
}

func (f *fakeRecipeRepo) DeleteRecipe(_ context.Context, id uuid.UUID) error {
	delete(f.recipes, id)
	return nil
}

func (f *fakeRecipeRepo) GetRecipes(_ context.Context, filter domain.RecipeFilter, page, limit int) ([]*entities.Recipe, int64, error) {
	var result []*entities.Recipe
	for _, recipe := range f.recipes {
		if filter.AuthorID != "" && recipe.AuthorID.String() != filter.AuthorID {
			continue
		}
		result = append(result, recipe)
	}
	return result, int64(len(result)), nil
}

func (f *fakeRecipeRepo) AddFavorite(_ context.Context, userID, recipeID uuid.UUID) error {
	key := [2]uuid.UUID{userID, recipeID}
	if f.favorites[key] {
		return gorm.ErrDuplicatedKey
	}
	f.favorites[key] = true
	return nil
}

func (f *fakeRecipeRepo) RemoveFavorite(_ context.Context, userID, recipeID uuid.UUID) (int64, error) {
	key := [2]uuid.UUID{userID, recipeID}
	if !f.favorites[key] {
		return 0, nil
	}
	delete(f.favorites, key)
	return 1, nil
}

func (f *fakeRecipeRepo) GetFavoritedIDs(_ context.Context, userID uuid.UUID, recipeIDs []uuid.UUID) (map[uuid.UUID]bool, error) {
	present := map[uuid.UUID]bool{}
	for _, id := range recipeIDs {
		if f.favorites[[2]uuid.UUID{userID, id}] {
			present[id] = true
		}
	}
	return present, nil
}

func (f *fakeRecipeRepo) AddCartItem(_ context.Context, userID, recipeID uuid.UUID) error {
	key := [2]uuid.UUID{userID, recipeID}
	if f.cart[key] {
		return gorm.ErrDuplicatedKey
	}
	f.cart[key] = true
	return nil
}

func (f *fakeRecipeRepo) RemoveCartItem(_ context.Context, userID, recipeID uuid.UUID) (int64, error) {
	key := [2]uuid.UUID{userID, recipeID}
	if !f.cart[key] {
		return 0, nil
	}
	delete(f.cart, key)
	return 1, nil
}

func (f *fakeRecipeRepo) GetCartIDs(_ context.Context, userID uuid.UUID, recipeIDs []uuid.UUID) (map[uuid.UUID]bool, error) {
	present := map[uuid.UUID]bool{}
	for _, id := range recipeIDs {
		if f.cart[[2]uuid.UUID{userID, id}] {
			present[id] = true
		}
	}
	return present, nil
}

func (f *fakeRecipeRepo) GetTags(_ context.Context) ([]*entities.Tag, error) {
	var tags []*entities.Tag
	for _, tag := range f.tags {
		tags = append(tags, tag)
	}
	return tags, nil
}

func (f *fakeRecipeRepo) GetTagByID(_ context.Context, id string) (*entities.Tag, error) {
	parsed, err := uuid.Parse(id)
	if err != nil {
		return nil, gorm.ErrRecordNotFound
	}
	tag, ok := f.tags[parsed]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return tag, nil
}

func (f *fakeRecipeRepo) GetTagsByIDs(_ context.Context, ids []string) ([]*entities.Tag, error) {
	var tags []*entities.Tag
	for _, id := range ids {
		parsed, err := uuid.Parse(id)
		if err != nil {
			continue
		}
		if tag, ok := f.tags[parsed]; ok {
			tags = append(tags, tag)
		}
	}
	return tags, nil
}

type fakeIngredientRepo struct {
	ingredients map[uuid.UUID]*entities.Ingredient
}

func (f *fakeIngredientRepo) GetIngredients(_ context.Context, _ string) ([]*entities.Ingredient, error) {
	var result []*entities.Ingredient
	for _, ing := range f.ingredients {
		result = append(result, ing)
	}
	return result, nil
}

func (f *fakeIngredientRepo) GetIngredientByID(_ context.Context, id string) (*entities.Ingredient, error) {
	parsed, err := uuid.Parse(id)
	if err != nil {
		return nil, gorm.ErrRecordNotFound
	}
	ing, ok := f.ingredients[parsed]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return ing, nil
}

func (f *fakeIngredientRepo) GetIngredientsByIDs(_ context.Context, ids []string) ([]*entities.Ingredient, error) {
	var result []*entities.Ingredient
	for _, id := range ids {
		parsed, err := uuid.Parse(id)
		if err != nil {
			continue
		}
		if ing, ok := f.ingredients[parsed]; ok {
			result = append(result, ing)
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
	for _, ing := range ingredients {
		f.ingredients[ing.ID] = ing
	}
	return nil
}

type fakeUserRepoForRecipes struct {
	subscriptions map[[2]uuid.UUID]bool
}

func (f *fakeUserRepoForRecipes) CreateUser(_ context.Context, _ *entities.User) error { return nil }
func (f *fakeUserRepoForRecipes) GetUserByID(_ context.Context, _ string) (*entities.User, error) {
	return nil, gorm.ErrRecordNotFound
}
func (f *fakeUserRepoForRecipes) GetUserByEmail(_ context.Context, _ string) (*entities.User, error) {
	return nil, gorm.ErrRecordNotFound
}
func (f *fakeUserRepoForRecipes) GetUserByUsername(_ context.Context, _ string) (*entities.User, error) {
	return nil, gorm.ErrRecordNotFound
}
func (f *fakeUserRepoForRecipes) UpdateUser(_ context.Context, _ *entities.User) error { return nil }
func (f *fakeUserRepoForRecipes) Subscribe(_ context.Context, _, _ uuid.UUID) error    { return nil }
func (f *fakeUserRepoForRecipes) Unsubscribe(_ context.Context, _, _ uuid.UUID) (int64, error) {
	return 0, nil
}
func (f *fakeUserRepoForRecipes) GetSubscribedAuthorIDs(_ context.Context, userID uuid.UUID, authorIDs []uuid.UUID) (map[uuid.UUID]bool, error) {
	present := map[uuid.UUID]bool{}
	for _, id := range authorIDs {
		if f.subscriptions[[2]uuid.UUID{userID, id}] {
			present[id] = true
		}
	}
	return present, nil
}
func (f *fakeUserRepoForRecipes) GetSubscribedAuthors(_ context.Context, _ uuid.UUID, _, _ int) ([]*entities.User, int64, error) {
	return nil, 0, nil
}
func (f *fakeUserRepoForRecipes) GetRecipePreviews(_ context.Context, _ uuid.UUID, _ int) ([]*entities.Recipe, error) {
	return nil, nil
}
func (f *fakeUserRepoForRecipes) CountRecipes(_ context.Context, _ uuid.UUID) (int64, error) {
	return 0, nil
}

type fakeS3 struct {
	uploaded []string
	deleted  []string
}

func (f *fakeS3) UploadBytes(fileName string, _ []byte, folder string, _ string, _ ...string) (string, error) {
	key := folder + "/" + fileName
	f.uploaded = append(f.uploaded, key)
	return key, nil
}

func (f *fakeS3) DeleteFile(objectKey string) error {
	f.deleted = append(f.deleted, objectKey)
	return nil
}

func (f *fakeS3) GetObjectKeyFromLink(link string) string { return link }
func (f *fakeS3) GetPublicLinkKey(objectKey string) string { return objectKey }

func pngDataURI(t *testing.T) string {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 8, 8))
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return "data:image/png;base64," + base64.StdEncoding.EncodeToString(buf.Bytes())
}

type recipeFixture struct {
	service    RecipeService
	recipeRepo *fakeRecipeRepo
	ingRepo    *fakeIngredientRepo
	userRepo   *fakeUserRepoForRecipes
	s3         *fakeS3
	flour      *entities.Ingredient
	sugar      *entities.Ingredient
	author     uuid.UUID
}

func newRecipeFixture() *recipeFixture {
	flour := &entities.Ingredient{ID: uuid.New(), Name: "flour", MeasurementUnit: "g"}
	sugar := &entities.Ingredient{ID: uuid.New(), Name: "sugar", MeasurementUnit: "g"}
	catalog := map[uuid.UUID]*entities.Ingredient{
		flour.ID: flour,
		sugar.ID: sugar,
	}
	recipeRepo := newFakeRecipeRepo(catalog)
	ingRepo := &fakeIngredientRepo{ingredients: catalog}
	userRepo := &fakeUserRepoForRecipes{subscriptions: map[[2]uuid.UUID]bool{}}
	s3 := &fakeS3{}

	return &recipeFixture{
		service:    NewRecipeService(recipeRepo, ingRepo, userRepo, s3),
		recipeRepo: recipeRepo,
		ingRepo:    ingRepo,
		userRepo:   userRepo,
		s3:         s3,
		flour:      flour,
		sugar:      sugar,
		author:     uuid.New(),
	}
}

func (f *recipeFixture) createRequest(t *testing.T, name string) domain.CreateRecipeRequest {
	return domain.CreateRecipeRequest{
		Name:        name,
		Text:        "mix and bake",
		CookingTime: 30,
		Image:       pngDataURI(t),
		Ingredients: []domain.IngredientLineRequest{
			{IngredientID: f.flour.ID.String(), Amount: 200},
		},
	}
}

func TestCreateRecipe(t *testing.T) {
	ctx := context.Background()
	f := newRecipeFixture()

	res, err := f.service.CreateRecipe(ctx, f.createRequest(t, "bread"), f.author.String())
	require.NoError(t, err)
	assert.Equal(t, "bread", res.Name)
	require.Len(t, res.Ingredients, 1)
	assert.Equal(t, "flour", res.Ingredients[0].Name)
	assert.Equal(t, 200, res.Ingredients[0].Amount)
	assert.Len(t, f.s3.uploaded, 1)
}

func TestCreateRecipeLineValidation(t *testing.T) {
	ctx := context.Background()
	f := newRecipeFixture()

	req := f.createRequest(t, "bread")
	req.Ingredients = nil
	_, err := f.service.CreateRecipe(ctx, req, f.author.String())
	assert.ErrorIs(t, err, domain.ErrNoIngredients)

	req = f.createRequest(t, "bread")
	req.Ingredients = []domain.IngredientLineRequest{
		{IngredientID: f.flour.ID.String(), Amount: 100},
		{IngredientID: f.flour.ID.String(), Amount: 50},
	}
	_, err = f.service.CreateRecipe(ctx, req, f.author.String())
	assert.ErrorIs(t, err, domain.ErrDuplicateIngredient)

	req = f.createRequest(t, "bread")
	req.Ingredients = []domain.IngredientLineRequest{
		{IngredientID: f.flour.ID.String(), Amount: 0},
	}
	_, err = f.service.CreateRecipe(ctx, req, f.author.String())
	assert.ErrorIs(t, err, domain.ErrInvalidAmount)

	req = f.createRequest(t, "bread")
	req.Ingredients = []domain.IngredientLineRequest{
		{IngredientID: uuid.New().String(), Amount: 10},
	}
	_, err = f.service.CreateRecipe(ctx, req, f.author.String())
	assert.ErrorIs(t, err, domain.ErrIngredientNotFound)

	req = f.createRequest(t, "bread")
	req.CookingTime = 0
	_, err = f.service.CreateRecipe(ctx, req, f.author.String())
	assert.ErrorIs(t, err, domain.ErrInvalidCookingTime)
}

func TestCreateRecipeDuplicateNamePerAuthor(t *testing.T) {
	ctx := context.Background()
	f := newRecipeFixture()

	_, err := f.service.CreateRecipe(ctx, f.createRequest(t, "bread"), f.author.String())
	require.NoError(t, err)

	_, err = f.service.CreateRecipe(ctx, f.createRequest(t, "bread"), f.author.String())
	assert.ErrorIs(t, err, domain.ErrDuplicateRecipeName)

	// same name under another author is fine
	other := uuid.New()
	_, err = f.service.CreateRecipe(ctx, f.createRequest(t, "bread"), other.String())
	assert.NoError(t, err)
}

func TestUpdateRecipeOwnership(t *testing.T) {
	ctx := context.Background()
	f := newRecipeFixture()

	created, err := f.service.CreateRecipe(ctx, f.createRequest(t, "bread"), f.author.String())
	require.NoError(t, err)

	name := "better bread"
	_, err = f.service.UpdateRecipe(ctx, created.ID, domain.UpdateRecipeRequest{Name: &name}, uuid.New().String())
	assert.ErrorIs(t, err, domain.ErrForbidden)

	updated, err := f.service.UpdateRecipe(ctx, created.ID, domain.UpdateRecipeRequest{Name: &name}, f.author.String())
	require.NoError(t, err)
	assert.Equal(t, "better bread", updated.Name)
}

func TestUpdateRecipeReplacesLines(t *testing.T) {
	ctx := context.Background()
	f := newRecipeFixture()

	created, err := f.service.CreateRecipe(ctx, f.createRequest(t, "bread"), f.author.String())
	require.NoError(t, err)

	updated, err := f.service.UpdateRecipe(ctx, created.ID, domain.UpdateRecipeRequest{
		Ingredients: []domain.IngredientLineRequest{
			{IngredientID: f.sugar.ID.String(), Amount: 50},
		},
	}, f.author.String())
	require.NoError(t, err)
	require.Len(t, updated.Ingredients, 1)
	assert.Equal(t, "sugar", updated.Ingredients[0].Name)
}

func TestDeleteRecipe(t *testing.T) {
	ctx := context.Background()
	f := newRecipeFixture()

	created, err := f.service.CreateRecipe(ctx, f.createRequest(t, "bread"), f.author.String())
	require.NoError(t, err)

	err = f.service.DeleteRecipe(ctx, created.ID, uuid.New().String())
	assert.ErrorIs(t, err, domain.ErrForbidden)

	require.NoError(t, f.service.DeleteRecipe(ctx, created.ID, f.author.String()))
	_, err = f.service.GetRecipe(ctx, created.ID, "")
	assert.ErrorIs(t, err, domain.ErrRecipeNotFound)
}

func TestFavoriteToggle(t *testing.T) {
	ctx := context.Background()
	f := newRecipeFixture()
	viewer := uuid.New()

	created, err := f.service.CreateRecipe(ctx, f.createRequest(t, "bread"), f.author.String())
	require.NoError(t, err)

	short, err := f.service.AddFavorite(ctx, created.ID, viewer.String())
	require.NoError(t, err)
	assert.Equal(t, created.ID, short.ID)

	_, err = f.service.AddFavorite(ctx, created.ID, viewer.String())
	assert.ErrorIs(t, err, domain.ErrAlreadyFavorited)

	require.NoError(t, f.service.RemoveFavorite(ctx, created.ID, viewer.String()))
	err = f.service.RemoveFavorite(ctx, created.ID, viewer.String())
	assert.ErrorIs(t, err, domain.ErrNotFavorited)

	_, err = f.service.AddFavorite(ctx, uuid.New().String(), viewer.String())
	assert.ErrorIs(t, err, domain.ErrRecipeNotFound)
}

func TestCartToggle(t *testing.T) {
	ctx := context.Background()
	f := newRecipeFixture()
	viewer := uuid.New()

	created, err := f.service.CreateRecipe(ctx, f.createRequest(t, "bread"), f.author.String())
	require.NoError(t, err)

	_, err = f.service.AddToCart(ctx, created.ID, viewer.String())
	require.NoError(t, err)

	_, err = f.service.AddToCart(ctx, created.ID, viewer.String())
	assert.ErrorIs(t, err, domain.ErrAlreadyInCart)

	require.NoError(t, f.service.RemoveFromCart(ctx, created.ID, viewer.String()))
	err = f.service.RemoveFromCart(ctx, created.ID, viewer.String())
	assert.ErrorIs(t, err, domain.ErrNotInCart)
}

func TestGetRecipesAnonymousViewerFilters(t *testing.T) {
	ctx := context.Background()
	f := newRecipeFixture()

	_, err := f.service.CreateRecipe(ctx, f.createRequest(t, "bread"), f.author.String())
	require.NoError(t, err)

	res, err := f.service.GetRecipes(ctx, domain.RecipeFilter{IsFavorited: true}, 1, 10)
	require.NoError(t, err)
	assert.Empty(t, res.Recipes)
	assert.Zero(t, res.Pagination.Total)

	res, err = f.service.GetRecipes(ctx, domain.RecipeFilter{IsInShoppingCart: true}, 1, 10)
	require.NoError(t, err)
	assert.Empty(t, res.Recipes)
}

func TestProjectionFlags(t *testing.T) {
	ctx := context.Background()
	f := newRecipeFixture()
	viewer := uuid.New()

	created, err := f.service.CreateRecipe(ctx, f.createRequest(t, "bread"), f.author.String())
	require.NoError(t, err)

	_, err = f.service.AddFavorite(ctx, created.ID, viewer.String())
	require.NoError(t, err)
	f.userRepo.subscriptions[[2]uuid.UUID{viewer, f.author}] = true

	res, err := f.service.GetRecipe(ctx, created.ID, viewer.String())
	require.NoError(t, err)
	assert.True(t, res.IsFavorited)
	assert.False(t, res.IsInShoppingCart)

	// anonymous viewer sees every flag false
	res, err = f.service.GetRecipe(ctx, created.ID, "")
	require.NoError(t, err)
	assert.False(t, res.IsFavorited)
	assert.False(t, res.IsInShoppingCart)
	assert.False(t, res.Author.IsSubscribed)
}
