package shoppinglist

import (
	"context"
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"foodgram-backend/domain"
	"foodgram-backend/entities"
	"foodgram-backend/pkg/recipe"
)

// The schema is created by hand: the uuid_generate_v4 column defaults in
// the model tags are postgres-only, and the tests assign ids themselves.
var cartSchema = []string{
	`CREATE TABLE users (
		id TEXT PRIMARY KEY,
		email TEXT NOT NULL UNIQUE,
		username TEXT NOT NULL UNIQUE,
		first_name TEXT,
		last_name TEXT,
		password TEXT NOT NULL,
		avatar_url TEXT,
		is_verified NUMERIC,
		created_at DATETIME,
		updated_at DATETIME
	)`,
	`CREATE TABLE ingredients (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		measurement_unit TEXT NOT NULL,
		UNIQUE (name, measurement_unit)
	)`,
	`CREATE TABLE recipes (
		id TEXT PRIMARY KEY,
		author_id TEXT NOT NULL,
		name TEXT NOT NULL,
		image_url TEXT,
		text TEXT,
		cooking_time INTEGER NOT NULL,
		created_at DATETIME,
		updated_at DATETIME,
		UNIQUE (author_id, name)
	)`,
	`CREATE TABLE recipe_ingredients (
		id TEXT PRIMARY KEY,
		recipe_id TEXT NOT NULL,
		ingredient_id TEXT NOT NULL,
		amount INTEGER NOT NULL,
		UNIQUE (recipe_id, ingredient_id)
	)`,
	`CREATE TABLE favorites (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL,
		recipe_id TEXT NOT NULL,
		created_at DATETIME,
		UNIQUE (user_id, recipe_id)
	)`,
	`CREATE TABLE shopping_cart_items (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL,
		recipe_id TEXT NOT NULL,
		created_at DATETIME,
		UNIQUE (user_id, recipe_id)
	)`,
	`CREATE TABLE recipe_tags (
		recipe_id TEXT NOT NULL,
		tag_id TEXT NOT NULL,
		PRIMARY KEY (recipe_id, tag_id)
	)`,
}

func newCartTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	// one connection, so every statement sees the same in-memory database
	sqlDB.SetMaxOpenConns(1)

	for _, stmt := range cartSchema {
		require.NoError(t, db.Exec(stmt).Error)
	}
	return db
}

type cartFixture struct {
	db   *gorm.DB
	repo ShoppingListRepository

	ada, bob   *entities.User
	pie, cake  *entities.Recipe
	byNameUnit map[[2]string]*entities.Ingredient
}

func (f *cartFixture) ingredient(t *testing.T, name, unit string) *entities.Ingredient {
	t.Helper()
	if ing, ok := f.byNameUnit[[2]string{name, unit}]; ok {
		return ing
	}
	ing := &entities.Ingredient{ID: uuid.New(), Name: name, MeasurementUnit: unit}
	require.NoError(t, f.db.Create(ing).Error)
	f.byNameUnit[[2]string{name, unit}] = ing
	return ing
}

func (f *cartFixture) addLine(t *testing.T, r *entities.Recipe, name, unit string, amount int) {
	t.Helper()
	require.NoError(t, f.db.Create(&entities.RecipeIngredient{
		ID:           uuid.New(),
		RecipeID:     r.ID,
		IngredientID: f.ingredient(t, name, unit).ID,
		Amount:       amount,
	}).Error)
}

func (f *cartFixture) addToCart(t *testing.T, u *entities.User, r *entities.Recipe) {
	t.Helper()
	require.NoError(t, f.db.Create(&entities.ShoppingCartItem{
		ID:       uuid.New(),
		UserID:   u.ID,
		RecipeID: r.ID,
	}).Error)
}

// newCartFixture seeds two recipes sharing flour, a name that only sorts
// first case-insensitively, and the same ingredient name in two units:
//
//	Pie:  flour 200 g, apple 3 pcs, salt 5 g
//	Cake: flour 150 g, Banana 2 pcs, salt 1 pinch
//
// ada has both recipes in the cart, bob only Cake.
func newCartFixture(t *testing.T) *cartFixture {
	t.Helper()

	f := &cartFixture{
		db:         newCartTestDB(t),
		byNameUnit: map[[2]string]*entities.Ingredient{},
	}
	f.repo = NewShoppingListRepository(f.db)

	f.ada = &entities.User{ID: uuid.New(), Email: "ada@example.com", Username: "ada", Password: "x"}
	f.bob = &entities.User{ID: uuid.New(), Email: "bob@example.com", Username: "bob", Password: "x"}
	require.NoError(t, f.db.Create(f.ada).Error)
	require.NoError(t, f.db.Create(f.bob).Error)

	f.pie = &entities.Recipe{ID: uuid.New(), AuthorID: f.ada.ID, Name: "Pie", Text: "bake", CookingTime: 60}
	f.cake = &entities.Recipe{ID: uuid.New(), AuthorID: f.ada.ID, Name: "Cake", Text: "bake", CookingTime: 45}
	require.NoError(t, f.db.Create(f.pie).Error)
	require.NoError(t, f.db.Create(f.cake).Error)

	f.addLine(t, f.pie, "flour", "g", 200)
	f.addLine(t, f.pie, "apple", "pcs", 3)
	f.addLine(t, f.pie, "salt", "g", 5)
	f.addLine(t, f.cake, "flour", "g", 150)
	f.addLine(t, f.cake, "Banana", "pcs", 2)
	f.addLine(t, f.cake, "salt", "pinch", 1)

	f.addToCart(t, f.ada, f.pie)
	f.addToCart(t, f.ada, f.cake)
	f.addToCart(t, f.bob, f.cake)

	return f
}

func TestGetCartIngredientsAggregates(t *testing.T) {
	ctx := context.Background()
	f := newCartFixture(t)

	items, err := f.repo.GetCartIngredients(ctx, f.ada.ID)
	require.NoError(t, err)
	require.Len(t, items, 5)

	// flour from both recipes collapses into one summed row; names sort
	// case-insensitively, so Banana lands between apple and flour
	assert.Equal(t, domain.ShoppingListItem{Name: "apple", MeasurementUnit: "pcs", Total: 3}, items[0])
	assert.Equal(t, domain.ShoppingListItem{Name: "Banana", MeasurementUnit: "pcs", Total: 2}, items[1])
	assert.Equal(t, domain.ShoppingListItem{Name: "flour", MeasurementUnit: "g", Total: 350}, items[2])

	// the same name in different units stays separate
	assert.ElementsMatch(t, []domain.ShoppingListItem{
		{Name: "salt", MeasurementUnit: "g", Total: 5},
		{Name: "salt", MeasurementUnit: "pinch", Total: 1},
	}, items[3:])
}

func TestGetCartIngredientsScopedToUser(t *testing.T) {
	ctx := context.Background()
	f := newCartFixture(t)

	items, err := f.repo.GetCartIngredients(ctx, f.bob.ID)
	require.NoError(t, err)
	assert.Equal(t, []domain.ShoppingListItem{
		{Name: "Banana", MeasurementUnit: "pcs", Total: 2},
		{Name: "flour", MeasurementUnit: "g", Total: 150},
		{Name: "salt", MeasurementUnit: "pinch", Total: 1},
	}, items)

	items, err = f.repo.GetCartIngredients(ctx, uuid.New())
	require.NoError(t, err)
	assert.Empty(t, items)
}

func TestGetCartIngredientsAfterRecipeDelete(t *testing.T) {
	ctx := context.Background()
	f := newCartFixture(t)

	require.NoError(t, recipe.NewRecipeRepository(f.db).DeleteRecipe(ctx, f.cake.ID))

	items, err := f.repo.GetCartIngredients(ctx, f.ada.ID)
	require.NoError(t, err)
	assert.Equal(t, []domain.ShoppingListItem{
		{Name: "apple", MeasurementUnit: "pcs", Total: 3},
		{Name: "flour", MeasurementUnit: "g", Total: 200},
		{Name: "salt", MeasurementUnit: "g", Total: 5},
	}, items)

	items, err = f.repo.GetCartIngredients(ctx, f.bob.ID)
	require.NoError(t, err)
	assert.Empty(t, items)
}

func TestGetCartRecipes(t *testing.T) {
	ctx := context.Background()
	f := newCartFixture(t)

	recipes, err := f.repo.GetCartRecipes(ctx, f.ada.ID)
	require.NoError(t, err)
	require.Len(t, recipes, 2)
	assert.Equal(t, "Cake", recipes[0].Name)
	assert.Equal(t, "Pie", recipes[1].Name)
	require.NotNil(t, recipes[0].Author)
	assert.Equal(t, "ada", recipes[0].Author.Username)
}
