package domain

var (
	MessageSuccessGetShoppingList = "success get shopping list"
	MessageFailedGetShoppingList  = "failed to get shopping list"
)

type (
	// ShoppingListItem is one aggregated row: every cart line item whose
	// ingredient shares this name and unit is summed into Total.
	ShoppingListItem struct {
		Name            string `json:"name"`
		MeasurementUnit string `json:"measurement_unit"`
		Total           int64  `json:"total"`
	}

	ShoppingListRecipe struct {
		ID         string `json:"id"`
		Name       string `json:"name"`
		AuthorName string `json:"author_name"`
	}

	ShoppingListResponse struct {
		Items   []ShoppingListItem   `json:"items"`
		Recipes []ShoppingListRecipe `json:"recipes"`
	}
)
