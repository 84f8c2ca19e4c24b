package models

// categoryWeights biases the heat score by topical domain. This is
// configuration data, not logic: unknown categories fall back to 1.0.
var categoryWeights = map[Category]float64{
	CategoryTech:          1.2,
	CategoryFinance:       1.2,
	CategoryEntertainment: 1.1,
	CategorySports:        1.1,
	CategoryGeneral:       1.0,
	CategoryTravel:        0.9,
	CategoryFood:          0.9,
	CategoryLifestyle:     0.8,
}

// CategoryWeight returns the heat multiplier for a category.
func CategoryWeight(c Category) float64 {
	if w, ok := categoryWeights[c]; ok {
		return w
	}
	return 1.0
}

// AllCategories lists the known categories in a stable order.
func AllCategories() []Category {
	return []Category{
		CategoryTech,
		CategoryFinance,
		CategoryEntertainment,
		CategorySports,
		CategoryGeneral,
		CategoryTravel,
		CategoryFood,
		CategoryLifestyle,
	}
}
