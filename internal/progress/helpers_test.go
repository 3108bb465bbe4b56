package progress

import "learnstack/internal/models"

func testCatalog() Catalog {
	return Catalog{
		{
			ID:    "arrays",
			Name:  "Arrays",
			Order: 1,
			Algorithms: []models.Algorithm{
				{ID: "traversal", Points: 50},
				{ID: "insertion", Points: 50},
			},
		},
		{
			ID:            "searching",
			Name:          "Searching",
			Order:         2,
			Prerequisites: models.StringList{"arrays"},
			Algorithms: []models.Algorithm{
				{ID: "linearSearch", Points: 50},
				{ID: "binarySearch", Points: 75},
			},
		},
		{
			ID:            "sorting",
			Name:          "Sorting",
			Order:         3,
			Prerequisites: models.StringList{"searching"},
			Algorithms: []models.Algorithm{
				{ID: "bubbleSort", Points: 50},
			},
		},
	}
}

func newUser(c Catalog) *models.UserProgress {
	p := models.NewUserProgress(1)
	InitializeLearningPath(p, c)
	return p
}

func intPtr(v int) *int           { return &v }
func floatPtr(v float64) *float64 { return &v }
func boolPtr(v bool) *bool        { return &v }
