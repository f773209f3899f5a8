package service

import (
	"context"
	"digimart/internal/domain"
)

func float(v float64) *float64 { return &v }

var seedProducts = []domain.ProductSpec{
	{
		Title:         "Ultimate React Dashboard Template",
		Description:   "A complete admin dashboard built with React and Tailwind CSS. Includes charts, tables, and authentication pages.",
		Images:        []string{"https://picsum.photos/seed/dash1/800/600", "https://picsum.photos/seed/dash2/800/600"},
		Price:         49.99,
		DiscountPrice: float(29.99),
		Category:      domain.CategoryTemplates,
		FileURL:       "https://example.com/files/react-dash.zip",
		SourceCode: []domain.SourceFile{
			{Filename: "App.jsx", Language: domain.LangReact, Content: "export default function App() {\n  return <Dashboard />;\n}\n"},
		},
		Tags:     []string{"react", "tailwind", "admin", "dashboard"},
		DemoLink: "https://demo.example.com",
	},
	{
		Title:       "Python for Data Science Masterclass",
		Description: "Learn Python from scratch and master data analysis with Pandas, NumPy, and Matplotlib.",
		Images:      []string{"https://picsum.photos/seed/python/800/600"},
		Price:       99.00,
		Category:    domain.CategoryCourses,
		FileURL:     "https://example.com/files/python-course.pdf",
		Tags:        []string{"python", "data science", "learning"},
	},
}

// Seed fills an empty catalog with the demo products. It returns how many
// products were added.
func Seed(ctx context.Context, catalog CatalogService, admin domain.Actor) (int, error) {
	existing, err := catalog.ListProducts(ctx, admin)
	if err != nil {
		return 0, err
	}
	if len(existing) > 0 {
		return 0, nil
	}
	for i, spec := range seedProducts {
		if _, err := catalog.AddProduct(ctx, admin, spec); err != nil {
			return i, err
		}
	}
	return len(seedProducts), nil
}
