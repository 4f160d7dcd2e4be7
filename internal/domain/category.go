package domain

// Category is one of the fixed catalog departments.
type Category string

const (
	CategoryElectronics Category = "electronics"
	CategoryFashion     Category = "fashion"
	CategoryAccessories Category = "accessories"
	CategoryBooks       Category = "books"
	CategorySports      Category = "sports"
	CategoryHome        Category = "home"
)

var categories = []Category{
	CategoryElectronics,
	CategoryFashion,
	CategoryAccessories,
	CategoryBooks,
	CategorySports,
	CategoryHome,
}

func (c Category) Valid() bool {
	for _, known := range categories {
		if c == known {
			return true
		}
	}
	return false
}
