package model

// CategoryOther is the id assigned when an entry has no category.
const CategoryOther = "10"

// Category groups entries for display. Icon is the icon name the mobile
// client renders; it carries no meaning server-side.
type Category struct {
	ID   string
	Name string
	Icon string
}

// Categories is the fixed category list, ordered by id.
var Categories = []Category{
	{ID: "1", Name: "Social", Icon: "logo-instagram"},
	{ID: "2", Name: "Google", Icon: "logo-google"},
	{ID: "3", Name: "Email", Icon: "mail"},
	{ID: "4", Name: "Banking", Icon: "card"},
	{ID: "5", Name: "Shopping", Icon: "bag-handle"},
	{ID: "6", Name: "Entertainment", Icon: "musical-notes"},
	{ID: "7", Name: "Health & Fitness", Icon: "fitness"},
	{ID: "8", Name: "Travel", Icon: "airplane"},
	{ID: "9", Name: "Work", Icon: "briefcase"},
	{ID: CategoryOther, Name: "Other", Icon: "ellipsis-horizontal"},
}

// CategoryByID returns the category with the given id.
func CategoryByID(id string) (Category, bool) {
	for _, c := range Categories {
		if c.ID == id {
			return c, true
		}
	}
	return Category{}, false
}
