package core

// Operation is what a caller wants to do with a target entity.
type Operation int

const (
	OpRead Operation = iota + 1
	OpWrite
	OpDelete
)

func (op Operation) String() string {
	switch op {
	case OpRead:
		return "read"
	case OpWrite:
		return "write"
	case OpDelete:
		return "delete"
	}
	return "unknown"
}

// ResolvePermission returns the user's grant on the category, treating a
// missing row as None. It consults exactly the (user, category) pair, a
// grant on a parent category does not propagate to children.
func (c *CoreDB) ResolvePermission(u *User, categoryID int) (Permission, error) {
	if u == nil {
		return None, nil
	}
	return c.GrantStore.GetPermission(u.ID, categoryID)
}

// CanAccessCategory decides whether the user may perform the operation on
// the category. It never mutates state; the returned error reports storage
// failure only, denial is the false return.
//
// Category mutation is admin-gated: creating a category self-grants write to
// its creator, but that grant governs the category's articles, not the
// category row itself.
func (c *CoreDB) CanAccessCategory(u *User, cat *Category, op Operation) (bool, error) {

	if u == nil {
		return false, nil
	}

	if u.IsAdmin() {
		return true, nil
	}

	switch op {
	case OpRead:
		if cat.CreatedBy == u.ID {
			return true, nil
		}
		perm, err := c.ResolvePermission(u, cat.ID)
		if err != nil {
			return false, err
		}
		return perm >= Read, nil
	default:
		return false, nil
	}
}

// CanAccessArticle decides whether the user may perform the operation on the
// article. The article's original author always retains edit and delete
// rights, regardless of category grants. Everyone else goes through the
// grant on the article's category.
func (c *CoreDB) CanAccessArticle(u *User, a *Article, op Operation) (bool, error) {

	if u == nil {
		return false, nil
	}

	if u.IsAdmin() {
		return true, nil
	}

	switch op {

	case OpDelete:
		return a.AuthorID == u.ID, nil

	case OpWrite:
		if a.AuthorID == u.ID {
			return true, nil
		}
		if a.CategoryID == nil {
			return false, nil
		}
		perm, err := c.ResolvePermission(u, *a.CategoryID)
		if err != nil {
			return false, err
		}
		return perm >= Write, nil

	case OpRead:
		// edit implies read
		if a.AuthorID == u.ID {
			return true, nil
		}
		if a.CategoryID == nil {
			// no category grant can confer access to an uncategorized article
			return false, nil
		}
		perm, err := c.ResolvePermission(u, *a.CategoryID)
		if err != nil {
			return false, err
		}
		if !a.Published {
			// drafts are hidden from read-only grant holders
			return perm >= Write, nil
		}
		return perm >= Read, nil
	}

	return false, nil
}

// VisibleCategories lists the categories the user may read, de-duplicated
// by id. Admins see all rows.
func (c *CoreDB) VisibleCategories(u *User, limit, offset int) ([]*Category, error) {
	if u.IsAdmin() {
		return c.GetAllCategories(limit, offset)
	}
	if u == nil {
		return []*Category{}, nil
	}
	return c.GetCategoriesFor(u.ID, limit, offset)
}

// FilterReadableArticles applies the per-item read rule over a collection.
func (c *CoreDB) FilterReadableArticles(u *User, articles []*Article) ([]*Article, error) {
	var readable = []*Article{}
	for _, a := range articles {
		ok, err := c.CanAccessArticle(u, a, OpRead)
		if err != nil {
			return nil, err
		}
		if ok {
			readable = append(readable, a)
		}
	}
	return readable, nil
}
