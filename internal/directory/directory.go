package directory

import (
	"github.com/vaidashi/courier-ledger/internal/models"
)

// Directory is a read-only view over the externally-owned user list. The
// core uses it to partition orders by driver and merchant name; it does not
// validate identity and trusts the role tags as given.
type Directory struct {
	users []models.User
}

// New creates a directory over the given users.
func New(users []models.User) *Directory {
	return &Directory{users: users}
}

// Users returns a copy of all users.
func (d *Directory) Users() []models.User {
	out := make([]models.User, len(d.users))
	copy(out, d.users)

	return out
}

// DriverNames returns the names of all users tagged as drivers, in input
// order.
func (d *Directory) DriverNames() []string {
	var names []string

	for _, u := range d.users {
		if u.Role == models.RoleDriver {
			names = append(names, u.Name)
		}
	}

	return names
}

// MerchantNames returns the names of all users tagged as merchants, in input
// order. Merchants with a store name are listed under it.
func (d *Directory) MerchantNames() []string {
	var names []string

	for _, u := range d.users {
		if u.Role != models.RoleMerchant {
			continue
		}

		if u.StoreName != "" {
			names = append(names, u.StoreName)
			continue
		}

		names = append(names, u.Name)
	}

	return names
}

// FindByName returns the first user with the given name.
func (d *Directory) FindByName(name string) (models.User, bool) {
	for _, u := range d.users {
		if u.Name == name {
			return u, true
		}
	}

	return models.User{}, false
}
