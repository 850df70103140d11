package directory

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vaidashi/courier-ledger/internal/models"
)

func testUsers() []models.User {
	return []models.User{
		{ID: "u1", Name: "Omar", Role: models.RoleDriver},
		{ID: "u2", Name: "Khaled", Role: models.RoleDriver},
		{ID: "u3", Name: "Lana", Role: models.RoleMerchant, StoreName: "Lana Store"},
		{ID: "u4", Name: "Sami", Role: models.RoleMerchant},
		{ID: "u5", Name: "Root", Role: models.RoleAdmin},
	}
}

func TestDriverNames(t *testing.T) {
	d := New(testUsers())

	assert.Equal(t, []string{"Omar", "Khaled"}, d.DriverNames())
}

func TestMerchantNamesPreferStoreName(t *testing.T) {
	d := New(testUsers())

	assert.Equal(t, []string{"Lana Store", "Sami"}, d.MerchantNames())
}

func TestFindByName(t *testing.T) {
	d := New(testUsers())

	u, ok := d.FindByName("Omar")
	require.True(t, ok)
	assert.Equal(t, "u1", u.ID)

	_, ok = d.FindByName("Nobody")
	assert.False(t, ok)
}

func TestUsersReturnsCopy(t *testing.T) {
	d := New(testUsers())

	users := d.Users()
	users[0].Name = "Mutated"

	again := d.Users()
	assert.Equal(t, "Omar", again[0].Name)
}
