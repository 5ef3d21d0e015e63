package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewCustomer(t *testing.T) {
	t.Parallel()

	c, err := NewCustomer("c-1", "tenant-1", "Ada", "ada@example.com", "", "")
	require.NoError(t, err)
	assert.Equal(t, "c-1", c.ID)
	assert.Equal(t, "tenant-1", c.TenantID)
	assert.False(t, c.CreatedAt.IsZero())

	_, err = NewCustomer("c-1", "", "", "ada@example.com", "", "")
	assert.Error(t, err, "name is required")

	_, err = NewCustomer("c-1", "", "Ada", "not-an-email", "", "")
	assert.Error(t, err, "email must contain an @")
}

func TestNewCustomerItem(t *testing.T) {
	t.Parallel()

	item, err := NewCustomerItem("i-1", "c-1", "tenant-1", "Widget", "tools", 9.99, 3)
	require.NoError(t, err)
	assert.Equal(t, 3, item.Quantity)

	_, err = NewCustomerItem("i-1", "c-1", "", "Widget", "", -1, 3)
	assert.Error(t, err, "negative price is rejected")

	_, err = NewCustomerItem("i-1", "c-1", "", "Widget", "", 1, -1)
	assert.Error(t, err, "negative quantity is rejected")

	_, err = NewCustomerItem("i-1", "", "", "Widget", "", 1, 1)
	assert.Error(t, err, "owner is required")
}
