package customer

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSnapshot_EmptyStringsForMissingFields(t *testing.T) {
	phone := "0812"
	c := Customer{Name: "Acme", Phone: &phone}

	s := c.Snapshot()
	assert.Equal(t, "Acme", s.Name)
	assert.Equal(t, "0812", s.Phone)
	assert.Equal(t, "", s.Address)
}
