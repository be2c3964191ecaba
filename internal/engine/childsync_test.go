package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/storefront/backend/internal/domain/shared"
	"github.com/storefront/backend/internal/engine/schema"
)

type linkRow struct {
	shared.EntityBase
	OrderCode string
}

func TestPrepareChild(t *testing.T) {
	s := &Service[*linkRow]{adapter: NewAdapter(nil)}
	parent := &shared.EntityBase{Code: "o-1", CompanyCode: "acme"}
	coll := schema.ChildCollection{
		ForeignKey: "order_code",
		SetParent: func(child shared.Record, parentCode string) {
			child.(*linkRow).OrderCode = parentCode
		},
	}

	t.Run("mints a key for non-identity children", func(t *testing.T) {
		child := &linkRow{}
		s.prepareChild(coll, child, parent)

		assert.NotEmpty(t, child.Code)
		assert.Equal(t, "acme", child.CompanyCode)
		assert.Equal(t, "o-1", child.OrderCode)
	})

	t.Run("identity keys stay database-generated", func(t *testing.T) {
		identity := coll
		identity.IdentityKey = true

		child := &linkRow{}
		s.prepareChild(identity, child, parent)

		assert.Empty(t, child.Code)
		assert.Equal(t, "acme", child.CompanyCode)
		assert.Equal(t, "o-1", child.OrderCode)
	})

	t.Run("an explicit key survives", func(t *testing.T) {
		child := &linkRow{}
		child.Code = "row-7"
		s.prepareChild(coll, child, parent)

		assert.Equal(t, "row-7", child.Code)
	})
}
