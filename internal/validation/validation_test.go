package validation

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/artisanmarket/promo-engine/internal/apperr"
)

type pricingInput struct {
	FeatureType string          `json:"featureType" validate:"required,max=64"`
	BasePrice   decimal.Decimal `json:"basePrice" validate:"gte=0"`
	Days        int             `json:"days" validate:"gte=1,lte=365"`
	Tier        string          `json:"tier" validate:"omitempty,oneof=gold silver"`
}

func TestStruct_Valid(t *testing.T) {
	in := pricingInput{FeatureType: "featured", BasePrice: decimal.NewFromInt(10), Days: 7}
	assert.NoError(t, Struct(in))
}

func TestStruct_CollectsEveryField(t *testing.T) {
	in := pricingInput{BasePrice: decimal.NewFromInt(-1), Days: 0, Tier: "bronze"}

	err := Struct(in)
	require.Error(t, err)

	var verr *apperr.ValidationError
	require.ErrorAs(t, err, &verr)

	fields := map[string]string{}
	for _, f := range verr.Fields {
		fields[f.Field] = f.Message
	}
	assert.Equal(t, "is required", fields["featureType"])
	assert.Equal(t, "must be greater than or equal to 0", fields["basePrice"])
	assert.Equal(t, "must be greater than or equal to 1", fields["days"])
	assert.Equal(t, "must be one of [gold silver]", fields["tier"])
}

func TestVar(t *testing.T) {
	assert.NoError(t, Var("capacityPeriod", "weekly", "oneof=daily weekly monthly"))

	err := Var("capacityPeriod", "yearly", "oneof=daily weekly monthly")
	var verr *apperr.ValidationError
	require.ErrorAs(t, err, &verr)
	require.Len(t, verr.Fields, 1)
	assert.Equal(t, "capacityPeriod", verr.Fields[0].Field)
}
