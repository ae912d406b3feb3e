package compendium_test

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/suite"

	"github.com/KirkDiggler/rpg-compendium/internal/entities/compendium"
)

type PriceTestSuite struct {
	suite.Suite
}

func TestPriceSuite(t *testing.T) {
	suite.Run(t, new(PriceTestSuite))
}

func (s *PriceTestSuite) TestUnmarshalShapes() {
	testCases := []struct {
		name   string
		input  string
		copper int
		ok     bool
	}{
		{name: "value and denomination", input: `{"value":15,"denomination":"gp"}`, copper: 1500, ok: true},
		{name: "quantity and unit", input: `{"quantity":5,"unit":"sp"}`, copper: 50, ok: true},
		{name: "string value", input: `{"value":"2.5","denomination":"gp"}`, copper: 250, ok: true},
		{name: "missing denomination means gold", input: `{"value":3}`, copper: 300, ok: true},
		{name: "breakdown", input: `{"gp":1,"sp":5}`, copper: 150, ok: true},
		{name: "price string", input: `"15 gp"`, copper: 1500, ok: true},
		{name: "price string with comma", input: `"1,500 cp"`, copper: 1500, ok: true},
		{name: "bare number is gold", input: `2`, copper: 200, ok: true},
		{name: "null", input: `null`, ok: false},
		{name: "garbage string", input: `"priceless"`, ok: false},
		{name: "unknown unit", input: `{"value":1,"denomination":"gems"}`, ok: false},
	}

	for _, tc := range testCases {
		s.Run(tc.name, func() {
			var p compendium.Price
			s.Require().NoError(json.Unmarshal([]byte(tc.input), &p))

			copper, ok := p.Copper()
			s.Equal(tc.ok, ok)
			if tc.ok {
				s.Equal(tc.copper, copper)
			}
		})
	}
}

func (s *PriceTestSuite) TestMarshalCanonical() {
	single, err := json.Marshal(compendium.NewPrice(15, compendium.DenominationGold))
	s.Require().NoError(err)
	s.JSONEq(`{"value":15,"denomination":"gp"}`, string(single))

	breakdown, err := json.Marshal(compendium.NewBreakdownPrice(map[compendium.Denomination]int{
		compendium.DenominationGold:   1,
		compendium.DenominationSilver: 5,
	}))
	s.Require().NoError(err)
	s.JSONEq(`{"gp":1,"sp":5}`, string(breakdown))
}

func (s *PriceTestSuite) TestDocumentRoundTripKeepsPrice() {
	doc := &compendium.Document{
		ID:   "plate",
		Type: compendium.TypeEquipment,
		Name: "Plate Armor",
		Attributes: compendium.Attributes{
			Price: compendium.NewPrice(1500, compendium.DenominationGold),
		},
	}

	data, err := json.Marshal(doc)
	s.Require().NoError(err)

	var decoded compendium.Document
	s.Require().NoError(json.Unmarshal(data, &decoded))

	copper, ok := decoded.PriceCopper()
	s.True(ok)
	s.Equal(150000, copper)
}

func (s *PriceTestSuite) TestNilPrice() {
	var p *compendium.Price
	_, ok := p.Copper()
	s.False(ok)
	s.Equal("-", p.String())
	s.Nil(p.Clone())
}

func (s *PriceTestSuite) TestString() {
	s.Equal("15 gp", compendium.NewPrice(15, compendium.DenominationGold).String())
	s.Equal("1 gp 5 sp", compendium.NewBreakdownPrice(map[compendium.Denomination]int{
		compendium.DenominationSilver: 5,
		compendium.DenominationGold:   1,
	}).String())
}
