package schema

// ProcessedAt is the optional run time-stamp column.
const ProcessedAt = "processed_at"

// Crypto is the row-level market snapshot table.
func Crypto(processedAt bool) Contract {
	c := Contract{
		Name:     "crypto_data",
		Identity: "id",
		Key:      []string{"name"},
		Fields: []Field{
			{Name: "name", Type: TypeText, Required: true},
			{Name: "current_price", Type: TypeFloat, Default: 0.0},
			{Name: "market_cap", Type: TypeFloat, Default: 0.0},
			{Name: "price_change_percentage_24h", Type: TypeFloat, Default: 0.0},
			{Name: "adjusted_price", Type: TypeFloat, Default: 0.0},
		},
	}
	if processedAt {
		c.Fields = append(c.Fields, Field{Name: ProcessedAt, Type: TypeText})
	}
	return c
}

// Sales is the per country and product line aggregate table.
func Sales(processedAt bool) Contract {
	c := Contract{
		Name:     "sales",
		Identity: "id",
		Key:      []string{"country", "productline"},
		Fields: []Field{
			{Name: "country", Type: TypeText, Required: true},
			{Name: "productline", Type: TypeText, Required: true},
			{Name: "sales", Type: TypeFloat, Default: 0.0},
			{Name: "quantityordered", Type: TypeFloat, Default: 0.0},
		},
	}
	if processedAt {
		c.Fields = append(c.Fields, Field{Name: ProcessedAt, Type: TypeText})
	}
	return c
}
