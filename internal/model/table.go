package model

import "github.com/shopspring/decimal"

// BilliardTable is a row of the billiard_tables catalogue.  Price is the
// hourly rate used to compute reservation bills.
type BilliardTable struct {
	TableID      uint64          `json:"table_id"`
	TableName    string          `json:"table_name"`
	BilliardType string          `json:"billiard_type"`
	Price        decimal.Decimal `json:"price"`
}
