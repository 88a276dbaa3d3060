package medication

// Medication is an inventory line in the pharmacy.
type Medication struct {
	ID                string  `json:"id"`
	Name              string  `json:"name"`
	Price             float64 `json:"price"`
	Stock             int     `json:"stock"`
	LowStockThreshold int     `json:"low_stock_threshold"`
}

// LowStock reports whether stock is at or below the threshold.
func (m Medication) LowStock() bool { return m.Stock <= m.LowStockThreshold }
