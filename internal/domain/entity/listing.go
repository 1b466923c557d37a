package entity

// Listing is the read-only view of a car listing. The listings table belongs
// to the catalogue; this service never writes it.
type Listing struct {
	ID       uint64   `json:"id" gorm:"primaryKey"`
	SellerID string   `json:"sellerId" gorm:"column:seller_id;size:128"`
	IsActive bool     `json:"isActive" gorm:"column:is_active"`
	Brand    string   `json:"brand" gorm:"column:brand"`
	Model    string   `json:"model" gorm:"column:model"`
	Year     int      `json:"year" gorm:"column:year"`
	Price    float64  `json:"price" gorm:"column:price"`
	Photos   []string `json:"photos" gorm:"column:photos;serializer:json"`
}

func (Listing) TableName() string {
	return "listings"
}

// ListingSummary is the listing snapshot embedded in chat and alert payloads.
type ListingSummary struct {
	ID     uint64   `json:"id"`
	Brand  string   `json:"brand"`
	Model  string   `json:"model"`
	Price  float64  `json:"price"`
	Photos []string `json:"photos"`
}

func (l *Listing) Summary() *ListingSummary {
	if l == nil {
		return nil
	}
	return &ListingSummary{
		ID:     l.ID,
		Brand:  l.Brand,
		Model:  l.Model,
		Price:  l.Price,
		Photos: l.Photos,
	}
}
