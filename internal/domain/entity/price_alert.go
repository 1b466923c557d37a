package entity

import "time"

// PriceAlert tracks a user's target price for a listing. Notified is set once
// the sweep has reported the threshold crossing and cleared when the alert is
// re-armed.
type PriceAlert struct {
	ID           uint64    `json:"id" gorm:"primaryKey;autoIncrement"`
	UserID       string    `json:"userId" gorm:"column:user_id;size:128;not null;index"`
	ListingID    uint64    `json:"listingId" gorm:"column:listing_id;not null;index"`
	TargetPrice  float64   `json:"targetPrice" gorm:"column:target_price;not null"`
	CurrentPrice float64   `json:"currentPrice" gorm:"column:current_price;not null"`
	IsActive     bool      `json:"isActive" gorm:"column:is_active;not null;default:true"`
	Notified     bool      `json:"notified" gorm:"column:notified;not null;default:false"`
	CreatedAt    time.Time `json:"createdAt" gorm:"autoCreateTime"`
	UpdatedAt    time.Time `json:"updatedAt" gorm:"autoUpdateTime"`

	Listing *ListingSummary `json:"listing,omitempty" gorm:"-"`
}

func (PriceAlert) TableName() string {
	return "price_alerts"
}
