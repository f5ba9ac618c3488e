package model

import "time"

// Restaurant はレストランエンティティを表す。
type Restaurant struct {
	ID             int64
	Name           string
	CityName       string
	NeighborhoodID int64
	Address        string
	Latitude       float64
	Longitude      float64
	PostalCode     string
	Phone          string
	Website        string
	WebsiteTitle   string
	PlaceID        string
	Tags           []string
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// Dish は料理エンティティを表す。親レストランに属する。
type Dish struct {
	ID           int64
	Name         string
	RestaurantID int64
	Tags         []string
	CreatedAt    time.Time
}
