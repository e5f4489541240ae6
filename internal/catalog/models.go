package catalog

import (
	"math"
	"time"

	"github.com/google/uuid"
)

// Movie is the film shown in a showtime
type Movie struct {
	ID              uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	Title           string    `gorm:"type:varchar(255);not null" json:"title"`
	DurationMinutes int       `gorm:"not null" json:"duration_minutes"`
	AgeRating       string    `gorm:"type:varchar(10)" json:"age_rating,omitempty"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// Cinema is a physical venue with one or more screens
type Cinema struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	Name      string    `gorm:"type:varchar(255);not null" json:"name"`
	Address   string    `gorm:"type:text" json:"address,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Screen is an auditorium inside a cinema
type Screen struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	CinemaID  uuid.UUID `gorm:"type:uuid;index;not null" json:"cinema_id"`
	Name      string    `gorm:"type:varchar(100);not null" json:"name"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// Relationships
	Cinema *Cinema `json:"cinema,omitempty" gorm:"foreignKey:CinemaID"`
}

// Showtime schedules a movie on a screen at a base ticket price
type Showtime struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	MovieID   uuid.UUID `gorm:"type:uuid;index;not null" json:"movie_id"`
	ScreenID  uuid.UUID `gorm:"type:uuid;index;not null" json:"screen_id"`
	StartTime time.Time `gorm:"not null;index" json:"start_time"`
	EndTime   time.Time `gorm:"not null" json:"end_time"`
	BasePrice int64     `gorm:"not null" json:"base_price"`
	IsActive  bool      `gorm:"not null;default:true" json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// Relationships
	Movie  *Movie  `json:"movie,omitempty" gorm:"foreignKey:MovieID"`
	Screen *Screen `json:"screen,omitempty" gorm:"foreignKey:ScreenID"`
}

// HasStarted reports whether the showtime start is at or before now
func (s *Showtime) HasStarted(now time.Time) bool {
	return !now.Before(s.StartTime)
}

// SeatType carries the surcharge applied on top of the showtime base price
type SeatType struct {
	Code          string  `gorm:"type:varchar(20);primaryKey" json:"code"`
	Name          string  `gorm:"type:varchar(100);not null" json:"name"`
	SurchargeRate float64 `gorm:"not null;default:1" json:"surcharge_rate"`
}

// Seat is a physical seat within a screen
type Seat struct {
	ID           uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	ScreenID     uuid.UUID `gorm:"type:uuid;index;not null" json:"screen_id"`
	Row          string    `gorm:"type:varchar(5);not null" json:"row"`
	Number       int       `gorm:"not null" json:"number"`
	Code         string    `gorm:"type:varchar(10);not null" json:"code"`
	SeatTypeCode *string   `gorm:"type:varchar(20)" json:"seat_type_code,omitempty"`
	IsActive     bool      `gorm:"not null;default:true" json:"is_active"`
}

// Product is a concession item sold alongside or without tickets
type Product struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	Name      string    `gorm:"type:varchar(255);not null" json:"name"`
	Price     int64     `gorm:"not null" json:"price"`
	IsActive  bool      `gorm:"not null;default:true" json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName sets the table name for Movie
func (Movie) TableName() string { return "movies" }

// TableName sets the table name for Cinema
func (Cinema) TableName() string { return "cinemas" }

// TableName sets the table name for Screen
func (Screen) TableName() string { return "screens" }

// TableName sets the table name for Showtime
func (Showtime) TableName() string { return "showtimes" }

// TableName sets the table name for SeatType
func (SeatType) TableName() string { return "seat_types" }

// TableName sets the table name for Seat
func (Seat) TableName() string { return "seats" }

// TableName sets the table name for Product
func (Product) TableName() string { return "products" }

// Models lists the catalog tables for migration
func Models() []interface{} {
	return []interface{}{&Movie{}, &Cinema{}, &Screen{}, &Showtime{}, &SeatType{}, &Seat{}, &Product{}}
}

// SeatPrice computes base x surcharge, rounded to the nearest currency unit.
// A nil seat type charges the base price.
func SeatPrice(basePrice int64, seatType *SeatType) (int64, float64) {
	rate := 1.0
	if seatType != nil && seatType.SurchargeRate > 0 {
		rate = seatType.SurchargeRate
	}
	return int64(math.Round(float64(basePrice) * rate)), rate
}
