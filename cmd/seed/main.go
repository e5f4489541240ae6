package main

import (
	"context"
	"fmt"
	"log"
	"time"

	"cineticket/internal/catalog"
	"cineticket/internal/orders"
	"cineticket/internal/payments"
	"cineticket/internal/shared/config"
	"cineticket/internal/shared/database"
	"cineticket/internal/shared/middleware"
	"cineticket/internal/tickets"

	"github.com/golang-jwt/jwt/v4"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Seeder struct {
	db  *database.DB
	cfg *config.Config
}

func main() {
	fmt.Println("🌱 Starting CineTicket Database Seeder...")

	cfg := config.Load()

	var models []interface{}
	models = append(models, catalog.Models()...)
	models = append(models, orders.Models()...)
	models = append(models, payments.Models()...)
	models = append(models, tickets.Models()...)

	db, err := database.InitDB(cfg, models...)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer db.Close()

	seeder := &Seeder{db: db, cfg: cfg}

	fmt.Println("\n🧹 Cleaning database...")
	if err := seeder.CleanDatabase(); err != nil {
		log.Fatalf("Failed to clean database: %v", err)
	}
	fmt.Println("✅ Database cleaned successfully")

	fmt.Println("\n🌱 Seeding database...")
	if err := seeder.SeedAll(); err != nil {
		log.Fatalf("Failed to seed database: %v", err)
	}
	fmt.Println("✅ Database seeded successfully")

	fmt.Println("\n🔑 Development tokens (24h):")
	if err := seeder.PrintTokens(); err != nil {
		log.Fatalf("Failed to sign tokens: %v", err)
	}

	fmt.Println("\n🎉 Seeding completed! Database is ready for testing.")
}

// CleanDatabase truncates all tables, dependents first
func (s *Seeder) CleanDatabase() error {
	tables := []string{
		"e_tickets",
		"payment_transactions",
		"order_products",
		"order_tickets",
		"orders",
		"showtimes",
		"seats",
		"seat_types",
		"screens",
		"cinemas",
		"movies",
		"products",
	}

	return s.db.PostgreSQL.Transaction(func(tx *gorm.DB) error {
		for _, table := range tables {
			fmt.Printf("  Truncating table: %s\n", table)
			if err := tx.Exec(fmt.Sprintf("TRUNCATE TABLE %s RESTART IDENTITY CASCADE", table)).Error; err != nil {
				return fmt.Errorf("failed to truncate table %s: %w", table, err)
			}
		}
		return nil
	})
}

// SeedAll seeds the demo catalog
func (s *Seeder) SeedAll() error {
	ctx := context.Background()

	if err := s.SeedSeatTypes(); err != nil {
		return fmt.Errorf("failed to seed seat types: %w", err)
	}

	movieIDs, err := s.SeedMovies()
	if err != nil {
		return fmt.Errorf("failed to seed movies: %w", err)
	}

	screenIDs, err := s.SeedCinemas()
	if err != nil {
		return fmt.Errorf("failed to seed cinemas: %w", err)
	}

	if err := s.SeedShowtimes(movieIDs, screenIDs); err != nil {
		return fmt.Errorf("failed to seed showtimes: %w", err)
	}

	if err := s.SeedProducts(); err != nil {
		return fmt.Errorf("failed to seed products: %w", err)
	}

	// Stale holds and seat maps would point at deleted rows
	if err := s.db.Redis.FlushDB(ctx).Err(); err != nil {
		log.Printf("Warning: Failed to clear Redis cache: %v", err)
	}

	return nil
}

func (s *Seeder) SeedSeatTypes() error {
	fmt.Println("  💺 Seeding seat types...")

	seatTypes := []catalog.SeatType{
		{Code: "STANDARD", Name: "Standard", SurchargeRate: 1},
		{Code: "VIP", Name: "VIP", SurchargeRate: 1.5},
		{Code: "COUPLE", Name: "Couple", SurchargeRate: 2},
	}
	return s.db.PostgreSQL.Create(&seatTypes).Error
}

func (s *Seeder) SeedMovies() ([]uuid.UUID, error) {
	fmt.Println("  🎬 Seeding movies...")

	now := time.Now()
	movies := []catalog.Movie{
		{ID: uuid.New(), Title: "Dune: Part Two", DurationMinutes: 166, AgeRating: "T13", CreatedAt: now, UpdatedAt: now},
		{ID: uuid.New(), Title: "Inside Out 2", DurationMinutes: 96, AgeRating: "P", CreatedAt: now, UpdatedAt: now},
		{ID: uuid.New(), Title: "Oppenheimer", DurationMinutes: 180, AgeRating: "T16", CreatedAt: now, UpdatedAt: now},
	}
	if err := s.db.PostgreSQL.Create(&movies).Error; err != nil {
		return nil, err
	}

	ids := make([]uuid.UUID, len(movies))
	for i, m := range movies {
		ids[i] = m.ID
		fmt.Printf("    ✅ Created movie: %s\n", m.Title)
	}
	return ids, nil
}

// SeedCinemas creates two cinemas with two screens each. Rows A-F are
// standard, G-H VIP, and the last row couple seats.
func (s *Seeder) SeedCinemas() ([]uuid.UUID, error) {
	fmt.Println("  🏢 Seeding cinemas, screens and seats...")

	now := time.Now()
	cinemas := []catalog.Cinema{
		{ID: uuid.New(), Name: "CineTicket Landmark", Address: "720A Dien Bien Phu, Binh Thanh, HCMC", CreatedAt: now, UpdatedAt: now},
		{ID: uuid.New(), Name: "CineTicket Vincom Dong Khoi", Address: "72 Le Thanh Ton, District 1, HCMC", CreatedAt: now, UpdatedAt: now},
	}
	if err := s.db.PostgreSQL.Create(&cinemas).Error; err != nil {
		return nil, err
	}

	var screenIDs []uuid.UUID
	for _, cinema := range cinemas {
		for n := 1; n <= 2; n++ {
			screen := catalog.Screen{ID: uuid.New(), CinemaID: cinema.ID, Name: fmt.Sprintf("Screen %d", n), CreatedAt: now, UpdatedAt: now}
			if err := s.db.PostgreSQL.Create(&screen).Error; err != nil {
				return nil, err
			}
			seats := buildSeats(screen.ID)
			if err := s.db.PostgreSQL.CreateInBatches(&seats, 100).Error; err != nil {
				return nil, err
			}
			screenIDs = append(screenIDs, screen.ID)
			fmt.Printf("    ✅ Created %s / %s with %d seats\n", cinema.Name, screen.Name, len(seats))
		}
	}

	// A1 is out of service on every screen. Inserting IsActive=false would be
	// replaced by the column default.
	if err := s.db.PostgreSQL.Model(&catalog.Seat{}).
		Where("code = ?", "A1").
		Update("is_active", false).Error; err != nil {
		return nil, err
	}

	return screenIDs, nil
}

func buildSeats(screenID uuid.UUID) []catalog.Seat {
	rows := []string{"A", "B", "C", "D", "E", "F", "G", "H", "J"}
	var seats []catalog.Seat
	for _, row := range rows {
		seatType := "STANDARD"
		perRow := 12
		switch row {
		case "G", "H":
			seatType = "VIP"
		case "J":
			seatType = "COUPLE"
			perRow = 6
		}
		for number := 1; number <= perRow; number++ {
			code := seatType
			seats = append(seats, catalog.Seat{
				ID:           uuid.New(),
				ScreenID:     screenID,
				Row:          row,
				Number:       number,
				Code:         fmt.Sprintf("%s%d", row, number),
				SeatTypeCode: &code,
				IsActive:     true,
			})
		}
	}
	return seats
}

// SeedShowtimes schedules each movie three times a day for the next three days
func (s *Seeder) SeedShowtimes(movieIDs, screenIDs []uuid.UUID) error {
	fmt.Println("  🕒 Seeding showtimes...")

	var movies []catalog.Movie
	if err := s.db.PostgreSQL.Find(&movies, "id IN ?", movieIDs).Error; err != nil {
		return err
	}

	day := time.Now().Truncate(24 * time.Hour)
	slots := []time.Duration{10 * time.Hour, 14*time.Hour + 30*time.Minute, 19 * time.Hour}
	count := 0
	for d := 0; d < 3; d++ {
		for i, movie := range movies {
			screenID := screenIDs[i%len(screenIDs)]
			for _, slot := range slots {
				start := day.Add(time.Duration(d)*24*time.Hour + slot)
				showtime := catalog.Showtime{
					ID:        uuid.New(),
					MovieID:   movie.ID,
					ScreenID:  screenID,
					StartTime: start,
					EndTime:   start.Add(time.Duration(movie.DurationMinutes) * time.Minute),
					BasePrice: basePrice(slot),
					IsActive:  true,
					CreatedAt: time.Now(),
					UpdatedAt: time.Now(),
				}
				if err := s.db.PostgreSQL.Create(&showtime).Error; err != nil {
					return err
				}
				count++
			}
		}
	}

	fmt.Printf("    ✅ Created %d showtimes\n", count)
	return nil
}

// basePrice charges more for evening shows
func basePrice(slot time.Duration) int64 {
	if slot >= 17*time.Hour {
		return 110000
	}
	return 90000
}

func (s *Seeder) SeedProducts() error {
	fmt.Println("  🍿 Seeding products...")

	now := time.Now()
	products := []catalog.Product{
		{ID: uuid.New(), Name: "Popcorn (L)", Price: 45000, IsActive: true, CreatedAt: now, UpdatedAt: now},
		{ID: uuid.New(), Name: "Coca-Cola (M)", Price: 30000, IsActive: true, CreatedAt: now, UpdatedAt: now},
		{ID: uuid.New(), Name: "Combo 1 Popcorn + 2 Drinks", Price: 99000, IsActive: true, CreatedAt: now, UpdatedAt: now},
	}
	return s.db.PostgreSQL.Create(&products).Error
}

// PrintTokens signs access tokens for one account of each role, in the
// format the auth middleware accepts.
func (s *Seeder) PrintTokens() error {
	accounts := []struct {
		email string
		role  string
	}{
		{"admin@cineticket.vn", middleware.RoleAdmin},
		{"gate@cineticket.vn", middleware.RoleStaff},
		{"customer@cineticket.vn", middleware.RoleUser},
	}

	for _, account := range accounts {
		claims := jwt.MapClaims{
			"user_id": uuid.NewString(),
			"email":   account.email,
			"role":    account.role,
			"type":    "access",
			"exp":     time.Now().Add(24 * time.Hour).Unix(),
			"iat":     time.Now().Unix(),
		}
		token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(s.cfg.JWT.Secret))
		if err != nil {
			return err
		}
		fmt.Printf("  %-6s %s\n  %s\n", account.role, account.email, token)
	}
	return nil
}
