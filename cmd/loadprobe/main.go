// Command loadprobe checks a running server under seat contention: many
// anonymous holders race for one seat, then the seat map is read twice to
// compare the cold and cached response times.
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"sync"
	"time"

	"cineticket/internal/shared/constants"
	"cineticket/internal/shared/middleware"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
)

type ProbeResult struct {
	Name         string        `json:"name"`
	Holder       string        `json:"holder,omitempty"`
	StatusCode   int           `json:"status_code"`
	ResponseTime time.Duration `json:"response_time"`
	DataSize     int           `json:"data_size"`
	Error        string        `json:"error,omitempty"`
}

type ProbeSuite struct {
	BaseURL    string
	ShowtimeID uuid.UUID
	SeatID     uuid.UUID
	Client     *http.Client
	Redis      *redis.Client
	Results    []ProbeResult
}

func main() {
	_ = godotenv.Load()

	baseURL := flag.String("base", "http://localhost:8080/api/v1", "API base URL")
	showtime := flag.String("showtime", "", "showtime id to probe")
	seat := flag.String("seat", "", "seat id to race for")
	holders := flag.Int("holders", 20, "concurrent holders")
	redisAddr := flag.String("redis", envOr("REDIS_HOST", "localhost")+":"+envOr("REDIS_PORT", "6379"), "redis address")
	flag.Parse()

	showtimeID, err := uuid.Parse(*showtime)
	if err != nil {
		log.Fatalf("❌ -showtime must be a uuid: %v", err)
	}
	seatID, err := uuid.Parse(*seat)
	if err != nil {
		log.Fatalf("❌ -seat must be a uuid: %v", err)
	}

	suite := &ProbeSuite{
		BaseURL:    *baseURL,
		ShowtimeID: showtimeID,
		SeatID:     seatID,
		Client:     &http.Client{Timeout: 30 * time.Second},
		Redis:      redis.NewClient(&redis.Options{Addr: *redisAddr}),
	}
	defer suite.Redis.Close()

	fmt.Println("🧪 Starting seat contention probe...")
	fmt.Println("===================================")

	if err := suite.Redis.Ping(context.Background()).Err(); err != nil {
		log.Fatalf("❌ Redis connection failed: %v", err)
	}
	fmt.Println("✅ Redis connection: OK")

	winner := suite.raceForSeat(*holders)
	suite.checkHoldKey(winner)
	suite.probeSeatMap()
	if winner != "" {
		suite.release(winner)
	}

	suite.generateReport()
	if winner == "" {
		os.Exit(1)
	}
}

// raceForSeat fires all hold requests at once and returns the single winner
func (s *ProbeSuite) raceForSeat(n int) string {
	fmt.Printf("\n🔍 %d holders racing for seat %s\n", n, s.SeatID)

	body, _ := json.Marshal(map[string]interface{}{"seat_ids": []uuid.UUID{s.SeatID}})
	results := make([]ProbeResult, n)
	start := make(chan struct{})
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			holder := fmt.Sprintf("probe-%d-%s", i, uuid.NewString()[:8])
			<-start
			results[i] = s.do("hold", holder, http.MethodPost, s.holdsURL(), body)
		}(i)
	}
	close(start)
	wg.Wait()
	s.Results = append(s.Results, results...)

	var winners []string
	conflicts := 0
	for _, r := range results {
		switch r.StatusCode {
		case http.StatusCreated:
			winners = append(winners, r.Holder)
		case http.StatusConflict:
			conflicts++
		}
	}

	fmt.Printf("   granted: %d, conflicts: %d, other: %d\n", len(winners), conflicts, n-len(winners)-conflicts)
	if len(winners) != 1 {
		fmt.Printf("   ❌ expected exactly one grant, got %d\n", len(winners))
		return ""
	}
	fmt.Printf("   ✅ single winner: %s\n", winners[0])
	return winners[0]
}

func (s *ProbeSuite) checkHoldKey(winner string) {
	key := constants.BuildHoldKey(s.ShowtimeID.String(), s.SeatID.String())
	ctx := context.Background()

	holder, err := s.Redis.Get(ctx, key).Result()
	if err != nil {
		fmt.Printf("   ❌ hold key %s: %v\n", key, err)
		return
	}
	ttl, _ := s.Redis.PTTL(ctx, key).Result()
	mark := "✅"
	if holder != winner {
		mark = "❌"
	}
	fmt.Printf("   %s hold key owned by %s, ttl %v\n", mark, holder, ttl)
}

// probeSeatMap reads the seat map twice; the second read should be served
// from the booked-seat cache.
func (s *ProbeSuite) probeSeatMap() {
	fmt.Println("\n🔍 Seat map cold vs cached")
	url := fmt.Sprintf("%s/showtimes/%s/seats", s.BaseURL, s.ShowtimeID)

	_ = s.Redis.Del(context.Background(), constants.BuildBookedSeatsKey(s.ShowtimeID.String())).Err()
	cold := s.do("seat map (cold)", "", http.MethodGet, url, nil)
	time.Sleep(100 * time.Millisecond)
	warm := s.do("seat map (cached)", "", http.MethodGet, url, nil)
	s.Results = append(s.Results, cold, warm)

	if cold.Error == "" && warm.Error == "" && cold.ResponseTime > 0 {
		improvement := float64(cold.ResponseTime-warm.ResponseTime) / float64(cold.ResponseTime) * 100
		fmt.Printf("   📈 %v -> %v (%.1f%%)\n", cold.ResponseTime, warm.ResponseTime, improvement)
	}
}

func (s *ProbeSuite) release(holder string) {
	body, _ := json.Marshal(map[string]interface{}{"seat_ids": []uuid.UUID{s.SeatID}})
	s.Results = append(s.Results, s.do("release", holder, http.MethodDelete, s.holdsURL(), body))
}

func (s *ProbeSuite) holdsURL() string {
	return fmt.Sprintf("%s/showtimes/%s/holds", s.BaseURL, s.ShowtimeID)
}

func (s *ProbeSuite) do(name, holder, method, url string, body []byte) ProbeResult {
	result := ProbeResult{Name: name, Holder: holder}

	req, err := http.NewRequest(method, url, bytes.NewReader(body))
	if err != nil {
		result.Error = err.Error()
		return result
	}
	req.Header.Set("Content-Type", "application/json")
	if holder != "" {
		req.Header.Set(middleware.HolderHeader, holder)
	}

	start := time.Now()
	resp, err := s.Client.Do(req)
	result.ResponseTime = time.Since(start)
	if err != nil {
		result.Error = err.Error()
		return result
	}
	defer resp.Body.Close()

	data, _ := io.ReadAll(resp.Body)
	result.StatusCode = resp.StatusCode
	result.DataSize = len(data)
	if resp.StatusCode >= 500 {
		result.Error = fmt.Sprintf("HTTP %d", resp.StatusCode)
	}
	return result
}

func (s *ProbeSuite) generateReport() {
	fmt.Println("\n📊 Probe Summary")
	fmt.Println("================")

	var total time.Duration
	failed := 0
	for _, r := range s.Results {
		total += r.ResponseTime
		if r.Error != "" {
			failed++
			fmt.Printf("   ❌ %s %s: %s\n", r.Name, r.Holder, r.Error)
		}
	}
	if len(s.Results) > 0 {
		fmt.Printf("Requests: %d, failed: %d, avg response: %v\n", len(s.Results), failed, total/time.Duration(len(s.Results)))
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
