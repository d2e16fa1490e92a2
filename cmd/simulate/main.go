// simulate is a load generator for the booking API. It logs in a pool of
// seeded patients, derives bookable slots from the seeded doctors'
// availability, then hammers POST /appointments from concurrent workers and
// checks that no slot was ever granted twice.
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"math/rand"
	"net/http"
	"os"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/mediconnect/booking-service/internal/clinic"
	"github.com/mediconnect/booking-service/internal/config"
	"github.com/mediconnect/booking-service/internal/kvstore"
	"github.com/mediconnect/booking-service/internal/record"
	redisclient "github.com/mediconnect/booking-service/internal/redis"
)

const seedPassword = "password123"

type SimConfig struct {
	APIBaseURL   string
	Duration     time.Duration
	Workers      int
	PatientLimit int
	SlotLimit    int
}

type slotKey struct {
	DoctorID string
	Date     string
	Time     string
}

type Stats struct {
	booked    atomic.Int64
	conflicts atomic.Int64
	busy      atomic.Int64
	rejected  atomic.Int64
	errors    atomic.Int64
}

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)

	sim := SimConfig{
		APIBaseURL:   getEnv("API_BASE_URL", "http://127.0.0.1:8080"),
		Duration:     getDurationEnv("SIM_DURATION", 30*time.Second),
		Workers:      getIntEnv("SIM_WORKERS", 16),
		PatientLimit: getIntEnv("SIM_PATIENTS", 50),
		SlotLimit:    getIntEnv("SIM_SLOTS", 40),
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config load error: %v", err)
	}

	rdb, err := redisclient.NewRedisClient(cfg.RedisAddr, cfg.RedisUsername, cfg.RedisPassword)
	if err != nil {
		log.Fatalf("redis connection error: %v", err)
	}
	defer rdb.Close()

	repo := record.New(kvstore.NewRedis(rdb, cfg.KeyPrefix))

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	users, err := repo.Users(ctx)
	cancel()
	if err != nil {
		log.Fatalf("load users: %v", err)
	}

	tokens := loginPatients(sim, users)
	if len(tokens) == 0 {
		log.Fatal("no patients could log in; run cmd/seed first")
	}
	slots := deriveSlots(sim, users)
	if len(slots) == 0 {
		log.Fatal("no bookable slots derived from seeded doctors")
	}
	log.Printf("simulating with patients=%d slots=%d workers=%d duration=%s",
		len(tokens), len(slots), sim.Workers, sim.Duration)

	var stats Stats
	granted := make(map[slotKey]int)
	var grantedMu sync.Mutex

	runCtx, stop := context.WithTimeout(context.Background(), sim.Duration)
	defer stop()

	var wg sync.WaitGroup
	for w := 0; w < sim.Workers; w++ {
		wg.Add(1)
		go func(seed int64) {
			defer wg.Done()
			rng := rand.New(rand.NewSource(seed))
			client := &http.Client{Timeout: 10 * time.Second}

			for runCtx.Err() == nil {
				token := tokens[rng.Intn(len(tokens))]
				slot := slots[rng.Intn(len(slots))]

				status := book(client, sim.APIBaseURL, token, slot, &stats)
				if status == http.StatusCreated {
					grantedMu.Lock()
					granted[slot]++
					grantedMu.Unlock()
				}
			}
		}(time.Now().UnixNano() + int64(w))
	}
	wg.Wait()

	log.Printf("results: booked=%d slot_taken=%d slot_busy=%d rejected=%d errors=%d",
		stats.booked.Load(), stats.conflicts.Load(), stats.busy.Load(),
		stats.rejected.Load(), stats.errors.Load())

	doubles := 0
	for slot, n := range granted {
		if n > 1 {
			doubles++
			log.Printf("INVARIANT VIOLATION: slot %s %s %s granted %d times", slot.DoctorID, slot.Date, slot.Time, n)
		}
	}
	if doubles == 0 {
		log.Println("invariant held: no slot granted more than once")
	} else {
		os.Exit(1)
	}
}

func loginPatients(sim SimConfig, users []clinic.User) []string {
	client := &http.Client{Timeout: 10 * time.Second}
	var tokens []string

	for _, u := range users {
		if u.Role != clinic.RolePatient {
			continue
		}
		if len(tokens) >= sim.PatientLimit {
			break
		}

		body, _ := json.Marshal(map[string]string{"email": u.Email, "password": seedPassword})
		resp, err := client.Post(sim.APIBaseURL+"/auth/login", "application/json", bytes.NewReader(body))
		if err != nil {
			log.Printf("login %s: %v", u.Email, err)
			continue
		}
		var out struct {
			AccessToken string `json:"access_token"`
		}
		err = json.NewDecoder(resp.Body).Decode(&out)
		resp.Body.Close()
		if err != nil || resp.StatusCode != http.StatusOK || out.AccessToken == "" {
			continue
		}
		tokens = append(tokens, out.AccessToken)
	}
	return tokens
}

// deriveSlots expands each doctor's weekly windows over the next two weeks
// into concrete half-hour slots, capped at SlotLimit so workers collide on a
// small hot set.
func deriveSlots(sim SimConfig, users []clinic.User) []slotKey {
	var slots []slotKey
	today := time.Now()

	for _, u := range users {
		if u.Role != clinic.RoleDoctor || u.Doctor == nil {
			continue
		}
		for offset := 1; offset <= 14; offset++ {
			day := today.AddDate(0, 0, offset)
			windows := u.Doctor.Availability[day.Weekday().String()]
			for _, w := range windows {
				for _, t := range halfHours(w) {
					slots = append(slots, slotKey{
						DoctorID: u.ID,
						Date:     day.Format("2006-01-02"),
						Time:     t,
					})
					if len(slots) >= sim.SlotLimit {
						return slots
					}
				}
			}
		}
	}
	return slots
}

func halfHours(w clinic.Window) []string {
	var out []string
	start, err1 := parseClock(w.Start)
	end, err2 := parseClock(w.End)
	if err1 != nil || err2 != nil {
		return nil
	}
	for m := start; m < end; m += 30 {
		out = append(out, fmt.Sprintf("%02d:%02d", m/60, m%60))
	}
	return out
}

func parseClock(clock string) (int, error) {
	if len(clock) != 5 {
		return 0, fmt.Errorf("bad clock %q", clock)
	}
	h, err := strconv.Atoi(clock[:2])
	if err != nil {
		return 0, err
	}
	m, err := strconv.Atoi(clock[3:])
	if err != nil {
		return 0, err
	}
	return h*60 + m, nil
}

func book(client *http.Client, baseURL, token string, slot slotKey, stats *Stats) int {
	body, _ := json.Marshal(map[string]string{
		"doctor_id": slot.DoctorID,
		"date":      slot.Date,
		"time":      slot.Time,
	})

	req, err := http.NewRequest(http.MethodPost, baseURL+"/appointments", bytes.NewReader(body))
	if err != nil {
		stats.errors.Add(1)
		return 0
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := client.Do(req)
	if err != nil {
		stats.errors.Add(1)
		return 0
	}
	defer resp.Body.Close()

	var errBody struct {
		Error string `json:"error"`
	}
	raw, _ := io.ReadAll(resp.Body)
	_ = json.Unmarshal(raw, &errBody)

	switch {
	case resp.StatusCode == http.StatusCreated:
		stats.booked.Add(1)
	case errBody.Error == "slot_taken":
		stats.conflicts.Add(1)
	case errBody.Error == "slot_busy":
		stats.busy.Add(1)
	case resp.StatusCode >= 400 && resp.StatusCode < 500:
		stats.rejected.Add(1)
	default:
		stats.errors.Add(1)
	}
	return resp.StatusCode
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getIntEnv(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func getDurationEnv(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}
