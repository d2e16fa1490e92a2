package main

import (
	"context"
	"log"
	"time"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/mediconnect/booking-service/internal/clinic"
	"github.com/mediconnect/booking-service/internal/config"
	"github.com/mediconnect/booking-service/internal/kvstore"
	"github.com/mediconnect/booking-service/internal/record"
	redisclient "github.com/mediconnect/booking-service/internal/redis"
)

// Every seeded account gets this password so local clients can log in.
const seedPassword = "password123"

const (
	doctorCount  = 20
	patientCount = 200
)

var specialties = []string{
	"Dermatology",
	"Cardiology",
	"General Practice",
	"Orthopedics",
	"Endocrinology",
	"Neurology",
	"Pediatrics",
	"Psychiatry",
	"Ophthalmology",
	"ENT",
}

var weekdays = []string{"Monday", "Tuesday", "Wednesday", "Thursday", "Friday", "Saturday"}

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)
	log.Println("seed starting")

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

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	if err := repo.Migrate(ctx); err != nil {
		log.Fatalf("store migration error: %v", err)
	}

	gofakeit.Seed(time.Now().UnixNano())

	hash, err := bcrypt.GenerateFromPassword([]byte(seedPassword), bcrypt.DefaultCost)
	if err != nil {
		log.Fatalf("hash seed password: %v", err)
	}

	users, err := repo.Users(ctx)
	if err != nil {
		log.Fatalf("load users: %v", err)
	}
	if len(users) > 0 {
		log.Fatalf("refusing to seed: %d users already present", len(users))
	}

	log.Printf("seeding %d doctors", doctorCount)
	for i := 0; i < doctorCount; i++ {
		users = append(users, newDoctor(string(hash)))
	}

	log.Printf("seeding %d patients", patientCount)
	for i := 0; i < patientCount; i++ {
		users = append(users, newPatient(string(hash)))
	}

	if err := repo.SaveUsers(ctx, users); err != nil {
		log.Fatalf("save users: %v", err)
	}

	log.Println("seed complete")
}

func newDoctor(passwordHash string) clinic.User {
	now := time.Now()

	availability := clinic.Availability{}
	// Two or three working days, each with a morning and an afternoon window.
	days := gofakeit.Number(2, 3)
	for _, day := range pickDays(days) {
		availability[day] = []clinic.Window{
			{Start: "09:00", End: "12:00"},
			{Start: "13:00", End: "17:00"},
		}
	}

	return clinic.User{
		ID:               uuid.NewString(),
		Email:            gofakeit.Email(),
		PasswordHash:     passwordHash,
		Name:             "Dr. " + gofakeit.Name(),
		Role:             clinic.RoleDoctor,
		PhoneNumber:      gofakeit.Phone(),
		EmailVerified:    true,
		ProfileCompleted: true,
		Doctor: &clinic.DoctorProfile{
			Specialty:          specialties[gofakeit.Number(0, len(specialties)-1)],
			RegistrationNumber: gofakeit.DigitN(8),
			ExperienceYears:    gofakeit.Number(2, 30),
			Availability:       availability,
			ConsultationFee:    gofakeit.Number(50, 300),
		},
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func newPatient(passwordHash string) clinic.User {
	now := time.Now()
	return clinic.User{
		ID:               uuid.NewString(),
		Email:            gofakeit.Email(),
		PasswordHash:     passwordHash,
		Name:             gofakeit.Name(),
		Role:             clinic.RolePatient,
		PhoneNumber:      gofakeit.Phone(),
		EmailVerified:    true,
		ProfileCompleted: true,
		Patient: &clinic.PatientProfile{
			DateOfBirth:    gofakeit.DateRange(time.Date(1950, 1, 1, 0, 0, 0, 0, time.UTC), time.Date(2005, 1, 1, 0, 0, 0, 0, time.UTC)).Format("2006-01-02"),
			PaymentMethods: []clinic.PaymentMethod{},
		},
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func pickDays(n int) []string {
	picked := make([]string, 0, n)
	used := make(map[int]bool)
	for len(picked) < n {
		i := gofakeit.Number(0, len(weekdays)-1)
		if used[i] {
			continue
		}
		used[i] = true
		picked = append(picked, weekdays[i])
	}
	return picked
}
