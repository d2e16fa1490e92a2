package clinic

import "time"

type Role string

const (
	RolePatient Role = "patient"
	RoleDoctor  Role = "doctor"
)

// Session identifies the authenticated caller for service operations. It is
// built from verified token claims by the HTTP layer and passed explicitly;
// there is no process-wide current user.
type Session struct {
	UserID string
	Role   Role
}

type AppointmentStatus string

const (
	StatusScheduled AppointmentStatus = "scheduled"
	StatusCompleted AppointmentStatus = "completed"
	StatusCancelled AppointmentStatus = "cancelled"
)

type PaymentStatus string

const (
	PaymentPending   PaymentStatus = "pending"
	PaymentCompleted PaymentStatus = "completed"
	PaymentRefunded  PaymentStatus = "refunded"
)

// Window is a half-open clock-time interval [Start, End) during which a
// doctor accepts appointments, both ends formatted as 24h "HH:MM".
type Window struct {
	Start string `json:"start"`
	End   string `json:"end"`
}

// Availability maps weekday names ("Monday", ...) to that day's windows.
type Availability map[string][]Window

type PaymentMethod struct {
	ID        string `json:"id"`
	Type      string `json:"type"` // credit_card, paypal, bank_account
	LastFour  string `json:"lastFour,omitempty"`
	CardType  string `json:"cardType,omitempty"`
	IsDefault bool   `json:"isDefault"`
	Holder    string `json:"holder"`
}

// PatientProfile carries the fields only patients have. It is populated on a
// User exactly when Role == RolePatient.
type PatientProfile struct {
	DateOfBirth       string          `json:"dateOfBirth,omitempty"`
	MedicalHistory    []string        `json:"medicalHistory,omitempty"`
	Allergies         []string        `json:"allergies,omitempty"`
	Medications       []string        `json:"medications,omitempty"`
	InsuranceProvider string          `json:"insuranceProvider,omitempty"`
	InsuranceID       string          `json:"insuranceId,omitempty"`
	PaymentMethods    []PaymentMethod `json:"paymentMethods,omitempty"`
}

// DoctorProfile carries the fields only doctors have. It is populated on a
// User exactly when Role == RoleDoctor.
type DoctorProfile struct {
	Specialty          string       `json:"specialty,omitempty"`
	License            string       `json:"license,omitempty"`
	RegistrationNumber string       `json:"registrationNumber,omitempty"`
	Education          []string     `json:"education,omitempty"`
	ExperienceYears    int          `json:"experienceYears,omitempty"`
	Availability       Availability `json:"availability,omitempty"`
	ConsultationFee    int          `json:"consultationFee,omitempty"`
	Bio                string       `json:"bio,omitempty"`
	AcceptedInsurance  []string     `json:"acceptedInsurance,omitempty"`
}

type User struct {
	ID               string          `json:"id"`
	Email            string          `json:"email"`
	PasswordHash     string          `json:"-"`
	Name             string          `json:"name"`
	Role             Role            `json:"role"`
	PhoneNumber      string          `json:"phoneNumber,omitempty"`
	EmailVerified    bool            `json:"emailVerified"`
	PhoneVerified    bool            `json:"phoneVerified"`
	ProfileCompleted bool            `json:"profileCompleted"`
	Patient          *PatientProfile `json:"patient,omitempty"`
	Doctor           *DoctorProfile  `json:"doctor,omitempty"`
	CreatedAt        time.Time       `json:"createdAt"`
	UpdatedAt        time.Time       `json:"updatedAt"`
}

type Appointment struct {
	ID            string            `json:"id"`
	PatientID     string            `json:"patientId"`
	DoctorID      string            `json:"doctorId"`
	Date          string            `json:"date"` // ISO date, 2006-01-02
	Time          string            `json:"time"` // 24h HH:MM
	Status        AppointmentStatus `json:"status"`
	PaymentStatus PaymentStatus     `json:"paymentStatus"`
	Symptoms      string            `json:"symptoms,omitempty"`
	Notes         string            `json:"notes,omitempty"`
	CreatedAt     time.Time         `json:"createdAt"`
	UpdatedAt     time.Time         `json:"updatedAt"`
}

type Consultation struct {
	ID              string    `json:"id"`
	AppointmentID   string    `json:"appointmentId"`
	PatientID       string    `json:"patientId"`
	DoctorID        string    `json:"doctorId"`
	Date            string    `json:"date"`
	DurationMinutes int       `json:"durationMinutes"`
	Notes           string    `json:"notes,omitempty"`
	Diagnosis       string    `json:"diagnosis,omitempty"`
	CreatedAt       time.Time `json:"createdAt"`
}

type PrescriptionStatus string

const (
	PrescriptionActive    PrescriptionStatus = "active"
	PrescriptionCompleted PrescriptionStatus = "completed"
	PrescriptionCancelled PrescriptionStatus = "cancelled"
)

type Prescription struct {
	ID             string             `json:"id"`
	ConsultationID string             `json:"consultationId"`
	PatientID      string             `json:"patientId"`
	MedicationName string             `json:"medicationName"`
	Dosage         string             `json:"dosage"`
	Frequency      string             `json:"frequency"`
	Duration       string             `json:"duration"`
	Notes          string             `json:"notes,omitempty"`
	IssuedDate     string             `json:"issuedDate"`
	Status         PrescriptionStatus `json:"status"`
}
