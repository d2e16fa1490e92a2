package api

import "github.com/mediconnect/booking-service/internal/clinic"

type RegisterRequest struct {
	Email              string `json:"email"`
	Password           string `json:"password"`
	Name               string `json:"name"`
	Role               string `json:"role"`
	Phone              string `json:"phone,omitempty"`
	RegistrationNumber string `json:"registration_number,omitempty"`
	OTPCode            string `json:"otp_code,omitempty"`
	VerifyMethod       string `json:"verify_method,omitempty"` // email or phone
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	OTPCode  string `json:"otp_code,omitempty"`
}

type RefreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

type SendOTPRequest struct {
	Identifier string `json:"identifier"`
}

type AuthResponse struct {
	User         clinic.User `json:"user"`
	AccessToken  string      `json:"access_token"`
	RefreshToken string      `json:"refresh_token"`
}

type BookAppointmentRequest struct {
	DoctorID string `json:"doctor_id"`
	Date     string `json:"date"` // 2006-01-02
	Time     string `json:"time"` // HH:MM
	Symptoms string `json:"symptoms,omitempty"`
}

type CompletePaymentRequest struct {
	PaymentMethodID string `json:"payment_method_id"`
}

type ConsultationRequest struct {
	DurationMinutes int                   `json:"duration_minutes"`
	Notes           string                `json:"notes,omitempty"`
	Diagnosis       string                `json:"diagnosis,omitempty"`
	Prescriptions   []PrescriptionRequest `json:"prescriptions,omitempty"`
}

type PrescriptionRequest struct {
	MedicationName string `json:"medication_name"`
	Dosage         string `json:"dosage"`
	Frequency      string `json:"frequency"`
	Duration       string `json:"duration"`
	Notes          string `json:"notes,omitempty"`
}

type PaymentMethodRequest struct {
	Type      string `json:"type"`
	LastFour  string `json:"last_four,omitempty"`
	CardType  string `json:"card_type,omitempty"`
	IsDefault bool   `json:"is_default"`
	Holder    string `json:"holder"`
}

type ProfileUpdateRequest struct {
	Name        string                 `json:"name,omitempty"`
	Phone       string                 `json:"phone,omitempty"`
	DateOfBirth string                 `json:"date_of_birth,omitempty"`
	Patient     *clinic.PatientProfile `json:"patient,omitempty"`
	Doctor      *clinic.DoctorProfile  `json:"doctor,omitempty"`
}

type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}
