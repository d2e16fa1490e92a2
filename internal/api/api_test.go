package api_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/mediconnect/booking-service/internal/api"
	"github.com/mediconnect/booking-service/internal/auth"
	"github.com/mediconnect/booking-service/internal/clinic"
	"github.com/mediconnect/booking-service/internal/eventlog"
	"github.com/mediconnect/booking-service/internal/kvstore"
	"github.com/mediconnect/booking-service/internal/record"
)

type passLocker struct{}

func (passLocker) WithLock(ctx context.Context, key string, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()

	repo := record.New(kvstore.NewMemory())
	if err := repo.Migrate(context.Background()); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	locker := passLocker{}
	tokens := auth.NewTokenIssuer("access-secret", "refresh-secret", 15*time.Minute, 7*24*time.Hour)
	otp := auth.NewOTPManager(repo, locker, 10*time.Minute, time.Minute, 5)
	authSvc := auth.NewService(repo, otp, tokens, locker, eventlog.Nop{})
	clinicSvc := clinic.NewService(repo, locker, eventlog.Nop{})

	handler := api.NewRouter(api.RouterConfig{
		Auth:    authSvc,
		Clinic:  clinicSvc,
		Tokens:  tokens,
		Env:     "test",
		Version: "test",
	})

	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return srv
}

// do sends a JSON request, optionally with a bearer token, and decodes the
// response body into out when out is non-nil.
func do(t *testing.T, srv *httptest.Server, method, path, token string, body, out any) int {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatal(err)
		}
	}

	req, err := http.NewRequest(method, srv.URL+path, &buf)
	if err != nil {
		t.Fatal(err)
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := srv.Client().Do(req)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			t.Fatalf("%s %s: decode response: %v", method, path, err)
		}
	}
	return resp.StatusCode
}

type authResult struct {
	User        clinic.User `json:"user"`
	AccessToken string      `json:"access_token"`
}

func registerDoctor(t *testing.T, srv *httptest.Server) authResult {
	t.Helper()

	var res authResult
	status := do(t, srv, http.MethodPost, "/auth/register", "", api.RegisterRequest{
		Email: "dr.sharma@example.com", Password: "secret123", Name: "Dr. Sharma",
		Role: "doctor", RegistrationNumber: "MCI-12345",
	}, &res)
	if status != http.StatusCreated {
		t.Fatalf("register doctor: status %d", status)
	}

	// 2026-01-05 is a Monday.
	status = do(t, srv, http.MethodPatch, "/profile", res.AccessToken, api.ProfileUpdateRequest{
		Doctor: &clinic.DoctorProfile{
			Specialty: "Cardiology",
			Availability: clinic.Availability{
				"Monday": {{Start: "09:00", End: "12:00"}},
			},
		},
	}, nil)
	if status != http.StatusOK {
		t.Fatalf("set availability: status %d", status)
	}
	return res
}

func registerPatient(t *testing.T, srv *httptest.Server, email string) authResult {
	t.Helper()

	var res authResult
	status := do(t, srv, http.MethodPost, "/auth/register", "", api.RegisterRequest{
		Email: email, Password: "secret123", Name: "Test Patient", Role: "patient",
	}, &res)
	if status != http.StatusCreated {
		t.Fatalf("register patient %s: status %d", email, status)
	}
	return res
}

func TestBookingFlow(t *testing.T) {
	srv := newTestServer(t)

	doctor := registerDoctor(t, srv)
	patient := registerPatient(t, srv, "rahul@example.com")
	rival := registerPatient(t, srv, "priya@example.com")

	book := api.BookAppointmentRequest{
		DoctorID: doctor.User.ID, Date: "2026-01-05", Time: "10:00", Symptoms: "chest pain",
	}

	var appt clinic.Appointment
	if status := do(t, srv, http.MethodPost, "/appointments", patient.AccessToken, book, &appt); status != http.StatusCreated {
		t.Fatalf("book: status %d", status)
	}
	if appt.Status != clinic.StatusScheduled || appt.PaymentStatus != clinic.PaymentPending {
		t.Fatalf("booked appointment = %+v", appt)
	}

	// Same slot for another patient conflicts.
	var apiErr api.ErrorResponse
	if status := do(t, srv, http.MethodPost, "/appointments", rival.AccessToken, book, &apiErr); status != http.StatusConflict {
		t.Fatalf("double book: status %d", status)
	}
	if apiErr.Error != "slot_taken" {
		t.Fatalf("double book error = %q, want slot_taken", apiErr.Error)
	}

	// Cancelling frees the slot for the rival.
	if status := do(t, srv, http.MethodPost, "/appointments/"+appt.ID+"/cancel", patient.AccessToken, nil, nil); status != http.StatusOK {
		t.Fatalf("cancel: status %d", status)
	}
	if status := do(t, srv, http.MethodPost, "/appointments", rival.AccessToken, book, nil); status != http.StatusCreated {
		t.Fatalf("rebook after cancel: status %d", status)
	}
}

func TestBookingRejections(t *testing.T) {
	srv := newTestServer(t)

	doctor := registerDoctor(t, srv)
	patient := registerPatient(t, srv, "rahul@example.com")

	cases := []struct {
		name       string
		req        api.BookAppointmentRequest
		wantStatus int
		wantCode   string
	}{
		{
			name:       "no hours that day",
			req:        api.BookAppointmentRequest{DoctorID: doctor.User.ID, Date: "2026-01-06", Time: "10:00"},
			wantStatus: http.StatusConflict,
			wantCode:   "doctor_unavailable",
		},
		{
			name:       "outside working hours",
			req:        api.BookAppointmentRequest{DoctorID: doctor.User.ID, Date: "2026-01-05", Time: "12:00"},
			wantStatus: http.StatusConflict,
			wantCode:   "time_outside_hours",
		},
		{
			name:       "unknown doctor",
			req:        api.BookAppointmentRequest{DoctorID: "nope", Date: "2026-01-05", Time: "10:00"},
			wantStatus: http.StatusNotFound,
			wantCode:   "doctor_not_found",
		},
		{
			name:       "malformed date",
			req:        api.BookAppointmentRequest{DoctorID: doctor.User.ID, Date: "05-01-2026", Time: "10:00"},
			wantStatus: http.StatusBadRequest,
			wantCode:   "validation",
		},
		{
			name:       "missing fields",
			req:        api.BookAppointmentRequest{DoctorID: doctor.User.ID},
			wantStatus: http.StatusBadRequest,
			wantCode:   "validation",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			var apiErr api.ErrorResponse
			status := do(t, srv, http.MethodPost, "/appointments", patient.AccessToken, tc.req, &apiErr)
			if status != tc.wantStatus || apiErr.Error != tc.wantCode {
				t.Fatalf("got %d %q, want %d %q", status, apiErr.Error, tc.wantStatus, tc.wantCode)
			}
		})
	}
}

func TestRoleEnforcement(t *testing.T) {
	srv := newTestServer(t)

	doctor := registerDoctor(t, srv)

	// Doctors cannot book appointments; the route requires the patient role.
	status := do(t, srv, http.MethodPost, "/appointments", doctor.AccessToken, api.BookAppointmentRequest{
		DoctorID: doctor.User.ID, Date: "2026-01-05", Time: "10:00",
	}, nil)
	if status != http.StatusForbidden {
		t.Fatalf("doctor booking: status %d, want 403", status)
	}

	// No token at all.
	if status := do(t, srv, http.MethodGet, "/appointments", "", nil, nil); status != http.StatusUnauthorized {
		t.Fatalf("unauthenticated list: status %d, want 401", status)
	}
	req, _ := http.NewRequest(http.MethodGet, srv.URL+"/appointments", nil)
	req.Header.Set("Authorization", "Bearer not-a-token")
	resp, err := srv.Client().Do(req)
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("garbage token: status %d, want 401", resp.StatusCode)
	}
}

func TestConsultationFlow(t *testing.T) {
	srv := newTestServer(t)

	doctor := registerDoctor(t, srv)
	patient := registerPatient(t, srv, "rahul@example.com")

	var appt clinic.Appointment
	if status := do(t, srv, http.MethodPost, "/appointments", patient.AccessToken, api.BookAppointmentRequest{
		DoctorID: doctor.User.ID, Date: "2026-01-05", Time: "09:30",
	}, &appt); status != http.StatusCreated {
		t.Fatalf("book: status %d", status)
	}

	var consultation clinic.Consultation
	status := do(t, srv, http.MethodPost, "/appointments/"+appt.ID+"/consultation", doctor.AccessToken, api.ConsultationRequest{
		DurationMinutes: 20,
		Diagnosis:       "stable angina",
		Prescriptions: []api.PrescriptionRequest{
			{MedicationName: "Aspirin", Dosage: "75mg", Frequency: "daily", Duration: "30 days"},
		},
	}, &consultation)
	if status != http.StatusCreated {
		t.Fatalf("record consultation: status %d", status)
	}

	// The appointment is now completed and cannot be cancelled.
	var apiErr api.ErrorResponse
	if status := do(t, srv, http.MethodPost, "/appointments/"+appt.ID+"/cancel", patient.AccessToken, nil, &apiErr); status != http.StatusConflict {
		t.Fatalf("cancel completed: status %d", status)
	}
	if apiErr.Error != "invalid_status_transition" {
		t.Fatalf("cancel completed error = %q", apiErr.Error)
	}

	// The patient sees the prescription.
	var prescriptions []clinic.Prescription
	if status := do(t, srv, http.MethodGet, "/prescriptions", patient.AccessToken, nil, &prescriptions); status != http.StatusOK {
		t.Fatalf("list prescriptions: status %d", status)
	}
	if len(prescriptions) != 1 || prescriptions[0].MedicationName != "Aspirin" {
		t.Fatalf("prescriptions = %+v", prescriptions)
	}
}

func TestPaymentFlow(t *testing.T) {
	srv := newTestServer(t)

	doctor := registerDoctor(t, srv)
	patient := registerPatient(t, srv, "rahul@example.com")

	var pm clinic.PaymentMethod
	if status := do(t, srv, http.MethodPost, "/payment-methods", patient.AccessToken, api.PaymentMethodRequest{
		Type: "credit_card", LastFour: "4242", Holder: "Rahul Verma", IsDefault: true,
	}, &pm); status != http.StatusCreated {
		t.Fatalf("add payment method: status %d", status)
	}

	var appt clinic.Appointment
	if status := do(t, srv, http.MethodPost, "/appointments", patient.AccessToken, api.BookAppointmentRequest{
		DoctorID: doctor.User.ID, Date: "2026-01-05", Time: "11:00",
	}, &appt); status != http.StatusCreated {
		t.Fatalf("book: status %d", status)
	}

	payPath := fmt.Sprintf("/appointments/%s/pay", appt.ID)

	var paid clinic.Appointment
	if status := do(t, srv, http.MethodPost, payPath, patient.AccessToken, api.CompletePaymentRequest{PaymentMethodID: pm.ID}, &paid); status != http.StatusOK {
		t.Fatalf("pay: status %d", status)
	}
	if paid.PaymentStatus != clinic.PaymentCompleted {
		t.Fatalf("payment status = %q", paid.PaymentStatus)
	}

	var apiErr api.ErrorResponse
	if status := do(t, srv, http.MethodPost, payPath, patient.AccessToken, api.CompletePaymentRequest{PaymentMethodID: pm.ID}, &apiErr); status != http.StatusConflict {
		t.Fatalf("double pay: status %d", status)
	}
	if apiErr.Error != "payment_already_completed" {
		t.Fatalf("double pay error = %q", apiErr.Error)
	}
}

func TestDoctorDirectory(t *testing.T) {
	srv := newTestServer(t)

	doctor := registerDoctor(t, srv)
	patient := registerPatient(t, srv, "rahul@example.com")

	var doctors []clinic.User
	if status := do(t, srv, http.MethodGet, "/doctors?specialty=cardiology", patient.AccessToken, nil, &doctors); status != http.StatusOK {
		t.Fatalf("list doctors: status %d", status)
	}
	if len(doctors) != 1 || doctors[0].ID != doctor.User.ID {
		t.Fatalf("doctors = %+v", doctors)
	}
	// The password hash never leaves the service.
	if doctors[0].PasswordHash != "" {
		t.Fatal("password hash leaked through the API")
	}

	var got clinic.User
	if status := do(t, srv, http.MethodGet, "/doctors/"+doctor.User.ID, patient.AccessToken, nil, &got); status != http.StatusOK {
		t.Fatalf("get doctor: status %d", status)
	}
	if got.Doctor == nil || got.Doctor.Specialty != "Cardiology" {
		t.Fatalf("doctor profile = %+v", got.Doctor)
	}
}

func TestLoginAndRefreshEndpoints(t *testing.T) {
	srv := newTestServer(t)

	registerPatient(t, srv, "rahul@example.com")

	var res struct {
		AccessToken  string `json:"access_token"`
		RefreshToken string `json:"refresh_token"`
	}
	if status := do(t, srv, http.MethodPost, "/auth/login", "", api.LoginRequest{
		Email: "rahul@example.com", Password: "secret123",
	}, &res); status != http.StatusOK {
		t.Fatalf("login: status %d", status)
	}

	var fresh map[string]string
	if status := do(t, srv, http.MethodPost, "/auth/refresh", "", api.RefreshRequest{
		RefreshToken: res.RefreshToken,
	}, &fresh); status != http.StatusOK {
		t.Fatalf("refresh: status %d", status)
	}
	if fresh["access_token"] == "" {
		t.Fatal("refresh returned no access token")
	}

	var apiErr api.ErrorResponse
	if status := do(t, srv, http.MethodPost, "/auth/login", "", api.LoginRequest{
		Email: "rahul@example.com", Password: "wrong",
	}, &apiErr); status != http.StatusUnauthorized {
		t.Fatalf("bad login: status %d", status)
	}
	if apiErr.Error != "bad_credentials" {
		t.Fatalf("bad login error = %q", apiErr.Error)
	}
}
