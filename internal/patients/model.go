package patients

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/carepulse/carepulse/internal/platform"
	"github.com/carepulse/carepulse/pkg/datetime"
)

// Gender of a patient as captured on the registration form.
type Gender string

const (
	GenderMale   Gender = "male"
	GenderFemale Gender = "female"
	GenderOther  Gender = "other"
)

func (g Gender) Valid() bool {
	switch g {
	case GenderMale, GenderFemale, GenderOther:
		return true
	}
	return false
}

// Profile holds the fields a patient fills in at registration.
type Profile struct {
	UserID                 string        `json:"userId"`
	Name                   string        `json:"name"`
	Email                  string        `json:"email"`
	Phone                  string        `json:"phone"`
	BirthDate              datetime.Date `json:"birthDate"`
	Gender                 Gender        `json:"gender"`
	Address                string        `json:"address"`
	Occupation             string        `json:"occupation"`
	EmergencyContactName   string        `json:"emergencyContactName"`
	EmergencyContactNumber string        `json:"emergencyContactNumber"`
	PrimaryPhysician       string        `json:"primaryPhysician"`
	InsuranceProvider      string        `json:"insuranceProvider"`
	InsurancePolicyNumber  string        `json:"insurancePolicyNumber"`
	Allergies              string        `json:"allergies,omitempty"`
	CurrentMedication      string        `json:"currentMedication,omitempty"`
	FamilyMedicalHistory   string        `json:"familyMedicalHistory,omitempty"`
	PastMedicalHistory     string        `json:"pastMedicalHistory,omitempty"`
	IdentificationType     string        `json:"identificationType,omitempty"`
	IdentificationNumber   string        `json:"identificationNumber,omitempty"`
	TreatmentConsent       bool          `json:"treatmentConsent"`
	DisclosureConsent      bool          `json:"disclosureConsent"`
	PrivacyConsent         bool          `json:"privacyConsent"`
}

// Validate checks the fields the rest of the system relies on.
func (p *Profile) Validate() error {
	var missing []string
	for name, v := range map[string]string{
		"userId": p.UserID,
		"name":   p.Name,
		"email":  p.Email,
		"phone":  p.Phone,
	} {
		if strings.TrimSpace(v) == "" {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		sort.Strings(missing)
		return fmt.Errorf("%w: missing %s", ErrInvalidPatient, strings.Join(missing, ", "))
	}
	if p.Gender != "" && !p.Gender.Valid() {
		return fmt.Errorf("%w: unknown gender %q", ErrInvalidPatient, p.Gender)
	}
	return nil
}

// Patient is a stored patient record.
type Patient struct {
	ID        string    `json:"$id"`
	CreatedAt time.Time `json:"$createdAt"`
	UpdatedAt time.Time `json:"$updatedAt"`
	Profile
	IdentificationDocumentID  *string `json:"identificationDocumentId"`
	IdentificationDocumentURL *string `json:"identificationDocumentUrl"`
}

// CreateUserParams is the input for account creation.
type CreateUserParams struct {
	Name  string `json:"name"`
	Email string `json:"email"`
	Phone string `json:"phone"`
}

func (p *CreateUserParams) Validate() error {
	if strings.TrimSpace(p.Name) == "" || strings.TrimSpace(p.Email) == "" || strings.TrimSpace(p.Phone) == "" {
		return ErrInvalidUser
	}
	return nil
}

// RegisterPatientParams is a registration with an optional identification document.
type RegisterPatientParams struct {
	Profile
	IdentificationDocument *platform.InputFile
}
