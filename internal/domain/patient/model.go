package patient

import (
	"time"

	"github.com/google/uuid"

	"github.com/ehr/mpi/internal/platform/mpi"
)

const dateLayout = "2006-01-02"

const patientNumberSystem = "urn:mpi:patient-number"

// Patient maps to the patient table.
type Patient struct {
	ID            uuid.UUID  `db:"id" json:"id"`
	PatientNumber string     `db:"patient_number" json:"patient_number"`
	FirstName     string     `db:"first_name" json:"first_name"`
	MiddleName    *string    `db:"middle_name" json:"middle_name,omitempty"`
	LastName      string     `db:"last_name" json:"last_name"`
	BirthDate     *time.Time `db:"birth_date" json:"birth_date,omitempty"`
	Gender        *string    `db:"gender" json:"gender,omitempty"`
	PhoneNumber   *string    `db:"phone_number" json:"phone_number,omitempty"`
	Email         *string    `db:"email" json:"email,omitempty"`
	AddressLine1  *string    `db:"address_line1" json:"address_line1,omitempty"`
	City          *string    `db:"city" json:"city,omitempty"`
	Region        *string    `db:"region" json:"region,omitempty"`
	DeletedAt     *time.Time `db:"deleted_at" json:"-"`
	CreatedAt     time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time  `db:"updated_at" json:"updated_at"`
}

// Identity is the subset of the record the matching engine compares.
func (p *Patient) Identity() mpi.Identity {
	id := mpi.Identity{
		FirstName:   mpi.Str(p.FirstName),
		MiddleName:  p.MiddleName,
		LastName:    mpi.Str(p.LastName),
		Gender:      p.Gender,
		PhoneNumber: p.PhoneNumber,
	}
	if p.BirthDate != nil {
		id.DateOfBirth = mpi.Str(p.BirthDate.Format(dateLayout))
	}
	return id
}

func (p *Patient) Candidate() mpi.Candidate {
	return mpi.Candidate{ID: p.ID.String(), Identity: p.Identity(), Record: p}
}

// ToFHIR renders the record as a FHIR R4 Patient resource.
func (p *Patient) ToFHIR() map[string]interface{} {
	given := []string{p.FirstName}
	if p.MiddleName != nil && *p.MiddleName != "" {
		given = append(given, *p.MiddleName)
	}

	result := map[string]interface{}{
		"resourceType": "Patient",
		"id":           p.ID.String(),
		"active":       p.DeletedAt == nil,
		"meta":         map[string]interface{}{"lastUpdated": p.UpdatedAt.UTC().Format(time.RFC3339)},
		"identifier": []map[string]interface{}{
			{"use": "usual", "system": patientNumberSystem, "value": p.PatientNumber},
		},
		"name": []map[string]interface{}{
			{"use": "official", "family": p.LastName, "given": given},
		},
	}
	if p.BirthDate != nil {
		result["birthDate"] = p.BirthDate.Format(dateLayout)
	}
	if p.Gender != nil {
		result["gender"] = *p.Gender
	}

	var telecom []map[string]interface{}
	if p.PhoneNumber != nil {
		telecom = append(telecom, map[string]interface{}{"system": "phone", "use": "mobile", "value": *p.PhoneNumber})
	}
	if p.Email != nil {
		telecom = append(telecom, map[string]interface{}{"system": "email", "value": *p.Email})
	}
	if len(telecom) > 0 {
		result["telecom"] = telecom
	}

	if p.AddressLine1 != nil || p.City != nil || p.Region != nil {
		addr := map[string]interface{}{"use": "home"}
		if p.AddressLine1 != nil {
			addr["line"] = []string{*p.AddressLine1}
		}
		if p.City != nil {
			addr["city"] = *p.City
		}
		if p.Region != nil {
			addr["state"] = *p.Region
		}
		result["address"] = []map[string]interface{}{addr}
	}

	return result
}

// RenderFHIR adapts ToFHIR to the match handler's record renderer.
func RenderFHIR(record interface{}) map[string]interface{} {
	p, ok := record.(*Patient)
	if !ok || p == nil {
		return nil
	}
	return p.ToFHIR()
}

// RegistrationResult is what the create endpoint returns.
type RegistrationResult struct {
	Status         mpi.RegistrationStatus    `json:"status"`
	Decision       mpi.Decision              `json:"decision"`
	Overridden     bool                      `json:"overridden,omitempty"`
	Patient        *Patient                  `json:"patient,omitempty"`
	DuplicateCheck *mpi.DuplicateCheckReport `json:"duplicate_check,omitempty"`
}
