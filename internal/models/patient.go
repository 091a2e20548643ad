package models

import (
	"time"
)

// Gender enum
type Gender string

const (
	GenderMale   Gender = "male"
	GenderFemale Gender = "female"
	GenderOther  Gender = "other"
)

// Patient represents an individual whose imaging studies are analysed
type Patient struct {
	BaseModel
	FullName            string     `gorm:"size:255;not null;index" json:"fullName"`
	MedicalRecordNumber *string    `gorm:"size:100;uniqueIndex" json:"medicalRecordNumber,omitempty"`
	DateOfBirth         *time.Time `json:"dateOfBirth,omitempty"`
	Gender              *Gender    `gorm:"size:20" json:"gender,omitempty"`
	Phone               string     `gorm:"size:50" json:"phone,omitempty"`
	Email               string     `gorm:"size:255" json:"email,omitempty"`
	Address             string     `gorm:"type:text" json:"address,omitempty"`
	Notes               string     `gorm:"type:text" json:"notes,omitempty"`
	IsActive            bool       `gorm:"default:true" json:"isActive"`

	// Relations (not always preloaded)
	Analyses []Analysis `gorm:"foreignKey:PatientID" json:"-"`
}
