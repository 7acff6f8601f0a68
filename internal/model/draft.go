package model

import "strings"

// Draft is the employee-editable content of a case. A nil section is
// treated as absent.
type Draft struct {
	RelocationBasics  *RelocationBasics  `json:"relocationBasics,omitempty" yaml:"relocationBasics,omitempty"`
	EmployeeProfile   *EmployeeProfile   `json:"employeeProfile,omitempty" yaml:"employeeProfile,omitempty"`
	FamilyMembers     *FamilyMembers     `json:"familyMembers,omitempty" yaml:"familyMembers,omitempty"`
	AssignmentContext *AssignmentContext `json:"assignmentContext,omitempty" yaml:"assignmentContext,omitempty"`
	ComplianceDocs    *ComplianceDocs    `json:"complianceDocs,omitempty" yaml:"complianceDocs,omitempty"`
}

type RelocationBasics struct {
	OriginCountry  string `json:"originCountry,omitempty" yaml:"originCountry,omitempty"`
	OriginCity     string `json:"originCity,omitempty" yaml:"originCity,omitempty"`
	DestCountry    string `json:"destCountry,omitempty" yaml:"destCountry,omitempty"`
	DestCity       string `json:"destCity,omitempty" yaml:"destCity,omitempty"`
	Purpose        string `json:"purpose,omitempty" yaml:"purpose,omitempty"`
	TargetMoveDate string `json:"targetMoveDate,omitempty" yaml:"targetMoveDate,omitempty"`
	DurationMonths int    `json:"durationMonths,omitempty" yaml:"durationMonths,omitempty"`
	HasDependents  bool   `json:"hasDependents,omitempty" yaml:"hasDependents,omitempty"`
}

type EmployeeProfile struct {
	FullName         string `json:"fullName,omitempty" yaml:"fullName,omitempty"`
	Nationality      string `json:"nationality,omitempty" yaml:"nationality,omitempty"`
	PassportCountry  string `json:"passportCountry,omitempty" yaml:"passportCountry,omitempty"`
	PassportExpiry   string `json:"passportExpiry,omitempty" yaml:"passportExpiry,omitempty"`
	ResidenceCountry string `json:"residenceCountry,omitempty" yaml:"residenceCountry,omitempty"`
	Email            string `json:"email,omitempty" yaml:"email,omitempty"`
}

type FamilyMember struct {
	FullName    string `json:"fullName,omitempty" yaml:"fullName,omitempty"`
	DateOfBirth string `json:"dateOfBirth,omitempty" yaml:"dateOfBirth,omitempty"`
	Nationality string `json:"nationality,omitempty" yaml:"nationality,omitempty"`
}

type FamilyMembers struct {
	MaritalStatus string         `json:"maritalStatus,omitempty" yaml:"maritalStatus,omitempty"`
	Spouse        *FamilyMember  `json:"spouse,omitempty" yaml:"spouse,omitempty"`
	Children      []FamilyMember `json:"children,omitempty" yaml:"children,omitempty"`
}

// NamedDependents counts the spouse and children that carry a name.
func (f *FamilyMembers) NamedDependents() int {
	if f == nil {
		return 0
	}
	n := 0
	if f.Spouse != nil && strings.TrimSpace(f.Spouse.FullName) != "" {
		n++
	}
	for _, c := range f.Children {
		if strings.TrimSpace(c.FullName) != "" {
			n++
		}
	}
	return n
}

type AssignmentContext struct {
	EmployerName      string `json:"employerName,omitempty" yaml:"employerName,omitempty"`
	EmployerCountry   string `json:"employerCountry,omitempty" yaml:"employerCountry,omitempty"`
	WorkLocation      string `json:"workLocation,omitempty" yaml:"workLocation,omitempty"`
	ContractStartDate string `json:"contractStartDate,omitempty" yaml:"contractStartDate,omitempty"`
	ContractType      string `json:"contractType,omitempty" yaml:"contractType,omitempty"`
	SalaryBand        string `json:"salaryBand,omitempty" yaml:"salaryBand,omitempty"`
	JobTitle          string `json:"jobTitle,omitempty" yaml:"jobTitle,omitempty"`
	SeniorityBand     string `json:"seniorityBand,omitempty" yaml:"seniorityBand,omitempty"`
	WorksRemote       *bool  `json:"worksRemote,omitempty" yaml:"worksRemote,omitempty"`
}

// ComplianceDocs records which supporting documents the employee has. A nil
// field means "not answered".
type ComplianceDocs struct {
	HasPassportScans       *bool `json:"hasPassportScans,omitempty" yaml:"hasPassportScans,omitempty"`
	HasEmploymentLetter    *bool `json:"hasEmploymentLetter,omitempty" yaml:"hasEmploymentLetter,omitempty"`
	HasMarriageCertificate *bool `json:"hasMarriageCertificate,omitempty" yaml:"hasMarriageCertificate,omitempty"`
	HasBirthCertificates   *bool `json:"hasBirthCertificates,omitempty" yaml:"hasBirthCertificates,omitempty"`
	HasBankStatements      *bool `json:"hasBankStatements,omitempty" yaml:"hasBankStatements,omitempty"`
}
