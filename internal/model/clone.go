package model

import (
	"maps"
	"slices"
)

// Clone returns a copy of the draft that shares no memory with d.
func (d Draft) Clone() Draft {
	return Draft{
		RelocationBasics:  clonePtr(d.RelocationBasics),
		EmployeeProfile:   clonePtr(d.EmployeeProfile),
		FamilyMembers:     d.FamilyMembers.clone(),
		AssignmentContext: d.AssignmentContext.clone(),
		ComplianceDocs:    d.ComplianceDocs.clone(),
	}
}

// Clone returns a deep copy of c.
func (c *Case) Clone() *Case {
	if c == nil {
		return nil
	}
	cp := *c
	cp.Draft = c.Draft.Clone()
	cp.RequestedSections = slices.Clone(c.RequestedSections)
	cp.ComplianceReport = c.ComplianceReport.Clone()
	cp.SubmittedAt = clonePtr(c.SubmittedAt)
	cp.DecidedAt = clonePtr(c.DecidedAt)
	return &cp
}

// Clone returns a deep copy of r.
func (r *ComplianceReport) Clone() *ComplianceReport {
	if r == nil {
		return nil
	}
	cp := *r
	if r.Checks != nil {
		cp.Checks = make([]ComplianceCheck, len(r.Checks))
		for i, ch := range r.Checks {
			ch.EvidenceNeeded = slices.Clone(ch.EvidenceNeeded)
			ch.FixActions = slices.Clone(ch.FixActions)
			cp.Checks[i] = ch
		}
	}
	if r.Conflicts != nil {
		cp.Conflicts = make([]ConsistencyConflict, len(r.Conflicts))
		for i, cf := range r.Conflicts {
			cf.Details = maps.Clone(cf.Details)
			cp.Conflicts[i] = cf
		}
	}
	return &cp
}

func (f *FamilyMembers) clone() *FamilyMembers {
	if f == nil {
		return nil
	}
	cp := *f
	cp.Spouse = clonePtr(f.Spouse)
	cp.Children = slices.Clone(f.Children)
	return &cp
}

func (a *AssignmentContext) clone() *AssignmentContext {
	if a == nil {
		return nil
	}
	cp := *a
	cp.WorksRemote = clonePtr(a.WorksRemote)
	return &cp
}

func (c *ComplianceDocs) clone() *ComplianceDocs {
	if c == nil {
		return nil
	}
	cp := *c
	cp.HasPassportScans = clonePtr(c.HasPassportScans)
	cp.HasEmploymentLetter = clonePtr(c.HasEmploymentLetter)
	cp.HasMarriageCertificate = clonePtr(c.HasMarriageCertificate)
	cp.HasBirthCertificates = clonePtr(c.HasBirthCertificates)
	cp.HasBankStatements = clonePtr(c.HasBankStatements)
	return &cp
}

func clonePtr[T any](p *T) *T {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}
