package student

import "rollcall/internal/roster"

// Raw converts a directory row into the loose upstream shape the roster
// mapper consumes, so DB-backed and SIS-backed loads share one path.
func (s Student) Raw() roster.RawStudent {
	raw := roster.RawStudent{
		"id":         s.ID,
		"first_name": s.FirstName,
		"last_name":  s.LastName,
	}
	if s.RollNumber != nil {
		raw["roll_number"] = *s.RollNumber
	}
	if s.RegistrationNo != nil {
		raw["student_registration_no"] = *s.RegistrationNo
	}
	if s.Grade != nil {
		raw["grade"] = *s.Grade
	}
	if s.Section != nil {
		raw["section"] = *s.Section
	}
	return raw
}

// RawAll converts a directory listing.
func RawAll(students []Student) []roster.RawStudent {
	out := make([]roster.RawStudent, len(students))
	for i, s := range students {
		out[i] = s.Raw()
	}
	return out
}
