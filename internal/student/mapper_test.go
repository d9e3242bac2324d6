package student

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"rollcall/internal/roster"
)

func strptr(s string) *string { return &s }

func TestRawMapsThroughRosterEntry(t *testing.T) {
	s := Student{
		ID:             "42",
		FirstName:      "Asha",
		LastName:       "Rao",
		RegistrationNo: strptr("REG-042"),
		Grade:          strptr("5"),
		Section:        strptr("a"),
	}
	e := roster.MapRaw(s.Raw(), 0)
	assert.Equal(t, "42", e.ID)
	assert.Equal(t, "Asha Rao", e.Name)
	assert.Equal(t, "REG-042", e.RollNo)
	assert.Equal(t, "5", e.Grade)
	assert.Equal(t, "A", e.Section)
	assert.Equal(t, roster.StatusUnset, e.Attendance)
}

func TestRawOmitsMissingOptionals(t *testing.T) {
	s := Student{ID: "1", FirstName: "Ben", LastName: "Okafor"}
	raw := s.Raw()
	_, hasGrade := raw["grade"]
	_, hasSection := raw["section"]
	assert.False(t, hasGrade)
	assert.False(t, hasSection)

	e := roster.MapRaw(raw, 0)
	assert.Equal(t, roster.NotApplicable, e.Grade)
	assert.Equal(t, roster.NotApplicable, e.Section)
	assert.Equal(t, roster.NotApplicable, e.RollNo)
}

func TestRawAllKeepsOrder(t *testing.T) {
	students := []Student{
		{ID: "1", FirstName: "A", LastName: "One"},
		{ID: "2", FirstName: "B", LastName: "Two"},
	}
	raws := RawAll(students)
	assert.Len(t, raws, 2)
	assert.Equal(t, "1", raws[0]["id"])
	assert.Equal(t, "2", raws[1]["id"])
}
