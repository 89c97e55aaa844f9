// Package students is the read side of the student table: the roster of
// all registered students and the signed-in user's own profile. Rows are
// written only by the auth plugin during registration.
package students

import "time"

// Student is a row of the student table.
type Student struct {
	ID             int64
	PrefixID       *int64
	FirstName      string
	LastName       string
	DateOfBirth    *time.Time
	Sex            string
	CurriculumID   *int64
	PreviousSchool string
	Address        string
	Telephone      string
	Email          string
	LineID         string
	Status         string
	CreatedAt      time.Time
}

// FullName joins first and last name.
func (s Student) FullName() string {
	return s.FirstName + " " + s.LastName
}

// Profile is the greeting data for the signed-in user.
type Profile struct {
	UserID    int64
	StudentID int64
	FirstName string
	LastName  string
}
