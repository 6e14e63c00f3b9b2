// Package synth generates synthetic user records for the export pipeline.
package synth

import (
	"time"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/google/uuid"
)

// dateLayout is the wire format for the two date fields.
const dateLayout = "2006-01-02"

// UserRecord is one synthetic entity. Field order here fixes the JSON key
// order on the line stream, which in turn fixes the spreadsheet column order.
type UserRecord struct {
	ID           string `json:"id"`
	Username     string `json:"username"`
	Email        string `json:"email"`
	Avatar       string `json:"avatar"`
	Password     string `json:"password"`
	Birthdate    string `json:"birthdate"`
	RegisteredAt string `json:"registered_at"`
}

// Generator produces synthetic user records. It holds only the faker source;
// Generate performs no I/O and cannot fail.
type Generator struct {
	faker *gofakeit.Faker
}

// NewGenerator creates a generator with a randomly seeded faker.
func NewGenerator() *Generator {
	return &Generator{faker: gofakeit.New(0)}
}

// NewSeededGenerator creates a generator with deterministic output.
// Useful for tests that assert on structural shape.
func NewSeededGenerator(seed uint64) *Generator {
	return &Generator{faker: gofakeit.New(seed)}
}

// Generate returns a fresh record with all fields populated. Identifiers are
// UUIDv4, birthdates fall between 18 and 80 years ago, registration dates
// within the last 10 years.
func (g *Generator) Generate() UserRecord {
	now := time.Now()

	birthdate := g.faker.DateRange(now.AddDate(-80, 0, 0), now.AddDate(-18, 0, 0))
	registered := g.faker.DateRange(now.AddDate(-10, 0, 0), now)

	return UserRecord{
		ID:           uuid.New().String(),
		Username:     g.faker.Username(),
		Email:        g.faker.Email(),
		Avatar:       g.faker.URL(),
		Password:     g.faker.Password(true, true, true, false, false, 16),
		Birthdate:    birthdate.Format(dateLayout),
		RegisteredAt: registered.Format(dateLayout),
	}
}
