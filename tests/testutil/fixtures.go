package testutil

import (
	"fmt"
	"strings"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/shopspring/decimal"
)

// Faker wraps gofakeit with ledger-shaped generators. A fixed seed makes a run reproducible.
type Faker struct {
	*gofakeit.Faker
}

// NewFaker returns a faker seeded with seed; 0 picks a random seed.
func NewFaker(seed uint64) *Faker {
	return &Faker{Faker: gofakeit.New(seed)}
}

// CustomerCode returns a unique-looking customer code such as "CUST-48213".
func (f *Faker) CustomerCode() string {
	return fmt.Sprintf("CUST-%05d", f.IntRange(0, 99999))
}

// CustomerName returns a company name trimmed to the stored width.
func (f *Faker) CustomerName() string {
	name := strings.TrimSpace(f.Company())
	if len(name) > 200 {
		name = name[:200]
	}
	return name
}

// Amount returns a positive amount with three decimal places in [min, max] whole units.
func (f *Faker) Amount(min, max int) decimal.Decimal {
	fils := f.IntRange(min*1000, max*1000)
	if fils == 0 {
		fils = 1
	}
	return decimal.New(int64(fils), -3)
}

// Amounts returns n amounts generated by Amount.
func (f *Faker) Amounts(n, min, max int) []decimal.Decimal {
	out := make([]decimal.Decimal, n)
	for i := range out {
		out[i] = f.Amount(min, max)
	}
	return out
}
