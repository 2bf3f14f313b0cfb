package generator

import (
	"fmt"
	"math"
	"strings"

	"github.com/brianvoe/gofakeit/v7"

	"github.com/dbsmedya/goseed/internal/schema"
	"github.com/dbsmedya/goseed/internal/types"
)

// nullRatio is the share of NULLs written to nullable columns that are neither
// unique nor foreign keys.
const nullRatio = 0.05

// FakerProducer produces rows for a table from its column metadata, choosing
// values by column name first and SQL type second.
type FakerProducer struct {
	table   *schema.Table
	columns []schema.Column
	fkCols  map[string]bool
	faker   *gofakeit.Faker
}

// NewFakerProducer creates a producer for t. A zero seed draws a random one.
func NewFakerProducer(s *schema.Schema, t *schema.Table, seed uint64) *FakerProducer {
	fkCols := make(map[string]bool)
	for _, c := range s.ConstraintsFor(t.Name) {
		fkCols[c.ParentColumn] = true
	}
	return &FakerProducer{
		table:   t,
		columns: t.InsertableColumns(),
		fkCols:  fkCols,
		faker:   gofakeit.New(seed),
	}
}

// Producer returns p as a Producer.
func (p *FakerProducer) Producer() Producer {
	return p.Produce
}

// Produce returns one row. Identity columns are left to the database.
func (p *FakerProducer) Produce() (types.Row, error) {
	row := make(types.Row, len(p.columns))
	for _, col := range p.columns {
		if col.IsNullable && !col.IsUnique && !p.fkCols[col.Name] && p.faker.Float64() < nullRatio {
			row[col.Name] = nil
			continue
		}
		row[col.Name] = p.value(col)
	}
	return row, nil
}

func (p *FakerProducer) value(col schema.Column) any {
	typ := strings.ToLower(col.Type)
	if i := strings.IndexByte(typ, '('); i >= 0 {
		typ = typ[:i]
	}

	switch typ {
	case "tinyint":
		return p.faker.IntRange(0, 127)
	case "smallint", "int2":
		return p.faker.IntRange(0, 32767)
	case "int", "integer", "int4", "mediumint", "bigint", "int8", "serial", "bigserial":
		return p.faker.IntRange(1, 1_000_000)
	case "bit", "bool", "boolean":
		return p.faker.Bool()
	case "decimal", "numeric", "money", "smallmoney", "float", "real", "double", "double precision", "float4", "float8":
		return math.Round(p.faker.Float64Range(0, 10000)*100) / 100
	case "date", "datetime", "datetime2", "smalldatetime", "timestamp", "timestamptz", "datetimeoffset":
		return p.faker.Date().UTC()
	case "uuid", "uniqueidentifier":
		return p.faker.UUID()
	case "json", "jsonb":
		return fmt.Sprintf(`{"%s":"%s"}`, p.faker.Word(), p.faker.Word())
	}
	return truncate(p.text(col), col.MaxLength)
}

// text picks a string by column name hint.
func (p *FakerProducer) text(col schema.Column) string {
	name := strings.ToLower(col.Name)
	switch {
	case strings.Contains(name, "email"):
		return p.faker.Email()
	case strings.Contains(name, "first_name") || name == "firstname":
		return p.faker.FirstName()
	case strings.Contains(name, "last_name") || name == "lastname" || name == "surname":
		return p.faker.LastName()
	case strings.Contains(name, "user") && strings.Contains(name, "name"):
		return p.faker.Username()
	case strings.Contains(name, "company"):
		return p.faker.Company()
	case strings.Contains(name, "name"):
		return p.faker.Name()
	case strings.Contains(name, "phone"):
		return p.faker.Phone()
	case strings.Contains(name, "url") || strings.Contains(name, "website"):
		return p.faker.URL()
	case strings.Contains(name, "city"):
		return p.faker.City()
	case strings.Contains(name, "country"):
		return p.faker.Country()
	case strings.Contains(name, "street") || strings.Contains(name, "address"):
		return p.faker.Street()
	case strings.Contains(name, "uuid") || strings.Contains(name, "guid"):
		return p.faker.UUID()
	}

	if col.IsUnique {
		return fmt.Sprintf("%s-%d", p.faker.Word(), p.faker.IntRange(1, 1_000_000_000))
	}
	words := make([]string, p.faker.IntRange(1, 4))
	for i := range words {
		words[i] = p.faker.Word()
	}
	return strings.Join(words, " ")
}

// truncate cuts s to max runes. A max of 0 or less means unbounded.
func truncate(s string, max int) string {
	if max <= 0 {
		return s
	}
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max])
}
