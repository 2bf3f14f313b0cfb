package generator

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/dbsmedya/goseed/internal/logger"
	"github.com/dbsmedya/goseed/internal/schema"
	"github.com/dbsmedya/goseed/internal/types"
)

func shopSchema() *schema.Schema {
	return &schema.Schema{
		Tables: []schema.Table{
			{
				Name: "customers",
				Columns: []schema.Column{
					{Name: "id", Type: "int", IsIdentity: true, IsUnique: true},
					{Name: "email", Type: "varchar", MaxLength: 100, IsUnique: true},
					{Name: "name", Type: "varchar", MaxLength: 50},
				},
			},
			{
				Name: "orders",
				Columns: []schema.Column{
					{Name: "id", Type: "int", IsIdentity: true},
					{Name: "customer_id", Type: "int"},
					{Name: "total", Type: "decimal(10,2)", IsNullable: true},
				},
			},
		},
		Constraints: []schema.Constraint{
			{ParentTable: "orders", ParentColumn: "customer_id", ReferencedTable: "customers", ReferencedColumn: "id"},
		},
	}
}

// sequence returns a producer cycling through values for one column.
func sequence(column string, values ...any) Producer {
	i := 0
	return func() (types.Row, error) {
		v := values[i%len(values)]
		i++
		return types.Row{column: v}, nil
	}
}

type firstKey struct{}

func (firstKey) Sample(keys []any) any { return keys[0] }

func TestUniqueTracker(t *testing.T) {
	tr := NewUniqueTracker("customers", []string{"email"})

	row := types.Row{"email": "a@x.io"}
	_, _, collides := tr.Collides(row)
	assert.False(t, collides)
	tr.Record(row)

	col, val, collides := tr.Collides(types.Row{"email": []byte("a@x.io")})
	assert.True(t, collides, "[]byte and string of the same text must collide")
	assert.Equal(t, "email", col)
	assert.Equal(t, []byte("a@x.io"), val)

	tr.Record(types.Row{"email": nil})
	_, _, collides = tr.Collides(types.Row{"email": nil})
	assert.False(t, collides, "NULL never collides")
	assert.Equal(t, 1, tr.Size("email"))
	assert.Equal(t, []string{"email"}, tr.Columns())
}

func TestUniqueTracker_IntegerKinds(t *testing.T) {
	tr := NewUniqueTracker("t", []string{"code"})
	tr.Record(types.Row{"code": int32(7)})
	_, _, collides := tr.Collides(types.Row{"code": 7})
	assert.True(t, collides)
}

func TestInsertedKeys(t *testing.T) {
	k := NewInsertedKeys()
	_, ok := k.Pick("customers", firstKey{})
	assert.False(t, ok)

	k.Append("customers", int64(1), int64(2))
	k.Append("customers")
	k.Append("customers", int64(3))
	assert.Equal(t, 3, k.Len("customers"))
	assert.Equal(t, []any{int64(1), int64(2), int64(3)}, k.Keys("customers"))

	key, ok := k.Pick("customers", firstKey{})
	assert.True(t, ok)
	assert.Equal(t, int64(1), key)

	keys := k.Keys("customers")
	keys[0] = "mutated"
	assert.Equal(t, int64(1), k.Keys("customers")[0], "Keys must return a copy")
}

func TestUniformSampler_CoversAllKeys(t *testing.T) {
	s := NewUniformSampler(99)
	keys := []any{1, 2, 3, 4}
	seen := make(map[any]int)
	for i := 0; i < 400; i++ {
		seen[s.Sample(keys)]++
	}
	assert.Len(t, seen, 4)
}

func TestBuild_UnknownTableAndNilProducer(t *testing.T) {
	b := NewBuilder(shopSchema(), NewInsertedKeys())

	_, err := b.Build("missing", sequence("x", 1))
	require.Error(t, err)

	_, err = b.Build("customers", nil)
	require.Error(t, err)
}

func TestBuild_RetriesOnCollision(t *testing.T) {
	b := NewBuilder(shopSchema(), NewInsertedKeys())
	gen, err := b.Build("customers", sequence("email", "a", "a", "b"))
	require.NoError(t, err)

	first, err := gen.Next()
	require.NoError(t, err)
	assert.Equal(t, "a", first["email"])

	// "a" again is discarded, "b" accepted
	second, err := gen.Next()
	require.NoError(t, err)
	assert.Equal(t, "b", second["email"])
	assert.Equal(t, 2, gen.Tracker.Size("email"))
}

func TestBuild_UniqueExhaustion(t *testing.T) {
	b := NewBuilder(shopSchema(), NewInsertedKeys(), WithUniqueAttempts(3))
	gen, err := b.Build("customers", sequence("email", "only"))
	require.NoError(t, err)

	_, err = gen.Next()
	require.NoError(t, err)

	_, err = gen.Next()
	var exhausted *UniqueExhaustedError
	require.ErrorAs(t, err, &exhausted)
	assert.Equal(t, "customers", exhausted.Table)
	assert.Equal(t, "email", exhausted.Column)
	assert.Equal(t, 3, exhausted.Attempts)
	assert.Contains(t, err.Error(), "after 3 attempts")
}

func TestBuild_FiniteDomainNeverDuplicates(t *testing.T) {
	b := NewBuilder(shopSchema(), NewInsertedKeys())
	gen, err := b.Build("customers", sequence("email", "a", "b", "c", "d", "e"))
	require.NoError(t, err)

	seen := make(map[any]bool)
	for i := 0; i < 5; i++ {
		row, err := gen.Next()
		require.NoError(t, err)
		assert.False(t, seen[row["email"]], "duplicate %v", row["email"])
		seen[row["email"]] = true
	}

	_, err = gen.Next()
	var exhausted *UniqueExhaustedError
	assert.ErrorAs(t, err, &exhausted)
}

func TestBuild_FillsForeignKeys(t *testing.T) {
	keys := NewInsertedKeys()
	keys.Append("customers", int64(10), int64(11), int64(12))

	b := NewBuilder(shopSchema(), keys, WithSampler(NewUniformSampler(1)))
	gen, err := b.Build("orders", sequence("customer_id", -1))
	require.NoError(t, err)

	valid := map[any]bool{int64(10): true, int64(11): true, int64(12): true}
	for i := 0; i < 50; i++ {
		row, err := gen.Next()
		require.NoError(t, err)
		assert.True(t, valid[row["customer_id"]], "customer_id %v was never inserted", row["customer_id"])
	}
}

func TestBuild_MissingReferencedKeysWarnsOnce(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)
	b := NewBuilder(shopSchema(), NewInsertedKeys(), WithLogger(logger.FromZap(zap.New(core))))

	gen, err := b.Build("orders", sequence("customer_id", 777))
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		row, err := gen.Next()
		require.NoError(t, err)
		assert.Equal(t, 777, row["customer_id"], "value is left as produced")
	}
	require.Equal(t, 1, logs.Len())
	assert.Equal(t, "customers", logs.All()[0].ContextMap()["referenced_table"])
}

func TestBuild_ProducerError(t *testing.T) {
	boom := errors.New("boom")
	b := NewBuilder(shopSchema(), NewInsertedKeys())
	gen, err := b.Build("customers", func() (types.Row, error) { return nil, boom })
	require.NoError(t, err)

	_, err = gen.Next()
	assert.ErrorIs(t, err, boom)

	gen, err = b.Build("customers", func() (types.Row, error) { return nil, nil })
	require.NoError(t, err)
	_, err = gen.Next()
	assert.Error(t, err)
}

func TestFakerProducer(t *testing.T) {
	s := shopSchema()
	customers, _ := s.Table("customers")

	p := NewFakerProducer(s, customers, 42)
	for i := 0; i < 20; i++ {
		row, err := p.Produce()
		require.NoError(t, err)

		assert.NotContains(t, row, "id", "identity columns are left to the database")
		email, ok := row["email"].(string)
		require.True(t, ok)
		assert.Contains(t, email, "@")
		assert.LessOrEqual(t, len([]rune(row["name"].(string))), 50)
	}
}

func TestFakerProducer_Types(t *testing.T) {
	table := &schema.Table{
		Name: "samples",
		Columns: []schema.Column{
			{Name: "flag", Type: "BOOLEAN"},
			{Name: "amount", Type: "decimal(8,2)"},
			{Name: "created_at", Type: "timestamp"},
			{Name: "ref", Type: "uniqueidentifier"},
			{Name: "small", Type: "smallint"},
			{Name: "code", Type: "varchar", MaxLength: 5, IsUnique: true},
		},
	}
	s := &schema.Schema{Tables: []schema.Table{*table}}

	row, err := NewFakerProducer(s, table, 3).Producer()()
	require.NoError(t, err)

	assert.IsType(t, true, row["flag"])
	assert.IsType(t, float64(0), row["amount"])
	assert.IsType(t, time.Time{}, row["created_at"])
	assert.Len(t, row["ref"], 36)
	assert.LessOrEqual(t, row["small"].(int), 32767)
	assert.LessOrEqual(t, len(row["code"].(string)), 5)
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "abc", truncate("abc", 0))
	assert.Equal(t, "ab", truncate("abc", 2))
	assert.Equal(t, "żó", truncate("żółw", 2))
	assert.Equal(t, "abc", truncate("abc", 10))
}

func ExampleUniqueExhaustedError() {
	err := &UniqueExhaustedError{Table: "users", Column: "email", Value: "x@y.z", Attempts: 10}
	fmt.Println(err)
	// Output: table users: no unique value for column email after 10 attempts (last duplicate: x@y.z)
}
