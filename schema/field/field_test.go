package field_test

import (
	"errors"
	"math"
	"math/big"
	"regexp"
	"testing"
	"time"

	"github.com/syssam/cypher/schema/field"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuilders(t *testing.T) {
	fd := field.Int("age").
		Positive().
		Comment("comment").
		Descriptor()
	assert.Equal(t, "age", fd.Name)
	assert.Equal(t, field.TypeInt, fd.Type)
	assert.True(t, fd.Required)
	assert.Len(t, fd.Rules, 1)
	assert.Equal(t, "comment", fd.Comment)
	assert.NoError(t, fd.Err)

	fd = field.Int("age").Default(10).Min(10).Max(20).Optional().Descriptor()
	assert.False(t, fd.Required)
	assert.Equal(t, int64(10), fd.Default)
	assert.Len(t, fd.Rules, 2)

	assert.Equal(t, field.TypeBool, field.Bool("b").Descriptor().Type)
	assert.Equal(t, field.TypeFloat, field.Float("f").Descriptor().Type)
	assert.Equal(t, field.TypeString, field.String("s").Descriptor().Type)
	assert.Equal(t, field.TypeDate, field.Date("d").Descriptor().Type)
	assert.Equal(t, field.TypeDateTime, field.DateTime("dt").Descriptor().Type)

	fd = field.String("").Descriptor()
	assert.Error(t, fd.Err)
}

func TestDescriptorIsACopy(t *testing.T) {
	b := field.String("name")
	fd := b.Descriptor()
	b.NotEmpty().Optional()
	assert.Empty(t, fd.Rules)
	assert.True(t, fd.Required)
	assert.NotSame(t, fd, b.Descriptor())
}

func TestTypeNames(t *testing.T) {
	assert.Equal(t, "Boolean", field.TypeBool.String())
	assert.Equal(t, "Integer", field.TypeInt.String())
	assert.Equal(t, "DateTime", field.TypeDateTime.String())
	assert.Equal(t, "invalid", field.Type(200).String())
	assert.False(t, field.TypeInvalid.Valid())
	assert.True(t, field.TypeDate.Valid())
}

func TestValidateType(t *testing.T) {
	tests := []struct {
		name string
		desc *field.Descriptor
		ok   []any
		bad  []any
	}{
		{
			name: "Boolean",
			desc: field.Bool("b").Descriptor(),
			ok:   []any{true, false},
			bad:  []any{1, "true"},
		},
		{
			name: "Integer",
			desc: field.Int("i").Descriptor(),
			ok:   []any{1, int8(1), int64(1), uint32(1), uint64(1), big.NewInt(1)},
			bad:  []any{1.5, "1", true},
		},
		{
			name: "Float",
			desc: field.Float("f").Descriptor(),
			ok:   []any{1, int64(2), 1.5, float32(2.5)},
			bad:  []any{"1.5", false},
		},
		{
			name: "String",
			desc: field.String("s").Descriptor(),
			ok:   []any{"", "héllo"},
			bad:  []any{1, []byte("x")},
		},
		{
			name: "Date",
			desc: field.Date("d").Descriptor(),
			ok:   []any{time.Now()},
			bad:  []any{"2020-01-01", int64(737425)},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for _, v := range tt.ok {
				assert.NoError(t, tt.desc.ValidateType(v), "%T", v)
			}
			for _, v := range tt.bad {
				err := tt.desc.ValidateType(v)
				require.Error(t, err, "%T", v)
				var e *field.TypeMismatchError
				require.True(t, errors.As(err, &e))
				assert.Equal(t, tt.name, e.Property)
				assert.Equal(t, tt.desc.Accepts(), e.Accepted)
			}
		})
	}
}

func TestTypeMismatchMessage(t *testing.T) {
	err := field.Bool("active").Descriptor().ValidateType("yes")
	assert.EqualError(t, err, "cypher: cannot assign a value of type string to a Boolean property; valid types are: bool")
	assert.True(t, field.IsTypeMismatch(err))
	assert.False(t, field.IsRuleViolation(err))
	assert.False(t, field.IsTypeMismatch(nil))
}

func TestIntegerRange(t *testing.T) {
	fd := field.Int("n").Descriptor()
	limit := new(big.Int).Lsh(big.NewInt(1), 63)
	tests := []struct {
		name  string
		value any
		ok    bool
	}{
		{"MinInt64", int64(math.MinInt64), true},
		{"MaxInt64", int64(math.MaxInt64), true},
		{"BigMin", new(big.Int).Neg(limit), true},
		{"BigMax", new(big.Int).Sub(limit, big.NewInt(1)), true},
		{"BigLimit", limit, false},
		{"BigBelowMin", new(big.Int).Sub(new(big.Int).Neg(limit), big.NewInt(1)), false},
		{"MaxUint64", uint64(math.MaxUint64), false},
		{"SmallUint", uint(7), true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := fd.Normalize(tt.value)
			err := fd.Validate(v)
			if tt.ok {
				require.NoError(t, err)
				assert.IsType(t, int64(0), v)
				return
			}
			require.Error(t, err)
			assert.True(t, field.IsRuleViolation(err))
		})
	}
}

func TestRules(t *testing.T) {
	fd := field.Int("age").Range(0, 150).Descriptor()
	assert.NoError(t, fd.Validate(int64(42)))
	err := fd.Validate(int64(200))
	var e *field.RuleViolationError
	require.True(t, errors.As(err, &e))
	assert.Equal(t, "age", e.Property)
	assert.Equal(t, "range [0, 150]", e.Rule)

	custom := errors.New("odd")
	fd = field.Int("even").Validate(func(i int64) error {
		if i%2 != 0 {
			return custom
		}
		return nil
	}).Descriptor()
	assert.NoError(t, fd.Validate(int64(2)))
	assert.ErrorIs(t, fd.Validate(int64(3)), custom)

	sd := field.String("code").NotEmpty().MaxLen(3).Match(regexp.MustCompile(`^[a-z]+$`)).Descriptor()
	assert.NoError(t, sd.Validate("abc"))
	assert.True(t, field.IsRuleViolation(sd.Validate("")))
	assert.True(t, field.IsRuleViolation(sd.Validate("abcd")))
	assert.True(t, field.IsRuleViolation(sd.Validate("AB")))

	// Length counts characters, not bytes.
	assert.NoError(t, field.String("s").MaxLen(2).Descriptor().Validate("\u00e9\u00e9"))

	ff := field.Float("score").Range(0, 5).Descriptor()
	assert.NoError(t, ff.Validate(ff.Normalize(3)))
	assert.True(t, field.IsRuleViolation(ff.Validate(5.5)))

	ff = field.Float("ratio").Descriptor()
	for _, v := range []any{math.NaN(), math.Inf(1), math.Inf(-1), float32(math.Inf(1))} {
		err := ff.Validate(v)
		require.Error(t, err, "%v", v)
		require.True(t, errors.As(err, &e))
		assert.Equal(t, "finite", e.Rule)
	}
	assert.NoError(t, ff.Validate(int64(3)))
}

func TestNormalize(t *testing.T) {
	assert.Equal(t, 3.0, field.Float("f").Descriptor().Normalize(3))
	assert.Equal(t, 2.5, field.Float("f").Descriptor().Normalize(float32(2.5)))
	assert.Equal(t, int64(3), field.Int("i").Descriptor().Normalize(int8(3)))
	assert.Equal(t, "x", field.Int("i").Descriptor().Normalize("x"), "unconvertible values are kept")

	loc := time.FixedZone("UTC+5", 5*60*60)
	ts := time.Date(2021, 3, 4, 22, 30, 15, 99, loc)
	assert.Equal(t, time.Date(2021, 3, 4, 0, 0, 0, 0, time.UTC), field.Date("d").Descriptor().Normalize(ts))
	assert.True(t, ts.Equal(field.DateTime("dt").Descriptor().Normalize(ts).(time.Time)))

	nfc := field.String("s").NFC().Descriptor()
	assert.Equal(t, "\u00e9", nfc.Normalize("e\u0301"))
	assert.Equal(t, "e\u0301", field.String("s").Descriptor().Normalize("e\u0301"))
}

func TestDefaults(t *testing.T) {
	fd := field.Bool("b").Descriptor()
	assert.False(t, fd.HasDefault())
	assert.Nil(t, fd.DefaultValue())

	fd = field.Bool("b").Default(false).Descriptor()
	assert.True(t, fd.HasDefault())
	assert.Equal(t, false, fd.DefaultValue())

	now := time.Date(2024, 5, 6, 7, 8, 9, 0, time.UTC)
	fd = field.DateTime("at").DefaultFunc(func() time.Time { return now }).Descriptor()
	assert.True(t, fd.HasDefault())
	assert.Equal(t, now, fd.DefaultValue())
}
