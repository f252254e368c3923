package record

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromAny(t *testing.T) {
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	tests := []struct {
		name string
		in   any
		want Value
	}{
		{"nil", nil, Null{}},
		{"bool", true, Bool(true)},
		{"int", 42, Int(42)},
		{"int32", int32(-7), Int(-7)},
		{"uint8", uint8(255), Int(255)},
		{"float", 2.5, Float(2.5)},
		{"string", "Alice", String("Alice")},
		{"bytes", []byte{1, 2}, Bytes{1, 2}},
		{"time", now, Time(now)},
		{"json integer", json.Number("30"), Int(30)},
		{"json float", json.Number("30.5"), Float(30.5)},
		{"value passthrough", String("x"), String("x")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := FromAny(tt.in)
			require.NoError(t, err)
			assert.True(t, Equal(tt.want, got), "want %v, got %v", tt.want, got)
			assert.Equal(t, tt.want.Kind(), got.Kind())
		})
	}

	_, err := FromAny(struct{}{})
	assert.ErrorIs(t, err, ErrUnsupportedValue)
}

func TestEqualAndCompare(t *testing.T) {
	assert.True(t, Equal(Int(2), Float(2)))
	assert.True(t, Equal(nil, Null{}))
	assert.False(t, Equal(String("1"), Int(1)))
	assert.False(t, Equal(Null{}, Int(0)))

	assert.Equal(t, -1, Compare(Null{}, Int(0)))
	assert.Equal(t, -1, Compare(Int(1), Float(1.5)))
	assert.Equal(t, 1, Compare(String("b"), String("a")))
	assert.Equal(t, 0, Compare(Bool(true), Bool(true)))
	assert.Equal(t, -1, Compare(Bool(false), Bool(true)))
	assert.Equal(t, -1, Compare(Int(100), String("0")))

	assert.True(t, Comparable(Int(1), Float(2)))
	assert.False(t, Comparable(Int(1), String("2")))
	assert.False(t, Comparable(Null{}, Null{}))
}

func TestRecordOrderAndAccessors(t *testing.T) {
	r := From("name", "Alice", "age", 25, "email", nil)

	assert.Equal(t, []string{"name", "age", "email"}, r.Keys())
	assert.Equal(t, 3, r.Len())
	assert.Equal(t, String("Alice"), r.Value("name"))
	assert.Equal(t, Null{}, r.Value("missing"))
	assert.True(t, r.Has("email"))

	r.Set("age", Int(26))
	assert.Equal(t, []string{"name", "age", "email"}, r.Keys())

	r.Delete("name")
	assert.Equal(t, []string{"age", "email"}, r.Keys())

	var absent *Record
	assert.Equal(t, 0, absent.Len())
	assert.False(t, absent.Has("id"))
	assert.Nil(t, absent.Clone())
}

func TestRecordProjectAndEqual(t *testing.T) {
	r := From("id", 1, "name", "Bob", "age", 30)
	p := r.Project([]string{"name", "id"})
	assert.Equal(t, []string{"id", "name"}, p.Keys())

	assert.True(t, From("a", 1, "b", "x").Equal(From("b", "x", "a", 1.0)))
	assert.False(t, From("a", 1).Equal(From("a", 1, "b", nil)))

	c := r.Clone()
	c.Set("name", String("Robert"))
	assert.Equal(t, String("Bob"), r.Value("name"))
}

func TestRecordJSONKeepsOrder(t *testing.T) {
	in := `{"zeta":1,"alpha":"a","mid":null,"flag":true,"ratio":0.5}`

	var r Record
	require.NoError(t, json.Unmarshal([]byte(in), &r))
	assert.Equal(t, []string{"zeta", "alpha", "mid", "flag", "ratio"}, r.Keys())
	assert.Equal(t, Int(1), r.Value("zeta"))
	assert.Equal(t, Float(0.5), r.Value("ratio"))

	out, err := json.Marshal(&r)
	require.NoError(t, err)
	assert.JSONEq(t, in, string(out))
	assert.Equal(t, in, string(out))

	err = json.Unmarshal([]byte(`{"nested":{"a":1}}`), &r)
	assert.ErrorIs(t, err, ErrUnsupportedValue)
}
