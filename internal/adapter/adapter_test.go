package adapter

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/archq/internal/dslerr"
	"github.com/roach88/archq/internal/model"
)

func TestTablesLoadForEveryModel(t *testing.T) {
	for _, m := range model.All() {
		t.Run(m.String(), func(t *testing.T) {
			a, err := ForModel(m)
			require.NoError(t, err)
			assert.Equal(t, m, a.Model())
			assert.Equal(t, "_id", a.IDField())
			assert.NotEmpty(t, a.Hierarchy().Parent)
		})
	}
}

func TestResolve(t *testing.T) {
	units := MustForModel(model.Unit)

	tests := []struct {
		in   string
		want string
	}{
		{"#id", "_id"},
		{"#unitups", "_up"},
		{"#allunitups", "_us"},
		{"#nbunits", "_nbc"},
		{"#object", "_og"},
		{"#management.ClassificationRule", "_mgt.ClassificationRule"},
		{"Title", "Title"},
		{"Title_.fr", "Title_.fr"},
		{"Descriptive.Keyword.Value", "Descriptive.Keyword.Value"},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := units.Resolve(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestResolveRejects(t *testing.T) {
	units := MustForModel(model.Unit)

	for _, name := range []string{
		"", "#bogus", "_id", "_up.x", "$eq", "a.$b", "a..b", ".a", "a.", "#all", "#qualifiers",
	} {
		t.Run(name, func(t *testing.T) {
			_, err := units.Resolve(name)
			assert.ErrorIs(t, err, dslerr.ErrUnknownField)
		})
	}
}

func TestTablesDifferPerModel(t *testing.T) {
	units := MustForModel(model.Unit)
	groups := MustForModel(model.ObjectGroup)
	objects := MustForModel(model.Object)

	got, err := groups.Resolve("#qualifiers")
	require.NoError(t, err)
	assert.Equal(t, "_qualifiers", got)

	_, err = units.Resolve("#qualifiers")
	assert.ErrorIs(t, err, dslerr.ErrUnknownField)

	_, err = objects.Resolve("#unitups")
	assert.ErrorIs(t, err, dslerr.ErrUnknownField)

	assert.Equal(t, Hierarchy{Parent: "_up", Ancestors: "_us", Distances: "_uds"}, units.Hierarchy())
	assert.Equal(t, Hierarchy{Parent: "_og"}, objects.Hierarchy())
}

func TestIsReservedField(t *testing.T) {
	units := MustForModel(model.Unit)

	assert.True(t, units.IsReservedField("#id"))
	assert.True(t, units.IsReservedField(AllFields))
	assert.False(t, units.IsReservedField("#bogus"))
	assert.False(t, units.IsReservedField("Title"))
	assert.Contains(t, units.ReservedFields(), "#unitups")
}

func TestResolveProjection(t *testing.T) {
	units := MustForModel(model.Unit)

	got, err := units.ResolveProjection(AllFields)
	require.NoError(t, err)
	assert.Equal(t, AllFields, got)

	got, err = units.ResolveProjection("#id")
	require.NoError(t, err)
	assert.Equal(t, "_id", got)
}

func TestConcurrentLoad(t *testing.T) {
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			a, err := ForModel(model.Unit)
			assert.NoError(t, err)
			_, err = a.Resolve("#id")
			assert.NoError(t, err)
		}()
	}
	wg.Wait()
}
