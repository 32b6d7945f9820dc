package authz_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/zamcdf/cdf-portal/internal/authz"
	"github.com/zamcdf/cdf-portal/internal/geo"
)

// testIndex mirrors a slice of the Zambian hierarchy, with Kabwata present as
// both a constituency and one of its own wards to exercise ambiguity handling.
func testIndex(t *testing.T) *geo.Index {
	t.Helper()
	idx, err := geo.NewIndex([]geo.Node{
		{ID: "p-lsk", Name: "Lusaka", Level: geo.LevelProvince},
		{ID: "p-cb", Name: "Copperbelt", Level: geo.LevelProvince},
		{ID: "d-lsk", Name: "Lusaka", Level: geo.LevelDistrict, ParentID: "p-lsk"},
		{ID: "c-kbw", Name: "Kabwata", Level: geo.LevelConstituency, ParentID: "d-lsk"},
		{ID: "w-kbw", Name: "Kabwata", Level: geo.LevelWard, ParentID: "c-kbw"},
		{ID: "w-kam", Name: "Kamulanga", Level: geo.LevelWard, ParentID: "c-kbw"},
		{ID: "d-ndl", Name: "Ndola", Level: geo.LevelDistrict, ParentID: "p-cb"},
		{ID: "c-bmk", Name: "Bwana Mkubwa", Level: geo.LevelConstituency, ParentID: "d-ndl"},
		{ID: "w-kan", Name: "Kaniki", Level: geo.LevelWard, ParentID: "c-bmk"},
	})
	require.NoError(t, err)
	return idx
}

// testPrincipal builds a principal with its effective closure precomputed.
func testPrincipal(t *testing.T, id, homeScope string, roles ...authz.Role) *authz.Principal {
	t.Helper()
	resolver := defaultResolver(t)
	return &authz.Principal{
		ID:        id,
		Roles:     roles,
		Effective: resolver.EffectivePermissions(roles),
		HomeScope: homeScope,
	}
}
