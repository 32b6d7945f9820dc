package authz_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zamcdf/cdf-portal/internal/authz"
	"github.com/zamcdf/cdf-portal/internal/geo"
)

func TestScopePrecedenceExplicitOverClaim(t *testing.T) {
	resolver := authz.NewScopeResolver(testIndex(t))
	principal := testPrincipal(t, "u-1", "c-kbw", authz.RoleConstituencyCoordinator)

	scope, err := resolver.Resolve(authz.Request{QueryScope: "w-kam"}, principal)
	require.NoError(t, err)
	assert.Equal(t, authz.SourceExplicitParam, scope.Source)
	assert.Equal(t, "w-kam", scope.TargetNodeID)
	assert.Equal(t, "Kamulanga Ward", scope.NormalizedScope)
	assert.Equal(t, geo.LevelWard, scope.Level)
}

func TestScopePrecedenceWithinRequest(t *testing.T) {
	resolver := authz.NewScopeResolver(testIndex(t))
	principal := testPrincipal(t, "u-1", "", authz.RolePLGO)

	// Path wins over query, query over body, body over header.
	scope, err := resolver.Resolve(authz.Request{
		PathScope:   "w-kam",
		QueryScope:  "w-kbw",
		BodyScope:   "c-bmk",
		HeaderScope: "p-cb",
	}, principal)
	require.NoError(t, err)
	assert.Equal(t, "w-kam", scope.TargetNodeID)

	scope, err = resolver.Resolve(authz.Request{
		BodyScope:   "c-bmk",
		HeaderScope: "p-cb",
	}, principal)
	require.NoError(t, err)
	assert.Equal(t, "c-bmk", scope.TargetNodeID)
}

func TestScopeFallsBackToHomeClaim(t *testing.T) {
	resolver := authz.NewScopeResolver(testIndex(t))
	principal := testPrincipal(t, "u-1", "c-kbw", authz.RoleConstituencyCoordinator)

	scope, err := resolver.Resolve(authz.Request{}, principal)
	require.NoError(t, err)
	assert.Equal(t, authz.SourcePrincipalClaim, scope.Source)
	assert.Equal(t, "c-kbw", scope.TargetNodeID)
	assert.Equal(t, "Kabwata Constituency", scope.NormalizedScope)
}

func TestScopeDefaultsToNational(t *testing.T) {
	resolver := authz.NewScopeResolver(testIndex(t))
	principal := testPrincipal(t, "u-1", "", authz.RoleAuditor)

	scope, err := resolver.Resolve(authz.Request{}, principal)
	require.NoError(t, err)
	assert.Equal(t, authz.SourceDefault, scope.Source)
	assert.Equal(t, authz.NationalScope, scope.NormalizedScope)
	assert.True(t, scope.Unrestricted())
}

func TestScopeInvalidExplicitReferenceNeverDefaults(t *testing.T) {
	resolver := authz.NewScopeResolver(testIndex(t))
	principal := testPrincipal(t, "u-1", "c-kbw", authz.RoleConstituencyCoordinator)

	_, err := resolver.Resolve(authz.Request{QueryScope: "Atlantis"}, principal)
	assert.ErrorIs(t, err, authz.ErrInvalidScopeReference)
}

func TestScopeInvalidHomeClaimFailsClosed(t *testing.T) {
	resolver := authz.NewScopeResolver(testIndex(t))
	principal := testPrincipal(t, "u-1", "gone-node", authz.RoleConstituencyCoordinator)

	_, err := resolver.Resolve(authz.Request{}, principal)
	assert.ErrorIs(t, err, authz.ErrInvalidScopeReference)
}

func TestScopeNationalReferences(t *testing.T) {
	resolver := authz.NewScopeResolver(testIndex(t))
	principal := testPrincipal(t, "u-1", "", authz.RoleAuditor)

	for _, raw := range []string{"national", "National", "National (All)", "NATIONAL (ALL)"} {
		scope, err := resolver.Resolve(authz.Request{QueryScope: raw}, principal)
		require.NoError(t, err, raw)
		assert.Equal(t, authz.NationalScope, scope.NormalizedScope)
		assert.Equal(t, authz.SourceExplicitParam, scope.Source)
		assert.True(t, scope.Unrestricted())
	}
}

func TestScopeNormalizationIdempotent(t *testing.T) {
	resolver := authz.NewScopeResolver(testIndex(t))
	principal := testPrincipal(t, "u-1", "", authz.RolePLGO)

	first, err := resolver.Resolve(authz.Request{QueryScope: "lusaka province"}, principal)
	require.NoError(t, err)
	assert.Equal(t, "Lusaka Province", first.NormalizedScope)

	// Feeding the normalized form back resolves to the same node.
	second, err := resolver.Resolve(authz.Request{QueryScope: first.NormalizedScope}, principal)
	require.NoError(t, err)
	assert.Equal(t, first.TargetNodeID, second.TargetNodeID)
	assert.Equal(t, first.NormalizedScope, second.NormalizedScope)
}

func TestScopeAmbiguityPrefersNarrowest(t *testing.T) {
	resolver := authz.NewScopeResolver(testIndex(t))
	principal := testPrincipal(t, "u-1", "", authz.RolePLGO)

	scope, err := resolver.Resolve(authz.Request{QueryScope: "Kabwata"}, principal)
	require.NoError(t, err)
	assert.Equal(t, "w-kbw", scope.TargetNodeID)
	assert.True(t, scope.Ambiguous)

	scope, err = resolver.Resolve(authz.Request{
		QueryScope: "Kabwata",
		LevelHint:  geo.LevelConstituency,
	}, principal)
	require.NoError(t, err)
	assert.Equal(t, "c-kbw", scope.TargetNodeID)
	assert.False(t, scope.Ambiguous)
}

func TestScopeAdminOverride(t *testing.T) {
	resolver := authz.NewScopeResolver(testIndex(t))

	superAdmin := testPrincipal(t, "u-sa", "", authz.RoleSuperAdmin)
	scope, err := resolver.Resolve(authz.Request{QueryScope: "w-kam"}, superAdmin)
	require.NoError(t, err)
	assert.True(t, scope.Overridden)
	assert.Equal(t, authz.NationalScope, scope.NormalizedScope)
	assert.True(t, scope.Unrestricted())

	// A provincial admin bypasses narrowing at province level and below.
	provAdmin := testPrincipal(t, "u-pa", "", authz.RoleProvincialAdmin)
	scope, err = resolver.Resolve(authz.Request{QueryScope: "w-kam"}, provAdmin)
	require.NoError(t, err)
	assert.True(t, scope.Overridden)

	// A district admin does not bypass a province-level request.
	distAdmin := testPrincipal(t, "u-da", "", authz.RoleDistrictAdmin)
	scope, err = resolver.Resolve(authz.Request{QueryScope: "p-lsk"}, distAdmin)
	require.NoError(t, err)
	assert.False(t, scope.Overridden)
	assert.Equal(t, "p-lsk", scope.TargetNodeID)

	scope, err = resolver.Resolve(authz.Request{QueryScope: "d-ndl"}, distAdmin)
	require.NoError(t, err)
	assert.True(t, scope.Overridden)
}

func TestScopeAdminOverrideStillRejectsInvalidReference(t *testing.T) {
	resolver := authz.NewScopeResolver(testIndex(t))
	superAdmin := testPrincipal(t, "u-sa", "", authz.RoleSuperAdmin)

	_, err := resolver.Resolve(authz.Request{QueryScope: "Atlantis"}, superAdmin)
	assert.ErrorIs(t, err, authz.ErrInvalidScopeReference)
}
