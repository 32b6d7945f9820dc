// Package projects exposes the scoped project-status report. It is the
// portal's reference consumer of the authorization engine: every listing goes
// through Authorize and honors the compiled scope predicate.
package projects

import (
	"github.com/zamcdf/cdf-portal/internal/authz"
	"github.com/zamcdf/cdf-portal/internal/shared"
)

// Operation identifiers registered in the route table.
const (
	OpReportView = "projects.report.view"
)

// Routes returns the static authorization requirements for this package's
// operations.
func Routes() map[string]authz.Requirement {
	return map[string]authz.Requirement{
		OpReportView: {
			RequiredRoles: []authz.Role{
				authz.RolePLGO,
				authz.RoleCDFCChair,
				authz.RoleFinanceOfficer,
				authz.RoleAuditor,
			},
			ScopeSensitive: true,
		},
	}
}

// Project is one row of the status report with its geography chain resolved.
type Project struct {
	ID               string `json:"id"`
	Name             string `json:"name"`
	Status           string `json:"status"`
	WardID           string `json:"ward_id"`
	ConstituencyID   string `json:"constituency_id"`
	DistrictID       string `json:"district_id"`
	ProvinceID       string `json:"province_id"`
	WardName         string `json:"ward_name"`
	ConstituencyName string `json:"constituency_name"`
	DistrictName     string `json:"district_name"`
	ProvinceName     string `json:"province_name"`
}

// Report is the paginated, scope-filtered listing returned to callers.
type Report struct {
	Items      []Project         `json:"items"`
	Total      int               `json:"total"`
	Scope      string            `json:"scope"`
	Pagination shared.Pagination `json:"pagination"`
}
