package authority

import (
	"sort"
	"strings"

	"github.com/fundwit/go-commons/types"
)

type Role string

const (
	RoleAdmin     Role = "admin"
	RoleManager   Role = "manager"
	RoleMarketing Role = "marketing"
	RoleDesigner  Role = "designer"
	RoleSales     Role = "sales"
	RoleSupport   Role = "support"
	RoleMember    Role = "member"
)

type Capability string

const (
	CapSupervise        Capability = "workflow:supervise"
	CapMarketingAccess  Capability = "marketing:access"
	CapDesignProduce    Capability = "design:produce"
	CapContentProduce   Capability = "content:produce"
	CapQuotationAccess  Capability = "quotation:access"
	CapQuotationApprove Capability = "quotation:approve"
	CapTicketAccess     Capability = "ticket:access"
	CapTicketHandle     Capability = "ticket:handle"
	CapTicketViewAll    Capability = "ticket:view_all"
	CapLeadAccess       Capability = "lead:access"
	CapLeadViewAll      Capability = "lead:view_all"
	CapAccountManage    Capability = "account:manage"
	CapIndicesManage    Capability = "indices:manage"
)

var grants = map[Capability][]Role{
	CapSupervise:        {RoleAdmin, RoleManager},
	CapMarketingAccess:  {RoleAdmin, RoleManager, RoleMarketing, RoleDesigner},
	CapDesignProduce:    {RoleDesigner},
	CapContentProduce:   {RoleMarketing},
	CapQuotationAccess:  {RoleAdmin, RoleManager, RoleSales},
	CapQuotationApprove: {RoleAdmin, RoleManager},
	CapTicketAccess:     {RoleAdmin, RoleManager, RoleMarketing, RoleDesigner, RoleSales, RoleSupport, RoleMember},
	CapTicketHandle:     {RoleSupport},
	CapTicketViewAll:    {RoleAdmin, RoleManager, RoleSupport},
	CapLeadAccess:       {RoleAdmin, RoleManager, RoleSales, RoleMarketing},
	CapLeadViewAll:      {RoleAdmin, RoleManager},
	CapAccountManage:    {RoleAdmin},
	CapIndicesManage:    {RoleAdmin},
}

var capabilityIndex = buildIndex(grants)

func buildIndex(g map[Capability][]Role) map[Role]map[Capability]struct{} {
	index := map[Role]map[Capability]struct{}{}
	for capability, roles := range g {
		for _, role := range roles {
			if index[role] == nil {
				index[role] = map[Capability]struct{}{}
			}
			index[role][capability] = struct{}{}
		}
	}
	return index
}

// CanPerform is false for unknown roles and unknown capabilities.
// NormalizeRole folds case and surrounding blanks, stored and requested roles compare in this form.
func NormalizeRole(role Role) Role {
	return Role(strings.ToLower(strings.TrimSpace(string(role))))
}

func CanPerform(role Role, capability Capability) bool {
	capabilities, found := capabilityIndex[NormalizeRole(role)]
	if !found {
		return false
	}
	_, granted := capabilities[capability]
	return granted
}

func IsKnownRole(role Role) bool {
	_, found := capabilityIndex[NormalizeRole(role)]
	return found
}

func IsKnownCapability(capability Capability) bool {
	_, found := grants[capability]
	return found
}

// CapabilitiesOf lists the capabilities granted to role, sorted by name.
func CapabilitiesOf(role Role) []Capability {
	result := []Capability{}
	for capability := range capabilityIndex[NormalizeRole(role)] {
		result = append(result, capability)
	}
	sort.Slice(result, func(i, j int) bool { return result[i] < result[j] })
	return result
}

func Roles() []Role {
	return []Role{RoleAdmin, RoleManager, RoleMarketing, RoleDesigner, RoleSales, RoleSupport, RoleMember}
}

// Actor is the acting identity of one request, its role is resolved per request.
type Actor struct {
	ID   types.ID `json:"id"`
	Name string   `json:"name"`
	Role Role     `json:"role"`
}

func (a Actor) Can(capability Capability) bool {
	return CanPerform(a.Role, capability)
}

// SystemActor performs scheduled writes such as SLA breach marking.
var SystemActor = Actor{ID: 0, Name: "system", Role: ""}
