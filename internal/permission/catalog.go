package permission

import (
	"sort"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Resource identifies a guarded area of the back office. Keys follow the
// group.name convention; the segment before the dot is the catalog group.
type Resource string

// The closed resource catalog. Adding a constant here is the only way a new
// resource becomes checkable; checks against anything else fail closed.
const (
	ResourceOrders       Resource = "sales.orders"
	ResourceCustomers    Resource = "sales.customers"
	ResourceInventory    Resource = "catalog.inventory"
	ResourcePricing      Resource = "catalog.pricing"
	ResourceCampaigns    Resource = "marketing.campaigns"
	ResourceAnalytics    Resource = "marketing.analytics"
	ResourceB2B          Resource = "channels.b2b"
	ResourceMarketplaces Resource = "channels.marketplaces"
	ResourceAdmins       Resource = "platform.admins"
	ResourceAuditLog     Resource = "platform.audit"
	ResourceSettings     Resource = "platform.settings"
)

var catalog = []Resource{
	ResourceOrders,
	ResourceCustomers,
	ResourceInventory,
	ResourcePricing,
	ResourceCampaigns,
	ResourceAnalytics,
	ResourceB2B,
	ResourceMarketplaces,
	ResourceAdmins,
	ResourceAuditLog,
	ResourceSettings,
}

var known = func() map[Resource]struct{} {
	set := make(map[Resource]struct{}, len(catalog))
	for _, r := range catalog {
		set[r] = struct{}{}
	}
	return set
}()

// All returns every catalogued resource in a stable order.
func All() []Resource {
	out := make([]Resource, len(catalog))
	copy(out, catalog)
	return out
}

// Known reports whether r belongs to the catalog.
func Known(r Resource) bool {
	_, ok := known[r]
	return ok
}

// Group returns the catalog group a resource belongs to.
func (r Resource) Group() string {
	if idx := strings.IndexByte(string(r), '.'); idx > 0 {
		return string(r)[:idx]
	}
	return string(r)
}

// GroupedResource pairs a group title with its resources, for admin tooling.
type GroupedResource struct {
	Group     string
	Title     string
	Resources []Resource
}

// Grouped returns the catalog bucketed by naming convention, groups sorted
// alphabetically and resources in catalog order.
func Grouped() []GroupedResource {
	titler := cases.Title(language.English)
	byGroup := make(map[string][]Resource)
	for _, r := range catalog {
		byGroup[r.Group()] = append(byGroup[r.Group()], r)
	}
	names := make([]string, 0, len(byGroup))
	for name := range byGroup {
		names = append(names, name)
	}
	sort.Strings(names)
	out := make([]GroupedResource, 0, len(names))
	for _, name := range names {
		out = append(out, GroupedResource{
			Group:     name,
			Title:     titler.String(name),
			Resources: byGroup[name],
		})
	}
	return out
}
