package domain

import (
	"sort"
	"strings"
)

// Wire shape of the policy source document. Field names follow the
// external supervisores.json contract.
type (
	PolicyDocument struct {
		Supervisors []Supervisor `json:"supervisores"`
	}

	Supervisor struct {
		Name     string        `json:"nombre"`
		Services []ServiceSpec `json:"servicios"`
	}

	ServiceSpec struct {
		ID      string      `json:"id"`
		Name    string      `json:"nombre"`
		Mode    string      `json:"modo"`
		Insumos InsumosSpec `json:"insumos"`
	}

	InsumosSpec struct {
		ByCodes      []string `json:"porCodigos"`
		ByCategories []string `json:"porCategorias"`
	}
)

type PolicyMode string

const (
	ModeAllow PolicyMode = "allow"
	ModeDeny  PolicyMode = "deny"
)

// A ServicePolicy is the compiled visibility predicate for one service.
// Immutable once compiled.
type ServicePolicy struct {
	ServiceID   string
	ServiceName string
	Supervisor  string
	Mode        PolicyMode
	Codes       map[string]struct{}
	Categories  map[string]struct{}

	// Resolved is false when compilation fell back to the permissive
	// default because the service was absent from the document.
	Resolved bool
}

// DefaultPolicy makes everything visible. An unscoped request must see
// the full catalog rather than fail.
func DefaultPolicy() ServicePolicy {
	return ServicePolicy{
		Mode:       ModeAllow,
		Codes:      map[string]struct{}{},
		Categories: map[string]struct{}{},
	}
}

// CompilePolicy resolves serviceID inside doc and compiles the decision
// sets. Supervisor names match case- and whitespace-insensitively,
// service identifiers match exactly; the first matching service wins.
// An empty or unknown serviceID compiles to [DefaultPolicy].
func CompilePolicy(doc PolicyDocument, serviceID, supervisorName string) ServicePolicy {
	if serviceID == "" {
		return DefaultPolicy()
	}

	sup, spec, ok := resolveService(doc, serviceID, supervisorName)
	if !ok {
		p := DefaultPolicy()
		p.ServiceID = serviceID
		return p
	}

	mode := ModeAllow
	if strings.EqualFold(strings.TrimSpace(spec.Mode), string(ModeDeny)) {
		mode = ModeDeny
	}

	p := ServicePolicy{
		ServiceID:   spec.ID,
		ServiceName: spec.Name,
		Supervisor:  sup.Name,
		Mode:        mode,
		Codes:       toSet(spec.Insumos.ByCodes),
		Categories:  toSet(spec.Insumos.ByCategories),
		Resolved:    true,
	}
	if p.ServiceName == "" {
		p.ServiceName = spec.ID
	}
	return p
}

func resolveService(
	doc PolicyDocument, serviceID, supervisorName string,
) (Supervisor, ServiceSpec, bool) {
	want := normalizeName(supervisorName)
	if want != "" {
		for _, sup := range doc.Supervisors {
			if normalizeName(sup.Name) != want {
				continue
			}
			if spec, ok := findService(sup, serviceID); ok {
				return sup, spec, true
			}
		}
	}
	for _, sup := range doc.Supervisors {
		if spec, ok := findService(sup, serviceID); ok {
			return sup, spec, true
		}
	}
	return Supervisor{}, ServiceSpec{}, false
}

func findService(sup Supervisor, serviceID string) (ServiceSpec, bool) {
	for _, spec := range sup.Services {
		if spec.ID == serviceID {
			return spec, true
		}
	}
	return ServiceSpec{}, false
}

func normalizeName(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

func toSet(vs []string) map[string]struct{} {
	set := make(map[string]struct{}, len(vs))
	for _, v := range vs {
		set[v] = struct{}{}
	}
	return set
}

// Allows decides the visibility of p. Evaluation is pure: it never
// touches stock.
func (sp ServicePolicy) Allows(p Product) bool {
	byCode := contains(sp.Codes, p.Code)
	byCat := contains(sp.Categories, p.Category)

	if sp.Mode == ModeDeny {
		return !(byCode || byCat)
	}
	if len(sp.Codes) == 0 && len(sp.Categories) == 0 {
		return true
	}
	return byCode || byCat
}

// DanglingCodes reports codes listed in the policy that are absent from
// the catalog. A non-empty result is a diagnostic, never an error.
func (sp ServicePolicy) DanglingCodes(c *Catalog) []string {
	var missing []string
	for code := range sp.Codes {
		if !c.Has(code) {
			missing = append(missing, code)
		}
	}
	sort.Strings(missing)
	return missing
}

func contains(set map[string]struct{}, v string) bool {
	_, ok := set[v]
	return ok
}
