package model

// Property is one entry of the property catalog reference data.
type Property struct {
	Code           string
	Address        string
	Block          string
	FreeholdEntity string
}

// PropertySet is the set of valid property codes, used to validate
// property-phase rule outputs. An empty set disables validation.
type PropertySet map[string]struct{}

// NewPropertySet builds a set from a catalog.
func NewPropertySet(properties []Property) PropertySet {
	set := make(PropertySet, len(properties))
	for _, p := range properties {
		set[p.Code] = struct{}{}
	}
	return set
}

// Has reports whether code is a known property code.
func (s PropertySet) Has(code string) bool {
	_, ok := s[code]
	return ok
}
