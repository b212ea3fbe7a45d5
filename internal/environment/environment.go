// Package environment classifies the runtime environment the service runs in.
// Components receive a Classifier instead of reading process state themselves.
package environment

import "strings"

// Well-known environment names
const (
	Production  = "production"
	Staging     = "staging"
	Development = "development"
	Test        = "test"
)

// Classifier reports which kind of environment is running
type Classifier interface {
	IsProduction() bool
	IsStaging() bool
	Name() string
}

// Static is a Classifier fixed at construction time
type Static struct {
	name string
}

// New returns a classifier for the named environment.
// Names are case-insensitive; unknown names are neither production nor staging.
func New(name string) *Static {
	return &Static{name: strings.ToLower(strings.TrimSpace(name))}
}

// IsProduction is true for production and for staging, which deploys with
// production settings. IsStaging tells the two apart.
func (s *Static) IsProduction() bool {
	return s.name == Production || s.name == Staging
}

func (s *Static) IsStaging() bool {
	return s.name == Staging
}

func (s *Static) Name() string {
	return s.name
}

// Monitored reports whether operational alerts should be emitted for c
func Monitored(c Classifier) bool {
	return c.IsProduction() || c.IsStaging()
}

// Fixed is a Classifier with explicit answers. It can represent combinations a
// named environment cannot, such as a staging deploy that runs with
// development settings.
type Fixed struct {
	Production bool
	Staging    bool
	Label      string
}

func (f Fixed) IsProduction() bool { return f.Production }
func (f Fixed) IsStaging() bool    { return f.Staging }

func (f Fixed) Name() string {
	if f.Label != "" {
		return f.Label
	}
	switch {
	case f.Production:
		return Production
	case f.Staging:
		return Staging
	default:
		return Development
	}
}
