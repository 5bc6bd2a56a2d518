package normalize

import (
	"os"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"
)

// Rules holds optional user-supplied additions to the built-in matching
// tables, loaded from a YAML file referenced by config.
type Rules struct {
	// CompanyAliases maps lower-cased company names to display forms.
	CompanyAliases map[string]string `yaml:"company_aliases"`

	// DomainCompanies maps sender domains to company display names,
	// consumed by the rule extractor.
	DomainCompanies map[string]string `yaml:"domain_companies"`
}

// LoadRules reads a rules file. A missing path returns empty rules rather
// than an error so the file stays optional.
func LoadRules(path string) (*Rules, error) {
	if path == "" {
		return &Rules{}, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return &Rules{}, nil
		}
		return nil, eris.Wrap(err, "normalize: read rules file")
	}
	var r Rules
	if err := yaml.Unmarshal(data, &r); err != nil {
		return nil, eris.Wrap(err, "normalize: parse rules file")
	}
	return &r, nil
}
