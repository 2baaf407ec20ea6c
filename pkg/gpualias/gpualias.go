package gpualias

import (
	"bytes"
	_ "embed"
	"io"
	"os"
	"sort"
	"strings"
	"sync"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v2"
)

//go:embed gpu_aliases.yaml
var defaultTable []byte

var ErrDuplicateAlias = errors.New("duplicate gpu alias")

// Family is a canonical GPU family and the provider strings that name it.
type Family struct {
	Name               string                    `yaml:"name" json:"name"`
	VRAMGB             float64                   `yaml:"vram_gb" json:"vram_gb"`
	Aliases            []string                  `yaml:"aliases" json:"aliases"`
	AWSFamilies        map[string]map[string]int `yaml:"aws_families" json:"aws_families,omitempty"`
	GCPMachinePrefixes []string                  `yaml:"gcp_machine_prefixes" json:"gcp_machine_prefixes,omitempty"`
	GCPAccelerators    []string                  `yaml:"gcp_accelerators" json:"gcp_accelerators,omitempty"`
}

// AWSGPUCount returns the GPU count of an EC2 instance type from the size table.
func (f Family) AWSGPUCount(instanceType string) (int, bool) {
	code, size, ok := splitAWSType(instanceType)
	if !ok {
		return 0, false
	}
	n, ok := f.AWSFamilies[code][size]
	return n, ok
}

type tableFile struct {
	Version  string   `yaml:"version"`
	Families []Family `yaml:"families"`
}

type prefix struct {
	value  string
	family int
}

// Table is the loaded alias table. It is never mutated after Load returns,
// so a single Table can be shared by concurrent searches.
type Table struct {
	version      string
	families     []Family
	keys         map[string]int
	awsFamilies  map[string]int
	accelerators map[string]int
	gcpPrefixes  []prefix
}

var (
	defaultOnce  sync.Once
	defaultTbl   *Table
	defaultError error
)

// Default returns the table embedded in the binary.
func Default() (*Table, error) {
	defaultOnce.Do(func() {
		defaultTbl, defaultError = Load(bytes.NewReader(defaultTable))
	})
	return defaultTbl, defaultError
}

// LoadFile reads an alias table override from disk.
func LoadFile(path string) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "could not open gpu alias table %s", path)
	}
	defer f.Close()
	return Load(f)
}

// Load parses a YAML alias table. It fails on a raw alias listed twice and on
// any key that would resolve to two different families.
func Load(r io.Reader) (*Table, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, errors.Wrap(err, "could not read gpu alias table")
	}
	var file tableFile
	if err := yaml.UnmarshalStrict(data, &file); err != nil {
		return nil, errors.Wrap(err, "could not parse gpu alias table")
	}

	t := &Table{
		version:      file.Version,
		families:     file.Families,
		keys:         map[string]int{},
		awsFamilies:  map[string]int{},
		accelerators: map[string]int{},
	}

	rawSeen := map[string]string{}
	for i, fam := range file.Families {
		if fam.Name == "" {
			return nil, errors.Errorf("gpu alias table: family #%d has no name", i)
		}
		if err := t.addKey(fam.Name, i); err != nil {
			return nil, err
		}
		for _, alias := range fam.Aliases {
			raw := strings.ToLower(strings.TrimSpace(alias))
			if prev, ok := rawSeen[raw]; ok {
				return nil, errors.Wrapf(ErrDuplicateAlias, "%q listed under %s and %s", alias, prev, fam.Name)
			}
			rawSeen[raw] = fam.Name
			if err := t.addKey(alias, i); err != nil {
				return nil, err
			}
		}
		for code := range fam.AWSFamilies {
			code = strings.ToLower(code)
			if j, ok := t.awsFamilies[code]; ok {
				return nil, errors.Wrapf(ErrDuplicateAlias, "aws family %q listed under %s and %s", code, t.families[j].Name, fam.Name)
			}
			t.awsFamilies[code] = i
			if err := t.addKey(code, i); err != nil {
				return nil, err
			}
		}
		for _, acc := range fam.GCPAccelerators {
			acc = strings.ToLower(acc)
			if j, ok := t.accelerators[acc]; ok {
				return nil, errors.Wrapf(ErrDuplicateAlias, "gcp accelerator %q listed under %s and %s", acc, t.families[j].Name, fam.Name)
			}
			t.accelerators[acc] = i
			if err := t.addKey(acc, i); err != nil {
				return nil, err
			}
		}
		for _, p := range fam.GCPMachinePrefixes {
			p = strings.ToLower(p)
			for _, existing := range t.gcpPrefixes {
				if existing.value == p {
					return nil, errors.Wrapf(ErrDuplicateAlias, "gcp machine prefix %q listed under %s and %s", p, t.families[existing.family].Name, fam.Name)
				}
			}
			t.gcpPrefixes = append(t.gcpPrefixes, prefix{value: p, family: i})
		}
	}

	// longest prefix first
	sort.SliceStable(t.gcpPrefixes, func(a, b int) bool {
		return len(t.gcpPrefixes[a].value) > len(t.gcpPrefixes[b].value)
	})
	return t, nil
}

func (t *Table) addKey(raw string, family int) error {
	key := normalize(raw)
	if key == "" {
		return errors.Errorf("gpu alias table: %q normalizes to an empty key", raw)
	}
	if j, ok := t.keys[key]; ok && j != family {
		return errors.Wrapf(ErrDuplicateAlias, "%q resolves to both %s and %s", raw, t.families[j].Name, t.families[family].Name)
	}
	t.keys[key] = family
	return nil
}

func (t *Table) Version() string {
	return t.version
}

// Families returns the families in table order.
func (t *Table) Families() []Family {
	out := make([]Family, len(t.families))
	copy(out, t.families)
	return out
}

// Resolve maps a user supplied GPU identifier onto its canonical family.
// It accepts model names ("nvidia-tesla-a100"), AWS instance types or family
// codes ("p4d.24xlarge", "p4d") and GCP machine types ("a2-highgpu-1g").
// The second return value is false when nothing matches.
func (t *Table) Resolve(raw string) (Family, bool) {
	if i, ok := t.keys[normalize(raw)]; ok {
		return t.families[i], true
	}
	if f, ok := t.FamilyForAWSInstance(raw); ok {
		return f, true
	}
	return t.FamilyForGCPMachine(raw)
}

// FamilyForAWSInstance looks up the family of an EC2 instance type by its
// family code, "p4d.24xlarge" -> "p4d".
func (t *Table) FamilyForAWSInstance(instanceType string) (Family, bool) {
	code, _, ok := splitAWSType(instanceType)
	if !ok {
		return Family{}, false
	}
	i, ok := t.awsFamilies[code]
	if !ok {
		return Family{}, false
	}
	return t.families[i], true
}

func (t *Table) FamilyForGCPMachine(machineType string) (Family, bool) {
	m := strings.ToLower(strings.TrimSpace(machineType))
	for _, p := range t.gcpPrefixes {
		if strings.HasPrefix(m, p.value) {
			return t.families[p.family], true
		}
	}
	return Family{}, false
}

func (t *Table) FamilyForAccelerator(acceleratorType string) (Family, bool) {
	i, ok := t.accelerators[strings.ToLower(strings.TrimSpace(acceleratorType))]
	if !ok {
		return Family{}, false
	}
	return t.families[i], true
}

// Matches reports whether an instance, described by its normalized gpu type
// and native instance type, belongs to family.
func (t *Table) Matches(family Family, gpuType, instanceType string) bool {
	if gpuType != "" {
		if f, ok := t.Resolve(gpuType); ok && f.Name == family.Name {
			return true
		}
	}
	if f, ok := t.FamilyForAWSInstance(instanceType); ok && f.Name == family.Name {
		return true
	}
	if f, ok := t.FamilyForGCPMachine(instanceType); ok && f.Name == family.Name {
		return true
	}
	return false
}

var separators = strings.NewReplacer(" ", "", "-", "", "_", "")

func normalize(raw string) string {
	s := separators.Replace(strings.ToLower(strings.TrimSpace(raw)))
	s = strings.ReplaceAll(s, "nvidia", "")
	return strings.ReplaceAll(s, "tesla", "")
}

func splitAWSType(instanceType string) (code, size string, ok bool) {
	code, size, ok = strings.Cut(strings.ToLower(strings.TrimSpace(instanceType)), ".")
	if !ok || code == "" {
		return "", "", false
	}
	return code, size, true
}
