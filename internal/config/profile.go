// =============================================================================
// Ledger Cleaner - Source Profiles
// =============================================================================
//
// A profile describes the layout of one ledger export source: which files it
// produces, how its CSV variant is encoded, and which columns anchor the
// cleaning. Each YAML file in the profiles directory holds one profile.
//
// EXAMPLE (profiles/erp_legacy.yaml):
//
//   name: ERP legacy export
//   code: erp
//   file_matching_patterns: ["razao_*.xlsx", "razao_*.csv"]
//   csv_settings:
//     delimiter: ";"
//     encoding: Windows-1252
//     skip_rows: 0
//   cleaning:
//     liveness_anchors: [A, E]
//     fill_column: A
//     target_columns: [Data, Plano, Origem, Histórico, Valor, Tipo Operação, Usuário]
//     sheet_name: Dados Limpos
//     amount_policy: fail
//
// Keys left out take the built-in defaults, which match the original export
// layout.
//
// =============================================================================

package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/ginjaninja78/ledger-cleaner/internal/cleaner"
)

// DefaultProfileCode is the code of the built-in profile.
const DefaultProfileCode = "default"

// =============================================================================
// PROFILE STRUCTURE
// =============================================================================

// Profile holds the configuration for one export source.
type Profile struct {
	// Name is the human-readable name used in logs.
	Name string `yaml:"name"`

	// Code identifies the profile on the command line and in the HTTP API.
	// Defaults to the file name without extension.
	Code string `yaml:"code"`

	// FileMatchingPatterns are glob patterns matched against input file
	// names. The first profile with a matching pattern is used.
	FileMatchingPatterns []string `yaml:"file_matching_patterns"`

	// CSVSettings apply when the input is a CSV export.
	CSVSettings CSVSettings `yaml:"csv_settings"`

	// Cleaning configures the cleaning pipeline.
	Cleaning CleaningSettings `yaml:"cleaning"`

	// Source is the file the profile was loaded from. Empty for the
	// built-in profile.
	Source string `yaml:"-"`
}

// CSVSettings contains settings for parsing CSV exports.
type CSVSettings struct {
	// Delimiter separates fields. "tab", "pipe" and "semicolon" are accepted
	// as names.
	// Default: ","
	Delimiter string `yaml:"delimiter"`

	// Encoding is "UTF-8", "ISO-8859-1" or "Windows-1252".
	// Default: "UTF-8"
	Encoding string `yaml:"encoding"`

	// SkipRows drops this many leading records before the sheet begins.
	SkipRows int `yaml:"skip_rows"`
}

// CleaningSettings mirrors cleaner.Spec in YAML form.
type CleaningSettings struct {
	// LivenessAnchors are the two column letters of which at least one must
	// be non-blank for a row to survive.
	// Default: [A, E]
	LivenessAnchors []string `yaml:"liveness_anchors"`

	// FillColumn is forward filled and then used to strip header rows.
	// Default: A
	FillColumn string `yaml:"fill_column"`

	// TargetColumns are the seven canonical output names in role order:
	// date, plan, origin, history, amount, operation type, user.
	TargetColumns []string `yaml:"target_columns"`

	// SheetName is the reserved name of the cleaned sheet.
	// Default: "Dados Limpos"
	SheetName string `yaml:"sheet_name"`

	// AmountPolicy is "fail" or "blank".
	// Default: "fail"
	AmountPolicy string `yaml:"amount_policy"`
}

// DefaultProfile returns the built-in profile.
func DefaultProfile() *Profile {
	p := &Profile{
		Name:                 "Default ledger export",
		Code:                 DefaultProfileCode,
		FileMatchingPatterns: []string{"*.xlsx", "*.xlsm", "*.csv"},
	}
	applyProfileDefaults(p)
	return p
}

// applyProfileDefaults sets default values for any unset profile option.
func applyProfileDefaults(p *Profile) {
	spec := cleaner.DefaultSpec()

	if p.Name == "" {
		p.Name = p.Code
	}

	// CSV settings defaults.
	if p.CSVSettings.Delimiter == "" {
		p.CSVSettings.Delimiter = ","
	}
	if p.CSVSettings.Encoding == "" {
		p.CSVSettings.Encoding = "UTF-8"
	}

	// Cleaning defaults.
	if len(p.Cleaning.LivenessAnchors) == 0 {
		p.Cleaning.LivenessAnchors = []string{spec.Anchors.Liveness[0], spec.Anchors.Liveness[1]}
	}
	if p.Cleaning.FillColumn == "" {
		p.Cleaning.FillColumn = spec.Anchors.Fill
	}
	if len(p.Cleaning.TargetColumns) == 0 {
		p.Cleaning.TargetColumns = spec.Target.Names()
	}
	if p.Cleaning.SheetName == "" {
		p.Cleaning.SheetName = spec.SheetName
	}
	if p.Cleaning.AmountPolicy == "" {
		p.Cleaning.AmountPolicy = string(spec.AmountPolicy)
	}
	for i, a := range p.Cleaning.LivenessAnchors {
		p.Cleaning.LivenessAnchors[i] = strings.ToUpper(strings.TrimSpace(a))
	}
	p.Cleaning.FillColumn = strings.ToUpper(strings.TrimSpace(p.Cleaning.FillColumn))
}

// CleanerSpec converts the cleaning settings into a cleaner.Spec. Structural
// problems (wrong anchor or column counts) are errors; the remaining rules
// are checked by cleaner.New and the validation package.
func (p *Profile) CleanerSpec() (cleaner.Spec, error) {
	c := p.Cleaning
	if len(c.LivenessAnchors) != 2 {
		return cleaner.Spec{}, fmt.Errorf("profile %q: liveness_anchors needs exactly 2 columns, got %d", p.Code, len(c.LivenessAnchors))
	}
	if len(c.TargetColumns) != cleaner.TargetColumns {
		return cleaner.Spec{}, fmt.Errorf("profile %q: target_columns needs exactly %d names, got %d", p.Code, cleaner.TargetColumns, len(c.TargetColumns))
	}

	spec := cleaner.Spec{
		Anchors: cleaner.AnchorColumnSpec{
			Liveness: [2]string{c.LivenessAnchors[0], c.LivenessAnchors[1]},
			Fill:     c.FillColumn,
		},
		SheetName:    c.SheetName,
		AmountPolicy: cleaner.AmountPolicy(strings.ToLower(c.AmountPolicy)),
	}
	copy(spec.Target[:], c.TargetColumns)
	return spec, nil
}

// Matches reports whether fileName matches one of the profile's patterns.
// Matching ignores case.
func (p *Profile) Matches(fileName string) bool {
	name := strings.ToLower(filepath.Base(fileName))
	for _, pattern := range p.FileMatchingPatterns {
		// Invalid patterns never match; validation reports them.
		if ok, err := filepath.Match(strings.ToLower(pattern), name); err == nil && ok {
			return true
		}
	}
	return false
}

// =============================================================================
// PROFILE SET
// =============================================================================

// ProfileSet holds every loaded profile keyed by code.
type ProfileSet struct {
	profiles    map[string]*Profile
	defaultCode string
}

// NewProfileSet builds a set from profiles. The built-in profile is added
// unless one of profiles already uses its code. defaultCode must name a
// profile of the resulting set.
func NewProfileSet(defaultCode string, profiles ...*Profile) (*ProfileSet, error) {
	set := &ProfileSet{profiles: make(map[string]*Profile), defaultCode: defaultCode}
	for _, p := range profiles {
		if prev, dup := set.profiles[p.Code]; dup {
			return nil, fmt.Errorf("duplicate profile code %q in %s and %s", p.Code, prev.Source, p.Source)
		}
		set.profiles[p.Code] = p
	}
	if _, ok := set.profiles[DefaultProfileCode]; !ok {
		set.profiles[DefaultProfileCode] = DefaultProfile()
	}
	if set.defaultCode == "" {
		set.defaultCode = DefaultProfileCode
	}
	if _, ok := set.profiles[set.defaultCode]; !ok {
		return nil, fmt.Errorf("default profile %q not found", set.defaultCode)
	}
	return set, nil
}

// LoadProfiles loads every *.yaml and *.yml file from profilesDir. A missing
// directory yields a set holding only the built-in profile.
func LoadProfiles(profilesDir, defaultCode string) (*ProfileSet, error) {
	if _, err := os.Stat(profilesDir); errors.Is(err, fs.ErrNotExist) {
		return NewProfileSet(defaultCode)
	}

	files, err := filepath.Glob(filepath.Join(profilesDir, "*.yaml"))
	if err != nil {
		return nil, fmt.Errorf("failed to list profile files: %w", err)
	}
	ymlFiles, err := filepath.Glob(filepath.Join(profilesDir, "*.yml"))
	if err != nil {
		return nil, fmt.Errorf("failed to list profile files: %w", err)
	}
	files = append(files, ymlFiles...)
	sort.Strings(files)

	profiles := make([]*Profile, 0, len(files))
	for _, file := range files {
		p, err := LoadProfile(file)
		if err != nil {
			return nil, fmt.Errorf("failed to load %s: %w", file, err)
		}
		profiles = append(profiles, p)
	}
	return NewProfileSet(defaultCode, profiles...)
}

// LoadProfile loads a single profile file.
func LoadProfile(filePath string) (*Profile, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}

	var p Profile
	if err := yaml.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("failed to parse file: %w", err)
	}

	if p.Code == "" {
		p.Code = strings.TrimSuffix(filepath.Base(filePath), filepath.Ext(filePath))
	}
	p.Source = filePath
	applyProfileDefaults(&p)
	return &p, nil
}

// Get returns the profile with the given code.
func (s *ProfileSet) Get(code string) (*Profile, bool) {
	p, ok := s.profiles[code]
	return p, ok
}

// Default returns the default profile.
func (s *ProfileSet) Default() *Profile { return s.profiles[s.defaultCode] }

// All returns every profile sorted by code.
func (s *ProfileSet) All() []*Profile {
	out := make([]*Profile, 0, len(s.profiles))
	for _, p := range s.profiles {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Code < out[j].Code })
	return out
}

// Match returns the profile for fileName: the first non-default profile, by
// code, with a matching pattern, or the default profile.
func (s *ProfileSet) Match(fileName string) *Profile {
	for _, p := range s.All() {
		if p.Code == s.defaultCode {
			continue
		}
		if p.Matches(fileName) {
			return p
		}
	}
	return s.Default()
}
