// Package versions compares Cluster API releases: Kubernetes and Go
// support ranges, features, deprecations and breaking changes.
package versions

import (
	_ "embed"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/Masterminds/semver/v3"
	"sigs.k8s.io/yaml"
)

type Range struct {
	Min string `json:"min"`
	Max string `json:"max"`
}

// Release describes one Cluster API minor release.
type Release struct {
	Version      string   `json:"version"`
	ReleaseDate  string   `json:"releaseDate"`
	Kubernetes   Range    `json:"kubernetes"`
	Go           string   `json:"go"`
	APIVersion   string   `json:"apiVersion"`
	Features     []string `json:"features,omitempty"`
	Deprecations []string `json:"deprecations,omitempty"`
	Breaking     []string `json:"breaking,omitempty"`
}

// APIChange is a v1beta1 to v1beta2 API difference.
type APIChange struct {
	Type        string `json:"type"`
	Kind        string `json:"kind"`
	Old         string `json:"old,omitempty"`
	New         string `json:"new,omitempty"`
	Description string `json:"description"`
}

//go:embed releases.yaml
var releasesYAML []byte

type database struct {
	Releases   []Release   `json:"releases"`
	APIChanges []APIChange `json:"apiChanges"`
}

var (
	loadOnce sync.Once
	db       database
	loadErr  error
)

func load() (database, error) {
	loadOnce.Do(func() {
		if err := yaml.Unmarshal(releasesYAML, &db); err != nil {
			loadErr = fmt.Errorf("parse release table: %w", err)
			return
		}
		sort.SliceStable(db.Releases, func(i, j int) bool {
			return semver.MustParse(db.Releases[i].Version).LessThan(semver.MustParse(db.Releases[j].Version))
		})
	})
	return db, loadErr
}

// Normalize adds the leading "v" that release names carry.
func Normalize(v string) string {
	v = strings.TrimSpace(v)
	if v != "" && !strings.HasPrefix(v, "v") {
		return "v" + v
	}
	return v
}

// Releases returns the known releases, oldest first.
func Releases() ([]Release, error) {
	d, err := load()
	if err != nil {
		return nil, err
	}
	return append([]Release(nil), d.Releases...), nil
}

func APIChanges() ([]APIChange, error) {
	d, err := load()
	if err != nil {
		return nil, err
	}
	return append([]APIChange(nil), d.APIChanges...), nil
}

// Lookup finds a release by version.
func Lookup(version string) (Release, bool) {
	d, err := load()
	if err != nil {
		return Release{}, false
	}
	version = Normalize(version)
	for _, r := range d.Releases {
		if r.Version == version {
			return r, true
		}
	}
	return Release{}, false
}

// Between returns the known releases after from, up to and including to.
// A downgrade yields none.
func Between(from, to string) ([]Release, error) {
	fv, err := semver.NewVersion(Normalize(from))
	if err != nil {
		return nil, fmt.Errorf("parse from version %q: %w", from, err)
	}
	tv, err := semver.NewVersion(Normalize(to))
	if err != nil {
		return nil, fmt.Errorf("parse to version %q: %w", to, err)
	}
	releases, err := Releases()
	if err != nil {
		return nil, err
	}
	var out []Release
	for _, r := range releases {
		v := semver.MustParse(r.Version)
		if fv.LessThan(v) && !tv.LessThan(v) {
			out = append(out, r)
		}
	}
	return out, nil
}

// Comparison aggregates what changes when upgrading from one release to
// another.
type Comparison struct {
	From            string      `json:"fromVersion"`
	To              string      `json:"toVersion"`
	VersionsBetween []string    `json:"versionsBetween"`
	FromKubernetes  *Range      `json:"fromKubernetes,omitempty"`
	ToKubernetes    *Range      `json:"toKubernetes,omitempty"`
	FromGo          string      `json:"fromGo,omitempty"`
	ToGo            string      `json:"toGo,omitempty"`
	Features        []string    `json:"newFeatures"`
	Deprecations    []string    `json:"deprecations"`
	Breaking        []string    `json:"breakingChanges"`
	APIChanges      []APIChange `json:"apiChanges"`
	// Unknown lists the endpoints missing from the release table.
	Unknown []string `json:"unknownVersions,omitempty"`
}

// GoChanged reports whether both Go versions are known and differ.
func (c Comparison) GoChanged() bool {
	return c.FromGo != "" && c.ToGo != "" && c.FromGo != c.ToGo
}

func Compare(from, to string) (Comparison, error) {
	from, to = Normalize(from), Normalize(to)
	between, err := Between(from, to)
	if err != nil {
		return Comparison{}, err
	}
	changes, err := APIChanges()
	if err != nil {
		return Comparison{}, err
	}
	c := Comparison{
		From:            from,
		To:              to,
		VersionsBetween: []string{},
		Features:        []string{},
		Deprecations:    []string{},
		Breaking:        []string{},
		APIChanges:      changes,
	}
	for _, r := range between {
		c.VersionsBetween = append(c.VersionsBetween, r.Version)
		c.Features = append(c.Features, r.Features...)
		c.Deprecations = append(c.Deprecations, r.Deprecations...)
		c.Breaking = append(c.Breaking, r.Breaking...)
	}
	fromRel, fromOK := Lookup(from)
	toRel, toOK := Lookup(to)
	if !fromOK {
		c.Unknown = append(c.Unknown, from)
	}
	if !toOK {
		c.Unknown = append(c.Unknown, to)
	}
	if fromOK && toOK {
		c.FromKubernetes, c.ToKubernetes = &fromRel.Kubernetes, &toRel.Kubernetes
		c.FromGo, c.ToGo = fromRel.Go, toRel.Go
	}
	return c, nil
}

// Checklist is the ordered list of upgrade steps, grouped by phase.
type Checklist struct {
	Pre      []string `json:"preMigration"`
	Breaking []string `json:"breakingChanges"`
	Migrate  []string `json:"deprecations"`
	Post     []string `json:"postMigration"`
}

func (c Comparison) Checklist() Checklist {
	var cl Checklist
	if c.ToKubernetes != nil {
		cl.Pre = append(cl.Pre, fmt.Sprintf("Verify Kubernetes version meets %s+ requirement", c.ToKubernetes.Min))
	}
	if c.GoChanged() {
		cl.Pre = append(cl.Pre, "Update Go to "+c.ToGo)
	}
	cl.Pre = append(cl.Pre,
		"Backup cluster state (clusterctl move or export)",
		"Review release notes for all versions in range")
	cl.Breaking = append(cl.Breaking, c.Breaking...)
	cl.Migrate = append(cl.Migrate, c.Deprecations...)
	cl.Post = []string{
		"Run clusterctl upgrade plan",
		"Verify all clusters Ready",
		"Check conditions for any warnings",
		"Update provider versions if needed",
	}
	return cl
}
