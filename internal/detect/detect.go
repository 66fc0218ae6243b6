// Package detect implements the repo-type detector: an ordered rule
// list that scores indicator hits per profile and falls back to the
// generic profile at fixed confidence when nothing distinctive
// matches.
package detect

import (
	"os"
	"path/filepath"
	"strings"
)

// Result is the detector's verdict for one repository root.
type Result struct {
	Profile    string
	Confidence float64
	Indicators []string
}

// rule describes one profile's indicator set and the match count that
// earns full (1.0) confidence.
type rule struct {
	profile    string
	target     int
	indicators []indicator
}

type indicator struct {
	description string
	match       func(root string, files []string) bool
}

// Detect walks root (non-recursively beyond a bounded listing, since the
// indicators are root/near-root markers) and scores every rule in order,
// returning the highest-scoring non-generic match, or generic at 0.5
// confidence if nothing scores above zero.
func Detect(root string) Result {
	files := listFiles(root)

	best := Result{}
	for _, r := range rules {
		matched := []string{}
		for _, ind := range r.indicators {
			if ind.match(root, files) {
				matched = append(matched, ind.description)
			}
		}
		if len(matched) == 0 {
			continue
		}
		confidence := float64(len(matched)) / float64(r.target)
		if confidence > 1.0 {
			confidence = 1.0
		}
		if confidence > best.Confidence {
			best = Result{Profile: r.profile, Confidence: confidence, Indicators: matched}
		}
	}
	if best.Profile == "" {
		return Result{Profile: "generic", Confidence: 0.5}
	}
	return best
}

var rules = []rule{
	{
		profile: "ansible",
		target:  3,
		indicators: []indicator{
			{"ansible.cfg present", hasFile("ansible.cfg")},
			{"playbook.yml or site.yml present", hasAny("playbook.yml", "site.yml", "playbooks")},
			{"roles/ directory present", hasFile("roles")},
			{"inventory file present", hasAny("inventory", "inventory.ini", "hosts")},
			{"requirements.yml present", hasFile("requirements.yml")},
		},
	},
	{
		profile: "python",
		target:  2,
		indicators: []indicator{
			{"pyproject.toml present", hasFile("pyproject.toml")},
			{"setup.py present", hasFile("setup.py")},
			{"requirements.txt present", hasFile("requirements.txt")},
			{".py files present", hasExtension(".py")},
		},
	},
}

func hasFile(name string) func(string, []string) bool {
	return func(root string, files []string) bool {
		_, err := os.Stat(filepath.Join(root, name))
		return err == nil
	}
}

func hasAny(names ...string) func(string, []string) bool {
	return func(root string, files []string) bool {
		for _, n := range names {
			if _, err := os.Stat(filepath.Join(root, n)); err == nil {
				return true
			}
		}
		return false
	}
}

func hasExtension(ext string) func(string, []string) bool {
	return func(root string, files []string) bool {
		for _, f := range files {
			if strings.EqualFold(filepath.Ext(f), ext) {
				return true
			}
		}
		return false
	}
}

// listFiles returns a bounded, non-recursive directory listing used only
// for extension-sniffing indicators; the extractors do the real walk.
func listFiles(root string) []string {
	entries, err := os.ReadDir(root)
	if err != nil {
		return nil
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if !e.IsDir() {
			names = append(names, e.Name())
		}
	}
	return names
}
