// Package rubyparser parses Vagrantfiles with regular expressions that
// recognize the handful of config.vm.* calls that matter for
// dependency extraction; a full Ruby grammar would be overkill for
// this one file shape.
package rubyparser

import (
	"fmt"
	"os"
	"regexp"
)

var (
	boxRe       = regexp.MustCompile(`config\.vm\.box\s*=\s*["']([^"']+)["']`)
	networkRe   = regexp.MustCompile(`config\.vm\.network\s+["']([^"']+)["']`)
	provisionRe = regexp.MustCompile(`config\.vm\.provision\s+["']([^"']+)["']`)
	hostnameRe  = regexp.MustCompile(`config\.vm\.hostname\s*=\s*["']([^"']+)["']`)
)

// Vagrantfile is the regex-derived root a rubyparser.Parse result
// carries.
type Vagrantfile struct {
	Box          string
	Hostname     string
	Networks     []string
	Provisioners []string
}

// Parse reads a Vagrantfile and extracts box, hostname, network, and
// provisioner declarations.
func Parse(path string) (*Vagrantfile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("rubyparser: read %s: %w", path, err)
	}
	text := string(data)

	v := &Vagrantfile{}
	if m := boxRe.FindStringSubmatch(text); m != nil {
		v.Box = m[1]
	}
	if m := hostnameRe.FindStringSubmatch(text); m != nil {
		v.Hostname = m[1]
	}
	for _, m := range networkRe.FindAllStringSubmatch(text, -1) {
		v.Networks = append(v.Networks, m[1])
	}
	for _, m := range provisionRe.FindAllStringSubmatch(text, -1) {
		v.Provisioners = append(v.Provisioners, m[1])
	}
	return v, nil
}
