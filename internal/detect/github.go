package detect

import (
	"context"
	"strings"

	"github.com/google/go-github/v57/github"
)

// DetectRemote classifies a GitHub-hosted repository that has not been
// cloned yet, by listing its root tree through the API and scoring the
// same indicator names the local detector uses. Useful for deciding a
// profile before paying for a clone.
func DetectRemote(ctx context.Context, client *github.Client, owner, repo string) (Result, error) {
	_, contents, _, err := client.Repositories.GetContents(ctx, owner, repo, "", nil)
	if err != nil {
		return Result{}, err
	}

	names := map[string]bool{}
	pyFiles := false
	for _, c := range contents {
		name := c.GetName()
		names[name] = true
		if strings.HasSuffix(name, ".py") {
			pyFiles = true
		}
	}

	best := Result{}
	score := func(profile string, target int, hits []string) {
		if len(hits) == 0 {
			return
		}
		confidence := float64(len(hits)) / float64(target)
		if confidence > 1.0 {
			confidence = 1.0
		}
		if confidence > best.Confidence {
			best = Result{Profile: profile, Confidence: confidence, Indicators: hits}
		}
	}

	var ansibleHits []string
	if names["ansible.cfg"] {
		ansibleHits = append(ansibleHits, "ansible.cfg present")
	}
	if names["site.yml"] || names["playbook.yml"] || names["playbooks"] {
		ansibleHits = append(ansibleHits, "playbook.yml or site.yml present")
	}
	if names["roles"] {
		ansibleHits = append(ansibleHits, "roles/ directory present")
	}
	if names["requirements.yml"] {
		ansibleHits = append(ansibleHits, "requirements.yml present")
	}
	score("ansible", 3, ansibleHits)

	var pythonHits []string
	if names["pyproject.toml"] {
		pythonHits = append(pythonHits, "pyproject.toml present")
	}
	if names["setup.py"] {
		pythonHits = append(pythonHits, "setup.py present")
	}
	if names["requirements.txt"] {
		pythonHits = append(pythonHits, "requirements.txt present")
	}
	if pyFiles {
		pythonHits = append(pythonHits, ".py files present")
	}
	score("python", 2, pythonHits)

	if best.Profile == "" {
		return Result{Profile: "generic", Confidence: 0.5}, nil
	}
	return best, nil
}
