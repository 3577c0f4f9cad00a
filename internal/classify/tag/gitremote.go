package tag

import (
	"sort"
	"strings"

	"github.com/go-git/go-git/v5"
	giturls "github.com/whilp/git-urls"
)

const gitHostConfidence = 0.72

// gitRemoteHosts reads the remotes recorded in the project's local git
// config and returns the known hosting services they point at. Nothing is
// fetched.
func gitRemoteHosts(root string) []string {
	repo, err := git.PlainOpen(root)
	if err != nil {
		return nil
	}
	remotes, err := repo.Remotes()
	if err != nil {
		return nil
	}

	seen := make(map[string]bool)
	for _, remote := range remotes {
		for _, raw := range remote.Config().URLs {
			u, err := giturls.Parse(raw)
			if err != nil {
				continue
			}
			if host, ok := gitHosts[strings.ToLower(u.Hostname())]; ok {
				seen[host] = true
			}
		}
	}

	hosts := make([]string, 0, len(seen))
	for h := range seen {
		hosts = append(hosts, h)
	}
	sort.Strings(hosts)
	return hosts
}
