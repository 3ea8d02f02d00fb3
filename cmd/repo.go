package cmd

import (
	"fmt"
	"os/exec"
	"strings"
)

// detectRepository infers owner/name from the local git remote when no
// --repository flag is given.
func detectRepository(domain string) (string, string, error) {
	out, err := exec.Command("git", "remote", "get-url", "origin").Output()
	if err != nil {
		return "", "", fmt.Errorf("could not detect repository from git remote: %w", err)
	}
	return parseRemoteURL(strings.TrimSpace(string(out)), domain)
}

// parseRemoteURL extracts owner/name from an SSH or HTTPS remote URL for the
// given GitHub domain.
func parseRemoteURL(url, domain string) (string, string, error) {
	var path string
	switch {
	case strings.HasPrefix(url, "git@"+domain+":"):
		path = strings.TrimPrefix(url, "git@"+domain+":")
	case strings.HasPrefix(url, "https://"+domain+"/"):
		path = strings.TrimPrefix(url, "https://"+domain+"/")
	default:
		return "", "", fmt.Errorf("unsupported remote URL format: %s", url)
	}

	path = strings.TrimSuffix(path, ".git")
	parts := strings.Split(path, "/")
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", fmt.Errorf("invalid repository path: %s", path)
	}
	return parts[0], parts[1], nil
}
