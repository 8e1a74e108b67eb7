package version

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"
)

// Version is stamped at build time with -ldflags "-X jarsentry/version.Version=...".
var Version = "dev"

const releaseURL = "https://api.github.com/repos/jarsentry/jarsentry/releases/latest"

type Release struct {
	Latest string
	Notes  string
	Newer  bool
}

type releaseInfo struct {
	TagName string `json:"tag_name"`
	Body    string `json:"body"`
}

// CheckLatest asks the release feed whether a version newer than current
// has been published.
func CheckLatest(ctx context.Context, current string) (Release, error) {
	return checkURL(ctx, current, releaseURL)
}

func checkURL(ctx context.Context, current, url string) (Release, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return Release{}, err
	}
	req.Header.Set("Accept", "application/vnd.github+json")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return Release{}, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return Release{}, fmt.Errorf("unexpected status: %s", resp.Status)
	}
	var info releaseInfo
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		return Release{}, err
	}
	rel := Release{Latest: strings.TrimPrefix(info.TagName, "v")}
	if Compare(rel.Latest, strings.TrimPrefix(current, "v")) > 0 {
		rel.Newer = true
		rel.Notes = info.Body
	}
	return rel, nil
}

// Compare orders dotted numeric versions. Non-numeric parts compare as
// zero, so "dev" sorts below every release.
func Compare(a, b string) int {
	as, bs := strings.Split(a, "."), strings.Split(b, ".")
	for i := 0; i < len(as) || i < len(bs); i++ {
		x, y := part(as, i), part(bs, i)
		switch {
		case x < y:
			return -1
		case x > y:
			return 1
		}
	}
	return 0
}

func part(parts []string, i int) int {
	if i >= len(parts) {
		return 0
	}
	s := parts[i]
	if j := strings.IndexAny(s, "-+"); j >= 0 {
		s = s[:j]
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0
	}
	return n
}
