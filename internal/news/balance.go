package news

import "strings"

// BalanceOptions bounds the per-group and total quotas of a balanced
// selection.
type BalanceOptions struct {
	PerGroup int
	Total    int
}

// BalanceArticles selects up to opts.Total articles, round-robining across
// the groups so that no group contributes more than opts.PerGroup before the
// remaining slots are filled by pure recency. Queue assignment matches the
// group's display name against Mentions case-insensitively; articles whose
// mentions carry only member or alias variants surface via the recency fill.
// The result never repeats a link.
func BalanceArticles(articles []Article, groups []Group, opts BalanceOptions) []Article {
	perGroup := opts.PerGroup
	if perGroup <= 0 {
		perGroup = 2
	}
	total := opts.Total
	if total <= 0 {
		total = 6
	}
	if len(articles) == 0 || len(groups) == 0 {
		return nil
	}

	sorted := make([]Article, len(articles))
	copy(sorted, articles)
	SortByPubDate(sorted)

	queues := make([][]Article, len(groups))
	for i, g := range groups {
		want := strings.ToLower(g.Name)
		for _, art := range sorted {
			for _, m := range art.Mentions {
				if strings.ToLower(m) == want {
					queues[i] = append(queues[i], art)
					break
				}
			}
		}
	}

	assigned := make(map[string]struct{})
	counts := make([]int, len(groups))
	results := make([]Article, 0, total)

	// Round-robin in input order; a full pass with no progress ends the loop.
	for progress := true; progress && len(results) < total; {
		progress = false
		for i := range groups {
			if len(results) >= total {
				break
			}
			if counts[i] >= perGroup {
				continue
			}
			for len(queues[i]) > 0 {
				art := queues[i][0]
				queues[i] = queues[i][1:]
				if art.Link == "" {
					continue
				}
				if _, dup := assigned[art.Link]; dup {
					continue
				}
				assigned[art.Link] = struct{}{}
				results = append(results, art)
				counts[i]++
				progress = true
				break
			}
		}
	}

	// Fill remaining slots by recency, ignoring quotas.
	for _, art := range sorted {
		if len(results) >= total {
			break
		}
		if art.Link == "" {
			continue
		}
		if _, dup := assigned[art.Link]; dup {
			continue
		}
		assigned[art.Link] = struct{}{}
		results = append(results, art)
	}

	return results
}
