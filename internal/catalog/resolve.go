package catalog

// BestAvailable selects the single winning score among all published rows
// for one (model, benchmark) pair. The rule is total: given at least one
// row it always yields exactly one winner.
//
// Priority order: provider/paper beat aggregator beat unknown; within a
// tier the newest publish date wins (rows without a publish date sort
// last); remaining ties fall to the newest ingestion date, then to the
// highest row id so byte-identical duplicates still resolve
// deterministically.
func BestAvailable(scores []Score) *Score {
	if len(scores) == 0 {
		return nil
	}
	best := scores[0]
	for _, s := range scores[1:] {
		if beats(s, best) {
			best = s
		}
	}
	return &best
}

func beats(a, b Score) bool {
	ra, rb := sourceRank[a.SourceType], sourceRank[b.SourceType]
	if ra != rb {
		return ra > rb
	}
	switch {
	case a.PublishedAt != nil && b.PublishedAt == nil:
		return true
	case a.PublishedAt == nil && b.PublishedAt != nil:
		return false
	case a.PublishedAt != nil && b.PublishedAt != nil && !a.PublishedAt.Equal(*b.PublishedAt):
		return a.PublishedAt.After(*b.PublishedAt)
	}
	if !a.IngestedAt.Equal(b.IngestedAt) {
		return a.IngestedAt.After(b.IngestedAt)
	}
	return a.ID > b.ID
}
