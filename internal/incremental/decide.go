package incremental

import (
	"sort"

	"git.home.luguber.info/inful/sitegraph/internal/config"
	"git.home.luguber.info/inful/sitegraph/internal/logfields"
	"git.home.luguber.info/inful/sitegraph/internal/util/sets"
)

// Kind is the requested build kind.
type Kind int

const (
	Incremental Kind = iota
	Full
)

// Reason explains why a decision forces a full rebuild.
type Reason string

const (
	ReasonNone           Reason = ""
	ReasonNoCache        Reason = "no_cache"
	ReasonRequestedFull  Reason = "requested_full"
	ReasonConfigChanged  Reason = "config_changed"
	ReasonLayoutsChanged Reason = "layouts_changed"
	ReasonDeleted        Reason = "deleted"
)

// Request is the input to Decide.
type Request struct {
	Kind Kind
	// Candidates are absolute source paths from the current listing.
	Candidates []string
	// Changed is an optional hint of changed sources (absolute paths or
	// record keys). nil means no hint.
	Changed     sets.Set[string]
	ConfigHash  string
	LayoutsHash string
	Policy      config.ChangedSetPolicy
}

// Decision partitions candidates into hits and misses.
type Decision struct {
	Hits      []string
	Misses    []string
	ForceFull bool
	Reason    Reason
	// Deleted lists record keys no longer present in the listing.
	Deleted []string
	// Hashes holds the current hash of every candidate that could be read,
	// keyed by record key; it feeds Update after the build.
	Hashes map[string]string
}

// Decide compares candidates against the persisted record. The config hash
// is checked first, then the layouts hash, then deletions, then per-file
// content hashes.
func (c *Cache) Decide(req Request) Decision {
	d := Decision{Hashes: make(map[string]string, len(req.Candidates))}

	switch {
	case req.Kind == Full:
		return c.forceFull(d, req, ReasonRequestedFull)
	case c.record == nil:
		return c.forceFull(d, req, ReasonNoCache)
	case c.record.ConfigHash != req.ConfigHash:
		return c.forceFull(d, req, ReasonConfigChanged)
	case c.record.LayoutsHash != req.LayoutsHash:
		return c.forceFull(d, req, ReasonLayoutsChanged)
	}

	listed := make(sets.Set[string], len(req.Candidates))
	for _, cand := range req.Candidates {
		listed.Add(c.Key(cand))
	}
	for key := range c.record.FileHashes {
		if !listed.Has(key) {
			d.Deleted = append(d.Deleted, key)
		}
	}
	if len(d.Deleted) > 0 {
		sort.Strings(d.Deleted)
		return c.forceFull(d, req, ReasonDeleted)
	}

	trustHint := req.Changed != nil && req.Policy != config.PolicyVerify
	for _, cand := range req.Candidates {
		key := c.Key(cand)
		stored, known := c.record.FileHashes[key]

		if trustHint && known && !req.Changed.Has(cand) && !req.Changed.Has(key) {
			d.Hashes[key] = stored
			d.Hits = append(d.Hits, cand)
			continue
		}

		sum, err := HashFile(cand)
		if err != nil {
			c.logger.Debug("Source unreadable, treating as miss", logfields.Path(cand), logfields.Error(err))
			d.Misses = append(d.Misses, cand)
			continue
		}
		d.Hashes[key] = sum
		if known && sum == stored {
			d.Hits = append(d.Hits, cand)
		} else {
			d.Misses = append(d.Misses, cand)
		}
	}

	c.logger.Debug("Cache decision",
		logfields.CacheHits(len(d.Hits)),
		logfields.CacheMisses(len(d.Misses)))
	return d
}

func (c *Cache) forceFull(d Decision, req Request, reason Reason) Decision {
	d.ForceFull = true
	d.Reason = reason
	d.Hits = nil
	d.Misses = append([]string(nil), req.Candidates...)
	for _, cand := range req.Candidates {
		sum, err := HashFile(cand)
		if err != nil {
			continue
		}
		d.Hashes[c.Key(cand)] = sum
	}
	c.logger.Info("Full rebuild required", logfields.Reason(string(reason)), logfields.Count(len(req.Candidates)))
	return d
}
