// Package community detects topical communities in the entity graph by
// greedy modularity optimization. Detection is deterministic: nodes are
// visited in ascending id order and ties prefer the lowest community,
// so equal inputs always produce equal partitions.
package community

import (
	"fmt"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/graphweave/graphweave/pkg/common"
	"github.com/graphweave/graphweave/pkg/graph"
)

// Config tunes the detection loop. Zero values select the defaults.
type Config struct {
	// Resolution controls community granularity; higher values produce
	// more, smaller communities.
	Resolution float64

	// MaxIterations bounds the local-moving passes.
	MaxIterations int

	// MinDelta is the minimum modularity improvement for a node move.
	MinDelta float64
}

func DefaultConfig() Config {
	return Config{
		Resolution:    1.0,
		MaxIterations: 10,
		MinDelta:      1e-7,
	}
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.Resolution <= 0 {
		c.Resolution = d.Resolution
	}
	if c.MaxIterations <= 0 {
		c.MaxIterations = d.MaxIterations
	}
	if c.MinDelta <= 0 {
		c.MinDelta = d.MinDelta
	}
	return c
}

// Detector partitions entities into communities.
type Detector struct {
	cfg Config
}

func NewDetector(cfg Config) *Detector {
	return &Detector{cfg: cfg.withDefaults()}
}

// Detect partitions the given entities using the weighted edge list.
// Every entity lands in exactly one community; with no edges each
// entity forms a singleton. Group members are sorted ascending by id
// and groups are ordered by their lowest member id.
func (d *Detector) Detect(entities []common.Entity, edges []graph.Edge) [][]uint64 {
	if len(entities) == 0 {
		return nil
	}

	ids := make([]uint64, len(entities))
	for i, e := range entities {
		ids[i] = e.ID
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	known := make(map[uint64]bool, len(ids))
	for _, id := range ids {
		known[id] = true
	}

	adj := make(map[uint64]map[uint64]float64, len(ids))
	strength := make(map[uint64]float64, len(ids))
	totalWeight := 0.0
	for _, e := range edges {
		if !known[e.A] || !known[e.B] || e.A == e.B || e.Weight <= 0 {
			continue
		}
		if adj[e.A] == nil {
			adj[e.A] = make(map[uint64]float64)
		}
		if adj[e.B] == nil {
			adj[e.B] = make(map[uint64]float64)
		}
		adj[e.A][e.B] += e.Weight
		adj[e.B][e.A] += e.Weight
		strength[e.A] += e.Weight
		strength[e.B] += e.Weight
		totalWeight += e.Weight
	}

	nodeToComm := make(map[uint64]int, len(ids))
	commNodes := make(map[int][]uint64, len(ids))
	for i, id := range ids {
		nodeToComm[id] = i
		commNodes[i] = []uint64{id}
	}

	if totalWeight > 0 {
		d.localMoving(ids, adj, strength, totalWeight, nodeToComm, commNodes)
	}

	groups := make([][]uint64, 0, len(commNodes))
	for _, nodes := range commNodes {
		if len(nodes) == 0 {
			continue
		}
		sorted := make([]uint64, len(nodes))
		copy(sorted, nodes)
		sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })
		groups = append(groups, sorted)
	}
	sort.Slice(groups, func(i, j int) bool { return groups[i][0] < groups[j][0] })
	return groups
}

func (d *Detector) localMoving(
	ids []uint64,
	adj map[uint64]map[uint64]float64,
	strength map[uint64]float64,
	totalWeight float64,
	nodeToComm map[uint64]int,
	commNodes map[int][]uint64,
) {
	m2 := 2 * totalWeight

	for iter := 0; iter < d.cfg.MaxIterations; iter++ {
		improved := false

		for _, nodeID := range ids {
			currentComm := nodeToComm[nodeID]

			candidates := make([]int, 0, len(adj[nodeID]))
			seen := map[int]bool{currentComm: true}
			for neighborID := range adj[nodeID] {
				comm := nodeToComm[neighborID]
				if !seen[comm] {
					seen[comm] = true
					candidates = append(candidates, comm)
				}
			}
			sort.Ints(candidates)

			bestComm := currentComm
			bestDelta := 0.0
			ki := strength[nodeID]

			for _, comm := range candidates {
				kiIn := 0.0
				for _, nid := range commNodes[comm] {
					kiIn += adj[nodeID][nid]
				}

				kiOut := 0.0
				sigmaOut := 0.0
				for _, nid := range commNodes[currentComm] {
					if nid == nodeID {
						continue
					}
					kiOut += adj[nodeID][nid]
					sigmaOut += strength[nid]
				}

				sigmaIn := 0.0
				for _, nid := range commNodes[comm] {
					sigmaIn += strength[nid]
				}

				delta := (kiIn - kiOut) / m2
				delta -= d.cfg.Resolution * ki * (sigmaIn - sigmaOut) / (m2 * m2)

				// Strict improvement keeps the lowest candidate on ties.
				if delta > bestDelta {
					bestDelta = delta
					bestComm = comm
				}
			}

			if bestDelta > d.cfg.MinDelta && bestComm != currentComm {
				old := commNodes[currentComm]
				for i, nid := range old {
					if nid == nodeID {
						commNodes[currentComm] = append(old[:i], old[i+1:]...)
						break
					}
				}
				commNodes[bestComm] = append(commNodes[bestComm], nodeID)
				nodeToComm[nodeID] = bestComm
				improved = true
			}
		}

		if !improved {
			break
		}
	}
}

const (
	titleMembers    = 3
	summaryMembers  = 3
	summaryFragment = 120
)

// Summarize materializes detected groups as communities with ids
// renumbered from 1 in group order. Embeddings are left empty for the
// caller to fill from the summaries.
func Summarize(entities []common.Entity, groups [][]uint64) []common.Community {
	byID := make(map[uint64]common.Entity, len(entities))
	for _, e := range entities {
		byID[e.ID] = e
	}

	out := make([]common.Community, 0, len(groups))
	for i, group := range groups {
		titles := make([]string, 0, titleMembers)
		fragments := make([]string, 0, summaryMembers)
		for _, id := range group {
			e, ok := byID[id]
			if !ok {
				continue
			}
			if len(titles) < titleMembers {
				titles = append(titles, e.Title)
			}
			if len(fragments) < summaryMembers && e.Description != "" {
				fragments = append(fragments, truncateRunes(e.Description, summaryFragment))
			}
		}

		summary := fmt.Sprintf("Community of %d entities: %s.", len(group), strings.Join(titles, ", "))
		if len(fragments) > 0 {
			summary += " " + strings.Join(fragments, " ")
		}

		out = append(out, common.Community{
			ID:        uint64(i + 1),
			Title:     strings.Join(titles, ", "),
			Summary:   summary,
			Size:      len(group),
			EntityIDs: group,
		})
	}
	return out
}

// truncateRunes bounds s to at most max bytes without splitting a rune.
func truncateRunes(s string, max int) string {
	if len(s) <= max {
		return s
	}
	cut := max
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut]
}
