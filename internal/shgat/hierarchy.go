package shgat

// color tracks DFS visitation state for cycle-safe level computation
// (spec 4.1: unvisited, on-stack, done).
type color int

const (
	colorWhite color = iota // unvisited
	colorGray                // on-stack
	colorBlack               // done
)

// levelFrame is one DFS stack frame: the capability being visited, how many
// of its capability-kind members have been processed so far, and one more
// than the running max level among already-processed members.
type levelFrame struct {
	id            string
	members       []string
	memberIdx     int
	maxChildLevel int
}

// computeLevels assigns each capability its hierarchy level via an iterative
// (explicit-stack) depth-first visit with three-color marking, per spec 4.1.
// It returns the level map, the level -> ordered-capability-ids map (stable,
// insertion order within a level), and the maximum level. On detecting a
// cycle it returns a *HierarchyCycleError and no partial state: the caller
// (graphStore.rebuildHierarchy) only commits the result on a nil error.
func computeLevels(capabilities []*Capability) (map[string]int, map[int][]string, int, error) {
	color := make(map[string]color, len(capabilities))
	level := make(map[string]int, len(capabilities))
	byID := make(map[string]*Capability, len(capabilities))
	for _, c := range capabilities {
		byID[c.ID] = c
	}

	maxLevel := 0

	for _, root := range capabilities {
		if color[root.ID] != colorWhite {
			continue
		}
		stack := []*levelFrame{{id: root.ID, members: byID[root.ID].capabilityMembers()}}
		color[root.ID] = colorGray

		for len(stack) > 0 {
			top := stack[len(stack)-1]

			if top.memberIdx >= len(top.members) {
				lvl := 0
				if len(top.members) > 0 {
					lvl = top.maxChildLevel
				}
				level[top.id] = lvl
				color[top.id] = colorBlack
				if lvl > maxLevel {
					maxLevel = lvl
				}
				stack = stack[:len(stack)-1]
				if len(stack) > 0 {
					parent := stack[len(stack)-1]
					childLevel := lvl + 1
					if childLevel > parent.maxChildLevel {
						parent.maxChildLevel = childLevel
					}
				}
				continue
			}

			m := top.members[top.memberIdx]
			top.memberIdx++

			switch color[m] {
			case colorBlack:
				childLevel := level[m] + 1
				if childLevel > top.maxChildLevel {
					top.maxChildLevel = childLevel
				}
			case colorGray:
				path := make([]string, 0, len(stack)+1)
				found := false
				for _, fr := range stack {
					if fr.id == m {
						found = true
					}
					if found {
						path = append(path, fr.id)
					}
				}
				path = append(path, m)
				return nil, nil, 0, &HierarchyCycleError{Path: path}
			case colorWhite:
				color[m] = colorGray
				stack = append(stack, &levelFrame{id: m, members: byID[m].capabilityMembers()})
			}
		}
	}

	byLevel := make(map[int][]string)
	for _, c := range capabilities {
		l := level[c.ID]
		byLevel[l] = append(byLevel[l], c.ID)
	}
	return level, byLevel, maxLevel, nil
}
