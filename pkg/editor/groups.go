package editor

import (
	"fmt"
	"sort"

	"github.com/dtnitsch/layout-editor/models"
)

// Group is a set of boxes read as one unit. It has no geometry of its own;
// BBox is the union of its members.
type Group struct {
	ID      GroupID     `json:"id"`
	Members []BoxID     `json:"members"`
	BBox    models.BBox `json:"bbox"`
}

// Group puts the given boxes into a new group. Boxes already in another group
// leave it first, and a group that drops below two members is dissolved.
// At least two distinct known ids are required.
func (s *Session) Group(ids []BoxID) (GroupID, error) {
	var members []BoxID
	seen := make(map[BoxID]bool, len(ids))
	for _, id := range ids {
		if _, ok := s.boxes[id]; !ok {
			return "", fmt.Errorf("%w: group names unknown box %q", ErrInvalidInput, id)
		}
		if seen[id] {
			continue
		}
		seen[id] = true
		members = append(members, id)
	}
	if len(members) < 2 {
		return "", fmt.Errorf("%w: a group needs at least 2 boxes, got %d", ErrInvalidInput, len(members))
	}

	for _, id := range members {
		if g := s.boxes[id].group; g != "" {
			s.removeMember(g, id)
		}
	}
	s.dissolveSmallGroups()

	gid := s.addGroup(members)
	s.dirty = true
	return gid, nil
}

// Ungroup dissolves a group; its members become ungrouped. Unknown ids are
// ignored.
func (s *Session) Ungroup(id GroupID) bool {
	if _, ok := s.groups[id]; !ok {
		return false
	}
	s.dissolve(id)
	s.dirty = true
	return true
}

// Groups returns every group with members in reading order, ordered by the
// position of each group's first member.
func (s *Session) Groups() []Group {
	pos := s.position()
	out := make([]Group, 0, len(s.groups))
	for id := range s.groups {
		g, _ := s.groupView(id)
		out = append(out, g)
	}
	sort.Slice(out, func(i, j int) bool {
		return pos[out[i].Members[0]] < pos[out[j].Members[0]]
	})
	return out
}

// GroupBounds returns the bounding union of a group's members.
func (s *Session) GroupBounds(id GroupID) (models.BBox, bool) {
	g, ok := s.groupView(id)
	if !ok {
		return models.BBox{}, false
	}
	return g.BBox, true
}

func (s *Session) groupView(id GroupID) (Group, bool) {
	members, ok := s.groups[id]
	if !ok || len(members) == 0 {
		return Group{}, false
	}
	sorted := append([]BoxID(nil), members...)
	s.sortByOrder(sorted)

	bounds := s.boxes[sorted[0]].box.BBox
	for _, m := range sorted[1:] {
		bounds = bounds.Union(s.boxes[m].box.BBox)
	}
	return Group{ID: id, Members: sorted, BBox: bounds}, true
}

func (s *Session) addGroup(members []BoxID) GroupID {
	var id GroupID
	for {
		s.nextGroup++
		id = GroupID(fmt.Sprintf("g%d", s.nextGroup))
		if _, taken := s.groups[id]; !taken {
			break
		}
	}
	s.groups[id] = append([]BoxID(nil), members...)
	for _, m := range members {
		s.boxes[m].group = id
	}
	return id
}

func (s *Session) removeMember(gid GroupID, id BoxID) {
	members := s.groups[gid]
	for i, m := range members {
		if m == id {
			s.groups[gid] = append(members[:i:i], members[i+1:]...)
			break
		}
	}
	if e, ok := s.boxes[id]; ok {
		e.group = ""
	}
}

func (s *Session) dissolve(gid GroupID) {
	for _, m := range s.groups[gid] {
		if e, ok := s.boxes[m]; ok {
			e.group = ""
		}
	}
	delete(s.groups, gid)
}

func (s *Session) dissolveSmallGroups() {
	for gid, members := range s.groups {
		if len(members) < 2 {
			s.dissolve(gid)
		}
	}
}

// groupIndexes returns the groups as reading-order indexes, for persistence.
func (s *Session) groupIndexes() [][]int {
	pos := s.position()
	groups := s.Groups()
	out := make([][]int, 0, len(groups))
	for _, g := range groups {
		idx := make([]int, len(g.Members))
		for i, m := range g.Members {
			idx[i] = pos[m]
		}
		out = append(out, idx)
	}
	return out
}
