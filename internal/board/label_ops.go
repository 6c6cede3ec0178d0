package board

import "slices"

// AddLabel appends a label to the registry.
func (s *Store) AddLabel(name, color string) *State {
	s.mu.Lock()
	defer s.mu.Unlock()

	cur := s.state
	l := Label{ID: s.newID(), Name: name, Color: color}
	next := &State{
		Data:           cur.Data,
		Labels:         append(cloneSlice(cur.Labels), l),
		CurrentBoardID: cur.CurrentBoardID,
	}
	return s.commit("addLabel", l.ID, next, false, true)
}

func (s *Store) UpdateLabel(labelID, name, color string) *State {
	s.mu.Lock()
	defer s.mu.Unlock()

	cur := s.state
	i := slices.IndexFunc(cur.Labels, func(l Label) bool { return l.ID == labelID })
	if i < 0 {
		return s.ignore("updateLabel", labelID)
	}
	labels := cloneSlice(cur.Labels)
	labels[i].Name = name
	labels[i].Color = color
	next := &State{
		Data:           cur.Data,
		Labels:         labels,
		CurrentBoardID: cur.CurrentBoardID,
	}
	return s.commit("updateLabel", labelID, next, false, true)
}

// DeleteLabel removes the label from the registry and strips its id from
// every task in the document. Tasks themselves are kept.
func (s *Store) DeleteLabel(labelID string) *State {
	s.mu.Lock()
	defer s.mu.Unlock()

	cur := s.state
	labels := slices.DeleteFunc(cloneSlice(cur.Labels), func(l Label) bool { return l.ID == labelID })
	labelsChanged := len(labels) != len(cur.Labels)

	var tasks map[string]*Task
	for id, t := range cur.Data.Tasks {
		if !t.HasLabel(labelID) {
			continue
		}
		if tasks == nil {
			tasks = cloneMap(cur.Data.Tasks)
		}
		nt := *t
		nt.Labels = removeValue(t.Labels, labelID)
		tasks[id] = &nt
	}
	dataChanged := tasks != nil

	if !labelsChanged && !dataChanged {
		return s.ignore("deleteLabel", labelID)
	}

	next := &State{
		Data:           cur.Data,
		Labels:         cur.Labels,
		CurrentBoardID: cur.CurrentBoardID,
	}
	if labelsChanged {
		next.Labels = labels
	}
	if dataChanged {
		d := *cur.Data
		d.Tasks = tasks
		next.Data = &d
	}
	return s.commit("deleteLabel", labelID, next, dataChanged, labelsChanged)
}
