package runner

// notifySet is the notification queue: insertion-ordered and duplicate-
// suppressing. A handler name enters at most once per run, at the position
// of its first notification, which gives the "at most once, first-notified
// order" guarantee directly from the container.
type notifySet struct {
	names []string
	seen  map[string]struct{}
}

func newNotifySet() *notifySet {
	return &notifySet{seen: make(map[string]struct{})}
}

// Add appends name unless it is already present. It reports whether the
// name was newly added.
func (s *notifySet) Add(name string) bool {
	if _, ok := s.seen[name]; ok {
		return false
	}
	s.seen[name] = struct{}{}
	s.names = append(s.names, name)
	return true
}

func (s *notifySet) Len() int { return len(s.names) }

func (s *notifySet) At(i int) string { return s.names[i] }
