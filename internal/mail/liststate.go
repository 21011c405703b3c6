package mail

import "sync"

// ListState is the message list last shown to one session. Every fetch
// takes a generation from Begin; only the fetch holding the latest
// generation may Commit, so a slow response for a folder the user already
// left never overwrites the newer list.
type ListState struct {
	mu         sync.Mutex
	generation uint64
	folder     Folder
	items      []Mail
	marking    map[UID]bool
}

// Begin starts a fetch and returns its generation.
func (s *ListState) Begin() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.generation++
	return s.generation
}

// Commit stores the result of fetch gen. It reports false, leaving the
// state untouched, when a newer fetch has begun since.
func (s *ListState) Commit(gen uint64, folder Folder, items []Mail) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if gen != s.generation {
		return false
	}
	s.folder = folder
	s.items = append([]Mail(nil), items...)
	return true
}

// Folder returns the folder of the committed list.
func (s *ListState) Folder() Folder {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.folder
}

// Snapshot returns a copy of the committed list.
func (s *ListState) Snapshot() (Folder, []Mail) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.folder, append([]Mail(nil), s.items...)
}

// Find returns the committed message with the given uid.
func (s *ListState) Find(uid UID) (Mail, Folder, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, m := range s.items {
		if m.UID == uid {
			return m, s.folder, true
		}
	}
	return Mail{}, s.folder, false
}

// MarkRead flips the read state of exactly one message.
func (s *ListState) MarkRead(uid UID) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.markReadLocked(uid)
}

func (s *ListState) markReadLocked(uid UID) bool {
	for i := range s.items {
		if s.items[i].UID == uid {
			s.items[i].MarkRead()
			return true
		}
	}
	return false
}

// BeginMarkRead claims the mark-as-read call for uid. It reports true only
// for an unread message no other caller is already marking. Every true
// result must be followed by FinishMarkRead.
func (s *ListState) BeginMarkRead(uid UID) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.marking[uid] {
		return false
	}
	for i := range s.items {
		if s.items[i].UID == uid {
			if !s.items[i].IsUnread() {
				return false
			}
			if s.marking == nil {
				s.marking = make(map[UID]bool)
			}
			s.marking[uid] = true
			return true
		}
	}
	return false
}

// FinishMarkRead releases the claim on uid. When ok the message is marked
// read; otherwise it stays unread so a later open tries again.
func (s *ListState) FinishMarkRead(uid UID, ok bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.marking, uid)
	if ok {
		s.markReadLocked(uid)
	}
}
