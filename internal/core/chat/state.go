package chat

// state is everything the coordinator owns about the active session
type state struct {
	sessionID string
	epoch     uint64 // Bumped on every activation

	// historyMaterialized is set once history has been rendered, either from
	// the REST fetch or from a chat_history replay. While set, replays are
	// ignored.
	historyMaterialized bool
}

// activation identifies one startup, create or switch. Work that awaited
// something must check it is still current before touching state or display.
type activation struct {
	sessionID string
	epoch     uint64
}

func (s *state) begin(sessionID string) activation {
	s.epoch++
	s.sessionID = sessionID
	s.historyMaterialized = false
	return activation{sessionID: sessionID, epoch: s.epoch}
}

func (s *state) current(act activation) bool {
	return act.epoch == s.epoch && act.sessionID == s.sessionID
}
