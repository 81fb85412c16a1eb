package telegram

import "sync"

// chatState tracks chats with an analysis in flight, so one chat cannot queue up model calls.
type chatState struct {
	busy sync.Map // chatID -> struct{}
}

func (s *chatState) begin(chatID int64) bool {
	_, loaded := s.busy.LoadOrStore(chatID, struct{}{})
	return !loaded
}

func (s *chatState) end(chatID int64) { s.busy.Delete(chatID) }
