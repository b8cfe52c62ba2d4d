package game

// Player represents one seat in a session.
type Player struct {
	ID    string
	Name  string
	Score int
	Send  chan []byte // reference to the client's send channel
}

// NewPlayer creates a new Player with the given identity and send channel.
func NewPlayer(id, name string, send chan []byte) *Player {
	return &Player{
		ID:   id,
		Name: name,
		Send: send,
	}
}
