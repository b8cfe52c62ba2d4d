package lobby

import (
	"errors"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"

	"pairs-server/config"
	"pairs-server/content"
	"pairs-server/gameerrors"
	"pairs-server/protocol"
)

func testLobby() *Lobby {
	return New(config.Defaults(), content.DefaultPool(), clockwork.NewRealClock())
}

func expectType(t *testing.T, ch chan []byte, want string) protocol.ServerMessage {
	t.Helper()
	select {
	case data := <-ch:
		msg, err := protocol.DecodeServer(data)
		if err != nil {
			t.Fatalf("undecodable message: %v", err)
		}
		return msg
	case <-time.After(2 * time.Second):
		t.Fatalf("timed out waiting for %s", want)
	}
	return nil
}

func TestJoinCreatesWaitingSession(t *testing.T) {
	l := testLobby()

	s, started, err := l.Join("p1", "Alice", 4, make(chan []byte, 32))
	if err != nil {
		t.Fatalf("Join failed: %v", err)
	}
	if started {
		t.Error("first join must not start a session")
	}
	if s == nil {
		t.Fatal("expected a session")
	}
	if l.Count() != 1 {
		t.Errorf("expected 1 tracked session, got %d", l.Count())
	}

	payload := s.Payload()
	if payload.State != "waiting" {
		t.Errorf("expected waiting state, got %q", payload.State)
	}
	if payload.CardOrder != nil {
		t.Error("waiting session must not expose a deck")
	}
}

func TestJoinPairsSameGridSize(t *testing.T) {
	l := testLobby()
	send1 := make(chan []byte, 32)
	send2 := make(chan []byte, 32)

	s1, _, err := l.Join("p1", "Alice", 4, send1)
	if err != nil {
		t.Fatalf("first join failed: %v", err)
	}
	s2, started, err := l.Join("p2", "Bob", 4, send2)
	if err != nil {
		t.Fatalf("second join failed: %v", err)
	}
	if !started {
		t.Fatal("second join must start the session")
	}
	if s1.ID != s2.ID {
		t.Errorf("joins landed in different sessions: %s vs %s", s1.ID, s2.ID)
	}

	for _, ch := range []chan []byte{send1, send2} {
		msg := expectType(t, ch, protocol.TypeGameStart)
		start, ok := msg.(protocol.GameStart)
		if !ok {
			t.Fatalf("expected GameStart, got %T", msg)
		}
		if start.Game.CurrentTurnPlayerID != "p1" {
			t.Errorf("first joiner should start, got %q", start.Game.CurrentTurnPlayerID)
		}
		if len(start.Game.CardOrder) != 16 {
			t.Errorf("expected 16 card_order entries, got %d", len(start.Game.CardOrder))
		}
	}

	// A third joiner opens a fresh waiting session.
	s3, started, err := l.Join("p3", "Carol", 4, make(chan []byte, 32))
	if err != nil {
		t.Fatalf("third join failed: %v", err)
	}
	if started {
		t.Error("third join must open a new waiting session")
	}
	if s3.ID == s1.ID {
		t.Error("third joiner was put into the started session")
	}
}

func TestJoinDifferentGridSizesDoNotPair(t *testing.T) {
	l := testLobby()

	s1, _, _ := l.Join("p1", "Alice", 4, make(chan []byte, 32))
	s2, started, err := l.Join("p2", "Bob", 6, make(chan []byte, 32))
	if err != nil {
		t.Fatalf("join failed: %v", err)
	}
	if started {
		t.Error("different grid sizes must not pair")
	}
	if s1.ID == s2.ID {
		t.Error("players with different grid sizes share a session")
	}
}

func TestJoinRejectsInvalidGridSize(t *testing.T) {
	l := testLobby()

	for _, size := range []int{0, 3, 5, 100} {
		_, _, err := l.Join("p1", "Alice", size, make(chan []byte, 32))
		if !errors.Is(err, gameerrors.ErrInvalidGridSize) {
			t.Errorf("grid size %d: expected ErrInvalidGridSize, got %v", size, err)
		}
	}
}

func TestInsufficientContentSurfacedToJoinerOnly(t *testing.T) {
	l := New(config.Defaults(), content.NewStaticPool([]string{"a", "b"}), clockwork.NewRealClock())
	send1 := make(chan []byte, 32)

	s1, _, err := l.Join("p1", "Alice", 4, send1)
	if err != nil {
		t.Fatalf("first join failed: %v", err)
	}

	_, started, err := l.Join("p2", "Bob", 4, make(chan []byte, 32))
	if !errors.Is(err, gameerrors.ErrInsufficientContent) {
		t.Fatalf("expected ErrInsufficientContent, got %v", err)
	}
	if started {
		t.Error("failed start must not report started")
	}

	// The waiting session survives for the next joiner and its member saw
	// nothing.
	if l.Count() != 1 {
		t.Errorf("expected waiting session to survive, count=%d", l.Count())
	}
	select {
	case data := <-send1:
		t.Fatalf("waiting member received unexpected message: %s", data)
	default:
	}
	if s1.Payload().State != "waiting" {
		t.Errorf("session left waiting state: %s", s1.Payload().State)
	}
}

func TestLeaveRemovesWaitingSession(t *testing.T) {
	l := testLobby()

	s, _, err := l.Join("p1", "Alice", 4, make(chan []byte, 32))
	if err != nil {
		t.Fatalf("Join failed: %v", err)
	}

	l.Leave(s, "p1")
	if l.Count() != 0 {
		t.Errorf("expected 0 sessions after leave, got %d", l.Count())
	}

	// The abandoned slot must not pair the next joiner.
	_, started, err := l.Join("p2", "Bob", 4, make(chan []byte, 32))
	if err != nil {
		t.Fatalf("Join failed: %v", err)
	}
	if started {
		t.Error("new joiner was paired into a removed session")
	}
}

func TestLeaveRunningSessionAbandons(t *testing.T) {
	l := testLobby()
	send1 := make(chan []byte, 32)
	send2 := make(chan []byte, 32)

	l.Join("p1", "Alice", 4, send1)
	s, _, err := l.Join("p2", "Bob", 4, send2)
	if err != nil {
		t.Fatalf("Join failed: %v", err)
	}
	expectType(t, send1, protocol.TypeGameStart)
	expectType(t, send2, protocol.TypeGameStart)

	l.Leave(s, "p1")

	msg := expectType(t, send2, protocol.TypePlayerLeft)
	if _, ok := msg.(protocol.PlayerLeft); !ok {
		t.Fatalf("expected PlayerLeft, got %T", msg)
	}

	select {
	case <-s.Done:
	case <-time.After(2 * time.Second):
		t.Fatal("session did not wind down after leave")
	}
	if !s.Finished() {
		t.Error("session should report finished")
	}
	if l.Count() != 0 {
		t.Errorf("expected session removed from registry, count=%d", l.Count())
	}
}
