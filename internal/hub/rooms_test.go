package hub

import "testing"

func TestRoomJoinCreatesRoom(t *testing.T) {
	r := NewRoomRegistry()
	c := &Client{username: "ana", send: make(chan []byte, 1)}

	if got := r.Members("geral"); len(got) != 0 {
		t.Fatalf("expected empty room, got %d members", len(got))
	}
	r.Join("geral", c)
	members := r.Members("geral")
	if len(members) != 1 || members[0] != c {
		t.Fatalf("expected ana as only member")
	}
}

func TestRoomLeaveRetainsEmptyRoom(t *testing.T) {
	r := NewRoomRegistry()
	c := &Client{username: "ana", send: make(chan []byte, 1)}

	r.Join("geral", c)
	r.Leave("geral", c)
	if got := r.Members("geral"); len(got) != 0 {
		t.Fatalf("expected empty room after leave, got %d", len(got))
	}
	// The room itself survives; rejoining does not recreate state.
	r.Join("geral", c)
	if got := r.Members("geral"); len(got) != 1 {
		t.Fatalf("expected 1 member after rejoin, got %d", len(got))
	}

	// Leaving a room never joined is a no-op.
	r.Leave("outra", c)
}

func TestRoomLeaveAll(t *testing.T) {
	r := NewRoomRegistry()
	ana := &Client{username: "ana", send: make(chan []byte, 1)}
	bob := &Client{username: "bob", send: make(chan []byte, 1)}

	r.Join("geral", ana)
	r.Join("geral", bob)
	r.Join("jogos", ana)

	r.LeaveAll(ana)
	if got := r.Members("jogos"); len(got) != 0 {
		t.Fatalf("ana still in jogos")
	}
	members := r.Members("geral")
	if len(members) != 1 || members[0] != bob {
		t.Fatalf("expected only bob in geral, got %d members", len(members))
	}
}
