package models

// Event names carried over the websocket, client to server.
const (
	EventJoin        = "join"
	EventSendMessage = "send_message"
)

// Event names carried over the websocket, server to client.
const (
	EventReceiveMessage = "receive_message"
	EventStatus         = "status"
	EventUpdateUserList = "update_user_list"
)

// Message content types inside a receive_message event.
const (
	MessageTypeText  = "text"
	MessageTypeImage = "image"
)

// ClientEvent is the inbound wire frame. Room and Msg are only meaningful for
// the events that carry them.
type ClientEvent struct {
	Event string `json:"event"`
	Room  string `json:"room,omitempty"`
	Msg   string `json:"msg,omitempty"`
}

// ServerEvent is the outbound wire frame. Exactly one payload shape is filled
// per event name.
type ServerEvent struct {
	Event string       `json:"event"`
	User  string       `json:"user,omitempty"`
	Type  string       `json:"type,omitempty"`
	Msg   string       `json:"msg,omitempty"`
	URL   string       `json:"url,omitempty"`
	Users []UserStatus `json:"users,omitempty"`
}
