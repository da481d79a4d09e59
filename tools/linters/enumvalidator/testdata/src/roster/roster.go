package roster

type Role string

const (
	RoleTank   Role = "tank"
	RoleHealer Role = "healer"
)

type EventType string

const EventSignup EventType = "signup"

type Member struct {
	ParticipantID int64
	Role          Role
}

type Message struct {
	EventType EventType
}

func bad() {
	m := &Member{}
	m.Role = "tnak" // want "enum field Role assigned string literal"

	_ = Message{EventType: "sign_up"} // want "enum field EventType set to string literal"
}

func good() {
	m := &Member{}
	m.Role = RoleTank

	_ = Message{EventType: EventSignup}
	_ = Member{ParticipantID: 4, Role: RoleHealer}
}

func alsoGood() {
	role := RoleHealer
	m := &Member{Role: role}
	_ = m
}
