package model

// Move is one up/down symbol of a movement string.
type Move byte

const (
	Up   Move = 'U'
	Down Move = 'D'
)

// Movement encodes close-to-close direction; len(Movement) == len(history)-1.
type Movement []Move

func (m Movement) String() string {
	return string(m)
}

// ParseMovement builds a Movement from a "UDU..." literal. Characters other than 'U' are Down.
func ParseMovement(s string) Movement {
	m := make(Movement, len(s))
	for i := 0; i < len(s); i++ {
		if s[i] == byte(Up) {
			m[i] = Up
		} else {
			m[i] = Down
		}
	}
	return m
}
