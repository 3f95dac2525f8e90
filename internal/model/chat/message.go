package chat

import "time"

// Speaker identifies who produced a transcript entry.
type Speaker string

const (
	User Speaker = "You"
	Bot  Speaker = "Bot"
)

// Valid reports whether s is one of the known speakers.
func (s Speaker) Valid() bool {
	return s == User || s == Bot
}

// Turn is one (speaker, utterance) entry of a transcript.
type Turn struct {
	Speaker   Speaker   `json:"speaker"`
	Utterance string    `json:"utterance"`
	CreatedAt time.Time `json:"createdAt"`
}
