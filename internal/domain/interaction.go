package domain

const (
	InteractionTypePing      = 1
	InteractionTypeComponent = 3

	InteractionResponsePong           = 1
	InteractionResponseChannelMessage = 4

	// FlagEphemeral makes a response visible only to the requesting user.
	FlagEphemeral = 1 << 6
)

// Interaction is a user action on a message control.
type Interaction struct {
	ID        string
	Type      int
	MessageID string
	CustomID  string
	UserID    string
}

// InteractionResponse is the reply to an Interaction.
type InteractionResponse struct {
	Type    int
	Flags   int
	Content string
	Files   []File
}

// File is an attachment carried by a response.
type File struct {
	Name string
	Data []byte
}

// Ephemeral reports whether only the requester can see the response.
func (r InteractionResponse) Ephemeral() bool {
	return r.Flags&FlagEphemeral != 0
}
