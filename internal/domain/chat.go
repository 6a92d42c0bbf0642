package domain

// Message is a chat message body. Either Text or Attachments (or Blocks)
// carries the content.
type Message struct {
	Text        string       `json:"text,omitempty"`
	Username    string       `json:"username,omitempty"`
	IconEmoji   string       `json:"icon_emoji,omitempty"`
	Attachments []Attachment `json:"attachments,omitempty"`
	Blocks      []Block      `json:"blocks,omitempty"`
}

// IsEmpty reports whether the message has nothing to send.
func (m Message) IsEmpty() bool {
	return m.Text == "" && len(m.Attachments) == 0 && len(m.Blocks) == 0
}

// Attachment is a legacy-style rich attachment.
type Attachment struct {
	Color      string            `json:"color,omitempty"`
	Title      string            `json:"title,omitempty"`
	TitleLink  string            `json:"title_link,omitempty"`
	Text       string            `json:"text,omitempty"`
	AuthorName string            `json:"author_name,omitempty"`
	AuthorLink string            `json:"author_link,omitempty"`
	Fields     []AttachmentField `json:"fields,omitempty"`
}

// AttachmentField is one short key/value cell of an attachment.
type AttachmentField struct {
	Title string `json:"title"`
	Value string `json:"value"`
	Short bool   `json:"short"`
}

// Block is a markdown section block, optionally with an image accessory.
type Block struct {
	Text     string `json:"text"`
	ImageURL string `json:"image_url,omitempty"`
	AltText  string `json:"alt_text,omitempty"`
}

// ChatResult is the tagged outcome of a chat transport call.
type ChatResult struct {
	OK        bool
	Error     string
	ChannelID string
	Channel   string
}

// Succeeded builds an OK result.
func Succeeded() ChatResult { return ChatResult{OK: true} }

// Failed builds a failed result carrying the transport error detail.
func Failed(detail string) ChatResult { return ChatResult{OK: false, Error: detail} }
