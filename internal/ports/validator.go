package ports

// PayloadValidator rejects malformed webhook bodies per topic.
type PayloadValidator interface {
	Validate(topic string, raw []byte) error
}
