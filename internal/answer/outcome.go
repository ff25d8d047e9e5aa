package answer

// Outcome is the result of one generation attempt: either Generated or Failed.
type Outcome interface {
	outcome()
}

// Generated carries the backend's answer text.
type Generated struct {
	Text string
}

// Failed carries the reason a generation attempt did not produce text.
type Failed struct {
	Reason error
}

func (Generated) outcome() {}
func (Failed) outcome()    {}
