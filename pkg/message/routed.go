package message

// Routed pairs a Message with the name of the pipeline it enters next.
//
// Sources hand out *Routed values and later receive the same pointer back in
// MarkComplete, so the pointer is the identity of one delivery.
type Routed struct {
	Message  *Message
	Pipeline string
	// Headers carries transport metadata of the inbound record, such as trace
	// propagation headers. Nil for sources without headers.
	Headers map[string]string
}

func NewRouted(msg *Message, pipeline string) *Routed {
	return &Routed{
		Message:  msg,
		Pipeline: pipeline,
	}
}
