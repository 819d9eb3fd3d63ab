package api

const (
	// PrmAudio is the multipart file parameter with the recorded audio
	PrmAudio = "audio"
	// PrmOwner is an optional authenticated owner identifier
	PrmOwner = "owner"
	// PrmQuestion is an optional question reference the echo answers
	PrmQuestion = "question"
	// PrmEmail is an optional address informed about pipeline completion
	PrmEmail = "email"
)

// GuestNamespace is used in storage keys for echoes without an owner
const GuestNamespace = "guest"
