package status

// Status represents echo transcription status
type Status int

const (
	// Pending - echo created, audio stored, waiting for a worker
	Pending Status = iota + 1
	// Processing - transcription in progress
	Processing
	// Completed - final step, transcript available
	Completed
	// Failed - terminal for the attempt, may be re-triggered
	Failed
)

var (
	statusName = map[Status]string{Pending: "pending", Processing: "processing",
		Completed: "completed", Failed: "failed"}
	nameStatus = map[string]Status{"pending": Pending, "processing": Processing,
		"completed": Completed, "failed": Failed}
)

func (st Status) String() string {
	return statusName[st]
}

// From returns status obj from string
func From(st string) Status {
	return nameStatus[st]
}

// ErrCode indicates the failure kind persisted next to a failed echo
type ErrCode int

const (
	// ECServiceError - transcription or analysis backend failed
	ECServiceError ErrCode = iota + 1
	// ECStorageError - audio object could not be retrieved
	ECStorageError
	// ECNotFound - echo record does not exist
	ECNotFound
)

var errCodeName = map[ErrCode]string{ECServiceError: "SERVICE_ERROR",
	ECStorageError: "STORAGE_ERROR", ECNotFound: "NOT_FOUND"}

func (ec ErrCode) String() string {
	return errCodeName[ec]
}
