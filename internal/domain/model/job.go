package model

// JobSession is the correlation record created when an interpretation
// request is initiated: which registered callback post-processes the result,
// plus any caller-supplied context echoed back at poll time.
type JobSession struct {
	JobID        string
	CallbackName string
	ExtraPayload map[string]any
}

// Delivery is one raw payload reported by the super-backend for a job.
// Stop marks the payload as the final one for its job.
type Delivery struct {
	JobID string
	Data  any
	Stop  bool
}

type PollState string

const (
	// PollNoData means no unconsumed raw payload is stored for the job.
	PollNoData PollState = "no_data"
	// PollProcessed means a raw payload was consumed and transformed.
	PollProcessed PollState = "processed"
)

// PollResult is the outcome of consuming a job's delivered data.
// In the PollNoData state Result still carries the last cached transform
// output, if the job is open and one exists, so repeat polls observe a
// stable value without re-running the transform.
type PollResult struct {
	State        PollState
	Result       any
	Stop         bool
	ExtraPayload map[string]any
}
