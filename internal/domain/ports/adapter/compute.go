package adapter

import "context"

// ComputeService is the super-backend that runs interpretation jobs. It is a
// black box: Interpret hands over a job id plus request parameters and
// returns the service's immediate acknowledgement. The actual result arrives
// later through the HTTP callback endpoint.
type ComputeService interface {
	Interpret(ctx context.Context, jobID string, params map[string]any) (ack string, err error)
}
