// Package arbiter defines the outbound port for the dispute collaborator.
package arbiter

import "context"

// Filer files disputes with the external adjudication service. How a ruling
// percentage is computed is that service's business; it calls back into the
// engine's apply_ruling endpoint once adjudication completes.
type Filer interface {
	FileDispute(ctx context.Context, taskID, claim string) (disputeID string, err error)
}
