package temporalrt

import (
	"go.temporal.io/sdk/client"
	"go.temporal.io/sdk/worker"
)

// NewWorker builds a Temporal worker hosting MissionWorkflow and acts's
// activities on taskQueue, the same worker.New/RegisterWorkflow/
// RegisterActivity wiring the teacher's internal/temporal/worker.go uses.
func NewWorker(c client.Client, taskQueue string, acts *Activities) worker.Worker {
	w := worker.New(c, taskQueue, worker.Options{})
	w.RegisterWorkflow(MissionWorkflow)
	w.RegisterActivity(acts.DispatchActionActivity)
	w.RegisterActivity(acts.RefreshCharacterActivity)
	return w
}
