package instance

import "os"

// GetID identifies this worker replica in logs. Falls back to a fixed
// name for single-replica deployments.
func GetID() string {
	if id := os.Getenv("SCHOOLOPS_WORKER_ID"); id != "" {
		return id
	}
	return "worker-0"
}
