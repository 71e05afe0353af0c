package workers

import "sync/atomic"

// WorkerShutdown tells the background workers to exit once the HTTP
// service has stopped.
var WorkerShutdown atomic.Bool
