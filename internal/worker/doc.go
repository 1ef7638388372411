// Package worker runs started executions in the background.
//
// Two dispatchers implement service.Dispatcher:
//   - TaskPool runs jobs on a bounded set of goroutines in this process.
//   - AsynqDispatcher enqueues xray:run tasks in Redis; Server consumes them
//     in the same process so the runs land in the shared registry.
package worker
